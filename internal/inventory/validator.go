package inventory

import (
	"math"
	"strings"

	"github.com/iliyamo/food-pantry/internal/model"
)

// MaxQuantity bounds line quantities, initial stock, max checkout and
// the stock a restock may reach.  It fits the unsigned INT stock column.
const MaxQuantity = math.MaxInt32

// LineRequest is one (name, quantity) line of a batch action.
type LineRequest struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// BatchRequest is a checkout or restock covering one or more lines.
// StudentID applies to the whole batch and is ignored for restocks.
type BatchRequest struct {
	StudentID *string
	Items     []LineRequest
}

// ValidationResult holds the failing lines of a batch, one bucket per
// failure class.  All slices are non-nil so they encode as [] in JSON.
type ValidationResult struct {
	NotFound          []string      `json:"not_found"`
	OverMax           []LineRequest `json:"over_max"`
	InsufficientStock []string      `json:"insufficient_stock"`
}

// OK reports whether every line passed.
func (r ValidationResult) OK() bool {
	return len(r.NotFound) == 0 && len(r.OverMax) == 0 && len(r.InsufficientStock) == 0
}

// CheckLines enforces the input shape of a batch before any lookup.
func CheckLines(lines []LineRequest) error {
	if len(lines) == 0 {
		return invalidf("items must not be empty")
	}
	for i, l := range lines {
		if strings.TrimSpace(l.Name) == "" {
			return invalidf("items[%d]: name is required", i)
		}
		if l.Quantity <= 0 {
			return invalidf("items[%d]: quantity must be a positive integer", i)
		}
		if l.Quantity > MaxQuantity {
			return invalidf("items[%d]: quantity must not exceed %d", i, MaxQuantity)
		}
	}
	return nil
}

// Validate classifies every line of a batch against the given items,
// keyed by name.  A line lands in at most one bucket, checked in the
// order not found, over max, insufficient stock.  Restocks only check
// existence.  When a checkout names the same item on several lines,
// stock sufficiency is checked against what earlier lines left, so an
// accepted batch can never drive stock below zero.  Validate has no
// side effects.
func Validate(action model.Action, lines []LineRequest, items map[string]model.Item) ValidationResult {
	res := ValidationResult{
		NotFound:          []string{},
		OverMax:           []LineRequest{},
		InsufficientStock: []string{},
	}
	seenMissing := map[string]bool{}
	seenShort := map[string]bool{}
	remaining := map[string]int{}

	for _, l := range lines {
		it, ok := items[l.Name]
		if !ok {
			if !seenMissing[l.Name] {
				seenMissing[l.Name] = true
				res.NotFound = append(res.NotFound, l.Name)
			}
			continue
		}
		if action != model.ActionCheckout {
			continue
		}
		if l.Quantity > it.MaxCheckout {
			res.OverMax = append(res.OverMax, l)
			continue
		}
		left, ok := remaining[l.Name]
		if !ok {
			left = it.Stock
		}
		if left < l.Quantity {
			if !seenShort[l.Name] {
				seenShort[l.Name] = true
				res.InsufficientStock = append(res.InsufficientStock, l.Name)
			}
			continue
		}
		remaining[l.Name] = left - l.Quantity
	}
	return res
}

// checkCapacity rejects a restock that would take an item above
// MaxQuantity.  Lines for the same item add up.
func checkCapacity(lines []LineRequest, items map[string]model.Item) error {
	total := make(map[string]int, len(items))
	for _, l := range lines {
		if _, ok := total[l.Name]; !ok {
			total[l.Name] = items[l.Name].Stock
		}
		total[l.Name] += l.Quantity
		if total[l.Name] > MaxQuantity {
			return invalidf("restocking %q would exceed %d units", l.Name, MaxQuantity)
		}
	}
	return nil
}

// lineNames returns the distinct names of lines in first-seen order.
func lineNames(lines []LineRequest) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		if _, ok := seen[l.Name]; ok {
			continue
		}
		seen[l.Name] = struct{}{}
		out = append(out, l.Name)
	}
	return out
}
