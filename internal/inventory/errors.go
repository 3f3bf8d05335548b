package inventory

import (
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/food-pantry/internal/model"
)

// Kind classifies an error for the transport layer.
type Kind int

const (
	KindUnknown    Kind = iota // unexpected storage failure
	KindNotFound               // a referenced item is absent
	KindConflict               // name collision, or not enough stock
	KindBadRequest             // checkout quantity above the item's max
	KindInvalid                // malformed request
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "NOT_FOUND"
	case KindConflict:
		return "CONFLICT"
	case KindBadRequest:
		return "BAD_REQUEST"
	case KindInvalid:
		return "INVALID"
	}
	return "UNKNOWN"
}

// ErrItemNotFound is returned by stores and the service when no item
// with the requested name exists.
var ErrItemNotFound = errors.New("item not found")

// ErrItemExists is returned when creating an item whose name is taken.
var ErrItemExists = errors.New("item with the given name already exists")

// ErrInvalidRequest wraps every input-shape violation (empty batch,
// blank names, non-positive quantities, negative stock).
var ErrInvalidRequest = errors.New("invalid request")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// ValidationError carries every failing line of a rejected batch.  It is
// an expected outcome, not a fault: nothing was mutated.
type ValidationError struct {
	Action model.Action
	Result ValidationResult
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.Result.NotFound) > 0 {
		parts = append(parts, fmt.Sprintf("item(s) %s not found", strings.Join(e.Result.NotFound, ", ")))
	}
	if len(e.Result.OverMax) > 0 {
		names := make([]string, 0, len(e.Result.OverMax))
		for _, r := range e.Result.OverMax {
			names = append(names, r.Name)
		}
		parts = append(parts, fmt.Sprintf("attempted to checkout more than the max quantity allowed for item(s) %s", strings.Join(names, ", ")))
	}
	if len(e.Result.InsufficientStock) > 0 {
		parts = append(parts, fmt.Sprintf("not enough stock for item(s) %s", strings.Join(e.Result.InsufficientStock, ", ")))
	}
	return string(e.Action) + " rejected: " + strings.Join(parts, "; ")
}

// Kind reports the class of the first non-empty bucket, in the order
// not found, over max, insufficient stock.
func (e *ValidationError) Kind() Kind {
	switch {
	case len(e.Result.NotFound) > 0:
		return KindNotFound
	case len(e.Result.OverMax) > 0:
		return KindBadRequest
	case len(e.Result.InsufficientStock) > 0:
		return KindConflict
	}
	return KindUnknown
}

// KindOf classifies any error returned by this package.
func KindOf(err error) Kind {
	var verr *ValidationError
	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &verr):
		return verr.Kind()
	case errors.Is(err, ErrItemNotFound):
		return KindNotFound
	case errors.Is(err, ErrItemExists):
		return KindConflict
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalid
	}
	return KindUnknown
}
