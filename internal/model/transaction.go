package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Action is the kind of a logged inventory event.  Values are stored in
// the transactions.action column exactly as written here.
type Action string

const (
	ActionCheckout Action = "checkout"
	ActionRestock  Action = "restock"
)

// ParseAction accepts "checkout" or "restock" in any letter case.
func ParseAction(s string) (Action, error) {
	switch Action(strings.ToLower(strings.TrimSpace(s))) {
	case ActionCheckout:
		return ActionCheckout, nil
	case ActionRestock:
		return ActionRestock, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

// Weekday is the English day name stored denormalized on each transaction.
type Weekday string

// weekdays is indexed Monday first.
var weekdays = [7]Weekday{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// WeekdayOf returns the day name of t in t's own location.
func WeekdayOf(t time.Time) Weekday {
	// time.Weekday counts from Sunday = 0
	return weekdays[(int(t.Weekday())+6)%7]
}

// WeekdayFromIndex maps 0..6 (Monday = 0) to a day name.
func WeekdayFromIndex(i int) (Weekday, error) {
	if i < 0 || i > 6 {
		return "", fmt.Errorf("day index %d out of range 0-6", i)
	}
	return weekdays[i], nil
}

// ParseWeekday accepts either a day name (any case) or a 0-6 index with
// Monday as 0.  Both forms resolve to the same stored name.
func ParseWeekday(s string) (Weekday, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return WeekdayFromIndex(n)
	}
	for _, d := range weekdays {
		if strings.EqualFold(string(d), s) {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown day of week %q", s)
}

// Transaction is one logged checkout or restock.  It owns its line
// items; deleting the transaction deletes them.  Immutable once stored.
//
// Fields:
//  ID        – monotonic primary key.
//  Action    – checkout or restock.
//  Timestamp – creation time in the service's configured location.
//  DayOfWeek – day name derived from Timestamp at creation.
//  StudentID – set only for student-initiated checkouts.
//  Items     – the line items, at least one.
type Transaction struct {
	ID        uint64            `json:"transaction_id"`
	Action    Action            `json:"action"`
	Timestamp time.Time         `json:"timestamp"`
	DayOfWeek Weekday           `json:"day_of_week"`
	StudentID *string           `json:"student_id"`
	Items     []TransactionItem `json:"items"`
}

// TransactionItem is a single (name, quantity) line of a transaction.
// ItemName is a copy of the item name at the time of the transaction and
// is not a foreign key, so history survives item deletion.
type TransactionItem struct {
	ID            uint64 `json:"-"`
	TransactionID uint64 `json:"-"`
	ItemName      string `json:"item_name"`
	ItemQuantity  int    `json:"item_quantity"`
}

// LogFilter narrows a transaction query.  Nil fields are ignored and
// set fields combine with AND.  ItemName matches when any line item of a
// transaction carries that name.
type LogFilter struct {
	DayOfWeek *Weekday
	StudentID *string
	ItemName  *string
	Action    *Action
}

// Match reports whether t satisfies every set field of f.
func (f LogFilter) Match(t Transaction) bool {
	if f.DayOfWeek != nil && t.DayOfWeek != *f.DayOfWeek {
		return false
	}
	if f.StudentID != nil && (t.StudentID == nil || *t.StudentID != *f.StudentID) {
		return false
	}
	if f.Action != nil && t.Action != *f.Action {
		return false
	}
	if f.ItemName != nil {
		for _, it := range t.Items {
			if it.ItemName == *f.ItemName {
				return true
			}
		}
		return false
	}
	return true
}
