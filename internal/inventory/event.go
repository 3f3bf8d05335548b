package inventory

import (
	"context"
	"time"

	"github.com/iliyamo/food-pantry/internal/model"
)

// EventKind names what changed in the inventory.
type EventKind string

const (
	EventCheckout       EventKind = "checkout"
	EventRestock        EventKind = "restock"
	EventItemCreated    EventKind = "item.created"
	EventItemDeleted    EventKind = "item.deleted"
	EventInventoryWiped EventKind = "inventory.wiped"
)

// Event is emitted after a mutation has been committed.  Subscribers
// use it to refresh views; the core does not know who listens.
type Event struct {
	Kind          EventKind
	TransactionID uint64
	StudentID     *string
	Items         []model.TransactionItem
	ItemName      string
	At            time.Time
}

// Notifier receives post-commit events.  Errors are logged by the
// service and never undo the mutation.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, Event) error { return nil }
