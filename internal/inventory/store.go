package inventory

import (
	"context"

	"github.com/iliyamo/food-pantry/internal/model"
)

// Store is the storage collaborator of the inventory core.  Reads that
// need no isolation are served directly; everything that mutates goes
// through WithinTx.
type Store interface {
	// WithinTx runs fn as one atomic unit.  The unit commits when fn
	// returns nil and rolls back otherwise.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	// GetItem returns ErrItemNotFound when name is absent.
	GetItem(ctx context.Context, name string) (model.Item, error)
	ListItems(ctx context.Context) ([]model.Item, error)
	QueryTransactions(ctx context.Context, f model.LogFilter) ([]model.Transaction, error)
}

// Tx is the set of operations available inside an atomic unit.
type Tx interface {
	// LockItems loads the named items, keyed by name, and holds them
	// against concurrent writers until the unit ends.  Missing names
	// are simply absent from the map.
	LockItems(ctx context.Context, names []string) (map[string]model.Item, error)
	// AdjustStock adds delta (negative for checkouts) to an item's stock.
	AdjustStock(ctx context.Context, name string, delta int) error
	// InsertTransaction stores t and its line items and fills in t.ID.
	InsertTransaction(ctx context.Context, t *model.Transaction) error
	// InsertItem returns ErrItemExists when the name is taken.
	InsertItem(ctx context.Context, item *model.Item) error
	// DeleteItem returns ErrItemNotFound when name is absent.
	DeleteItem(ctx context.Context, name string) error
	// DeleteAll removes every item, transaction and line item.
	DeleteAll(ctx context.Context) error
}
