package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/food-pantry/internal/inventory"
	"github.com/iliyamo/food-pantry/internal/model"
)

// Store adapts ItemRepo and TransactionRepo to inventory.Store.
type Store struct {
	db    *sql.DB
	items *ItemRepo
	txns  *TransactionRepo
}

// NewStore builds a Store over db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, items: NewItemRepo(db), txns: NewTransactionRepo(db)}
}

// DB exposes the underlying pool, e.g. for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// WithinTx begins a transaction, runs fn and commits when fn returns
// nil.  Any error, including a panic unwinding through fn, rolls back.
func (s *Store) WithinTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(&sqlTx{tx: tx, items: s.items, txns: s.txns}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

func (s *Store) GetItem(ctx context.Context, name string) (model.Item, error) {
	return s.items.GetByName(ctx, name)
}

func (s *Store) ListItems(ctx context.Context) ([]model.Item, error) {
	return s.items.List(ctx)
}

func (s *Store) QueryTransactions(ctx context.Context, f model.LogFilter) ([]model.Transaction, error) {
	return s.txns.Query(ctx, f)
}

// sqlTx binds the repositories to one *sql.Tx.
type sqlTx struct {
	tx    *sql.Tx
	items *ItemRepo
	txns  *TransactionRepo
}

func (t *sqlTx) LockItems(ctx context.Context, names []string) (map[string]model.Item, error) {
	return t.items.LockByNamesTx(ctx, t.tx, names)
}

func (t *sqlTx) AdjustStock(ctx context.Context, name string, delta int) error {
	return t.items.AdjustStockTx(ctx, t.tx, name, delta)
}

func (t *sqlTx) InsertTransaction(ctx context.Context, rec *model.Transaction) error {
	return t.txns.CreateTx(ctx, t.tx, rec)
}

func (t *sqlTx) InsertItem(ctx context.Context, item *model.Item) error {
	return t.items.CreateTx(ctx, t.tx, item)
}

func (t *sqlTx) DeleteItem(ctx context.Context, name string) error {
	return t.items.DeleteByNameTx(ctx, t.tx, name)
}

func (t *sqlTx) DeleteAll(ctx context.Context) error {
	if err := t.txns.DeleteAllTx(ctx, t.tx); err != nil {
		return err
	}
	return t.items.DeleteAllTx(ctx, t.tx)
}
