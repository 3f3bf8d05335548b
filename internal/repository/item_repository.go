package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/food-pantry/internal/inventory"
	"github.com/iliyamo/food-pantry/internal/model"
)

// ItemRepo provides access to the items table.  Names are stored with a
// binary collation so lookups are case-sensitive.
type ItemRepo struct {
	db *sql.DB
}

// NewItemRepo returns an ItemRepo bound to db.
func NewItemRepo(db *sql.DB) *ItemRepo { return &ItemRepo{db: db} }

// GetByName returns inventory.ErrItemNotFound when no row matches.
func (r *ItemRepo) GetByName(ctx context.Context, name string) (model.Item, error) {
	const q = `SELECT id, name, stock, max_checkout FROM items WHERE name = ?`
	var it model.Item
	err := r.db.QueryRowContext(ctx, q, name).Scan(&it.ID, &it.Name, &it.Stock, &it.MaxCheckout)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Item{}, inventory.ErrItemNotFound
	}
	if err != nil {
		return model.Item{}, err
	}
	return it, nil
}

// List returns every item ordered by id.
func (r *ItemRepo) List(ctx context.Context) ([]model.Item, error) {
	const q = `SELECT id, name, stock, max_checkout FROM items ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := make([]model.Item, 0)
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Stock, &it.MaxCheckout); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// LockByNamesTx loads the named items with SELECT ... FOR UPDATE so that
// concurrent batches touching the same rows wait for this transaction.
// Rows are locked in name order to keep lock acquisition consistent
// across transactions.  Names with no row are absent from the result.
func (r *ItemRepo) LockByNamesTx(ctx context.Context, tx *sql.Tx, names []string) (map[string]model.Item, error) {
	out := make(map[string]model.Item, len(names))
	if len(names) == 0 {
		return out, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(names)), ",")
	q := `SELECT id, name, stock, max_checkout FROM items WHERE name IN (` + placeholders + `) ORDER BY name FOR UPDATE`
	args := make([]any, 0, len(names))
	for _, n := range names {
		args = append(args, n)
	}
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var it model.Item
		if err := rows.Scan(&it.ID, &it.Name, &it.Stock, &it.MaxCheckout); err != nil {
			return nil, err
		}
		out[it.Name] = it
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// AdjustStockTx adds delta to the stock of the named item.  The update
// refuses to go below zero; in that case ErrNegativeStock is returned.
func (r *ItemRepo) AdjustStockTx(ctx context.Context, tx *sql.Tx, name string, delta int) error {
	const q = `UPDATE items SET stock = stock + ? WHERE name = ? AND stock + ? >= 0`
	res, err := tx.ExecContext(ctx, q, delta, name, delta)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// distinguish a missing row from a refused decrement
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM items WHERE name = ?`, name).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return inventory.ErrItemNotFound
		}
		if err != nil {
			return err
		}
		return ErrNegativeStock
	}
	return nil
}

// CreateTx inserts a new item and fills in its ID.  A duplicate name
// yields inventory.ErrItemExists.
func (r *ItemRepo) CreateTx(ctx context.Context, tx *sql.Tx, it *model.Item) error {
	const q = `INSERT INTO items (name, stock, max_checkout) VALUES (?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, it.Name, it.Stock, it.MaxCheckout)
	if err != nil {
		if isDuplicateKey(err) {
			return inventory.ErrItemExists
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	it.ID = uint64(id)
	return nil
}

// DeleteByNameTx removes one item.  Transaction lines naming it are not
// touched.
func (r *ItemRepo) DeleteByNameTx(ctx context.Context, tx *sql.Tx, name string) error {
	res, err := tx.ExecContext(ctx, `DELETE FROM items WHERE name = ?`, name)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return inventory.ErrItemNotFound
	}
	return nil
}

// DeleteAllTx removes every item.
func (r *ItemRepo) DeleteAllTx(ctx context.Context, tx *sql.Tx) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM items`)
	return err
}
