package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/food-pantry/internal/model"
)

// TransactionRepo provides access to the transactions and
// transaction_items tables.  A transaction row owns its line items
// (ON DELETE CASCADE); line items reference items by name only.
type TransactionRepo struct {
	db *sql.DB
}

// NewTransactionRepo returns a TransactionRepo bound to db.
func NewTransactionRepo(db *sql.DB) *TransactionRepo { return &TransactionRepo{db: db} }

// CreateTx inserts the transaction row and all its line items within tx.
// The generated IDs are written back to t.  The caller must commit or
// roll back tx.
func (r *TransactionRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Transaction) error {
	const q = `INSERT INTO transactions (action, created_at, day_of_week, student_id) VALUES (?, ?, ?, ?)`
	var student sql.NullString
	if t.StudentID != nil {
		student = sql.NullString{String: *t.StudentID, Valid: true}
	}
	res, err := tx.ExecContext(ctx, q, string(t.Action), t.Timestamp, string(t.DayOfWeek), student)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	t.ID = uint64(id)
	for i := range t.Items {
		t.Items[i].TransactionID = t.ID
	}
	return r.createItemsBulkTx(ctx, tx, t.Items)
}

// createItemsBulkTx inserts all line items in a single statement.  An
// empty slice is a no-op.
func (r *TransactionRepo) createItemsBulkTx(ctx context.Context, tx *sql.Tx, lines []model.TransactionItem) error {
	if len(lines) == 0 {
		return nil
	}
	query := `INSERT INTO transaction_items (transaction_id, item_name, item_quantity) VALUES `
	args := make([]any, 0, len(lines)*3)
	for i, l := range lines {
		if i > 0 {
			query += ","
		}
		query += "(?, ?, ?)"
		args = append(args, l.TransactionID, l.ItemName, l.ItemQuantity)
	}
	_, err := tx.ExecContext(ctx, query, args...)
	return err
}

// Query returns the transactions matching f with their line items,
// ordered by id.  The item name filter is an EXISTS over line items so a
// transaction matches when any of its lines carries the name.
func (r *TransactionRepo) Query(ctx context.Context, f model.LogFilter) ([]model.Transaction, error) {
	where := []string{}
	args := []any{}
	if f.DayOfWeek != nil {
		where = append(where, "t.day_of_week = ?")
		args = append(args, string(*f.DayOfWeek))
	}
	if f.StudentID != nil {
		where = append(where, "t.student_id = ?")
		args = append(args, *f.StudentID)
	}
	if f.Action != nil {
		where = append(where, "t.action = ?")
		args = append(args, string(*f.Action))
	}
	if f.ItemName != nil {
		where = append(where, "EXISTS (SELECT 1 FROM transaction_items ti WHERE ti.transaction_id = t.id AND ti.item_name = ?)")
		args = append(args, *f.ItemName)
	}
	cond := "1=1"
	if len(where) > 0 {
		cond = strings.Join(where, " AND ")
	}
	q := `SELECT t.id, t.action, t.created_at, t.day_of_week, t.student_id
		FROM transactions t
		WHERE ` + cond + `
		ORDER BY t.id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Transaction, 0)
	index := make(map[uint64]int)
	for rows.Next() {
		var t model.Transaction
		var action, day string
		var student sql.NullString
		if err := rows.Scan(&t.ID, &action, &t.Timestamp, &day, &student); err != nil {
			return nil, err
		}
		t.Action = model.Action(action)
		t.DayOfWeek = model.Weekday(day)
		if student.Valid {
			s := student.String
			t.StudentID = &s
		}
		t.Items = []model.TransactionItem{}
		index[t.ID] = len(out)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make([]any, 0, len(out))
	for _, t := range out {
		ids = append(ids, t.ID)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	lineQ := `SELECT id, transaction_id, item_name, item_quantity
		FROM transaction_items
		WHERE transaction_id IN (` + placeholders + `)
		ORDER BY id`
	lrows, err := r.db.QueryContext(ctx, lineQ, ids...)
	if err != nil {
		return nil, err
	}
	defer lrows.Close()
	for lrows.Next() {
		var l model.TransactionItem
		if err := lrows.Scan(&l.ID, &l.TransactionID, &l.ItemName, &l.ItemQuantity); err != nil {
			return nil, err
		}
		if i, ok := index[l.TransactionID]; ok {
			out[i].Items = append(out[i].Items, l)
		}
	}
	if err := lrows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteAllTx removes every transaction and line item.
func (r *TransactionRepo) DeleteAllTx(ctx context.Context, tx *sql.Tx) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM transaction_items`); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `DELETE FROM transactions`)
	return err
}
