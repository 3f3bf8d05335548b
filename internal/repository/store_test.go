package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/food-pantry/internal/inventory"
	"github.com/iliyamo/food-pantry/internal/model"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewStore(db), mock
}

var itemCols = []string{"id", "name", "stock", "max_checkout"}

func TestCheckoutCommitsThroughStore(t *testing.T) {
	store, mock := newMock(t)
	svc := inventory.NewService(store, nil, nil, time.UTC)
	svc.SetClock(func() time.Time { return time.Date(2024, 1, 3, 9, 0, 0, 0, time.UTC) })

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, stock, max_checkout FROM items WHERE name IN (?,?) ORDER BY name FOR UPDATE`)).
		WithArgs("RICE", "BEANS").
		WillReturnRows(sqlmock.NewRows(itemCols).
			AddRow(2, "BEANS", 4, 2).
			AddRow(1, "RICE", 10, 5))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE items SET stock = stock + ? WHERE name = ? AND stock + ? >= 0`)).
		WithArgs(-3, "RICE", -3).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE items SET stock = stock + ? WHERE name = ? AND stock + ? >= 0`)).
		WithArgs(-1, "BEANS", -1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO transactions (action, created_at, day_of_week, student_id) VALUES (?, ?, ?, ?)`)).
		WithArgs("checkout", sqlmock.AnyArg(), "Wednesday", "s-9").
		WillReturnResult(sqlmock.NewResult(41, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO transaction_items (transaction_id, item_name, item_quantity) VALUES (?, ?, ?),(?, ?, ?)`)).
		WithArgs(uint64(41), "RICE", 3, uint64(41), "BEANS", 1).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectCommit()

	student := "s-9"
	rec, err := svc.Checkout(context.Background(), inventory.BatchRequest{
		StudentID: &student,
		Items:     []inventory.LineRequest{{Name: "RICE", Quantity: 3}, {Name: "BEANS", Quantity: 1}},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(41), rec.ID)
	assert.Equal(t, uint64(41), rec.Items[1].TransactionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectedCheckoutRollsBack(t *testing.T) {
	store, mock := newMock(t)
	svc := inventory.NewService(store, nil, nil, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`FOR UPDATE`)).
		WithArgs("RICE").
		WillReturnRows(sqlmock.NewRows(itemCols).AddRow(1, "RICE", 2, 5))
	mock.ExpectRollback()

	_, err := svc.Checkout(context.Background(), inventory.BatchRequest{
		Items: []inventory.LineRequest{{Name: "RICE", Quantity: 3}},
	})
	var verr *inventory.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"RICE"}, verr.Result.InsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	boom := errors.New("boom")
	err := store.WithinTx(context.Background(), func(inventory.Tx) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateItemDuplicateName(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO items (name, stock, max_checkout) VALUES (?, ?, ?)`)).
		WithArgs("RICE", 10, 5).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'RICE' for key 'name'"})
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx inventory.Tx) error {
		return tx.InsertItem(context.Background(), &model.Item{Name: "RICE", Stock: 10, MaxCheckout: 5})
	})
	assert.ErrorIs(t, err, inventory.ErrItemExists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateItemSetsID(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO items`)).
		WillReturnResult(sqlmock.NewResult(7, 1))
	mock.ExpectCommit()

	it := model.Item{Name: "RICE", Stock: 10, MaxCheckout: 5}
	err := store.WithinTx(context.Background(), func(tx inventory.Tx) error {
		return tx.InsertItem(context.Background(), &it)
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), it.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStockDistinguishesMissingFromNegative(t *testing.T) {
	store, mock := newMock(t)
	update := regexp.QuoteMeta(`UPDATE items SET stock = stock + ?`)
	probe := regexp.QuoteMeta(`SELECT 1 FROM items WHERE name = ?`)

	mock.ExpectBegin()
	mock.ExpectExec(update).WithArgs(-5, "RICE", -5).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(probe).WithArgs("RICE").WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(1))
	mock.ExpectExec(update).WithArgs(1, "GHOST", 1).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(probe).WithArgs("GHOST").WillReturnRows(sqlmock.NewRows([]string{"1"}))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx inventory.Tx) error {
		assert.ErrorIs(t, tx.AdjustStock(context.Background(), "RICE", -5), ErrNegativeStock)
		assert.ErrorIs(t, tx.AdjustStock(context.Background(), "GHOST", 1), inventory.ErrItemNotFound)
		return nil
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteItemMissing(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM items WHERE name = ?`)).
		WithArgs("GHOST").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(tx inventory.Tx) error {
		return tx.DeleteItem(context.Background(), "GHOST")
	})
	assert.ErrorIs(t, err, inventory.ErrItemNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAllWipesLogThenItems(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM transaction_items`)).WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM transactions`)).WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM items`)).WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(tx inventory.Tx) error {
		return tx.DeleteAll(context.Background())
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetItemNotFound(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, name, stock, max_checkout FROM items WHERE name = ?`)).
		WithArgs("GHOST").
		WillReturnRows(sqlmock.NewRows(itemCols))

	_, err := store.GetItem(context.Background(), "GHOST")
	assert.ErrorIs(t, err, inventory.ErrItemNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryTransactionsComposesFilters(t *testing.T) {
	store, mock := newMock(t)
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM transactions t\s+WHERE t\.action = \? AND EXISTS \(SELECT 1 FROM transaction_items ti WHERE ti\.transaction_id = t\.id AND ti\.item_name = \?\)\s+ORDER BY t\.id`).
		WithArgs("checkout", "RICE").
		WillReturnRows(sqlmock.NewRows([]string{"id", "action", "created_at", "day_of_week", "student_id"}).
			AddRow(3, "checkout", at, "Monday", "s-1").
			AddRow(5, "checkout", at, "Monday", nil))
	mock.ExpectQuery(`FROM transaction_items\s+WHERE transaction_id IN \(\?,\?\)\s+ORDER BY id`).
		WithArgs(uint64(3), uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "transaction_id", "item_name", "item_quantity"}).
			AddRow(10, 3, "RICE", 1).
			AddRow(11, 3, "BEANS", 2).
			AddRow(14, 5, "RICE", 4))

	action := model.ActionCheckout
	name := "RICE"
	out, err := store.QueryTransactions(context.Background(), model.LogFilter{Action: &action, ItemName: &name})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "s-1", *out[0].StudentID)
	assert.Nil(t, out[1].StudentID)
	assert.Len(t, out[0].Items, 2)
	assert.Len(t, out[1].Items, 1)
	assert.Equal(t, model.Weekday("Monday"), out[0].DayOfWeek)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQueryTransactionsEmptySkipsLineQuery(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectQuery(`WHERE 1=1`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "action", "created_at", "day_of_week", "student_id"}))

	out, err := store.QueryTransactions(context.Background(), model.LogFilter{})
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)
	assert.NoError(t, mock.ExpectationsWereMet())
}
