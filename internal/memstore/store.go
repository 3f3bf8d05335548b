// Package memstore is an in-process inventory.Store.  Each atomic unit
// works on a private copy of the state that replaces the shared state
// only on commit, so a failed unit leaves nothing behind.  Units are
// serialized by a single lock.
package memstore

import (
	"context"
	"sort"
	"sync"

	"github.com/iliyamo/food-pantry/internal/inventory"
	"github.com/iliyamo/food-pantry/internal/model"
)

type state struct {
	items        map[string]model.Item
	transactions []model.Transaction
	itemSeq      uint64
	txSeq        uint64
	lineSeq      uint64
}

func (s *state) clone() *state {
	c := &state{
		items:        make(map[string]model.Item, len(s.items)),
		transactions: make([]model.Transaction, len(s.transactions)),
		itemSeq:      s.itemSeq,
		txSeq:        s.txSeq,
		lineSeq:      s.lineSeq,
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for i, t := range s.transactions {
		c.transactions[i] = cloneTransaction(t)
	}
	return c
}

func cloneTransaction(t model.Transaction) model.Transaction {
	t.Items = append([]model.TransactionItem(nil), t.Items...)
	if t.StudentID != nil {
		id := *t.StudentID
		t.StudentID = &id
	}
	return t
}

// Store keeps items and transactions in memory.
type Store struct {
	mu    sync.RWMutex
	state *state
}

// New returns an empty Store.
func New() *Store {
	return &Store{state: &state{items: map[string]model.Item{}}}
}

// WithinTx runs fn against a copy of the state and installs the copy
// only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	work := &memTx{st: s.state.clone()}
	if err := fn(work); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.state = work.st
	return nil
}

// GetItem returns inventory.ErrItemNotFound when name is absent.
func (s *Store) GetItem(_ context.Context, name string) (model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.state.items[name]
	if !ok {
		return model.Item{}, inventory.ErrItemNotFound
	}
	return it, nil
}

// ListItems returns items ordered by id.
func (s *Store) ListItems(_ context.Context) ([]model.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Item, 0, len(s.state.items))
	for _, it := range s.state.items {
		out = append(out, it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// QueryTransactions returns matching transactions ordered by id.
func (s *Store) QueryTransactions(_ context.Context, f model.LogFilter) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Transaction, 0)
	for _, t := range s.state.transactions {
		if f.Match(t) {
			out = append(out, cloneTransaction(t))
		}
	}
	return out, nil
}

type memTx struct {
	st *state
}

func (t *memTx) LockItems(_ context.Context, names []string) (map[string]model.Item, error) {
	out := make(map[string]model.Item, len(names))
	for _, n := range names {
		if it, ok := t.st.items[n]; ok {
			out[n] = it
		}
	}
	return out, nil
}

func (t *memTx) AdjustStock(_ context.Context, name string, delta int) error {
	it, ok := t.st.items[name]
	if !ok {
		return inventory.ErrItemNotFound
	}
	if it.Stock+delta < 0 {
		return errNegativeStock
	}
	it.Stock += delta
	t.st.items[name] = it
	return nil
}

func (t *memTx) InsertTransaction(_ context.Context, rec *model.Transaction) error {
	t.st.txSeq++
	rec.ID = t.st.txSeq
	for i := range rec.Items {
		t.st.lineSeq++
		rec.Items[i].ID = t.st.lineSeq
		rec.Items[i].TransactionID = rec.ID
	}
	t.st.transactions = append(t.st.transactions, cloneTransaction(*rec))
	return nil
}

func (t *memTx) InsertItem(_ context.Context, item *model.Item) error {
	if _, ok := t.st.items[item.Name]; ok {
		return inventory.ErrItemExists
	}
	t.st.itemSeq++
	item.ID = t.st.itemSeq
	t.st.items[item.Name] = *item
	return nil
}

func (t *memTx) DeleteItem(_ context.Context, name string) error {
	if _, ok := t.st.items[name]; !ok {
		return inventory.ErrItemNotFound
	}
	delete(t.st.items, name)
	return nil
}

func (t *memTx) DeleteAll(_ context.Context) error {
	t.st.items = map[string]model.Item{}
	t.st.transactions = nil
	return nil
}
