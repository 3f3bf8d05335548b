// Package inventory holds the pantry's business rules: validating batch
// checkouts and restocks, applying them atomically, and querying the
// transaction log.  Persistence is delegated to a Store.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/food-pantry/internal/model"
)

// Service applies inventory operations against a Store.
type Service struct {
	store    Store
	notifier Notifier
	log      *zap.Logger
	loc      *time.Location
	now      func() time.Time
}

// NewService builds a Service.  A nil notifier disables notifications, a
// nil logger discards logs and a nil location means time.Local.
func NewService(store Store, notifier Notifier, logger *zap.Logger, loc *time.Location) *Service {
	if store == nil {
		panic("nil store passed to NewService")
	}
	if notifier == nil {
		notifier = nopNotifier{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	return &Service{store: store, notifier: notifier, log: logger, loc: loc, now: time.Now}
}

// SetClock replaces the time source used to stamp transactions.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Checkout validates and applies a checkout batch.  On any failing line
// nothing is mutated and a *ValidationError listing every failing line
// is returned.  Not idempotent: a replayed batch is applied again.
func (s *Service) Checkout(ctx context.Context, req BatchRequest) (*model.Transaction, error) {
	return s.apply(ctx, model.ActionCheckout, req)
}

// Restock validates and applies a restock batch.  Restocks are not
// capped by max checkout and carry no student id.
func (s *Service) Restock(ctx context.Context, req BatchRequest) (*model.Transaction, error) {
	req.StudentID = nil
	return s.apply(ctx, model.ActionRestock, req)
}

func (s *Service) apply(ctx context.Context, action model.Action, req BatchRequest) (*model.Transaction, error) {
	if err := CheckLines(req.Items); err != nil {
		return nil, err
	}
	studentID := req.StudentID
	if studentID != nil && strings.TrimSpace(*studentID) == "" {
		studentID = nil
	}

	var rec *model.Transaction
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		items, err := tx.LockItems(ctx, lineNames(req.Items))
		if err != nil {
			return fmt.Errorf("lock items: %w", err)
		}
		if res := Validate(action, req.Items, items); !res.OK() {
			return &ValidationError{Action: action, Result: res}
		}
		if action == model.ActionRestock {
			if err := checkCapacity(req.Items, items); err != nil {
				return err
			}
		}
		for _, l := range req.Items {
			delta := l.Quantity
			if action == model.ActionCheckout {
				delta = -delta
			}
			if err := tx.AdjustStock(ctx, l.Name, delta); err != nil {
				return fmt.Errorf("adjust stock of %q: %w", l.Name, err)
			}
		}
		at := s.now().In(s.loc)
		rec = &model.Transaction{
			Action:    action,
			Timestamp: at,
			DayOfWeek: model.WeekdayOf(at),
			StudentID: studentID,
			Items:     make([]model.TransactionItem, 0, len(req.Items)),
		}
		for _, l := range req.Items {
			rec.Items = append(rec.Items, model.TransactionItem{ItemName: l.Name, ItemQuantity: l.Quantity})
		}
		if err := tx.InsertTransaction(ctx, rec); err != nil {
			return fmt.Errorf("insert transaction: %w", err)
		}
		return nil
	})
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			s.log.Info("batch rejected",
				zap.String("action", string(action)),
				zap.Strings("not_found", verr.Result.NotFound),
				zap.Int("over_max", len(verr.Result.OverMax)),
				zap.Strings("insufficient_stock", verr.Result.InsufficientStock),
			)
			return nil, verr
		}
		if errors.Is(err, ErrInvalidRequest) {
			return nil, err
		}
		s.log.Error("batch failed", zap.String("action", string(action)), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", action, err)
	}

	s.log.Info("batch applied",
		zap.String("action", string(action)),
		zap.Uint64("transaction_id", rec.ID),
		zap.Int("lines", len(rec.Items)),
	)
	kind := EventRestock
	if action == model.ActionCheckout {
		kind = EventCheckout
	}
	s.publish(ctx, Event{Kind: kind, TransactionID: rec.ID, StudentID: rec.StudentID, Items: rec.Items, At: rec.Timestamp})
	return rec, nil
}

// CreateItem adds a new item.  ErrItemExists is returned when the name
// is already taken, compared case-sensitively.
func (s *Service) CreateItem(ctx context.Context, name string, initialStock, maxCheckout int) (model.Item, error) {
	if strings.TrimSpace(name) == "" {
		return model.Item{}, invalidf("name is required")
	}
	if initialStock < 0 {
		return model.Item{}, invalidf("initial_stock must not be negative")
	}
	if maxCheckout < 1 {
		return model.Item{}, invalidf("max_checkout must be a positive integer")
	}
	if initialStock > MaxQuantity || maxCheckout > MaxQuantity {
		return model.Item{}, invalidf("initial_stock and max_checkout must not exceed %d", MaxQuantity)
	}
	item := model.Item{Name: name, Stock: initialStock, MaxCheckout: maxCheckout}
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		return tx.InsertItem(ctx, &item)
	})
	if err != nil {
		if !errors.Is(err, ErrItemExists) {
			s.log.Error("create item failed", zap.String("name", name), zap.Error(err))
		}
		return model.Item{}, err
	}
	s.publish(ctx, Event{Kind: EventItemCreated, ItemName: item.Name, At: s.now().In(s.loc)})
	return item, nil
}

// GetItem returns the item called name or ErrItemNotFound.
func (s *Service) GetItem(ctx context.Context, name string) (model.Item, error) {
	return s.store.GetItem(ctx, name)
}

// ListItems returns the whole catalog.
func (s *Service) ListItems(ctx context.Context) ([]model.Item, error) {
	return s.store.ListItems(ctx)
}

// DeleteItem removes one item.  Logged transactions that mention it are
// kept.
func (s *Service) DeleteItem(ctx context.Context, name string) error {
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		return tx.DeleteItem(ctx, name)
	})
	if err != nil {
		if !errors.Is(err, ErrItemNotFound) {
			s.log.Error("delete item failed", zap.String("name", name), zap.Error(err))
		}
		return err
	}
	s.publish(ctx, Event{Kind: EventItemDeleted, ItemName: name, At: s.now().In(s.loc)})
	return nil
}

// DeleteAll wipes every item and the whole transaction log.
func (s *Service) DeleteAll(ctx context.Context) error {
	err := s.store.WithinTx(ctx, func(tx Tx) error {
		return tx.DeleteAll(ctx)
	})
	if err != nil {
		s.log.Error("delete all failed", zap.Error(err))
		return err
	}
	s.publish(ctx, Event{Kind: EventInventoryWiped, At: s.now().In(s.loc)})
	return nil
}

// QueryLogs returns the transactions matching every set field of f,
// each once.
func (s *Service) QueryLogs(ctx context.Context, f model.LogFilter) ([]model.Transaction, error) {
	return s.store.QueryTransactions(ctx, f)
}

// ItemSeed is one row of a bulk import.
type ItemSeed struct {
	Name  string
	Stock int
}

// ImportResult counts what a bulk import did.
type ImportResult struct {
	Created []string `json:"created"`
	Skipped []string `json:"skipped"`
}

// ImportItems creates one item per seed with the given max checkout.
// Seeds whose name already exists are skipped; any other failure stops
// the import and returns what was created so far.
func (s *Service) ImportItems(ctx context.Context, seeds []ItemSeed, maxCheckout int) (ImportResult, error) {
	res := ImportResult{Created: []string{}, Skipped: []string{}}
	for _, seed := range seeds {
		_, err := s.CreateItem(ctx, seed.Name, seed.Stock, maxCheckout)
		switch {
		case err == nil:
			res.Created = append(res.Created, seed.Name)
		case errors.Is(err, ErrItemExists):
			res.Skipped = append(res.Skipped, seed.Name)
		default:
			return res, fmt.Errorf("import %q: %w", seed.Name, err)
		}
	}
	return res, nil
}

func (s *Service) publish(ctx context.Context, ev Event) {
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.log.Warn("inventory notification failed", zap.String("kind", string(ev.Kind)), zap.Error(err))
	}
}
