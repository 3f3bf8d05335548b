package notify

import (
	"context"
	"errors"

	"github.com/iliyamo/food-pantry/internal/inventory"
)

// Fanout delivers each event to every notifier in order and joins their
// errors.  One failing subscriber does not stop the others.
type Fanout []inventory.Notifier

// NewFanout drops nil notifiers.
func NewFanout(ns ...inventory.Notifier) Fanout {
	out := make(Fanout, 0, len(ns))
	for _, n := range ns {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

// Notify implements inventory.Notifier.
func (f Fanout) Notify(ctx context.Context, ev inventory.Event) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
