package watcher

import (
	"context"
	"log/slog"

	"go.klb.dev/recall/internal/history"
	"go.klb.dev/recall/internal/notify"
)

// Inserter persists a record and returns its ID.
type Inserter interface {
	Insert(ctx context.Context, rec *history.Record) (int64, error)
}

// Publisher announces a stored record.
type Publisher interface {
	Publish(ev notify.Event) error
}

// Dispatcher is the single consumer of a Watcher's queue. Running one
// consumer keeps notifications in insertion order.
type Dispatcher struct {
	in    <-chan Candidate
	store Inserter
	pub   Publisher
}

func NewDispatcher(in <-chan Candidate, store Inserter, pub Publisher) *Dispatcher {
	return &Dispatcher{in: in, store: store, pub: pub}
}

// Run stores and announces candidates until ctx is done. Failed inserts
// are logged and the candidate is lost; nothing is retried.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case c := <-d.in:
			d.handle(ctx, c)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, c Candidate) {
	rec := c.Record
	id, err := d.store.Insert(ctx, &rec)
	if err != nil {
		slog.Error("failed to store clipboard item", "format", rec.Format, "err", err)
		return
	}
	logStored(id, &rec)

	if d.pub == nil {
		return
	}
	if err := d.pub.Publish(notify.Event{Name: history.UpdatedEvent}); err != nil {
		slog.Warn("failed to publish history update", "id", id, "err", err)
	}
}
