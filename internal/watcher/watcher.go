package watcher

import (
	"context"
	"log/slog"
	"sync"
)

// DefaultQueueSize bounds the number of captured but not yet stored
// candidates.
const DefaultQueueSize = 64

// Watcher deduplicates candidates and queues the new ones for dispatch.
// lastHash lives only as long as the Watcher.
type Watcher struct {
	strategy Strategy
	queue    chan Candidate

	mu       sync.Mutex
	lastHash uint64
	seen     bool
}

// New returns a Watcher that runs s. queueSize <= 0 selects
// DefaultQueueSize.
func New(s Strategy, queueSize int) *Watcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Watcher{
		strategy: s,
		queue:    make(chan Candidate, queueSize),
	}
}

// Queue is the channel a Dispatcher consumes.
func (w *Watcher) Queue() <-chan Candidate { return w.queue }

// Observe reports whether c was new. A candidate whose hash matches the
// previous one is discarded. New candidates are queued without blocking;
// when the queue is full the candidate is dropped.
func (w *Watcher) Observe(c Candidate) bool {
	w.mu.Lock()
	if w.seen && w.lastHash == c.Hash {
		w.mu.Unlock()
		return false
	}
	w.lastHash = c.Hash
	w.seen = true
	w.mu.Unlock()

	select {
	case w.queue <- c:
	default:
		slog.Warn("dispatch queue full, dropping capture", "format", c.Record.Format)
	}
	return true
}

// Run drives the strategy until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	slog.Info("clipboard watcher started", "strategy", w.strategy.Name())
	err := w.strategy.Run(ctx, func(c Candidate) { w.Observe(c) })
	slog.Info("clipboard watcher stopped")
	return err
}
