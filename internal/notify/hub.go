// Package notify implements the change-notification broker.
// It is transport-agnostic: subscribers register, receive events via a
// channel, and the watcher publishes one event per stored record.
package notify

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-subscriber channel size used when none is given.
const DefaultBuffer = 16

// ErrClosed is returned by Publish after Close.
var ErrClosed = errors.New("notify: hub closed")

// Event is a signal delivered to subscribers. It carries no payload beyond
// its name; receivers re-query on receipt.
type Event struct {
	Name string `json:"event"`
}

// Subscription is one registered receiver.
type Subscription struct {
	id string
	ch chan Event
}

// ID returns the unique subscription identifier.
func (s *Subscription) ID() string { return s.id }

// Events returns the channel events are delivered on. It is closed by
// Unsubscribe or Close.
func (s *Subscription) Events() <-chan Event { return s.ch }

// Hub fans events out to all current subscribers.
type Hub struct {
	mu     sync.RWMutex
	subs   map[string]*Subscription
	closed bool
	seq    atomic.Uint64
}

// New returns an empty Hub.
func New() *Hub {
	return &Hub{subs: make(map[string]*Subscription)}
}

// Subscribe registers a receiver. name is only used to build the ID and in
// logs. buffer <= 0 selects DefaultBuffer.
func (h *Hub) Subscribe(name string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	s := &Subscription{
		id: fmt.Sprintf("%s#%d", name, h.seq.Add(1)),
		ch: make(chan Event, buffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(s.ch)
		return s
	}
	h.subs[s.id] = s
	total := len(h.subs)
	h.mu.Unlock()

	slog.Debug("subscriber registered", "subscriber", s.id, "total", total)
	return s
}

// Unsubscribe removes s and closes its channel. Calling it twice is safe.
func (h *Hub) Unsubscribe(s *Subscription) {
	h.mu.Lock()
	if _, ok := h.subs[s.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.subs, s.id)
	close(s.ch)
	total := len(h.subs)
	h.mu.Unlock()

	slog.Debug("subscriber unregistered", "subscriber", s.id, "total", total)
}

// Publish delivers ev to every subscriber. It never blocks: a subscriber
// whose buffer is full misses the event.
func (h *Hub) Publish(ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrClosed
	}
	for id, s := range h.subs {
		select {
		case s.ch <- ev:
		default:
			slog.Warn("subscriber channel full, dropping", "subscriber", id, "event", ev.Name)
		}
	}
	return nil
}

// Subscribers returns the number of registered subscribers.
func (h *Hub) Subscribers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close unregisters everyone and rejects further publishes.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for id, s := range h.subs {
		close(s.ch)
		delete(h.subs, id)
	}
}
