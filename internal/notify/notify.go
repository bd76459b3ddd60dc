// Package notify fans ledger change events out to in-process subscribers.
package notify

import (
	"log/slog"
	"sync"
	"time"

	"expenses/internal/log"
)

// Kind names what changed.
type Kind string

const (
	CategoryAdded      Kind = "category.added"
	CategoryDeleted    Kind = "category.deleted"
	TransactionAdded   Kind = "transaction.added"
	TransactionDeleted Kind = "transaction.deleted"
	// CollectionReloaded means the whole collection may have changed, e.g.
	// after a seed or a change made by another process.
	CollectionReloaded Kind = "collection.reloaded"
)

// Event describes a single committed change.
type Event struct {
	Kind          Kind   `json:"kind"`
	Category      string `json:"category,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
	// Origin identifies the process that made the change.
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"at"`
	// Remote is set for events relayed from another process.
	Remote bool `json:"remote,omitempty"`
}

// Subscription receives events on C until Close is called.
type Subscription struct {
	C <-chan Event

	ch   chan Event
	hub  *Hub
	once sync.Once
}

// Close detaches the subscription and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

// Hub broadcasts events. Publish never blocks: a subscriber whose buffer
// is full misses the event.
type Hub struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

func NewHub() *Hub {
	return &Hub{subs: make(map[*Subscription]struct{})}
}

// Subscribe registers a listener with the given channel buffer.
func (h *Hub) Subscribe(buffer int) *Subscription {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	s := &Subscription{C: ch, ch: ch, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(ch)
		s.once.Do(func() {})
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

// Publish delivers e to every subscriber that has room for it.
func (h *Hub) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		select {
		case s.ch <- e:
		default:
			slog.Warn("Subscriber buffer full, event dropped",
				log.FieldComponent, log.ComponentNotify,
				log.FieldEventKind, string(e.Kind))
		}
	}
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Close detaches and closes every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for s := range h.subs {
		s.once.Do(func() {})
		close(s.ch)
		delete(h.subs, s)
	}
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; !ok {
		return
	}
	delete(h.subs, s)
	close(s.ch)
}
