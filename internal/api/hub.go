// Package api implements the Query & Subscription API (C10): synchronous
// reads against a tenant's graph plus a bounded-buffer event fan-out for
// subscribers (§4.10).
package api

import (
	"sync"

	"github.com/google/uuid"

	"github.com/nftloop/tradeloop-engine/pkg/models"
)

// DefaultSubscriberBuffer is the per-subscriber event buffer size (§4.10,
// §5 "subscribers that fall behind are dropped, never buffered
// unboundedly").
const DefaultSubscriberBuffer = 1024

// Hub fans a tenant's events out to every active subscriber. It
// implements orchestrator.EventSink.
type Hub struct {
	mu   sync.Mutex
	subs map[string]*subscriber
}

type subscriber struct {
	ch     chan models.Event
	closed bool
}

// Subscription is a live handle on a Hub subscriber. ID is a random UUID
// rather than a sequence number so a client reconnecting mid-outage can
// never be handed a stale ID that now refers to someone else's stream.
type Subscription struct {
	ID     string
	Events <-chan models.Event
	hub    *Hub
}

// Close unsubscribes and releases the underlying channel.
func (s *Subscription) Close() { s.hub.unsubscribe(s.ID) }

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string]*subscriber)}
}

// Subscribe opens a new bounded-buffer subscription.
func (h *Hub) Subscribe() *Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	id := uuid.New().String()
	// One slot beyond the buffer is kept free for the subscriber_lagged
	// terminal event.
	sub := &subscriber{ch: make(chan models.Event, DefaultSubscriberBuffer+1)}
	h.subs[id] = sub
	return &Subscription{ID: id, Events: sub.ch, hub: h}
}

func (h *Hub) unsubscribe(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if sub, ok := h.subs[id]; ok {
		if !sub.closed {
			close(sub.ch)
			sub.closed = true
		}
		delete(h.subs, id)
	}
}

// Publish delivers e to every subscriber with room in its buffer. A
// subscriber whose buffer is full is dropped: it receives a
// subscriber_lagged terminal event in its reserved slot and its channel is
// closed (§4.10).
func (h *Hub) Publish(e models.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		if sub.closed {
			continue
		}
		// Only Publish sends, under h.mu, so the length cannot grow between
		// this check and the send.
		if len(sub.ch) < DefaultSubscriberBuffer {
			sub.ch <- e
		} else {
			sub.ch <- models.Event{Type: models.EventSubscriberLagged, Version: e.Version}
			close(sub.ch)
			sub.closed = true
			delete(h.subs, id)
		}
	}
}

// SubscriberCount reports the number of currently live subscribers, used
// by diagnostics and tests.
func (h *Hub) SubscriberCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close tears down every subscription.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, sub := range h.subs {
		if !sub.closed {
			close(sub.ch)
			sub.closed = true
		}
		delete(h.subs, id)
	}
}
