package main

import "sync"

// Relay fans change events out to every live subscriber: open feed sessions,
// the activity log, and WebSocket clients. Delivery is best-effort and
// at-least-once; subscribers own idempotent merges.
type Relay struct {
	mu          sync.RWMutex
	subscribers map[chan ChangeEvent]bool
}

func NewRelay() *Relay {
	return &Relay{subscribers: make(map[chan ChangeEvent]bool)}
}

// Subscribe registers a new subscriber and returns its channel plus a cleanup
// function. The channel is buffered so a slow consumer never blocks Publish.
func (r *Relay) Subscribe() (<-chan ChangeEvent, func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := make(chan ChangeEvent, 16)
	r.subscribers[ch] = true

	cleanup := func() {
		r.unsubscribe(ch)
	}
	return ch, cleanup
}

func (r *Relay) unsubscribe(ch chan ChangeEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.subscribers[ch]; ok {
		delete(r.subscribers, ch)
		close(ch)
	}
}

// Publish delivers evt to every subscriber without blocking.
func (r *Relay) Publish(evt ChangeEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for ch := range r.subscribers {
		select {
		case ch <- evt:
			// Event sent successfully
		default:
			// Subscriber buffer is full, skip it
		}
	}
	liveEventsPublished.Inc()
}

// SubscriberCount reports how many subscribers are currently attached.
func (r *Relay) SubscriberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subscribers)
}
