// Package eventbus fans committed schedule transitions out to in-process
// subscribers.
package eventbus

import (
	"sync"
	"time"
)

// EditEvent is published after every committed schedule transition.
// Subscribers (UI refresh, sync publishers) receive the new revision id, not
// the snapshot itself.
type EditEvent struct {
	Op         string    `json:"op"`
	TripNumber int       `json:"trip_number,omitempty"`
	Revision   string    `json:"revision"`
	Trips      int       `json:"trips"`
	Time       time.Time `json:"time"`
}

// EditBus is a fan-out bus for EditEvents. Delivery is non-blocking: a
// subscriber that falls behind its channel buffer drops events rather than
// stalling the commit path.
type EditBus struct {
	mu     sync.RWMutex
	subs   []chan EditEvent
	closed bool
}

// NewEditBus creates an EditBus.
func NewEditBus() *EditBus { return &EditBus{} }

// Publish sends the event to every subscriber still keeping up.
func (b *EditBus) Publish(e EditEvent) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe registers a new subscriber and returns its channel. On a closed
// bus the channel comes back already closed.
func (b *EditBus) Subscribe() <-chan EditEvent {
	ch := make(chan EditEvent, 8)
	b.mu.Lock()
	if b.closed {
		close(ch)
	} else {
		b.subs = append(b.subs, ch)
	}
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *EditBus) Unsubscribe(sub <-chan EditEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, ch := range b.subs {
		if ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(ch)
			}
			return
		}
	}
}

// Close closes all subscriber channels and clears the list.
func (b *EditBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = nil
	b.mu.Unlock()
}
