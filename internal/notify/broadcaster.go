package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/roach88/collabflow/internal/workflow"
)

// ErrClosed is returned by Subscription.Next once the subscription is closed
// and drained.
var ErrClosed = errors.New("subscription closed")

// Broadcaster is a workflow.EventSink that copies each event to every
// current subscriber.
//
// Thread-safety: all methods are safe for concurrent use.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
}

// NewBroadcaster creates a broadcaster with no subscribers.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[*Subscription]struct{})}
}

// Subscription receives events emitted after Subscribe returned.
type Subscription struct {
	b     *Broadcaster
	queue *eventQueue
}

// Subscribe registers a new subscriber. Subscribing to a closed
// broadcaster returns an already-closed subscription.
func (b *Broadcaster) Subscribe() *Subscription {
	s := &Subscription{b: b, queue: newEventQueue()}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		s.queue.Close()
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

// Emit implements workflow.EventSink.
func (b *Broadcaster) Emit(_ context.Context, ev workflow.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for s := range b.subs {
		s.queue.Enqueue(ev)
	}
}

// Subscribers returns the number of open subscriptions.
func (b *Broadcaster) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscription. Later Emit calls are dropped.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		s.queue.Close()
		delete(b.subs, s)
	}
}

// Next blocks until an event is available, ctx is done or the subscription
// is closed and drained.
func (s *Subscription) Next(ctx context.Context) (workflow.Event, error) {
	for {
		if ev, ok := s.queue.TryDequeue(); ok {
			return ev, nil
		}
		if s.queue.isClosed() {
			return workflow.Event{}, ErrClosed
		}

		select {
		case <-ctx.Done():
			return workflow.Event{}, ctx.Err()
		case <-s.queue.Wait():
		}
	}
}

// Pending returns the number of queued, unread events.
func (s *Subscription) Pending() int {
	return s.queue.Len()
}

// Close unsubscribes. Events already queued can still be read.
func (s *Subscription) Close() {
	s.b.mu.Lock()
	delete(s.b.subs, s)
	s.b.mu.Unlock()
	s.queue.Close()
}
