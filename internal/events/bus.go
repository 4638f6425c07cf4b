package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// DefaultBacklog is the number of undelivered events kept per subscriber.
const DefaultBacklog = 100

// ErrClosed is returned by Next once the subscription is closed and drained.
var ErrClosed = errors.New("subscription closed")

// Stats is a point-in-time view of bus activity.
type Stats struct {
	Published   uint64 `json:"published"`
	Dropped     uint64 `json:"dropped"`
	Subscribers int    `json:"subscribers"`
}

// Bus fans change events out to every live subscription. Publish never
// blocks on a subscriber: a full backlog discards its oldest event.
type Bus struct {
	mu      sync.Mutex
	subs    map[*Subscription]struct{}
	backlog int
	closed  bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// NewBus creates a bus whose subscriptions buffer up to backlog events.
func NewBus(backlog int) *Bus {
	if backlog <= 0 {
		backlog = DefaultBacklog
	}
	return &Bus{subs: make(map[*Subscription]struct{}), backlog: backlog}
}

// Publish delivers event to every current subscriber. Publishes are
// serialized so all subscribers observe the same relative order.
func (b *Bus) Publish(event ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.published.Add(1)
	for sub := range b.subs {
		if sub.push(event) {
			b.dropped.Add(1)
		}
	}
}

// Subscribe registers a new subscription. Callers must Close it.
func (b *Bus) Subscribe() *Subscription {
	sub := &Subscription{
		bus:    b,
		buf:    make([]ChangeEvent, b.backlog),
		notify: make(chan struct{}, 1),
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		sub.closed = true
		return sub
	}
	b.subs[sub] = struct{}{}
	return sub
}

// SubscriberCount reports how many subscriptions are registered.
func (b *Bus) SubscriberCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Stats returns publish and drop counters.
func (b *Bus) Stats() Stats {
	return Stats{
		Published:   b.published.Load(),
		Dropped:     b.dropped.Load(),
		Subscribers: b.SubscriberCount(),
	}
}

// Close stops the bus. Pending events stay readable, after which every
// subscription reports ErrClosed.
func (b *Bus) Close() {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[*Subscription]struct{})
	b.closed = true
	b.mu.Unlock()

	for sub := range subs {
		sub.markClosed()
	}
}

func (b *Bus) remove(sub *Subscription) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
}

// Subscription is one subscriber's bounded ring of pending events.
type Subscription struct {
	bus    *Bus
	notify chan struct{}

	mu     sync.Mutex
	buf    []ChangeEvent
	head   int
	size   int
	missed uint64
	closed bool
}

// push appends event and reports whether the oldest pending event was dropped.
func (s *Subscription) push(event ChangeEvent) bool {
	s.mu.Lock()
	dropped := false
	if s.size == len(s.buf) {
		s.buf[s.head] = ChangeEvent{}
		s.head = (s.head + 1) % len(s.buf)
		s.size--
		s.missed++
		dropped = true
	}
	s.buf[(s.head+s.size)%len(s.buf)] = event
	s.size++
	s.mu.Unlock()

	s.signal()
	return dropped
}

// Next blocks until an event is available, the subscription is closed or ctx
// is done. missed is the number of events dropped since the previous call.
func (s *Subscription) Next(ctx context.Context) (event ChangeEvent, missed uint64, err error) {
	for {
		s.mu.Lock()
		if s.size > 0 {
			event = s.buf[s.head]
			s.buf[s.head] = ChangeEvent{}
			s.head = (s.head + 1) % len(s.buf)
			s.size--
			missed, s.missed = s.missed, 0
			s.mu.Unlock()
			return event, missed, nil
		}
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return ChangeEvent{}, 0, ErrClosed
		}

		select {
		case <-ctx.Done():
			return ChangeEvent{}, 0, ctx.Err()
		case <-s.notify:
		}
	}
}

// Pending reports how many events are buffered.
func (s *Subscription) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Close unregisters the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.bus.remove(s)
	s.markClosed()
}

func (s *Subscription) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.signal()
}

func (s *Subscription) signal() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}
