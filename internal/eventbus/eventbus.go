// Package eventbus fans simulation events out to any number of observers.
// Publishing never blocks: a subscriber whose buffer is full misses the event.
package eventbus

import "sync"

// Topic names an event stream.
type Topic string

// Event is a single published payload.
type Event struct {
	Topic   Topic
	Payload any
}

// EventBus implements a topic based publish/subscribe bus.
type EventBus interface {
	Publish(topic Topic, payload any)
	// Subscribe returns a channel receiving events on the given topics, or on
	// every topic when none are given.
	Subscribe(topics ...Topic) <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 16

type subscriber struct {
	ch     chan Event
	topics map[Topic]struct{}
}

func (s *subscriber) wants(t Topic) bool {
	if len(s.topics) == 0 {
		return true
	}
	_, ok := s.topics[t]
	return ok
}

// Bus is the default EventBus implementation using fan-out channels.
type Bus struct {
	mu      sync.RWMutex
	subs    []*subscriber
	buffer  int
	dropped map[Topic]uint64
	closed  bool
}

// New creates a new Bus with DefaultBuffer sized subscriber channels.
func New() *Bus { return NewWithBuffer(DefaultBuffer) }

// NewWithBuffer creates a Bus whose subscriber channels hold size events.
func NewWithBuffer(size int) *Bus {
	if size <= 0 {
		size = DefaultBuffer
	}
	return &Bus{buffer: size, dropped: make(map[Topic]uint64)}
}

// Publish sends the event to all interested subscribers. Delivery is
// non-blocking.
func (b *Bus) Publish(topic Topic, payload any) {
	b.mu.RLock()
	if b.closed {
		b.mu.RUnlock()
		return
	}
	ev := Event{Topic: topic, Payload: payload}
	var missed uint64
	for _, s := range b.subs {
		if !s.wants(topic) {
			continue
		}
		select {
		case s.ch <- ev:
		default:
			missed++
		}
	}
	b.mu.RUnlock()
	if missed > 0 {
		b.mu.Lock()
		b.dropped[topic] += missed
		b.mu.Unlock()
	}
}

// Subscribe registers a new subscriber and returns its channel.
func (b *Bus) Subscribe(topics ...Topic) <-chan Event {
	s := &subscriber{ch: make(chan Event, b.buffer), topics: make(map[Topic]struct{}, len(topics))}
	for _, t := range topics {
		s.topics[t] = struct{}{}
	}
	b.mu.Lock()
	if b.closed {
		close(s.ch)
	} else {
		b.subs = append(b.subs, s)
	}
	b.mu.Unlock()
	return s.ch
}

// Unsubscribe removes the subscriber and closes its channel.
func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, s := range b.subs {
		if s.ch == sub {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			if !b.closed {
				close(s.ch)
			}
			return
		}
	}
}

// Subscribers returns the number of registered subscribers.
func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Dropped returns how many deliveries on topic were skipped because a
// subscriber buffer was full.
func (b *Bus) Dropped(topic Topic) uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.dropped[topic]
}

// Close closes all subscriber channels and clears the list.
func (b *Bus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	for _, s := range b.subs {
		close(s.ch)
	}
	b.subs = nil
	b.mu.Unlock()
}
