// Package eventbus provides a small fan-out publish/subscribe bus. The
// planning core publishes run and swap events on it; transports (MQTT, the
// HTTP layer) subscribe without the core knowing about them.
package eventbus

import "sync"

// Event is an arbitrary payload passed on the bus.
type Event interface{}

// subscriberBuffer bounds how far a slow subscriber may lag before it
// starts missing events.
const subscriberBuffer = 8

// EventBus is the pub/sub contract consumed by the planner.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus is the default EventBus. Subscribers are tracked by id so that
// Unsubscribe stays cheap regardless of subscriber count.
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[uint64]chan Event
	ids    map[<-chan Event]uint64
	closed bool
}

// New creates an empty Bus.
func New() *Bus {
	return &Bus{
		subs: map[uint64]chan Event{},
		ids:  map[<-chan Event]uint64{},
	}
}

// Publish delivers the event to every subscriber without blocking. A
// subscriber with a full buffer misses the event.
func (b *Bus) Publish(e Event) {
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

// Subscribe registers a new subscriber channel.
func (b *Bus) Subscribe() <-chan Event {
	ch := make(chan Event, subscriberBuffer)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(ch)
		return ch
	}
	b.nextID++
	b.subs[b.nextID] = ch
	b.ids[ch] = b.nextID
	return ch
}

// Unsubscribe removes the subscriber and closes its channel. Unknown
// channels are ignored.
func (b *Bus) Unsubscribe(sub <-chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	id, ok := b.ids[sub]
	if !ok {
		return
	}
	ch := b.subs[id]
	delete(b.subs, id)
	delete(b.ids, sub)
	if !b.closed {
		close(ch)
	}
}

// Close closes every subscriber channel and drops the registry.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, ch := range b.subs {
		close(ch)
	}
	b.subs = map[uint64]chan Event{}
	b.ids = map[<-chan Event]uint64{}
}
