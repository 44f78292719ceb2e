package progress

import (
	"log"
	"sync"
	"time"
)

// Sink handles events synchronously, in publish order.
type Sink interface {
	Handle(e Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(Event)

func (f SinkFunc) Handle(e Event) { f(e) }

// Bus broadcasts progress events to any number of independent subscribers.
// Sinks run inline on the publishing goroutine; channel subscribers get a
// buffered copy and lose events instead of stalling the publisher.
type Bus struct {
	mu     sync.Mutex
	nextID int
	sinks  map[int]Sink
	subs   map[int]*subscription
	now    func() time.Time
}

type subscription struct {
	ch      chan Event
	dropped int
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{
		sinks: make(map[int]Sink),
		subs:  make(map[int]*subscription),
		now:   time.Now,
	}
}

// Attach registers a synchronous sink and returns its detach func.
func (b *Bus) Attach(s Sink) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := b.nextID
	b.nextID++
	b.sinks[id] = s
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.sinks, id)
	}
}

// Subscribe returns a channel receiving every event published from now on.
// The cancel func closes the channel.
func (b *Bus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 64
	}
	sub := &subscription{ch: make(chan Event, buffer)}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	var once sync.Once
	return sub.ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.ch)
		})
	}
}

// Report implements Reporter so the bus can be handed straight to the core.
func (b *Bus) Report(e Event) {
	b.Publish(e)
}

// Publish stamps e if needed and delivers it.
func (b *Bus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = b.now()
	}

	// Delivery happens under the lock so every subscriber sees one order.
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, s := range b.sinks {
		s.Handle(e)
	}
	for id, sub := range b.subs {
		select {
		case sub.ch <- e:
		default:
			sub.dropped++
			if sub.dropped == 1 || sub.dropped%100 == 0 {
				log.Printf("[progress] subscriber %d is slow, dropped %d event(s)", id, sub.dropped)
			}
		}
	}
}
