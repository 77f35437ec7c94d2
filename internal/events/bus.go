// Package events carries entry change notifications from the write path to
// in-process consumers such as the photo library sync.
package events

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tsuzuri-app/tsuzuri/internal/model"
)

var (
	publishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tsuzuri",
		Subsystem: "events",
		Name:      "published_total",
		Help:      "Change events handed to the bus.",
	})
	droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "tsuzuri",
		Subsystem: "events",
		Name:      "dropped_total",
		Help:      "Events dropped because a subscriber buffer was full.",
	})
)

// Bus is an in-process broadcast of change events. Every subscriber owns an
// independent buffered channel; a slow subscriber loses events rather than
// stalling the write path or its peers.
type Bus struct {
	mu     sync.Mutex
	subs   map[int]chan model.ChangeEvent
	nextID int
	buffer int
	closed bool
}

// NewBus creates a bus whose subscriber channels hold buffer events.
func NewBus(buffer int) *Bus {
	if buffer <= 0 {
		buffer = 64
	}
	return &Bus{subs: make(map[int]chan model.ChangeEvent), buffer: buffer}
}

// Subscribe registers a consumer. The returned cancel func unregisters it
// and closes the channel; it is safe to call more than once.
func (b *Bus) Subscribe() (<-chan model.ChangeEvent, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan model.ChangeEvent, b.buffer)
	if b.closed {
		close(ch)
		return ch, func() {}
	}
	id := b.nextID
	b.nextID++
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

// Publish delivers ev to every subscriber without blocking. Events for a
// full subscriber buffer are dropped and counted. Publishing on a closed
// bus is a no-op.
func (b *Bus) Publish(ev model.ChangeEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	publishedTotal.Inc()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			droppedTotal.Inc()
		}
	}
}

// Close closes every subscriber channel and rejects further publishes.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}
