package web

import (
	"sync"
	"sync/atomic"

	"fallwatch/internal/state"
)

// EventBroadcaster fans detection events out to websocket listeners. Slow
// listeners miss events rather than stall the publisher.
type EventBroadcaster struct {
	mu     sync.RWMutex
	subs   map[int]chan state.EventRecord
	nextID int

	published atomic.Uint64
	dropped   atomic.Uint64
}

func NewEventBroadcaster() *EventBroadcaster {
	return &EventBroadcaster{subs: make(map[int]chan state.EventRecord)}
}

func (b *EventBroadcaster) Subscribe(buffer int) (int, <-chan state.EventRecord) {
	if b == nil {
		return 0, nil
	}
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan state.EventRecord, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	b.mu.Unlock()
	return id, ch
}

func (b *EventBroadcaster) Unsubscribe(id int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	if ch, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

// Publish matches monitor.Options.Publish.
func (b *EventBroadcaster) Publish(rec state.EventRecord) {
	if b == nil {
		return
	}
	b.published.Add(1)
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- rec:
		default:
			b.dropped.Add(1)
		}
	}
}

func (b *EventBroadcaster) Subscribers() int {
	if b == nil {
		return 0
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Stats returns the number of published events and of per-listener drops.
func (b *EventBroadcaster) Stats() (published, dropped uint64) {
	if b == nil {
		return 0, 0
	}
	return b.published.Load(), b.dropped.Load()
}
