package realtime

import (
	"context"
	"sync"
)

// Bus is an in-process Notifier with subscribers, used in tests and
// single-node deployments. Slow subscribers drop events rather than block
// the write path.
type Bus struct {
	mu     sync.RWMutex
	subs   map[string][]chan Event
	closed bool
}

func NewBus() *Bus {
	return &Bus{subs: map[string][]chan Event{}}
}

func (b *Bus) Notify(_ context.Context, ev Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	for _, room := range ev.Rooms() {
		for _, ch := range b.subs[room] {
			select {
			case ch <- ev:
			default:
			}
		}
	}
	return nil
}

// Subscribe registers a buffered listener on a room ("lesson:<id>",
// "session:<id>" or "broadcast").
func (b *Bus) Subscribe(room string) <-chan Event {
	ch := make(chan Event, 16)
	b.mu.Lock()
	b.subs[room] = append(b.subs[room], ch)
	b.mu.Unlock()
	return ch
}

func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, chans := range b.subs {
		for _, ch := range chans {
			close(ch)
		}
	}
	b.subs = map[string][]chan Event{}
	return nil
}
