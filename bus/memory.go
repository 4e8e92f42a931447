package bus

import (
	"context"
	"sync"
	"time"
)

type memorySub struct {
	out    chan Event
	filter EventType
}

// MemoryBus fans events out inside one process.
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string]map[*memorySub]struct{}
	buffer int
	closed bool
}

func NewMemoryBus(buffer int) *MemoryBus {
	return &MemoryBus{
		subs:   make(map[string]map[*memorySub]struct{}),
		buffer: bufferSize(buffer),
	}
}

func (b *MemoryBus) Name() string { return "memory" }

func (b *MemoryBus) Publish(ctx context.Context, ev Event) error {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}

	for sub := range b.subs[ev.Table] {
		if ev.Type.Matches(sub.filter) {
			deliver(sub.out, ev)
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(ctx context.Context, table string, filter EventType) (*Subscription, error) {
	sub := &memorySub{out: make(chan Event, b.buffer), filter: filter}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil, ErrClosed
	}
	if b.subs[table] == nil {
		b.subs[table] = make(map[*memorySub]struct{})
	}
	b.subs[table][sub] = struct{}{}
	b.mu.Unlock()

	done := make(chan struct{})
	s := newSubscription(sub.out, func() {
		close(done)
		b.remove(table, sub)
	})

	go func() {
		select {
		case <-ctx.Done():
			s.Unsubscribe()
		case <-done:
		}
	}()

	return s, nil
}

func (b *MemoryBus) remove(table string, sub *memorySub) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[table][sub]; !ok {
		return
	}
	delete(b.subs[table], sub)
	if len(b.subs[table]) == 0 {
		delete(b.subs, table)
	}
	close(sub.out)
}

// Subscribers returns the number of live subscriptions on table.
func (b *MemoryBus) Subscribers(table string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[table])
}

func (b *MemoryBus) Ping(ctx context.Context) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return ErrClosed
	}
	return nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for table, subs := range b.subs {
		for sub := range subs {
			close(sub.out)
		}
		delete(b.subs, table)
	}
	return nil
}
