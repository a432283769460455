// Package pubsub is a small synchronous observer registry.
package pubsub

import (
	"slices"
	"sync"
)

type Broker[T any] struct {
	mtx    sync.RWMutex
	nextID uint64
	subs   map[uint64]func(T)
}

func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		subs: make(map[uint64]func(T)),
	}
}

// Subscribe registers fn and returns a function that removes it.
// Calling the returned function more than once is safe.
func (b *Broker[T]) Subscribe(fn func(T)) func() {
	b.mtx.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mtx.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mtx.Lock()
			delete(b.subs, id)
			b.mtx.Unlock()
		})
	}
}

// Publish calls every subscriber in subscription order on the caller's goroutine.
func (b *Broker[T]) Publish(v T) {
	b.mtx.RLock()
	ids := make([]uint64, 0, len(b.subs))
	fns := make(map[uint64]func(T), len(b.subs))
	for id, fn := range b.subs {
		ids = append(ids, id)
		fns[id] = fn
	}
	b.mtx.RUnlock()

	slices.Sort(ids)
	for _, id := range ids {
		fns[id](v)
	}
}

func (b *Broker[T]) Len() int {
	b.mtx.RLock()
	defer b.mtx.RUnlock()
	return len(b.subs)
}
