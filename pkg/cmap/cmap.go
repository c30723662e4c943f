package cmap

import (
	"hash/maphash"
	"sync"
)

// DefaultShardCount is the number of shards used by New.
const DefaultShardCount = 16

// Map is a concurrent-safe sharded map.
type Map[K comparable, V any] struct {
	shards    []*shard[K, V]
	shardMask uint64
	seed      maphash.Seed
}

type shard[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

// New creates a map with DefaultShardCount shards.
func New[K comparable, V any]() *Map[K, V] {
	m := &Map[K, V]{
		shards:    make([]*shard[K, V], DefaultShardCount),
		shardMask: DefaultShardCount - 1,
		seed:      maphash.MakeSeed(),
	}
	for i := range m.shards {
		m.shards[i] = &shard[K, V]{items: make(map[K]V)}
	}
	return m
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	return m.shards[maphash.Comparable(m.seed, key)&m.shardMask]
}

// Get retrieves a value by key.
func (m *Map[K, V]) Get(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[key]
	return v, ok
}

// Set stores a key-value pair.
func (m *Map[K, V]) Set(key K, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	s.items[key] = value
	s.mu.Unlock()
}

// Upsert passes the current value of key to fn under the shard lock and
// stores the value fn returns when store is true. It returns the value that
// was present before the call.
func (m *Map[K, V]) Upsert(key K, fn func(current V, loaded bool) (next V, store bool)) (previous V, loaded, stored bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	previous, loaded = s.items[key]
	next, stored := fn(previous, loaded)
	if stored {
		s.items[key] = next
	}
	return previous, loaded, stored
}

// Pop removes key and returns its value. Of several concurrent callers only
// one sees ok == true.
func (m *Map[K, V]) Pop(key K) (V, bool) {
	s := m.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.items[key]
	if ok {
		delete(s.items, key)
	}
	return v, ok
}

// Delete removes a key.
func (m *Map[K, V]) Delete(key K) {
	s := m.shardFor(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// Count returns the total number of items.
func (m *Map[K, V]) Count() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.items)
		s.mu.RUnlock()
	}
	return n
}

// PopFunc removes every pair for which match returns true and returns the
// removed values.
func (m *Map[K, V]) PopFunc(match func(key K, value V) bool) []V {
	var out []V
	for _, s := range m.shards {
		s.mu.Lock()
		for k, v := range s.items {
			if match(k, v) {
				delete(s.items, k)
				out = append(out, v)
			}
		}
		s.mu.Unlock()
	}
	return out
}
