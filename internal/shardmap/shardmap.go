package shardmap

import (
	"sync"
	"sync/atomic"
)

const shardCount = 32

// Map is a concurrent map keyed by uint64 identifiers, partitioned into
// fixed shards with per-shard read/write locks so that readers and writers
// on unrelated keys proceed independently. Values are stored as supplied;
// callers that need immutability store immutable values.
type Map[V any] struct {
	shards [shardCount]shard[V]
	length int64
}

type shard[V any] struct {
	mu    sync.RWMutex
	items map[uint64]V
}

// New creates an empty Map.
func New[V any]() *Map[V] {
	m := &Map[V]{}
	for i := range m.shards {
		m.shards[i].items = make(map[uint64]V)
	}
	return m
}

// shardFor spreads sequential ids across shards (Fibonacci hashing), so
// monotonic counters do not pile onto one shard.
func (m *Map[V]) shardFor(key uint64) *shard[V] {
	h := key * 0x9E3779B97F4A7C15
	return &m.shards[h>>59%shardCount]
}

// Set stores value under key, overwriting any previous value.
func (m *Map[V]) Set(key uint64, value V) {
	s := m.shardFor(key)
	s.mu.Lock()
	_, existed := s.items[key]
	s.items[key] = value
	s.mu.Unlock()
	if !existed {
		atomic.AddInt64(&m.length, 1)
	}
}

// Get returns the value stored under key.
func (m *Map[V]) Get(key uint64) (V, bool) {
	s := m.shardFor(key)
	s.mu.RLock()
	v, ok := s.items[key]
	s.mu.RUnlock()
	return v, ok
}

// Has reports whether key is present.
func (m *Map[V]) Has(key uint64) bool {
	_, ok := m.Get(key)
	return ok
}

// Delete removes key.
func (m *Map[V]) Delete(key uint64) {
	s := m.shardFor(key)
	s.mu.Lock()
	_, existed := s.items[key]
	delete(s.items, key)
	s.mu.Unlock()
	if existed {
		atomic.AddInt64(&m.length, -1)
	}
}

// Len returns the number of stored entries. The count is consistent even
// while writers are concurrently inserting entries for other keys.
func (m *Map[V]) Len() int {
	return int(atomic.LoadInt64(&m.length))
}

// Range invokes fn for every entry until fn returns false. Each shard is
// copied under its read lock first so fn never runs with a lock held.
func (m *Map[V]) Range(fn func(key uint64, value V) bool) {
	for i := range m.shards {
		s := &m.shards[i]
		s.mu.RLock()
		snapshot := make(map[uint64]V, len(s.items))
		for k, v := range s.items {
			snapshot[k] = v
		}
		s.mu.RUnlock()
		for k, v := range snapshot {
			if !fn(k, v) {
				return
			}
		}
	}
}
