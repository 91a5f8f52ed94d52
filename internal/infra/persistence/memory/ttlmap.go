package memory

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value    V
	storedAt time.Time
}

// TTLMap is a mutex-guarded map that remembers when each key was written.
// Expiry is enforced by Sweep and by callers of GetFresh; Get never expires.
type TTLMap[V any] struct {
	mu      sync.RWMutex
	entries map[string]entry[V]
	now     func() time.Time
}

func NewTTLMap[V any]() *TTLMap[V] {
	return &TTLMap[V]{
		entries: make(map[string]entry[V]),
		now:     time.Now,
	}
}

func (m *TTLMap[V]) Put(key string, v V) {
	m.mu.Lock()
	m.entries[key] = entry[V]{value: v, storedAt: m.now()}
	m.mu.Unlock()
}

func (m *TTLMap[V]) Get(key string) (V, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	return e.value, ok
}

// GetFresh returns the value only if it was stored less than ttl ago.
func (m *TTLMap[V]) GetFresh(key string, ttl time.Duration) (V, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || m.now().Sub(e.storedAt) >= ttl {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (m *TTLMap[V]) Delete(key string) {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
}

func (m *TTLMap[V]) Values() []V {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]V, 0, len(m.entries))
	for _, e := range m.entries {
		out = append(out, e.value)
	}
	return out
}

// SweepFunc deletes every entry for which stale reports true and returns the
// number removed.
func (m *TTLMap[V]) SweepFunc(stale func(v V, storedAt time.Time) bool) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for k, e := range m.entries {
		if stale(e.value, e.storedAt) {
			delete(m.entries, k)
			n++
		}
	}
	return n
}

func (m *TTLMap[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
