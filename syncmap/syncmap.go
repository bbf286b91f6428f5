// Package syncmap provides a generic map guarded by a single mutex.
package syncmap

import (
	"iter"
	"sync"
)

// Map is a regular map but synchronized with a mutex.
// Every method is atomic with respect to every other method.
type Map[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]V
}

// New returns a new syncmap.
func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{
		m: make(map[K]V),
	}
}

// Load returns the value for a key.
func (m *Map[K, V]) Load(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.m[key]
	return v, ok
}

// Store sets the value for a key.
func (m *Map[K, V]) Store(key K, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[key] = value
}

// Swap sets the value for a key and returns the value it replaced, if any.
func (m *Map[K, V]) Swap(key K, value V) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.m[key]
	m.m[key] = value
	return old, ok
}

// LoadOrStore returns the existing value for a key if present. Otherwise it
// stores and returns value. The boolean result is true if the value was
// loaded.
func (m *Map[K, V]) LoadOrStore(key K, value V) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.m[key]; ok {
		return v, true
	}
	m.m[key] = value
	return value, false
}

// Delete deletes a key.
func (m *Map[K, V]) Delete(key K) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.m, key)
}

// LoadAndDelete removes a key and returns the value it held.
func (m *Map[K, V]) LoadAndDelete(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.m[key]
	delete(m.m, key)
	return v, ok
}

// DeleteIf removes the value for key if pred reports true for it.
// pred is called with the lock held, so it must not use m.
func (m *Map[K, V]) DeleteIf(key K, pred func(V) bool) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.m[key]
	if !ok || !pred(v) {
		var zero V
		return zero, false
	}
	delete(m.m, key)
	return v, true
}

// Len returns the number of elements in the map.
func (m *Map[K, V]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.m)
}

// All iterates over a snapshot of the elements in the map.
// The loop body may modify m.
func (m *Map[K, V]) All() iter.Seq2[K, V] {
	return func(f func(K, V) bool) {
		m.mu.Lock()
		type kv struct {
			k K
			v V
		}
		s := make([]kv, 0, len(m.m))
		for k, v := range m.m {
			s = append(s, kv{k, v})
		}
		m.mu.Unlock()
		for _, e := range s {
			if !f(e.k, e.v) {
				return
			}
		}
	}
}
