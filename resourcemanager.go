// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenerender

// resourcemanager.go implements a handle-stable, bounded-capacity
// pool. Grounded on vu's asset.go depot (map-backed cache with
// explicit create/get/remove) and eid.go's handle-manager shape,
// generalized into a Go generic container — vu predates generics
// being idiomatic in its own code, but other pack repos
// (mrigankad-gorenderengine) use generic containers freely.

import "sync"

// ResourceManager is a bounded pool of T values keyed by a never-reused
// ID. Safe for concurrent create/get/destroy from any thread.
type ResourceManager[T any] struct {
	mu sync.RWMutex

	kind     string
	capacity int
	handles  *handleAllocator
	entries  map[ID]*T
	order    []ID // insertion order, for deterministic iteration.
}

// NewResourceManager returns an empty manager bounded at capacity.
func NewResourceManager[T any](kind string, capacity int) *ResourceManager[T] {
	return &ResourceManager[T]{
		kind:     kind,
		capacity: capacity,
		handles:  newHandleAllocator(),
		entries:  make(map[ID]*T),
	}
}

// Create allocates a new handle for value and stores it, failing with
// OutOfCapacityError once the manager is full.
func (m *ResourceManager[T]) Create(value T) (ID, *T, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) >= m.capacity {
		return InvalidID, nil, outOfCapacity(m.kind, m.capacity)
	}
	id := m.handles.Next()
	v := value
	m.entries[id] = &v
	m.order = append(m.order, id)
	return id, &v, nil
}

// Get returns the live entry for id, failing with InvalidHandleError if
// it was never created or has been destroyed.
func (m *ResourceManager[T]) Get(id ID) (*T, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.entries[id]
	if !ok {
		return nil, &InvalidHandleError{Kind: m.kind, ID: id}
	}
	return v, nil
}

// Exists reports whether id currently names a live entry.
func (m *ResourceManager[T]) Exists(id ID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.entries[id]
	return ok
}

// Destroy removes id from the pool. The handle is never reissued:
// Get(id) fails deterministically afterward.
func (m *ResourceManager[T]) Destroy(id ID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return &InvalidHandleError{Kind: m.kind, ID: id}
	}
	delete(m.entries, id)
	for i, oid := range m.order {
		if oid == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len reports how many entries are currently live.
func (m *ResourceManager[T]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Each calls fn for every live entry in creation order. fn must not
// mutate the manager; callers needing that must hold the render thread
// and use TryLock-style patterns elsewhere.
func (m *ResourceManager[T]) Each(fn func(id ID, value *T)) {
	m.mu.RLock()
	order := append([]ID(nil), m.order...)
	m.mu.RUnlock()
	for _, id := range order {
		m.mu.RLock()
		v, ok := m.entries[id]
		m.mu.RUnlock()
		if ok {
			fn(id, v)
		}
	}
}
