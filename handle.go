// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenerender

// handle.go allocates the unique_id handles used by every resource manager
// in this package. Unlike the entity ids in vu engine (eid.go,
// ent.go, entity.go), which recycle freed slots through an editions +
// free-list scheme, these handles are never reused: the data model
// requires a resource's id to remain a unique, permanent fingerprint even
// after destruction, so that stale references held by in-flight frames
// fail deterministically (handle_test.go TestHandleNeverReused) instead
// of silently resolving to a newer, unrelated resource.

import "sync/atomic"

// ID is a stable, monotonically increasing 64-bit handle. Zero is
// reserved as InvalidID and is never returned by an allocator.
type ID uint64

// InvalidID is the reserved zero handle. No resource manager ever
// creates a resource with this id.
const InvalidID ID = 0

// handleAllocator hands out IDs that are never reused. Safe for
// concurrent use from any thread.
type handleAllocator struct {
	next atomic.Uint64
}

// newHandleAllocator returns an allocator whose first Next() is 1.
func newHandleAllocator() *handleAllocator {
	a := &handleAllocator{}
	a.next.Store(1)
	return a
}

// Next returns the next unique_id and advances the counter. It never
// returns InvalidID and never returns a value twice.
func (a *handleAllocator) Next() ID {
	return ID(a.next.Add(1) - 1)
}
