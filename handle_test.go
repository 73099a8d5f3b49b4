// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenerender

import "testing"

// TestHandleNeverReused verifies that once an id is allocated it is
// never handed out again, even after many allocations.
func TestHandleNeverReused(t *testing.T) {
	a := newHandleAllocator()
	seen := make(map[ID]bool)
	for i := 0; i < 10000; i++ {
		id := a.Next()
		if id == InvalidID {
			t.Fatalf("Next() returned InvalidID at iteration %d", i)
		}
		if seen[id] {
			t.Fatalf("Next() returned a duplicate id %d at iteration %d", id, i)
		}
		seen[id] = true
	}
}

func TestHandleAllocatorMonotonic(t *testing.T) {
	a := newHandleAllocator()
	prev := a.Next()
	for i := 0; i < 100; i++ {
		next := a.Next()
		if next <= prev {
			t.Fatalf("Next() not monotonically increasing: %d then %d", prev, next)
		}
		prev = next
	}
}
