// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenerender

import (
	"errors"
	"testing"
)

func TestResourceManagerCreateGetDestroy(t *testing.T) {
	m := NewResourceManager[int]("widget", 4)

	id, v, err := m.Create(42)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if *v != 42 {
		t.Fatalf("Create returned value %d, want 42", *v)
	}
	if !m.Exists(id) {
		t.Fatalf("Exists(%d) = false after Create", id)
	}

	got, err := m.Get(id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if *got != 42 {
		t.Fatalf("Get returned %d, want 42", *got)
	}

	if err := m.Destroy(id); err != nil {
		t.Fatalf("Destroy: %v", err)
	}

	// The destroyed handle fails deterministically and is never
	// silently resolved to a different, later resource.
	if _, err := m.Get(id); err == nil {
		t.Fatalf("Get(%d) succeeded after Destroy", id)
	}
	var invalid *InvalidHandleError
	if _, err := m.Get(id); !errors.As(err, &invalid) {
		t.Fatalf("Get after Destroy did not return InvalidHandleError")
	}

	id2, _, err := m.Create(7)
	if err != nil {
		t.Fatalf("Create after destroy: %v", err)
	}
	if id2 == id {
		t.Fatalf("Create reused destroyed id %d", id)
	}
}

func TestResourceManagerOutOfCapacity(t *testing.T) {
	m := NewResourceManager[int]("widget", 2)
	if _, _, err := m.Create(1); err != nil {
		t.Fatalf("Create 1: %v", err)
	}
	if _, _, err := m.Create(2); err != nil {
		t.Fatalf("Create 2: %v", err)
	}
	_, _, err := m.Create(3)
	if err == nil {
		t.Fatalf("Create beyond capacity succeeded")
	}
	var capErr *OutOfCapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("Create beyond capacity returned %T, want *OutOfCapacityError", err)
	}
}

func TestResourceManagerEachCreationOrder(t *testing.T) {
	m := NewResourceManager[int]("widget", 8)
	var want []ID
	for i := 0; i < 5; i++ {
		id, _, err := m.Create(i)
		if err != nil {
			t.Fatalf("Create %d: %v", i, err)
		}
		want = append(want, id)
	}

	var got []ID
	m.Each(func(id ID, v *int) { got = append(got, id) })
	if len(got) != len(want) {
		t.Fatalf("Each visited %d entries, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Each order[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
