// Copyright © 2025-present Henri Michelon. MIT License.
// Go reimplementation for this repository.

package scenerender

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ashenvale/scenerender/gpu"
)

// TestDeviceMemoryArrayRoundTrip verifies that a write followed by a
// flush lands byte-identical data at the same element index in the
// device buffer.
func TestDeviceMemoryArrayRoundTrip(t *testing.T) {
	dev := gpu.NewFakeDevice()
	arr, err := NewDeviceMemoryArray(dev, 16, 8, "test")
	if err != nil {
		t.Fatalf("NewDeviceMemoryArray: %v", err)
	}

	block, err := arr.Alloc(2)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if block.Index != 0 || block.Count != 2 {
		t.Fatalf("Alloc = %+v, want {Index:0 Count:2}", block)
	}

	payload := bytes.Repeat([]byte{0xAB}, 2*16)
	if err := arr.Write(block, payload); err != nil {
		t.Fatalf("Write: %v", err)
	}

	cmd, err := dev.CreateCommandList(gpu.QueueTransfer)
	if err != nil {
		t.Fatalf("CreateCommandList: %v", err)
	}
	arr.Flush(cmd)
	arr.PostBarrier(cmd)

	device := arr.Buffer().(*gpu.FakeBuffer)
	got := device.ReadAt(0, len(payload))
	if !bytes.Equal(got, payload) {
		t.Fatalf("device buffer after flush = %x, want %x", got, payload)
	}
}

func TestDeviceMemoryArrayAllocFreeCoalesces(t *testing.T) {
	dev := gpu.NewFakeDevice()
	arr, err := NewDeviceMemoryArray(dev, 4, 4, "test")
	if err != nil {
		t.Fatalf("NewDeviceMemoryArray: %v", err)
	}

	a, err := arr.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc a: %v", err)
	}
	b, err := arr.Alloc(1)
	if err != nil {
		t.Fatalf("Alloc b: %v", err)
	}
	arr.Free(a)
	arr.Free(b)

	// Freeing both adjacent single-slot blocks should coalesce back
	// into one 2-slot free run, so a single 2-count Alloc succeeds.
	merged, err := arr.Alloc(2)
	if err != nil {
		t.Fatalf("Alloc after free-coalesce: %v", err)
	}
	if merged.Index != 0 || merged.Count != 2 {
		t.Fatalf("Alloc after coalesce = %+v, want {Index:0 Count:2}", merged)
	}
}

func TestDeviceMemoryArrayOutOfCapacity(t *testing.T) {
	dev := gpu.NewFakeDevice()
	arr, err := NewDeviceMemoryArray(dev, 4, 2, "test")
	if err != nil {
		t.Fatalf("NewDeviceMemoryArray: %v", err)
	}
	if _, err := arr.Alloc(2); err != nil {
		t.Fatalf("Alloc 2: %v", err)
	}
	_, err = arr.Alloc(1)
	if err == nil {
		t.Fatalf("Alloc beyond capacity succeeded")
	}
	var capErr *OutOfCapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("Alloc beyond capacity returned %T, want *OutOfCapacityError", err)
	}
}
