// Copyright © 2025-present Henri Michelon. MIT License.
// Go reimplementation for this repository.

package scenerender

// memoryarray.go implements DeviceMemoryArray, a slab allocator over a
// staging+device buffer pair built on this repo's gpu.Buffer contract
// (see gpu/interfaces.go). The free-list first-fit policy is new.

import (
	"fmt"
	"sync"

	"github.com/ashenvale/scenerender/gpu"
)

// MemoryBlock describes a contiguous slab inside a DeviceMemoryArray.
type MemoryBlock struct {
	Index int // first element index
	Count int // number of elements
}

// freeRange is a contiguous run of free element slots.
type freeRange struct {
	start, count int
}

// DeviceMemoryArray is a fixed-capacity staging+device buffer pair with
// first-fit slab allocation. Stride is the byte size of one element.
type DeviceMemoryArray struct {
	mu sync.Mutex

	stride   int
	capacity int

	staging gpu.Buffer // CPU-visible mirror written by write().
	device  gpu.Buffer // GPU-resident buffer flushed to by flush().

	free  []freeRange // sorted, non-overlapping free slabs.
	dirty []MemoryBlock
}

// NewDeviceMemoryArray allocates a staging+device buffer pair of
// capacity elements, each stride bytes, from the given gpu.Device.
func NewDeviceMemoryArray(dev gpu.Device, stride, capacity int, label string) (*DeviceMemoryArray, error) {
	staging, err := dev.CreateBuffer(gpu.BufferUpload, stride*capacity, label+":staging")
	if err != nil {
		return nil, &BackendFailureError{Op: "create staging buffer " + label, Err: err}
	}
	device, err := dev.CreateBuffer(gpu.BufferDeviceStorage, stride*capacity, label+":device")
	if err != nil {
		return nil, &BackendFailureError{Op: "create device buffer " + label, Err: err}
	}
	return &DeviceMemoryArray{
		stride:   stride,
		capacity: capacity,
		staging:  staging,
		device:   device,
		free:     []freeRange{{start: 0, count: capacity}},
	}, nil
}

// Buffer returns the GPU-resident buffer backing this array, for
// binding into a descriptor set.
func (a *DeviceMemoryArray) Buffer() gpu.Buffer { return a.device }

// Capacity returns the total number of element slots.
func (a *DeviceMemoryArray) Capacity() int { return a.capacity }

// Alloc reserves a contiguous block of count elements, first-fit across
// the free list. Returns OutOfCapacityError if no run is large enough.
func (a *DeviceMemoryArray) Alloc(count int) (MemoryBlock, error) {
	if count <= 0 {
		return MemoryBlock{}, fmt.Errorf("scenerender: alloc count must be positive, got %d", count)
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	for i, r := range a.free {
		if r.count >= count {
			block := MemoryBlock{Index: r.start, Count: count}
			remaining := freeRange{start: r.start + count, count: r.count - count}
			if remaining.count == 0 {
				a.free = append(a.free[:i], a.free[i+1:]...)
			} else {
				a.free[i] = remaining
			}
			return block, nil
		}
	}
	return MemoryBlock{}, outOfCapacity("device memory array", a.capacity)
}

// Free returns the slab to the free list, coalescing adjacent runs. No
// GPU synchronization happens here; the slot may still be referenced by
// an in-flight frame's draw commands until the owning pipeline rebuilds.
func (a *DeviceMemoryArray) Free(block MemoryBlock) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.insertFree(freeRange{start: block.Index, count: block.Count})
}

func (a *DeviceMemoryArray) insertFree(r freeRange) {
	merged := make([]freeRange, 0, len(a.free)+1)
	inserted := false
	for _, f := range a.free {
		if !inserted && r.start <= f.start {
			merged = append(merged, r)
			inserted = true
		}
		merged = append(merged, f)
	}
	if !inserted {
		merged = append(merged, r)
	}
	a.free = coalesce(merged)
}

func coalesce(ranges []freeRange) []freeRange {
	if len(ranges) < 2 {
		return ranges
	}
	out := ranges[:1]
	for _, r := range ranges[1:] {
		last := &out[len(out)-1]
		if last.start+last.count == r.start {
			last.count += r.count
		} else {
			out = append(out, r)
		}
	}
	return out
}

// Write copies src (one element per Count) into the staging mirror at
// block.Index*stride and marks the range dirty for the next Flush.
func (a *DeviceMemoryArray) Write(block MemoryBlock, src []byte) error {
	if len(src) != block.Count*a.stride {
		return fmt.Errorf("scenerender: write size %d does not match block %d*%d", len(src), block.Count, a.stride)
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.staging.WriteAt(block.Index*a.stride, src); err != nil {
		return &BackendFailureError{Op: "staging write", Err: err}
	}
	a.dirty = append(a.dirty, block)
	return nil
}

// Flush copies all dirty ranges staging to device on cmd.
func (a *DeviceMemoryArray) Flush(cmd gpu.CommandList) {
	a.mu.Lock()
	dirty := a.dirty
	a.dirty = nil
	a.mu.Unlock()

	for _, block := range dirty {
		off := block.Index * a.stride
		size := block.Count * a.stride
		cmd.Copy(a.staging, a.device, off, off, size)
	}
}

// PostBarrier inserts a COPY_DST -> SHADER_READ/STORAGE barrier on the
// device buffer. Call once after Flush, not once per dirty range.
func (a *DeviceMemoryArray) PostBarrier(cmd gpu.CommandList) {
	cmd.Barrier(a.device, gpu.StateCopyDst, gpu.StateShaderStorage)
}
