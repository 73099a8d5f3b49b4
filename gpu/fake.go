// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package gpu

import (
	"context"
	"fmt"
	"sync"
)

// fake.go is a deterministic, in-process Device used by every test in
// this repository in place of a real Vulkan/D3D12 backend, grounded on
// vu's own practice of testing the engine shell without a real
// graphics context (eid_test.go, scene_test.go and friends never open a
// window). It logs resource creation and WaitIdle, and each
// FakeCommandList records every call made to it, so tests can assert
// on barrier and draw-call ordering.

// FakeDevice is a Device that keeps all "GPU" state in plain Go memory.
type FakeDevice struct {
	mu  sync.Mutex
	log []string

	transfer *FakeQueue
	graphic  *FakeQueue
}

// NewFakeDevice returns a ready-to-use fake GPU backend.
func NewFakeDevice() *FakeDevice {
	return &FakeDevice{
		transfer: &FakeQueue{kind: "transfer"},
		graphic:  &FakeQueue{kind: "graphic"},
	}
}

// Log returns every recorded operation, in call order, for assertions.
func (d *FakeDevice) Log() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.log))
	copy(out, d.log)
	return out
}

func (d *FakeDevice) record(format string, args ...any) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.log = append(d.log, fmt.Sprintf(format, args...))
}

func (d *FakeDevice) CreateBuffer(t BufferType, size int, label string) (Buffer, error) {
	d.record("createBuffer %s size=%d", label, size)
	return &FakeBuffer{label: label, data: make([]byte, size)}, nil
}

func (d *FakeDevice) CreateImage(w, h int, format string, label string) (Image, error) {
	d.record("createImage %s %dx%d %s", label, w, h, format)
	return &FakeImage{width: w, height: h}, nil
}

func (d *FakeDevice) CreateDescriptorLayout(label string) (DescriptorLayout, error) {
	d.record("createDescriptorLayout %s", label)
	return &FakeDescriptorLayout{name: label}, nil
}

func (d *FakeDevice) CreateDescriptorSet(layout DescriptorLayout, label string) (DescriptorSet, error) {
	d.record("createDescriptorSet %s", label)
	return &FakeDescriptorSet{label: label, bindings: map[int]any{}}, nil
}

func (d *FakeDevice) CreateGraphicPipeline(vertex, fragment []byte, label string) (Pipeline, error) {
	d.record("createGraphicPipeline %s", label)
	return &FakePipeline{name: label}, nil
}

func (d *FakeDevice) CreateComputePipeline(compute []byte, label string) (Pipeline, error) {
	d.record("createComputePipeline %s", label)
	return &FakePipeline{name: label}, nil
}

func (d *FakeDevice) CreateCommandList(kind QueueKind) (CommandList, error) {
	return &FakeCommandList{dev: d, kind: kind}, nil
}

func (d *FakeDevice) CreateFence(label string) (Fence, error) {
	return &FakeFence{label: label}, nil
}

func (d *FakeDevice) CreateSemaphore(label string) (Semaphore, error) {
	return &FakeSemaphore{label: label}, nil
}

func (d *FakeDevice) TransferQueue() Queue { return d.transfer }
func (d *FakeDevice) GraphicQueue() Queue  { return d.graphic }

func (d *FakeDevice) WaitIdle() error {
	d.record("waitIdle")
	return nil
}

// FakeBuffer is an in-memory Buffer.
type FakeBuffer struct {
	label string
	mu    sync.Mutex
	data  []byte
}

func (b *FakeBuffer) Size() int { return len(b.data) }

func (b *FakeBuffer) WriteAt(offset int, data []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if offset+len(data) > len(b.data) {
		return fmt.Errorf("gpu: write out of bounds on %s: offset %d len %d cap %d", b.label, offset, len(data), len(b.data))
	}
	copy(b.data[offset:], data)
	return nil
}

// ReadAt is a debug-only accessor used by tests to verify a slab
// round-trip; it has no counterpart on the real Buffer interface.
func (b *FakeBuffer) ReadAt(offset, size int) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]byte, size)
	copy(out, b.data[offset:offset+size])
	return out
}

// FakeImage is an in-memory Image.
type FakeImage struct {
	width, height int
}

func (i *FakeImage) Width() int  { return i.width }
func (i *FakeImage) Height() int { return i.height }

// FakeDescriptorLayout names a descriptor set layout.
type FakeDescriptorLayout struct{ name string }

func (l *FakeDescriptorLayout) Name() string { return l.name }

// FakeDescriptorSet records bound resources per binding index.
type FakeDescriptorSet struct {
	label    string
	mu       sync.Mutex
	bindings map[int]any
}

func (s *FakeDescriptorSet) Update(binding int, resource any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[binding] = resource
}

// Binding returns what was last bound at a slot, for test assertions.
func (s *FakeDescriptorSet) Binding(binding int) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bindings[binding]
}

// FakePipeline is a named compiled pipeline.
type FakePipeline struct{ name string }

func (p *FakePipeline) Name() string { return p.name }

// FakeFence becomes signalled on its first Wait (FakeQueue.Submit and
// FakeSwapchain.Acquire both call it) and stays signalled: the fake
// backend has no async GPU work to wait on.
type FakeFence struct {
	label     string
	mu        sync.Mutex
	signalled bool
}

func (f *FakeFence) Wait(ctx context.Context) error {
	f.mu.Lock()
	f.signalled = true
	f.mu.Unlock()
	return nil
}

func (f *FakeFence) Signalled() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.signalled
}

// FakeSemaphore is an opaque marker; the fake backend does not need
// real GPU-side synchronization since submission is synchronous.
type FakeSemaphore struct{ label string }

// FakeQueue submits synchronously and signals its fence immediately.
type FakeQueue struct {
	kind string
	mu   sync.Mutex
	subs int
}

func (q *FakeQueue) Submit(cmd CommandList, wait, signal []Semaphore, fence Fence) error {
	q.mu.Lock()
	q.subs++
	q.mu.Unlock()
	if fence != nil {
		_ = fence.Wait(context.Background())
	}
	return nil
}

// Submissions returns how many times this queue has been submitted to.
func (q *FakeQueue) Submissions() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.subs
}

// FakeCommandList records every call made to it, in order, so tests can
// assert barrier/draw ordering invariants directly against the log.
type FakeCommandList struct {
	dev  *FakeDevice
	kind QueueKind

	mu    sync.Mutex
	Calls []string

	DrawCalls int
}

func (c *FakeCommandList) record(format string, args ...any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls = append(c.Calls, fmt.Sprintf(format, args...))
}

func (c *FakeCommandList) Begin() error { c.record("begin"); return nil }
func (c *FakeCommandList) End() error   { c.record("end"); return nil }

func (c *FakeCommandList) Copy(src, dst Buffer, srcOffset, dstOffset, size int) {
	c.record("copy size=%d", size)
	sb, sok := src.(*FakeBuffer)
	db, dok := dst.(*FakeBuffer)
	if sok && dok {
		_ = db.WriteAt(dstOffset, sb.ReadAt(srcOffset, size))
	}
}

func (c *FakeCommandList) Barrier(res any, from, to ResourceState) {
	c.record("barrier %d->%d", from, to)
}

func (c *FakeCommandList) BindPipeline(p Pipeline) {
	c.record("bindPipeline %s", p.Name())
}

func (c *FakeCommandList) BindDescriptorSets(sets []DescriptorSet) {
	c.record("bindDescriptorSets n=%d", len(sets))
}

func (c *FakeCommandList) BindVertexBuffer(b Buffer) { c.record("bindVertexBuffer") }
func (c *FakeCommandList) BindIndexBuffer(b Buffer)  { c.record("bindIndexBuffer") }

func (c *FakeCommandList) Dispatch(x, y, z int) {
	c.record("dispatch %d %d %d", x, y, z)
}

func (c *FakeCommandList) DrawIndexedIndirectCount(commands, countBuffer Buffer, countOffset int, maxCount uint32, stride int) {
	c.mu.Lock()
	c.DrawCalls++
	c.mu.Unlock()
	c.record("drawIndexedIndirectCount maxCount=%d stride=%d", maxCount, stride)
}

// FakeSwapchain is a swap chain with a caller-chosen frame count that
// always acquires successfully; Resize just records the new extent.
type FakeSwapchain struct {
	mu       sync.Mutex
	width    int
	height   int
	frame    int
	frames   int
	acquires int
	presents int
}

// NewFakeSwapchain returns a swap chain with the given frame count and
// initial extent.
func NewFakeSwapchain(frames, width, height int) *FakeSwapchain {
	return &FakeSwapchain{frames: frames, width: width, height: height}
}

func (s *FakeSwapchain) CurrentFrameIndex() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

func (s *FakeSwapchain) Acquire(fence Fence) error {
	s.mu.Lock()
	s.acquires++
	s.mu.Unlock()
	if fence != nil {
		_ = fence.Wait(context.Background())
	}
	return nil
}

func (s *FakeSwapchain) Present() error {
	s.mu.Lock()
	s.presents++
	s.mu.Unlock()
	return nil
}

func (s *FakeSwapchain) NextFrameIndex() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame = (s.frame + 1) % s.frames
}

func (s *FakeSwapchain) Extent() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

func (s *FakeSwapchain) Resize(w, h int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = w, h
	return nil
}

// Acquires and Presents report call counts for test assertions (S1).
func (s *FakeSwapchain) Acquires() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.acquires
}

func (s *FakeSwapchain) Presents() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.presents
}

// FakeShaderLoader resolves every name to a placeholder module holding
// the name's own bytes, never failing, so tests and scenedemo can exercise
// UpdatePipelines without real shader binaries.
type FakeShaderLoader struct{}

// NewFakeShaderLoader returns a ShaderLoader that loads any name.
func NewFakeShaderLoader() *FakeShaderLoader { return &FakeShaderLoader{} }

func (l *FakeShaderLoader) LoadShader(name string) ([]byte, error) {
	return []byte(name), nil
}
