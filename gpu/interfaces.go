// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package gpu describes the GPU backend abstraction the scene render
// pipeline is built on top of. The backend itself (a Vulkan/D3D12-style
// device exposing queues, swap chains, command lists, descriptor sets,
// and indirect draw commands) is an external collaborator specified
// only by its interface contract — no real Vulkan/D3D12/WebGPU bindings
// are vendored here. The split between a small public interface and
// the richer backend contract mirrors vu's render/render.go
// Renderer/graphicsContext split.
package gpu

import "context"

// BufferType selects the memory residency and access pattern of a
// Buffer.
type BufferType int

const (
	BufferUpload BufferType = iota
	BufferDeviceStorage
	BufferReadWriteStorage
)

// ResourceState names a barrier transition endpoint.
type ResourceState int

const (
	StateUndefined ResourceState = iota
	StateCopySrc
	StateCopyDst
	StateShaderStorage
	StateIndirectDraw
	StateRenderTargetColor
	StateRenderTargetDepth
	StatePresent
)

// Buffer is an opaque GPU buffer with a CPU-visible write path for
// staging buffers and a device-resident copy destination.
type Buffer interface {
	Size() int
	WriteAt(offset int, data []byte) error
}

// Image is an opaque GPU image; it exposes only its extent.
type Image interface {
	Width() int
	Height() int
}

// DrawCommand is the indirect-draw payload issued by
// drawIndexedIndirectCount: {indexCount, instanceCount, firstIndex,
// vertexOffset, firstInstance}.
type DrawCommand struct {
	IndexCount    uint32
	InstanceCount uint32
	FirstIndex    uint32
	VertexOffset  int32
	FirstInstance uint32
}

// DescriptorLayout names the binding slots of one descriptor set.
type DescriptorLayout interface {
	Name() string
}

// DescriptorSet is a bound instance of a DescriptorLayout.
type DescriptorSet interface {
	Update(binding int, resource any)
}

// Pipeline is a compiled graphic or compute pipeline.
type Pipeline interface {
	Name() string
}

// Fence is a CPU-observable GPU completion signal.
type Fence interface {
	Wait(ctx context.Context) error
	Signalled() bool
}

// Semaphore is a GPU-to-GPU synchronization primitive used between
// queue submissions within one frame.
type Semaphore interface{}

// CommandList records GPU commands: copies, barriers, draws, dispatches.
type CommandList interface {
	Begin() error
	End() error
	Copy(src, dst Buffer, srcOffset, dstOffset, size int)
	Barrier(res any, from, to ResourceState)
	BindPipeline(p Pipeline)
	BindDescriptorSets(sets []DescriptorSet)
	BindVertexBuffer(b Buffer)
	BindIndexBuffer(b Buffer)
	Dispatch(groupsX, groupsY, groupsZ int)
	DrawIndexedIndirectCount(commands, countBuffer Buffer, countOffset int, maxCount uint32, stride int)
}

// Queue submits command lists and reports submission completion via a
// Fence.
type Queue interface {
	Submit(cmd CommandList, wait []Semaphore, signal []Semaphore, fence Fence) error
}

// Swapchain provides the present-time image rotation for a RenderTarget.
type Swapchain interface {
	CurrentFrameIndex() int
	Acquire(fence Fence) error
	Present() error
	NextFrameIndex()
	Extent() (width, height int)
	Resize(width, height int) error
}

// Device creates and destroys every GPU resource kind the core consumes.
type Device interface {
	CreateBuffer(t BufferType, size int, label string) (Buffer, error)
	CreateImage(w, h int, format string, label string) (Image, error)
	CreateDescriptorLayout(label string) (DescriptorLayout, error)
	CreateDescriptorSet(layout DescriptorLayout, label string) (DescriptorSet, error)
	CreateGraphicPipeline(vertex, fragment []byte, label string) (Pipeline, error)
	CreateComputePipeline(compute []byte, label string) (Pipeline, error)
	CreateCommandList(queueKind QueueKind) (CommandList, error)
	CreateFence(label string) (Fence, error)
	CreateSemaphore(label string) (Semaphore, error)
	TransferQueue() Queue
	GraphicQueue() Queue
	WaitIdle() error
}

// QueueKind selects which hardware queue a command list is allocated
// against.
type QueueKind int

const (
	QueueTransfer QueueKind = iota
	QueueGraphic
)

// ShaderLoader resolves an engine-internal shader module name to bytes.
// No on-disk path bit-exactness is required.
type ShaderLoader interface {
	LoadShader(name string) ([]byte, error)
}

// ImageLoader resolves a path to decoded pixels.
type ImageLoader interface {
	LoadImage(path string) (pixels []byte, width, height int, err error)
}

// WindowEventKind enumerates the events the window-system collaborator
// emits into the renderer's event bus.
type WindowEventKind int

const (
	WindowReady WindowEventKind = iota
	WindowResized
	WindowClosing
	WindowInput
)

// TransformSource is the ECS-world collaborator: it emits OnAdd/OnSet
// events for Transform and MeshInstance components. The core's
// transform propagation responds to these, out of this package's scope.
type TransformSource interface {
	Subscribe(onChange func(meshInstance uint64, worldTransform [16]float32))
}
