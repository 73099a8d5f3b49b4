// Copyright © 2022 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenerender

// asyncqueue.go implements AsyncQueue and AsyncPool. AsyncQueue's
// begin/end command idiom is grounded on vu's vu.go request/
// reply channel pattern (loader.go's bindMesh/loadShader round-trips
// through a reply channel to the binder machine). AsyncPool's
// opportunistic join is grounded on runsys-core's go.mod dependency on
// golang.org/x/sync — errgroup.Group gives the same "launch many,
// collect all, surface the first error" semantics a hand-rolled
// sync.WaitGroup scan would need to reimplement.

import (
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ashenvale/scenerender/gpu"
)

// AsyncQueue pairs a transfer queue and a graphics queue and hands out
// command lists + fences for one-shot submissions. Each submission is
// independent: callers never need to coordinate with each other.
type AsyncQueue struct {
	dev gpu.Device
}

// NewAsyncQueue wraps dev's transfer/graphic queues.
func NewAsyncQueue(dev gpu.Device) *AsyncQueue { return &AsyncQueue{dev: dev} }

// BeginCommand allocates a command list on the named queue kind and
// begins recording.
func (q *AsyncQueue) BeginCommand(kind gpu.QueueKind) (gpu.CommandList, gpu.Fence, error) {
	cmd, err := q.dev.CreateCommandList(kind)
	if err != nil {
		return nil, nil, &BackendFailureError{Op: "create async command list", Err: err}
	}
	fence, err := q.dev.CreateFence("async")
	if err != nil {
		return nil, nil, &BackendFailureError{Op: "create async fence", Err: err}
	}
	if err := cmd.Begin(); err != nil {
		return nil, nil, &BackendFailureError{Op: "begin async command list", Err: err}
	}
	return cmd, fence, nil
}

// EndCommand ends recording and submits on the owning queue.
func (q *AsyncQueue) EndCommand(kind gpu.QueueKind, cmd gpu.CommandList, fence gpu.Fence) error {
	if err := cmd.End(); err != nil {
		return &BackendFailureError{Op: "end async command list", Err: err}
	}
	queue := q.dev.TransferQueue()
	if kind == gpu.QueueGraphic {
		queue = q.dev.GraphicQueue()
	}
	if err := queue.Submit(cmd, nil, nil, fence); err != nil {
		return &BackendFailureError{Op: "submit async command list", Err: err}
	}
	return nil
}

// AsyncPool joins background upload tasks. Go launches a task without
// blocking; Join blocks until every task launched since the previous
// Join has returned. There is no non-blocking poll.
type AsyncPool struct {
	mu sync.Mutex
	g  *errgroup.Group
}

// NewAsyncPool returns an empty AsyncPool.
func NewAsyncPool() *AsyncPool {
	return &AsyncPool{g: &errgroup.Group{}}
}

// Go launches task as a background upload, joined the next time Join is
// called.
func (p *AsyncPool) Go(task func() error) {
	p.mu.Lock()
	g := p.g
	p.mu.Unlock()
	g.Go(task)
}

// Join waits for every task launched so far and returns the first
// error, if any (errgroup semantics). Safe to call repeatedly; starts a
// fresh group for subsequent Go calls.
func (p *AsyncPool) Join() error {
	p.mu.Lock()
	g := p.g
	p.g = &errgroup.Group{}
	p.mu.Unlock()
	return g.Wait()
}
