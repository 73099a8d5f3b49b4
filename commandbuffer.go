// Copyright © 2022 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenerender

// commandbuffer.go implements CommandBuffer: an MPSC queue
// of deferred zero-argument commands, used for deferred destruction.
// Grounded directly on vu's vu.go machine.startup() loop, which
// drains a channel of queued messages under a swap-under-lock discipline
// (push appends to a slice behind a mutex; the drain loop takes the
// whole slice and executes outside the lock so pushers are never
// blocked on command execution).

import "sync"

// CommandBuffer is a thread-safe deferred-command queue. Push is safe
// from any goroutine; Process runs on the render thread.
type CommandBuffer struct {
	mu   sync.Mutex
	cmds []func()
}

// NewCommandBuffer returns an empty CommandBuffer.
func NewCommandBuffer() *CommandBuffer { return &CommandBuffer{} }

// Push enqueues cmd for execution on the next Process call.
func (b *CommandBuffer) Push(cmd func()) {
	b.mu.Lock()
	b.cmds = append(b.cmds, cmd)
	b.mu.Unlock()
}

// Process swaps out the queued commands under the lock and executes
// them outside it, so a command that itself calls Push does not
// deadlock.
func (b *CommandBuffer) Process() {
	b.mu.Lock()
	pending := b.cmds
	b.cmds = nil
	b.mu.Unlock()

	for _, cmd := range pending {
		cmd()
	}
}

// Len reports how many commands are currently queued, for tests.
func (b *CommandBuffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.cmds)
}
