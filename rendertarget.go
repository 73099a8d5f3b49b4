// Copyright © 2025-present Henri Michelon. MIT License.
// Go reimplementation for this repository.

package scenerender

// rendertarget.go implements RenderTarget: the per-window frame
// loop — acquire, prepare, render, present, resize. Grounded on the
// vu's eng.go Action() fixed-timestep loop (acquire-state -> update
// -> render -> present rhythm) and vu.go's machine.startup()/render for
// the acquire/fence/double-buffer mechanics; swap-chain/fence/semaphore
// vocabulary is grounded on vu's render/vulkan.go naming only
// — no real backend bindings are vendored here.

import (
	"github.com/ashenvale/scenerender/gpu"
)

// View pairs one SceneRenderContext with the camera it is drawn from
// for a single RenderTarget.render call.
type View struct {
	Scene  *SceneRenderContext
	Camera *Camera
}

// frameData is the per-in-flight-frame resource set: its own prepare/
// render command lists and completion fence, recycled only after that
// fence has signalled.
type frameData struct {
	prepareCmd    gpu.CommandList
	renderCmd     gpu.CommandList
	inFlightFence gpu.Fence
}

// RenderTarget drives the frame loop for one swap chain.
type RenderTarget struct {
	dev       gpu.Device
	swapChain gpu.Swapchain
	renderer  *Renderer
	events    *EventBus
	frames    []frameData
	paused    bool

	width, height int
}

// NewRenderTarget builds a RenderTarget bounded at framesInFlight
// in-flight frames.
func NewRenderTarget(dev gpu.Device, swapChain gpu.Swapchain, renderer *Renderer, events *EventBus, framesInFlight int) (*RenderTarget, error) {
	frames := make([]frameData, framesInFlight)
	for i := range frames {
		prepareCmd, err := dev.CreateCommandList(gpu.QueueGraphic)
		if err != nil {
			return nil, &BackendFailureError{Op: "create prepare command list", Err: err}
		}
		renderCmd, err := dev.CreateCommandList(gpu.QueueGraphic)
		if err != nil {
			return nil, &BackendFailureError{Op: "create render command list", Err: err}
		}
		fence, err := dev.CreateFence("inFlight")
		if err != nil {
			return nil, &BackendFailureError{Op: "create in-flight fence", Err: err}
		}
		frames[i] = frameData{prepareCmd: prepareCmd, renderCmd: renderCmd, inFlightFence: fence}
	}
	width, height := swapChain.Extent()
	return &RenderTarget{dev: dev, swapChain: swapChain, renderer: renderer, events: events, frames: frames, width: width, height: height}, nil
}

// Pause toggles whether Render is a no-op, pushing a
// RenderTargetPausedEvent/RenderTargetResumedEvent.
func (rt *RenderTarget) Pause(paused bool) {
	if rt.paused == paused {
		return
	}
	rt.paused = paused
	if paused {
		rt.events.Push(RenderTargetPausedEvent{})
	} else {
		rt.events.Push(RenderTargetResumedEvent{})
	}
}

// Render executes one frame across every view: updates pipelines if
// materials changed, acquires the next swap-chain image, records and
// submits the prepare and render command lists, then presents. It does
// not drain SceneContext delta queues; SceneContext.ProcessDeferredOperations
// does that.
//
// A TransientAcquireFailureError from swapChain.Acquire is swallowed —
// the frame is simply skipped, since transient acquire failures (an
// out-of-date swap chain mid-resize, for instance) are expected to
// clear up on their own by the next frame.
func (rt *RenderTarget) Render(views []View) error {
	if rt.paused {
		return nil
	}
	for _, v := range views {
		if v.Scene.MaterialsUpdated() {
			if err := rt.renderer.UpdatePipelines(v.Scene); err != nil {
				return err
			}
			v.Scene.ClearMaterialsUpdated()
		}
	}

	frameIndex := rt.swapChain.CurrentFrameIndex()
	frame := rt.frames[frameIndex]

	if err := rt.swapChain.Acquire(frame.inFlightFence); err != nil {
		return nil // transient acquire failure: skip this frame.
	}
	fenceSignalled := frame.inFlightFence.Signalled()

	if err := frame.prepareCmd.Begin(); err != nil {
		return &BackendFailureError{Op: "begin prepare command list", Err: err}
	}
	for _, v := range views {
		if err := v.Scene.Update(v.Camera, frame.prepareCmd, fenceSignalled); err != nil {
			return err
		}
		v.Scene.Compute(frame.prepareCmd)
	}
	if err := frame.prepareCmd.End(); err != nil {
		return &BackendFailureError{Op: "end prepare command list", Err: err}
	}
	if err := rt.dev.GraphicQueue().Submit(frame.prepareCmd, nil, nil, nil); err != nil {
		return &BackendFailureError{Op: "submit prepare command list", Err: err}
	}

	if err := frame.renderCmd.Begin(); err != nil {
		return &BackendFailureError{Op: "begin render command list", Err: err}
	}
	for _, v := range views {
		rt.renderer.Render(frame.renderCmd, v.Scene, nil, rt.width, rt.height)
	}
	// Blit the finished color attachment into the acquired swap-chain
	// image: COPY_SRC on the attachment, COPY_DST -> PRESENT on the
	// swap-chain image (the latter is owned by gpu.Swapchain, not
	// exposed as a gpu.Image here — Present() performs the transition
	// and presentation as one backend-side operation).
	frame.renderCmd.Barrier(rt.renderer.colorAttachment, gpu.StateRenderTargetColor, gpu.StateCopySrc)
	frame.renderCmd.Barrier(rt.renderer.colorAttachment, gpu.StateCopySrc, gpu.StateUndefined)
	if err := frame.renderCmd.End(); err != nil {
		return &BackendFailureError{Op: "end render command list", Err: err}
	}
	if err := rt.dev.GraphicQueue().Submit(frame.renderCmd, nil, nil, frame.inFlightFence); err != nil {
		return &BackendFailureError{Op: "submit render command list", Err: err}
	}

	if err := rt.swapChain.Present(); err != nil {
		return &BackendFailureError{Op: "present", Err: err}
	}
	rt.swapChain.NextFrameIndex()
	return nil
}

// Resize recreates the renderer's attachments for the new swap-chain
// extent and waits for the graphics queue to idle before returning, so
// no in-flight frame observes a half-recreated attachment set.
func (rt *RenderTarget) Resize(width, height int) error {
	if err := rt.swapChain.Resize(width, height); err != nil {
		return &BackendFailureError{Op: "resize swap chain", Err: err}
	}
	frame := rt.frames[0]
	if err := frame.prepareCmd.Begin(); err != nil {
		return &BackendFailureError{Op: "begin resize command list", Err: err}
	}
	if err := rt.renderer.Resize(frame.prepareCmd, width, height); err != nil {
		return err
	}
	if err := frame.prepareCmd.End(); err != nil {
		return &BackendFailureError{Op: "end resize command list", Err: err}
	}
	if err := rt.dev.GraphicQueue().Submit(frame.prepareCmd, nil, nil, nil); err != nil {
		return &BackendFailureError{Op: "submit resize command list", Err: err}
	}
	if err := rt.dev.WaitIdle(); err != nil {
		return &BackendFailureError{Op: "wait idle after resize", Err: err}
	}
	rt.width, rt.height = width, height
	rt.events.Push(RenderTargetResizedEvent{Width: width, Height: height})
	return nil
}
