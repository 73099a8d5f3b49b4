// Copyright © 2025-present Henri Michelon. MIT License.
// Go reimplementation for this repository.

package scenerender

import (
	"testing"

	"github.com/ashenvale/scenerender/gpu"
)

func newTestRenderTarget(t *testing.T) (*RenderTarget, *Renderer, *gpu.FakeDevice, *gpu.FakeSwapchain) {
	t.Helper()
	dev := gpu.NewFakeDevice()
	shader := gpu.NewFakeShaderLoader()
	materials, err := NewMaterialManager(dev, 8)
	if err != nil {
		t.Fatalf("NewMaterialManager: %v", err)
	}
	meshes, err := NewMeshManager(dev, materials, 8, 64, 192, 64)
	if err != nil {
		t.Fatalf("NewMeshManager: %v", err)
	}

	rcfg := RenderingConfig{ColorFormat: "RGBA16F", DepthFormat: "D32"}
	globalLayout, _ := dev.CreateDescriptorLayout("Global")
	samplerLayout, _ := dev.CreateDescriptorLayout("Samplers")
	globalSet, _ := dev.CreateDescriptorSet(globalLayout, "Global")
	samplerSet, _ := dev.CreateDescriptorSet(samplerLayout, "Samplers")
	renderer := NewRenderer(dev, shader, meshes, materials, rcfg, globalSet, samplerSet)

	swapChain := gpu.NewFakeSwapchain(2, 640, 480)
	events := NewEventBus()
	target, err := NewRenderTarget(dev, swapChain, renderer, events, 2)
	if err != nil {
		t.Fatalf("NewRenderTarget: %v", err)
	}

	cmd, err := dev.CreateCommandList(gpu.QueueGraphic)
	if err != nil {
		t.Fatalf("CreateCommandList: %v", err)
	}
	if err := cmd.Begin(); err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := renderer.Resize(cmd, 640, 480); err != nil {
		t.Fatalf("renderer.Resize: %v", err)
	}
	return target, renderer, dev, swapChain
}

// TestRenderTargetEmptyFrame verifies that rendering with no views
// still acquires and presents exactly once, with no panics from an
// empty view list.
func TestRenderTargetEmptyFrame(t *testing.T) {
	target, _, _, swapChain := newTestRenderTarget(t)

	if err := target.Render(nil); err != nil {
		t.Fatalf("Render(nil): %v", err)
	}
	if swapChain.Acquires() != 1 {
		t.Fatalf("Acquires() = %d, want 1", swapChain.Acquires())
	}
	if swapChain.Presents() != 1 {
		t.Fatalf("Presents() = %d, want 1", swapChain.Presents())
	}
}

// TestRenderTargetSingleOpaqueQuad verifies that a scene with one
// opaque instance renders without error across several frames.
func TestRenderTargetSingleOpaqueQuad(t *testing.T) {
	target, _, dev, _ := newTestRenderTarget(t)

	scfg := SceneRenderContextConfig{MaxShadowMaps: 4, MaxMeshInstancesPerScene: 64, MaxLights: 16}
	materials, err := NewMaterialManager(dev, 8)
	if err != nil {
		t.Fatalf("NewMaterialManager: %v", err)
	}
	meshes, err := NewMeshManager(dev, materials, 8, 64, 192, 64)
	if err != nil {
		t.Fatalf("NewMeshManager: %v", err)
	}
	meshInstanceData, err := NewDeviceMemoryArray(dev, meshInstanceDataByteSize, 64, "quad:meshInstances")
	if err != nil {
		t.Fatalf("NewDeviceMemoryArray: %v", err)
	}
	meshInstances := NewMeshInstanceManager(meshInstanceData, 64)
	lights := NewLightManager(16, 4)
	images, err := NewImageManager(dev, 8)
	if err != nil {
		t.Fatalf("NewImageManager: %v", err)
	}
	shader := gpu.NewFakeShaderLoader()
	scene, err := NewSceneRenderContext(dev, shader, scfg, 2, materials, meshes, meshInstances, lights, images)
	if err != nil {
		t.Fatalf("NewSceneRenderContext: %v", err)
	}

	mi := testMeshInstance(t, materials, meshes, dev)
	instanceID, err := meshInstances.Create(mi)
	if err != nil {
		t.Fatalf("meshInstances.Create: %v", err)
	}
	storedMI, err := meshInstances.Get(instanceID)
	if err != nil {
		t.Fatalf("meshInstances.Get: %v", err)
	}
	if err := scene.AddInstance(instanceID, storedMI); err != nil {
		t.Fatalf("scene.AddInstance: %v", err)
	}

	camera := NewCamera()
	camera.SetPerspective(60, 4.0/3.0, 0.1, 1000)

	for frame := 0; frame < 3; frame++ {
		if err := target.Render([]View{{Scene: scene, Camera: camera}}); err != nil {
			t.Fatalf("Render frame %d: %v", frame, err)
		}
	}
}

// TestRenderTargetResizeIdempotent verifies that resizing to the same
// extent twice succeeds both times and leaves the RenderTarget usable.
func TestRenderTargetResizeIdempotent(t *testing.T) {
	target, _, _, swapChain := newTestRenderTarget(t)

	if err := target.Resize(800, 600); err != nil {
		t.Fatalf("first Resize: %v", err)
	}
	if err := target.Resize(800, 600); err != nil {
		t.Fatalf("second Resize (idempotent): %v", err)
	}
	w, h := swapChain.Extent()
	if w != 800 || h != 600 {
		t.Fatalf("swap chain extent = (%d,%d), want (800,600)", w, h)
	}
	if err := target.Render(nil); err != nil {
		t.Fatalf("Render after resize: %v", err)
	}
}
