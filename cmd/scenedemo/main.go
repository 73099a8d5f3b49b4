// Copyright © 2025-present Henri Michelon. MIT License.
// Go reimplementation for this repository.

// Command scenedemo wires a Context against the fake GPU backend and
// renders a handful of frames of a single opaque quad, the same
// flag-free, minimal-wiring spirit as vu's eg/ programs (see
// eg/tr.go's "Spinning Triangle" for the shape this mirrors: build one
// mesh, one material, one instance, then loop render).
package main

import (
	"log"
	"log/slog"

	scenerender "github.com/ashenvale/scenerender"
	"github.com/ashenvale/scenerender/gpu"
	"github.com/ashenvale/scenerender/math/lin"
)

func main() {
	logger := slog.Default()
	dev := gpu.NewFakeDevice()
	shader := gpu.NewFakeShaderLoader()

	ctx, err := scenerender.NewContext(dev, shader,
		scenerender.FramesInFlight(2),
		scenerender.Capacities(64, 256, 32, 32),
	)
	if err != nil {
		log.Fatalf("scenedemo: build context: %v", err)
	}

	mesh, material, err := buildQuad(dev, ctx)
	if err != nil {
		log.Fatalf("scenedemo: build quad: %v", err)
	}

	scene, sceneCtx, err := ctx.NewScene()
	if err != nil {
		log.Fatalf("scenedemo: build scene: %v", err)
	}

	instance := scenerender.NewMeshInstance(mesh, lin.T{Loc: &lin.V3{X: 0, Y: 0, Z: -5}, Rot: &lin.Q{X: 0, Y: 0, Z: 0, W: 1}})
	instance.SurfaceMaterials = []scenerender.ID{material}
	if _, err := sceneCtx.AddInstance(instance, false); err != nil {
		log.Fatalf("scenedemo: add instance: %v", err)
	}

	camera := scenerender.NewCamera()
	camera.SetPerspective(60, 16.0/9.0, 0.1, 1000)

	rcfg := scenerender.RenderingConfig{ColorFormat: "RGBA16F", DepthFormat: "D32"}
	globalLayout, _ := dev.CreateDescriptorLayout("Global")
	samplerLayout, _ := dev.CreateDescriptorLayout("Samplers")
	globalSet, _ := dev.CreateDescriptorSet(globalLayout, "Global")
	samplerSet, _ := dev.CreateDescriptorSet(samplerLayout, "Samplers")
	renderer := ctx.NewRenderer(rcfg, globalSet, samplerSet)

	swapChain := gpu.NewFakeSwapchain(2, 1280, 720)
	target, err := ctx.NewRenderTarget(swapChain, renderer)
	if err != nil {
		log.Fatalf("scenedemo: build render target: %v", err)
	}
	if err := renderer.Resize(mustCmd(dev), 1280, 720); err != nil {
		log.Fatalf("scenedemo: size renderer: %v", err)
	}

	for frame := 0; frame < 3; frame++ {
		if err := sceneCtx.ProcessDeferredOperations(swapChain.CurrentFrameIndex()); err != nil {
			log.Fatalf("scenedemo: process deferred operations: %v", err)
		}
		if err := target.Render([]scenerender.View{{Scene: scene, Camera: camera}}); err != nil {
			log.Fatalf("scenedemo: render frame %d: %v", frame, err)
		}
		logger.Info("rendered frame", slog.Int("frame", frame))
	}
}

// buildQuad registers one two-triangle quad mesh and one standard
// opaque material, uploading both through a throwaway command list the
// way vu's loader.go binds a mesh on the first frame it is
// seen.
func buildQuad(dev *gpu.FakeDevice, ctx *scenerender.Context) (scenerender.ID, scenerender.ID, error) {
	vertices := []scenerender.VertexData{
		{Position: lin.V3{X: -1, Y: -1, Z: 0}, Normal: lin.V3{Z: 1}, UV: [2]float32{0, 0}},
		{Position: lin.V3{X: 1, Y: -1, Z: 0}, Normal: lin.V3{Z: 1}, UV: [2]float32{1, 0}},
		{Position: lin.V3{X: 1, Y: 1, Z: 0}, Normal: lin.V3{Z: 1}, UV: [2]float32{1, 1}},
		{Position: lin.V3{X: -1, Y: 1, Z: 0}, Normal: lin.V3{Z: 1}, UV: [2]float32{0, 1}},
	}
	indices := []uint32{0, 1, 2, 2, 3, 0}
	surfaces := []scenerender.MeshSurface{{FirstIndex: 0, IndexCount: 6}}
	local := scenerender.AABB{Min: lin.V3{X: -1, Y: -1, Z: 0}, Max: lin.V3{X: 1, Y: 1, Z: 0}}

	meshID, err := ctx.Meshes.Create(vertices, indices, surfaces, local)
	if err != nil {
		return 0, 0, err
	}
	materialID, err := ctx.Materials.Create(scenerender.Material{Kind: scenerender.MaterialStandard})
	if err != nil {
		return 0, 0, err
	}

	cmd := mustCmd(dev)
	if err := ctx.Meshes.Upload(cmd, meshID); err != nil {
		return 0, 0, err
	}
	if err := ctx.Materials.Upload(cmd, materialID); err != nil {
		return 0, 0, err
	}
	return meshID, materialID, nil
}

// mustCmd begins and immediately owns a one-shot upload command list on
// dev's transfer queue; scenedemo never checks the fake backend's
// in-flight fence since FakeDevice executes synchronously.
func mustCmd(dev *gpu.FakeDevice) gpu.CommandList {
	cmd, err := dev.CreateCommandList(gpu.QueueTransfer)
	if err != nil {
		log.Fatalf("scenedemo: create command list: %v", err)
	}
	if err := cmd.Begin(); err != nil {
		log.Fatalf("scenedemo: begin command list: %v", err)
	}
	return cmd
}
