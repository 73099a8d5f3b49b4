// Copyright © 2025-present Henri Michelon. MIT License.
// Go reimplementation for this repository.

package scenerender

// context.go implements Context, the top-level constructor wiring every
// manager, queue, and the SceneRenderContext/SceneContext/Renderer
// stack together. Grounded on vu's app.go newApplication,
// which builds one component manager per concern
// (eids/scenes/povs/models/lights/sounds/bodies) off a single
// application struct and hands the assembled application back to the
// caller fully wired.

import (
	"github.com/ashenvale/scenerender/gpu"
)

// Context is the root object an embedding application builds once and
// drives every frame: it owns every resource manager, the async upload
// queue and the event bus. It keeps no Renderer of its own; NewRenderer
// builds a new one on each call.
type Context struct {
	dev    gpu.Device
	shader gpu.ShaderLoader
	config Config

	Meshes        *MeshManager
	MeshInstances *MeshInstanceManager
	Materials     *MaterialManager
	Images        *ImageManager
	Lights        *LightManager

	Async *AsyncQueue

	events *EventBus
}

// NewContext builds every manager at the capacities cfg names, wiring
// the Mesh manager to the Material manager (for per-surface material
// references) the way vu's newApplication wires its models
// manager fields in dependency order before returning.
func NewContext(dev gpu.Device, shader gpu.ShaderLoader, opts ...Option) (*Context, error) {
	cfg := configDefaults
	for _, opt := range opts {
		opt(&cfg)
	}

	materials, err := NewMaterialManager(dev, cfg.maxMaterials)
	if err != nil {
		return nil, err
	}
	images, err := NewImageManager(dev, cfg.maxImages)
	if err != nil {
		return nil, err
	}
	// Vertex/index/surface array sizing follows vu's mesh.go
	// convention of one shared buffer sized off a generous per-mesh
	// average rather than a hard per-mesh cap; 64 vertices/surfaces
	// and 192 indices per mesh matches a typical default scene budget.
	meshes, err := NewMeshManager(dev, materials, cfg.maxMeshes, cfg.maxMeshes*64, cfg.maxMeshes*192, cfg.maxMeshes*64)
	if err != nil {
		return nil, err
	}
	meshInstanceData, err := NewDeviceMemoryArray(dev, meshInstanceDataByteSize, cfg.maxMeshInstances, "meshInstances Data (pool)")
	if err != nil {
		return nil, err
	}
	meshInstances := NewMeshInstanceManager(meshInstanceData, cfg.maxMeshInstances)
	lights := NewLightManager(cfg.maxLights, cfg.maxShadowMaps)

	return &Context{
		dev:           dev,
		shader:        shader,
		config:        cfg,
		Meshes:        meshes,
		MeshInstances: meshInstances,
		Materials:     materials,
		Images:        images,
		Lights:        lights,
		Async:         NewAsyncQueue(dev),
		events:        NewEventBus(),
	}, nil
}

// Events returns the Context's event bus, shared by every RenderTarget
// built from it so a single subscriber observes window/render-target
// lifecycle events across all of them.
func (c *Context) Events() *EventBus { return c.events }

// NewScene builds one SceneRenderContext + SceneContext pair sharing
// this Context's managers. A Context can back multiple scenes, each
// with its own SceneRenderContext/SceneContext pair.
func (c *Context) NewScene() (*SceneRenderContext, *SceneContext, error) {
	scfg := SceneRenderContextConfig{
		MaxShadowMaps:            c.config.maxShadowMaps,
		MaxMeshInstancesPerScene: c.config.maxMeshInstances,
		MaxLights:                c.config.maxLights,
	}
	scene, err := NewSceneRenderContext(c.dev, c.shader, scfg, c.config.framesInFlight, c.Materials, c.Meshes, c.MeshInstances, c.Lights, c.Images)
	if err != nil {
		return nil, nil, err
	}
	sceneContext := NewSceneContext(scene, c.MeshInstances, c.config.framesInFlight, c.config.maxAsyncNodesUpdatedPerFrame)
	return scene, sceneContext, nil
}

// NewRenderer builds a Renderer sharing this Context's mesh/material
// managers, wired against globalSet/samplerSet descriptor sets the
// embedding application owns (Set 0 "Global" and Set 1 "Samplers" —
// outside this package's construction responsibility since their
// contents are window/platform-specific).
func (c *Context) NewRenderer(rcfg RenderingConfig, globalSet, samplerSet gpu.DescriptorSet) *Renderer {
	return NewRenderer(c.dev, c.shader, c.Meshes, c.Materials, rcfg, globalSet, samplerSet)
}

// NewRenderTarget builds a RenderTarget for swapChain, bounded at this
// Context's configured frames-in-flight and sharing its event bus.
func (c *Context) NewRenderTarget(swapChain gpu.Swapchain, renderer *Renderer) (*RenderTarget, error) {
	return NewRenderTarget(c.dev, swapChain, renderer, c.events, c.config.framesInFlight)
}
