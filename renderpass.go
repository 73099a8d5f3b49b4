// Copyright © 2025-present Henri Michelon. MIT License.
// Go reimplementation for this repository.

package scenerender

// renderpass.go implements the Renderpass family: DepthPrepass,
// ForwardColor, ShaderMaterialPass, TransparencyPass, ShadowMapPass,
// PostProcessing. Grounded on vu's frame.go bucket-then-draw
// structure (Opaque/DepthPass/Transparent/Overlay buckets selected in
// drawPov, drawn in a fixed pass order) generalized into an explicit
// multi-pass pipeline, with ShaderMaterialPass and TransparencyPass
// sharing a pipelineUpdater helper (mirrors vu's own small
// embeddable helper-struct pattern, e.g. camera.go's viewTransform
// function type shared across vp/vo/vf).

import (
	"github.com/ashenvale/scenerender/gpu"
)

// RenderingConfig carries the clear-value/attachment-format knobs a
// Renderpass needs to build its pipelines, independent of any one
// scene.
type RenderingConfig struct {
	ColorFormat string
	DepthFormat string
	ClearColor  [4]float32
}

// Renderpass is the small fixed trait every concrete pass implements:
// compile pipelines for newly-seen pipeline ids, then render.
type Renderpass interface {
	UpdatePipelines(dev gpu.Device, shader gpu.ShaderLoader, pipelineIDs []uint32) error
	Render(cmd gpu.CommandList, scene *SceneRenderContext, globalSet, samplerSet gpu.DescriptorSet)
}

// pipelineUpdater is the shared unexported helper ShaderMaterialPass and
// TransparencyPass embed: both compile nearly-identical graphic
// pipelines and differ only in their RenderingConfig.
type pipelineUpdater struct {
	pipelines map[uint32]gpu.Pipeline
	config    RenderingConfig
}

func newPipelineUpdater(cfg RenderingConfig) pipelineUpdater {
	return pipelineUpdater{pipelines: make(map[uint32]gpu.Pipeline), config: cfg}
}

// updatePipelinesDefault compiles one graphic pipeline per pipelineID
// not already compiled, loading the vertexName/fragmentName modules
// from shader (ShaderMaterial pipelines resolve their own shader names
// elsewhere).
func (u *pipelineUpdater) updatePipelinesDefault(dev gpu.Device, shader gpu.ShaderLoader, pipelineIDs []uint32, vertexName, fragmentName string) error {
	for _, pid := range pipelineIDs {
		if _, ok := u.pipelines[pid]; ok {
			continue
		}
		vertex, err := shader.LoadShader(vertexName)
		if err != nil {
			return &BackendFailureError{Op: "load vertex shader " + vertexName, Err: err}
		}
		fragment, err := shader.LoadShader(fragmentName)
		if err != nil {
			return &BackendFailureError{Op: "load fragment shader " + fragmentName, Err: err}
		}
		p, err := dev.CreateGraphicPipeline(vertex, fragment, "pipeline")
		if err != nil {
			return &BackendFailureError{Op: "create graphic pipeline", Err: err}
		}
		u.pipelines[pid] = p
	}
	return nil
}

// DepthPrepass renders opaque geometry depth-only, ahead of ForwardColor.
type DepthPrepass struct {
	pipelineUpdater
}

// NewDepthPrepass builds a DepthPrepass with the given depth-attachment
// configuration.
func NewDepthPrepass(cfg RenderingConfig) *DepthPrepass {
	return &DepthPrepass{pipelineUpdater: newPipelineUpdater(cfg)}
}

func (p *DepthPrepass) UpdatePipelines(dev gpu.Device, shader gpu.ShaderLoader, pipelineIDs []uint32) error {
	return p.updatePipelinesDefault(dev, shader, pipelineIDs, "depth_prepass.vert", "depth_prepass.frag")
}

func (p *DepthPrepass) Render(cmd gpu.CommandList, scene *SceneRenderContext, globalSet, samplerSet gpu.DescriptorSet) {
	scene.DrawOpaqueModels(cmd, p.pipelines, globalSet, samplerSet)
}

// ForwardColor is the main opaque color pass, run after DepthPrepass
// with depth test but no depth write (the depth buffer is already
// populated).
type ForwardColor struct {
	pipelineUpdater
}

// NewForwardColor builds a ForwardColor pass.
func NewForwardColor(cfg RenderingConfig) *ForwardColor {
	return &ForwardColor{pipelineUpdater: newPipelineUpdater(cfg)}
}

func (p *ForwardColor) UpdatePipelines(dev gpu.Device, shader gpu.ShaderLoader, pipelineIDs []uint32) error {
	return p.updatePipelinesDefault(dev, shader, pipelineIDs, "forward_color.vert", "forward_color.frag")
}

func (p *ForwardColor) Render(cmd gpu.CommandList, scene *SceneRenderContext, globalSet, samplerSet gpu.DescriptorSet) {
	scene.DrawOpaqueModels(cmd, p.pipelines, globalSet, samplerSet)
}

// ShaderMaterialPass renders instances using a custom ShaderMaterial,
// resolving each pipeline id's own shader module names instead of the
// pass default.
type ShaderMaterialPass struct {
	pipelineUpdater
	materials *MaterialManager
}

// NewShaderMaterialPass builds a ShaderMaterialPass.
func NewShaderMaterialPass(cfg RenderingConfig, materials *MaterialManager) *ShaderMaterialPass {
	return &ShaderMaterialPass{pipelineUpdater: newPipelineUpdater(cfg), materials: materials}
}

func (p *ShaderMaterialPass) UpdatePipelines(dev gpu.Device, shader gpu.ShaderLoader, pipelineIDs []uint32) error {
	for _, pid := range pipelineIDs {
		if _, ok := p.pipelines[pid]; ok {
			continue
		}
		name := p.shaderNameFor(pid)
		vertex, err := shader.LoadShader(name + ".vert")
		if err != nil {
			return &BackendFailureError{Op: "load shader material vertex " + name, Err: err}
		}
		fragment, err := shader.LoadShader(name + ".frag")
		if err != nil {
			return &BackendFailureError{Op: "load shader material fragment " + name, Err: err}
		}
		compiled, err := dev.CreateGraphicPipeline(vertex, fragment, "pipeline:"+name)
		if err != nil {
			return &BackendFailureError{Op: "create shader material pipeline", Err: err}
		}
		p.pipelines[pid] = compiled
	}
	return nil
}

// shaderNameFor finds the first registered material with this
// pipeline id and returns its ShaderName, falling back to "default"
// if none is found (a pipeline id with no shader-kind material never
// reaches this pass in practice).
func (p *ShaderMaterialPass) shaderNameFor(pipelineID uint32) string {
	name := "default"
	found := false
	p.materials.pool.Each(func(id ID, m *Material) {
		if !found && m.PipelineID() == pipelineID && m.Kind == MaterialShader {
			name = m.ShaderName
			found = true
		}
	})
	return name
}

func (p *ShaderMaterialPass) Render(cmd gpu.CommandList, scene *SceneRenderContext, globalSet, samplerSet gpu.DescriptorSet) {
	scene.DrawShaderMaterialModels(cmd, p.pipelines, globalSet, samplerSet)
}

// TransparencyPass renders alpha/scissor-transparency instances last,
// after all opaque and shader-material geometry.
type TransparencyPass struct {
	pipelineUpdater
}

// NewTransparencyPass builds a TransparencyPass.
func NewTransparencyPass(cfg RenderingConfig) *TransparencyPass {
	return &TransparencyPass{pipelineUpdater: newPipelineUpdater(cfg)}
}

func (p *TransparencyPass) UpdatePipelines(dev gpu.Device, shader gpu.ShaderLoader, pipelineIDs []uint32) error {
	return p.updatePipelinesDefault(dev, shader, pipelineIDs, "transparency.vert", "transparency.frag")
}

func (p *TransparencyPass) Render(cmd gpu.CommandList, scene *SceneRenderContext, globalSet, samplerSet gpu.DescriptorSet) {
	scene.DrawTransparentModels(cmd, p.pipelines, globalSet, samplerSet)
}

// ShadowMapPass renders one shadow-casting light's depth-only view into
// its shadow-map slot. A minimal no-op-safe stub pending a proper
// cascaded-shadow-map rewrite, so Renderer.Render's orchestration loop
// over its shadowPasses argument type-checks and has somewhere to grow
// into.
type ShadowMapPass struct {
	pipelineUpdater
	light ID
}

// NewShadowMapPass builds a ShadowMapPass rendering light's shadow map.
func NewShadowMapPass(cfg RenderingConfig, light ID) *ShadowMapPass {
	return &ShadowMapPass{pipelineUpdater: newPipelineUpdater(cfg), light: light}
}

func (p *ShadowMapPass) UpdatePipelines(dev gpu.Device, shader gpu.ShaderLoader, pipelineIDs []uint32) error {
	return p.updatePipelinesDefault(dev, shader, pipelineIDs, "shadow_map.vert", "shadow_map.frag")
}

func (p *ShadowMapPass) Render(cmd gpu.CommandList, scene *SceneRenderContext, globalSet, samplerSet gpu.DescriptorSet) {
	scene.DrawOpaqueModels(cmd, p.pipelines, globalSet, samplerSet)
}

// PostProcessing applies full-screen post effects to the finished color
// attachment. Bloom/SSAO bodies are out of scope; this stays a
// pass-through stage so the orchestration order in Renderer.render has
// a fixed slot for it.
type PostProcessing struct {
	pipelineUpdater
}

// NewPostProcessing builds a PostProcessing pass.
func NewPostProcessing(cfg RenderingConfig) *PostProcessing {
	return &PostProcessing{pipelineUpdater: newPipelineUpdater(cfg)}
}

func (p *PostProcessing) UpdatePipelines(dev gpu.Device, shader gpu.ShaderLoader, pipelineIDs []uint32) error {
	return nil
}

func (p *PostProcessing) Render(cmd gpu.CommandList, scene *SceneRenderContext, globalSet, samplerSet gpu.DescriptorSet) {
}
