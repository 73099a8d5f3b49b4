// Copyright © 2025-present Henri Michelon. MIT License.
// Go reimplementation for this repository.

package scenerender

// renderer.go implements Renderer, orchestrating the fixed pass
// order depth-prepass -> color -> shader-material -> transparency,
// grounded on vu's frame.go bucket-then-draw structure and on
// vu.go's machine.render double-buffered frame consumption for how a
// renderFrame reaches the render thread.

import (
	"github.com/ashenvale/scenerender/gpu"
)

// Renderer owns the color/depth attachments and the fixed sequence of
// Renderpasses that draw into them every frame.
type Renderer struct {
	dev    gpu.Device
	shader gpu.ShaderLoader

	meshes *MeshManager

	depthPrepass   *DepthPrepass
	forwardColor   *ForwardColor
	shaderMaterial *ShaderMaterialPass
	transparency   *TransparencyPass
	postProcessing *PostProcessing

	colorAttachment gpu.Image
	depthAttachment gpu.Image

	globalSet  gpu.DescriptorSet
	samplerSet gpu.DescriptorSet
}

// NewRenderer builds a Renderer with the standard four-pass pipeline
// (shadow-map passes are owned per-light by the scene, not the
// Renderer).
func NewRenderer(dev gpu.Device, shader gpu.ShaderLoader, meshes *MeshManager, materials *MaterialManager, cfg RenderingConfig, globalSet, samplerSet gpu.DescriptorSet) *Renderer {
	return &Renderer{
		dev:            dev,
		shader:         shader,
		meshes:         meshes,
		depthPrepass:   NewDepthPrepass(cfg),
		forwardColor:   NewForwardColor(cfg),
		shaderMaterial: NewShaderMaterialPass(cfg, materials),
		transparency:   NewTransparencyPass(cfg),
		postProcessing: NewPostProcessing(cfg),
		globalSet:      globalSet,
		samplerSet:     samplerSet,
	}
}

// UpdatePipelines compiles any pipeline id not yet known to each pass,
// called once per frame when scene.MaterialsUpdated() is set.
func (r *Renderer) UpdatePipelines(scene *SceneRenderContext) error {
	pipelineIDs := scene.PipelineIDs()
	for _, pass := range []Renderpass{r.depthPrepass, r.forwardColor, r.shaderMaterial, r.transparency, r.postProcessing} {
		if err := pass.UpdatePipelines(r.dev, r.shader, pipelineIDs); err != nil {
			return err
		}
	}
	return nil
}

// Render issues the fixed per-frame pass sequence against scene:
// bind the global mesh vertex/index buffers, render any shadow-map
// passes, then depth-prepass, forward color, shader-material, and
// transparency in that order. It sets no viewport or scissors;
// gpu.CommandList has no call for them.
func (r *Renderer) Render(cmd gpu.CommandList, scene *SceneRenderContext, shadowPasses []*ShadowMapPass, width, height int) {
	cmd.BindVertexBuffer(r.meshes.VertexBuffer())
	cmd.BindIndexBuffer(r.meshes.IndexBuffer())

	for _, pass := range shadowPasses {
		pass.Render(cmd, scene, r.globalSet, r.samplerSet)
	}

	cmd.Barrier(r.colorAttachment, gpu.StateUndefined, gpu.StateRenderTargetColor)
	r.depthPrepass.Render(cmd, scene, r.globalSet, r.samplerSet)
	r.forwardColor.Render(cmd, scene, r.globalSet, r.samplerSet)
	r.shaderMaterial.Render(cmd, scene, r.globalSet, r.samplerSet)
	r.transparency.Render(cmd, scene, r.globalSet, r.samplerSet)
	r.postProcessing.Render(cmd, scene, r.globalSet, r.samplerSet)
	cmd.Barrier(r.colorAttachment, gpu.StateRenderTargetColor, gpu.StateUndefined)
}

// Resize recreates the color/depth attachments for the new extent,
// inserting the depth attachment's initial UNDEFINED ->
// RENDER_TARGET_DEPTH barrier.
func (r *Renderer) Resize(cmd gpu.CommandList, width, height int) error {
	color, err := r.dev.CreateImage(width, height, "RGBA16F", "color")
	if err != nil {
		return &BackendFailureError{Op: "recreate color attachment", Err: err}
	}
	depth, err := r.dev.CreateImage(width, height, "D32", "depth")
	if err != nil {
		return &BackendFailureError{Op: "recreate depth attachment", Err: err}
	}
	r.colorAttachment = color
	r.depthAttachment = depth
	cmd.Barrier(depth, gpu.StateUndefined, gpu.StateRenderTargetDepth)
	return nil
}
