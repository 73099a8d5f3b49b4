// Copyright © 2025-present Henri Michelon. MIT License.
// Go reimplementation for this repository.

package scenerender

// scenerendercontext.go implements SceneRenderContext: the per-frame
// GPU-facing half of a scene — descriptor layout construction, an
// eight-step update() body, addInstance's pipeline-bucket
// classification, and shadow-casting enable/disable. The view =
// inverse(transform) computation mirrors vu's camera.go
// vp()/TranslateTM rotate-then-negate-translate shape (see camera.go).

import (
	"sort"

	"github.com/ashenvale/scenerender/gpu"
)

// Scene descriptor set bindings, Set 2 "Scene".
const (
	bindingScene                   = 0
	bindingModels                  = 1
	bindingLights                  = 2
	bindingShadowMaps              = 3
	bindingShadowMapTransparency   = 0 // Set 4 "SceneOpt1", its own layout.
)

// sceneDataStride matches SceneData: cameraPosition(vec4) + projection
// (mat4) + view(mat4) + viewInverse(mat4) + lightsCount(uint32) +
// ambientLight(vec4), rounded to 16-byte alignment per field group.
const sceneDataStride = 16 + 64 + 64 + 64 + 16 + 16

// meshInstanceDataByteSize matches MeshInstanceData: transform(mat4) +
// aabbMin/aabbMax(vec3 each, padded to vec4) + visible+castShadows
// packed into one uint32 each.
const meshInstanceDataByteSize = 64 + 16 + 16 + 4 + 4

// pipelineBucket is which of the three pipeline maps an instance's
// surface landed in, by classification order (shaderMaterial >
// transparent > opaque).
type pipelineBucket int

const (
	bucketOpaque pipelineBucket = iota
	bucketShaderMaterial
	bucketTransparent
)

// SceneRenderContextConfig mirrors SceneRenderContextConfiguration: the
// per-scene sizing knobs that are not already covered by Config.
type SceneRenderContextConfig struct {
	MaxShadowMaps          int
	MaxMeshInstancesPerScene int
	MaxLights              int
}

// SceneRenderContext owns one scene's GPU-facing state: the scene UBO,
// the mesh-instance-data array, the light list and shadow-map slot
// table, and one GraphicPipelineData per live pipeline id in each of
// the three buckets.
type SceneRenderContext struct {
	dev            gpu.Device
	shader         gpu.ShaderLoader
	config         SceneRenderContextConfig
	framesInFlight int

	materials     *MaterialManager
	meshes        *MeshManager
	meshInstances *MeshInstanceManager
	lights        *LightManager
	images        *ImageManager

	sceneUniformBuffer     gpu.Buffer
	meshInstancesDataArray *DeviceMemoryArray
	lightsBuffer           gpu.Buffer
	lightsBufferCount      int

	sceneDescriptorLayout gpu.DescriptorLayout
	pipelineDescriptorLayout gpu.DescriptorLayout
	opt1DescriptorLayout  gpu.DescriptorLayout
	descriptorSet         gpu.DescriptorSet
	descriptorSetOpt1     gpu.DescriptorSet

	opaquePipelinesData         map[uint32]*GraphicPipelineData
	shaderMaterialPipelinesData map[uint32]*GraphicPipelineData
	transparentPipelinesData   map[uint32]*GraphicPipelineData
	pipelineIDs                map[uint32][]ID

	meshInstancesDataMemoryBlocks map[ID]MemoryBlock
	removedMeshInstances          []ID
	removedLights                  []ID

	meshInstancesDataUpdated bool
	materialsUpdated         bool
	shadowMapsUpdated        bool

	shadowMaps                  []gpu.Image
	shadowTransparencyColorMaps []gpu.Image

	drawCommandsStagingBufferRecycleBin *stagingRecycleBin

	ambientLight lin3
}

// lin3 is a plain RGB triple, avoiding a math/lin import here for a
// value this small (mirrors vu's use of bare float triples for
// color in light.go).
type lin3 struct{ R, G, B float64 }

// NewSceneRenderContext builds a SceneRenderContext, creating its scene
// UBO, mesh-instance-data array, lights UBO, and shadow-map descriptor
// array (every slot initialized to blankImage).
func NewSceneRenderContext(
	dev gpu.Device,
	shader gpu.ShaderLoader,
	cfg SceneRenderContextConfig,
	framesInFlight int,
	materials *MaterialManager,
	meshes *MeshManager,
	meshInstances *MeshInstanceManager,
	lights *LightManager,
	images *ImageManager,
) (*SceneRenderContext, error) {
	sceneLayout, err := dev.CreateDescriptorLayout("Scene")
	if err != nil {
		return nil, &BackendFailureError{Op: "create scene descriptor layout", Err: err}
	}
	opt1Layout, err := dev.CreateDescriptorLayout("Scene opt1")
	if err != nil {
		return nil, &BackendFailureError{Op: "create scene opt1 descriptor layout", Err: err}
	}
	pipelineLayout, err := dev.CreateDescriptorLayout("Pipeline data")
	if err != nil {
		return nil, &BackendFailureError{Op: "create pipeline descriptor layout", Err: err}
	}

	sceneUniform, err := dev.CreateBuffer(gpu.BufferUpload, sceneDataStride, "Scene Data")
	if err != nil {
		return nil, &BackendFailureError{Op: "create scene uniform buffer", Err: err}
	}
	lightsBuffer, err := dev.CreateBuffer(gpu.BufferUpload, lightDataStride, "Scene Lights")
	if err != nil {
		return nil, &BackendFailureError{Op: "create lights buffer", Err: err}
	}
	meshInstancesDataArray, err := NewDeviceMemoryArray(dev, meshInstanceDataByteSize, cfg.MaxMeshInstancesPerScene, "meshInstances Data")
	if err != nil {
		return nil, err
	}

	shadowSlotCount := cfg.MaxShadowMaps * 6
	shadowMaps := make([]gpu.Image, shadowSlotCount)
	shadowTransparency := make([]gpu.Image, shadowSlotCount)
	blank := images.BlankImage()
	blankImg, err := images.Get(blank)
	if err != nil {
		return nil, err
	}
	for i := range shadowMaps {
		shadowMaps[i] = blankImg.backing
		shadowTransparency[i] = blankImg.backing
	}

	descriptorSet, err := dev.CreateDescriptorSet(sceneLayout, "Scene")
	if err != nil {
		return nil, &BackendFailureError{Op: "create scene descriptor set", Err: err}
	}
	descriptorSet.Update(bindingScene, sceneUniform)
	descriptorSet.Update(bindingModels, meshInstancesDataArray.Buffer())
	descriptorSet.Update(bindingLights, lightsBuffer)
	descriptorSet.Update(bindingShadowMaps, shadowMaps)

	descriptorSetOpt1, err := dev.CreateDescriptorSet(opt1Layout, "Scene Opt1")
	if err != nil {
		return nil, &BackendFailureError{Op: "create scene opt1 descriptor set", Err: err}
	}
	descriptorSetOpt1.Update(bindingShadowMapTransparency, shadowTransparency)

	return &SceneRenderContext{
		dev:                         dev,
		shader:                      shader,
		config:                      cfg,
		framesInFlight:              framesInFlight,
		materials:                   materials,
		meshes:                      meshes,
		meshInstances:               meshInstances,
		lights:                      lights,
		images:                      images,
		sceneUniformBuffer:          sceneUniform,
		meshInstancesDataArray:      meshInstancesDataArray,
		lightsBuffer:                lightsBuffer,
		sceneDescriptorLayout:       sceneLayout,
		pipelineDescriptorLayout:    pipelineLayout,
		opt1DescriptorLayout:        opt1Layout,
		descriptorSet:               descriptorSet,
		descriptorSetOpt1:           descriptorSetOpt1,
		opaquePipelinesData:         make(map[uint32]*GraphicPipelineData),
		shaderMaterialPipelinesData: make(map[uint32]*GraphicPipelineData),
		transparentPipelinesData:    make(map[uint32]*GraphicPipelineData),
		pipelineIDs:                 make(map[uint32][]ID),
		meshInstancesDataMemoryBlocks: make(map[ID]MemoryBlock),
		shadowMaps:                  shadowMaps,
		shadowTransparencyColorMaps: shadowTransparency,
		drawCommandsStagingBufferRecycleBin: &stagingRecycleBin{},
	}, nil
}

// SetAmbientLight is a direct, un-queued state setter applied at the
// top of the next update().
func (s *SceneRenderContext) SetAmbientLight(r, g, b float64) { s.ambientLight = lin3{r, g, b} }

// classifySurfaceBucket returns the strongest bucket among mi's
// surfaces: shaderMaterial > transparent > opaque.
func classifySurfaceBucket(mi *MeshInstance, mesh *Mesh, materials *MaterialManager) (pipelineBucket, error) {
	bucket := bucketOpaque
	for i := range mesh.Surfaces {
		material, err := materials.Get(mi.SurfaceMaterial(i, mesh))
		if err != nil {
			return bucket, err
		}
		if material.Kind == MaterialShader {
			return bucketShaderMaterial, nil
		}
		if material.Transparency != TransparencyDisabled {
			bucket = bucketTransparent
		}
	}
	return bucket, nil
}

// AddInstance registers mi with SceneRenderContext: it must already be
// uploaded (mesh resident in VRAM); allocates its MeshInstanceData slot,
// classifies it into one pipeline bucket per surface's material, and
// inserts it into the corresponding GraphicPipelineData (creating one
// per newly-seen pipeline id).
func (s *SceneRenderContext) AddInstance(id ID, mi *MeshInstance) error {
	if _, exists := s.meshInstancesDataMemoryBlocks[id]; exists {
		return nil
	}
	mesh, err := s.meshes.Get(mi.Mesh)
	if err != nil {
		return err
	}
	if len(mesh.Surfaces) == 0 {
		return &UploadPreconditionError{Reason: "mesh instance's mesh has no materials"}
	}
	if !mesh.Uploaded() {
		return &UploadPreconditionError{Reason: "mesh instance's mesh is not in VRAM"}
	}

	block, err := s.meshInstancesDataArray.Alloc(1)
	if err != nil {
		return err
	}
	s.meshInstancesDataMemoryBlocks[id] = block
	mi.RefreshWorldAABB(mesh)
	mi.MarkDirty(s.framesInFlight)

	seen := make(map[uint32]bool)
	var pipelineIDsInOrder []uint32
	for i, surface := range mesh.Surfaces {
		material, err := s.materials.Get(mi.SurfaceMaterial(i, mesh))
		if err != nil {
			return err
		}
		pid := material.PipelineID()
		if !seen[pid] {
			seen[pid] = true
			pipelineIDsInOrder = append(pipelineIDsInOrder, pid)
		}
		if _, ok := s.pipelineIDs[pid]; !ok {
			s.pipelineIDs[pid] = append(s.pipelineIDs[pid], surface.Material)
			s.materialsUpdated = true
		}
	}
	sort.Slice(pipelineIDsInOrder, func(i, j int) bool { return pipelineIDsInOrder[i] < pipelineIDsInOrder[j] })

	bucket, err := classifySurfaceBucket(mi, mesh, s.materials)
	if err != nil {
		return err
	}
	for _, pid := range pipelineIDsInOrder {
		bucketMap := s.bucketMap(bucket)
		gp, err := s.pipelineData(bucketMap, pid)
		if err != nil {
			return err
		}
		if err := gp.addInstance(id, uint32(block.Index), mi, mesh); err != nil {
			return err
		}
	}
	return nil
}

func (s *SceneRenderContext) bucketMap(b pipelineBucket) map[uint32]*GraphicPipelineData {
	switch b {
	case bucketShaderMaterial:
		return s.shaderMaterialPipelinesData
	case bucketTransparent:
		return s.transparentPipelinesData
	default:
		return s.opaquePipelinesData
	}
}

func (s *SceneRenderContext) pipelineData(m map[uint32]*GraphicPipelineData, pid uint32) (*GraphicPipelineData, error) {
	if gp, ok := m[pid]; ok {
		return gp, nil
	}
	gp, err := newGraphicPipelineData(s.dev, pid, s.config.MaxMeshInstancesPerScene, s.pipelineDescriptorLayout, s.shader, s.meshInstances, s.materials, s.meshes)
	if err != nil {
		return nil, err
	}
	m[pid] = gp
	return gp, nil
}

// RemoveInstance removes id from every pipeline bucket it was inserted
// into and defers freeing its MeshInstanceData slot to the next update.
func (s *SceneRenderContext) RemoveInstance(id ID) {
	if _, ok := s.meshInstancesDataMemoryBlocks[id]; !ok {
		return
	}
	for _, m := range []map[uint32]*GraphicPipelineData{s.opaquePipelinesData, s.shaderMaterialPipelinesData, s.transparentPipelinesData} {
		for _, gp := range m {
			gp.removeInstance(id)
		}
	}
	s.removedMeshInstances = append(s.removedMeshInstances, id)
}

// RemoveLight schedules id for removal from the light list on the next
// update.
func (s *SceneRenderContext) RemoveLight(id ID) { s.removedLights = append(s.removedLights, id) }

// EnableLightShadowCasting allocates light id the first free shadow-map
// slot through LightManager.EnableShadowCasting; each slot covers six
// consecutive shadow-map descriptor entries.
func (s *SceneRenderContext) EnableLightShadowCasting(id ID) error {
	if err := s.lights.EnableShadowCasting(id); err != nil {
		return err
	}
	s.materialsUpdated = true
	s.shadowMapsUpdated = true
	return nil
}

// DisableLightShadowCasting releases light id's shadow-map slot back to
// blankImage.
func (s *SceneRenderContext) DisableLightShadowCasting(id ID) error {
	light, err := s.lights.Get(id)
	if err != nil {
		return err
	}
	if !light.CastsShadows() {
		return nil
	}
	if err := s.lights.DisableShadowCasting(id); err != nil {
		return err
	}
	blankImg, err := s.images.Get(s.images.BlankImage())
	if err != nil {
		return err
	}
	idx := light.ShadowMapIndex()
	s.shadowMaps[idx] = blankImg.backing
	s.shadowTransparencyColorMaps[idx] = blankImg.backing
	s.shadowMapsUpdated = true
	return nil
}

// Update runs the eight-step per-frame update: clear the recycle bin,
// drain removed
// lights/instances, refresh the shadow-map binding if dirty, write the
// scene UBO, rewrite dirty mesh-instance data, flush it, update every
// pipeline bucket, and rebuild the lights UBO.
func (s *SceneRenderContext) Update(camera *Camera, cmd gpu.CommandList, fenceSignalled bool) error {
	if fenceSignalled && !s.drawCommandsStagingBufferRecycleBin.empty() {
		s.drawCommandsStagingBufferRecycleBin.clear()
	}

	for _, id := range s.removedLights {
		if err := s.DisableLightShadowCasting(id); err != nil {
			return err
		}
		if err := s.lights.Destroy(id); err != nil {
			return err
		}
	}
	s.removedLights = nil

	if len(s.removedMeshInstances) > 0 {
		for _, id := range s.removedMeshInstances {
			if block, ok := s.meshInstancesDataMemoryBlocks[id]; ok {
				s.meshInstancesDataArray.Free(block)
				delete(s.meshInstancesDataMemoryBlocks, id)
			}
		}
		s.meshInstancesDataUpdated = true
		s.removedMeshInstances = nil
	}

	if s.shadowMapsUpdated {
		s.descriptorSet.Update(bindingShadowMaps, s.shadowMaps)
		s.descriptorSetOpt1.Update(bindingShadowMapTransparency, s.shadowTransparencyColorMaps)
		s.shadowMapsUpdated = false
	}

	sceneData := make([]byte, sceneDataStride)
	encodeSceneData(sceneData, camera, s.lightCount())
	if err := s.sceneUniformBuffer.WriteAt(0, sceneData); err != nil {
		return &BackendFailureError{Op: "write scene uniform buffer", Err: err}
	}

	s.meshInstances.Each(func(id ID, mi *MeshInstance) {
		block, ok := s.meshInstancesDataMemoryBlocks[id]
		if !ok || mi.pendingUpdates == 0 {
			return
		}
		mesh, err := s.meshes.Get(mi.Mesh)
		if err != nil {
			return
		}
		mi.RefreshWorldAABB(mesh)
		data := make([]byte, meshInstanceDataByteSize)
		encodeMeshInstanceData(data, mi, mesh)
		_ = s.meshInstancesDataArray.Write(block, data)
		s.meshInstancesDataUpdated = true
		mi.pendingUpdates--
	})

	if s.meshInstancesDataUpdated {
		s.meshInstancesDataArray.Flush(cmd)
		s.meshInstancesDataArray.PostBarrier(cmd)
		s.meshInstancesDataUpdated = false
	}

	for _, m := range []map[uint32]*GraphicPipelineData{s.opaquePipelinesData, s.shaderMaterialPipelinesData, s.transparentPipelinesData} {
		for _, gp := range m {
			if err := gp.updateData(cmd, s.drawCommandsStagingBufferRecycleBin); err != nil {
				return err
			}
		}
	}

	return s.updateLights()
}

func (s *SceneRenderContext) lightCount() int {
	count := 0
	s.lights.Each(func(ID, *Light) { count++ })
	return count
}

// updateLights rebuilds the lights UBO, growing capacity if needed and
// failing with OutOfCapacity once maxLights is exceeded.
func (s *SceneRenderContext) updateLights() error {
	count := s.lightCount()
	if count == 0 {
		return nil
	}
	if count > s.lightsBufferCount {
		if count > s.config.MaxLights {
			return outOfCapacity("light", s.config.MaxLights)
		}
		s.lightsBufferCount = count
		buf, err := s.dev.CreateBuffer(gpu.BufferUpload, lightDataStride*s.lightsBufferCount, "Scene Lights")
		if err != nil {
			return &BackendFailureError{Op: "grow lights buffer", Err: err}
		}
		s.lightsBuffer = buf
		s.descriptorSet.Update(bindingLights, s.lightsBuffer)
	}

	data := make([]byte, lightDataStride*s.lightsBufferCount)
	index := 0
	s.lights.Each(func(id ID, l *Light) {
		encodeLightData(data[index*lightDataStride:], l)
		index++
	})
	if err := s.lightsBuffer.WriteAt(0, data[:index*lightDataStride]); err != nil {
		return &BackendFailureError{Op: "write lights buffer", Err: err}
	}
	return nil
}

// Compute dispatches the frustum-culling compute kernel for every
// pipeline bucket, in opaque -> shaderMaterial -> transparent order.
func (s *SceneRenderContext) Compute(cmd gpu.CommandList) {
	for _, m := range []map[uint32]*GraphicPipelineData{s.opaquePipelinesData, s.shaderMaterialPipelinesData, s.transparentPipelinesData} {
		for _, gp := range m {
			gp.frustumCullingPipeline.Dispatch(cmd, gp.drawCommandsCount, gp.instancesArray.Buffer(), gp.drawCommandsBuffer, gp.culledDrawCommandsBuffer, gp.culledDrawCommandsCountBuffer)
		}
	}
}

// drawBucket issues the five-set descriptor-bound indirect draw for
// every pipeline in m whose drawCommandsCount is nonzero, binding
// {global, samplers, scene, pipelineData, sceneOpt1}.
func (s *SceneRenderContext) drawBucket(cmd gpu.CommandList, m map[uint32]*GraphicPipelineData, pipelines map[uint32]gpu.Pipeline, globalSet, samplerSet gpu.DescriptorSet) {
	for pid, gp := range m {
		if gp.drawCommandsCount == 0 {
			continue
		}
		pipeline, ok := pipelines[pid]
		if !ok {
			continue
		}
		cmd.BindPipeline(pipeline)
		cmd.BindDescriptorSets([]gpu.DescriptorSet{globalSet, samplerSet, s.descriptorSet, gp.descriptorSet, s.descriptorSetOpt1})
		cmd.DrawIndexedIndirectCount(gp.culledDrawCommandsBuffer, gp.culledDrawCommandsCountBuffer, 0, uint32(gp.drawCommandsCount), drawCommandStride)
	}
}

// DrawOpaqueModels issues indirect draws for every opaque-bucket pipeline.
func (s *SceneRenderContext) DrawOpaqueModels(cmd gpu.CommandList, pipelines map[uint32]gpu.Pipeline, globalSet, samplerSet gpu.DescriptorSet) {
	s.drawBucket(cmd, s.opaquePipelinesData, pipelines, globalSet, samplerSet)
}

// DrawShaderMaterialModels issues indirect draws for every
// shader-material-bucket pipeline.
func (s *SceneRenderContext) DrawShaderMaterialModels(cmd gpu.CommandList, pipelines map[uint32]gpu.Pipeline, globalSet, samplerSet gpu.DescriptorSet) {
	s.drawBucket(cmd, s.shaderMaterialPipelinesData, pipelines, globalSet, samplerSet)
}

// DrawTransparentModels issues indirect draws for every
// transparent-bucket pipeline.
func (s *SceneRenderContext) DrawTransparentModels(cmd gpu.CommandList, pipelines map[uint32]gpu.Pipeline, globalSet, samplerSet gpu.DescriptorSet) {
	s.drawBucket(cmd, s.transparentPipelinesData, pipelines, globalSet, samplerSet)
}

// SetInitialState takes the viewport/scissors common to every pass this
// scene contributes to the prepare command list, and records nothing.
func (s *SceneRenderContext) SetInitialState(cmd gpu.CommandList, x, y, width, height int) {
	// Left to the GPU backend's own viewport/scissor call, not modeled
	// as a gpu.CommandList method (no render-target-independent
	// representation exists in this package's interface contract).
}

// MaterialsUpdated reports whether a newly-seen pipeline id needs its
// graphic pipelines (re)compiled before the next render.
func (s *SceneRenderContext) MaterialsUpdated() bool { return s.materialsUpdated }

// ClearMaterialsUpdated resets the dirty flag once Renderer.UpdatePipelines
// has compiled every pending pipeline id.
func (s *SceneRenderContext) ClearMaterialsUpdated() { s.materialsUpdated = false }

// PipelineIDs returns every distinct pipeline id registered so far,
// across all three buckets.
func (s *SceneRenderContext) PipelineIDs() []uint32 {
	ids := make([]uint32, 0, len(s.pipelineIDs))
	for pid := range s.pipelineIDs {
		ids = append(ids, pid)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
