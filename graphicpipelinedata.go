// Copyright © 2025-present Henri Michelon. MIT License.
// Go reimplementation for this repository.

package scenerender

// graphicpipelinedata.go implements GraphicPipelineData: one
// pipeline's per-scene instance table, draw-command list, and culled
// draw-command buffers.

import (
	"github.com/ashenvale/scenerender/gpu"
)

// instanceDataStride matches InstanceData: {meshInstanceIndex,
// meshSurfaceIndex, materialIndex, meshSurfaceMaterialIndex}, four
// uint32 fields.
const instanceDataStride = 4 * 4

// drawCommandStride matches gpu.DrawCommand packed as five uint32/int32
// fields (vertexOffset is signed but the same width).
const drawCommandStride = 5 * 4

// FrustumCullingPipeline dispatches the compute kernel that filters one
// pipeline bucket's draw commands against the camera frustum. Its
// shader module and descriptor wiring are a GPU-backend concern; against
// the FakeDevice, Dispatch only records the pipeline bind and dispatch.
type FrustumCullingPipeline struct {
	pipeline gpu.Pipeline
}

func newFrustumCullingPipeline(dev gpu.Device, pipelineID uint32, shader gpu.ShaderLoader) (*FrustumCullingPipeline, error) {
	code, err := shader.LoadShader("frustum_culling")
	if err != nil {
		return nil, &BackendFailureError{Op: "load frustum culling shader", Err: err}
	}
	p, err := dev.CreateComputePipeline(code, "frustumCulling")
	if err != nil {
		return nil, &BackendFailureError{Op: "create frustum culling pipeline", Err: err}
	}
	return &FrustumCullingPipeline{pipeline: p}, nil
}

// Dispatch records the compute pass that filters drawCommandsCount draw
// commands from src into dst/dstCount, one workgroup per 64 commands.
func (f *FrustumCullingPipeline) Dispatch(cmd gpu.CommandList, drawCommandsCount int, instances, src, dst, dstCount gpu.Buffer) {
	if drawCommandsCount == 0 {
		return
	}
	cmd.BindPipeline(f.pipeline)
	groups := (drawCommandsCount + 63) / 64
	cmd.Dispatch(groups, 1, 1)
}

// GraphicPipelineData owns one pipeline_id's per-scene state: the
// instance table, the CPU-authored draw command list, and the
// GPU-resident raw + culled draw-command buffers.
type GraphicPipelineData struct {
	pipelineID uint32

	instancesArray *DeviceMemoryArray
	instancesMemoryBlocks map[ID]MemoryBlock
	// meshInstanceIndices holds, per instance id, its slot in the
	// scene's mesh-instance-data array (SceneRenderContext's Models
	// SSBO) — written into InstanceData.meshInstanceIndex so the
	// shader can fetch that instance's transform/AABB.
	meshInstanceIndices map[ID]uint32

	drawCommands      []gpu.DrawCommand
	drawCommandsCount int

	drawCommandsBuffer            gpu.Buffer
	culledDrawCommandsBuffer      gpu.Buffer
	culledDrawCommandsCountBuffer gpu.Buffer

	drawCommandsStagingBuffer      gpu.Buffer
	drawCommandsStagingBufferCount int

	frustumCullingPipeline *FrustumCullingPipeline

	instancesUpdated bool
	instancesRemoved bool

	descriptorSet gpu.DescriptorSet

	meshInstances *MeshInstanceManager
	materials     *MaterialManager
	meshes        *MeshManager
}

// newGraphicPipelineData builds a GraphicPipelineData bounded at
// maxMeshSurfacesPerPipeline instances/draw commands.
func newGraphicPipelineData(
	dev gpu.Device,
	pipelineID uint32,
	maxMeshSurfacesPerPipeline int,
	pipelineLayout gpu.DescriptorLayout,
	shader gpu.ShaderLoader,
	meshInstances *MeshInstanceManager,
	materials *MaterialManager,
	meshes *MeshManager,
) (*GraphicPipelineData, error) {
	instancesArray, err := NewDeviceMemoryArray(dev, instanceDataStride, maxMeshSurfacesPerPipeline, "instance")
	if err != nil {
		return nil, err
	}
	frustumCulling, err := newFrustumCullingPipeline(dev, pipelineID, shader)
	if err != nil {
		return nil, err
	}
	drawCommandsBuffer, err := dev.CreateBuffer(gpu.BufferDeviceStorage, drawCommandStride*maxMeshSurfacesPerPipeline, "drawCommand")
	if err != nil {
		return nil, &BackendFailureError{Op: "create draw command buffer", Err: err}
	}
	culledCountBuffer, err := dev.CreateBuffer(gpu.BufferReadWriteStorage, 4, "culledDrawCommandsCount")
	if err != nil {
		return nil, &BackendFailureError{Op: "create culled draw command count buffer", Err: err}
	}
	culledBuffer, err := dev.CreateBuffer(gpu.BufferReadWriteStorage, drawCommandStride*maxMeshSurfacesPerPipeline, "culledDrawCommands")
	if err != nil {
		return nil, &BackendFailureError{Op: "create culled draw command buffer", Err: err}
	}
	descriptorSet, err := dev.CreateDescriptorSet(pipelineLayout, "Graphic")
	if err != nil {
		return nil, &BackendFailureError{Op: "create pipeline descriptor set", Err: err}
	}
	descriptorSet.Update(bindingInstances, instancesArray.Buffer())

	return &GraphicPipelineData{
		pipelineID:                     pipelineID,
		instancesArray:                 instancesArray,
		instancesMemoryBlocks:          make(map[ID]MemoryBlock),
		meshInstanceIndices:            make(map[ID]uint32),
		drawCommands:                   make([]gpu.DrawCommand, maxMeshSurfacesPerPipeline),
		drawCommandsBuffer:             drawCommandsBuffer,
		culledDrawCommandsBuffer:       culledBuffer,
		culledDrawCommandsCountBuffer:  culledCountBuffer,
		frustumCullingPipeline:         frustumCulling,
		descriptorSet:                  descriptorSet,
		meshInstances:                  meshInstances,
		materials:                      materials,
		meshes:                         meshes,
	}, nil
}

// bindingInstances is Set 3 "Pipeline"'s single binding.
const bindingInstances = 0

// addInstance reserves an instance slab for mi sized at its mesh's
// surface count, then emits one DrawCommand + InstanceData per surface
// whose material's pipeline id matches this bucket. meshInstanceIndex
// is mi's slot in the scene's mesh-instance-data array, written into
// every InstanceData record so the shader can find its transform/AABB.
func (gp *GraphicPipelineData) addInstance(id ID, meshInstanceIndex uint32, mi *MeshInstance, mesh *Mesh) error {
	block, err := gp.instancesArray.Alloc(len(mesh.Surfaces))
	if err != nil {
		return err
	}
	gp.instancesMemoryBlocks[id] = block
	gp.meshInstanceIndices[id] = meshInstanceIndex
	return gp.writeInstance(id, meshInstanceIndex, block, mi, mesh)
}

// writeInstance (re)emits mi's draw commands and instance data into an
// already-allocated block. Used both by addInstance and by the
// removal-triggered full rebuild in updateData.
func (gp *GraphicPipelineData) writeInstance(id ID, meshInstanceIndex uint32, block MemoryBlock, mi *MeshInstance, mesh *Mesh) error {
	instancesData := make([]byte, 0, len(mesh.Surfaces)*instanceDataStride)
	written := 0
	for i, surface := range mesh.Surfaces {
		materialID := mi.SurfaceMaterial(i, mesh)
		material, err := gp.materials.Get(materialID)
		if err != nil {
			return err
		}
		if material.PipelineID() != gp.pipelineID {
			continue
		}
		instanceIndex := uint32(block.Index + written)
		gp.drawCommands[gp.drawCommandsCount] = gpu.DrawCommand{
			IndexCount:    uint32(surface.IndexCount),
			InstanceCount: 1,
			FirstIndex:    uint32(mesh.IndicesIndex() + surface.FirstIndex),
			VertexOffset:  int32(mesh.VerticesIndex()),
			FirstInstance: instanceIndex,
		}
		gp.drawCommandsCount++

		buf := make([]byte, instanceDataStride)
		putUint32(buf, 0, meshInstanceIndex)
		putUint32(buf, 4, uint32(mesh.SurfacesIndex()+i))
		putUint32(buf, 8, uint32(material.Index()))
		putUint32(buf, 12, instanceIndex)
		instancesData = append(instancesData, buf...)
		written++
	}
	if written == 0 {
		return nil
	}
	if err := gp.instancesArray.Write(MemoryBlock{Index: block.Index, Count: written}, instancesData); err != nil {
		return err
	}
	gp.instancesUpdated = true
	return nil
}

// removeInstance frees mi's slab and schedules a full draw-command
// rebuild on the next updateData (clear drawCommandsCount, re-emit
// every remaining instance).
func (gp *GraphicPipelineData) removeInstance(id ID) {
	if block, ok := gp.instancesMemoryBlocks[id]; ok {
		gp.instancesArray.Free(block)
		delete(gp.instancesMemoryBlocks, id)
		delete(gp.meshInstanceIndices, id)
		gp.drawCommandsCount = 0
		gp.instancesRemoved = true
	}
}

// updateData rebuilds draw commands after a removal, flushes dirty
// instance data, and writes the draw commands straight into
// drawCommandsBuffer. No draw-command staging buffer is created:
// drawCommandsStagingBuffer stays nil, so when the draw count grows only
// drawCommandsStagingBufferCount is raised and nothing reaches recycleBin.
func (gp *GraphicPipelineData) updateData(cmd gpu.CommandList, recycleBin *stagingRecycleBin) error {
	if gp.instancesRemoved {
		for id, block := range gp.instancesMemoryBlocks {
			mi, err := gp.meshInstances.Get(id)
			if err != nil {
				return err
			}
			mesh, err := gp.meshes.Get(mi.Mesh)
			if err != nil {
				return err
			}
			if err := gp.writeInstance(id, gp.meshInstanceIndices[id], block, mi, mesh); err != nil {
				return err
			}
		}
		gp.instancesRemoved = false
	}
	if !gp.instancesUpdated {
		return nil
	}
	gp.instancesArray.Flush(cmd)
	gp.instancesArray.PostBarrier(cmd)

	if gp.drawCommandsStagingBufferCount < gp.drawCommandsCount {
		if gp.drawCommandsStagingBuffer != nil {
			recycleBin.add(gp.drawCommandsStagingBuffer)
		}
		// only the recorded count grows; no staging buffer is allocated.
		gp.drawCommandsStagingBufferCount = gp.drawCommandsCount
	}

	out := make([]byte, gp.drawCommandsCount*drawCommandStride)
	for i := 0; i < gp.drawCommandsCount; i++ {
		dc := gp.drawCommands[i]
		o := i * drawCommandStride
		putUint32(out, o, dc.IndexCount)
		putUint32(out, o+4, dc.InstanceCount)
		putUint32(out, o+8, dc.FirstIndex)
		putUint32(out, o+12, uint32(dc.VertexOffset))
		putUint32(out, o+16, dc.FirstInstance)
	}
	if err := gp.drawCommandsBuffer.WriteAt(0, out); err != nil {
		return &BackendFailureError{Op: "write draw commands", Err: err}
	}
	gp.instancesUpdated = false
	cmd.Barrier(gp.drawCommandsBuffer, gpu.StateCopyDst, gpu.StateIndirectDraw)
	cmd.Barrier(gp.culledDrawCommandsBuffer, gpu.StateCopyDst, gpu.StateIndirectDraw)
	return nil
}

// stagingRecycleBin accumulates staging buffers superseded this frame;
// it is cleared only once the owning in-flight fence has signalled,
// never unconditionally mid-frame (see DESIGN.md's Open Question
// decision).
type stagingRecycleBin struct {
	buffers []gpu.Buffer
}

func (b *stagingRecycleBin) add(buf gpu.Buffer) { b.buffers = append(b.buffers, buf) }

func (b *stagingRecycleBin) clear() { b.buffers = nil }

func (b *stagingRecycleBin) empty() bool { return len(b.buffers) == 0 }
