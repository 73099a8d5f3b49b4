// Copyright © 2025-present Henri Michelon. MIT License.
// Go reimplementation for this repository.

package scenerender

import (
	"encoding/binary"
	"testing"

	"github.com/ashenvale/scenerender/gpu"
	"github.com/ashenvale/scenerender/math/lin"
)

func newTestPipelineFixture(t *testing.T, maxInstances int) (*gpu.FakeDevice, *MaterialManager, *MeshManager, *MeshInstanceManager, ID, ID) {
	t.Helper()
	dev := gpu.NewFakeDevice()
	cmd, err := dev.CreateCommandList(gpu.QueueTransfer)
	if err != nil {
		t.Fatalf("CreateCommandList: %v", err)
	}

	materials, err := NewMaterialManager(dev, 8)
	if err != nil {
		t.Fatalf("NewMaterialManager: %v", err)
	}
	meshes, err := NewMeshManager(dev, materials, 8, 64, 192, 64)
	if err != nil {
		t.Fatalf("NewMeshManager: %v", err)
	}
	meshInstanceData, err := NewDeviceMemoryArray(dev, meshInstanceDataByteSize, maxInstances, "test:meshInstances")
	if err != nil {
		t.Fatalf("NewDeviceMemoryArray: %v", err)
	}
	meshInstances := NewMeshInstanceManager(meshInstanceData, maxInstances)

	materialID, err := materials.Create(Material{Kind: MaterialStandard})
	if err != nil {
		t.Fatalf("Materials.Create: %v", err)
	}

	vertices := []VertexData{{}, {}, {}}
	indices := []uint32{0, 1, 2}
	surfaces := []MeshSurface{{FirstIndex: 0, IndexCount: 3, Material: materialID}}
	meshID, err := meshes.Create(vertices, indices, surfaces, AABB{})
	if err != nil {
		t.Fatalf("Meshes.Create: %v", err)
	}
	if err := meshes.Upload(cmd, meshID); err != nil {
		t.Fatalf("Meshes.Upload: %v", err)
	}

	return dev, materials, meshes, meshInstances, materialID, meshID
}

// TestGraphicPipelineDataAddInstanceDrawCountBound verifies that the
// draw-command count never exceeds the number of surfaces actually
// registered, and each added instance contributes exactly one draw
// command per matching surface.
func TestGraphicPipelineDataAddInstanceDrawCountBound(t *testing.T) {
	dev, materials, meshes, meshInstances, materialID, meshID := newTestPipelineFixture(t, 16)
	shader := gpu.NewFakeShaderLoader()

	layout, err := dev.CreateDescriptorLayout("Pipeline")
	if err != nil {
		t.Fatalf("CreateDescriptorLayout: %v", err)
	}
	material, err := materials.Get(materialID)
	if err != nil {
		t.Fatalf("Materials.Get: %v", err)
	}
	gp, err := newGraphicPipelineData(dev, material.PipelineID(), 16, layout, shader, meshInstances, materials, meshes)
	if err != nil {
		t.Fatalf("newGraphicPipelineData: %v", err)
	}

	mi := NewMeshInstance(meshID, lin.T{Loc: &lin.V3{}, Rot: lin.NewQI()})
	instanceID, err := meshInstances.Create(mi)
	if err != nil {
		t.Fatalf("meshInstances.Create: %v", err)
	}
	storedMI, err := meshInstances.Get(instanceID)
	if err != nil {
		t.Fatalf("meshInstances.Get: %v", err)
	}
	mesh, err := meshes.Get(meshID)
	if err != nil {
		t.Fatalf("meshes.Get: %v", err)
	}

	if err := gp.addInstance(instanceID, 7, storedMI, mesh); err != nil {
		t.Fatalf("addInstance: %v", err)
	}

	if gp.drawCommandsCount != len(mesh.Surfaces) {
		t.Fatalf("drawCommandsCount = %d, want %d (one per matching surface)", gp.drawCommandsCount, len(mesh.Surfaces))
	}
	if gp.drawCommandsCount > len(gp.drawCommands) {
		t.Fatalf("drawCommandsCount %d exceeds capacity %d", gp.drawCommandsCount, len(gp.drawCommands))
	}

	block := gp.instancesMemoryBlocks[instanceID]
	staging, ok := gp.instancesArray.staging.(*gpu.FakeBuffer)
	if !ok {
		t.Fatalf("instances staging buffer is not a *gpu.FakeBuffer")
	}
	raw := staging.ReadAt(block.Index*instanceDataStride, instanceDataStride)
	gotMeshInstanceIndex := binary.LittleEndian.Uint32(raw[0:4])
	gotMeshSurfaceIndex := binary.LittleEndian.Uint32(raw[4:8])
	gotMeshSurfaceMaterialIndex := binary.LittleEndian.Uint32(raw[12:16])
	if gotMeshInstanceIndex != 7 {
		t.Fatalf("InstanceData.meshInstanceIndex = %d, want 7 (the scene's Models-SSBO slot passed into addInstance)", gotMeshInstanceIndex)
	}
	if gotMeshSurfaceIndex != uint32(mesh.SurfacesIndex()) {
		t.Fatalf("InstanceData.meshSurfaceIndex = %d, want %d", gotMeshSurfaceIndex, mesh.SurfacesIndex())
	}
	if gotMeshSurfaceMaterialIndex != uint32(block.Index) {
		t.Fatalf("InstanceData.meshSurfaceMaterialIndex = %d, want %d (this pipeline's own instance slot)", gotMeshSurfaceMaterialIndex, block.Index)
	}

	cmd, err := dev.CreateCommandList(gpu.QueueGraphic)
	if err != nil {
		t.Fatalf("CreateCommandList: %v", err)
	}
	bin := &stagingRecycleBin{}
	if err := gp.updateData(cmd, bin); err != nil {
		t.Fatalf("updateData: %v", err)
	}
}

// TestGraphicPipelineDataRemoveInstanceRebuildsDrawCommands exercises
// the removal-triggered full rebuild: after removing the only instance,
// the next updateData leaves zero draw commands.
func TestGraphicPipelineDataRemoveInstanceRebuildsDrawCommands(t *testing.T) {
	dev, materials, meshes, meshInstances, materialID, meshID := newTestPipelineFixture(t, 16)
	shader := gpu.NewFakeShaderLoader()

	layout, err := dev.CreateDescriptorLayout("Pipeline")
	if err != nil {
		t.Fatalf("CreateDescriptorLayout: %v", err)
	}
	material, err := materials.Get(materialID)
	if err != nil {
		t.Fatalf("Materials.Get: %v", err)
	}
	gp, err := newGraphicPipelineData(dev, material.PipelineID(), 16, layout, shader, meshInstances, materials, meshes)
	if err != nil {
		t.Fatalf("newGraphicPipelineData: %v", err)
	}

	mi := NewMeshInstance(meshID, lin.T{Loc: &lin.V3{}, Rot: lin.NewQI()})
	instanceID, err := meshInstances.Create(mi)
	if err != nil {
		t.Fatalf("meshInstances.Create: %v", err)
	}
	storedMI, _ := meshInstances.Get(instanceID)
	mesh, _ := meshes.Get(meshID)
	if err := gp.addInstance(instanceID, 3, storedMI, mesh); err != nil {
		t.Fatalf("addInstance: %v", err)
	}
	if gp.drawCommandsCount == 0 {
		t.Fatalf("drawCommandsCount = 0 after addInstance, want > 0")
	}

	gp.removeInstance(instanceID)
	if gp.drawCommandsCount != 0 {
		t.Fatalf("drawCommandsCount = %d immediately after removeInstance, want 0", gp.drawCommandsCount)
	}

	cmd, err := dev.CreateCommandList(gpu.QueueGraphic)
	if err != nil {
		t.Fatalf("CreateCommandList: %v", err)
	}
	bin := &stagingRecycleBin{}
	if err := gp.updateData(cmd, bin); err != nil {
		t.Fatalf("updateData after remove: %v", err)
	}
	if gp.drawCommandsCount != 0 {
		t.Fatalf("drawCommandsCount = %d after updateData rebuild with no instances, want 0", gp.drawCommandsCount)
	}
}
