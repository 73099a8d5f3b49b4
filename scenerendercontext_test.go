// Copyright © 2025-present Henri Michelon. MIT License.
// Go reimplementation for this repository.

package scenerender

import (
	"errors"
	"testing"

	"github.com/ashenvale/scenerender/gpu"
	"github.com/ashenvale/scenerender/math/lin"
)

func newTestSceneRenderContext(t *testing.T, maxShadowMaps int) (*SceneRenderContext, *MaterialManager, *MeshManager, *MeshInstanceManager, *LightManager, *ImageManager) {
	t.Helper()
	dev := gpu.NewFakeDevice()
	shader := gpu.NewFakeShaderLoader()

	materials, err := NewMaterialManager(dev, 16)
	if err != nil {
		t.Fatalf("NewMaterialManager: %v", err)
	}
	meshes, err := NewMeshManager(dev, materials, 16, 64, 192, 64)
	if err != nil {
		t.Fatalf("NewMeshManager: %v", err)
	}
	meshInstanceData, err := NewDeviceMemoryArray(dev, meshInstanceDataByteSize, 64, "test:meshInstances")
	if err != nil {
		t.Fatalf("NewDeviceMemoryArray: %v", err)
	}
	meshInstances := NewMeshInstanceManager(meshInstanceData, 64)
	lights := NewLightManager(32, maxShadowMaps)
	images, err := NewImageManager(dev, 16)
	if err != nil {
		t.Fatalf("NewImageManager: %v", err)
	}

	cfg := SceneRenderContextConfig{MaxShadowMaps: maxShadowMaps, MaxMeshInstancesPerScene: 64, MaxLights: 32}
	scene, err := NewSceneRenderContext(dev, shader, cfg, 2, materials, meshes, meshInstances, lights, images)
	if err != nil {
		t.Fatalf("NewSceneRenderContext: %v", err)
	}
	return scene, materials, meshes, meshInstances, lights, images
}

func addTestInstance(t *testing.T, scene *SceneRenderContext, materials *MaterialManager, meshes *MeshManager, meshInstances *MeshInstanceManager, dev *gpu.FakeDevice, kind MaterialKind, transparency Transparency, shaderName string) ID {
	t.Helper()
	cmd, err := dev.CreateCommandList(gpu.QueueTransfer)
	if err != nil {
		t.Fatalf("CreateCommandList: %v", err)
	}
	materialID, err := materials.Create(Material{Kind: kind, Transparency: transparency, ShaderName: shaderName})
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

	mi := NewMeshInstance(meshID, lin.T{Loc: &lin.V3{}, Rot: lin.NewQI()})
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
	return instanceID
}

// TestSceneRenderContextBucketClassification verifies that an instance
// whose only surface uses a Shader material
// lands in the shaderMaterial bucket even though it is also
// transparent, and a plain transparent-standard instance lands in the
// transparent bucket, never opaque.
func TestSceneRenderContextBucketClassification(t *testing.T) {
	scene, materials, meshes, meshInstances, _, _ := newTestSceneRenderContext(t, 4)
	dev := scene.dev.(*gpu.FakeDevice)

	shaderID := addTestInstance(t, scene, materials, meshes, meshInstances, dev, MaterialShader, TransparencyAlpha, "foil")
	if len(scene.shaderMaterialPipelinesData) != 1 {
		t.Fatalf("shaderMaterialPipelinesData has %d entries, want 1", len(scene.shaderMaterialPipelinesData))
	}
	if len(scene.opaquePipelinesData) != 0 || len(scene.transparentPipelinesData) != 0 {
		t.Fatalf("shader-material instance leaked into another bucket: opaque=%d transparent=%d", len(scene.opaquePipelinesData), len(scene.transparentPipelinesData))
	}

	transparentID := addTestInstance(t, scene, materials, meshes, meshInstances, dev, MaterialStandard, TransparencyAlpha, "")
	if len(scene.transparentPipelinesData) != 1 {
		t.Fatalf("transparentPipelinesData has %d entries, want 1", len(scene.transparentPipelinesData))
	}

	opaqueID := addTestInstance(t, scene, materials, meshes, meshInstances, dev, MaterialStandard, TransparencyDisabled, "")
	if len(scene.opaquePipelinesData) != 1 {
		t.Fatalf("opaquePipelinesData has %d entries, want 1", len(scene.opaquePipelinesData))
	}

	if shaderID == transparentID || transparentID == opaqueID {
		t.Fatalf("expected distinct instance ids, got %d %d %d", shaderID, transparentID, opaqueID)
	}
}

// TestSceneRenderContextShadowMapOverflow verifies that once every
// stride-6 shadow-map slot is taken, the next EnableLightShadowCasting
// fails with the verbatim "Out of memory for shadow map" message.
func TestSceneRenderContextShadowMapOverflow(t *testing.T) {
	scene, _, _, _, lights, _ := newTestSceneRenderContext(t, 1) // 1 map = 6 slots

	var ids []ID
	for i := 0; i < 6; i++ {
		id, err := lights.Create(Light{Intensity: 1})
		if err != nil {
			t.Fatalf("lights.Create %d: %v", i, err)
		}
		ids = append(ids, id)
		if err := scene.EnableLightShadowCasting(id); err != nil {
			t.Fatalf("EnableLightShadowCasting %d: %v", i, err)
		}
	}

	overflowID, err := lights.Create(Light{Intensity: 1})
	if err != nil {
		t.Fatalf("lights.Create overflow: %v", err)
	}
	err = scene.EnableLightShadowCasting(overflowID)
	if err == nil {
		t.Fatalf("EnableLightShadowCasting succeeded past shadow map capacity")
	}
	var capErr *OutOfCapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("EnableLightShadowCasting overflow returned %T, want *OutOfCapacityError", err)
	}
	if capErr.Error() != "Out of memory for shadow map" {
		t.Fatalf("overflow error = %q, want %q", capErr.Error(), "Out of memory for shadow map")
	}

	// Releasing one slot and re-enabling reuses a stable slot index
	// rather than growing past capacity.
	if err := scene.DisableLightShadowCasting(ids[0]); err != nil {
		t.Fatalf("DisableLightShadowCasting: %v", err)
	}
	if err := scene.EnableLightShadowCasting(overflowID); err != nil {
		t.Fatalf("EnableLightShadowCasting after freeing a slot: %v", err)
	}
}

// TestSceneRenderContextShadowMapSlotStable verifies that a light's
// shadow-map slot index never changes across repeated disable/enable
// cycles so long as no other light takes it first.
func TestSceneRenderContextShadowMapSlotStable(t *testing.T) {
	scene, _, _, _, lights, _ := newTestSceneRenderContext(t, 4)

	id, err := lights.Create(Light{Intensity: 1})
	if err != nil {
		t.Fatalf("lights.Create: %v", err)
	}
	if err := scene.EnableLightShadowCasting(id); err != nil {
		t.Fatalf("EnableLightShadowCasting: %v", err)
	}
	light, err := lights.Get(id)
	if err != nil {
		t.Fatalf("lights.Get: %v", err)
	}
	slot := light.ShadowMapIndex()

	if err := scene.DisableLightShadowCasting(id); err != nil {
		t.Fatalf("DisableLightShadowCasting: %v", err)
	}
	if err := scene.EnableLightShadowCasting(id); err != nil {
		t.Fatalf("EnableLightShadowCasting (second time): %v", err)
	}
	if light.ShadowMapIndex() != slot {
		t.Fatalf("ShadowMapIndex changed across disable/enable: got %d, want %d", light.ShadowMapIndex(), slot)
	}
}
