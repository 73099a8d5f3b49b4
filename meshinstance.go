// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenerender

// meshinstance.go implements MeshInstance and MeshInstanceManager,
// adapted from vu's model.go (a pov-attached mesh+material
// binding): a mesh reference, a world transform, and per-surface
// material overrides, plus a small "pendingUpdates" dirty counter so a
// transform change is re-uploaded once per frame in flight (each
// update decrements pendingUpdates until it reaches zero).

import (
	"github.com/ashenvale/scenerender/math/lin"
)

// meshInstanceDataStride matches MeshInstanceData: a 4x4 world matrix,
// the world AABB and the visible/castShadows flags (see
// meshInstanceDataByteSize).
const meshInstanceDataStride = meshInstanceDataByteSize

// MeshInstance places a Mesh in world space, optionally overriding its
// surfaces' materials.
type MeshInstance struct {
	Mesh      ID
	Transform lin.T

	// SurfaceMaterials overrides Mesh.Surfaces[i].Material when
	// non-zero; InvalidID means "use the mesh surface's own material".
	SurfaceMaterials []ID

	// Visible and CastShadows gate the instance in the GPU-side culling
	// and shadow passes; NewMeshInstance seeds both true. Change them
	// through SetVisible/SetCastShadows so the change also marks the
	// instance dirty for re-upload.
	Visible     bool
	CastShadows bool

	// worldAABB is mesh.Local transformed by Transform, refreshed
	// whenever the transform changes (see RefreshWorldAABB).
	worldAABB AABB

	pendingUpdates int // frames remaining before the GPU copy is current.
	maxUpdates     int // framesInFlight, reset on every transform change.
}

// NewMeshInstance builds a MeshInstance placing mesh at transform,
// visible and shadow-casting by default.
func NewMeshInstance(mesh ID, transform lin.T) MeshInstance {
	return MeshInstance{Mesh: mesh, Transform: transform, Visible: true, CastShadows: true}
}

// WorldAABB returns mesh.Local transformed by Transform, as last
// refreshed by RefreshWorldAABB.
func (mi *MeshInstance) WorldAABB() AABB { return mi.worldAABB }

// RefreshWorldAABB recomputes worldAABB from mesh's local AABB and the
// instance's current Transform. Called whenever the instance is
// (re)inserted or its transform changes, so encodeMeshInstanceData
// never reads a stale box.
func (mi *MeshInstance) RefreshWorldAABB(mesh *Mesh) {
	mi.worldAABB = mesh.Local.Transform(mi.Transform)
}

// SetVisible sets the instance's visibility flag and marks it dirty so
// the change reaches the GPU on the next update.
func (mi *MeshInstance) SetVisible(visible bool, framesInFlight int) {
	mi.Visible = visible
	mi.MarkDirty(framesInFlight)
}

// SetCastShadows sets whether the instance is rendered into shadow
// maps and marks it dirty so the change reaches the GPU on the next
// update.
func (mi *MeshInstance) SetCastShadows(castShadows bool, framesInFlight int) {
	mi.CastShadows = castShadows
	mi.MarkDirty(framesInFlight)
}

// SurfaceMaterial resolves the effective material for surface i: the
// override if set, else the mesh surface's own material.
func (mi *MeshInstance) SurfaceMaterial(i int, mesh *Mesh) ID {
	if i < len(mi.SurfaceMaterials) && mi.SurfaceMaterials[i] != InvalidID {
		return mi.SurfaceMaterials[i]
	}
	return mesh.Surfaces[i].Material
}

// MarkDirty schedules the instance's transform for re-upload on the
// next framesInFlight updates, resetting pendingUpdates on every call.
func (mi *MeshInstance) MarkDirty(framesInFlight int) {
	mi.maxUpdates = framesInFlight
	mi.pendingUpdates = mi.maxUpdates
}

// MeshInstanceManager owns every MeshInstance and its stable slot in the
// shared mesh-instance-data array.
type MeshInstanceManager struct {
	pool *ResourceManager[MeshInstance]
	data *DeviceMemoryArray
}

// NewMeshInstanceManager builds a MeshInstanceManager bounded at
// maxInstances, backed by a mesh-instance-data array of the same
// capacity.
func NewMeshInstanceManager(data *DeviceMemoryArray, maxInstances int) *MeshInstanceManager {
	return &MeshInstanceManager{
		pool: NewResourceManager[MeshInstance]("meshinstance", maxInstances),
		data: data,
	}
}

// Create registers a new MeshInstance. Its mesh must already be
// Uploaded(); callers should check before calling Create — this
// package surfaces the violation as UploadPreconditionError from
// AddInstance instead, since Create itself does not have mesh access.
func (mim *MeshInstanceManager) Create(mi MeshInstance) (ID, error) {
	id, _, err := mim.pool.Create(mi)
	return id, err
}

// Get returns the MeshInstance for id.
func (mim *MeshInstanceManager) Get(id ID) (*MeshInstance, error) { return mim.pool.Get(id) }

// Destroy removes id from the pool. The caller (SceneRenderContext) is
// responsible for freeing its memory-array block and removing it from
// any per-pipeline GraphicPipelineData first.
func (mim *MeshInstanceManager) Destroy(id ID) error { return mim.pool.Destroy(id) }

// Each visits every registered mesh instance.
func (mim *MeshInstanceManager) Each(fn func(id ID, mi *MeshInstance)) { mim.pool.Each(fn) }
