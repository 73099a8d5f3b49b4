// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenerender

// mesh.go implements Mesh, MeshSurface and MeshManager, adapted from
// vu's mesh.go (per-vertex data buffers keyed by attribute location)
// generalized to shared vertex/index/surface arrays and per-surface
// material references.

import (
	"github.com/ashenvale/scenerender/gpu"
	"github.com/ashenvale/scenerender/math/lin"
)

// VertexData is one packed vertex as written to the shared vertex
// array: position, normal, tangent (three float32 each), then uv (two
// float32).
type VertexData struct {
	Position lin.V3
	Normal   lin.V3
	Tangent  lin.V3
	UV       [2]float32
}

// MeshSurface is one drawable range of a Mesh's index buffer, with its
// own material.
type MeshSurface struct {
	FirstIndex int
	IndexCount int
	Material   ID
}

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max lin.V3
}

// Transform returns the world-space AABB enclosing a's eight corners
// after rotating and translating each by t. A rotated box is no longer
// axis-aligned, so the result is the tightest axis-aligned box around
// the rotated corners, not a simple min/max translation.
func (a AABB) Transform(t lin.T) AABB {
	corners := [8]lin.V3{
		{X: a.Min.X, Y: a.Min.Y, Z: a.Min.Z},
		{X: a.Max.X, Y: a.Min.Y, Z: a.Min.Z},
		{X: a.Min.X, Y: a.Max.Y, Z: a.Min.Z},
		{X: a.Max.X, Y: a.Max.Y, Z: a.Min.Z},
		{X: a.Min.X, Y: a.Min.Y, Z: a.Max.Z},
		{X: a.Max.X, Y: a.Min.Y, Z: a.Max.Z},
		{X: a.Min.X, Y: a.Max.Y, Z: a.Max.Z},
		{X: a.Max.X, Y: a.Max.Y, Z: a.Max.Z},
	}
	var world AABB
	for i, c := range corners {
		var p lin.V3
		p.MultQ(&c, t.Rot)
		p.Add(&p, t.Loc)
		if i == 0 {
			world.Min, world.Max = p, p
			continue
		}
		world.Min.Min(&world.Min, &p)
		world.Max.Max(&world.Max, &p)
	}
	return world
}

// Mesh is CPU-side geometry plus the stable memory blocks it occupies
// in the shared vertex/index/surface arrays once uploaded.
type Mesh struct {
	Vertices []VertexData
	Indices  []uint32
	Surfaces []MeshSurface
	Local    AABB

	uploaded bool

	// Stable once uploaded: these never change again until the Mesh is
	// destroyed.
	verticesBlock MemoryBlock
	indicesBlock  MemoryBlock
	surfacesBlock MemoryBlock
}

// Uploaded reports whether this mesh's data is resident in the shared
// GPU arrays. SceneRenderContext.AddInstance asserts this is true.
func (m *Mesh) Uploaded() bool { return m.uploaded }

// VerticesIndex returns this mesh's first vertex slot in the shared
// vertex array, valid only after Uploaded().
func (m *Mesh) VerticesIndex() int { return m.verticesBlock.Index }

// IndicesIndex returns this mesh's first index slot in the shared index
// array, valid only after Uploaded().
func (m *Mesh) IndicesIndex() int { return m.indicesBlock.Index }

// SurfacesIndex returns this mesh's first surface slot in the shared
// surface-data array, valid only after Uploaded().
func (m *Mesh) SurfacesIndex() int { return m.surfacesBlock.Index }

// MeshManager owns every Mesh and the shared vertex/index/surface
// arrays their data is packed into.
type MeshManager struct {
	pool *ResourceManager[Mesh]

	vertices *DeviceMemoryArray
	indices  *DeviceMemoryArray
	surfaces *DeviceMemoryArray

	materials *MaterialManager
}

// NewMeshManager builds a MeshManager bounded at maxMeshes, sharing
// vertex/index/surface arrays sized for maxVertices/maxIndices/
// maxSurfaces elements.
func NewMeshManager(dev gpu.Device, materials *MaterialManager, maxMeshes, maxVertices, maxIndices, maxSurfaces int) (*MeshManager, error) {
	vertices, err := NewDeviceMemoryArray(dev, vertexDataStride, maxVertices, "mesh:vertices")
	if err != nil {
		return nil, err
	}
	indices, err := NewDeviceMemoryArray(dev, 4, maxIndices, "mesh:indices")
	if err != nil {
		return nil, err
	}
	surfaceArr, err := NewDeviceMemoryArray(dev, surfaceDataStride, maxSurfaces, "mesh:surfaces")
	if err != nil {
		return nil, err
	}
	return &MeshManager{
		pool:      NewResourceManager[Mesh]("mesh", maxMeshes),
		vertices:  vertices,
		indices:   indices,
		surfaces:  surfaceArr,
		materials: materials,
	}, nil
}

const vertexDataStride = 4*3 + 4*3 + 4*3 + 4*2 // position+normal+tangent+uv, float32 fields
const surfaceDataStride = 4 * 3                // {indexCount, indicesIndex, verticesIndex} uint32

// Create registers a new CPU-side Mesh. Call Upload separately once its
// data is final.
func (mm *MeshManager) Create(vertices []VertexData, indices []uint32, surfaces []MeshSurface, local AABB) (ID, error) {
	id, _, err := mm.pool.Create(Mesh{Vertices: vertices, Indices: indices, Surfaces: surfaces, Local: local})
	return id, err
}

// Get returns the Mesh for id.
func (mm *MeshManager) Get(id ID) (*Mesh, error) { return mm.pool.Get(id) }

// VertexBuffer returns the shared vertex array's GPU buffer, for
// Renderer.render's global BindVertexBuffer.
func (mm *MeshManager) VertexBuffer() gpu.Buffer { return mm.vertices.Buffer() }

// IndexBuffer returns the shared index array's GPU buffer.
func (mm *MeshManager) IndexBuffer() gpu.Buffer { return mm.indices.Buffer() }

// Upload allocates vertex/index/surface blocks for id, writes its
// packed data into the shared arrays, and uploads every surface
// material that is not already uploaded. Returns UploadPreconditionError
// if the mesh has no surfaces.
func (mm *MeshManager) Upload(cmd gpu.CommandList, id ID) error {
	mesh, err := mm.pool.Get(id)
	if err != nil {
		return err
	}
	if len(mesh.Surfaces) == 0 {
		return &UploadPreconditionError{Reason: "mesh has no surfaces/materials"}
	}

	vblock, err := mm.vertices.Alloc(len(mesh.Vertices))
	if err != nil {
		return err
	}
	iblock, err := mm.indices.Alloc(len(mesh.Indices))
	if err != nil {
		return err
	}
	sblock, err := mm.surfaces.Alloc(len(mesh.Surfaces))
	if err != nil {
		return err
	}

	if err := mm.vertices.Write(vblock, encodeVertices(mesh.Vertices)); err != nil {
		return err
	}
	if err := mm.indices.Write(iblock, encodeIndices(mesh.Indices)); err != nil {
		return err
	}
	if err := mm.surfaces.Write(sblock, encodeSurfaces(mesh.Surfaces, iblock.Index, vblock.Index)); err != nil {
		return err
	}
	mm.vertices.Flush(cmd)
	mm.vertices.PostBarrier(cmd)
	mm.indices.Flush(cmd)
	mm.indices.PostBarrier(cmd)
	mm.surfaces.Flush(cmd)
	mm.surfaces.PostBarrier(cmd)

	mesh.verticesBlock = vblock
	mesh.indicesBlock = iblock
	mesh.surfacesBlock = sblock
	mesh.uploaded = true

	if mm.materials != nil {
		for _, s := range mesh.Surfaces {
			if !mm.materials.IsUploaded(s.Material) {
				if err := mm.materials.Upload(cmd, s.Material); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// Destroy frees id's shared-array blocks and removes it from the pool.
func (mm *MeshManager) Destroy(id ID) error {
	mesh, err := mm.pool.Get(id)
	if err != nil {
		return err
	}
	if mesh.uploaded {
		mm.vertices.Free(mesh.verticesBlock)
		mm.indices.Free(mesh.indicesBlock)
		mm.surfaces.Free(mesh.surfacesBlock)
	}
	return mm.pool.Destroy(id)
}
