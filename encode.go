// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenerender

// encode.go packs the CPU-side structs used by mesh/material/image
// uploads into the byte slices DeviceMemoryArray.Write expects. Kept
// separate from mesh.go/material.go so each manager file stays focused
// on its own lifecycle.

import (
	"encoding/binary"
	"math"

	"github.com/ashenvale/scenerender/math/lin"
)

func encodeVertices(vs []VertexData) []byte {
	out := make([]byte, len(vs)*vertexDataStride)
	o := 0
	for _, v := range vs {
		o = putFloat32(out, o, float32(v.Position.X))
		o = putFloat32(out, o, float32(v.Position.Y))
		o = putFloat32(out, o, float32(v.Position.Z))
		o = putFloat32(out, o, float32(v.Normal.X))
		o = putFloat32(out, o, float32(v.Normal.Y))
		o = putFloat32(out, o, float32(v.Normal.Z))
		o = putFloat32(out, o, float32(v.Tangent.X))
		o = putFloat32(out, o, float32(v.Tangent.Y))
		o = putFloat32(out, o, float32(v.Tangent.Z))
		o = putFloat32(out, o, v.UV[0])
		o = putFloat32(out, o, v.UV[1])
	}
	return out
}

func encodeIndices(is []uint32) []byte {
	out := make([]byte, len(is)*4)
	for i, v := range is {
		binary.LittleEndian.PutUint32(out[i*4:], v)
	}
	return out
}

func encodeSurfaces(surfaces []MeshSurface, indicesIndex, verticesIndex int) []byte {
	out := make([]byte, len(surfaces)*surfaceDataStride)
	o := 0
	for _, s := range surfaces {
		o = putUint32(out, o, uint32(s.IndexCount))
		o = putUint32(out, o, uint32(indicesIndex+s.FirstIndex))
		o = putUint32(out, o, uint32(verticesIndex))
	}
	return out
}

func putFloat32(buf []byte, off int, v float32) int {
	binary.LittleEndian.PutUint32(buf[off:], math.Float32bits(v))
	return off + 4
}

func putUint32(buf []byte, off int, v uint32) int {
	binary.LittleEndian.PutUint32(buf[off:], v)
	return off + 4
}

// lightDataStride matches LightData: {type, position(vec4), color(vec4),
// intensity}: 40 bytes, not padded to a 16-byte boundary.
const lightDataStride = 4 + 16 + 16 + 4

func encodeM4(buf []byte, off int, m *lin.M4) int {
	vals := [16]float64{
		m.Xx, m.Xy, m.Xz, m.Xw,
		m.Yx, m.Yy, m.Yz, m.Yw,
		m.Zx, m.Zy, m.Zz, m.Zw,
		m.Wx, m.Wy, m.Wz, m.Ww,
	}
	for _, v := range vals {
		off = putFloat32(buf, off, float32(v))
	}
	return off
}

func encodeV3(buf []byte, off int, v lin.V3, pad float32) int {
	off = putFloat32(buf, off, float32(v.X))
	off = putFloat32(buf, off, float32(v.Y))
	off = putFloat32(buf, off, float32(v.Z))
	off = putFloat32(buf, off, pad)
	return off
}

// encodeSceneData packs SceneData: cameraPosition, projection, view,
// viewInverse, lightsCount.
func encodeSceneData(buf []byte, camera *Camera, lightsCount int) {
	off := 0
	off = encodeV3(buf, off, *camera.Transform.Loc, 0)
	off = encodeM4(buf, off, camera.ProjectionMatrix())
	off = encodeM4(buf, off, camera.ViewMatrix())
	viewInverse := &lin.M4{}
	viewInverse.SetQ(camera.Transform.Rot).TranslateMT(camera.Transform.Loc.X, camera.Transform.Loc.Y, camera.Transform.Loc.Z)
	off = encodeM4(buf, off, viewInverse)
	putUint32(buf, off, uint32(lightsCount))
}

// encodeMeshInstanceData packs MeshInstanceData: world transform as a
// 4x4 matrix, the world-space AABB (mesh.Local transformed by mi's
// current Transform, see RefreshWorldAABB), a visible flag and a
// castShadows flag.
func encodeMeshInstanceData(buf []byte, mi *MeshInstance, mesh *Mesh) {
	world := &lin.M4{}
	world.SetQ(mi.Transform.Rot).TranslateMT(mi.Transform.Loc.X, mi.Transform.Loc.Y, mi.Transform.Loc.Z)
	off := encodeM4(buf, 0, world)
	worldAABB := mi.WorldAABB()
	off = encodeV3(buf, off, worldAABB.Min, 0)
	off = encodeV3(buf, off, worldAABB.Max, 0)
	off = putUint32(buf, off, boolUint32(mi.Visible))
	putUint32(buf, off, boolUint32(mi.CastShadows))
}

func boolUint32(v bool) uint32 {
	if v {
		return 1
	}
	return 0
}

// encodeLightData packs LightData: type (always written as 0),
// position, color, intensity.
func encodeLightData(buf []byte, l *Light) {
	off := putUint32(buf, 0, 0)
	off = encodeV3(buf, off, l.Position, 0)
	off = encodeV3(buf, off, l.Color, 0)
	putFloat32(buf, off, float32(l.Intensity))
}
