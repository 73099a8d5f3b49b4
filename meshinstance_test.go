// Copyright © 2025-present Henri Michelon. MIT License.
// Go reimplementation for this repository.

package scenerender

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/ashenvale/scenerender/math/lin"
)

// TestAABBTransformTranslation verifies that a pure translation shifts
// every corner by the same offset, so Min/Max both move by it.
func TestAABBTransformTranslation(t *testing.T) {
	local := AABB{Min: lin.V3{X: -1, Y: -2, Z: -3}, Max: lin.V3{X: 1, Y: 2, Z: 3}}
	transform := lin.T{Loc: lin.NewV3S(10, 20, 30), Rot: lin.NewQI()}

	world := local.Transform(transform)

	want := AABB{Min: lin.V3{X: 9, Y: 18, Z: 27}, Max: lin.V3{X: 11, Y: 22, Z: 33}}
	if !world.Min.Eq(&want.Min) || !world.Max.Eq(&want.Max) {
		t.Fatalf("Transform(translation) = %+v, want %+v", world, want)
	}
}

// TestAABBTransformRotationWidensBox verifies that rotating an
// off-axis box produces a larger axis-aligned box than the original
// local extents — a naive "transform Min/Max only" implementation
// would instead just carry the local extents straight through.
func TestAABBTransformRotationWidensBox(t *testing.T) {
	local := AABB{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}}
	rot := &lin.Q{}
	rot.SetAa(0, 0, 1, math.Pi/4)
	transform := lin.T{Loc: &lin.V3{}, Rot: rot}

	world := local.Transform(transform)

	diag := math.Sqrt(2)
	if world.Max.X < diag-0.01 || world.Max.Y < diag-0.01 {
		t.Fatalf("Transform(45deg rotation) max = %+v, want X/Y >= %.4f", world.Max, diag)
	}
}

// TestMeshInstanceRefreshWorldAABBTracksTransform verifies that
// RefreshWorldAABB recomputes worldAABB from the mesh's local AABB and
// the instance's current Transform rather than caching the mesh's
// local AABB unchanged.
func TestMeshInstanceRefreshWorldAABBTracksTransform(t *testing.T) {
	mesh := &Mesh{Local: AABB{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}}}
	mi := NewMeshInstance(InvalidID, lin.T{Loc: lin.NewV3S(5, 0, 0), Rot: lin.NewQI()})

	mi.RefreshWorldAABB(mesh)

	got := mi.WorldAABB()
	want := AABB{Min: lin.V3{X: 4, Y: -1, Z: -1}, Max: lin.V3{X: 6, Y: 1, Z: 1}}
	if !got.Min.Eq(&want.Min) || !got.Max.Eq(&want.Max) {
		t.Fatalf("WorldAABB() = %+v, want %+v (mesh.Local transformed, not mesh.Local verbatim)", got, want)
	}
}

// TestEncodeMeshInstanceDataUsesWorldAABBAndFlags verifies the packed
// MeshInstanceData carries the world-space AABB (not the mesh's local
// AABB) plus the instance's actual visible/castShadows flags, not a
// hardcoded visible=1.
func TestEncodeMeshInstanceDataUsesWorldAABBAndFlags(t *testing.T) {
	mesh := &Mesh{Local: AABB{Min: lin.V3{X: -1, Y: -1, Z: -1}, Max: lin.V3{X: 1, Y: 1, Z: 1}}}
	mi := NewMeshInstance(InvalidID, lin.T{Loc: lin.NewV3S(5, 0, 0), Rot: lin.NewQI()})
	mi.SetVisible(false, 1)
	mi.SetCastShadows(false, 1)
	mi.RefreshWorldAABB(mesh)

	buf := make([]byte, meshInstanceDataByteSize)
	encodeMeshInstanceData(buf, &mi, mesh)

	minX := math.Float32frombits(binary.LittleEndian.Uint32(buf[64:68]))
	maxX := math.Float32frombits(binary.LittleEndian.Uint32(buf[80:84]))
	if minX != 4 || maxX != 6 {
		t.Fatalf("encoded AABB X = [%v, %v], want [4, 6] (world-space, mesh translated by +5 on X)", minX, maxX)
	}

	visible := binary.LittleEndian.Uint32(buf[96:100])
	castShadows := binary.LittleEndian.Uint32(buf[100:104])
	if visible != 0 {
		t.Fatalf("encoded visible = %d, want 0 (SetVisible(false) was called)", visible)
	}
	if castShadows != 0 {
		t.Fatalf("encoded castShadows = %d, want 0 (SetCastShadows(false) was called)", castShadows)
	}
}
