// Copyright © 2013-2014 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenerender

import (
	"github.com/ashenvale/scenerender/math/lin"
)

// camera.go implements Camera, adapted from vu's
// camera.go. vu tracks Loc/Rot directly on an embedded pov and
// derives the view matrix with vm.SetQ(c.Rot).TranslateTM(-Loc). This
// package instead stores a *lin.T (the transform already used by
// scenegraph nodes) and derives the view matrix from it: translate by
// -Loc, then rotate by the conjugate of Rot.

// Camera is the viewpoint a scene is rendered from: a transform plus a
// projection. Unlike vu's camera, which exposes several
// interchangeable view-transform modes (vp/vo/vf/xz_xy), this package
// only needs the standard perspective viewpoint transform (C6's
// SceneRenderContext takes a single camera per update).
type Camera struct {
	Transform lin.T

	fov, aspect, near, far float64
}

// NewCamera returns a Camera at the identity transform with no
// projection configured yet.
func NewCamera() *Camera {
	return &Camera{Transform: lin.T{Loc: &lin.V3{}, Rot: lin.NewQI()}}
}

// SetPerspective configures a perspective projection, fov in degrees.
func (c *Camera) SetPerspective(fov, aspect, near, far float64) {
	c.fov, c.aspect, c.near, c.far = fov, aspect, near, far
}

// ViewMatrix returns the inverse of Transform: the matrix of the inverse
// (conjugate) rotation with the -Loc translation applied before it. It is
// the inverse of the viewInverse matrix that encodeSceneData builds.
func (c *Camera) ViewMatrix() *lin.M4 {
	vm := &lin.M4{}
	vm.SetQ(lin.NewQ().Inv(c.Transform.Rot))
	return vm.TranslateTM(-c.Transform.Loc.X, -c.Transform.Loc.Y, -c.Transform.Loc.Z)
}

// ProjectionMatrix returns the configured perspective projection. If
// SetPerspective was never called, the projection is built from zero
// parameters and holds infinite and NaN entries; it does not panic.
func (c *Camera) ProjectionMatrix() *lin.M4 {
	pm := &lin.M4{}
	return pm.Persp(c.fov, c.aspect, c.near, c.far)
}

// ViewProjection returns ProjectionMatrix() * ViewMatrix(), the matrix
// uploaded to the per-frame uniform buffer every SceneRenderContext.update.
func (c *Camera) ViewProjection() *lin.M4 {
	vm := c.ViewMatrix()
	pm := c.ProjectionMatrix()
	vp := &lin.M4{}
	return vp.Mult(vm, pm)
}
