// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenerender

import (
	"testing"

	"github.com/ashenvale/scenerender/gpu"
)

// TestMaterialPipelineIDDeterministic verifies that two materials with
// identical pipeline-defining fields hash to the same PipelineID
// regardless of their non-defining fields (Textures).
func TestMaterialPipelineIDDeterministic(t *testing.T) {
	dev := gpu.NewFakeDevice()
	mm, err := NewMaterialManager(dev, 8)
	if err != nil {
		t.Fatalf("NewMaterialManager: %v", err)
	}

	a, err := mm.Create(Material{Kind: MaterialShader, Transparency: TransparencyAlpha, CullMode: CullNone, ShaderName: "foil", Textures: []ID{1, 2}})
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	b, err := mm.Create(Material{Kind: MaterialShader, Transparency: TransparencyAlpha, CullMode: CullNone, ShaderName: "foil"})
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}

	ma, _ := mm.Get(a)
	mb, _ := mm.Get(b)
	if ma.PipelineID() != mb.PipelineID() {
		t.Fatalf("PipelineID mismatch for identical defining fields: %d != %d", ma.PipelineID(), mb.PipelineID())
	}
}

func TestMaterialPipelineIDDistinguishesShaderName(t *testing.T) {
	dev := gpu.NewFakeDevice()
	mm, err := NewMaterialManager(dev, 8)
	if err != nil {
		t.Fatalf("NewMaterialManager: %v", err)
	}

	a, err := mm.Create(Material{Kind: MaterialShader, ShaderName: "foil"})
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	b, err := mm.Create(Material{Kind: MaterialShader, ShaderName: "glass"})
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}

	ma, _ := mm.Get(a)
	mb, _ := mm.Get(b)
	if ma.PipelineID() == mb.PipelineID() {
		t.Fatalf("distinct ShaderName produced the same PipelineID %d", ma.PipelineID())
	}
}

func TestMaterialUploadReusesFreedSlot(t *testing.T) {
	dev := gpu.NewFakeDevice()
	mm, err := NewMaterialManager(dev, 8)
	if err != nil {
		t.Fatalf("NewMaterialManager: %v", err)
	}
	cmd, err := dev.CreateCommandList(gpu.QueueTransfer)
	if err != nil {
		t.Fatalf("CreateCommandList: %v", err)
	}

	a, err := mm.Create(Material{Kind: MaterialStandard})
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if err := mm.Upload(cmd, a); err != nil {
		t.Fatalf("Upload a: %v", err)
	}
	ma, _ := mm.Get(a)
	firstSlot := ma.Index()

	if err := mm.Destroy(a); err != nil {
		t.Fatalf("Destroy a: %v", err)
	}

	b, err := mm.Create(Material{Kind: MaterialStandard})
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}
	if err := mm.Upload(cmd, b); err != nil {
		t.Fatalf("Upload b: %v", err)
	}
	mb, _ := mm.Get(b)
	if mb.Index() != firstSlot {
		t.Fatalf("Upload after Destroy got slot %d, want reused slot %d", mb.Index(), firstSlot)
	}
}
