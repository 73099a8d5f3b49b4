// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenerender

// material.go implements Material, adapted from vu's material.go
// (name/tag-keyed diffuse/ambient/specular + transparency struct)
// generalized into a Standard/Shader variant pair with a
// deterministically hashed pipeline id.

import (
	"github.com/cespare/xxhash/v2"

	"github.com/ashenvale/scenerender/gpu"
)

// Transparency selects how a material's alpha is treated by the
// renderpasses.
type Transparency int

const (
	TransparencyDisabled Transparency = iota
	TransparencyAlpha
	TransparencyScissor
)

// CullMode selects backface culling behavior.
type CullMode int

const (
	CullBack CullMode = iota
	CullFront
	CullNone
)

// MaterialKind distinguishes Standard materials (fixed-function
// pipeline) from Shader materials (custom shader modules).
type MaterialKind int

const (
	MaterialStandard MaterialKind = iota
	MaterialShader
)

// Material is a Standard or Shader material. Two materials with
// identical pipeline-relevant fields ({Kind, Transparency, CullMode,
// ShaderName}) hash to the same PipelineID.
type Material struct {
	Kind         MaterialKind
	Transparency Transparency
	CullMode     CullMode

	// ShaderName is set only for MaterialShader; it is part of the
	// pipeline-defining state so distinct shaders get distinct
	// pipelines even with otherwise-identical flags.
	ShaderName string

	Textures []ID // optional, not pipeline-defining.

	pipelineID uint32
	index      int // slot in the global material SSBO, set by upload.
	uploaded   bool
}

// PipelineID returns the 32-bit hash of this material's defining state.
func (m *Material) PipelineID() uint32 { return m.pipelineID }

// Index returns this material's slot in the global material SSBO.
// Valid only once uploaded.
func (m *Material) Index() int { return m.index }

// pipelineID hashes the material-defining state with xxhash.Sum64,
// folded to 32 bits — a fast, deterministic digest that's fine for a
// bucketing hash never persisted or compared across runs (see
// DESIGN.md).
func pipelineID(m *Material) uint32 {
	buf := make([]byte, 0, 32+len(m.ShaderName))
	buf = append(buf, byte(m.Kind), byte(m.Transparency), byte(m.CullMode))
	buf = append(buf, m.ShaderName...)
	h := xxhash.Sum64(buf)
	return uint32(h ^ (h >> 32))
}

// MaterialManager owns every Material and the global material SSBO.
type MaterialManager struct {
	pool *ResourceManager[Material]

	data *DeviceMemoryArray
	free []int // freed SSBO slots, reused on next upload.
	next int   // next never-used SSBO slot.
}

// materialDataStride matches MaterialData: {pipelineID, transparency,
// cullMode, flags} as four uint32 fields; textures are referenced by
// index from the bindless array, not embedded here.
const materialDataStride = 4 * 4

// NewMaterialManager builds a MaterialManager bounded at maxMaterials,
// backed by a global material SSBO sized for the same capacity.
func NewMaterialManager(dev gpu.Device, maxMaterials int) (*MaterialManager, error) {
	data, err := NewDeviceMemoryArray(dev, materialDataStride, maxMaterials, "material:data")
	if err != nil {
		return nil, err
	}
	return &MaterialManager{
		pool: NewResourceManager[Material]("material", maxMaterials),
		data: data,
	}, nil
}

// Create registers a new Material and computes its PipelineID
// immediately — the id is pure data-derived and needs no GPU upload.
func (mm *MaterialManager) Create(m Material) (ID, error) {
	m.pipelineID = pipelineID(&m)
	id, _, err := mm.pool.Create(m)
	return id, err
}

// Get returns the Material for id.
func (mm *MaterialManager) Get(id ID) (*Material, error) { return mm.pool.Get(id) }

// IsUploaded reports whether id's material SSBO slot has been written.
func (mm *MaterialManager) IsUploaded(id ID) bool {
	m, err := mm.pool.Get(id)
	if err != nil {
		return false
	}
	return m.uploaded
}

// Upload allocates (or reuses a freed) SSBO slot for id and writes its
// MaterialData.
func (mm *MaterialManager) Upload(cmd gpu.CommandList, id ID) error {
	m, err := mm.pool.Get(id)
	if err != nil {
		return err
	}
	if m.uploaded {
		return nil
	}
	if len(mm.free) > 0 {
		m.index = mm.free[len(mm.free)-1]
		mm.free = mm.free[:len(mm.free)-1]
	} else {
		m.index = mm.next
		mm.next++
	}
	block := MemoryBlock{Index: m.index, Count: 1}
	data := make([]byte, materialDataStride)
	putUint32(data, 0, m.pipelineID)
	putUint32(data, 4, uint32(m.Transparency))
	putUint32(data, 8, uint32(m.CullMode))
	putUint32(data, 12, 0)
	if err := mm.data.Write(block, data); err != nil {
		return err
	}
	mm.data.Flush(cmd)
	mm.data.PostBarrier(cmd)
	m.uploaded = true
	return nil
}

// Destroy frees id's SSBO slot (if uploaded) and removes it from the
// pool.
func (mm *MaterialManager) Destroy(id ID) error {
	m, err := mm.pool.Get(id)
	if err != nil {
		return err
	}
	if m.uploaded {
		mm.free = append(mm.free, m.index)
	}
	return mm.pool.Destroy(id)
}
