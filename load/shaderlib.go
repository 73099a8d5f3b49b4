// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

// Package load fetches the YAML-described shader library used to map
// renderpasses and pipeline ids to the vertex/fragment shader module
// names a GPU backend should compile.
package load

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ShaderSet names the shader modules a renderpass compiles for one
// pipeline id. Modules are looked up by name only: the shader loader
// collaborator (see gpu.ShaderLoader) resolves names to bytes, so no
// on-disk path is bit-exact here.
type ShaderSet struct {
	Vertex   string `yaml:"vertex"`
	Fragment string `yaml:"fragment"`
}

// ShaderLibrary maps a renderpass name to its default ShaderSet, plus
// any per-material overrides (ShaderMaterial picks its own paths
// instead of the pass default).
type ShaderLibrary struct {
	Defaults  map[string]ShaderSet `yaml:"defaults"`
	Materials map[string]ShaderSet `yaml:"materials"`
}

// Shd loads a shader library description from YAML bytes.
func Shd(data []byte) (*ShaderLibrary, error) {
	lib := &ShaderLibrary{}
	if err := yaml.Unmarshal(data, lib); err != nil {
		return nil, fmt.Errorf("load: shader library yaml: %w", err)
	}
	return lib, nil
}

// Default returns the shader set a renderpass should use for a pipeline
// that has no material-specific override.
func (lib *ShaderLibrary) Default(pass string) (ShaderSet, bool) {
	set, ok := lib.Defaults[pass]
	return set, ok
}

// Material returns the shader set a named ShaderMaterial picked for
// itself, overriding the renderpass default.
func (lib *ShaderLibrary) Material(name string) (ShaderSet, bool) {
	set, ok := lib.Materials[name]
	return set, ok
}
