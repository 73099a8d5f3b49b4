// Copyright © 2022 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenerender

import "gopkg.in/yaml.v3"

// config.go reduces the Context API footprint using functional options.
// See: http://dave.cheney.net/2014/10/17/functional-options-for-friendly-apis
// Pattern and defaults style carried over from vu's config.go.

// Config holds the capacities and tunables a Context is built with.
type Config struct {
	framesInFlight int // number of in-flight GPU submissions, typically 2-3.

	maxMeshes, maxMeshInstances, maxMaterials, maxImages int // manager capacities.
	maxMeshSurfacesPerPipeline                           int // GraphicPipelineData instance table size.
	maxLights                                            int // lights UBO cap.
	maxShadowMaps                                         int // shadow-map descriptor slots, stride 6.
	maxAsyncNodesUpdatedPerFrame                          int // SceneContext back-pressure.
}

// configDefaults provides reasonable defaults so a Context can be built
// with no options at all.
var configDefaults = Config{
	framesInFlight: 2,

	maxMeshes:        4096,
	maxMeshInstances: 16384,
	maxMaterials:     1024,
	maxImages:        1024,

	maxMeshSurfacesPerPipeline: 8192,
	maxLights:                  256,
	// maxShadowMaps default of 16 follows the original engine's
	// compile-time constant; here it's a runtime-overridable value.
	maxShadowMaps: 16,

	maxAsyncNodesUpdatedPerFrame: 64,
}

// Option configures a Context at construction time.
type Option func(*Config)

// FramesInFlight sets the number of in-flight GPU submissions.
func FramesInFlight(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.framesInFlight = n
		}
	}
}

// Capacities bounds the Mesh/MeshInstance/Material/Image managers.
func Capacities(meshes, meshInstances, materials, images int) Option {
	return func(c *Config) {
		if meshes > 0 {
			c.maxMeshes = meshes
		}
		if meshInstances > 0 {
			c.maxMeshInstances = meshInstances
		}
		if materials > 0 {
			c.maxMaterials = materials
		}
		if images > 0 {
			c.maxImages = images
		}
	}
}

// MaxMeshSurfacesPerPipeline bounds a GraphicPipelineData's instance
// table and draw-command list.
func MaxMeshSurfacesPerPipeline(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.maxMeshSurfacesPerPipeline = n
		}
	}
}

// MaxLights bounds the per-frame lights UBO.
func MaxLights(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.maxLights = n
		}
	}
}

// MaxShadowMaps bounds the shadow-map descriptor array (stride 6 per
// map: position/cascade faces).
func MaxShadowMaps(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.maxShadowMaps = n
		}
	}
}

// MaxAsyncNodesUpdatedPerFrame bounds how many queued async adds/removes
// SceneContext.processDeferredOperations drains per frame.
func MaxAsyncNodesUpdatedPerFrame(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.maxAsyncNodesUpdatedPerFrame = n
		}
	}
}

// yamlConfig mirrors Config's tunables for on-disk capacity tables,
// following vu's load/shd.go use of gopkg.in/yaml.v3 for
// engine-internal descriptor files.
type yamlConfig struct {
	FramesInFlight                int `yaml:"framesInFlight"`
	MaxMeshes                     int `yaml:"maxMeshes"`
	MaxMeshInstances              int `yaml:"maxMeshInstances"`
	MaxMaterials                  int `yaml:"maxMaterials"`
	MaxImages                     int `yaml:"maxImages"`
	MaxMeshSurfacesPerPipeline    int `yaml:"maxMeshSurfacesPerPipeline"`
	MaxLights                     int `yaml:"maxLights"`
	MaxShadowMaps                 int `yaml:"maxShadowMaps"`
	MaxAsyncNodesUpdatedPerFrame  int `yaml:"maxAsyncNodesUpdatedPerFrame"`
}

// FromYAML parses a capacity table and returns it as Options, so they
// can be combined with programmatic Options and passed to NewContext.
// Fields left at zero in the table keep their defaults.
func FromYAML(data []byte) ([]Option, error) {
	var y yamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, err
	}
	return []Option{
		FramesInFlight(y.FramesInFlight),
		Capacities(y.MaxMeshes, y.MaxMeshInstances, y.MaxMaterials, y.MaxImages),
		MaxMeshSurfacesPerPipeline(y.MaxMeshSurfacesPerPipeline),
		MaxLights(y.MaxLights),
		MaxShadowMaps(y.MaxShadowMaps),
		MaxAsyncNodesUpdatedPerFrame(y.MaxAsyncNodesUpdatedPerFrame),
	}, nil
}
