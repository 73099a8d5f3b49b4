// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenerender

// light.go implements Light, adapted from vu's light.go (a
// plain position+color+linear/angular-attenuation struct with no
// shadow support at all). Shadow casting and its shadow-map slot
// bookkeeping are new.

import "github.com/ashenvale/scenerender/math/lin"

// Light is a point or directional light. Color channels are linear,
// matching vu's light.go convention.
type Light struct {
	Position  lin.V3
	Direction lin.V3
	Color     lin.V3
	Intensity float64

	castsShadows   bool
	shadowMapIndex int // slot in the shadow-map array; valid only if castsShadows.
}

// CastsShadows reports whether this light currently owns a shadow-map
// slot.
func (l *Light) CastsShadows() bool { return l.castsShadows }

// ShadowMapIndex returns the first of the six consecutive shadow-map
// descriptor entries owned by the light's slot (slot × 6). Valid only
// when CastsShadows is true.
func (l *Light) ShadowMapIndex() int { return l.shadowMapIndex * 6 }

// LightManager owns the bounded light list and the shadow-map slot
// table. Shadow-map capacity is a runtime Config value (default 16),
// not a compile-time constant.
type LightManager struct {
	pool *ResourceManager[Light]

	shadowMapCapacity int
	shadowSlots       []ID // ID owning each shadow-map slot; InvalidID if free.
}

// NewLightManager builds a LightManager bounded at maxLights lights and
// shadowMapCapacity shadow-map slots.
func NewLightManager(maxLights, shadowMapCapacity int) *LightManager {
	return &LightManager{
		pool:              NewResourceManager[Light]("light", maxLights),
		shadowMapCapacity: shadowMapCapacity,
		shadowSlots:       make([]ID, shadowMapCapacity),
	}
}

// Create registers a new non-shadow-casting Light.
func (lm *LightManager) Create(l Light) (ID, error) {
	id, _, err := lm.pool.Create(l)
	return id, err
}

// Get returns the Light for id.
func (lm *LightManager) Get(id ID) (*Light, error) { return lm.pool.Get(id) }

// Destroy removes id, first releasing its shadow-map slot if it holds
// one.
func (lm *LightManager) Destroy(id ID) error {
	l, err := lm.pool.Get(id)
	if err != nil {
		return err
	}
	if l.castsShadows {
		lm.shadowSlots[l.shadowMapIndex] = InvalidID
		l.castsShadows = false
	}
	return lm.pool.Destroy(id)
}

// EnableShadowCasting allocates id a shadow-map slot by scanning for the
// first slot still holding InvalidID — the same "scan for the sentinel"
// algorithm ImageManager uses for its image slot table. Returns
// outOfShadowMapCapacity ("Out of memory for shadow map") once every
// slot is taken.
func (lm *LightManager) EnableShadowCasting(id ID) error {
	l, err := lm.pool.Get(id)
	if err != nil {
		return err
	}
	if l.castsShadows {
		return nil
	}
	for slot, owner := range lm.shadowSlots {
		if owner == InvalidID {
			lm.shadowSlots[slot] = id
			l.castsShadows = true
			l.shadowMapIndex = slot
			return nil
		}
	}
	return outOfShadowMapCapacity()
}

// DisableShadowCasting releases id's shadow-map slot, if any.
func (lm *LightManager) DisableShadowCasting(id ID) error {
	l, err := lm.pool.Get(id)
	if err != nil {
		return err
	}
	if !l.castsShadows {
		return nil
	}
	lm.shadowSlots[l.shadowMapIndex] = InvalidID
	l.castsShadows = false
	return nil
}

// Each visits every registered light.
func (lm *LightManager) Each(fn func(id ID, l *Light)) { lm.pool.Each(fn) }
