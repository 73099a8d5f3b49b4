// Copyright © 2025-present Henri Michelon. MIT License.
// Go reimplementation for this repository.

package scenerender

// scenecontext.go implements SceneContext: the public scene
// mutation API, fanning adds/removes/updates into a per-in-flight-frame
// delta queue. Grounded on vu's app.go application struct
// (component managers + a per-tick update() cascading into every
// collaborator) generalized from a single current/previous double
// buffer into an N-wide delta queue, and on vu.go's request/reply
// channel idiom for the async/immediate split.

import "sync"

// sceneDelta is one queued mutation awaiting ProcessDeferredOperations
// for a specific in-flight frame.
type sceneDelta struct {
	add   bool // true: add, false: remove
	async bool
	id    ID
}

// SceneContext fans scene mutations out to every in-flight frame's
// delta queue and owns the ambient/environment/camera state that is
// refreshed at the top of each update instead of being queued.
type SceneContext struct {
	mu sync.Mutex

	scene          *SceneRenderContext
	meshInstances  *MeshInstanceManager
	framesInFlight int
	maxAsyncPerFrame int

	deltas [][]sceneDelta // one slice per in-flight frame.
	updates [][]ID        // pending idempotent transform updates, per frame.

	activeCamera ID
}

// NewSceneContext builds a SceneContext fanning into framesInFlight
// delta queues, bounding async batches at maxAsyncPerFrame to keep a
// single frame's worth of work from starving the others.
func NewSceneContext(scene *SceneRenderContext, meshInstances *MeshInstanceManager, framesInFlight, maxAsyncPerFrame int) *SceneContext {
	sc := &SceneContext{
		scene:            scene,
		meshInstances:    meshInstances,
		framesInFlight:   framesInFlight,
		maxAsyncPerFrame: maxAsyncPerFrame,
		deltas:           make([][]sceneDelta, framesInFlight),
		updates:          make([][]ID, framesInFlight),
	}
	return sc
}

// AddInstance registers mi and fans the add into every in-flight
// frame's delta queue so each frame's ProcessDeferredOperations
// observes it exactly once.
func (sc *SceneContext) AddInstance(mi MeshInstance, async bool) (ID, error) {
	id, err := sc.meshInstances.Create(mi)
	if err != nil {
		return InvalidID, err
	}
	sc.mu.Lock()
	for i := range sc.deltas {
		sc.deltas[i] = append(sc.deltas[i], sceneDelta{add: true, async: async, id: id})
	}
	sc.mu.Unlock()
	return id, nil
}

// RemoveInstance fans the removal into every in-flight frame's delta
// queue and prunes any queued update for the same instance so a
// re-added instance is not resurrected from a stale queued update.
func (sc *SceneContext) RemoveInstance(id ID, async bool) {
	sc.mu.Lock()
	for i := range sc.deltas {
		sc.deltas[i] = append(sc.deltas[i], sceneDelta{add: false, async: async, id: id})
		sc.updates[i] = pruneID(sc.updates[i], id)
	}
	sc.mu.Unlock()
}

// UpdateInstance queues an idempotent transform-refresh for id in every
// in-flight frame.
func (sc *SceneContext) UpdateInstance(id ID) {
	sc.mu.Lock()
	for i := range sc.updates {
		sc.updates[i] = append(sc.updates[i], id)
	}
	sc.mu.Unlock()
}

// addInstance looks up d.id's canonical *MeshInstance — the one the
// shared MeshInstanceManager holds, not the value copy embedded in the
// queued delta — so sc.scene.AddInstance's MarkDirty lands on the
// instance Update() actually re-encodes.
func (sc *SceneContext) addInstance(d sceneDelta) error {
	mi, err := sc.meshInstances.Get(d.id)
	if err != nil {
		return err
	}
	return sc.scene.AddInstance(d.id, mi)
}

func pruneID(ids []ID, remove ID) []ID {
	out := ids[:0]
	for _, id := range ids {
		if id != remove {
			out = append(out, id)
		}
	}
	return out
}

// SetAmbientLight is a direct, un-queued setter applied immediately;
// its effect is observed at the top of the next Update, matching the
// vu's app.state single-slot "refreshed each update" pattern.
func (sc *SceneContext) SetAmbientLight(r, g, b float64) { sc.scene.SetAmbientLight(r, g, b) }

// ActivateCamera records id as the active camera, direct and
// un-queued. The recorded id is not read anywhere in this package:
// SceneRenderContext.Update takes its camera as an argument.
func (sc *SceneContext) ActivateCamera(id ID) {
	sc.mu.Lock()
	sc.activeCamera = id
	sc.mu.Unlock()
}

// ProcessDeferredOperations drains frameIndex's delta queue before that
// frame's render pass: immediate removes, then a bounded batch of async
// removes, then immediate adds, then a bounded batch of async adds,
// then updates. Async entries beyond maxAsyncPerFrame stay queued for
// the next call. Removes are processed before adds so a same-tick
// remove-then-add never leaves a ghost instance registered; an add
// queued before a remove of the same id is dropped, so a same-tick
// add-then-remove never registers the instance either.
func (sc *SceneContext) ProcessDeferredOperations(frameIndex int) error {
	sc.mu.Lock()
	pending := sc.deltas[frameIndex]
	sc.deltas[frameIndex] = nil
	pendingUpdates := sc.updates[frameIndex]
	sc.updates[frameIndex] = nil
	sc.mu.Unlock()

	// An add followed later in the same batch by a remove of the same id
	// is dropped, so an add-then-remove never leaves the instance registered.
	cancelled := make(map[int]bool)
	removedLater := make(map[ID]bool)
	for i := len(pending) - 1; i >= 0; i-- {
		if !pending[i].add {
			removedLater[pending[i].id] = true
		} else if removedLater[pending[i].id] {
			cancelled[i] = true
		}
	}

	var immediateRemoves, asyncRemoves, immediateAdds, asyncAdds []sceneDelta
	for i, d := range pending {
		if cancelled[i] {
			continue
		}
		switch {
		case !d.add && !d.async:
			immediateRemoves = append(immediateRemoves, d)
		case !d.add && d.async:
			asyncRemoves = append(asyncRemoves, d)
		case d.add && !d.async:
			immediateAdds = append(immediateAdds, d)
		default:
			asyncAdds = append(asyncAdds, d)
		}
	}
	var deferred []sceneDelta
	if len(asyncRemoves) > sc.maxAsyncPerFrame {
		deferred = append(deferred, asyncRemoves[sc.maxAsyncPerFrame:]...)
	}
	if len(asyncAdds) > sc.maxAsyncPerFrame {
		deferred = append(deferred, asyncAdds[sc.maxAsyncPerFrame:]...)
	}
	if len(deferred) > 0 {
		sc.mu.Lock()
		sc.deltas[frameIndex] = append(deferred, sc.deltas[frameIndex]...)
		sc.mu.Unlock()
	}

	for _, d := range immediateRemoves {
		sc.scene.RemoveInstance(d.id)
	}
	for i, d := range asyncRemoves {
		if i >= sc.maxAsyncPerFrame {
			break
		}
		sc.scene.RemoveInstance(d.id)
	}
	for _, d := range immediateAdds {
		if err := sc.addInstance(d); err != nil {
			return err
		}
	}
	for i, d := range asyncAdds {
		if i >= sc.maxAsyncPerFrame {
			break
		}
		if err := sc.addInstance(d); err != nil {
			return err
		}
	}
	for _, id := range pendingUpdates {
		if mi, err := sc.meshInstances.Get(id); err == nil {
			mi.MarkDirty(sc.framesInFlight)
		}
	}
	return nil
}
