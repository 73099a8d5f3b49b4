// Copyright © 2013-2015 Galvanized Logic Inc.
// Use is governed by a BSD-style license found in the LICENSE file.

package scenerender

// errors.go implements the error taxonomy as typed errors rather than
// vu's plain fmt.Errorf-and-log style (asset.go logs and degrades to
// nil on a cache miss). Each kind below carries a single, fixed
// propagation policy documented on the type, not on each call site.

import "fmt"

// OutOfCapacityError reports a bounded resource (a manager, the light
// list, the shadow-map slot table) that is already full. Not recoverable
// within the current frame; callers must surface it.
type OutOfCapacityError struct {
	// Message is the full error text. Shadow-map exhaustion uses the
	// literal "Out of memory for shadow map".
	Message string
}

func (e *OutOfCapacityError) Error() string { return e.Message }

func outOfShadowMapCapacity() *OutOfCapacityError {
	return &OutOfCapacityError{Message: "Out of memory for shadow map"}
}

func outOfCapacity(resource string, limit int) *OutOfCapacityError {
	return &OutOfCapacityError{Message: fmt.Sprintf("scenerender: out of capacity for %s (limit %d)", resource, limit)}
}

// InvalidHandleError reports a missing resource or a configuration
// missing a required field. Programmer error; thrown from manager
// accessors.
type InvalidHandleError struct {
	Kind string
	ID   ID
}

func (e *InvalidHandleError) Error() string {
	if e.ID == InvalidID {
		return fmt.Sprintf("scenerender: invalid %s handle", e.Kind)
	}
	return fmt.Sprintf("scenerender: unknown %s handle %d", e.Kind, e.ID)
}

// UploadPreconditionError reports a mesh instance added before its mesh
// was uploaded, or a mesh referenced without any material. Assertion
// failure; always a caller bug.
type UploadPreconditionError struct {
	Reason string
}

func (e *UploadPreconditionError) Error() string {
	return fmt.Sprintf("scenerender: upload precondition violated: %s", e.Reason)
}

// BackendFailureError wraps a GPU-backend failure (pipeline/shader
// creation, swap-chain recreation). Propagates to the frame loop, which
// drops the current frame and logs.
type BackendFailureError struct {
	Op  string
	Err error
}

func (e *BackendFailureError) Error() string {
	return fmt.Sprintf("scenerender: backend failure during %s: %v", e.Op, e.Err)
}

func (e *BackendFailureError) Unwrap() error { return e.Err }

// TransientAcquireFailureError reports a swap-chain acquire that failed
// because the surface is out of date. Swallowed by RenderTarget.render;
// the next frame simply retries.
type TransientAcquireFailureError struct {
	Reason string
}

func (e *TransientAcquireFailureError) Error() string {
	return fmt.Sprintf("scenerender: transient acquire failure: %s", e.Reason)
}
