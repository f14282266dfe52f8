// Package physics declares the boundary between the networking core and
// the rigid-body solver. The solver itself (an ODE-style engine) is an
// external collaborator and out of scope for this module; only the
// interface the core drives it through lives here.
package physics

import "time"

// Shape enumerates the solver object shapes the core knows about. Only
// cubes exist in this world.
type Shape int

const (
	ShapeCube Shape = iota
)

// Clamp limits applied by a conforming Simulator implementation inside
// Step; the core does not enforce these itself.
const (
	ClampLinearSpeed  = 31.0
	ClampAngularSpeed = 15.0
)

// Vector3 is a plain 3-component vector; the core never needs SIMD types.
type Vector3 struct {
	X, Y, Z float64
}

// Quaternion is a plain w,x,y,z orientation; Normalized() is the caller's
// responsibility before it's handed to Simulator.SetState.
type Quaternion struct {
	W, X, Y, Z float64
}

// ObjectState is a rigid body's full kinematic state at some instant.
type ObjectState struct {
	Position        Vector3
	Orientation     Quaternion
	LinearVelocity  Vector3
	AngularVelocity Vector3
}

// Interaction identifies two objects found touching (or otherwise
// constrained together, e.g. via a joint) during the most recent Step.
type Interaction struct {
	A, B int
}

// Simulator is the black-box rigid-body engine the networking core drives.
// Bodies are identified by the handles AddObject returns; a plane added via
// AddPlane gets its own handle and is never one of those.
type Simulator interface {
	// AddObject creates a new dynamic body of the given shape and returns
	// its handle.
	AddObject(shape Shape, state ObjectState) int
	// RemoveObject destroys a previously added body.
	RemoveObject(handle int)
	// AddPlane adds a static collision plane (e.g. the ground) and returns
	// its handle.
	AddPlane(normal Vector3, distance float64) int
	// GetObjectState returns the current state of handle.
	GetObjectState(handle int) ObjectState
	// SetObjectState forcibly overwrites handle's state (used when
	// applying an authoritative snapshot on the client).
	SetObjectState(handle int, state ObjectState)
	// ApplyForce/ApplyTorque accumulate an impulse to be integrated on the
	// next Step.
	ApplyForce(handle int, force Vector3)
	ApplyTorque(handle int, torque Vector3)
	// ObjectInteractions returns the contact/joint pairs observed during
	// the most recently completed Step.
	ObjectInteractions() []Interaction
	// NumInteractionPairs is a cheap count, avoiding an allocation when the
	// caller only needs the size.
	NumInteractionPairs() int
	// Step advances the simulation by dt, recomputing contacts.
	Step(dt time.Duration)
	// Reset removes all dynamic objects, keeping planes.
	Reset()
}
