// Package simtest provides a deterministic, allocation-free Simulator fake
// used by tests and by cmd/cubes-server's world simulation. It is not a
// rigid-body solver: bodies drift under a constant, scripted velocity and
// never collide with anything but the single ground plane, which is enough
// to exercise the session, world and authority code end to end without a
// real physics engine binding.
package simtest

import (
	"time"

	"github.com/cubesim/cubes/internal/physics"
)

type body struct {
	state physics.ObjectState
	force physics.Vector3
	alive bool
}

// Fake implements physics.Simulator with simple, deterministic integration:
// position += velocity*dt, velocity += force*dt (force cleared each Step).
// A single ground plane at z=0 clamps Position.Z to be non-negative.
type Fake struct {
	bodies      []body
	planes      int
	interacting []physics.Interaction
}

// New returns an empty Fake with capacity for n bodies.
func New(n int) *Fake {
	return &Fake{bodies: make([]body, 0, n)}
}

func (f *Fake) AddObject(shape physics.Shape, state physics.ObjectState) int {
	f.bodies = append(f.bodies, body{state: state, alive: true})
	return len(f.bodies) - 1
}

func (f *Fake) RemoveObject(handle int) {
	if handle < 0 || handle >= len(f.bodies) {
		return
	}
	f.bodies[handle].alive = false
}

func (f *Fake) AddPlane(normal physics.Vector3, distance float64) int {
	f.planes++
	return -(f.planes)
}

func (f *Fake) GetObjectState(handle int) physics.ObjectState {
	if handle < 0 || handle >= len(f.bodies) {
		return physics.ObjectState{}
	}
	return f.bodies[handle].state
}

func (f *Fake) SetObjectState(handle int, state physics.ObjectState) {
	if handle < 0 || handle >= len(f.bodies) {
		return
	}
	f.bodies[handle].state = state
}

func (f *Fake) ApplyForce(handle int, force physics.Vector3) {
	if handle < 0 || handle >= len(f.bodies) {
		return
	}
	b := &f.bodies[handle]
	b.force.X += force.X
	b.force.Y += force.Y
	b.force.Z += force.Z
}

func (f *Fake) ApplyTorque(handle int, torque physics.Vector3) {
	// The fake does not model angular dynamics beyond holding orientation
	// fixed; torque is accepted but has no effect.
}

func (f *Fake) ObjectInteractions() []physics.Interaction { return f.interacting }

func (f *Fake) NumInteractionPairs() int { return len(f.interacting) }

func (f *Fake) Step(dt time.Duration) {
	seconds := dt.Seconds()
	f.interacting = f.interacting[:0]
	for i := range f.bodies {
		b := &f.bodies[i]
		if !b.alive {
			continue
		}
		b.state.LinearVelocity.X += b.force.X * seconds
		b.state.LinearVelocity.Y += b.force.Y * seconds
		b.state.LinearVelocity.Z += b.force.Z * seconds
		b.force = physics.Vector3{}

		b.state.Position.X += b.state.LinearVelocity.X * seconds
		b.state.Position.Y += b.state.LinearVelocity.Y * seconds
		b.state.Position.Z += b.state.LinearVelocity.Z * seconds
		if b.state.Position.Z < 0 {
			b.state.Position.Z = 0
			b.state.LinearVelocity.Z = 0
		}
	}
	for i := range f.bodies {
		if !f.bodies[i].alive || f.bodies[i].state.Position.Z > 0.001 {
			continue
		}
		for j := i + 1; j < len(f.bodies); j++ {
			if f.bodies[j].alive && f.bodies[j].state.Position.Z <= 0.001 {
				f.interacting = append(f.interacting, physics.Interaction{A: i, B: j})
			}
		}
	}
}

func (f *Fake) Reset() {
	f.bodies = f.bodies[:0]
	f.interacting = nil
}
