package simtest

import (
	"testing"
	"time"

	"github.com/cubesim/cubes/internal/physics"
)

func TestFakeFallingBodyClampsAtGround(t *testing.T) {
	f := New(1)
	f.AddPlane(physics.Vector3{Z: 1}, 0)
	h := f.AddObject(physics.ShapeCube, physics.ObjectState{
		Position:       physics.Vector3{Z: 1},
		LinearVelocity: physics.Vector3{Z: -10},
	})
	for i := 0; i < 10; i++ {
		f.Step(100 * time.Millisecond)
	}
	st := f.GetObjectState(h)
	if st.Position.Z < 0 {
		t.Fatalf("position went negative: %v", st.Position.Z)
	}
}

func TestFakeForceIntegration(t *testing.T) {
	f := New(1)
	h := f.AddObject(physics.ShapeCube, physics.ObjectState{Position: physics.Vector3{Z: 5}})
	f.ApplyForce(h, physics.Vector3{X: 1})
	f.Step(time.Second)
	st := f.GetObjectState(h)
	if st.LinearVelocity.X != 1 {
		t.Fatalf("expected velocity 1, got %v", st.LinearVelocity.X)
	}
	if st.Position.X != 1 {
		t.Fatalf("expected position 1, got %v", st.Position.X)
	}
}

func TestFakeInteractionsAtRest(t *testing.T) {
	f := New(2)
	a := f.AddObject(physics.ShapeCube, physics.ObjectState{})
	b := f.AddObject(physics.ShapeCube, physics.ObjectState{})
	f.Step(10 * time.Millisecond)
	if f.NumInteractionPairs() != 1 {
		t.Fatalf("expected one interacting pair, got %d", f.NumInteractionPairs())
	}
	pairs := f.ObjectInteractions()
	if pairs[0].A != a || pairs[0].B != b {
		t.Fatalf("unexpected pair: %+v", pairs[0])
	}
}

func TestRemoveObjectStopsIntegration(t *testing.T) {
	f := New(1)
	h := f.AddObject(physics.ShapeCube, physics.ObjectState{Position: physics.Vector3{Z: 5}, LinearVelocity: physics.Vector3{Z: -1}})
	f.RemoveObject(h)
	f.Step(time.Second)
	st := f.GetObjectState(h)
	if st.Position.Z != 5 {
		t.Fatalf("removed object should not integrate, got %v", st.Position.Z)
	}
}
