// Package world ties the entity table, physics simulation and authority
// resolver together into the single per-tick update the networking core
// drives: advance physics, then resolve which player (if any) currently
// owns each non-player cube, grounded on original_source/world.h's
// world_tick.
package world

import (
	"time"

	"github.com/cubesim/cubes/internal/authority"
	"github.com/cubesim/cubes/internal/entity"
	"github.com/cubesim/cubes/internal/physics"
)

// PlayerForce is the magnitude of the impulse a held direction applies to
// a player's own cube each tick; Push/Pull instead act on whichever
// non-player cube that player currently has authority over, mirroring the
// source's "push away from / pull towards the player" interaction.
const PlayerForce = 30.0

// TickDeltaTime is the fixed simulation step, matching the core's 240Hz
// tick rate.
const TickDeltaTime = time.Second / 240

// PlayerCubeSize and NonPlayerCubeSize match the original demo scene's
// cube dimensions.
const (
	PlayerCubeSize    = 1.5
	NonPlayerCubeSize = 0.4
)

// World owns one tick's worth of simulation state: the entity table, the
// physics simulation backing it, and the authority resolver deciding
// which player drives each non-player cube.
type World struct {
	Entities  *entity.Manager
	Physics   physics.Simulator
	Authority *authority.Resolver

	Frame uint64
	Tick  uint64
	Time  time.Duration

	physToEntity map[int]int
}

// New returns a world with maxPlayers reserved player entity slots.
func New(sim physics.Simulator, maxPlayers int) *World {
	entities := entity.NewManager(maxPlayers)
	isPlayer := func(index int) (int, bool) {
		e, ok := entities.Get(index)
		if !ok || e.Kind != entity.KindPlayer {
			return 0, false
		}
		// Authority values are slot+1 so that slot 0 is distinct from
		// authority.Unowned.
		return e.Owner + 1, true
	}
	return &World{
		Entities:     entities,
		Physics:      sim,
		Authority:    authority.NewResolver(entity.MaxEntities, isPlayer),
		physToEntity: make(map[int]int, entity.MaxEntities),
	}
}

// AddCube creates a cube entity backed by a new physics object. If
// playerSlot is >= 0, the cube occupies that player's already-reserved
// entity slot (entity index playerSlot+1) instead of allocating a new
// one, mirroring world_add_cube's ENTITY_PLAYER_BEGIN special case.
func (w *World) AddCube(state physics.ObjectState, playerSlot int) int {
	handle := w.Physics.AddObject(physics.ShapeCube, state)

	var idx int
	if playerSlot >= 0 {
		idx = playerSlot + 1
		e, _ := w.Entities.Get(idx)
		e.PhysicsIndex = handle
		w.Entities.Set(idx, e)
	} else {
		idx = w.Entities.Allocate(entity.KindCube)
		if idx < 0 {
			w.Physics.RemoveObject(handle)
			return -1
		}
		e, _ := w.Entities.Get(idx)
		e.PhysicsIndex = handle
		w.Entities.Set(idx, e)
	}
	w.physToEntity[handle] = idx
	return idx
}

// SetupCubes populates the classic demo scene: one player cube plus a
// flat grid of resting non-player cubes, matching world_setup_cubes.
func (w *World) SetupCubes(steps int) {
	w.AddCube(physics.ObjectState{
		Position:    physics.Vector3{X: 0, Y: 0, Z: 10},
		Orientation: physics.Quaternion{W: 1},
	}, 0)

	origin := -float64(steps) / 2.0
	z := NonPlayerCubeSize / 2.0
	for y := 0; y < steps; y++ {
		for x := 0; x < steps; x++ {
			w.AddCube(physics.ObjectState{
				Position:    physics.Vector3{X: float64(x) + origin + 0.5, Y: float64(y) + origin + 0.5, Z: z},
				Orientation: physics.Quaternion{W: 1},
			}, -1)
		}
	}
}

// ApplyInput applies one tick's held-key state for the player occupying
// playerSlot: Left/Right/Up/Down push the player's own cube along the
// ground plane, Push/Pull act on whichever non-player cube the authority
// resolver currently has that player controlling, moving it away from or
// towards the player's cube. A player with no cube currently under their
// authority has Push/Pull act as a no-op, same as the source's behavior
// when ENTITY_UNOWNED comes back from the contact graph walk.
func (w *World) ApplyInput(playerSlot int, in entity.Input) {
	ownIdx := playerSlot + 1
	owner, ok := w.Entities.Get(ownIdx)
	if !ok || owner.PhysicsIndex < 0 {
		return
	}

	var force physics.Vector3
	if in.Left {
		force.X -= PlayerForce
	}
	if in.Right {
		force.X += PlayerForce
	}
	if in.Up {
		force.Y += PlayerForce
	}
	if in.Down {
		force.Y -= PlayerForce
	}
	if force != (physics.Vector3{}) {
		w.Physics.ApplyForce(owner.PhysicsIndex, force)
	}

	if !in.Push && !in.Pull {
		return
	}
	ownState := w.Physics.GetObjectState(owner.PhysicsIndex)
	for idx, e := range w.entitiesSnapshot() {
		if e.Kind != entity.KindCube || e.PhysicsIndex < 0 {
			continue
		}
		if w.Authority.Authority(idx) != playerSlot+1 {
			continue
		}
		cubeState := w.Physics.GetObjectState(e.PhysicsIndex)
		dir := physics.Vector3{
			X: cubeState.Position.X - ownState.Position.X,
			Y: cubeState.Position.Y - ownState.Position.Y,
			Z: cubeState.Position.Z - ownState.Position.Z,
		}
		if in.Pull {
			dir = physics.Vector3{X: -dir.X, Y: -dir.Y, Z: -dir.Z}
		}
		w.Physics.ApplyForce(e.PhysicsIndex, physics.Vector3{X: dir.X * PlayerForce, Y: dir.Y * PlayerForce, Z: dir.Z * PlayerForce})
	}
}

// entitiesSnapshot returns every allocated entity keyed by index, for the
// occasional whole-table scan (push/pull target search) that doesn't
// justify adding iteration state to entity.Manager itself.
func (w *World) entitiesSnapshot() map[int]entity.Entity {
	out := make(map[int]entity.Entity, len(w.physToEntity))
	for _, idx := range w.physToEntity {
		if e, ok := w.Entities.Get(idx); ok {
			out[idx] = e
		}
	}
	return out
}

// Step advances physics by one fixed tick and re-resolves cube authority
// against the tick's contact graph.
func (w *World) Step() {
	w.Physics.Step(TickDeltaTime)
	w.Time += TickDeltaTime
	w.Tick++

	w.Authority.Resolve(w.contactGraph, w.isActive, TickDeltaTime)
}

// isActive reports whether the cube at entityIndex is currently moving;
// only a moving cube can pick up authority propagated through the contact
// graph, so a cube resting against a player doesn't get claimed just
// because it happens to be touching.
func (w *World) isActive(entityIndex int) bool {
	e, ok := w.Entities.Get(entityIndex)
	if !ok || e.PhysicsIndex < 0 {
		return false
	}
	return w.Physics.GetObjectState(e.PhysicsIndex).LinearVelocity != (physics.Vector3{})
}

// contactGraph adapts the physics simulator's pairwise interaction list
// (keyed by physics object handle) into the authority resolver's
// entity-index adjacency view.
func (w *World) contactGraph(entityIndex int) []int {
	e, ok := w.Entities.Get(entityIndex)
	if !ok || e.PhysicsIndex < 0 {
		return nil
	}
	var neighbors []int
	for _, pair := range w.Physics.ObjectInteractions() {
		var other int
		switch e.PhysicsIndex {
		case pair.A:
			other = pair.B
		case pair.B:
			other = pair.A
		default:
			continue
		}
		if idx, ok := w.physToEntity[other]; ok {
			neighbors = append(neighbors, idx)
		}
	}
	return neighbors
}
