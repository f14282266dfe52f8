package world

import (
	"github.com/cubesim/cubes/internal/entity"
	"github.com/cubesim/cubes/internal/snapshot"
)

// Quantize packs the current tick's cube states into the wire-ready
// snapshot form, indexed identically to the entity table (snapshot.NumCubes
// == entity.MaxEntities, so cube slot i is always entity index i).
func (w *World) Quantize() *snapshot.QuantizedSnapshot {
	out := &snapshot.QuantizedSnapshot{}
	interacting := w.interactingSet()
	for i := 0; i < snapshot.NumCubes && i < entity.MaxEntities; i++ {
		e, ok := w.Entities.Get(i)
		if !ok || e.PhysicsIndex < 0 {
			continue
		}
		state := w.Physics.GetObjectState(e.PhysicsIndex)
		x, y, z := snapshot.QuantizePosition(state.Position)
		out.Cubes[i] = snapshot.QuantizedCubeState{
			PositionX:   x,
			PositionY:   y,
			PositionZ:   z,
			Orientation: snapshot.CompressQuaternion(state.Orientation, snapshot.OrientationBits),
			Interacting: interacting[i],
		}
	}
	return out
}

// interactingSet returns, by entity index, whether each cube took part in
// any contact pair on the tick just simulated.
func (w *World) interactingSet() map[int]bool {
	out := make(map[int]bool, len(w.physToEntity))
	for _, pair := range w.Physics.ObjectInteractions() {
		if idx, ok := w.physToEntity[pair.A]; ok {
			out[idx] = true
		}
		if idx, ok := w.physToEntity[pair.B]; ok {
			out[idx] = true
		}
	}
	return out
}
