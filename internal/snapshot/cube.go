// Package snapshot implements the rigid-body snapshot codec: quantization,
// smallest-three quaternion compression, baseline-relative position and
// orientation deltas with drag/gravity prediction, and the top-level
// index-mode/bitmap-mode framing that picks whichever costs fewer bits for
// a given tick's set of changed cubes.
package snapshot

import "github.com/cubesim/cubes/internal/physics"

// Wire-visible quantization constants, authoritative over the differing
// values in original_source/const.h.
const (
	UnitsPerMeter   = 512
	PositionBoundXY = 255 // meters
	PositionBoundZ  = 31  // meters
	OrientationBits = 9
	NumCubes        = 1024 // == entity.MaxEntities

	maxUnitsXY = PositionBoundXY * UnitsPerMeter
	maxUnitsZ  = PositionBoundZ * UnitsPerMeter

	// GroundLimit and GravityUnits are the prediction constants from
	// original_source/snapshot.h's serialize_cube_relative_to_base.
	GroundLimit  = 105
	GravityUnits = 3
	// DragFactor is 0.0625 (1/16), the corrected value, not the source's
	// literal 0.062f constant.
	DragFactor = 0.0625
)

// QuantizedCubeState is one cube's position (in 1/UnitsPerMeter-meter
// integer units) and orientation (smallest-three compressed), plus a flag
// mirroring whether the cube was part of an active contact/interaction on
// the tick the snapshot describes.
type QuantizedCubeState struct {
	PositionX, PositionY, PositionZ int32
	Orientation                     CompressedQuaternion
	Interacting                     bool
}

// Equal reports whether two quantized states are identical.
func (c QuantizedCubeState) Equal(other QuantizedCubeState) bool { return c == other }

// QuantizePosition converts a physics position into clamped integer units.
func QuantizePosition(p physics.Vector3) (x, y, z int32) {
	x = clampInt32(int32(round(p.X*UnitsPerMeter)), -maxUnitsXY, maxUnitsXY)
	y = clampInt32(int32(round(p.Y*UnitsPerMeter)), -maxUnitsXY, maxUnitsXY)
	z = clampInt32(int32(round(p.Z*UnitsPerMeter)), 0, maxUnitsZ)
	return
}

// DequantizePosition converts integer units back to a physics position.
func DequantizePosition(x, y, z int32) physics.Vector3 {
	return physics.Vector3{
		X: float64(x) / UnitsPerMeter,
		Y: float64(y) / UnitsPerMeter,
		Z: float64(z) / UnitsPerMeter,
	}
}

func round(f float64) float64 {
	if f >= 0 {
		return float64(int64(f + 0.5))
	}
	return float64(int64(f - 0.5))
}

func clampInt32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// QuantizedSnapshot is the full per-tick cube array sent to clients.
type QuantizedSnapshot struct {
	Cubes [NumCubes]QuantizedCubeState
}

// Equal reports whether two snapshots are identical.
func (s *QuantizedSnapshot) Equal(other *QuantizedSnapshot) bool {
	return *s == *other
}
