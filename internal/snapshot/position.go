package snapshot

import (
	"math"

	"github.com/cubesim/cubes/internal/serialize"
)

// positionDeltaBuckets mirrors serialize_relative_position's bucket ladder:
// most deltas are tiny (a cube barely moved between ticks) and cost only a
// handful of bits, while a cube that teleported or was just thrown falls
// through to the widest bucket.
var positionDeltaBuckets = []rangeBucket{{Limit: 15, Bits: 5}, {Limit: 63, Bits: 6}, {Bits: 11}}

// maxPositionDelta is the largest zigzag-encoded delta the bucket ladder
// can represent; beyond it the codec falls back to an absolute position.
var maxPositionDelta = unsignedRangeLimit(positionDeltaBuckets)

// predictPosition estimates a cube's current position from its position in
// the baseline snapshot and the baseline's own recent per-axis velocity
// estimate (CompressionState), applying a small drag term and, on Z, a
// constant gravity term clamped at the ground.
func predictPosition(baseX, baseY, baseZ, deltaX, deltaY, deltaZ int32) (px, py, pz int32) {
	dragX := -int32(math.Ceil(float64(deltaX) * DragFactor))
	dragY := -int32(math.Ceil(float64(deltaY) * DragFactor))
	dragZ := -int32(math.Ceil(float64(deltaZ) * DragFactor))

	px = baseX + deltaX + dragX
	py = baseY + deltaY + dragY
	pz = baseZ + deltaZ - GravityUnits + dragZ
	if pz < GroundLimit {
		pz = GroundLimit
	}
	return
}

// serializePositionRelative reads or writes (curX,curY,curZ) as a delta
// from the predicted position. On read, predX/predY/predZ must already be
// the values computed by predictPosition from the session's own baseline
// and compression state.
func serializePositionRelative(s serialize.Stream, predX, predY, predZ int32, curX, curY, curZ *int32) {
	var dx, dy, dz uint32
	tooLarge := false
	if !s.IsReading() {
		dx = serialize.SignedToUnsigned(*curX - predX)
		dy = serialize.SignedToUnsigned(*curY - predY)
		dz = serialize.SignedToUnsigned(*curZ - predZ)
		tooLarge = dx > maxPositionDelta || dy > maxPositionDelta || dz > maxPositionDelta
	}
	s.SerializeBool(&tooLarge)
	if tooLarge {
		serializeAbsolutePosition(s, curX, curY, curZ)
		return
	}
	serializeUnsignedRange(s, &dx, positionDeltaBuckets)
	serializeUnsignedRange(s, &dy, positionDeltaBuckets)
	serializeUnsignedRange(s, &dz, positionDeltaBuckets)
	if s.IsReading() {
		*curX = predX + serialize.UnsignedToSigned(dx)
		*curY = predY + serialize.UnsignedToSigned(dy)
		*curZ = predZ + serialize.UnsignedToSigned(dz)
	}
}

func serializeAbsolutePosition(s serialize.Stream, x, y, z *int32) {
	s.SerializeInteger(x, -maxUnitsXY, maxUnitsXY)
	s.SerializeInteger(y, -maxUnitsXY, maxUnitsXY)
	s.SerializeInteger(z, 0, maxUnitsZ)
}
