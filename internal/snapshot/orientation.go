package snapshot

import "github.com/cubesim/cubes/internal/serialize"

// orientationDeltaBuckets mirrors serialize_relative_orientation's small
// ladder for the common case where a resting or slowly-tumbling cube's
// compressed quaternion barely changes component-by-component tick to
// tick.
var orientationDeltaBuckets = []rangeBucket{{Limit: 3, Bits: 4}, {Limit: 15, Bits: 5}, {Bits: 7}}

var maxOrientationDelta = unsignedRangeLimit(orientationDeltaBuckets)

// smallOrientationDeltaLimit is the largest per-component delta that fits
// the 2-bit all_small fast path below.
const smallOrientationDeltaLimit = 3

// serializeOrientationRelative reads or writes cur as a delta from base
// when both share the same "largest omitted component" index and every
// component delta fits the bucket ladder; otherwise it falls back to
// writing cur in full (absolute) form. Within the relative case, a nested
// all_small bit selects a flat 2-bit-per-component fast path for the very
// common case of a barely-rotating cube, ahead of the general bucket
// ladder.
func serializeOrientationRelative(s serialize.Stream, base CompressedQuaternion, cur *CompressedQuaternion) {
	relative := false
	allSmall := false
	var da, db, dc uint32
	if !s.IsReading() {
		if base.Largest == cur.Largest {
			da = serialize.SignedToUnsigned(cur.A - base.A)
			db = serialize.SignedToUnsigned(cur.B - base.B)
			dc = serialize.SignedToUnsigned(cur.C - base.C)
			relative = da <= maxOrientationDelta && db <= maxOrientationDelta && dc <= maxOrientationDelta
			allSmall = da <= smallOrientationDeltaLimit && db <= smallOrientationDeltaLimit && dc <= smallOrientationDeltaLimit
		}
	}
	s.SerializeBool(&relative)
	if relative {
		s.SerializeBool(&allSmall)
		if allSmall {
			encodeFixed(s, &da, 2)
			encodeFixed(s, &db, 2)
			encodeFixed(s, &dc, 2)
		} else {
			serializeUnsignedRange(s, &da, orientationDeltaBuckets)
			serializeUnsignedRange(s, &db, orientationDeltaBuckets)
			serializeUnsignedRange(s, &dc, orientationDeltaBuckets)
		}
		if s.IsReading() {
			cur.Largest = base.Largest
			cur.A = base.A + serialize.UnsignedToSigned(da)
			cur.B = base.B + serialize.UnsignedToSigned(db)
			cur.C = base.C + serialize.UnsignedToSigned(dc)
		}
		return
	}
	cur.Serialize(s, OrientationBits)
}
