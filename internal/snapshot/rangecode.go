package snapshot

import "github.com/cubesim/cubes/internal/serialize"

// rangeBucket is one step of a variable-width "ranged" unsigned integer
// code: values up to Limit encode in Bits bits; larger values are shifted
// down by Limit+1 and handed to the next bucket. This is the Go form of
// original_source/snapshot.h's serialize_unsigned_range: a short prefix of
// "does it fit" bits followed by a fixed-width payload, so the common case
// (small deltas) costs only a handful of bits while large, rare deltas are
// still representable.
type rangeBucket struct {
	Limit uint32
	Bits  int
}

// serializeUnsignedRange reads or writes *value using the bucket ladder in
// buckets. The last bucket has no "exceeds" prefix bit: its width must be
// large enough for every value that reaches it.
func serializeUnsignedRange(s serialize.Stream, value *uint32, buckets []rangeBucket) {
	remaining := *value
	offset := uint32(0)
	for i := 0; i < len(buckets)-1; i++ {
		exceeds := false
		if !s.IsReading() {
			exceeds = remaining > buckets[i].Limit
		}
		s.SerializeBool(&exceeds)
		if !exceeds {
			encodeFixed(s, &remaining, buckets[i].Bits)
			if s.IsReading() {
				*value = remaining + offset
			}
			return
		}
		remaining -= buckets[i].Limit + 1
		offset += buckets[i].Limit + 1
	}
	last := buckets[len(buckets)-1]
	encodeFixed(s, &remaining, last.Bits)
	if s.IsReading() {
		*value = remaining + offset
	}
}

func encodeFixed(s serialize.Stream, value *uint32, bits int) {
	if bits == 0 {
		// A zero-width bucket holds only the value 0 and puts nothing on
		// the wire.
		*value = 0
		return
	}
	v := *value
	s.SerializeBits(&v, bits)
	*value = v
}

// unsignedRangeLimit returns the largest value representable by buckets.
func unsignedRangeLimit(buckets []rangeBucket) uint32 {
	total := uint32(0)
	for i, b := range buckets {
		if i == len(buckets)-1 {
			total += (uint32(1) << uint(b.Bits)) - 1
		} else {
			total += b.Limit + 1
		}
	}
	return total
}
