package snapshot

import "github.com/cubesim/cubes/internal/serialize"

// relativeIndexBuckets is the prefix-ladder code for gaps between
// consecutive changed-cube indices (gap = nextIndex - prevIndex - 1, so 0
// means "the very next index"): the overwhelmingly common case of
// consecutive or near-consecutive changed indices costs as little as a
// single bit, while a gap spanning most of the cube table costs more.
var relativeIndexBuckets = []rangeBucket{
	{Limit: 0, Bits: 0},
	{Limit: 3, Bits: 2},
	{Limit: 7, Bits: 3},
	{Limit: 15, Bits: 4},
	{Limit: 31, Bits: 5},
	{Limit: 63, Bits: 6},
	{Limit: 127, Bits: 7},
	{Bits: 10},
}

// serializeRelativeIndex reads or writes the gap between two consecutive
// changed-cube indices using the bucket ladder above.
func serializeRelativeIndex(s serialize.Stream, gap *uint32) {
	serializeUnsignedRange(s, gap, relativeIndexBuckets)
}

const indexBits = 10 // bits required to hold a raw index into [0, NumCubes)
