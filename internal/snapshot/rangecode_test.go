package snapshot

import (
	"testing"

	"github.com/cubesim/cubes/internal/serialize"
)

func roundTripRange(t *testing.T, buckets []rangeBucket, value uint32) uint32 {
	t.Helper()
	ms := serialize.NewMeasureStream()
	v := value
	serializeUnsignedRange(ms, &v, buckets)

	buf := make([]byte, ((ms.Bits()+31)/32+1)*4)
	ws := serialize.NewWriteStream(buf)
	v = value
	serializeUnsignedRange(ws, &v, buckets)
	ws.Flush()
	if ws.Overflow() {
		t.Fatalf("unexpected overflow encoding %d", value)
	}

	rs := serialize.NewReadStream(buf)
	var got uint32
	serializeUnsignedRange(rs, &got, buckets)
	if rs.Overflow() {
		t.Fatalf("unexpected overflow decoding %d", value)
	}
	return got
}

func TestSerializeUnsignedRangeRoundTrip(t *testing.T) {
	buckets := []rangeBucket{{Limit: 15, Bits: 5}, {Limit: 63, Bits: 6}, {Limit: 2047, Bits: 12}}
	limit := unsignedRangeLimit(buckets)
	for _, v := range []uint32{0, 1, 15, 16, 63, 64, 200, 2047, limit} {
		got := roundTripRange(t, buckets, v)
		if got != v {
			t.Fatalf("value %d: got %d", v, got)
		}
	}
}

func TestUnsignedRangeLimit(t *testing.T) {
	buckets := []rangeBucket{{Limit: 3, Bits: 2}, {Limit: 3, Bits: 2}}
	// bucket0 covers 0..3 (4 values), bucket1 covers 0..3 raw but represents
	// 4..7 after the +4 offset -> max representable is 7.
	if got := unsignedRangeLimit(buckets); got != 7 {
		t.Fatalf("got %d want 7", got)
	}
}
