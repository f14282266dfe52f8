package snapshot

import (
	"math"
	"testing"

	"github.com/cubesim/cubes/internal/physics"
	"github.com/cubesim/cubes/internal/serialize"
)

func normalize(q physics.Quaternion) physics.Quaternion {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	return physics.Quaternion{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

func quatDot(a, b physics.Quaternion) float64 {
	return a.W*b.W + a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func TestCompressQuaternionRoundTrip(t *testing.T) {
	cases := []physics.Quaternion{
		{W: 1, X: 0, Y: 0, Z: 0},
		normalize(physics.Quaternion{W: 0.2, X: 0.9, Y: 0.1, Z: 0.1}),
		normalize(physics.Quaternion{W: 0.5, X: 0.5, Y: 0.5, Z: 0.5}),
		normalize(physics.Quaternion{W: -0.1, X: -0.2, Y: -0.9, Z: 0.3}),
	}
	const bits = 9
	for i, q := range cases {
		c := CompressQuaternion(q, bits)
		got := normalize(c.Decompress(bits))
		// A unit quaternion and its negation represent the same rotation;
		// the dot product's absolute value should be close to 1.
		if d := math.Abs(quatDot(q, got)); d < 0.999 {
			t.Fatalf("case %d: quaternion mismatch after compression, dot=%v got=%+v want=%+v", i, d, got, q)
		}
	}
}

func TestCompressedQuaternionSerializeRoundTrip(t *testing.T) {
	q := normalize(physics.Quaternion{W: 0.1, X: 0.2, Y: 0.9, Z: 0.1})
	c := CompressQuaternion(q, 9)

	ms := serialize.NewMeasureStream()
	c.Serialize(ms, 9)

	buf := make([]byte, ((ms.Bits()+31)/32+1)*4)
	ws := serialize.NewWriteStream(buf)
	c.Serialize(ws, 9)
	ws.Flush()

	var got CompressedQuaternion
	rs := serialize.NewReadStream(buf)
	got.Serialize(rs, 9)
	if rs.Overflow() {
		t.Fatalf("unexpected overflow")
	}
	if got != c {
		t.Fatalf("got %+v want %+v", got, c)
	}
}
