package snapshot

import (
	"math"

	"github.com/cubesim/cubes/internal/physics"
	"github.com/cubesim/cubes/internal/serialize"
)

// minComponent/maxComponent bound the three smallest-magnitude components
// of a normalized quaternion once the largest has been omitted: since the
// omitted component has the greatest absolute value among the four, the
// remaining three each lie in [-1/sqrt2, 1/sqrt2].
var (
	minComponent = -1.0 / math.Sqrt2
	maxComponent = 1.0 / math.Sqrt2
)

// CompressedQuaternion is the "smallest-three" representation: the index
// of the component with the largest magnitude is recorded (2 bits), its
// sign is canonicalized to non-negative by negating the whole quaternion
// if necessary (a unit quaternion and its negation represent the same
// rotation), and the other three components are quantized to `bits`-wide
// integers over [minComponent, maxComponent].
type CompressedQuaternion struct {
	Largest uint8 // 0=w, 1=x, 2=y, 3=z
	A, B, C int32 // quantized remaining components, in ascending index order
}

// CompressQuaternion builds the smallest-three form of q at the given bit
// width (OrientationBits in practice).
func CompressQuaternion(q physics.Quaternion, bits int) CompressedQuaternion {
	components := [4]float64{q.W, q.X, q.Y, q.Z}
	largest := 0
	for i := 1; i < 4; i++ {
		if math.Abs(components[i]) > math.Abs(components[largest]) {
			largest = i
		}
	}
	if components[largest] < 0 {
		for i := range components {
			components[i] = -components[i]
		}
	}
	rest := make([]float64, 0, 3)
	for i, c := range components {
		if i != largest {
			rest = append(rest, c)
		}
	}
	quant := func(v float64) int32 {
		t := (v - minComponent) / (maxComponent - minComponent)
		maxInt := float64((int64(1) << uint(bits)) - 1)
		return int32(math.Round(t * maxInt))
	}
	return CompressedQuaternion{
		Largest: uint8(largest),
		A:       quant(rest[0]),
		B:       quant(rest[1]),
		C:       quant(rest[2]),
	}
}

// Decompress reconstructs an approximately-unit quaternion from its
// smallest-three form: the three quantized components are dequantized, and
// the omitted (largest) component is recovered via
// sqrt(max(0, 1 - a^2 - b^2 - c^2)), which is always non-negative by
// construction of the sign canonicalization above.
func (c CompressedQuaternion) Decompress(bits int) physics.Quaternion {
	maxInt := float64((int64(1) << uint(bits)) - 1)
	dequant := func(v int32) float64 {
		t := float64(v) / maxInt
		return minComponent + t*(maxComponent-minComponent)
	}
	a := dequant(c.A)
	b := dequant(c.B)
	cc := dequant(c.C)
	sumSq := a*a + b*b + cc*cc
	largestVal := 0.0
	if sumSq < 1 {
		largestVal = math.Sqrt(1 - sumSq)
	}
	var components [4]float64
	rest := []float64{a, b, cc}
	ri := 0
	for i := 0; i < 4; i++ {
		if i == int(c.Largest) {
			components[i] = largestVal
		} else {
			components[i] = rest[ri]
			ri++
		}
	}
	return physics.Quaternion{W: components[0], X: components[1], Y: components[2], Z: components[3]}
}

// Serialize reads or writes a compressed quaternion at the given bit width.
func (c *CompressedQuaternion) Serialize(s serialize.Stream, bits int) {
	largest := int32(c.Largest)
	s.SerializeInteger(&largest, 0, 3)
	maxInt := int32((int64(1) << uint(bits)) - 1)
	s.SerializeInteger(&c.A, 0, maxInt)
	s.SerializeInteger(&c.B, 0, maxInt)
	s.SerializeInteger(&c.C, 0, maxInt)
	if s.IsReading() {
		c.Largest = uint8(largest)
	}
}
