package snapshot

import "github.com/cubesim/cubes/internal/serialize"

// CompressionState holds, per cube, the baseline's own recent per-axis
// displacement — how far it moved between the previous baseline and the
// current one — used as a velocity estimate for predicting where it will
// be by the time the NEXT snapshot (relative to this baseline) arrives.
type CompressionState struct {
	DeltaX, DeltaY, DeltaZ [NumCubes]int32
}

// CalculateCompressionState derives a CompressionState from two
// consecutive baselines, to be used when the newer of the two
// (newBaseline) becomes the reference for subsequent snapshots.
func CalculateCompressionState(newBaseline, previousBaseline *QuantizedSnapshot) *CompressionState {
	cs := &CompressionState{}
	for i := 0; i < NumCubes; i++ {
		cs.DeltaX[i] = newBaseline.Cubes[i].PositionX - previousBaseline.Cubes[i].PositionX
		cs.DeltaY[i] = newBaseline.Cubes[i].PositionY - previousBaseline.Cubes[i].PositionY
		cs.DeltaZ[i] = newBaseline.Cubes[i].PositionZ - previousBaseline.Cubes[i].PositionZ
	}
	return cs
}

// serializeCubePayload reads or writes one changed cube's full per-tick
// payload: predicted-relative position, baseline-relative orientation, and
// the interacting flag.
func serializeCubePayload(s serialize.Stream, baseline QuantizedCubeState, cs *CompressionState, index int, cur *QuantizedCubeState) {
	predX, predY, predZ := predictPosition(
		baseline.PositionX, baseline.PositionY, baseline.PositionZ,
		cs.DeltaX[index], cs.DeltaY[index], cs.DeltaZ[index],
	)
	serializePositionRelative(s, predX, predY, predZ, &cur.PositionX, &cur.PositionY, &cur.PositionZ)
	serializeOrientationRelative(s, baseline.Orientation, &cur.Orientation)
	s.SerializeBool(&cur.Interacting)
}

// EncodeRelativeToBaseline writes current as a delta against baseline using
// compression state cs, choosing whichever of index-mode or bitmap-mode
// framing costs fewer bits for the set of cubes that actually changed.
func EncodeRelativeToBaseline(s serialize.Stream, current, baseline *QuantizedSnapshot, cs *CompressionState) {
	var changed []int
	for i := 0; i < NumCubes; i++ {
		if !current.Cubes[i].Equal(baseline.Cubes[i]) {
			changed = append(changed, i)
		}
	}
	useIndices := len(changed) > 0 && len(changed) <= 256 && indexModeBits(changed) <= NumCubes

	s.SerializeBool(&useIndices)
	if useIndices {
		encodeIndexMode(s, changed, current, baseline, cs)
		return
	}
	encodeBitmapMode(s, current, baseline, cs)
}

// DecodeRelativeToBaseline reconstructs a snapshot from a stream previously
// written by EncodeRelativeToBaseline. The caller must supply the SAME
// baseline and compression state the encoder used.
func DecodeRelativeToBaseline(s serialize.Stream, baseline *QuantizedSnapshot, cs *CompressionState) *QuantizedSnapshot {
	current := &QuantizedSnapshot{Cubes: baseline.Cubes} // start from baseline; unchanged cubes stay as-is

	var useIndices bool
	s.SerializeBool(&useIndices)
	if useIndices {
		decodeIndexMode(s, current, baseline, cs)
		return current
	}
	decodeBitmapMode(s, current, baseline, cs)
	return current
}

func encodeIndexMode(s serialize.Stream, changed []int, current, baseline *QuantizedSnapshot, cs *CompressionState) {
	n := int32(len(changed))
	s.SerializeInteger(&n, 1, 256)

	first := int32(changed[0])
	s.SerializeInteger(&first, 0, NumCubes-1)
	serializeCubePayload(s, baseline.Cubes[changed[0]], cs, changed[0], &current.Cubes[changed[0]])

	prev := changed[0]
	for i := 1; i < len(changed); i++ {
		gap := uint32(changed[i] - prev - 1)
		serializeRelativeIndex(s, &gap)
		serializeCubePayload(s, baseline.Cubes[changed[i]], cs, changed[i], &current.Cubes[changed[i]])
		prev = changed[i]
	}
}

func decodeIndexMode(s serialize.Stream, current, baseline *QuantizedSnapshot, cs *CompressionState) {
	var n int32
	s.SerializeInteger(&n, 1, 256)

	var first int32
	s.SerializeInteger(&first, 0, NumCubes-1)
	idx := int(first)
	serializeCubePayload(s, baseline.Cubes[idx], cs, idx, &current.Cubes[idx])

	prev := idx
	for i := int32(1); i < n; i++ {
		var gap uint32
		serializeRelativeIndex(s, &gap)
		idx = prev + 1 + int(gap)
		serializeCubePayload(s, baseline.Cubes[idx], cs, idx, &current.Cubes[idx])
		prev = idx
	}
}

func encodeBitmapMode(s serialize.Stream, current, baseline *QuantizedSnapshot, cs *CompressionState) {
	for i := 0; i < NumCubes; i++ {
		changed := !current.Cubes[i].Equal(baseline.Cubes[i])
		s.SerializeBool(&changed)
		if changed {
			serializeCubePayload(s, baseline.Cubes[i], cs, i, &current.Cubes[i])
		}
	}
}

func decodeBitmapMode(s serialize.Stream, current, baseline *QuantizedSnapshot, cs *CompressionState) {
	for i := 0; i < NumCubes; i++ {
		var changed bool
		s.SerializeBool(&changed)
		if changed {
			serializeCubePayload(s, baseline.Cubes[i], cs, i, &current.Cubes[i])
		}
	}
}

// indexModeBits measures the bit cost of the index-mode header (count +
// first absolute index + relative-index chain) for the given changed set,
// using a MeasureStream so the cost always matches what encodeIndexMode
// will actually write.
func indexModeBits(changed []int) int {
	ms := serialize.NewMeasureStream()
	n := int32(len(changed))
	ms.SerializeInteger(&n, 1, 256)
	first := int32(changed[0])
	ms.SerializeInteger(&first, 0, NumCubes-1)
	prev := changed[0]
	for i := 1; i < len(changed); i++ {
		gap := uint32(changed[i] - prev - 1)
		serializeRelativeIndex(ms, &gap)
		prev = changed[i]
	}
	return ms.Bits()
}
