package snapshot

import (
	"testing"

	"github.com/cubesim/cubes/internal/serialize"
)

func roundTripSnapshot(t *testing.T, current, baseline *QuantizedSnapshot, cs *CompressionState) *QuantizedSnapshot {
	t.Helper()
	ms := serialize.NewMeasureStream()
	EncodeRelativeToBaseline(ms, current, baseline, cs)

	buf := make([]byte, ((ms.Bits()+31)/32+2)*4)
	ws := serialize.NewWriteStream(buf)
	EncodeRelativeToBaseline(ws, current, baseline, cs)
	ws.Flush()
	if ws.Overflow() {
		t.Fatalf("unexpected overflow")
	}

	rs := serialize.NewReadStream(buf)
	got := DecodeRelativeToBaseline(rs, baseline, cs)
	if rs.Overflow() {
		t.Fatalf("unexpected read overflow")
	}
	return got
}

func TestSnapshotIdenticalToBaseline(t *testing.T) {
	baseline := &QuantizedSnapshot{}
	current := &QuantizedSnapshot{}
	cs := &CompressionState{}
	got := roundTripSnapshot(t, current, baseline, cs)
	if !got.Equal(current) {
		t.Fatalf("round trip mismatch on identical snapshot")
	}
}

func TestSnapshotFewCubesChangedUsesIndexMode(t *testing.T) {
	baseline := &QuantizedSnapshot{}
	current := &QuantizedSnapshot{}
	cs := &CompressionState{}
	current.Cubes[5].PositionX = 100
	current.Cubes[5].Interacting = true
	current.Cubes[900].PositionZ = GroundLimit + 50

	got := roundTripSnapshot(t, current, baseline, cs)
	if !got.Equal(current) {
		t.Fatalf("round trip mismatch:\n got=%+v\nwant=%+v", got.Cubes[5], current.Cubes[5])
	}
	if got.Cubes[900].PositionZ != current.Cubes[900].PositionZ {
		t.Fatalf("cube 900 mismatch: got %d want %d", got.Cubes[900].PositionZ, current.Cubes[900].PositionZ)
	}
}

func TestSnapshotManyCubesChangedUsesBitmapMode(t *testing.T) {
	baseline := &QuantizedSnapshot{}
	current := &QuantizedSnapshot{}
	cs := &CompressionState{}
	for i := 0; i < NumCubes; i += 2 {
		current.Cubes[i].PositionX = int32(i)
	}
	got := roundTripSnapshot(t, current, baseline, cs)
	if !got.Equal(current) {
		t.Fatalf("round trip mismatch in bitmap mode")
	}
}

func TestSnapshotWithCompressionStatePrediction(t *testing.T) {
	baseline := &QuantizedSnapshot{}
	baseline.Cubes[10].PositionZ = 2000
	previous := &QuantizedSnapshot{}
	previous.Cubes[10].PositionZ = 1950 // cube was rising by 50 units/tick

	cs := CalculateCompressionState(baseline, previous)

	current := &QuantizedSnapshot{Cubes: baseline.Cubes}
	// Close to the predicted position (base + delta - gravity + drag).
	current.Cubes[10].PositionZ = 2000 + 50 - GravityUnits

	got := roundTripSnapshot(t, current, baseline, cs)
	if got.Cubes[10].PositionZ != current.Cubes[10].PositionZ {
		t.Fatalf("got %d want %d", got.Cubes[10].PositionZ, current.Cubes[10].PositionZ)
	}
}

func TestSnapshotAbsoluteFallbackOnLargeDelta(t *testing.T) {
	baseline := &QuantizedSnapshot{}
	current := &QuantizedSnapshot{}
	cs := &CompressionState{}
	current.Cubes[0].PositionX = maxUnitsXY // a huge jump from 0
	got := roundTripSnapshot(t, current, baseline, cs)
	if got.Cubes[0].PositionX != maxUnitsXY {
		t.Fatalf("got %d want %d", got.Cubes[0].PositionX, maxUnitsXY)
	}
}
