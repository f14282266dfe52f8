package wireproto

import (
	"testing"

	"github.com/cubesim/cubes/internal/entity"
	"github.com/cubesim/cubes/internal/snapshot"
)

func TestConnectionRequestRoundTrip(t *testing.T) {
	p := &ConnectionRequestPacket{Guid: 0xDEADBEEF, ConnectSequence: 42}
	buf, err := Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	gp, ok := got.(*ConnectionRequestPacket)
	if !ok || gp.Guid != 0xDEADBEEF || gp.ConnectSequence != 42 {
		t.Fatalf("got %+v", got)
	}
}

func TestConnectionAcceptedRoundTrip(t *testing.T) {
	p := &ConnectionAcceptedPacket{Guid: 0xDEADBEEF, ConnectSequence: 99}
	buf, err := Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	gp := got.(*ConnectionAcceptedPacket)
	if gp.Guid != 0xDEADBEEF || gp.ConnectSequence != 99 {
		t.Fatalf("got %+v", gp)
	}
}

func TestConnectionDeniedRoundTrip(t *testing.T) {
	p := &ConnectionDeniedPacket{Guid: 7, ConnectSequence: 3, Reason: DenyServerFull}
	buf, _ := Encode(p)
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	gp := got.(*ConnectionDeniedPacket)
	if gp.Reason != DenyServerFull || gp.Guid != 7 || gp.ConnectSequence != 3 {
		t.Fatalf("got %+v", got)
	}
}

func TestInputPacketRoundTripWithRepeats(t *testing.T) {
	inputs := []entity.Input{
		{Left: true}, {Left: true}, {Left: true}, {Up: true}, {Up: true}, {},
	}
	p := &InputPacket{Tick: 1005, Bracketed: true, AdjustmentSequence: 2, Inputs: inputs}
	buf, err := Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	gp := got.(*InputPacket)
	if gp.Tick != 1005 || !gp.Bracketed || gp.AdjustmentSequence != 2 || len(gp.Inputs) != len(inputs) {
		t.Fatalf("got %+v", gp)
	}
	for i := range inputs {
		if gp.Inputs[i] != inputs[i] {
			t.Fatalf("input %d: got %+v want %+v", i, gp.Inputs[i], inputs[i])
		}
	}
}

func TestInputPacketRoundTripSynchronizing(t *testing.T) {
	p := &InputPacket{Synchronizing: true, Tick: 40, SyncOffset: 12, SyncSequence: 1}
	buf, err := Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	gp := got.(*InputPacket)
	if !gp.Synchronizing || gp.Tick != 40 || gp.SyncOffset != 12 || gp.SyncSequence != 1 {
		t.Fatalf("got %+v", gp)
	}
}

func TestDecodeRejectsTruncated(t *testing.T) {
	p := &ConnectionRequestPacket{ConnectSequence: 1}
	buf, _ := Encode(p)
	_, err := Decode(buf[:len(buf)-4])
	if err == nil {
		t.Fatalf("expected error decoding truncated packet")
	}
}

func TestDecodeRejectsUnknownType(t *testing.T) {
	buf, _ := Encode(&ConnectionRequestPacket{ConnectSequence: 1})
	buf[3] = 0xFF // the tag is the low byte of the first big-endian word
	_, err := Decode(buf)
	if err == nil {
		t.Fatalf("expected error for unknown type")
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	p := &ConnectionRequestPacket{ConnectSequence: 1}
	buf, _ := Encode(p)
	corrupt := append([]byte(nil), buf...)
	corrupt[1] ^= 0xFF
	_, err := Decode(corrupt)
	if err == nil {
		t.Fatalf("expected error for corrupted magic")
	}
}

func TestDecodeRefusesSnapshotDirectly(t *testing.T) {
	p := &SnapshotPacket{Synchronizing: true}
	buf, err := EncodeSnapshot(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if _, err := Decode(buf); err == nil {
		t.Fatalf("expected Decode to reject a snapshot packet")
	}
}

func TestSnapshotPacketRoundTripSynchronizing(t *testing.T) {
	p := &SnapshotPacket{Tick: 5, SyncOffset: 3, Synchronizing: true}
	buf, err := EncodeSnapshot(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := DecodeSnapshot(buf, nil, nil)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Tick != 5 || got.SyncOffset != 3 || !got.Synchronizing {
		t.Fatalf("got %+v", got)
	}
}

func TestSnapshotPacketRoundTripWithPayload(t *testing.T) {
	baseline := &snapshot.QuantizedSnapshot{}
	cs := &snapshot.CompressionState{}
	current := &snapshot.QuantizedSnapshot{}
	current.Cubes[3].PositionX = 256

	p := &SnapshotPacket{
		Tick: 10, InputAck: 9, Bracketing: false, AdjustmentSequence: 1, AdjustmentOffset: -4,
		Current: current, Baseline: baseline, Compression: cs,
	}
	buf, err := EncodeSnapshot(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	typ, err := PeekType(buf)
	if err != nil || typ != TypeSnapshot {
		t.Fatalf("PeekType: %v %v", typ, err)
	}
	got, err := DecodeSnapshot(buf, baseline, cs)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Tick != 10 || got.InputAck != 9 || got.AdjustmentOffset != -4 || !got.Current.Equal(current) {
		t.Fatalf("got %+v", got)
	}
}

func FuzzDecode(f *testing.F) {
	p := &ConnectionRequestPacket{ConnectSequence: 1}
	buf, _ := Encode(p)
	f.Add(buf)
	f.Fuzz(func(t *testing.T, data []byte) {
		// Decode must never panic on arbitrary input.
		_, _ = Decode(data)
	})
}
