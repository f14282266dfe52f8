package wireproto

import (
	"fmt"

	"github.com/cubesim/cubes/internal/serialize"
	"github.com/cubesim/cubes/internal/snapshot"
)

// SnapshotPacket carries one tick's authoritative world state, encoded
// relative to the previous snapshot sent to this client (there is no
// explicit baseline-sequence field on the wire: both ends agree that the
// baseline is always "whatever snapshot body was sent/received last").
// Because decoding the cube payload needs that baseline (which lives in
// session history, not in the packet bytes themselves), SnapshotPacket is
// NOT decoded through the generic Decode dispatcher: callers use
// PeekType to recognize a snapshot packet, then DecodeSnapshot with the
// baseline they've already tracked.
type SnapshotPacket struct {
	Synchronizing bool
	Tick          uint64 // present in both branches

	// Valid only while Synchronizing: the offset the client should apply
	// to its local tick once synchronizing stops.
	SyncOffset uint16

	// Valid only while !Synchronizing.
	Reconnect          bool   // client must re-run connection admission
	Bracketing         bool   // still measuring how far ahead the client runs
	BracketOffset      uint16 // the client's measured bracket/lookahead offset
	AdjustmentSequence uint16 // valid only if !Bracketing
	AdjustmentOffset   int32  // valid only if !Bracketing; clamped [ADJ_MIN, ADJ_MAX]
	InputAck           uint64 // most recent input tick the sender has received

	// Current/Baseline/Compression are populated by the caller (both on
	// encode and decode) before Serialize is invoked; they are not part of
	// the fixed packet header above, and are absent entirely while
	// Synchronizing.
	Current     *snapshot.QuantizedSnapshot
	Baseline    *snapshot.QuantizedSnapshot
	Compression *snapshot.CompressionState
}

func (p *SnapshotPacket) Type() Type { return TypeSnapshot }

// Serialize writes or reads the fixed header. The cube payload is handled
// separately by EncodeSnapshot/DecodeSnapshot once a baseline is known.
func (p *SnapshotPacket) Serialize(s serialize.Stream) {
	s.SerializeBool(&p.Synchronizing)
	if p.Synchronizing {
		serializeUint64(s, &p.Tick)
		var so uint32
		if !s.IsReading() {
			so = uint32(p.SyncOffset)
		}
		s.SerializeBits(&so, 16)
		if s.IsReading() {
			p.SyncOffset = uint16(so)
		}
		return
	}

	s.SerializeBool(&p.Reconnect)
	s.SerializeBool(&p.Bracketing)
	var bo uint32
	if !s.IsReading() {
		bo = uint32(p.BracketOffset)
	}
	s.SerializeBits(&bo, 16)
	if s.IsReading() {
		p.BracketOffset = uint16(bo)
	}
	if !p.Bracketing {
		var adjSeq uint32
		if !s.IsReading() {
			adjSeq = uint32(p.AdjustmentSequence)
		}
		s.SerializeBits(&adjSeq, 16)
		if s.IsReading() {
			p.AdjustmentSequence = uint16(adjSeq)
		}
		adj := p.AdjustmentOffset
		if adj < AdjustmentOffsetMin {
			adj = AdjustmentOffsetMin
		} else if adj > AdjustmentOffsetMax {
			adj = AdjustmentOffsetMax
		}
		s.SerializeInteger(&adj, AdjustmentOffsetMin, AdjustmentOffsetMax)
		if s.IsReading() {
			p.AdjustmentOffset = adj
		}
	}
	serializeUint64(s, &p.Tick)
	serializeUint64(s, &p.InputAck)
}

// PeekType reports the wire type of data without fully decoding it. Used
// by callers to route TypeSnapshot to DecodeSnapshot instead of Decode.
func PeekType(data []byte) (Type, error) {
	padded := pad4(data)
	rs := serialize.NewReadStream(padded)
	var tag uint32
	rs.SerializeBits(&tag, 8)
	rs.Check(ProtocolMagic)
	if rs.Overflow() {
		return 0, ErrMalformedPacket
	}
	if tag >= uint32(numTypes) {
		return 0, ErrUnknownPacketType
	}
	return Type(tag), nil
}

// PeekSnapshotHeader parses just the fixed header without touching the
// cube payload, so a caller can resolve its own baseline before calling
// DecodeSnapshot.
func PeekSnapshotHeader(data []byte) (SnapshotPacket, error) {
	padded := pad4(data)
	rs := serialize.NewReadStream(padded)
	var tag uint32
	rs.SerializeBits(&tag, 8)
	rs.Check(ProtocolMagic)
	if rs.Overflow() || Type(tag) != TypeSnapshot {
		return SnapshotPacket{}, ErrMalformedPacket
	}
	var p SnapshotPacket
	p.Serialize(rs)
	if rs.Overflow() {
		return SnapshotPacket{}, fmt.Errorf("wireproto: peek snapshot header: %w", ErrMalformedPacket)
	}
	return p, nil
}

// EncodeSnapshot writes p (which must already have Current, Baseline and
// Compression set, unless Synchronizing) to a fresh buffer.
func EncodeSnapshot(p *SnapshotPacket) ([]byte, error) {
	ms := serialize.NewMeasureStream()
	var tag uint32
	ms.SerializeBits(&tag, 8)
	ms.Check(ProtocolMagic)
	p.Serialize(ms)
	if !p.Synchronizing {
		snapshot.EncodeRelativeToBaseline(ms, p.Current, p.Baseline, p.Compression)
	}

	buf := make([]byte, ((ms.Bits()+31)/32+1)*4)
	ws := serialize.NewWriteStream(buf)
	tagVal := uint32(TypeSnapshot)
	ws.SerializeBits(&tagVal, 8)
	ws.Check(ProtocolMagic)
	p.Serialize(ws)
	if !p.Synchronizing {
		snapshot.EncodeRelativeToBaseline(ws, p.Current, p.Baseline, p.Compression)
	}
	n := ws.Flush()
	if ws.Overflow() {
		return nil, fmt.Errorf("wireproto: encode snapshot: %w", ErrMalformedPacket)
	}
	return buf[:n], nil
}

// DecodeSnapshot decodes a snapshot packet's header and, unless it's a
// synchronizing placeholder, its cube payload relative to baseline/cs.
func DecodeSnapshot(data []byte, baseline *snapshot.QuantizedSnapshot, cs *snapshot.CompressionState) (*SnapshotPacket, error) {
	padded := pad4(data)
	rs := serialize.NewReadStream(padded)
	var tag uint32
	rs.SerializeBits(&tag, 8)
	rs.Check(ProtocolMagic)
	if rs.Overflow() || Type(tag) != TypeSnapshot {
		return nil, ErrMalformedPacket
	}
	p := &SnapshotPacket{}
	p.Serialize(rs)
	if rs.Overflow() {
		return nil, fmt.Errorf("wireproto: decode snapshot header: %w", ErrMalformedPacket)
	}
	if p.Synchronizing {
		return p, nil
	}
	p.Baseline = baseline
	p.Compression = cs
	p.Current = snapshot.DecodeRelativeToBaseline(rs, baseline, cs)
	if rs.Overflow() {
		return nil, fmt.Errorf("wireproto: decode snapshot payload: %w", ErrMalformedPacket)
	}
	return p, nil
}

func pad4(data []byte) []byte {
	if len(data)%4 == 0 {
		return data
	}
	out := make([]byte, ((len(data)+3)/4)*4)
	copy(out, data)
	return out
}
