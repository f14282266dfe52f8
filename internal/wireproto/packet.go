// Package wireproto implements the tagged-union packet framing described in
// the networking core's packet codec: five packet kinds, each with exactly
// one Serialize method shared between encode, decode and size-measurement
// via internal/serialize's Stream abstraction.
package wireproto

import (
	"errors"
	"fmt"

	"github.com/cubesim/cubes/internal/entity"
	"github.com/cubesim/cubes/internal/serialize"
)

// Type tags the five packet kinds on the wire.
type Type uint8

const (
	TypeConnectionRequest Type = iota
	TypeConnectionAccepted
	TypeConnectionDenied
	TypeInput
	TypeSnapshot
	numTypes
)

func (t Type) String() string {
	switch t {
	case TypeConnectionRequest:
		return "connection_request"
	case TypeConnectionAccepted:
		return "connection_accepted"
	case TypeConnectionDenied:
		return "connection_denied"
	case TypeInput:
		return "input"
	case TypeSnapshot:
		return "snapshot"
	default:
		return "unknown"
	}
}

// DenyReason enumerates why a ConnectionRequest was refused.
type DenyReason int32

const (
	DenyServerFull DenyReason = iota
	DenyAlreadyConnected
	DenyProtocolMismatch
)

// ProtocolMagic is written into every packet to catch cross-version desync
// early, matching the source's Check(magic) use at the head of each packet.
const ProtocolMagic = 0x43554245 // "CUBE"

// AdjustmentOffsetMin and AdjustmentOffsetMax clamp the steady-state tick
// adjustment offset carried on SnapshotPacket; wire-visible, so they live
// here rather than in internal/session where the server computes them.
const (
	AdjustmentOffsetMin = -192
	AdjustmentOffsetMax = 192
)

// Packet is implemented by all five concrete packet types.
type Packet interface {
	Type() Type
	Serialize(s serialize.Stream)
}

var (
	// ErrMalformedPacket is returned when a packet's stream overflowed
	// during decode (truncated, corrupt, or magic mismatch).
	ErrMalformedPacket = errors.New("wireproto: malformed packet")
	// ErrUnknownPacketType is returned for a tag byte outside [0, numTypes).
	ErrUnknownPacketType = errors.New("wireproto: unknown packet type")
)

// ConnectionRequestPacket is sent by a client to request a connection, or
// to request reconnection with an incremented ConnectSequence after a
// connection was believed lost. Guid is the client-chosen random session
// identity; together with the sender's address it is the key the server
// uses to recognize a reconnect versus a brand new client.
type ConnectionRequestPacket struct {
	Guid            uint64
	ConnectSequence uint16
}

func (p *ConnectionRequestPacket) Type() Type { return TypeConnectionRequest }

func (p *ConnectionRequestPacket) Serialize(s serialize.Stream) {
	serializeUint64(s, &p.Guid)
	var v uint32
	if !s.IsReading() {
		v = uint32(p.ConnectSequence)
	}
	s.SerializeBits(&v, 16)
	if s.IsReading() {
		p.ConnectSequence = uint16(v)
	}
}

// ConnectionAcceptedPacket admits a client, echoing back the (guid,
// connect_sequence) pair the client requested with so it can recognize the
// reply even if an earlier Accepted for a stale sequence is still in
// flight.
type ConnectionAcceptedPacket struct {
	Guid            uint64
	ConnectSequence uint16
}

func (p *ConnectionAcceptedPacket) Type() Type { return TypeConnectionAccepted }

func (p *ConnectionAcceptedPacket) Serialize(s serialize.Stream) {
	serializeUint64(s, &p.Guid)
	var v uint32
	if !s.IsReading() {
		v = uint32(p.ConnectSequence)
	}
	s.SerializeBits(&v, 16)
	if s.IsReading() {
		p.ConnectSequence = uint16(v)
	}
}

// ConnectionDeniedPacket refuses a connection request, echoing the (guid,
// connect_sequence) pair it is refusing along with a reason code.
type ConnectionDeniedPacket struct {
	Guid            uint64
	ConnectSequence uint16
	Reason          DenyReason
}

func (p *ConnectionDeniedPacket) Type() Type { return TypeConnectionDenied }

func (p *ConnectionDeniedPacket) Serialize(s serialize.Stream) {
	serializeUint64(s, &p.Guid)
	var v uint32
	if !s.IsReading() {
		v = uint32(p.ConnectSequence)
	}
	s.SerializeBits(&v, 16)
	if s.IsReading() {
		p.ConnectSequence = uint16(v)
	}
	reason := int32(p.Reason)
	s.SerializeInteger(&reason, 0, 7)
	if s.IsReading() {
		p.Reason = DenyReason(reason)
	}
}

// serializeUint64 reads or writes a 64-bit value as two network-order
// 32-bit halves, since Stream.SerializeBits is limited to 32 bits.
func serializeUint64(s serialize.Stream, v *uint64) {
	var hi, lo uint32
	if !s.IsReading() {
		hi = uint32(*v >> 32)
		lo = uint32(*v)
	}
	s.SerializeBits(&hi, 32)
	s.SerializeBits(&lo, 32)
	if s.IsReading() {
		*v = uint64(hi)<<32 | uint64(lo)
	}
}

// MaxInputsPerPacket bounds the redundant input run carried per packet
// (Open Question, decided in DESIGN.md): enough to survive several
// consecutive dropped packets without losing a tick of input history.
const MaxInputsPerPacket = 64

// InputPacket carries either a synchronizing probe (no inputs, just the
// client's echo of the server's sync offset/sequence) or a steady-state
// run of inputs ending at Tick, redundantly repeating older ticks so a
// handful of dropped packets in a row don't lose input history. The wire
// encoding run-length-compresses consecutive repeats of the same Input
// value: for each entry after the first, one bit says whether it differs
// from the PREVIOUS entry in this packet (index i-1); only on a difference
// is the full Input re-serialized.
type InputPacket struct {
	Synchronizing bool
	Tick          uint64

	// Valid only while Synchronizing: the client's echo of the sync
	// offset/sequence it last learned from a SnapshotPacket.
	SyncOffset   uint16
	SyncSequence uint16

	// Valid only while !Synchronizing: whether the client has finished
	// bracketing, and its echo of the last adjustment_sequence it applied.
	Bracketed          bool
	AdjustmentSequence uint16

	// Inputs is empty while Synchronizing; otherwise a run of up to
	// MaxInputsPerPacket entries, oldest first, the last one applying to
	// Tick.
	Inputs []entity.Input
}

func (p *InputPacket) Type() Type { return TypeInput }

func (p *InputPacket) Serialize(s serialize.Stream) {
	s.SerializeBool(&p.Synchronizing)
	if p.Synchronizing {
		var so, ss uint32
		if !s.IsReading() {
			so, ss = uint32(p.SyncOffset), uint32(p.SyncSequence)
		}
		s.SerializeBits(&so, 16)
		s.SerializeBits(&ss, 16)
		if s.IsReading() {
			p.SyncOffset, p.SyncSequence = uint16(so), uint16(ss)
		}
		serializeUint64(s, &p.Tick)
		return
	}

	serializeUint64(s, &p.Tick)
	s.SerializeBool(&p.Bracketed)
	var adjSeq uint32
	if !s.IsReading() {
		adjSeq = uint32(p.AdjustmentSequence)
	}
	s.SerializeBits(&adjSeq, 16)
	if s.IsReading() {
		p.AdjustmentSequence = uint16(adjSeq)
	}

	n := int32(len(p.Inputs))
	s.SerializeInteger(&n, 0, MaxInputsPerPacket)
	if s.IsReading() {
		p.Inputs = make([]entity.Input, n)
	}

	for i := 0; i < int(n); i++ {
		if i == 0 {
			serializeInput(s, &p.Inputs[0])
			continue
		}
		// The source has a documented typo here, comparing input[i] against
		// input[i-i] (always input[0]); the intended comparison — and the
		// one implemented here — is against the immediately preceding
		// entry, input[i-1].
		different := false
		if !s.IsReading() {
			different = p.Inputs[i].NotEqual(p.Inputs[i-1])
		}
		s.SerializeBool(&different)
		if different {
			serializeInput(s, &p.Inputs[i])
		} else if s.IsReading() {
			p.Inputs[i] = p.Inputs[i-1]
		}
	}
}

func serializeInput(s serialize.Stream, in *entity.Input) {
	s.SerializeBool(&in.Left)
	s.SerializeBool(&in.Right)
	s.SerializeBool(&in.Up)
	s.SerializeBool(&in.Down)
	s.SerializeBool(&in.Push)
	s.SerializeBool(&in.Pull)
}

// Encode writes p's tagged, magic-prefixed wire form into a fresh buffer
// sized by a MeasureStream pass, and returns the trimmed byte slice.
func Encode(p Packet) ([]byte, error) {
	ms := serialize.NewMeasureStream()
	var tag uint32
	ms.SerializeBits(&tag, 8)
	ms.Check(ProtocolMagic)
	p.Serialize(ms)

	buf := make([]byte, ((ms.Bits()+31)/32+1)*4)
	ws := serialize.NewWriteStream(buf)
	tagVal := uint32(p.Type())
	ws.SerializeBits(&tagVal, 8)
	ws.Check(ProtocolMagic)
	p.Serialize(ws)
	n := ws.Flush()
	if ws.Overflow() {
		return nil, fmt.Errorf("wireproto: encode %v: %w", p.Type(), ErrMalformedPacket)
	}
	return buf[:n], nil
}

// Decode reads a tagged, magic-prefixed wire packet and dispatches to the
// matching concrete type. Any stream overflow (truncation, bad magic,
// unknown tag) is reported as ErrMalformedPacket / ErrUnknownPacketType.
func Decode(data []byte) (Packet, error) {
	padded := pad4(data)
	rs := serialize.NewReadStream(padded)
	var tag uint32
	rs.SerializeBits(&tag, 8)
	rs.Check(ProtocolMagic)
	if rs.Overflow() {
		return nil, ErrMalformedPacket
	}
	if tag >= uint32(numTypes) {
		return nil, ErrUnknownPacketType
	}
	if Type(tag) == TypeSnapshot {
		// Needs a resolved baseline; callers must use PeekType + DecodeSnapshot.
		return nil, fmt.Errorf("wireproto: %w: use DecodeSnapshot for snapshot packets", ErrMalformedPacket)
	}
	p := newPacket(Type(tag))
	p.Serialize(rs)
	if rs.Overflow() {
		return nil, fmt.Errorf("wireproto: decode %v: %w", Type(tag), ErrMalformedPacket)
	}
	return p, nil
}

func newPacket(t Type) Packet {
	switch t {
	case TypeConnectionRequest:
		return &ConnectionRequestPacket{}
	case TypeConnectionAccepted:
		return &ConnectionAcceptedPacket{}
	case TypeConnectionDenied:
		return &ConnectionDeniedPacket{}
	case TypeInput:
		return &InputPacket{}
	case TypeSnapshot:
		return &SnapshotPacket{}
	default:
		return nil
	}
}
