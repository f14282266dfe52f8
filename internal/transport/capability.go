package transport

import (
	"github.com/cubesim/cubes/internal/snapshot"
	"github.com/cubesim/cubes/internal/wireproto"
)

// PacketDecoder decodes a single non-snapshot wire packet from a raw
// datagram payload.
type PacketDecoder interface {
	Decode(data []byte) (wireproto.Packet, error)
}

// BaselineDecoder decodes a snapshot packet, which needs an externally
// resolved baseline the plain PacketDecoder interface can't express.
type BaselineDecoder interface {
	DecodeSnapshot(data []byte, baseline *snapshot.QuantizedSnapshot, cs *snapshot.CompressionState) (*wireproto.SnapshotPacket, error)
}

// PacketEncoder encodes a wire packet to a datagram payload.
type PacketEncoder interface {
	Encode(p wireproto.Packet) ([]byte, error)
}

// Codec is the default implementation of the three capability interfaces
// above, backed directly by the wireproto package's free functions. This
// follows a capability-interface pattern (compile-time
// assertions over a concrete codec type), generalized from CAN frames to
// cubes wire packets.
type Codec struct{}

func (Codec) Decode(data []byte) (wireproto.Packet, error) { return wireproto.Decode(data) }

func (Codec) DecodeSnapshot(data []byte, baseline *snapshot.QuantizedSnapshot, cs *snapshot.CompressionState) (*wireproto.SnapshotPacket, error) {
	return wireproto.DecodeSnapshot(data, baseline, cs)
}

func (Codec) Encode(p wireproto.Packet) ([]byte, error) { return wireproto.Encode(p) }

var (
	_ PacketDecoder   = Codec{}
	_ BaselineDecoder = Codec{}
	_ PacketEncoder   = Codec{}
)
