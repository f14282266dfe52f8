package session

import (
	"fmt"

	"github.com/cubesim/cubes/internal/metrics"
	"github.com/cubesim/cubes/internal/netaddr"
	"github.com/cubesim/cubes/internal/snapshot"
	"github.com/cubesim/cubes/internal/wireproto"
)

// SendSnapshot encodes current relative to the baseline most recently sent
// to slotIndex (or the zero state, for that slot's first snapshot) and
// transmits it. tick is the server's current tick, carried on every
// snapshot and also used as the input-ack value.
//
// Because there is no snapshot-ack field on the wire, the server always
// deltas against the last snapshot it SENT, not the last one the client
// is confirmed to have received; an occasional dropped snapshot packet
// costs one tick of extra payload size on the next packet rather than a
// desync, since DecodeRelativeToBaseline and EncodeRelativeToBaseline
// always agree on "baseline == the previous QuantizedSnapshot in
// sequence". The compression state is derived from the baseline's own
// prior step (LastSentSnapshot vs PriorSentSnapshot), never from current,
// so the client can reconstruct the identical state before it has decoded
// current itself.
func (s *Server) SendSnapshot(slotIndex int, current *snapshot.QuantizedSnapshot, tick uint64) error {
	slot := s.slots[slotIndex]
	if slot.State == StateDisconnected {
		return nil
	}

	pkt := &wireproto.SnapshotPacket{
		Synchronizing: slot.State == StateSync,
		Tick:          tick,
	}

	if pkt.Synchronizing {
		pkt.SyncOffset = slot.SyncOffset
	} else {
		baseline := slot.LastSentSnapshot
		if baseline == nil {
			baseline = &snapshot.QuantizedSnapshot{}
		}
		prior := slot.PriorSentSnapshot
		if prior == nil {
			prior = &snapshot.QuantizedSnapshot{}
		}
		cs := snapshot.CalculateCompressionState(baseline, prior)

		pkt.Bracketing = slot.State == StateBracket
		if pkt.Bracketing {
			pkt.BracketOffset = slot.BracketOffset
		} else {
			pkt.AdjustmentSequence = slot.AdjustmentSequence
			pkt.AdjustmentOffset = slot.AdjustmentOffset
		}
		pkt.InputAck = tick
		pkt.Current = current
		pkt.Baseline = baseline
		pkt.Compression = cs
	}

	buf, err := wireproto.EncodeSnapshot(pkt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}

	to, err := netaddr.Parse(slot.Address)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownPeer, err)
	}
	if err := s.socket.Send(to, buf); err != nil {
		return fmt.Errorf("%w: %v", ErrSocketSend, err)
	}
	metrics.IncPacketsTx(wireproto.TypeSnapshot.String())
	metrics.ObserveSnapshotBytes(len(buf))

	if !pkt.Synchronizing {
		slot.PriorSentSnapshot = slot.LastSentSnapshot
		slot.LastSentSnapshot = current
		slot.LastSentTick = tick
	}
	return nil
}
