package clientcore

import (
	"github.com/cubesim/cubes/internal/snapshot"
	"github.com/cubesim/cubes/internal/wireproto"
)

// applySnapshot decodes a received SnapshotPacket, folding its header into
// the session's sync/bracket/adjustment state and, unless it's a
// synchronizing placeholder, decoding its cube payload relative to the
// last snapshot this session decoded.
//
// The CompressionState used for decode is never sent on the wire: the
// server derives it from the baseline's own prior step (the two most
// recent snapshots it sent this client), so the client reconstructs the
// identical state from the two most recent snapshots it decoded, without
// needing to know the snapshot currently being decoded.
func (s *Session) applySnapshot(raw []byte) error {
	hdr, err := wireproto.PeekSnapshotHeader(raw)
	if err != nil {
		return err
	}

	if hdr.Tick > s.ServerTick {
		switch {
		case hdr.Synchronizing && !s.Synchronizing:
			s.Synchronizing = true
		case s.Synchronizing && !hdr.Synchronizing:
			s.ReadyToApplySync = true
		default:
			s.ServerTick = hdr.Tick
			if hdr.Synchronizing {
				s.SyncOffset = hdr.SyncOffset
			}
		}
	}

	if hdr.Synchronizing {
		return nil
	}

	s.Bracketing = hdr.Bracketing
	if !hdr.Bracketing && hdr.AdjustmentSequence != s.AdjustmentSequence {
		s.AdjustmentSequence = hdr.AdjustmentSequence
		s.AdjustmentOffset = hdr.AdjustmentOffset
		s.adjustmentPending = true
	}
	s.InputAck = hdr.InputAck

	baseline := s.baseline
	if baseline == nil {
		baseline = &snapshot.QuantizedSnapshot{}
	}
	prior := s.priorBaseline
	if prior == nil {
		prior = &snapshot.QuantizedSnapshot{}
	}
	cs := snapshot.CalculateCompressionState(baseline, prior)

	pkt, err := wireproto.DecodeSnapshot(raw, baseline, cs)
	if err != nil {
		return err
	}

	s.priorBaseline = s.baseline
	s.baseline = pkt.Current
	s.latestSnapshot = pkt.Current
	s.latestTick = hdr.Tick
	return nil
}

// LatestSnapshot returns the most recently decoded authoritative state and
// the server tick it was sent for, or nil/0 if none has arrived yet.
func (s *Session) LatestSnapshot() (*snapshot.QuantizedSnapshot, uint64) {
	return s.latestSnapshot, s.latestTick
}
