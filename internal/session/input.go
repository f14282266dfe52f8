package session

import (
	"time"

	"github.com/cubesim/cubes/internal/entity"
	"github.com/cubesim/cubes/internal/metrics"
	"github.com/cubesim/cubes/internal/netaddr"
	"github.com/cubesim/cubes/internal/wireproto"
)

func (s *Server) handleInput(pkt *wireproto.InputPacket, from netaddr.Address, now time.Time, tick uint64) {
	idx, ok := s.findSlotByAddr(from.String())
	if !ok {
		s.handleErr(ErrUnknownPeer)
		return
	}
	slot := s.slots[idx]
	slot.LastPacketAt = now
	slot.RecordInputReceived()

	if !pkt.Synchronizing {
		for i, in := range pkt.Inputs {
			// Inputs is oldest-first and the last entry applies to pkt.Tick.
			slot.StoreInput(pkt.Tick-uint64(len(pkt.Inputs))+1+uint64(i), in)
		}
	}

	s.advancePhase(slot, pkt, tick)
}

// advancePhase moves a slot through Sync -> Bracket -> Connected against
// the server's per-client state machine: the sync phase measures the tick
// offset needed for input to arrive in time, the bracket phase measures
// how far ahead of that the client actually runs once synchronized, and
// steady state continually nudges the client's tick with small
// adjustments to keep it there.
func (s *Server) advancePhase(slot *Slot, pkt *wireproto.InputPacket, serverTick uint64) {
	switch slot.State {
	case StateSync:
		s.advanceSync(slot, pkt, serverTick)
	case StateBracket:
		if pkt.Synchronizing {
			return
		}
		s.advanceBracket(slot, pkt, serverTick)
	case StateConnected:
		if pkt.Synchronizing {
			return
		}
		s.advanceAdjustment(slot, pkt, serverTick)
	}
}

// advanceSync implements the sync phase's literal formula: the oldest tick
// covered by the packet determines how far the offset must shift so that,
// delivered TicksPerServerFrame ticks from now, it arrives in time. Once
// more than MaxSyncSamples samples have been folded in AND the client has echoed
// back the resulting offset (confirming it applied it), the slot advances
// to the bracket phase.
func (s *Server) advanceSync(slot *Slot, pkt *wireproto.InputPacket, serverTick uint64) {
	if !pkt.Synchronizing || pkt.SyncSequence != slot.SyncSequence {
		return
	}

	oldest := pkt.Tick
	if slot.havePrevious {
		oldest = slot.PreviousTick + 1
	}
	offset := int64(serverTick) + TicksPerServerFrame - int64(oldest)
	if offset < 0 {
		offset = 0
	}
	if uint16(offset) > slot.SyncOffset {
		slot.SyncOffset = uint16(offset)
	}
	slot.PreviousTick = pkt.Tick
	slot.havePrevious = true
	slot.SyncSamples++

	if slot.SyncSamples > MaxSyncSamples && pkt.SyncOffset == slot.SyncOffset {
		slot.SyncSequence++
		slot.State = StateBracket
		metrics.IncSync()
	}
}

// advanceBracket implements the bracket phase: across MaxBracketSamples
// non-synchronizing packets it tracks the smallest observed
// max(0, ticks_ahead-InputSafety), then moves to steady state.
func (s *Server) advanceBracket(slot *Slot, pkt *wireproto.InputPacket, serverTick uint64) {
	ahead := slot.ticksAheadOf(serverTick) - InputSafety
	if ahead < 0 {
		ahead = 0
	}
	if !slot.haveBracket || ahead < int(slot.BracketOffset) {
		slot.BracketOffset = uint16(ahead)
		slot.haveBracket = true
	}
	slot.BracketSamples++

	if slot.BracketSamples >= MaxBracketSamples {
		slot.State = StateConnected
		metrics.IncBracket()
	}
}

// advanceAdjustment implements steady-state tick adjustment: every
// MaxAdjustmentSamples packets it computes
// -clamp(min_ticks_ahead-InputSafety, ADJ_MIN, ADJ_MAX), bumps
// AdjustmentSequence, and waits for the client to echo that sequence
// before starting the next measurement window.
func (s *Server) advanceAdjustment(slot *Slot, pkt *wireproto.InputPacket, serverTick uint64) {
	if pkt.AdjustmentSequence == slot.AdjustmentSequence {
		slot.AdjustmentAcked = true
	}

	ahead := slot.ticksAheadOf(serverTick) - InputSafety
	if ahead < 0 {
		ahead = 0
	}
	if !slot.haveAdjustment || ahead < slot.MinTicksAhead {
		slot.MinTicksAhead = ahead
		slot.haveAdjustment = true
	}
	slot.AdjustmentSamples++

	if slot.AdjustmentSamples < MaxAdjustmentSamples {
		return
	}
	// The first window (AdjustmentSequence still 0) needs no prior ack;
	// every window after that waits for the client to echo the sequence
	// it's adjusting against before a fresh one opens.
	if slot.AdjustmentSequence != 0 && !slot.AdjustmentAcked {
		return
	}
	offset := -clampInt(slot.MinTicksAhead, wireproto.AdjustmentOffsetMin, wireproto.AdjustmentOffsetMax)
	slot.AdjustmentOffset = int32(offset)
	slot.AdjustmentSequence++
	slot.AdjustmentSamples = 0
	slot.haveAdjustment = false
	slot.AdjustmentAcked = false
	metrics.IncAdjustment()
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// InputForTick returns the input the server should apply for slot's owned
// entity at tick. If no input has arrived for that tick it falls back to
// the input recorded for the previous tick (holding the last command), or
// a zero Input if that tick has none either, and records a
// dropped-input sample; once a slot accumulates too many consecutive
// drops, forceReconnect reports that the caller should disconnect it so
// the client is forced to reconnect and resynchronize.
func (s *Server) InputForTick(slotIndex int, tick uint64, now time.Time) (in entity.Input, forceReconnect bool) {
	slot := s.slots[slotIndex]
	if got, ok := slot.InputAt(tick); ok {
		return got, false
	}
	metrics.IncDroppedInput()
	if slot.RecordDropped(now) {
		slot.ReconnectRequired = true
		metrics.IncForcedReconnect()
		return entity.Input{}, true
	}
	if now.Sub(slot.lastDropAt) > DropForgetTime {
		slot.consecutiveDropped = 0
	}
	if prev, ok := slot.InputAt(tick - 1); ok {
		return prev, false
	}
	return entity.Input{}, false
}
