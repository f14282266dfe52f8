// Package session implements the server-side per-client connection state
// machine: connection admission and reconnection, the sync and bracket
// clock-offset measurement phases, steady-state tick adjustment, the
// sliding input window, and the dropped-input/forced-reconnect policy.
package session

import (
	"time"

	"github.com/cubesim/cubes/internal/entity"
	"github.com/cubesim/cubes/internal/snapshot"
	"github.com/cubesim/cubes/internal/wireproto"
)

// State is a ClientSlot's position in its connection lifecycle. Sync and
// Bracket are sub-phases of what the wire protocol calls "Connecting";
// Connected is reached only once both measurement phases have completed.
type State int

const (
	StateDisconnected State = iota
	StateSync
	StateBracket
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateSync:
		return "sync"
	case StateBracket:
		return "bracket"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// Tunables not pinned to a single concrete value elsewhere; decisions
// recorded in DESIGN.md.
const (
	MaxSyncSamples        = 128
	MaxBracketSamples     = 60
	MaxAdjustmentSamples  = 30
	ReconnectDroppedLimit = 200
	DropForgetTime        = 1 * time.Second
	InputSafety           = 1
	InputSlidingWindow    = 2048 // power of two, >= TickHz*Timeout (1200)

	// TicksPerServerFrame is TICKS_PER_SERVER_FRAME: 240Hz tick / 30Hz frame.
	TicksPerServerFrame = 8
)

// inputEntry is one slot of the circular input history buffer; Present
// distinguishes "tick 0, never written" from "this IS tick 0's input".
type inputEntry struct {
	tick    uint64
	present bool
	input   entity.Input
}

// Slot is one server-side client connection, indexed by its fixed position
// in Server.slots (the entity index the player's cube occupies is
// index+1, per entity.Manager's reserved player range).
type Slot struct {
	State State

	Guid            uint64 // client-chosen random session identity
	Address         string // netaddr.Address.String(); kept as a string for easy comparison/logging
	ConnectSequence uint16 // echoes the client's ConnectionRequest sequence
	LastPacketAt    time.Time

	// Sync phase (SyncData in the data model): measures the offset needed
	// so inputs the client sends for a given tick arrive in time for the
	// server to consume them that tick.
	SyncSamples     int
	SyncOffset      uint16
	SyncSequence    uint16 // bumped once sync completes; guards stale samples
	PreviousTick    uint64
	havePrevious    bool

	// Bracket phase (BracketData): measures how far ahead of the server
	// tick the client is actually delivering inputs once synchronized.
	BracketSamples int
	BracketOffset  uint16
	haveBracket    bool

	// Steady-state adjustment (AdjustmentData).
	AdjustmentSequence uint16
	AdjustmentSamples  int
	MinTicksAhead      int
	haveAdjustment     bool
	AdjustmentAcked    bool
	AdjustmentOffset   int32
	ReconnectRequired  bool

	// LastSentSnapshot/LastSentTick track the baseline the server last
	// transmitted to this client, since the wire protocol carries no
	// snapshot acknowledgment: every new snapshot is deltaed against
	// whatever was sent last, not whatever was last confirmed received.
	// PriorSentSnapshot is the one before that, used only to derive the
	// compression state attached to LastSentSnapshot.
	LastSentSnapshot  *snapshot.QuantizedSnapshot
	PriorSentSnapshot *snapshot.QuantizedSnapshot
	LastSentTick      uint64

	// Sliding input window.
	window [InputSlidingWindow]inputEntry
	// consecutiveDropped counts ticks with no input available; reset
	// whenever an input packet arrives from the client, and forgotten
	// (reset to 0) when more than DropForgetTime has passed since the
	// previous drop, so isolated drops spread over time never add up.
	consecutiveDropped int
	lastDropAt         time.Time
}

// NewSlot returns a fresh, disconnected slot.
func NewSlot() *Slot { return &Slot{State: StateDisconnected} }

// Reset clears a slot back to its just-allocated state, used both for a
// brand new connection and for a reconnect (which reuses the slot index so
// the player's entity/cube identity survives the reconnect).
func (s *Slot) Reset(guid uint64, address string, connectSequence uint16, now time.Time) {
	*s = Slot{
		State:           StateSync,
		Guid:            guid,
		Address:         address,
		ConnectSequence: connectSequence,
		LastPacketAt:    now,
	}
}

// StoreInput records in at the circular slot for tick.
func (s *Slot) StoreInput(tick uint64, in entity.Input) {
	idx := tick % InputSlidingWindow
	s.window[idx] = inputEntry{tick: tick, present: true, input: in}
}

// InputAt returns the input recorded for tick, if any is still present
// (the slot may have been overwritten by a later tick sharing the index,
// which InputAt detects by comparing the stored tick number).
func (s *Slot) InputAt(tick uint64) (entity.Input, bool) {
	idx := tick % InputSlidingWindow
	e := s.window[idx]
	if !e.present || e.tick != tick {
		return entity.Input{}, false
	}
	return e.input, true
}

// RecordDropped tracks a tick for which no input was available, returning
// true once the client has reached ReconnectDroppedLimit consecutive
// drops and must be forced to reconnect.
func (s *Slot) RecordDropped(now time.Time) (forceReconnect bool) {
	if !s.lastDropAt.IsZero() && now.Sub(s.lastDropAt) > DropForgetTime {
		s.consecutiveDropped = 0
	}
	s.consecutiveDropped++
	s.lastDropAt = now
	return s.consecutiveDropped >= ReconnectDroppedLimit
}

// RecordInputReceived clears the dropped-input streak.
func (s *Slot) RecordInputReceived() {
	s.consecutiveDropped = 0
}

// ticksAheadOf counts how many consecutive ticks starting at from+1 already
// have an entry in the input window, up to a reasonable lookahead bound;
// used by both the bracket phase and the steady-state adjustment phase to
// measure how far ahead of the requested tick the client is delivering
// input (Open Question decision, recorded in DESIGN.md).
func (s *Slot) ticksAheadOf(from uint64) int {
	ahead := 0
	for t := from + 1; ahead < wireproto.MaxInputsPerPacket; t++ {
		if _, ok := s.InputAt(t); !ok {
			break
		}
		ahead++
	}
	return ahead
}
