// Package clientcore implements the client-side counterpart of the
// session package's per-client state machine: connection admission,
// redundant input transmission, and snapshot reception/decompression
// against a locally tracked baseline history.
package clientcore

import (
	"math/rand/v2"
	"time"

	"github.com/cubesim/cubes/internal/entity"
	"github.com/cubesim/cubes/internal/netaddr"
	"github.com/cubesim/cubes/internal/snapshot"
)

// State is the client's position in its connection lifecycle.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// ConnectResendInterval is how often an unanswered ConnectionRequest is
// retransmitted while StateConnecting.
const ConnectResendInterval = 250 * time.Millisecond

// ConnectTimeout bounds how long the client waits in StateConnecting
// before giving up and reporting a connect failure.
const ConnectTimeout = 10 * time.Second

// InputHistoryWindow is how many past ticks of input the client keeps
// around to redundantly resend in each InputPacket (bounded by
// wireproto.MaxInputsPerPacket).
const InputHistoryWindow = 64

// Session is the client's connection state to a single server.
type Session struct {
	State State

	Guid            uint64 // random session identity, chosen once and kept across reconnects
	ServerAddr      netaddr.Address
	ConnectSequence uint16
	DenyReason      int32
	connectingSince time.Time
	lastResendAt    time.Time

	lastPacketAt time.Time

	// Sync/bracket/adjustment mirror of the server's per-slot state,
	// learned from SnapshotPacket headers and echoed back on InputPacket.
	Synchronizing    bool // still exchanging sync probes with the server
	ReadyToApplySync bool // next Frame should adopt LocalTick = ServerTick+SyncOffset
	Synchronized     bool // LocalTick has been set from a server tick at least once
	ServerTick       uint64
	LocalTick        uint64
	SyncOffset       uint16
	SyncSequence     uint16

	Bracketing         bool  // true while the server still reports it's bracketing this client
	AdjustmentSequence uint16
	AdjustmentOffset   int32
	adjustmentPending  bool // AdjustmentOffset learned but not yet folded into LocalTick
	InputAck           uint64

	inputHistory [InputHistoryWindow]entity.Input
	inputValid   [InputHistoryWindow]bool
	nextTick     uint64

	// priorBaseline/baseline are the last two decoded snapshots; the wire
	// protocol has no baseline-sequence field, so the baseline for the
	// next packet is always whichever snapshot was decoded most recently.
	priorBaseline  *snapshot.QuantizedSnapshot
	baseline       *snapshot.QuantizedSnapshot
	latestSnapshot *snapshot.QuantizedSnapshot
	latestTick     uint64
}

// NewSession returns a disconnected client session with a freshly
// generated guid; the guid is kept for the Session's lifetime, including
// across reconnects, so the server can recognize a reconnect attempt.
func NewSession() *Session {
	return &Session{Guid: rand.Uint64()}
}

// BeginConnect starts (or restarts, incrementing ConnectSequence) a
// connection attempt to addr.
func (s *Session) BeginConnect(addr netaddr.Address, now time.Time) {
	s.ServerAddr = addr
	s.ConnectSequence++
	s.State = StateConnecting
	s.connectingSince = now
	s.lastResendAt = time.Time{}
	s.lastPacketAt = now
	s.Synchronizing = true
	s.ReadyToApplySync = false
	s.Synchronized = false
	s.Bracketing = true
	s.AdjustmentSequence = 0
	s.adjustmentPending = false
	s.priorBaseline = nil
	s.baseline = nil
}
