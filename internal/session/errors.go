package session

import (
	"errors"

	"github.com/cubesim/cubes/internal/metrics"
)

// Sentinel errors returned by Server.Frame and its helpers, wrapped with
// %w so callers can errors.Is against them while the log line still
// carries the specific address/packet context.
var (
	ErrListen       = errors.New("session: listen failed")
	ErrSocketSend   = errors.New("session: socket send failed")
	ErrSocketRecv   = errors.New("session: socket receive failed")
	ErrDecode       = errors.New("session: packet decode failed")
	ErrEncode       = errors.New("session: packet encode failed")
	ErrNoFreeSlot   = errors.New("session: no free client slot")
	ErrUnknownPeer  = errors.New("session: packet from unrecognized peer")
	ErrStaleConnect = errors.New("session: stale connection request")
)

// mapErrToMetric maps an error produced inside the server's frame loop to
// a stable Prometheus error-subsystem label via an errors.Is dispatch
// chain.
func mapErrToMetric(err error) string {
	switch {
	case errors.Is(err, ErrSocketSend):
		return metrics.ErrSocketSend
	case errors.Is(err, ErrSocketRecv):
		return metrics.ErrSocketReceive
	case errors.Is(err, ErrDecode):
		return metrics.ErrDecode
	case errors.Is(err, ErrEncode):
		return metrics.ErrEncode
	default:
		return metrics.ErrContext
	}
}
