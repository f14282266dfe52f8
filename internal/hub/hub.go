// Package hub is a thin, read-only adapter over session.Server's fixed
// client slot array, giving callers (the periodic log summary, a future
// admin endpoint) a Snapshot/Count view of connected clients, without any
// channel-based push/backpressure machinery — the session/world loop is
// single-threaded and pushes state to clients itself, so there is nothing
// left for a hub to broadcast.
package hub

import "github.com/cubesim/cubes/internal/session"

// ClientInfo is a read-only view of one connected slot.
type ClientInfo struct {
	Index           int
	Address         string
	State           session.State
	ConnectSequence uint16
}

// View exposes a read-only snapshot of a session.Server's client slots.
type View struct {
	srv *session.Server
}

// New wraps srv for read-only enumeration.
func New(srv *session.Server) *View { return &View{srv: srv} }

// Count returns the number of non-disconnected client slots.
func (v *View) Count() int { return v.srv.ActiveCount() }

// Snapshot returns a slice describing every currently connected client.
func (v *View) Snapshot() []ClientInfo {
	out := make([]ClientInfo, 0, session.MaxClients)
	for i := 0; i < session.MaxClients; i++ {
		slot := v.srv.Slot(i)
		if slot == nil || slot.State == session.StateDisconnected {
			continue
		}
		out = append(out, ClientInfo{
			Index:           i,
			Address:         slot.Address,
			State:           slot.State,
			ConnectSequence: slot.ConnectSequence,
		})
	}
	return out
}
