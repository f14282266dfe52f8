package session

import "time"

// reapTimeouts frees any connected slot that's gone silent for longer
// than s.timeout.
func (s *Server) reapTimeouts(now time.Time) {
	for i, slot := range s.slots {
		if slot.State == StateDisconnected {
			continue
		}
		if now.Sub(slot.LastPacketAt) > s.timeout {
			s.logger.Info("client_timed_out", "slot", i, "addr", slot.Address)
			s.Disconnect(i)
		}
	}
}
