package session

import (
	"time"

	"github.com/cubesim/cubes/internal/netaddr"
	"github.com/cubesim/cubes/internal/wireproto"
)

// handleConnectionRequest admits or re-admits a client, matching on the
// (guid, address) pair rather than address alone: guid is the identity the
// client itself chose, address is just where packets currently arrive from,
// and either one can legitimately change out from under the other (a NAT
// rebind keeps the guid but changes the address; a second client that
// happens to share an address, e.g. behind the same NAT gateway, must not
// be admitted under a stranger's guid).
func (s *Server) handleConnectionRequest(req *wireproto.ConnectionRequestPacket, from netaddr.Address, now time.Time) {
	addr := from.String()

	if idx, ok := s.findSlotByAddr(addr); ok {
		slot := s.slots[idx]
		switch {
		case slot.Guid == req.Guid && req.ConnectSequence == slot.ConnectSequence:
			// Peer likely never saw our ConnectionAccepted; resend it.
			s.sendAccepted(from, req.Guid, slot.ConnectSequence)
			return
		case slot.Guid == req.Guid && sequenceGreaterThan(req.ConnectSequence, slot.ConnectSequence):
			// Reconnect: same (guid, address), newer connect sequence. Reuse
			// the slot (and its entity) so a brief reconnect doesn't orphan
			// the player's cube.
			slot.Reset(req.Guid, addr, req.ConnectSequence, now)
			s.sendAccepted(from, req.Guid, req.ConnectSequence)
			s.logger.Info("client_reconnected", "slot", idx, "addr", addr)
			return
		case slot.Guid == req.Guid:
			s.handleErr(ErrStaleConnect)
			return
		default:
			// A different guid is requesting from an address this server
			// still has a slot bound to; the old occupant has moved on
			// (or never legitimately held the address), so free the slot
			// and fall through to ordinary admission.
			s.Disconnect(idx)
		}
	}

	idx := s.allocateSlot()
	if idx < 0 {
		_ = s.SendTo(from, &wireproto.ConnectionDeniedPacket{
			Guid:            req.Guid,
			ConnectSequence: req.ConnectSequence,
			Reason:          wireproto.DenyServerFull,
		})
		return
	}
	s.slots[idx].Reset(req.Guid, addr, req.ConnectSequence, now)
	s.addrIdx[addr] = idx
	s.sendAccepted(from, req.Guid, req.ConnectSequence)
	s.logger.Info("client_connected", "slot", idx, "addr", addr)
}

func (s *Server) sendAccepted(to netaddr.Address, guid uint64, connectSequence uint16) {
	_ = s.SendTo(to, &wireproto.ConnectionAcceptedPacket{
		Guid:            guid,
		ConnectSequence: connectSequence,
	})
}

// Disconnect frees a slot unconditionally, e.g. after a forced reconnect
// or an explicit client-initiated disconnect signal.
func (s *Server) Disconnect(slotIndex int) {
	sl := s.slots[slotIndex]
	if sl.Address != "" {
		delete(s.addrIdx, sl.Address)
	}
	*sl = *NewSlot()
}
