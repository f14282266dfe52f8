package clientcore

import (
	"fmt"
	"time"

	"github.com/cubesim/cubes/internal/wireproto"
)

// tickConnecting resends the connection request on ConnectResendInterval
// and reports ErrConnectTimedOut once ConnectTimeout has elapsed.
func (c *Client) tickConnecting(now time.Time) {
	s := c.session
	if now.Sub(s.connectingSince) > ConnectTimeout {
		s.State = StateDisconnected
		c.handleErr(ErrConnectTimedOut)
		return
	}
	if s.lastResendAt.IsZero() || now.Sub(s.lastResendAt) >= ConnectResendInterval {
		s.lastResendAt = now
		_ = c.send(&wireproto.ConnectionRequestPacket{Guid: s.Guid, ConnectSequence: s.ConnectSequence})
	}
}

func (c *Client) handleConnectionAccepted(pkt *wireproto.ConnectionAcceptedPacket) {
	s := c.session
	if s.State != StateConnecting || pkt.Guid != s.Guid || pkt.ConnectSequence != s.ConnectSequence {
		return
	}
	s.State = StateConnected
	s.lastPacketAt = c.now()
}

func (c *Client) handleConnectionDenied(pkt *wireproto.ConnectionDeniedPacket) {
	s := c.session
	if s.State != StateConnecting || pkt.Guid != s.Guid || pkt.ConnectSequence != s.ConnectSequence {
		return
	}
	s.State = StateDisconnected
	s.DenyReason = int32(pkt.Reason)
	c.handleErr(fmt.Errorf("%w: reason %d", ErrConnectionDenied, pkt.Reason))
}
