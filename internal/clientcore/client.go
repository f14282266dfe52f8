package clientcore

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cubesim/cubes/internal/entity"
	"github.com/cubesim/cubes/internal/metrics"
	"github.com/cubesim/cubes/internal/netaddr"
	"github.com/cubesim/cubes/internal/transport"
	"github.com/cubesim/cubes/internal/wireproto"
)

// MaxInputRunLength bounds how many ticks of redundant input history a
// single InputPacket carries, capped by wireproto.MaxInputsPerPacket.
const MaxInputRunLength = wireproto.MaxInputsPerPacket

// ServerTimeout is how long a connected client tolerates silence from the
// server before concluding the connection was lost.
const ServerTimeout = 5 * time.Second

// ClientOption configures a Client at construction time.
type ClientOption func(*Client)

// WithLogger overrides the client's structured logger.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) { c.logger = l }
}

// WithClock overrides the client's notion of "now", for deterministic
// tests.
func WithClock(now func() time.Time) ClientOption {
	return func(c *Client) { c.now = now }
}

// Client is the single-threaded, tick-driven UDP client core. Frame is
// its only entry point and must be called once per client tick.
type Client struct {
	socket  *transport.Socket
	session *Session
	codec   transport.Codec

	logger *slog.Logger
	now    func() time.Time
}

// NewClient opens an ephemeral UDP socket and returns a ready Client.
func NewClient(opts ...ClientOption) (*Client, error) {
	sock, err := transport.Listen("0.0.0.0:0")
	if err != nil {
		return nil, fmt.Errorf("clientcore: listen: %v", err)
	}
	c := &Client{
		socket:  sock,
		session: NewSession(),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close releases the underlying socket.
func (c *Client) Close() error { return c.socket.Close() }

// Session returns the client's connection state machine.
func (c *Client) Session() *Session { return c.session }

// Connect begins connecting to addr.
func (c *Client) Connect(addr netaddr.Address) {
	c.session.BeginConnect(addr, c.now())
}

// Frame drains all pending datagrams and, once connected, sends the
// current tick's input. It is the client's only per-tick entry point.
// tick is the caller's own free-running local frame counter, used as the
// tick stamp on wire packets only until the session has adopted the
// server's tick (ReadyToApplySync); from then on LocalTick is derived from
// the server's authoritative tick plus the measured sync/adjustment
// offsets rather than from the caller's counter.
func (c *Client) Frame(tick uint64, localInput entity.Input) {
	now := c.now()
	s := c.session

	switch {
	case s.ReadyToApplySync:
		s.LocalTick = s.ServerTick + uint64(s.SyncOffset)
		s.Synchronizing = false
		s.ReadyToApplySync = false
		s.Synchronized = true
	case !s.Synchronized:
		s.LocalTick = tick
	default:
		s.LocalTick++
	}
	if s.adjustmentPending {
		s.LocalTick = uint64(int64(s.LocalTick) + int64(s.AdjustmentOffset))
		s.adjustmentPending = false
	}

	s.StoreLocalInput(s.LocalTick, localInput)
	c.drainIncoming()

	switch s.State {
	case StateConnecting:
		c.tickConnecting(now)
	case StateConnected:
		if now.Sub(s.lastPacketAt) > ServerTimeout {
			s.State = StateDisconnected
			c.handleErr(fmt.Errorf("clientcore: server silent for over %s", ServerTimeout))
			return
		}
		c.sendInput()
	}
}

func (c *Client) sendInput() {
	s := c.session
	if s.Synchronizing {
		_ = c.send(&wireproto.InputPacket{
			Synchronizing: true,
			Tick:          s.LocalTick,
			SyncOffset:    s.SyncOffset,
			SyncSequence:  s.SyncSequence,
		})
		return
	}

	start, inputs := s.BuildInputRun(MaxInputRunLength)
	if len(inputs) == 0 {
		return
	}
	_ = c.send(&wireproto.InputPacket{
		Tick:               start + uint64(len(inputs)) - 1,
		Bracketed:          !s.Bracketing,
		AdjustmentSequence: s.AdjustmentSequence,
		Inputs:             inputs,
	})
}

func (c *Client) drainIncoming() {
	buf := make([]byte, transport.MaxPacketSize)
	for {
		n, from, err := c.socket.Receive(buf)
		if err != nil {
			if err == transport.ErrWouldBlock {
				return
			}
			c.handleErr(fmt.Errorf("%w: %v", ErrSocketRecv, err))
			return
		}
		if !from.Equal(c.session.ServerAddr) {
			continue // ignore datagrams from anyone but the server we're talking to
		}
		c.session.lastPacketAt = c.now()
		c.handleDatagram(buf[:n])
	}
}

func (c *Client) handleDatagram(data []byte) {
	typ, err := wireproto.PeekType(data)
	if err != nil {
		metrics.IncMalformed()
		c.handleErr(fmt.Errorf("%w: %v", ErrDecode, err))
		return
	}

	if typ == wireproto.TypeSnapshot {
		metrics.IncPacketsRx(typ.String())
		if err := c.session.applySnapshot(data); err != nil {
			metrics.IncMalformed()
			c.handleErr(fmt.Errorf("%w: %v", ErrDecode, err))
		}
		return
	}

	pkt, err := wireproto.Decode(data)
	if err != nil {
		metrics.IncMalformed()
		c.handleErr(fmt.Errorf("%w: %v", ErrDecode, err))
		return
	}
	metrics.IncPacketsRx(typ.String())

	switch p := pkt.(type) {
	case *wireproto.ConnectionAcceptedPacket:
		c.handleConnectionAccepted(p)
	case *wireproto.ConnectionDeniedPacket:
		c.handleConnectionDenied(p)
	default:
		// Input packets never arrive at a client; anything else is ignored.
	}
}

func (c *Client) send(p wireproto.Packet) error {
	buf, err := c.codec.Encode(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	if err := c.socket.Send(c.session.ServerAddr, buf); err != nil {
		return fmt.Errorf("%w: %v", ErrSocketSend, err)
	}
	metrics.IncPacketsTx(p.Type().String())
	return nil
}

func (c *Client) handleErr(err error) {
	metrics.IncError(clientMetricLabel(err))
	c.logger.Warn("client_error", "error", err)
}

func clientMetricLabel(err error) string {
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
