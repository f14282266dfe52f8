package session

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cubesim/cubes/internal/metrics"
	"github.com/cubesim/cubes/internal/netaddr"
	"github.com/cubesim/cubes/internal/transport"
	"github.com/cubesim/cubes/internal/wireproto"
)

// MaxClients bounds the fixed slot array; it is also the entity manager's
// reserved player count, so slot index i always owns entity index i+1.
const MaxClients = 32

// DefaultTimeout is how long a connected slot tolerates silence from its
// peer before being freed.
const DefaultTimeout = 5 * time.Second

// ServerOption configures a Server at construction time, following the
// teacher's functional-options pattern.
type ServerOption func(*Server)

// WithLogger overrides the server's structured logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *Server) { s.logger = l }
}

// WithTimeout overrides the per-client silence timeout.
func WithTimeout(d time.Duration) ServerOption {
	return func(s *Server) { s.timeout = d }
}

// WithClock overrides the server's notion of "now", for deterministic
// tests.
func WithClock(now func() time.Time) ServerOption {
	return func(s *Server) { s.now = now }
}

// Server is the single-threaded, tick-driven UDP server core. It owns one
// non-blocking socket and a fixed array of client slots; Frame is the only
// entry point and must be called once per server tick from the caller's
// fixed-step loop.
type Server struct {
	socket  *transport.Socket
	slots   [MaxClients]*Slot
	addrIdx map[string]int
	codec   transport.Codec

	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

// NewServer opens a UDP socket at addr and returns a ready Server.
func NewServer(addr string, opts ...ServerOption) (*Server, error) {
	sock, err := transport.Listen(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrListen, err)
	}
	s := &Server{
		socket:  sock,
		addrIdx: make(map[string]int, MaxClients),
		logger:  slog.Default(),
		timeout: DefaultTimeout,
		now:     time.Now,
	}
	for i := range s.slots {
		s.slots[i] = NewSlot()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close releases the underlying socket.
func (s *Server) Close() error { return s.socket.Close() }

// LocalAddr returns the bound local address.
func (s *Server) LocalAddr() string { return s.socket.LocalAddr().String() }

// Slot returns the slot at index, or nil if out of range.
func (s *Server) Slot(index int) *Slot {
	if index < 0 || index >= MaxClients {
		return nil
	}
	return s.slots[index]
}

// ActiveCount returns the number of non-disconnected slots.
func (s *Server) ActiveCount() int {
	n := 0
	for _, sl := range s.slots {
		if sl.State != StateDisconnected {
			n++
		}
	}
	return n
}

// Frame drains all pending datagrams, advances every connected slot's
// state machine, and reaps timed-out clients. It is the server's only
// per-tick entry point; individual packet errors are logged and counted,
// never fatal to the frame.
func (s *Server) Frame(tick uint64) {
	now := s.now()
	s.drainIncoming(now, tick)
	s.reapTimeouts(now)
	metrics.SetActiveClients(s.ActiveCount())
}

func (s *Server) drainIncoming(now time.Time, tick uint64) {
	buf := make([]byte, transport.MaxPacketSize)
	for {
		n, from, err := s.socket.Receive(buf)
		if err != nil {
			if err == transport.ErrWouldBlock {
				return
			}
			s.handleErr(fmt.Errorf("%w: %v", ErrSocketRecv, err))
			return
		}
		s.handleDatagram(buf[:n], from, now, tick)
	}
}

func (s *Server) handleDatagram(data []byte, from netaddr.Address, now time.Time, tick uint64) {
	typ, err := wireproto.PeekType(data)
	if err != nil {
		metrics.IncMalformed()
		s.handleErr(fmt.Errorf("%w: %v", ErrDecode, err))
		return
	}

	switch typ {
	case wireproto.TypeConnectionRequest:
		pkt, err := wireproto.Decode(data)
		if err != nil {
			metrics.IncMalformed()
			s.handleErr(fmt.Errorf("%w: %v", ErrDecode, err))
			return
		}
		req := pkt.(*wireproto.ConnectionRequestPacket)
		metrics.IncPacketsRx(typ.String())
		s.handleConnectionRequest(req, from, now)

	case wireproto.TypeInput:
		pkt, err := wireproto.Decode(data)
		if err != nil {
			metrics.IncMalformed()
			s.handleErr(fmt.Errorf("%w: %v", ErrDecode, err))
			return
		}
		in := pkt.(*wireproto.InputPacket)
		metrics.IncPacketsRx(typ.String())
		s.handleInput(in, from, now, tick)

	default:
		metrics.IncMalformed()
		s.handleErr(fmt.Errorf("%w: unexpected packet type %s from %s", ErrDecode, typ, from))
	}
}

// SendTo encodes and sends p to addr, counting metrics the same way for
// every packet type regardless of call site.
func (s *Server) SendTo(addr netaddr.Address, p wireproto.Packet) error {
	buf, err := s.codec.Encode(p)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrEncode, err)
	}
	if err := s.socket.Send(addr, buf); err != nil {
		return fmt.Errorf("%w: %v", ErrSocketSend, err)
	}
	metrics.IncPacketsTx(p.Type().String())
	return nil
}

func (s *Server) handleErr(err error) {
	metrics.IncError(mapErrToMetric(err))
	s.logger.Warn("session_error", "error", err)
}

// findSlotByAddr returns the slot index owned by addr, if any.
func (s *Server) findSlotByAddr(addr string) (int, bool) {
	idx, ok := s.addrIdx[addr]
	return idx, ok
}

// allocateSlot finds a free (disconnected) slot index, or -1.
func (s *Server) allocateSlot() int {
	for i, sl := range s.slots {
		if sl.State == StateDisconnected {
			return i
		}
	}
	return -1
}

// entityIndexFor returns the entity.Manager index reserved for slot i.
func entityIndexFor(slotIndex int) int { return slotIndex + 1 }
