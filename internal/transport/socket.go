// Package transport wraps a UDP socket in the non-blocking, poll-once-per-
// frame shape the single-threaded core needs, and carries the capability-
// interface pattern used elsewhere in this codebase for optional protocol
// features.
package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/cubesim/cubes/internal/netaddr"
)

// MaxPacketSize bounds a single UDP datagram this core will ever send or
// accept; anything larger is almost certainly not one of ours.
const MaxPacketSize = 4096

// ErrWouldBlock is returned by Receive when no datagram is currently
// available — the non-blocking-read analogue of the source's EAGAIN path.
var ErrWouldBlock = errors.New("transport: would block")

// Socket wraps a bound UDP endpoint. Go's net package has no raw
// O_NONBLOCK switch the way original_source/network.cpp's Socket uses
// fcntl/ioctlsocket; Receive instead sets a read deadline 100µs ahead
// before each attempt and treats a timeout as "nothing available",
// the idiomatic Go substitute for EAGAIN. (A deadline already in the past
// would fail every read before the socket is even checked.)
type Socket struct {
	conn *net.UDPConn
}

// Listen opens a UDP socket bound to addr (use ":0" for an ephemeral port,
// as a client does).
func Listen(addr string) (*Socket, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, fmt.Errorf("transport: resolve %q: %w", addr, err)
	}
	conn, err := net.ListenUDP("udp", udpAddr)
	if err != nil {
		return nil, fmt.Errorf("transport: listen %q: %w", addr, err)
	}
	return &Socket{conn: conn}, nil
}

// LocalAddr returns the socket's bound local address.
func (s *Socket) LocalAddr() net.Addr { return s.conn.LocalAddr() }

// Close releases the underlying OS socket.
func (s *Socket) Close() error { return s.conn.Close() }

// Send writes data to addr in a single datagram.
func (s *Socket) Send(addr netaddr.Address, data []byte) error {
	_, err := s.conn.WriteToUDP(data, addr.UDPAddr())
	if err != nil {
		return fmt.Errorf("transport: send to %s: %w", addr, err)
	}
	return nil
}

// Receive attempts to read one datagram, waiting at most 100µs. It returns
// ErrWouldBlock (not an error worth logging) when nothing is available.
func (s *Socket) Receive(buf []byte) (int, netaddr.Address, error) {
	if err := s.conn.SetReadDeadline(time.Now().Add(100 * time.Microsecond)); err != nil {
		return 0, netaddr.Address{}, fmt.Errorf("transport: set deadline: %w", err)
	}
	n, from, err := s.conn.ReadFromUDP(buf)
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return 0, netaddr.Address{}, ErrWouldBlock
		}
		if errors.Is(err, os.ErrDeadlineExceeded) {
			return 0, netaddr.Address{}, ErrWouldBlock
		}
		return 0, netaddr.Address{}, fmt.Errorf("transport: receive: %w", err)
	}
	return n, netaddr.FromUDPAddr(from), nil
}
