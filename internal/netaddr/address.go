// Package netaddr parses the "host:port" address forms used throughout the
// core (client CLI argument, mDNS-discovered server address), wrapping
// net.UDPAddr the way original_source/network.cpp's Address class wraps a
// sockaddr_storage.
package netaddr

import (
	"fmt"
	"net"
)

// Address is a parsed, resolved UDP endpoint.
type Address struct {
	udp *net.UDPAddr
}

// Parse accepts "ipv4:port" or "[ipv6]:port" forms (net.SplitHostPort
// already understands both, the idiomatic Go equivalent of the source's
// manual bracket/colon scanning ahead of inet_pton).
func Parse(s string) (Address, error) {
	host, port, err := net.SplitHostPort(s)
	if err != nil {
		return Address{}, fmt.Errorf("netaddr: parse %q: %w", s, err)
	}
	udpAddr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, port))
	if err != nil {
		return Address{}, fmt.Errorf("netaddr: resolve %q: %w", s, err)
	}
	return Address{udp: udpAddr}, nil
}

// FromUDPAddr wraps an already-resolved *net.UDPAddr (e.g. from
// PacketConn.ReadFrom).
func FromUDPAddr(a *net.UDPAddr) Address { return Address{udp: a} }

// UDPAddr returns the underlying *net.UDPAddr, or nil for the zero value.
func (a Address) UDPAddr() *net.UDPAddr { return a.udp }

// IsZero reports whether a was never successfully parsed/assigned.
func (a Address) IsZero() bool { return a.udp == nil }

// String renders the address in "host:port" form.
func (a Address) String() string {
	if a.udp == nil {
		return ""
	}
	return a.udp.String()
}

// Equal reports whether a and other refer to the same IP and port.
func (a Address) Equal(other Address) bool {
	if a.udp == nil || other.udp == nil {
		return a.udp == other.udp
	}
	return a.udp.IP.Equal(other.udp.IP) && a.udp.Port == other.udp.Port
}
