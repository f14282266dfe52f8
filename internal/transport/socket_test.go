package transport

import (
	"errors"
	"testing"
	"time"

	"github.com/cubesim/cubes/internal/netaddr"
)

func TestSocketReceiveWouldBlock(t *testing.T) {
	s, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer s.Close()
	buf := make([]byte, MaxPacketSize)
	_, _, err = s.Receive(buf)
	if !errors.Is(err, ErrWouldBlock) {
		t.Fatalf("expected ErrWouldBlock, got %v", err)
	}
}

func TestSocketSendReceiveRealLoopback(t *testing.T) {
	server, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen server: %v", err)
	}
	defer server.Close()
	client, err := Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen client: %v", err)
	}
	defer client.Close()

	serverAddr, err := netaddr.Parse(server.LocalAddr().String())
	if err != nil {
		t.Fatalf("parse server addr: %v", err)
	}

	payload := []byte("hello cubes")
	if err := client.Send(serverAddr, payload); err != nil {
		t.Fatalf("send: %v", err)
	}

	buf := make([]byte, MaxPacketSize)
	var n int
	var from netaddr.Address
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		n, from, err = server.Receive(buf)
		if err == nil {
			break
		}
		if !errors.Is(err, ErrWouldBlock) {
			t.Fatalf("receive: %v", err)
		}
		time.Sleep(time.Millisecond)
	}
	if err != nil {
		t.Fatalf("never received: %v", err)
	}
	if string(buf[:n]) != string(payload) {
		t.Fatalf("got %q want %q", buf[:n], payload)
	}
	if from.IsZero() {
		t.Fatalf("expected a non-zero from address")
	}
}
