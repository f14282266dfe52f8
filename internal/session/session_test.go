package session

import (
	"testing"
	"time"

	"github.com/cubesim/cubes/internal/entity"
	"github.com/cubesim/cubes/internal/netaddr"
	"github.com/cubesim/cubes/internal/transport"
	"github.com/cubesim/cubes/internal/wireproto"
)

func newTestServer(t *testing.T) (*Server, *transport.Socket, netaddr.Address) {
	t.Helper()
	srv, err := NewServer("127.0.0.1:0")
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	t.Cleanup(func() { _ = srv.Close() })

	client, err := transport.Listen("127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	serverAddr, err := netaddr.Parse(srv.LocalAddr())
	if err != nil {
		t.Fatalf("parse server addr: %v", err)
	}
	return srv, client, serverAddr
}

func sendAndDrain(t *testing.T, srv *Server, client *transport.Socket, serverAddr netaddr.Address, p wireproto.Packet) {
	t.Helper()
	buf, err := wireproto.Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if err := client.Send(serverAddr, buf); err != nil {
		t.Fatalf("send: %v", err)
	}
	// Give the loopback datagram a moment to become receivable.
	time.Sleep(5 * time.Millisecond)
	srv.Frame(0)
}

func TestConnectionRequestAllocatesSlot(t *testing.T) {
	srv, client, serverAddr := newTestServer(t)
	sendAndDrain(t, srv, client, serverAddr, &wireproto.ConnectionRequestPacket{ConnectSequence: 1})

	if srv.ActiveCount() != 1 {
		t.Fatalf("expected 1 active slot, got %d", srv.ActiveCount())
	}
	if srv.Slot(0).State != StateSync {
		t.Fatalf("expected new slot in sync state, got %v", srv.Slot(0).State)
	}
}

func TestDuplicateConnectSequenceResendsAccept(t *testing.T) {
	srv, client, serverAddr := newTestServer(t)
	req := &wireproto.ConnectionRequestPacket{ConnectSequence: 5}
	sendAndDrain(t, srv, client, serverAddr, req)
	sendAndDrain(t, srv, client, serverAddr, req)

	if srv.ActiveCount() != 1 {
		t.Fatalf("expected still 1 active slot, got %d", srv.ActiveCount())
	}
}

func TestReconnectWithNewerSequenceReusesSlot(t *testing.T) {
	srv, client, serverAddr := newTestServer(t)
	sendAndDrain(t, srv, client, serverAddr, &wireproto.ConnectionRequestPacket{ConnectSequence: 1})
	if srv.ActiveCount() != 1 {
		t.Fatalf("expected 1 active slot after first connect")
	}
	sendAndDrain(t, srv, client, serverAddr, &wireproto.ConnectionRequestPacket{ConnectSequence: 2})
	if srv.ActiveCount() != 1 {
		t.Fatalf("reconnect should reuse the slot, not allocate a second one, got %d active", srv.ActiveCount())
	}
	if srv.Slot(0).ConnectSequence != 2 {
		t.Fatalf("expected slot to carry the newer connect sequence")
	}
}

func TestStaleConnectSequenceIgnored(t *testing.T) {
	srv, client, serverAddr := newTestServer(t)
	sendAndDrain(t, srv, client, serverAddr, &wireproto.ConnectionRequestPacket{ConnectSequence: 10})
	sendAndDrain(t, srv, client, serverAddr, &wireproto.ConnectionRequestPacket{ConnectSequence: 3})

	if srv.Slot(0).ConnectSequence != 10 {
		t.Fatalf("stale request must not overwrite the slot's connect sequence")
	}
}

func TestInputForTickFallsBackToHoldLast(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.slots[0].Reset(1, "peer", 1, time.Now())
	srv.slots[0].StoreInput(10, entity.Input{Left: true})

	got, forced := srv.InputForTick(0, 11, time.Now())
	if forced {
		t.Fatalf("should not force reconnect after a single drop")
	}
	if !got.Left {
		t.Fatalf("expected held-over input from the previous tick, got %+v", got)
	}
}

func TestInputForTickForcesReconnectAfterSustainedDrops(t *testing.T) {
	srv, _, _ := newTestServer(t)
	srv.slots[0].Reset(1, "peer", 1, time.Now())

	now := time.Now()
	forced := false
	for tick := uint64(0); tick < ReconnectDroppedLimit+1; tick++ {
		_, forced = srv.InputForTick(0, tick, now)
		if forced {
			break
		}
	}
	if !forced {
		t.Fatalf("expected forced reconnect after %d consecutive drops", ReconnectDroppedLimit)
	}
}

func TestTimeoutFreesSlot(t *testing.T) {
	srv, client, serverAddr := newTestServer(t)
	sendAndDrain(t, srv, client, serverAddr, &wireproto.ConnectionRequestPacket{ConnectSequence: 1})
	if srv.ActiveCount() != 1 {
		t.Fatalf("expected 1 active slot")
	}

	base := time.Now()
	srv.now = func() time.Time { return base.Add(DefaultTimeout + time.Second) }
	srv.Frame(0)

	if srv.ActiveCount() != 0 {
		t.Fatalf("expected timeout to free the slot, got %d active", srv.ActiveCount())
	}
}

func TestSequenceGreaterThanWraparound(t *testing.T) {
	cases := []struct {
		a, b uint16
		want bool
	}{
		{1, 0, true},
		{0, 1, false},
		{0, 65535, true},
		{65535, 0, false},
		{100, 200, false},
		{200, 100, true},
	}
	for _, c := range cases {
		if got := sequenceGreaterThan(c.a, c.b); got != c.want {
			t.Errorf("sequenceGreaterThan(%d,%d) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}
