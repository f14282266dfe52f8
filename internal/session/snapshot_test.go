package session

import (
	"testing"
	"time"

	"github.com/cubesim/cubes/internal/snapshot"
	"github.com/cubesim/cubes/internal/wireproto"
)

func TestSendSnapshotWhileSyncingCarriesNoPayload(t *testing.T) {
	srv, client, serverAddr := newTestServer(t)
	sendAndDrain(t, srv, client, serverAddr, &wireproto.ConnectionRequestPacket{ConnectSequence: 1})

	current := &snapshot.QuantizedSnapshot{}
	current.Cubes[0].PositionX = 100

	if err := srv.SendSnapshot(0, current, 0); err != nil {
		t.Fatalf("SendSnapshot: %v", err)
	}
	time.Sleep(5 * time.Millisecond)

	buf := make([]byte, 4096)
	// The first datagram is the ConnectionAccepted reply to the request.
	if _, _, err := client.Receive(buf); err != nil {
		t.Fatalf("receive accept: %v", err)
	}
	n, _, err := client.Receive(buf)
	if err != nil {
		t.Fatalf("receive: %v", err)
	}
	hdr, err := wireproto.PeekSnapshotHeader(buf[:n])
	if err != nil {
		t.Fatalf("peek header: %v", err)
	}
	// A slot fresh out of ConnectionRequest is still in StateSync, so the
	// packet must be marked synchronizing and carry no cube payload.
	if !hdr.Synchronizing {
		t.Fatalf("expected synchronizing flag set for a not-yet-connected slot")
	}
	if srv.Slot(0).LastSentSnapshot != nil {
		t.Fatalf("a synchronizing send must not update LastSentSnapshot")
	}
}

func TestSendSnapshotTracksLastSentOnceConnected(t *testing.T) {
	srv, client, _ := newTestServer(t)
	srv.slots[0].Reset(1, client.LocalAddr().String(), 1, time.Now())
	srv.slots[0].State = StateConnected

	first := &snapshot.QuantizedSnapshot{}
	if err := srv.SendSnapshot(0, first, 0); err != nil {
		t.Fatalf("SendSnapshot: %v", err)
	}
	if srv.Slot(0).LastSentSnapshot != first {
		t.Fatalf("expected LastSentSnapshot to be updated after a non-synchronizing send")
	}

	second := &snapshot.QuantizedSnapshot{}
	second.Cubes[0].PositionX = 50
	if err := srv.SendSnapshot(0, second, 1); err != nil {
		t.Fatalf("SendSnapshot: %v", err)
	}
	if srv.Slot(0).LastSentSnapshot != second {
		t.Fatalf("expected LastSentSnapshot to advance to the newest send")
	}
}
