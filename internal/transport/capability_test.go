package transport

import (
	"testing"

	"github.com/cubesim/cubes/internal/wireproto"
)

func TestCodecEncodeDecodeRoundTrip(t *testing.T) {
	var codec Codec
	p := &wireproto.ConnectionRequestPacket{ConnectSequence: 9}
	buf, err := codec.Encode(p)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	got, err := codec.Decode(buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.(*wireproto.ConnectionRequestPacket).ConnectSequence != 9 {
		t.Fatalf("got %+v", got)
	}
}
