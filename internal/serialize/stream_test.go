package serialize

import "testing"

type point struct {
	X, Y int32
	Flag bool
}

func (p *point) Serialize(s Stream) {
	s.SerializeInteger(&p.X, -100, 100)
	s.SerializeInteger(&p.Y, 0, 1000)
	s.SerializeBool(&p.Flag)
}

func TestWriteReadStreamRoundTrip(t *testing.T) {
	p := point{X: -42, Y: 777, Flag: true}

	ms := NewMeasureStream()
	p.Serialize(ms)

	buf := make([]byte, ((ms.Bits()+31)/32+1)*4)
	ws := NewWriteStream(buf)
	p.Serialize(ws)
	ws.Flush()
	if ws.Overflow() {
		t.Fatalf("unexpected overflow")
	}

	var got point
	rs := NewReadStream(buf)
	got.Serialize(rs)
	if rs.Overflow() {
		t.Fatalf("unexpected read overflow")
	}
	if got != p {
		t.Fatalf("got %+v want %+v", got, p)
	}
}

func TestZigzag(t *testing.T) {
	cases := []int32{0, -1, 1, -2, 2, 100, -100, 2147483647, -2147483648}
	for _, c := range cases {
		u := SignedToUnsigned(c)
		back := UnsignedToSigned(u)
		if back != c {
			t.Fatalf("zigzag round trip failed: %d -> %d -> %d", c, u, back)
		}
	}
}

func TestBitsRequired(t *testing.T) {
	cases := []struct {
		min, max uint32
		want     int
	}{
		{0, 0, 0},
		{0, 1, 1},
		{0, 255, 8},
		{0, 256, 9},
		{10, 10, 0},
	}
	for _, c := range cases {
		got := BitsRequired(c.min, c.max)
		if got != c.want {
			t.Fatalf("BitsRequired(%d,%d) = %d, want %d", c.min, c.max, got, c.want)
		}
	}
}

func TestMeasureStreamCountsBits(t *testing.T) {
	p := point{X: 50, Y: 500}
	ms := NewMeasureStream()
	p.Serialize(ms)
	if ms.Bits() <= 0 {
		t.Fatalf("expected nonzero bits")
	}
}

func TestBytesAlignedRoundTrip(t *testing.T) {
	buf := make([]byte, 16)
	ws := NewWriteStream(buf)
	var flag bool = true
	ws.SerializeBool(&flag)
	payload := []byte{10, 20, 30}
	ws.SerializeBytes(payload)
	ws.Flush()

	rs := NewReadStream(buf)
	var gotFlag bool
	rs.SerializeBool(&gotFlag)
	got := make([]byte, len(payload))
	rs.SerializeBytes(got)
	if !gotFlag {
		t.Fatalf("flag round trip failed")
	}
	for i := range payload {
		if got[i] != payload[i] {
			t.Fatalf("byte %d: got %d want %d", i, got[i], payload[i])
		}
	}
}
