// Package serialize implements the "template over stream" polymorphism:
// one Serialize method per wire type, written once against the Stream
// interface, that serves encoding, decoding and size-measurement depending
// on which concrete Stream implementation is passed in.
package serialize

import "github.com/cubesim/cubes/internal/bitstream"

// Stream is implemented by WriteStream, ReadStream and MeasureStream.
// Every wire type implements exactly one method:
//
//	func (p *SomePacket) Serialize(s serialize.Stream) error
//
// which calls the Stream methods below to move each field. On a
// WriteStream the calls write p's fields to the wire; on a ReadStream they
// overwrite p's fields from the wire; on a MeasureStream they compute the
// number of bits the packet would occupy without touching any buffer.
type Stream interface {
	// IsReading reports whether this stream is populating its target from
	// the wire (true) or from the given values (false).
	IsReading() bool
	// SerializeBool reads or writes a single bit as a bool.
	SerializeBool(v *bool)
	// SerializeBits reads or writes the low `bits` bits of *v.
	SerializeBits(v *uint32, bits int)
	// SerializeInteger reads or writes *v, known to lie in [min, max]
	// inclusive, using the minimum number of bits that range requires.
	SerializeInteger(v *int32, min, max int32)
	// SerializeBytes reads or writes a byte-aligned run of len(data) bytes.
	SerializeBytes(data []byte)
	// Align pads (on write) or consumes padding (on read) up to the next
	// byte boundary.
	Align()
	// Check verifies (on read) or writes (on write) a 32-bit magic value,
	// used as a cheap desync detector between sender and receiver.
	Check(magic uint32)
	// Overflow reports whether the underlying buffer has been exceeded.
	Overflow() bool
}

// WriteStream serializes values into a byte buffer.
type WriteStream struct {
	w *bitstream.Writer
}

// NewWriteStream wraps buf (length must be a multiple of 4) for writing.
func NewWriteStream(buf []byte) *WriteStream { return &WriteStream{w: bitstream.NewWriter(buf)} }

func (s *WriteStream) IsReading() bool { return false }

func (s *WriteStream) SerializeBool(v *bool) {
	var b uint32
	if *v {
		b = 1
	}
	s.w.WriteBits(b, 1)
}

func (s *WriteStream) SerializeBits(v *uint32, bits int) { s.w.WriteBits(*v, bits) }

func (s *WriteStream) SerializeInteger(v *int32, min, max int32) {
	bits := BitsRequired(0, uint32(max-min))
	if bits == 0 {
		return
	}
	s.w.WriteBits(uint32(*v-min), bits)
}

func (s *WriteStream) SerializeBytes(data []byte) {
	s.w.WriteAlign()
	s.w.WriteBytes(data)
}

func (s *WriteStream) Align() { s.w.WriteAlign() }

func (s *WriteStream) Check(magic uint32) { s.w.WriteBits(magic, 32) }

func (s *WriteStream) Overflow() bool { return s.w.Overflow() }

// Flush finalizes the underlying bit writer and returns the byte length
// actually used.
func (s *WriteStream) Flush() int { return s.w.Flush() }

// ReadStream deserializes values from a byte buffer.
type ReadStream struct {
	r *bitstream.Reader
}

// NewReadStream wraps buf (length must be a multiple of 4) for reading.
func NewReadStream(buf []byte) *ReadStream { return &ReadStream{r: bitstream.NewReader(buf)} }

func (s *ReadStream) IsReading() bool { return true }

func (s *ReadStream) SerializeBool(v *bool) { *v = s.r.ReadBits(1) != 0 }

func (s *ReadStream) SerializeBits(v *uint32, bits int) { *v = s.r.ReadBits(bits) }

func (s *ReadStream) SerializeInteger(v *int32, min, max int32) {
	bits := BitsRequired(0, uint32(max-min))
	if bits == 0 {
		*v = min
		return
	}
	*v = min + int32(s.r.ReadBits(bits))
}

func (s *ReadStream) SerializeBytes(data []byte) {
	s.r.ReadAlign()
	copy(data, s.r.ReadBytes(len(data)))
}

func (s *ReadStream) Align() { s.r.ReadAlign() }

func (s *ReadStream) Check(magic uint32) { s.r.Check(magic) }

func (s *ReadStream) Overflow() bool { return s.r.Overflow() }

// MeasureStream computes the bit cost of a Serialize call without touching
// any buffer. AlignBits conservatively assumes the worst case (7 bits),
// matching the source, since the true cost depends on bits written so far
// elsewhere in the packet which a pure measurement pass may not track.
type MeasureStream struct {
	bits int
}

// NewMeasureStream returns a fresh measurement stream.
func NewMeasureStream() *MeasureStream { return &MeasureStream{} }

func (s *MeasureStream) IsReading() bool { return false }

func (s *MeasureStream) SerializeBool(v *bool) { s.bits++ }

func (s *MeasureStream) SerializeBits(v *uint32, bits int) { s.bits += bits }

func (s *MeasureStream) SerializeInteger(v *int32, min, max int32) {
	s.bits += BitsRequired(0, uint32(max-min))
}

func (s *MeasureStream) SerializeBytes(data []byte) {
	s.Align()
	s.bits += len(data) * 8
}

// Align adds the conservative worst-case alignment padding (7 bits).
func (s *MeasureStream) Align() { s.bits += 7 }

func (s *MeasureStream) Check(magic uint32) { s.bits += 32 }

func (s *MeasureStream) Overflow() bool { return false }

// Bits returns the accumulated bit cost.
func (s *MeasureStream) Bits() int { return s.bits }

// Bytes returns ceil(Bits()/8).
func (s *MeasureStream) Bytes() int { return (s.bits + 7) / 8 }
