package format

import (
	"encoding/binary"
	"fmt"

	verr "github.com/nihei9/farkle/error"
	"golang.org/x/exp/slices"
)

// byteReader is a little-endian cursor over an in-memory region. The first failure sticks: later reads return
// zero values and err keeps the original cause, so callers can check once after a batch of reads.
type byteReader struct {
	b      []byte
	pos    int
	stream string
	err    error
}

func newByteReader(b []byte, stream string) *byteReader {
	return &byteReader{
		b:      b,
		stream: stream,
	}
}

func (r *byteReader) fail(cause error, format string, a ...interface{}) {
	if r.err != nil {
		return
	}
	r.err = &verr.FormatError{
		Cause:  cause,
		Stream: r.stream,
		Offset: r.pos,
		Detail: fmt.Sprintf(format, a...),
	}
}

func (r *byteReader) remaining() int {
	return len(r.b) - r.pos
}

func (r *byteReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.remaining() {
		r.fail(verr.ErrTruncatedStream, "%v bytes are needed but only %v remain", n, r.remaining())
		return nil
	}
	b := r.b[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *byteReader) skip(n int) {
	r.take(n)
}

// align skips to the next multiple of n counted from the start of the region.
func (r *byteReader) align(n int) {
	if rem := r.pos % n; rem != 0 {
		r.skip(n - rem)
	}
}

func (r *byteReader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *byteReader) u16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *byteReader) u32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *byteReader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// uint reads an unsigned integer of 1, 2, or 4 bytes.
func (r *byteReader) uint(width int) uint32 {
	switch width {
	case 1:
		return uint32(r.u8())
	case 2:
		return uint32(r.u16())
	case 4:
		return r.u32()
	}
	panic(fmt.Sprintf("unsupported integer width %v", width))
}

func (r *byteReader) uints(count, width int) []uint32 {
	if r.err != nil {
		return nil
	}
	if count*width > r.remaining() {
		r.fail(verr.ErrTruncatedStream, "an array of %v %v-byte integers doesn't fit in %v bytes", count, width, r.remaining())
		return nil
	}
	vs := make([]uint32, count)
	for i := range vs {
		vs[i] = r.uint(width)
	}
	return vs
}

// byteWriter accumulates little-endian values in memory.
type byteWriter struct {
	b []byte
}

func (w *byteWriter) grow(n int) {
	w.b = slices.Grow(w.b, n)
}

func (w *byteWriter) len() int {
	return len(w.b)
}

func (w *byteWriter) bytes(b []byte) {
	w.b = append(w.b, b...)
}

func (w *byteWriter) u8(v uint8) {
	w.b = append(w.b, v)
}

func (w *byteWriter) u16(v uint16) {
	w.b = binary.LittleEndian.AppendUint16(w.b, v)
}

func (w *byteWriter) u32(v uint32) {
	w.b = binary.LittleEndian.AppendUint32(w.b, v)
}

func (w *byteWriter) u64(v uint64) {
	w.b = binary.LittleEndian.AppendUint64(w.b, v)
}

func (w *byteWriter) uint(width int, v uint32) {
	switch width {
	case 1:
		w.u8(uint8(v))
	case 2:
		w.u16(uint16(v))
	case 4:
		w.u32(v)
	default:
		panic(fmt.Sprintf("unsupported integer width %v", width))
	}
}

func (w *byteWriter) uints(width int, vs []uint32) {
	w.grow(width * len(vs))
	for _, v := range vs {
		w.uint(width, v)
	}
}

// pad appends zero bytes up to the next multiple of n.
func (w *byteWriter) pad(n int) {
	for len(w.b)%n != 0 {
		w.b = append(w.b, 0)
	}
}

// fits reports whether v can be stored in width bytes.
func fits(v uint32, width int) bool {
	switch width {
	case 1:
		return v <= 0xff
	case 2:
		return v <= 0xffff
	}
	return true
}
