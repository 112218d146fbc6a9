package format

import (
	"bytes"
	"strings"
	"unicode/utf8"

	verr "github.com/nihei9/farkle/error"
)

// MaxHeapSize bounds either heap so that heap indices never need more than 4 bytes and blob lengths always fit a
// compressed integer.
const MaxHeapSize = 1 << 29

// wideHeapThreshold is the largest heap still addressed with 2-byte indices.
const wideHeapThreshold = 1 << 16

func heapIndexWidth(heapSize int) int {
	if heapSize <= wideHeapThreshold {
		return 2
	}
	return 4
}

// stringHeapBuilder collects NUL-terminated UTF-8 strings. Offset 0 is the empty string, and equal strings share
// an offset.
type stringHeapBuilder struct {
	buf     []byte
	offsets map[string]uint32
}

func newStringHeapBuilder() *stringHeapBuilder {
	return &stringHeapBuilder{
		buf: []byte{0},
		offsets: map[string]uint32{
			"": 0,
		},
	}
}

func (h *stringHeapBuilder) add(s string) (uint32, error) {
	if off, ok := h.offsets[s]; ok {
		return off, nil
	}
	if strings.IndexByte(s, 0) >= 0 {
		return 0, verr.Errorf(verr.ErrInconsistentGrammar, "string %q contains a NUL character", s)
	}
	if !utf8.ValidString(s) {
		return 0, verr.Errorf(verr.ErrInconsistentGrammar, "string %q is not valid UTF-8", s)
	}
	if len(h.buf)+len(s)+1 > MaxHeapSize {
		return 0, verr.Errorf(verr.ErrInconsistentGrammar, "the string heap exceeds %v bytes", MaxHeapSize)
	}
	off := uint32(len(h.buf))
	h.buf = append(h.buf, s...)
	h.buf = append(h.buf, 0)
	h.offsets[s] = off
	return off, nil
}

// bytes returns the heap contents, or nil when it holds nothing but the empty string.
func (h *stringHeapBuilder) bytes() []byte {
	if len(h.buf) == 1 {
		return nil
	}
	return h.buf
}

// blobHeapBuilder collects length-prefixed byte runs. Offset 0 is the empty blob, and equal blobs share an
// offset.
type blobHeapBuilder struct {
	buf     []byte
	offsets map[string]uint32
}

func newBlobHeapBuilder() *blobHeapBuilder {
	return &blobHeapBuilder{
		buf: []byte{0},
		offsets: map[string]uint32{
			"": 0,
		},
	}
}

func (h *blobHeapBuilder) add(b []byte) (uint32, error) {
	if off, ok := h.offsets[string(b)]; ok {
		return off, nil
	}
	if len(h.buf)+VarUintSize(uint32(len(b)))+len(b) > MaxHeapSize || len(b) > MaxVarUint {
		return 0, verr.Errorf(verr.ErrInconsistentGrammar, "the blob heap exceeds %v bytes", MaxHeapSize)
	}
	off := uint32(len(h.buf))
	var err error
	h.buf, err = AppendVarUint(h.buf, uint32(len(b)))
	if err != nil {
		return 0, err
	}
	h.buf = append(h.buf, b...)
	h.offsets[string(b)] = off
	return off, nil
}

func (h *blobHeapBuilder) bytes() []byte {
	if len(h.buf) == 1 {
		return nil
	}
	return h.buf
}

type stringHeap struct {
	b []byte

	// strict rejects offsets that don't point at the start of a string.
	strict bool
}

func newStringHeap(b []byte, strict bool) (*stringHeap, error) {
	if len(b) > 0 && b[0] != 0 {
		return nil, &verr.FormatError{
			Cause:  verr.ErrMalformedIndex,
			Stream: streamNameStrings,
			Detail: "the string heap must start with the empty string",
		}
	}
	if len(b) > MaxHeapSize {
		return nil, &verr.FormatError{
			Cause:  verr.ErrMalformedIndex,
			Stream: streamNameStrings,
			Detail: "the string heap is too large",
		}
	}
	return &stringHeap{
		b:      b,
		strict: strict,
	}, nil
}

func (h *stringHeap) at(off uint32) (string, error) {
	if off == 0 {
		return "", nil
	}
	if int64(off) >= int64(len(h.b)) {
		return "", &verr.FormatError{
			Cause:  verr.ErrMalformedIndex,
			Stream: streamNameStrings,
			Offset: int(off),
			Detail: "the offset is past the end of the heap",
		}
	}
	if h.strict && h.b[off-1] != 0 {
		return "", &verr.FormatError{
			Cause:  verr.ErrMalformedIndex,
			Stream: streamNameStrings,
			Offset: int(off),
			Detail: "the offset points into the middle of a string",
		}
	}
	n := bytes.IndexByte(h.b[off:], 0)
	if n < 0 {
		return "", &verr.FormatError{
			Cause:  verr.ErrMalformedIndex,
			Stream: streamNameStrings,
			Offset: int(off),
			Detail: "the string is not terminated",
		}
	}
	s := h.b[off : int(off)+n]
	if h.strict && !utf8.Valid(s) {
		return "", &verr.FormatError{
			Cause:  verr.ErrMalformedIndex,
			Stream: streamNameStrings,
			Offset: int(off),
			Detail: "the string is not valid UTF-8",
		}
	}
	return string(s), nil
}

type blobHeap struct {
	b []byte
}

func newBlobHeap(b []byte) (*blobHeap, error) {
	if len(b) > 0 && b[0] != 0 {
		return nil, &verr.FormatError{
			Cause:  verr.ErrMalformedIndex,
			Stream: streamNameBlob,
			Detail: "the blob heap must start with the empty blob",
		}
	}
	return &blobHeap{
		b: b,
	}, nil
}

// at returns the blob at off. The result aliases the heap.
func (h *blobHeap) at(off uint32) ([]byte, error) {
	if off == 0 {
		return nil, nil
	}
	if int64(off) >= int64(len(h.b)) {
		return nil, &verr.FormatError{
			Cause:  verr.ErrMalformedIndex,
			Stream: streamNameBlob,
			Offset: int(off),
			Detail: "the offset is past the end of the heap",
		}
	}
	l, n, err := ReadVarUint(h.b[off:])
	if err != nil {
		if fe, ok := err.(*verr.FormatError); ok {
			fe.Stream = streamNameBlob
			fe.Offset = int(off)
		}
		return nil, err
	}
	start := int(off) + n
	if int64(start)+int64(l) > int64(len(h.b)) {
		return nil, &verr.FormatError{
			Cause:  verr.ErrTruncatedStream,
			Stream: streamNameBlob,
			Offset: int(off),
			Detail: "the blob runs past the end of the heap",
		}
	}
	return h.b[start : start+int(l)], nil
}
