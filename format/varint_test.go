package format

import (
	"bytes"
	"testing"

	verr "github.com/nihei9/farkle/error"
)

func TestVarUint(t *testing.T) {
	tests := []struct {
		value   uint32
		encoded []byte
	}{
		{value: 0, encoded: []byte{0x00}},
		{value: 0x03, encoded: []byte{0x03}},
		{value: 0x7f, encoded: []byte{0x7f}},
		{value: 0x80, encoded: []byte{0x80, 0x80}},
		{value: 0x2e57, encoded: []byte{0xae, 0x57}},
		{value: 0x3fff, encoded: []byte{0xbf, 0xff}},
		{value: 0x4000, encoded: []byte{0xc0, 0x00, 0x40, 0x00}},
		{value: MaxVarUint, encoded: []byte{0xdf, 0xff, 0xff, 0xff}},
	}
	for _, tt := range tests {
		b, err := AppendVarUint(nil, tt.value)
		if err != nil {
			t.Fatalf("%#x: unexpected error: %v", tt.value, err)
		}
		if !bytes.Equal(b, tt.encoded) {
			t.Fatalf("%#x: unexpected encoding; want: %x, got: %x", tt.value, tt.encoded, b)
		}
		if VarUintSize(tt.value) != len(tt.encoded) {
			t.Fatalf("%#x: unexpected size; want: %v, got: %v", tt.value, len(tt.encoded), VarUintSize(tt.value))
		}

		// Trailing bytes must be left alone.
		v, n, err := ReadVarUint(append(b, 0xff))
		if err != nil {
			t.Fatalf("%#x: unexpected error: %v", tt.value, err)
		}
		if v != tt.value || n != len(tt.encoded) {
			t.Fatalf("unexpected decoding; want: (%#x, %v), got: (%#x, %v)", tt.value, len(tt.encoded), v, n)
		}
	}
}

func TestVarUint_Error(t *testing.T) {
	tests := []struct {
		caption string
		encoded []byte
		cause   error
	}{
		{
			caption: "an empty input",
			encoded: nil,
			cause:   verr.ErrTruncatedStream,
		},
		{
			caption: "a 2-byte integer with one byte",
			encoded: []byte{0x80},
			cause:   verr.ErrTruncatedStream,
		},
		{
			caption: "a 4-byte integer with three bytes",
			encoded: []byte{0xc0, 0x00, 0x00},
			cause:   verr.ErrTruncatedStream,
		},
		{
			caption: "the reserved prefix 111",
			encoded: []byte{0xe0, 0x00, 0x00, 0x00, 0x00},
			cause:   verr.ErrMalformedVarint,
		},
		{
			caption: "an all-ones leading byte",
			encoded: []byte{0xff},
			cause:   verr.ErrMalformedVarint,
		},
	}
	for _, tt := range tests {
		t.Run(tt.caption, func(t *testing.T) {
			_, _, err := ReadVarUint(tt.encoded)
			if !verr.Is(err, tt.cause) {
				t.Fatalf("unexpected error; want: %v, got: %v", tt.cause, err)
			}
		})
	}

	if _, err := AppendVarUint(nil, MaxVarUint+1); !verr.Is(err, verr.ErrMalformedVarint) {
		t.Fatalf("encoding a value past the maximum must fail; got: %v", err)
	}
	if VarUintSize(MaxVarUint+1) != 0 {
		t.Fatalf("a value past the maximum has no size")
	}
}

func TestTableIndexWidth(t *testing.T) {
	tests := []struct {
		rowCount int
		width    int
	}{
		{rowCount: 0, width: 1},
		{rowCount: 1, width: 1},
		{rowCount: 254, width: 1},
		{rowCount: 255, width: 2},
		{rowCount: 65534, width: 2},
		{rowCount: 65535, width: 4},
		{rowCount: 65536, width: 4},
	}
	for _, tt := range tests {
		if w := TableIndexWidth(tt.rowCount); w != tt.width {
			t.Errorf("%v rows: want: %v, got: %v", tt.rowCount, tt.width, w)
		}
	}
}

func TestCodedIndexWidth(t *testing.T) {
	tests := []struct {
		tagBits     int
		maxRowCount int
		width       int
	}{
		{tagBits: 1, maxRowCount: 0, width: 1},
		{tagBits: 1, maxRowCount: 126, width: 1},
		{tagBits: 1, maxRowCount: 127, width: 2},
		{tagBits: 1, maxRowCount: 32766, width: 2},
		{tagBits: 1, maxRowCount: 32767, width: 4},
		{tagBits: 2, maxRowCount: 62, width: 1},
		{tagBits: 2, maxRowCount: 63, width: 2},
	}
	for _, tt := range tests {
		if w := CodedIndexWidth(tt.tagBits, tt.maxRowCount); w != tt.width {
			t.Errorf("%v tag bits, %v rows: want: %v, got: %v", tt.tagBits, tt.maxRowCount, tt.width, w)
		}
	}
}

// The largest index a width holds, plus one for run terminators, must still fit.
func TestTableIndexWidth_FitsRunTerminator(t *testing.T) {
	for _, rowCount := range []int{0, 1, 253, 254, 255, 65533, 65534, 65535, 1 << 20} {
		if !fits(uint32(rowCount+1), TableIndexWidth(rowCount)) {
			t.Errorf("%v rows: %v doesn't fit in %v bytes", rowCount, rowCount+1, TableIndexWidth(rowCount))
		}
	}
}
