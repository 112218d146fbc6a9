package format

import (
	verr "github.com/nihei9/farkle/error"
)

// MaxVarUint is the largest value a compressed unsigned integer can hold.
const MaxVarUint = 1<<29 - 1

// ReadVarUint decodes a compressed unsigned integer from the head of b and returns the value and the number of
// bytes it occupied. The encoding follows ECMA-335 II.23.2: the high bits of the first byte select the length
// and the payload is stored big-endian.
//
//	0xxxxxxx                            7-bit value
//	10xxxxxx xxxxxxxx                   14-bit value
//	110xxxxx xxxxxxxx xxxxxxxx xxxxxxxx 29-bit value
func ReadVarUint(b []byte) (uint32, int, error) {
	if len(b) == 0 {
		return 0, 0, verr.Errorf(verr.ErrTruncatedStream, "a compressed integer is missing")
	}
	b0 := b[0]
	switch {
	case b0&0x80 == 0:
		return uint32(b0), 1, nil
	case b0&0xc0 == 0x80:
		if len(b) < 2 {
			return 0, 0, verr.Errorf(verr.ErrTruncatedStream, "a 2-byte compressed integer is cut off")
		}
		return uint32(b0&0x3f)<<8 | uint32(b[1]), 2, nil
	case b0&0xe0 == 0xc0:
		if len(b) < 4 {
			return 0, 0, verr.Errorf(verr.ErrTruncatedStream, "a 4-byte compressed integer is cut off")
		}
		return uint32(b0&0x1f)<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), 4, nil
	}
	return 0, 0, verr.Errorf(verr.ErrMalformedVarint, "the leading byte %#02x uses the reserved prefix 111", b0)
}

// AppendVarUint appends the shortest compressed encoding of v to b.
func AppendVarUint(b []byte, v uint32) ([]byte, error) {
	switch {
	case v <= 0x7f:
		return append(b, byte(v)), nil
	case v <= 0x3fff:
		return append(b, byte(v>>8)|0x80, byte(v)), nil
	case v <= MaxVarUint:
		return append(b, byte(v>>24)|0xc0, byte(v>>16), byte(v>>8), byte(v)), nil
	}
	return b, verr.Errorf(verr.ErrMalformedVarint, "%v exceeds the largest compressed integer %v", v, MaxVarUint)
}

// VarUintSize returns the number of bytes AppendVarUint emits for v, or 0 when v cannot be encoded.
func VarUintSize(v uint32) int {
	switch {
	case v <= 0x7f:
		return 1
	case v <= 0x3fff:
		return 2
	case v <= MaxVarUint:
		return 4
	}
	return 0
}

// TableIndexWidth returns the byte width of an index into a table of rowCount rows. One value of each width is
// held back so that columns can store rowCount+1 as a run terminator without overflowing.
func TableIndexWidth(rowCount int) int {
	return CodedIndexWidth(0, rowCount)
}

// CodedIndexWidth returns the byte width of an index whose lowest tagBits bits select one of several tables,
// the largest of which has maxRowCount rows. A coded index is encoded as `rowIndex<<tagBits | tag`.
func CodedIndexWidth(tagBits, maxRowCount int) int {
	switch {
	case maxRowCount < 1<<(8-tagBits)-1:
		return 1
	case maxRowCount < 1<<(16-tagBits)-1:
		return 2
	}
	return 4
}

// countWidth returns the byte width that holds any value in [0, n].
func countWidth(n int) int {
	return TableIndexWidth(n)
}
