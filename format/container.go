package format

import (
	"math"
	"strings"

	verr "github.com/nihei9/farkle/error"
	"github.com/nihei9/farkle/log"
)

const (
	// Magic opens every grammar file.
	Magic = "Farkle\x00\x00"

	// MajorVersion is a hard compatibility gate: files with any other major version are rejected.
	MajorVersion = 7

	// MinorVersion is the newest minor version this package knows. Newer files are read, but their grammars
	// report HasUnknownData.
	MinorVersion = 0

	// MaxFileSize is the largest file the 32-bit stream offsets can address.
	MaxFileSize = math.MaxInt32
)

const (
	fileHeaderSize   = 16
	streamHeaderSize = 16
	streamAlignment  = 8
)

// Stream identifiers are always 8 bytes. Identifiers starting with '#' are reserved for this format.
const (
	streamIDStrings = "#Strings"
	streamIDBlob    = "#Blob\x00\x00\x00"
	streamIDTables  = "#~\x00\x00\x00\x00\x00\x00"
)

const (
	streamNameStrings = "#Strings"
	streamNameBlob    = "#Blob"
	streamNameTables  = "#~"
)

type streamHeader struct {
	id     string
	offset int32
	length int32
}

func streamName(id string) string {
	return strings.TrimRight(id, "\x00")
}

type container struct {
	majorVersion uint16
	minorVersion uint16
	strings      []byte
	blob         []byte
	tables       []byte
	unknownData  bool
}

func malformedHeader(format string, a ...interface{}) error {
	return verr.Errorf(verr.ErrMalformedHeader, format, a...)
}

func readContainer(b []byte, logger log.Logger) (*container, error) {
	if len(b) < len(Magic) || string(b[:len(Magic)]) != Magic {
		return nil, malformedHeader("the file doesn't start with the Farkle magic")
	}
	if len(b) > MaxFileSize {
		return nil, malformedHeader("the file exceeds %v bytes", MaxFileSize)
	}
	r := newByteReader(b, "")
	r.skip(len(Magic))
	c := &container{
		majorVersion: r.u16(),
		minorVersion: r.u16(),
	}
	streamCount := r.u32()
	if r.err != nil {
		return nil, r.err
	}
	if c.majorVersion != MajorVersion {
		return nil, malformedHeader("unsupported major version %v; this reader supports %v", c.majorVersion, MajorVersion)
	}
	if c.minorVersion > MinorVersion {
		logger.Log("minor version %v is newer than %v; unknown data may be skipped", c.minorVersion, MinorVersion)
		c.unknownData = true
	}
	if int64(streamCount)*streamHeaderSize > int64(r.remaining()) {
		return nil, verr.Errorf(verr.ErrTruncatedStream, "%v stream headers don't fit in the file", streamCount)
	}

	found := map[string]bool{}
	for i := 0; i < int(streamCount); i++ {
		h := streamHeader{
			id:     string(r.take(8)),
			offset: int32(r.u32()),
			length: int32(r.u32()),
		}
		if r.err != nil {
			return nil, r.err
		}
		if h.offset < 0 || h.length < 0 {
			return nil, malformedHeader("stream %q has a negative offset or length", streamName(h.id))
		}
		if int64(h.offset)+int64(h.length) > int64(len(b)) {
			return nil, verr.Errorf(verr.ErrTruncatedStream, "stream %q ends at %v, past the end of the file at %v",
				streamName(h.id), int64(h.offset)+int64(h.length), len(b))
		}
		data := b[h.offset : h.offset+h.length]

		switch h.id {
		case streamIDStrings, streamIDBlob, streamIDTables:
			if found[h.id] {
				return nil, malformedHeader("stream %q appears more than once", streamName(h.id))
			}
			found[h.id] = true
		default:
			logger.Log("skipping unknown stream %q (%v bytes)", streamName(h.id), h.length)
			c.unknownData = true
			continue
		}
		logger.Log("stream %q: offset %v, length %v", streamName(h.id), h.offset, h.length)

		switch h.id {
		case streamIDStrings:
			c.strings = data
		case streamIDBlob:
			c.blob = data
		case streamIDTables:
			c.tables = data
		}
	}
	if !found[streamIDTables] {
		return nil, malformedHeader("the table stream %q is missing", streamNameTables)
	}

	return c, nil
}

// writeContainer lays out the header, the stream directory, and the non-empty streams, each aligned to 8 bytes.
func writeContainer(strs, blob, tables []byte, logger log.Logger) ([]byte, error) {
	type stream struct {
		id   string
		data []byte
	}
	var streams []stream
	if len(strs) > 0 {
		streams = append(streams, stream{streamIDStrings, strs})
	}
	if len(blob) > 0 {
		streams = append(streams, stream{streamIDBlob, blob})
	}
	streams = append(streams, stream{streamIDTables, tables})

	size := fileHeaderSize + streamHeaderSize*len(streams)
	offsets := make([]int, len(streams))
	for i, s := range streams {
		size = alignUp(size, streamAlignment)
		offsets[i] = size
		size += len(s.data)
	}
	if size > MaxFileSize {
		return nil, verr.Errorf(verr.ErrInconsistentGrammar, "the file would take %v bytes, more than %v", size, MaxFileSize)
	}

	w := &byteWriter{}
	w.grow(size)
	w.bytes([]byte(Magic))
	w.u16(MajorVersion)
	w.u16(MinorVersion)
	w.u32(uint32(len(streams)))
	for i, s := range streams {
		w.bytes([]byte(s.id))
		w.u32(uint32(offsets[i]))
		w.u32(uint32(len(s.data)))
		logger.Log("stream %q: offset %v, length %v", streamName(s.id), offsets[i], len(s.data))
	}
	for _, s := range streams {
		w.pad(streamAlignment)
		w.bytes(s.data)
	}

	return w.b, nil
}

func alignUp(n, a int) int {
	return (n + a - 1) / a * a
}
