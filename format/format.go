// Package format reads and writes grammars in the Farkle binary format.
//
// A file starts with a 16-byte header (magic, major and minor version, stream count) followed by a directory of
// streams. Three streams are standard: "#Strings" holds NUL-terminated names, "#Blob" holds length-prefixed
// state machine encodings, and "#~" holds the metadata tables whose columns reference the other two. Index
// columns are 1, 2, or 4 bytes wide depending only on the row count of the table they point into, so the table
// stream header alone determines the layout of every row.
package format

import (
	"errors"
	"fmt"
	"io"
	"os"

	verr "github.com/nihei9/farkle/error"
	"github.com/nihei9/farkle/log"
	spec "github.com/nihei9/farkle/spec/grammar"
)

type config struct {
	logger log.Logger
	strict bool
}

func newConfig() *config {
	return &config{
		logger: log.NewNopLogger(),
	}
}

type LoadOption func(c *config) error

// EnableLogging makes Load and Save describe the file layout they read or write to w.
func EnableLogging(w io.Writer) LoadOption {
	return func(c *config) error {
		l, err := log.NewLogger(w)
		if err != nil {
			return err
		}
		c.logger = l
		return nil
	}
}

// StrictStringHeap rejects string heap offsets that point into the middle of a string and strings that are not
// valid UTF-8.
func StrictStringHeap() LoadOption {
	return func(c *config) error {
		c.strict = true
		return nil
	}
}

// SaveOption configures Save. Save accepts the same options as Load and ignores those that only matter when
// reading.
type SaveOption = LoadOption

func applyOptions(opts []LoadOption) (*config, error) {
	c := newConfig()
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Load decodes a grammar file held in memory. Decoding is all-or-nothing: on error no grammar is returned.
// The returned grammar doesn't alias b.
func Load(b []byte, opts ...LoadOption) (*spec.Grammar, error) {
	c, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}

	ctr, err := readContainer(b, c.logger)
	if err != nil {
		return nil, err
	}
	strs, err := newStringHeap(ctr.strings, c.strict)
	if err != nil {
		return nil, err
	}
	blob, err := newBlobHeap(ctr.blob)
	if err != nil {
		return nil, err
	}
	ts, err := readTableStream(ctr.tables, c.logger)
	if err != nil {
		return nil, err
	}

	d := &decoder{
		ts:     ts,
		strs:   strs,
		blob:   blob,
		logger: c.logger,
	}
	g, err := d.decode()
	if err != nil {
		return nil, err
	}
	if ctr.unknownData {
		g.MarkUnknownData()
	}
	return g, nil
}

// Read decodes a grammar from r. The whole input is buffered first.
func Read(r io.Reader, opts ...LoadOption) (*spec.Grammar, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return Load(b, opts...)
}

func LoadFile(path string, opts ...LoadOption) (*spec.Grammar, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("Cannot read the grammar file %s: %w", path, err)
	}
	g, err := Load(b, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return g, nil
}

// Save encodes a grammar. The grammar is validated before anything is encoded, and the file is assembled in
// memory, so a failing Save never produces partial output.
func Save(g *spec.Grammar, opts ...SaveOption) ([]byte, error) {
	c, err := applyOptions(opts)
	if err != nil {
		return nil, err
	}
	if err := checkWritable(g); err != nil {
		return nil, err
	}
	return newEncoder(g, c.logger).encode()
}

func Write(w io.Writer, g *spec.Grammar, opts ...SaveOption) error {
	b, err := Save(g, opts...)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func SaveFile(path string, g *spec.Grammar, opts ...SaveOption) error {
	b, err := Save(g, opts...)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0644)
}

// IsFormatError reports whether err came from decoding or encoding a grammar, as opposed to I/O.
func IsFormatError(err error) bool {
	var fe *verr.FormatError
	return errors.As(err, &fe)
}
