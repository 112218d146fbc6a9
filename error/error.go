package error

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMalformedHeader means the file doesn't start with the Farkle magic, has an unsupported major version,
	// or has a broken stream directory. A reader must not read further.
	ErrMalformedHeader = errors.New("malformed header")

	// ErrMalformedVarint means a compressed integer has the reserved prefix or is out of the encodable range.
	ErrMalformedVarint = errors.New("malformed compressed integer")

	// ErrMalformedIndex means a heap offset or a table index points outside its target.
	ErrMalformedIndex = errors.New("malformed index")

	// ErrInconsistentGrammar means a cross-table invariant doesn't hold.
	ErrInconsistentGrammar = errors.New("inconsistent grammar")

	// ErrTruncatedStream means a declared length exceeds the available bytes.
	ErrTruncatedStream = errors.New("truncated stream")

	// ErrUnusableGrammar means the grammar is well-formed but lacks the state machine an operation needs.
	// Unlike the other errors, the grammar itself stays usable for inspection.
	ErrUnusableGrammar = errors.New("unusable grammar")
)

// FormatError reports why a grammar could not be read, written, or used. Cause is one of the Err* values above,
// optionally wrapped with more detail, so callers can test the kind with errors.Is.
type FormatError struct {
	Cause  error
	Stream string
	Table  string
	Row    int
	Offset int
	Detail string
}

func (e *FormatError) Error() string {
	var b strings.Builder
	if e.Stream != "" {
		fmt.Fprintf(&b, "%v: ", e.Stream)
	}
	if e.Table != "" {
		fmt.Fprintf(&b, "%v", e.Table)
		if e.Row != 0 {
			fmt.Fprintf(&b, "[%v]", e.Row)
		}
		fmt.Fprintf(&b, ": ")
	}
	if e.Offset > 0 {
		fmt.Fprintf(&b, "offset %v: ", e.Offset)
	}
	fmt.Fprintf(&b, "error: %v", e.Cause)
	if e.Detail != "" {
		fmt.Fprintf(&b, ": %v", e.Detail)
	}

	return b.String()
}

func (e *FormatError) Unwrap() error {
	return e.Cause
}

// Errorf returns a *FormatError of a kind `cause` with a formatted detail message.
func Errorf(cause error, format string, a ...interface{}) *FormatError {
	return &FormatError{
		Cause:  cause,
		Detail: fmt.Sprintf(format, a...),
	}
}

// Is reports whether err is a format error of the kind `cause`.
func Is(err, cause error) bool {
	return errors.Is(err, cause)
}
