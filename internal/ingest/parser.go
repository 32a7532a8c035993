package ingest

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrFormat is matched by every *FormatError.
var ErrFormat = errors.New("malformed solution")

// Entry is one non-zero variable value read from a solver file, with the
// index still in its raw comma separated form.
type Entry struct {
	Variable string
	Index    string
	Value    float64
	Line     int
}

// EntryReader reads the variable values of a solver output file. The bool
// result reports whether the solver flagged any variable as out of bounds.
type EntryReader interface {
	ReadEntries(r io.Reader) ([]Entry, bool, error)
}

// FormatError describes a line of solver output that could not be read.
type FormatError struct {
	Line int
	Text string
	Err  error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("line %d: %v: %q", e.Line, e.Err, e.Text)
}

func (e *FormatError) Unwrap() error { return e.Err }

func (e *FormatError) Is(target error) bool { return target == ErrFormat }

// splitVariable splits "Name(i1,i2)" into its name and raw index.
func splitVariable(token string) (string, string, error) {
	open := strings.IndexByte(token, '(')
	if open <= 0 || !strings.HasSuffix(token, ")") {
		return "", "", fmt.Errorf("expected Name(index), got %q", token)
	}
	return token[:open], token[open+1 : len(token)-1], nil
}
