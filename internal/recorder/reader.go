package recorder

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/yanun0323/errors"
)

// Reader decodes journal lines sequentially. Lines of any length are
// accepted; blank lines are skipped.
type Reader struct {
	r    *bufio.Reader
	line int
}

// NewReader wraps an io.Reader with journal decoding.
func NewReader(r io.Reader) *Reader {
	return &Reader{r: bufio.NewReaderSize(r, defaultBufferSize)}
}

// Line returns the 1-based number of the line last returned by Next.
func (r *Reader) Line() int {
	return r.line
}

// Next returns the next entry. A malformed line yields a *MalformedError
// and the following call continues with the next line. io.EOF marks the
// end of input.
func (r *Reader) Next() (Entry, error) {
	for {
		raw, err := r.r.ReadBytes('\n')
		if len(raw) == 0 && err != nil {
			if err == io.EOF {
				return Entry{}, io.EOF
			}
			return Entry{}, errors.Wrap(err, "read journal")
		}
		r.line++

		raw = bytes.TrimSpace(raw)
		if len(raw) == 0 {
			if err == io.EOF {
				return Entry{}, io.EOF
			}
			continue
		}

		entry, parseErr := parseLine(raw)
		if parseErr != nil {
			return Entry{}, &MalformedError{Line: r.line, Err: parseErr}
		}
		return entry, nil
	}
}

// MalformedError reports a journal line that could not be decoded.
type MalformedError struct {
	Line int
	Err  error
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("journal line %d: %v", e.Line, e.Err)
}

func (e *MalformedError) Unwrap() error {
	return e.Err
}
