package execlog

import (
	"fmt"
	"unicode/utf8"
)

// malformedPlaceholder replaces raw object text that is not valid UTF-8.
const malformedPlaceholder = "<malformed>"

// ParseError reports an accumulated object that could not be decoded into a
// record or failed required-field validation. Raw holds the object text for
// diagnosis.
type ParseError struct {
	Line int    // line on which the object ended
	Raw  string // object text, or "<malformed>" if not valid UTF-8
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse json ending at line %d: %v\n%s", e.Line, e.Err, e.Raw)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ReadError reports an I/O failure while reading a line. It is terminal.
type ReadError struct {
	Line int // line that was being read
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read line %d: %v", e.Line, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// rawText renders buffered object bytes for a ParseError.
func rawText(buf []byte) string {
	if !utf8.Valid(buf) {
		return malformedPlaceholder
	}
	return string(buf)
}
