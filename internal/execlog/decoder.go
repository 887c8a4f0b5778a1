package execlog

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/roach88/detcheck/internal/spawn"
)

// Exact lines that mark object boundaries.
const (
	boundaryLine = "}{"
	terminalLine = "}"
)

// state is the decoder's position relative to object boundaries.
type state int

const (
	// stateAccumulating: interior lines of the current object are being
	// buffered.
	stateAccumulating state = iota
	// stateBoundary: an object was just emitted at a "}{" line and the buffer
	// already holds the opening brace of the next one.
	stateBoundary
	// stateTerminal: the final "}" line, end of input or an error was
	// reached. Nothing more is read from the underlying stream.
	stateTerminal
)

func (s state) String() string {
	switch s {
	case stateAccumulating:
		return "accumulating"
	case stateBoundary:
		return "boundary"
	case stateTerminal:
		return "terminal"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Stats counts what a Decoder has consumed so far.
type Stats struct {
	Lines   int   // physical lines read
	Bytes   int64 // bytes read, including line terminators
	Records int   // records successfully decoded
}

// Decoder yields spawn.Exec records from a concatenated-object log.
//
// A Decoder is single-pass and not safe for concurrent use.
type Decoder struct {
	r     *bufio.Reader
	state state
	buf   []byte
	stats Stats
	err   error // sticky terminal error
}

// NewDecoder returns a Decoder reading from r.
// Lines may be of any length and may end in "\n" or "\r\n".
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r)}
}

// Stats returns counters for the input consumed so far.
func (d *Decoder) Stats() Stats {
	return d.stats
}

// Next returns the next record. It returns io.EOF once the stream is
// exhausted, and after any error every later call returns that same error.
//
// Errors are *ReadError for I/O failures and *ParseError for objects that
// are not valid JSON or miss required fields.
func (d *Decoder) Next() (*spawn.Exec, error) {
	if d.err != nil {
		return nil, d.err
	}
	if d.state == stateTerminal {
		return nil, io.EOF
	}
	d.state = stateAccumulating

	for {
		line, err := d.readLine()
		if errors.Is(err, io.EOF) {
			return d.finish()
		}
		if err != nil {
			return nil, d.fail(&ReadError{Line: d.stats.Lines + 1, Err: err})
		}

		switch string(line) {
		case boundaryLine:
			d.buf = append(d.buf, '}')
			rec, err := d.parse()
			if err != nil {
				return nil, d.fail(err)
			}
			d.buf = append(d.buf[:0], '{')
			d.state = stateBoundary
			return rec, nil

		case terminalLine:
			d.buf = append(d.buf, '}')
			rec, err := d.parse()
			if err != nil {
				return nil, d.fail(err)
			}
			d.buf = d.buf[:0]
			d.state = stateTerminal
			return rec, nil

		default:
			d.buf = append(d.buf, line...)
			d.buf = append(d.buf, '\n')
		}
	}
}

// All returns the remaining records as a lazy sequence. Iteration stops
// after the first error, which is yielded with a nil record.
func (d *Decoder) All() iter.Seq2[*spawn.Exec, error] {
	return func(yield func(*spawn.Exec, error) bool) {
		for {
			rec, err := d.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(rec, err) || err != nil {
				return
			}
		}
	}
}

// finish handles end of input without a terminal line: whatever was
// buffered is parsed as a best-effort final object. A whitespace-only
// remainder (an empty log) ends the stream cleanly.
func (d *Decoder) finish() (*spawn.Exec, error) {
	if len(bytes.TrimSpace(d.buf)) == 0 {
		d.state = stateTerminal
		return nil, io.EOF
	}
	rec, err := d.parse()
	if err != nil {
		return nil, d.fail(err)
	}
	d.buf = d.buf[:0]
	d.state = stateTerminal
	return rec, nil
}

// readLine returns the next line without its terminator. A final line with
// no trailing newline is returned with a nil error; io.EOF is only returned
// once no bytes remain.
func (d *Decoder) readLine() ([]byte, error) {
	line, err := d.r.ReadBytes('\n')
	if len(line) == 0 && err != nil {
		return nil, err
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	d.stats.Lines++
	d.stats.Bytes += int64(len(line))
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	return line, nil
}

func (d *Decoder) parse() (*spawn.Exec, error) {
	var rec spawn.Exec
	if err := json.Unmarshal(d.buf, &rec); err != nil {
		return nil, &ParseError{Line: d.stats.Lines, Raw: rawText(d.buf), Err: err}
	}
	if err := rec.Validate(); err != nil {
		return nil, &ParseError{Line: d.stats.Lines, Raw: rawText(d.buf), Err: err}
	}
	d.stats.Records++
	return &rec, nil
}

func (d *Decoder) fail(err error) error {
	d.err = err
	d.state = stateTerminal
	d.buf = nil
	return err
}
