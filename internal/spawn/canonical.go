package spawn

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Canonical renders an Exec as pretty-printed JSON (two-space indent, field
// order as declared on Exec, no HTML escaping, no trailing newline).
// This is the text form that divergent records are diffed in.
func Canonical(e *Exec) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(e); err != nil {
		return nil, fmt.Errorf("canonical: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// MustCanonical is like Canonical but panics on error.
// Exec contains only strings, bools and ints, so encoding cannot fail in
// practice.
func MustCanonical(e *Exec) []byte {
	out, err := Canonical(e)
	if err != nil {
		panic(err)
	}
	return out
}
