package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/detcheck/internal/spawn"
)

// marshalExec converts a record to TEXT for storage. Records are stored in
// the same pretty-printed form the report diffs, so an archived report
// renders byte-for-byte like the original.
func marshalExec(e *spawn.Exec) (string, error) {
	data, err := spawn.Canonical(e)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	return string(data), nil
}

// unmarshalExec parses a stored record.
func unmarshalExec(data string) (*spawn.Exec, error) {
	var e spawn.Exec
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &e, nil
}

// marshalSources converts the audited log paths to JSON TEXT.
// HTML escaping is disabled so paths with & or < stay readable in the
// database.
func marshalSources(sources []string) (string, error) {
	if sources == nil {
		sources = []string{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(sources); err != nil {
		return "", fmt.Errorf("marshal sources: %w", err)
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// unmarshalSources parses stored log paths. Empty TEXT is an empty list.
func unmarshalSources(data string) ([]string, error) {
	sources := []string{}
	if data == "" {
		return sources, nil
	}
	if err := json.Unmarshal([]byte(data), &sources); err != nil {
		return nil, fmt.Errorf("unmarshal sources: %w", err)
	}
	return sources, nil
}
