package testutil

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/roach88/detcheck/internal/spawn"
)

// EncodeLog renders records the way Bazel writes an execution log: each
// record pretty-printed, back to back, so consecutive objects meet on a
// "}{" line and the last one closes on a lone "}" line.
func EncodeLog(recs ...*spawn.Exec) ([]byte, error) {
	var buf bytes.Buffer
	for _, rec := range recs {
		out, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return nil, err
		}
		buf.Write(out)
	}
	if len(recs) > 0 {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// MustEncodeLog is like EncodeLog but panics on error.
func MustEncodeLog(recs ...*spawn.Exec) []byte {
	out, err := EncodeLog(recs...)
	if err != nil {
		panic(err)
	}
	return out
}

// WriteLog writes recs as an execution log named name under dir and returns
// its path.
func WriteLog(t testing.TB, dir, name string, recs ...*spawn.Exec) string {
	t.Helper()
	return WriteRaw(t, dir, name, MustEncodeLog(recs...))
}

// WriteRaw writes data verbatim under dir and returns its path.
func WriteRaw(t testing.TB, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
