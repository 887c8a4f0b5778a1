package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/roach88/detcheck/internal/audit"
	"github.com/roach88/detcheck/internal/spawn"
	"github.com/roach88/detcheck/internal/testutil"
)

// createTestStore creates a new store in a temp dir with a step clock.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithClock(testutil.NewStepClock().Now))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestDivergences runs a tracker over pairs of records that differ in
// output and returns the resulting divergences and summary.
func createTestDivergences(t *testing.T, actions ...string) ([]*audit.Divergence, audit.Summary) {
	t.Helper()
	tr := audit.NewTracker(audit.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	var recs []*spawn.Exec
	for _, name := range actions {
		recs = append(recs, testutil.NewExec(name).Args("build", name).Target("//:"+name).Output("out/"+name, "1").Build())
	}
	for _, name := range actions {
		recs = append(recs, testutil.NewExec(name).Args("build", name).Target("//:"+name).Output("out/"+name, "2").Build())
	}
	for i, rec := range recs {
		source := "run1.json"
		if i >= len(actions) {
			source = "run2.json"
		}
		if _, err := tr.Observe(source, rec); err != nil {
			t.Fatalf("Observe() failed: %v", err)
		}
	}
	return tr.Divergences(), tr.Summary()
}
