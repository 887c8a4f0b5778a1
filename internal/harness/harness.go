package harness

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/roach88/detcheck/internal/audit"
	"github.com/roach88/detcheck/internal/spawn"
	"github.com/roach88/detcheck/internal/store"
	"github.com/roach88/detcheck/internal/testutil"
)

// Harness runs one scenario in its own scratch directory and audit
// database. Timestamps come from a step clock so archived runs are
// reproducible.
type Harness struct {
	dir    string
	store  *store.Store
	clock  *testutil.StepClock
	logger *slog.Logger
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger handed to the tracker. The default discards.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = logger
	}
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Write every log into a fresh scratch directory
//  2. Audit the logs in order with a new tracker
//  3. Archive the audit in a fresh database and read it back
//
// An audit failure is reported in Result.Err. The returned error is only
// for harness failures (scratch directory, database).
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	return RunContext(context.Background(), scenario, opts...)
}

// RunContext is Run with a caller-supplied context.
func RunContext(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	dir, err := os.MkdirTemp("", "detcheck-scenario-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	h := &Harness{
		dir:    dir,
		clock:  testutil.NewStepClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	st, err := store.Open(filepath.Join(dir, "audits.db"), store.WithClock(h.clock.Now))
	if err != nil {
		return nil, fmt.Errorf("open audit database: %w", err)
	}
	defer st.Close()
	h.store = st

	return h.run(ctx, scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	paths, err := h.writeLogs(scenario.Logs)
	if err != nil {
		return nil, err
	}

	tracker := audit.NewTracker(audit.WithLogger(h.logger))
	result := &Result{}
	if err := tracker.Scan(ctx, paths); err != nil {
		result.Summary = tracker.Summary()
		result.Err = err
		result.ErrText = strings.ReplaceAll(err.Error(), h.dir+string(filepath.Separator), "")
		return result, nil
	}
	result.Summary = tracker.Summary()

	run, err := h.store.WriteRun(ctx, paths, result.Summary, tracker.Divergences())
	if err != nil {
		return nil, fmt.Errorf("archive audit: %w", err)
	}
	run, divs, err := h.store.ReadRun(ctx, run.ID)
	if err != nil {
		return nil, fmt.Errorf("read back audit: %w", err)
	}
	result.Run = run
	result.Divergences = divs

	h.logger.Debug("scenario audited",
		"scenario", scenario.Name,
		"run", run.ID,
		"divergences", len(divs),
	)
	return result, nil
}

// writeLogs writes the scenario's logs and returns their paths in order.
func (h *Harness) writeLogs(logs []LogFile) ([]string, error) {
	paths := make([]string, 0, len(logs))
	for _, log := range logs {
		data, err := encodeLog(log)
		if err != nil {
			return nil, fmt.Errorf("log %s: %w", log.Name, err)
		}
		path := filepath.Join(h.dir, log.Name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("log %s: %w", log.Name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func encodeLog(log LogFile) ([]byte, error) {
	var data []byte
	if log.Raw != "" {
		data = []byte(log.Raw)
	} else {
		recs := make([]*spawn.Exec, 0, len(log.Records))
		for i, rec := range log.Records {
			e, err := rec.Build()
			if err != nil {
				return nil, fmt.Errorf("records[%d]: %w", i, err)
			}
			recs = append(recs, e)
		}
		encoded, err := testutil.EncodeLog(recs...)
		if err != nil {
			return nil, err
		}
		data = encoded
	}

	if !log.Gzip {
		return data, nil
	}
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
