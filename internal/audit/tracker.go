package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"

	"github.com/roach88/detcheck/internal/execlog"
	"github.com/roach88/detcheck/internal/spawn"
)

// Transition is what Observe did with a record.
type Transition int

const (
	// TransitionCanonical: first record for its fingerprint (Unseen → Canonical).
	TransitionCanonical Transition = iota
	// TransitionMatched: outputs equal the canonical record's; record dropped.
	TransitionMatched
	// TransitionDiverged: outputs differ from the canonical record's
	// (Canonical → Diverged); record kept as the divergent counterpart.
	TransitionDiverged
	// TransitionIgnored: fingerprint already Diverged; record not compared.
	TransitionIgnored
)

func (t Transition) String() string {
	switch t {
	case TransitionCanonical:
		return "canonical"
	case TransitionMatched:
		return "matched"
	case TransitionDiverged:
		return "diverged"
	case TransitionIgnored:
		return "ignored"
	default:
		return fmt.Sprintf("transition(%d)", int(t))
	}
}

// Observation is a record kept by the tracker together with where it came
// from.
type Observation struct {
	Source string // log file path
	Seq    int    // 1-based position across the whole audit
	Exec   *spawn.Exec
}

// Divergence is a pair of records for the same action whose outputs differ.
type Divergence struct {
	Fingerprint spawn.Fingerprint
	Canonical   Observation
	Divergent   Observation
}

// Summary counts what a Tracker has processed.
type Summary struct {
	Files        int `json:"files"`
	Records      int `json:"records"`
	Fingerprints int `json:"fingerprints"`
	Divergences  int `json:"divergences"`
	Ignored      int `json:"ignored"` // records skipped after their action diverged
}

// Tracker accumulates records across logs and remembers divergences.
//
// A Tracker is owned by a single audit and is not safe for concurrent use.
type Tracker struct {
	canonical map[spawn.Fingerprint]Observation
	diverged  map[spawn.Fingerprint]*Divergence
	seq       int
	files     int
	ignored   int
	logger    *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used for per-file and per-divergence messages.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// NewTracker creates an empty tracker. Without WithLogger it logs to
// slog.Default().
func NewTracker(opts ...Option) *Tracker {
	t := &Tracker{
		canonical: make(map[spawn.Fingerprint]Observation),
		diverged:  make(map[spawn.Fingerprint]*Divergence),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Observe feeds one record, in decode order, to the tracker.
//
// It returns an error only when the record's fingerprint cannot be
// computed (a malformed hex digest), which the caller must treat as fatal.
func (t *Tracker) Observe(source string, e *spawn.Exec) (Transition, error) {
	fp, err := e.Fingerprint()
	if err != nil {
		return 0, fmt.Errorf("fingerprint action %q: %w", e.Label(), err)
	}

	t.seq++
	obs := Observation{Source: source, Seq: t.seq, Exec: e}

	if _, done := t.diverged[fp]; done {
		t.ignored++
		return TransitionIgnored, nil
	}

	first, seen := t.canonical[fp]
	if !seen {
		t.canonical[fp] = obs
		return TransitionCanonical, nil
	}

	if spawn.OutputsEqual(first.Exec.ActualOutputs, e.ActualOutputs) {
		return TransitionMatched, nil
	}

	t.diverged[fp] = &Divergence{Fingerprint: fp, Canonical: first, Divergent: obs}
	t.logger.Debug("non-deterministic action found",
		"action", e.Label(),
		"fingerprint", fp.Short(),
		"canonical_source", first.Source,
		"divergent_source", source,
	)
	return TransitionDiverged, nil
}

// ScanFile decodes the log at path and observes every record in it.
// Errors carry the path; parse errors also carry the offending object text.
func (t *Tracker) ScanFile(ctx context.Context, path string) error {
	lf, err := execlog.Open(path)
	if err != nil {
		return err
	}
	defer lf.Close()

	if err := t.scan(ctx, path, lf.Decoder); err != nil {
		return err
	}
	t.logger.Debug("scanned execution log",
		"path", path,
		"compressed", lf.Compressed,
		"records", lf.Stats().Records,
		"lines", lf.Stats().Lines,
	)
	return nil
}

// ScanReader observes every record decoded from r, attributing them to
// source.
func (t *Tracker) ScanReader(ctx context.Context, source string, r io.Reader) error {
	return t.scan(ctx, source, execlog.NewDecoder(r))
}

// Scan processes the logs at paths in order. It stops at the first error.
func (t *Tracker) Scan(ctx context.Context, paths []string) error {
	for _, path := range paths {
		if err := t.ScanFile(ctx, path); err != nil {
			return err
		}
	}
	return nil
}

func (t *Tracker) scan(ctx context.Context, source string, d *execlog.Decoder) error {
	for rec, err := range d.All() {
		if err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
		if _, err := t.Observe(source, rec); err != nil {
			return fmt.Errorf("%s: %w", source, err)
		}
	}
	t.files++
	return nil
}

// Divergences returns the divergent pairs ordered by when their canonical
// record was first seen.
func (t *Tracker) Divergences() []*Divergence {
	divs := make([]*Divergence, 0, len(t.diverged))
	for _, d := range t.diverged {
		divs = append(divs, d)
	}
	sort.Slice(divs, func(i, j int) bool {
		return divs[i].Canonical.Seq < divs[j].Canonical.Seq
	})
	return divs
}

// Summary returns counters for everything observed so far.
func (t *Tracker) Summary() Summary {
	return Summary{
		Files:        t.files,
		Records:      t.seq,
		Fingerprints: len(t.canonical),
		Divergences:  len(t.diverged),
		Ignored:      t.ignored,
	}
}
