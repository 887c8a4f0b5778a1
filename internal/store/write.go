package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/detcheck/internal/audit"
)

// timeLayout is fixed-width so started_at sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run describes one archived audit.
type Run struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Sources   []string      `json:"sources"`
	Summary   audit.Summary `json:"summary"`
}

// WriteRun archives a finished audit and its divergences in one
// transaction. Divergences are stored in the order given, which is the
// order ReadRun returns them in.
func (s *Store) WriteRun(ctx context.Context, sources []string, summary audit.Summary, divs []*audit.Divergence) (Run, error) {
	run := Run{
		ID:        uuid.NewString(),
		StartedAt: s.now().UTC(),
		Sources:   append([]string{}, sources...),
		Summary:   summary,
	}

	sourcesJSON, err := marshalSources(run.Sources)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("write run: begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO audit_runs
		(id, started_at, sources, files, records, fingerprints, divergences, ignored)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.StartedAt.Format(timeLayout),
		sourcesJSON,
		summary.Files,
		summary.Records,
		summary.Fingerprints,
		summary.Divergences,
		summary.Ignored,
	)
	if err != nil {
		return Run{}, fmt.Errorf("write run: %w", err)
	}

	for i, d := range divs {
		canonical, err := marshalExec(d.Canonical.Exec)
		if err != nil {
			return Run{}, fmt.Errorf("write run: divergence %d: %w", i, err)
		}
		divergent, err := marshalExec(d.Divergent.Exec)
		if err != nil {
			return Run{}, fmt.Errorf("write run: divergence %d: %w", i, err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO divergences
			(run_id, ordinal, fingerprint, action, mnemonic, target_label,
			 canonical_source, canonical_seq, canonical_record,
			 divergent_source, divergent_seq, divergent_record)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			run.ID,
			i,
			d.Fingerprint.String(),
			d.Canonical.Exec.Label(),
			d.Canonical.Exec.Mnemonic,
			d.Canonical.Exec.TargetLabel,
			d.Canonical.Source,
			d.Canonical.Seq,
			canonical,
			d.Divergent.Source,
			d.Divergent.Seq,
			divergent,
		)
		if err != nil {
			return Run{}, fmt.Errorf("write run: divergence %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("write run: commit: %w", err)
	}
	return run, nil
}
