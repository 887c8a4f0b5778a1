package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/roach88/detcheck/internal/audit"
	"github.com/roach88/detcheck/internal/spawn"
)

// ListRuns returns every archived run, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, sources, files, records, fingerprints, divergences, ignored
		FROM audit_runs
		ORDER BY started_at DESC, id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// ReadRun returns an archived run and its divergences in report order.
// Returns ErrRunNotFound if id is unknown.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, []*audit.Divergence, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, sources, files, records, fingerprints, divergences, ignored
		FROM audit_runs
		WHERE id = ?
	`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, nil, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, nil, fmt.Errorf("read run %s: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT fingerprint, canonical_source, canonical_seq, canonical_record,
		       divergent_source, divergent_seq, divergent_record
		FROM divergences
		WHERE run_id = ?
		ORDER BY ordinal ASC
	`, id)
	if err != nil {
		return Run{}, nil, fmt.Errorf("read run %s: %w", id, err)
	}
	defer rows.Close()

	divs := []*audit.Divergence{}
	for rows.Next() {
		var (
			fingerprint                      string
			canonicalSource, divergentSource string
			canonicalSeq, divergentSeq       int
			canonicalJSON, divergentJSON     string
		)
		if err := rows.Scan(&fingerprint, &canonicalSource, &canonicalSeq, &canonicalJSON,
			&divergentSource, &divergentSeq, &divergentJSON); err != nil {
			return Run{}, nil, fmt.Errorf("read run %s: %w", id, err)
		}

		fp, err := spawn.ParseFingerprint(fingerprint)
		if err != nil {
			return Run{}, nil, fmt.Errorf("read run %s: %w", id, err)
		}
		canonical, err := unmarshalExec(canonicalJSON)
		if err != nil {
			return Run{}, nil, fmt.Errorf("read run %s: canonical record: %w", id, err)
		}
		divergent, err := unmarshalExec(divergentJSON)
		if err != nil {
			return Run{}, nil, fmt.Errorf("read run %s: divergent record: %w", id, err)
		}

		divs = append(divs, &audit.Divergence{
			Fingerprint: fp,
			Canonical:   audit.Observation{Source: canonicalSource, Seq: canonicalSeq, Exec: canonical},
			Divergent:   audit.Observation{Source: divergentSource, Seq: divergentSeq, Exec: divergent},
		})
	}
	if err := rows.Err(); err != nil {
		return Run{}, nil, fmt.Errorf("read run %s: %w", id, err)
	}
	return run, divs, nil
}

// RunsWithFingerprint returns the IDs of runs in which the action with the
// given fingerprint diverged, newest first.
func (s *Store) RunsWithFingerprint(ctx context.Context, fp spawn.Fingerprint) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id
		FROM divergences d
		JOIN audit_runs r ON r.id = d.run_id
		WHERE d.fingerprint = ?
		ORDER BY r.started_at DESC, r.id COLLATE BINARY ASC
	`, fp.String())
	if err != nil {
		return nil, fmt.Errorf("runs with fingerprint: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("runs with fingerprint: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("runs with fingerprint: %w", err)
	}
	return ids, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var (
		run         Run
		startedAt   string
		sourcesJSON string
	)
	err := row.Scan(
		&run.ID,
		&startedAt,
		&sourcesJSON,
		&run.Summary.Files,
		&run.Summary.Records,
		&run.Summary.Fingerprints,
		&run.Summary.Divergences,
		&run.Summary.Ignored,
	)
	if err != nil {
		return Run{}, err
	}

	run.StartedAt, err = time.Parse(timeLayout, startedAt)
	if err != nil {
		return Run{}, fmt.Errorf("parse started_at %q: %w", startedAt, err)
	}
	run.Sources, err = unmarshalSources(sourcesJSON)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}
