package audit

import (
	"fmt"
	"io"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/roach88/detcheck/internal/spawn"
)

// NoDivergenceMessage is printed when an audit finds nothing.
const NoDivergenceMessage = "No non-deterministic actions found!"

// DefaultContext is the number of unchanged lines shown around each hunk.
const DefaultContext = 3

// DiffFunc renders a human-readable diff between two texts.
type DiffFunc func(before, after string) (string, error)

// UnifiedDiff returns a DiffFunc producing unified diffs with the given
// number of context lines.
func UnifiedDiff(context int) DiffFunc {
	return func(before, after string) (string, error) {
		return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
			A:        difflib.SplitLines(before),
			B:        difflib.SplitLines(after),
			FromFile: "original",
			ToFile:   "modified",
			Context:  context,
		})
	}
}

// Reporter renders divergences.
type Reporter struct {
	Diff DiffFunc
}

// NewReporter returns a Reporter using UnifiedDiff(context).
func NewReporter(context int) *Reporter {
	return &Reporter{Diff: UnifiedDiff(context)}
}

// Header returns the line that introduces a divergence in text reports.
func Header(d *Divergence) string {
	return fmt.Sprintf("Outputs of the same action \"%s\" are different:", d.Canonical.Exec.Label())
}

// RenderDiff diffs the canonical text of the two records of d.
func (r *Reporter) RenderDiff(d *Divergence) (string, error) {
	before, err := spawn.Canonical(d.Canonical.Exec)
	if err != nil {
		return "", err
	}
	after, err := spawn.Canonical(d.Divergent.Exec)
	if err != nil {
		return "", err
	}
	diff, err := r.Diff(string(before), string(after))
	if err != nil {
		return "", fmt.Errorf("diff action %q: %w", d.Canonical.Exec.Label(), err)
	}
	return diff, nil
}

// WriteText prints each divergence as a header line followed by the diff,
// or NoDivergenceMessage when divs is empty.
func (r *Reporter) WriteText(w io.Writer, divs []*Divergence) error {
	if len(divs) == 0 {
		_, err := fmt.Fprintln(w, NoDivergenceMessage)
		return err
	}
	for _, d := range divs {
		diff, err := r.RenderDiff(d)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintf(w, "%s\n%s\n", Header(d), diff); err != nil {
			return err
		}
	}
	return nil
}

// SourceRef locates a record in the audited logs.
type SourceRef struct {
	Source string `json:"source"`
	Seq    int    `json:"seq"`
}

// DivergenceReport is the structured form of a Divergence.
type DivergenceReport struct {
	Fingerprint string               `json:"fingerprint"`
	Action      string               `json:"action"`
	Mnemonic    string               `json:"mnemonic,omitempty"`
	TargetLabel string               `json:"target_label,omitempty"`
	Canonical   SourceRef            `json:"canonical"`
	Divergent   SourceRef            `json:"divergent"`
	Outputs     []spawn.OutputChange `json:"outputs"`
	Diff        string               `json:"diff,omitempty"`
}

// Report is the structured result of an audit.
type Report struct {
	Summary     Summary            `json:"summary"`
	Divergences []DivergenceReport `json:"divergences"`
}

// Deterministic reports whether no divergence was found.
func (r Report) Deterministic() bool {
	return len(r.Divergences) == 0
}

// Build assembles the structured report. Diffs are included only when
// withDiff is set.
func (r *Reporter) Build(summary Summary, divs []*Divergence, withDiff bool) (Report, error) {
	report := Report{
		Summary:     summary,
		Divergences: make([]DivergenceReport, 0, len(divs)),
	}
	for _, d := range divs {
		dr := DivergenceReport{
			Fingerprint: d.Fingerprint.String(),
			Action:      d.Canonical.Exec.Label(),
			Mnemonic:    d.Canonical.Exec.Mnemonic,
			TargetLabel: d.Canonical.Exec.TargetLabel,
			Canonical:   SourceRef{Source: d.Canonical.Source, Seq: d.Canonical.Seq},
			Divergent:   SourceRef{Source: d.Divergent.Source, Seq: d.Divergent.Seq},
			Outputs:     spawn.OutputDelta(d.Canonical.Exec.ActualOutputs, d.Divergent.Exec.ActualOutputs),
		}
		if withDiff {
			diff, err := r.RenderDiff(d)
			if err != nil {
				return Report{}, err
			}
			dr.Diff = diff
		}
		report.Divergences = append(report.Divergences, dr)
	}
	return report, nil
}
