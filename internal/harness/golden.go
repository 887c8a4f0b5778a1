package harness

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/detcheck/internal/audit"
	"github.com/roach88/detcheck/internal/spawn"
)

// Snapshot is the golden-file form of a scenario result.
type Snapshot struct {
	Scenario    string               `json:"scenario"`
	Failed      bool                 `json:"failed,omitempty"`
	Summary     audit.Summary        `json:"summary"`
	Divergences []DivergenceSnapshot `json:"divergences"`
}

// DivergenceSnapshot describes one reported action. Records are referred to
// as "<log name>#<seq>".
type DivergenceSnapshot struct {
	Action    string   `json:"action"`
	Canonical string   `json:"canonical"`
	Divergent string   `json:"divergent"`
	Outputs   []string `json:"outputs"`
}

// NewSnapshot builds the snapshot of a result.
func NewSnapshot(name string, result *Result) Snapshot {
	s := Snapshot{
		Scenario:    name,
		Failed:      result.Failed(),
		Summary:     result.Summary,
		Divergences: []DivergenceSnapshot{},
	}
	for _, d := range result.Divergences {
		outputs := []string{}
		for _, c := range spawn.OutputDelta(d.Canonical.Exec.ActualOutputs, d.Divergent.Exec.ActualOutputs) {
			outputs = append(outputs, fmt.Sprintf("%s: %s", c.Path, c.Kind))
		}
		s.Divergences = append(s.Divergences, DivergenceSnapshot{
			Action:    d.Canonical.Exec.Label(),
			Canonical: recordRef(d.Canonical),
			Divergent: recordRef(d.Divergent),
			Outputs:   outputs,
		})
	}
	return s
}

func recordRef(obs audit.Observation) string {
	return fmt.Sprintf("%s#%d", filepath.Base(obs.Source), obs.Seq)
}

// Marshal renders the snapshot as indented JSON with a trailing newline.
func (s Snapshot) Marshal() ([]byte, error) {
	out, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(out, '\n'), nil
}

// RunWithGolden executes a scenario, checks its expectations and compares
// the result against testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails. Failed expectations and golden
// mismatches fail t.
func RunWithGolden(t *testing.T, scenario *Scenario) error {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return err
	}
	if err := Check(scenario.Expect, result); err != nil {
		t.Error(err)
	}
	return AssertGolden(t, scenario.Name, result)
}

// AssertGolden compares the snapshot of result against a golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := NewSnapshot(name, result).Marshal()
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
