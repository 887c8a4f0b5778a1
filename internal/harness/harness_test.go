package harness

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/detcheck/internal/audit"
	"github.com/roach88/detcheck/internal/testutil"
)

func stamp(output string) Record {
	return Record{
		Progress: "Executing genrule //pkg:stamp",
		Target:   "//pkg:stamp",
		Args:     []string{"/bin/bash", "-c", "date > $@"},
		Outputs:  []string{"stamp.txt=" + output},
	}
}

func TestRun_Divergence(t *testing.T) {
	scenario := &Scenario{
		Name:        "divergence",
		Description: "two builds disagree",
		Logs: []LogFile{
			{Name: "run1.json", Records: []Record{stamp("Mon")}},
			{Name: "run2.json", Records: []Record{stamp("Tue")}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.False(t, result.Failed(), result.ErrText)

	assert.Equal(t, []string{"Executing genrule //pkg:stamp"}, result.Actions())
	assert.Equal(t, audit.Summary{Files: 2, Records: 2, Fingerprints: 1, Divergences: 1}, result.Summary)

	// The archived run reflects the audit and its clock.
	assert.NotEmpty(t, result.Run.ID)
	assert.True(t, testutil.Epoch.Equal(result.Run.StartedAt), "started at %v", result.Run.StartedAt)
	assert.Equal(t, result.Summary, result.Run.Summary)

	require.Len(t, result.Divergences, 1)
	d := result.Divergences[0]
	assert.Equal(t, 1, d.Canonical.Seq)
	assert.Equal(t, 2, d.Divergent.Seq)
	assert.Equal(t, testutil.HashOf("Tue"), d.Divergent.Exec.ActualOutputs[0].Digest.Hash)
}

func TestRun_AuditFailureIsAResult(t *testing.T) {
	scenario := &Scenario{
		Name:        "broken",
		Description: "unterminated object",
		Logs: []LogFile{
			{Name: "broken.json", Raw: "{\n  \"commandArgs\": [\n"},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.Contains(t, result.ErrText, "broken.json: failed to parse json")
	assert.NotContains(t, result.ErrText, "detcheck-scenario-", "scratch dir is stripped")
	assert.Empty(t, result.Divergences)
	assert.Empty(t, result.Run.ID, "failed audits are not archived")
}

func TestRun_EmptyLog(t *testing.T) {
	scenario := &Scenario{
		Name:        "empty",
		Description: "a log with no records",
		Logs:        []LogFile{{Name: "empty.json"}},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.False(t, result.Failed(), result.ErrText)
	assert.Equal(t, audit.Summary{Files: 1}, result.Summary)
	assert.Empty(t, result.Divergences)
}

func TestRun_Gzip(t *testing.T) {
	scenario := &Scenario{
		Name:        "gzip",
		Description: "compressed logs",
		Logs: []LogFile{
			{Name: "run1.json.gz", Gzip: true, Records: []Record{stamp("Mon")}},
			{Name: "run2.json.gz", Gzip: true, Records: []Record{stamp("Mon")}},
		},
	}

	result, err := Run(scenario)
	require.NoError(t, err)
	require.False(t, result.Failed(), result.ErrText)
	assert.Equal(t, 2, result.Summary.Records)
	assert.Empty(t, result.Divergences)
}

func TestRun_Canceled(t *testing.T) {
	scenario := &Scenario{
		Name:        "canceled",
		Description: "interrupted audit",
		Logs:        []LogFile{{Name: "run1.json", Records: []Record{stamp("Mon")}}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := RunContext(ctx, scenario)
	require.NoError(t, err)
	require.True(t, result.Failed())
	assert.ErrorIs(t, result.Err, context.Canceled)
}

func TestRun_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	scenario := &Scenario{
		Name:        "logged",
		Description: "logging",
		Logs: []LogFile{
			{Name: "run1.json", Records: []Record{stamp("Mon")}},
			{Name: "run2.json", Records: []Record{stamp("Tue")}},
		},
	}

	_, err := Run(scenario, WithLogger(logger))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "non-deterministic action found")
	assert.Contains(t, buf.String(), "scenario audited")
}
