package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/detcheck/internal/spawn"
	"github.com/roach88/detcheck/internal/testutil"
)

// archiveAudit runs "audit --db" over recs and fails the test on error.
func archiveAudit(t *testing.T, dbPath string, recs ...*spawn.Exec) {
	t.Helper()
	path := testutil.WriteLog(t, t.TempDir(), "exec.json", recs...)
	_, _, err := runAuditCmd(t, &RootOptions{Format: "text"}, "--db", dbPath, path)
	require.NoError(t, err)
}

func runHistoryCmd(t *testing.T, rootOpts *RootOptions, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd := NewHistoryCommand(rootOpts)
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestHistoryRequiresDatabase(t *testing.T) {
	_, err := runHistoryCmd(t, &RootOptions{Format: "text"})
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), `"db"`)
}

func TestHistoryEmpty(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audits.db")

	out, err := runHistoryCmd(t, &RootOptions{Format: "text"}, "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, "No audits found.\n", out)
}

func TestHistoryListsRuns(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audits.db")
	archiveAudit(t, dbPath, genrule("Mon").Build(), genrule("Tue").Build())
	archiveAudit(t, dbPath, genrule("Mon").Build())

	out, err := runHistoryCmd(t, &RootOptions{Format: "text"}, "--db", dbPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "Logs: 1"))
	assert.Contains(t, out, "non-deterministic: 1")
	assert.Contains(t, out, "non-deterministic: 0")
}

func TestHistoryJSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audits.db")
	archiveAudit(t, dbPath, genrule("Mon").Build(), genrule("Tue").Build())

	out, err := runHistoryCmd(t, &RootOptions{Format: "json"}, "--db", dbPath)
	require.NoError(t, err)

	var resp struct {
		Status string `json:"status"`
		Data   []struct {
			ID      string   `json:"id"`
			Sources []string `json:"sources"`
			Summary struct {
				Records     int `json:"records"`
				Divergences int `json:"divergences"`
			} `json:"summary"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 1)
	assert.NotEmpty(t, resp.Data[0].ID)
	assert.Len(t, resp.Data[0].Sources, 1)
	assert.Equal(t, 2, resp.Data[0].Summary.Records)
	assert.Equal(t, 1, resp.Data[0].Summary.Divergences)
}

func TestHistoryFingerprintFilter(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audits.db")
	archiveAudit(t, dbPath, genrule("Mon").Build(), genrule("Tue").Build())
	archiveAudit(t, dbPath, genrule("Mon").Build())

	fp := genrule("Mon").Build().MustFingerprint()

	out, err := runHistoryCmd(t, &RootOptions{Format: "text"}, "--db", dbPath, "--fingerprint", fp.String())
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "Logs: 1"))
	assert.Contains(t, out, "non-deterministic: 1")

	other := testutil.NewExec("unrelated").Build().MustFingerprint()
	out, err = runHistoryCmd(t, &RootOptions{Format: "text"}, "--db", dbPath, "--fingerprint", other.String())
	require.NoError(t, err)
	assert.Equal(t, "No audits found.\n", out)
}

func TestHistoryInvalidFingerprint(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "audits.db")

	_, err := runHistoryCmd(t, &RootOptions{Format: "text"}, "--db", dbPath, "--fingerprint", "xyz")
	require.Error(t, err)

	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, ErrCodeUsage, exitErr.ErrCode)
}
