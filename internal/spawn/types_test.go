package spawn

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fullRecordJSON = `{
  "commandArgs": ["/bin/bash", "-c", "echo hi > out.txt"],
  "environmentVariables": [{"name": "PATH", "value": "/bin:/usr/bin"}],
  "platform": {"properties": [{"name": "OSFamily", "value": "Linux"}]},
  "inputs": [{"path": "in.txt", "digest": {"hash": "abcd", "sizeBytes": "12", "hashFunctionName": "SHA-256"}}],
  "listedOutputs": ["out.txt"],
  "remotable": true,
  "cacheable": true,
  "progressMessage": "Executing genrule //pkg:hi",
  "mnemonic": "Genrule",
  "actualOutputs": [{"path": "out.txt", "digest": {"hash": "ff00", "sizeBytes": "3", "hashFunctionName": "SHA-256"}}],
  "runner": "linux-sandbox",
  "remoteCacheHit": false,
  "status": "",
  "exitCode": 0,
  "remoteCacheable": true,
  "targetLabel": "//pkg:hi",
  "digest": {"hash": "0011", "sizeBytes": "140", "hashFunctionName": "SHA-256"}
}`

func TestExecJSONRoundTrip(t *testing.T) {
	var e Exec
	require.NoError(t, json.Unmarshal([]byte(fullRecordJSON), &e))

	assert.Equal(t, []string{"/bin/bash", "-c", "echo hi > out.txt"}, e.CommandArgs)
	assert.Equal(t, "Linux", e.Platform.Properties[0].Value)
	assert.Equal(t, "12", e.Inputs[0].Digest.SizeBytes)
	assert.Equal(t, "//pkg:hi", e.TargetLabel)
	require.NotNil(t, e.Digest)
	assert.Equal(t, "0011", e.Digest.Hash)

	out, err := json.Marshal(&e)
	require.NoError(t, err)
	assert.JSONEq(t, fullRecordJSON, string(out))
}

func TestExecWithoutDigestOmitsIt(t *testing.T) {
	e := sampleExec()
	out, err := json.Marshal(e)
	require.NoError(t, err)
	assert.NotContains(t, string(out), `"digest":{"hash":""`)

	var m map[string]any
	require.NoError(t, json.Unmarshal(out, &m))
	_, has := m["digest"]
	assert.False(t, has)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(e *Exec)
		wantErr string
	}{
		{"valid", func(e *Exec) {}, ""},
		{"empty command args allowed", func(e *Exec) { e.CommandArgs = []string{} }, ""},
		{"missing command args", func(e *Exec) { e.CommandArgs = nil }, "commandArgs"},
		{"input without path", func(e *Exec) { e.Inputs[0].Path = "" }, "inputs[0].path"},
		{"input without hash", func(e *Exec) { e.Inputs[0].Digest.Hash = "" }, "inputs[0].digest.hash"},
		{"output without hash", func(e *Exec) { e.ActualOutputs[0].Digest.Hash = "" }, "actualOutputs[0].digest.hash"},
		{"identity digest without hash", func(e *Exec) { e.Digest = &Digest{} }, "digest.hash"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := sampleExec()
			tt.mutate(e)
			err := e.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMissingField)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateRejectsNullCommandArgsFromJSON(t *testing.T) {
	var e Exec
	require.NoError(t, json.Unmarshal([]byte(`{"commandArgs": null}`), &e))
	assert.ErrorIs(t, e.Validate(), ErrMissingField)

	var empty Exec
	require.NoError(t, json.Unmarshal([]byte(`{"commandArgs": []}`), &empty))
	assert.NoError(t, empty.Validate())
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Echoing hi", sampleExec().Label())
	assert.Equal(t, "Genrule //a:b", (&Exec{Mnemonic: "Genrule", TargetLabel: "//a:b"}).Label())
	assert.Equal(t, "//a:b", (&Exec{TargetLabel: "//a:b"}).Label())
	assert.Equal(t, "Genrule", (&Exec{Mnemonic: "Genrule"}).Label())
}

func TestCanonical(t *testing.T) {
	e := &Exec{
		CommandArgs:     []string{"a<b"},
		ProgressMessage: "x & y",
	}
	out, err := Canonical(e)
	require.NoError(t, err)

	s := string(out)
	assert.Contains(t, s, "{\n  \"commandArgs\": [\n    \"a<b\"\n  ],")
	assert.Contains(t, s, `"progressMessage": "x & y"`, "HTML characters must not be escaped")
	assert.NotEqual(t, byte('\n'), out[len(out)-1])

	assert.Equal(t, out, MustCanonical(e))
}
