package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenarios(t *testing.T) {
	scenarios, err := LoadScenarios("testdata/scenarios")
	require.NoError(t, err)

	for _, s := range scenarios {
		t.Run(s.Name, func(t *testing.T) {
			require.NoError(t, RunWithGolden(t, s))
		})
	}
}

func TestSnapshot_Marshal(t *testing.T) {
	result := divergentResult("Compiling a.c")

	data, err := NewSnapshot("inline", result).Marshal()
	require.NoError(t, err)

	want := `{
  "scenario": "inline",
  "summary": {
    "files": 2,
    "records": 2,
    "fingerprints": 1,
    "divergences": 1,
    "ignored": 0
  },
  "divergences": [
    {
      "action": "Compiling a.c",
      "canonical": "run1.json#1",
      "divergent": "run2.json#2",
      "outputs": []
    }
  ]
}
`
	assert.Equal(t, want, string(data))
}

func TestSnapshot_Failed(t *testing.T) {
	data, err := NewSnapshot("failed", &Result{Err: assert.AnError}).Marshal()
	require.NoError(t, err)
	assert.Contains(t, string(data), `"failed": true`)
	assert.Contains(t, string(data), `"divergences": []`)
}
