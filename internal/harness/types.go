package harness

import (
	"github.com/roach88/detcheck/internal/audit"
	"github.com/roach88/detcheck/internal/store"
)

// Result is the outcome of running a scenario.
type Result struct {
	// Summary holds the tracker counters, including a partial count when
	// the audit failed.
	Summary audit.Summary

	// Divergences are the archived divergences as read back from the
	// audit database. Empty when the audit failed.
	Divergences []*audit.Divergence

	// Run is the archived audit. Zero when the audit failed.
	Run store.Run

	// Err is the audit error, if any. Scan failures are an outcome of the
	// scenario, not a harness error.
	Err error

	// ErrText is Err's message with the scratch directory stripped from
	// log paths.
	ErrText string
}

// Failed reports whether the audit stopped with an error.
func (r *Result) Failed() bool {
	return r.Err != nil
}

// Actions returns the progress messages of the reported actions in report
// order.
func (r *Result) Actions() []string {
	actions := make([]string, 0, len(r.Divergences))
	for _, d := range r.Divergences {
		actions = append(actions, d.Canonical.Exec.ProgressMessage)
	}
	return actions
}
