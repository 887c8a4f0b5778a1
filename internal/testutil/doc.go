// Package testutil provides builders for execution log fixtures.
//
// ExecBuilder assembles spawn.Exec records with valid hex digests, EncodeLog
// renders them in the concatenated-object framing Bazel writes, and
// StepClock supplies deterministic timestamps for the audit store.
package testutil
