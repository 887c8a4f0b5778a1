// Package spawn provides the data model for Bazel execution log records.
//
// An Exec is one executed action ("spawn") as written by
// --execution_log_json_file. This package owns everything that is computed
// from a single record: required-field validation, the action Fingerprint,
// output equality and the canonical text form used for diffs.
//
// spawn imports nothing internal. execlog decodes Exec values from log
// files and audit groups them by Fingerprint.
//
// Key constraints:
//   - Fingerprints never include actualOutputs or descriptive fields
//   - Output order is significant; no path sorting is ever applied
//   - Malformed hex digests are errors, never silently skipped
package spawn
