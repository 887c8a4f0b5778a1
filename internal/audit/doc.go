// Package audit finds non-deterministic actions across execution logs.
//
// A Tracker consumes decoded records strictly in order, groups them by
// spawn.Fingerprint and keeps at most one divergent pair per fingerprint.
// Each fingerprint moves through three states:
//
//	Unseen ──first record──▶ Canonical ──outputs differ──▶ Diverged
//
// The first record seen for a fingerprint becomes canonical, the first
// record whose outputs differ from it becomes the divergent counterpart,
// and every later record for a Diverged fingerprint is ignored without
// comparison. Records that match their canonical record are dropped.
//
// Reporter renders the final divergences as labeled unified diffs of the
// two records' canonical text.
package audit
