// Package harness runs end-to-end audit scenarios described in YAML.
//
// A scenario lists the execution logs of one or more builds. The harness
// writes each log to a scratch directory in Bazel's concatenated-object
// framing, audits them in order, archives the result in a scratch audit
// database and reads it back, so every scenario exercises the decoder, the
// tracker and the store together.
//
// # Scenario Format
//
//	name: flaky_stamp
//	description: "What this scenario validates"
//	logs:
//	  - name: run1.json
//	    records:
//	      - progress: "Executing genrule //pkg:stamp"
//	        target: //pkg:stamp
//	        args: [/bin/bash, -c, "date > $@"]
//	        env: ["PATH=/bin"]
//	        platform: ["OSFamily=Linux"]
//	        inputs: ["stamp.sh=#!/bin/sh"]
//	        outputs: ["bazel-out/stamp.txt=Mon"]
//	  - name: broken.json
//	    raw: |
//	      {
//	        "commandArgs": [
//	      }
//	expect:
//	  divergent: ["Executing genrule //pkg:stamp"]
//	  summary: { files: 2, records: 2, fingerprints: 1, divergences: 1, ignored: 0 }
//
// Inputs and outputs are written as path=content; the harness stores the
// SHA-256 of the content as the file digest. A log may set gzip: true to be
// written compressed, or raw: to be written verbatim.
//
// # Expectations
//
//   - divergent: progress messages of the reported actions, in report order
//   - deterministic: true when no action may diverge
//   - error_contains: the audit must fail with an error containing this text
//   - summary: exact audit counters
//
// # Golden Files
//
// RunWithGolden compares a JSON snapshot of the result with
// testdata/golden/<name>.golden. Snapshots name logs by their base name and
// leave out fingerprints and hashes, so they stay readable. To regenerate:
//
//	go test ./internal/harness -update
package harness
