// Package execlog decodes Bazel execution logs written with
// --execution_log_json_file.
//
// The log is a run of pretty-printed JSON objects glued together with no
// enclosing array and no separators. The only boundary marker is brace
// adjacency: a line that is exactly "}{" ends one object and starts the
// next, and a line that is exactly "}" ends the last one.
//
//	{
//	  "commandArgs": [...],
//	  ...
//	}{
//	  "commandArgs": [...],
//	  ...
//	}
//
// Decoder reconstructs object boundaries with a three-state machine
// (accumulating, boundary, terminal) over a buffered line reader and yields
// one spawn.Exec per object, lazily and in order. The stream is single-pass;
// the first error ends it.
package execlog
