package spawn

// OutputsEqual reports whether two output lists are the same.
// Both lists must have the same length and, index by index, the same path
// and the same digest hash text. Order matters: a reordered list is a
// divergence of its own.
func OutputsEqual(a, b []File) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Path != b[i].Path {
			return false
		}
		if a[i].Digest.Hash != b[i].Digest.Hash {
			return false
		}
	}
	return true
}

// ChangeKind classifies one entry of an OutputDelta.
type ChangeKind string

const (
	ChangeContent   ChangeKind = "content"   // same path, different hash
	ChangeAdded     ChangeKind = "added"     // only in the second list
	ChangeRemoved   ChangeKind = "removed"   // only in the first list
	ChangeReorder   ChangeKind = "reordered" // same path and hash, different index
	ChangeDuplicate ChangeKind = "duplicate" // path listed a different number of times
)

// OutputChange describes how a single output path differs between two runs.
type OutputChange struct {
	Path   string     `json:"path"`
	Kind   ChangeKind `json:"kind"`
	Before string     `json:"before,omitempty"` // hash in the first list
	After  string     `json:"after,omitempty"`  // hash in the second list
}

// OutputDelta summarizes per path how b differs from a.
//
// Changes are listed in a's order, followed by paths only present in b in
// b's order. A path whose hash and position are both unchanged is omitted.
// Duplicate paths are matched by first occurrence.
// OutputDelta returns nil when OutputsEqual(a, b).
func OutputDelta(a, b []File) []OutputChange {
	if OutputsEqual(a, b) {
		return nil
	}

	indexB := make(map[string]int, len(b))
	for i, f := range b {
		if _, ok := indexB[f.Path]; !ok {
			indexB[f.Path] = i
		}
	}
	seenA := make(map[string]bool, len(a))

	var changes []OutputChange
	for i, f := range a {
		if seenA[f.Path] {
			continue
		}
		seenA[f.Path] = true

		j, ok := indexB[f.Path]
		switch {
		case !ok:
			changes = append(changes, OutputChange{Path: f.Path, Kind: ChangeRemoved, Before: f.Digest.Hash})
		case b[j].Digest.Hash != f.Digest.Hash:
			changes = append(changes, OutputChange{Path: f.Path, Kind: ChangeContent, Before: f.Digest.Hash, After: b[j].Digest.Hash})
		case i != j:
			changes = append(changes, OutputChange{Path: f.Path, Kind: ChangeReorder, Before: f.Digest.Hash, After: b[j].Digest.Hash})
		}
	}
	for _, f := range b {
		if seenA[f.Path] {
			continue
		}
		seenA[f.Path] = true
		changes = append(changes, OutputChange{Path: f.Path, Kind: ChangeAdded, After: f.Digest.Hash})
	}
	if len(changes) == 0 {
		changes = append(changes, OutputChange{Path: firstDuplicate(a, b), Kind: ChangeDuplicate})
	}
	return changes
}

// firstDuplicate returns the first path listed more than once in a, then b.
func firstDuplicate(a, b []File) string {
	for _, files := range [][]File{a, b} {
		seen := make(map[string]bool, len(files))
		for _, f := range files {
			if seen[f.Path] {
				return f.Path
			}
			seen[f.Path] = true
		}
	}
	return ""
}
