package spawn

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// FingerprintSize is the width of a Fingerprint in bytes (SHA-256).
const FingerprintSize = sha256.Size

// ErrDigestLength is wrapped by DigestError when a precomputed identity
// digest does not decode to exactly FingerprintSize bytes.
var ErrDigestLength = errors.New("identity digest has wrong length")

// Fingerprint identifies the logical action an Exec represents.
// Records with equal fingerprints are repeated executions of the same action.
type Fingerprint [FingerprintSize]byte

// String returns the lowercase hex form.
func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// Short returns the first 12 hex characters, for log lines.
func (f Fingerprint) Short() string {
	return f.String()[:12]
}

// ParseFingerprint decodes a 64 character hex string.
func ParseFingerprint(s string) (Fingerprint, error) {
	var fp Fingerprint
	raw, err := hex.DecodeString(s)
	if err != nil {
		return fp, fmt.Errorf("parse fingerprint: %w", err)
	}
	if len(raw) != FingerprintSize {
		return fp, fmt.Errorf("parse fingerprint: %w: got %d bytes", ErrDigestLength, len(raw))
	}
	copy(fp[:], raw)
	return fp, nil
}

// DigestError reports a hex digest in the log that cannot be decoded.
// A corrupt digest means the log itself is corrupt, so callers treat it
// as fatal rather than skipping the record.
type DigestError struct {
	Field string // "digest" or "inputs[i].digest"
	Path  string // input path, empty for the identity digest
	Hash  string
	Err   error
}

func (e *DigestError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("invalid %s for %q: hash %q: %v", e.Field, e.Path, e.Hash, e.Err)
	}
	return fmt.Sprintf("invalid %s: hash %q: %v", e.Field, e.Hash, e.Err)
}

func (e *DigestError) Unwrap() error {
	return e.Err
}

// Fingerprint computes the identity of the action.
//
// If the log carries a precomputed digest it is decoded and used as is.
// Otherwise the result is SHA-256 over, in order: every command argument;
// every environment variable name then value; every platform property name
// then value; every input path followed by the raw (hex-decoded) bytes of its
// content digest. Values are concatenated without delimiters, so fingerprints
// are only meaningful for grouping within one audit, not as content addresses.
//
// actualOutputs and descriptive fields never contribute.
func (e *Exec) Fingerprint() (Fingerprint, error) {
	var fp Fingerprint

	if e.Digest != nil {
		raw, err := hex.DecodeString(e.Digest.Hash)
		if err != nil {
			return fp, &DigestError{Field: "digest", Hash: e.Digest.Hash, Err: err}
		}
		if len(raw) != FingerprintSize {
			return fp, &DigestError{
				Field: "digest",
				Hash:  e.Digest.Hash,
				Err:   fmt.Errorf("%w: got %d bytes, want %d", ErrDigestLength, len(raw), FingerprintSize),
			}
		}
		copy(fp[:], raw)
		return fp, nil
	}

	h := sha256.New()
	for _, arg := range e.CommandArgs {
		h.Write([]byte(arg))
	}
	for _, env := range e.EnvironmentVariables {
		h.Write([]byte(env.Name))
		h.Write([]byte(env.Value))
	}
	for _, prop := range e.Platform.Properties {
		h.Write([]byte(prop.Name))
		h.Write([]byte(prop.Value))
	}
	for i, in := range e.Inputs {
		raw, err := hex.DecodeString(in.Digest.Hash)
		if err != nil {
			return fp, &DigestError{
				Field: fmt.Sprintf("inputs[%d].digest", i),
				Path:  in.Path,
				Hash:  in.Digest.Hash,
				Err:   err,
			}
		}
		h.Write([]byte(in.Path))
		h.Write(raw)
	}

	copy(fp[:], h.Sum(nil))
	return fp, nil
}

// MustFingerprint is like Fingerprint but panics on error.
// Use only in tests or when digests are known to be valid.
func (e *Exec) MustFingerprint() Fingerprint {
	fp, err := e.Fingerprint()
	if err != nil {
		panic(err)
	}
	return fp
}
