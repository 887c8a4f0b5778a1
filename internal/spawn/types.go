package spawn

import (
	"errors"
	"fmt"
)

// ErrMissingField is returned by Validate when a required field is absent.
var ErrMissingField = errors.New("missing required field")

// Exec is one executed action as recorded in the execution log.
// JSON field names match the log's camelCase protobuf rendering.
type Exec struct {
	CommandArgs          []string              `json:"commandArgs"`
	EnvironmentVariables []EnvironmentVariable `json:"environmentVariables"`
	Platform             Platform              `json:"platform"`
	Inputs               []File                `json:"inputs"`
	ListedOutputs        []string              `json:"listedOutputs"`
	Remotable            bool                  `json:"remotable"`
	Cacheable            bool                  `json:"cacheable"`
	ProgressMessage      string                `json:"progressMessage"`
	Mnemonic             string                `json:"mnemonic"`
	ActualOutputs        []File                `json:"actualOutputs"`
	Runner               string                `json:"runner"`
	RemoteCacheHit       bool                  `json:"remoteCacheHit"`
	Status               string                `json:"status"`
	ExitCode             int32                 `json:"exitCode"`
	RemoteCacheable      bool                  `json:"remoteCacheable"`
	TargetLabel          string                `json:"targetLabel"`

	// Digest is the identity hash precomputed by the logging system.
	// When present it is authoritative for Fingerprint.
	Digest *Digest `json:"digest,omitempty"`
}

// EnvironmentVariable is a single name/value pair of the action environment.
type EnvironmentVariable struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Property is a single execution platform property.
type Property struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// Platform describes where the action ran.
type Platform struct {
	Properties []Property `json:"properties"`
}

// File is an input or output of an action.
type File struct {
	Path   string `json:"path"`
	Digest Digest `json:"digest"`
}

// Digest identifies file content. Hash is hex text; SizeBytes is a decimal
// string because the log renders int64 values as JSON strings.
type Digest struct {
	Hash             string `json:"hash"`
	SizeBytes        string `json:"sizeBytes"`
	HashFunctionName string `json:"hashFunctionName"`
}

// Label returns the human-readable name used in reports.
// Falls back to mnemonic and target label when the progress message is empty.
func (e *Exec) Label() string {
	switch {
	case e.ProgressMessage != "":
		return e.ProgressMessage
	case e.Mnemonic != "" && e.TargetLabel != "":
		return e.Mnemonic + " " + e.TargetLabel
	case e.TargetLabel != "":
		return e.TargetLabel
	default:
		return e.Mnemonic
	}
}

// Validate checks the fields that fingerprinting and comparison depend on.
//
// commandArgs must be present (an empty list is fine, null or missing is not).
// Every input and output needs a path and a digest hash, and a precomputed
// identity digest, if present, needs a hash.
func (e *Exec) Validate() error {
	if e.CommandArgs == nil {
		return fmt.Errorf("%w: commandArgs", ErrMissingField)
	}
	if err := validateFiles("inputs", e.Inputs); err != nil {
		return err
	}
	if err := validateFiles("actualOutputs", e.ActualOutputs); err != nil {
		return err
	}
	if e.Digest != nil && e.Digest.Hash == "" {
		return fmt.Errorf("%w: digest.hash", ErrMissingField)
	}
	return nil
}

func validateFiles(field string, files []File) error {
	for i, f := range files {
		if f.Path == "" {
			return fmt.Errorf("%w: %s[%d].path", ErrMissingField, field, i)
		}
		if f.Digest.Hash == "" {
			return fmt.Errorf("%w: %s[%d].digest.hash (path %q)", ErrMissingField, field, i, f.Path)
		}
	}
	return nil
}
