package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/roach88/detcheck/internal/audit"
	"github.com/roach88/detcheck/internal/spawn"
	"github.com/roach88/detcheck/internal/testutil"
)

// Scenario describes the logs of a series of builds and what auditing them
// must report.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Logs are audited in the order listed.
	Logs []LogFile `yaml:"logs"`

	// Expect holds the checks run against the result.
	Expect Expect `yaml:"expect"`
}

// LogFile is one execution log.
type LogFile struct {
	// Name is the file name inside the scratch directory.
	Name string `yaml:"name"`

	// Records are encoded in the concatenated-object framing.
	Records []Record `yaml:"records,omitempty"`

	// Raw is written verbatim instead of Records.
	Raw string `yaml:"raw,omitempty"`

	// Gzip compresses the file.
	Gzip bool `yaml:"gzip,omitempty"`
}

// Record is a compact description of one spawn.
type Record struct {
	Progress string   `yaml:"progress"`
	Mnemonic string   `yaml:"mnemonic,omitempty"`
	Target   string   `yaml:"target,omitempty"`
	Args     []string `yaml:"args,omitempty"`
	Env      []string `yaml:"env,omitempty"`      // NAME=value
	Platform []string `yaml:"platform,omitempty"` // name=value
	Inputs   []string `yaml:"inputs,omitempty"`   // path=content
	Outputs  []string `yaml:"outputs,omitempty"`  // path=content
	Digest   string   `yaml:"digest,omitempty"`   // precomputed identity, hex
}

// Expect lists the checks for a scenario. Unset fields are not checked.
type Expect struct {
	Divergent     []string       `yaml:"divergent,omitempty"`
	Deterministic bool           `yaml:"deterministic,omitempty"`
	ErrorContains string         `yaml:"error_contains,omitempty"`
	Summary       *audit.Summary `yaml:"summary,omitempty"`
}

// Build turns the compact record into a spawn.
func (r Record) Build() (*spawn.Exec, error) {
	b := testutil.NewExec(r.Progress).Args(r.Args...)
	if r.Mnemonic != "" {
		b.Mnemonic(r.Mnemonic)
	}
	if r.Target != "" {
		b.Target(r.Target)
	}

	pairs := []struct {
		field string
		items []string
		add   func(k, v string) *testutil.ExecBuilder
	}{
		{"env", r.Env, b.Env},
		{"platform", r.Platform, b.Platform},
		{"inputs", r.Inputs, b.Input},
		{"outputs", r.Outputs, b.Output},
	}
	for _, p := range pairs {
		for i, item := range p.items {
			k, v, ok := strings.Cut(item, "=")
			if !ok || k == "" {
				return nil, fmt.Errorf("%s[%d]: want key=value, got %q", p.field, i, item)
			}
			p.add(k, v)
		}
	}

	e := b.Build()
	if r.Digest != "" {
		e.Digest = &spawn.Digest{Hash: r.Digest, SizeBytes: "0", HashFunctionName: "SHA-256"}
	}
	return e, nil
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict field validation catches typos like "record:" vs "records:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// LoadScenarios loads every *.yaml file in dir, sorted by file name.
func LoadScenarios(dir string) ([]*Scenario, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)

	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Logs) == 0 {
		return fmt.Errorf("logs list is required and must be non-empty")
	}

	names := make(map[string]bool, len(s.Logs))
	for i, log := range s.Logs {
		if log.Name == "" {
			return fmt.Errorf("logs[%d]: name is required", i)
		}
		if strings.ContainsRune(log.Name, filepath.Separator) {
			return fmt.Errorf("logs[%d]: name %q must not contain a path separator", i, log.Name)
		}
		if names[log.Name] {
			return fmt.Errorf("logs[%d]: duplicate name %q", i, log.Name)
		}
		names[log.Name] = true

		if log.Raw != "" && len(log.Records) > 0 {
			return fmt.Errorf("logs[%d]: records and raw are mutually exclusive", i)
		}
		for j, rec := range log.Records {
			if _, err := rec.Build(); err != nil {
				return fmt.Errorf("logs[%d].records[%d]: %w", i, j, err)
			}
		}
	}

	return validateExpect(&s.Expect)
}

func validateExpect(e *Expect) error {
	if e.Deterministic && len(e.Divergent) > 0 {
		return fmt.Errorf("expect: deterministic and divergent are mutually exclusive")
	}
	if e.ErrorContains != "" && (e.Deterministic || len(e.Divergent) > 0) {
		return fmt.Errorf("expect: error_contains cannot be combined with report checks")
	}
	return nil
}
