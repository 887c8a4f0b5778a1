// Package config loads detcheck settings.
//
// Values are layered, later layers winning: built-in defaults, an optional
// config file (YAML, or CUE when the file ends in .cue), DETCHECK_*
// environment variables, then command-line flags (applied by the cli
// package).
package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaCUE string

// ValidFormats lists the accepted output formats.
var ValidFormats = []string{"text", "json"}

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config holds settings shared by all commands.
type Config struct {
	Format           string `yaml:"format" json:"format" env:"DETCHECK_FORMAT"`
	Database         string `yaml:"database" json:"database" env:"DETCHECK_DB"`
	FailOnDivergence bool   `yaml:"fail_on_divergence" json:"fail_on_divergence" env:"DETCHECK_FAIL_ON_DIVERGENCE"`
	DiffContext      int    `yaml:"diff_context" json:"diff_context" env:"DETCHECK_DIFF_CONTEXT"`
	JSONDiffs        bool   `yaml:"json_diffs" json:"json_diffs" env:"DETCHECK_JSON_DIFFS"`
	Verbose          bool   `yaml:"verbose" json:"verbose" env:"DETCHECK_VERBOSE"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Format:      "text",
		DiffContext: 3,
	}
}

// Load builds a Config from defaults, the file at path (if non-empty) and
// the environment, then validates it.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration for unsupported values.
func (c Config) Validate() error {
	if !slices.Contains(ValidFormats, c.Format) {
		return fmt.Errorf("%w: format %q: must be one of %v", ErrInvalid, c.Format, ValidFormats)
	}
	if c.DiffContext < 0 {
		return fmt.Errorf("%w: diff_context %d: must not be negative", ErrInvalid, c.DiffContext)
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if filepath.Ext(path) == ".cue" {
		return c.decodeCUE(path, data)
	}
	return c.decodeYAML(path, data)
}

// decodeYAML overlays YAML settings. Unknown keys are rejected so typos
// don't silently fall back to defaults.
func (c *Config) decodeYAML(path string, data []byte) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		// An empty file is a valid, empty config.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// decodeCUE unifies the file with the embedded #Config schema, then overlays
// the concrete result.
func (c *Config) decodeCUE(path string, data []byte) error {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}

	value := ctx.CompileBytes(data, cue.Filename(path))
	if err := value.Err(); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalid, path, err)
	}

	raw, err := unified.MarshalJSON()
	if err != nil {
		return fmt.Errorf("export config %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, c); err != nil {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}
