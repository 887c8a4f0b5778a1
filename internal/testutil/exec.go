package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/roach88/detcheck/internal/spawn"
)

// HashOf returns the hex SHA-256 of content, for building valid digests.
func HashOf(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// FileOf returns a spawn.File whose digest is the hash of content.
func FileOf(path, content string) spawn.File {
	return spawn.File{
		Path: path,
		Digest: spawn.Digest{
			Hash:             HashOf(content),
			SizeBytes:        strconv.Itoa(len(content)),
			HashFunctionName: "SHA-256",
		},
	}
}

// ExecBuilder assembles a spawn.Exec for tests.
//
// Example:
//
//	rec := testutil.NewExec("Compiling foo.c").
//		Args("gcc", "-c", "foo.c").
//		Input("foo.c", "int main;").
//		Output("foo.o", "\x7fELF...").
//		Build()
type ExecBuilder struct {
	e spawn.Exec
}

// NewExec starts a record with the given progress message and an empty,
// non-nil command line.
func NewExec(progressMessage string) *ExecBuilder {
	return &ExecBuilder{e: spawn.Exec{
		CommandArgs:     []string{},
		ProgressMessage: progressMessage,
		Mnemonic:        "Genrule",
		Runner:          "linux-sandbox",
		Cacheable:       true,
		Remotable:       true,
		RemoteCacheable: true,
		Status:          "",
	}}
}

// Args appends command line arguments.
func (b *ExecBuilder) Args(args ...string) *ExecBuilder {
	b.e.CommandArgs = append(b.e.CommandArgs, args...)
	return b
}

// Env appends an environment variable.
func (b *ExecBuilder) Env(name, value string) *ExecBuilder {
	b.e.EnvironmentVariables = append(b.e.EnvironmentVariables, spawn.EnvironmentVariable{Name: name, Value: value})
	return b
}

// Platform appends a platform property.
func (b *ExecBuilder) Platform(name, value string) *ExecBuilder {
	b.e.Platform.Properties = append(b.e.Platform.Properties, spawn.Property{Name: name, Value: value})
	return b
}

// Input appends an input whose digest is the hash of content.
func (b *ExecBuilder) Input(path, content string) *ExecBuilder {
	b.e.Inputs = append(b.e.Inputs, FileOf(path, content))
	return b
}

// Output appends an actual output whose digest is the hash of content,
// and lists the path as a declared output.
func (b *ExecBuilder) Output(path, content string) *ExecBuilder {
	b.e.ActualOutputs = append(b.e.ActualOutputs, FileOf(path, content))
	b.e.ListedOutputs = append(b.e.ListedOutputs, path)
	return b
}

// Mnemonic sets the action mnemonic.
func (b *ExecBuilder) Mnemonic(m string) *ExecBuilder {
	b.e.Mnemonic = m
	return b
}

// Target sets the target label.
func (b *ExecBuilder) Target(label string) *ExecBuilder {
	b.e.TargetLabel = label
	return b
}

// Identity sets a precomputed identity digest hashed from seed.
func (b *ExecBuilder) Identity(seed string) *ExecBuilder {
	b.e.Digest = &spawn.Digest{Hash: HashOf(seed), SizeBytes: "0", HashFunctionName: "SHA-256"}
	return b
}

// Build returns a copy of the assembled record. The builder may be reused.
func (b *ExecBuilder) Build() *spawn.Exec {
	e := b.e
	e.CommandArgs = append([]string{}, b.e.CommandArgs...)
	e.EnvironmentVariables = append([]spawn.EnvironmentVariable(nil), b.e.EnvironmentVariables...)
	e.Platform.Properties = append([]spawn.Property(nil), b.e.Platform.Properties...)
	e.Inputs = append([]spawn.File(nil), b.e.Inputs...)
	e.ActualOutputs = append([]spawn.File(nil), b.e.ActualOutputs...)
	e.ListedOutputs = append([]string(nil), b.e.ListedOutputs...)
	if b.e.Digest != nil {
		d := *b.e.Digest
		e.Digest = &d
	}
	return &e
}
