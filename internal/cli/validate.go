package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/detcheck/internal/execlog"
)

// LogValidation describes one checked log.
type LogValidation struct {
	Path       string `json:"path"`
	Compressed bool   `json:"compressed"`
	Records    int    `json:"records"`
	Lines      int    `json:"lines"`
	Bytes      int64  `json:"bytes"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid bool            `json:"valid"`
	Logs  []LogValidation `json:"logs"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate LOG...",
		Short: "Check that execution logs decode without auditing them",
		Long: `Decode every record of the given execution logs and compute its action
fingerprint, without comparing records across logs.

Fails on the first framing, JSON, missing-field or digest error, with the
same messages audit would print. Faster feedback when collecting logs from
build machines.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, paths []string, cmd *cobra.Command) error {
	cfg, err := opts.settings()
	if err != nil {
		return err
	}
	out := &OutputFormatter{Format: cfg.Format, Writer: cmd.OutOrStdout()}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)
	ctx := commandContext(cmd)

	result := ValidationResult{Valid: true, Logs: []LogValidation{}}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return WrapExitError(ExitCommandError, ErrCodeGeneric, "validation interrupted", err)
		}
		lv, err := validateLog(path)
		if err != nil {
			exitErr := classifyScanError(path, fmt.Errorf("%s: %w", path, err))
			_ = out.Fail(exitErr)
			return exitErr
		}
		logger.Debug("validated execution log", "path", path, "records", lv.Records, "lines", lv.Lines)
		result.Logs = append(result.Logs, lv)
	}

	if cfg.Format == "json" {
		return out.Success(result)
	}
	w := cmd.OutOrStdout()
	for _, lv := range result.Logs {
		fmt.Fprintf(w, "✓ %s: %d records, %d lines\n", lv.Path, lv.Records, lv.Lines)
	}
	fmt.Fprintln(w, "✓ All logs valid")
	return nil
}

// validateLog decodes every record of the log at path and fingerprints it.
func validateLog(path string) (LogValidation, error) {
	lf, err := execlog.Open(path)
	if err != nil {
		return LogValidation{}, err
	}
	defer lf.Close()

	for rec, err := range lf.All() {
		if err != nil {
			return LogValidation{}, err
		}
		if _, err := rec.Fingerprint(); err != nil {
			return LogValidation{}, fmt.Errorf("fingerprint action %q: %w", rec.Label(), err)
		}
	}

	stats := lf.Stats()
	return LogValidation{
		Path:       path,
		Compressed: lf.Compressed,
		Records:    stats.Records,
		Lines:      stats.Lines,
		Bytes:      stats.Bytes,
	}, nil
}
