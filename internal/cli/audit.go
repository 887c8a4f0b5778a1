package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/detcheck/internal/audit"
	"github.com/roach88/detcheck/internal/config"
	"github.com/roach88/detcheck/internal/execlog"
	"github.com/roach88/detcheck/internal/spawn"
	"github.com/roach88/detcheck/internal/store"
)

// stdinPath is the argument that reads a log from standard input.
const stdinPath = "-"

// AuditOptions holds flags for the audit command.
type AuditOptions struct {
	*RootOptions
	LogFiles         []string
	Database         string
	FailOnDivergence bool
	DiffContext      int
	JSONDiffs        bool
}

// NewAuditCommand creates the audit command.
func NewAuditCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &AuditOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "audit [LOG...]",
		Short: "Report actions whose outputs differ between runs",
		Long: `Scan one or more execution logs and report non-deterministic actions.

Logs are read in the order given (--execution_log_json_file values first,
then positional arguments). The first record seen for an action is its
reference; the first later record whose outputs differ is reported next to
it as a diff. Use "-" to read a log from standard input. Gzip-compressed logs
are detected automatically.

Exit codes:
  0 - Audit completed (with or without findings)
  1 - Non-deterministic actions found and --fail-on-divergence set
  2 - Command error (unreadable log, malformed record, database error, etc.)

Examples:
  detcheck audit run1.json run2.json
  detcheck audit --execution_log_json_file run1.json --execution_log_json_file run2.json
  detcheck audit --db audits.db --format json run1.json.gz run2.json.gz`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.LogFiles = append(opts.LogFiles, args...)
			return runAudit(opts, cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.LogFiles, "execution_log_json_file", nil, "execution log to audit (repeatable)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "archive the result in this SQLite database")
	cmd.Flags().BoolVar(&opts.FailOnDivergence, "fail-on-divergence", false, "exit 1 when non-deterministic actions are found")
	cmd.Flags().IntVar(&opts.DiffContext, "diff-context", audit.DefaultContext, "context lines around each diff hunk")
	cmd.Flags().BoolVar(&opts.JSONDiffs, "json-diffs", false, "include rendered diffs in JSON output")

	return cmd
}

func runAudit(opts *AuditOptions, cmd *cobra.Command) error {
	cfg, err := opts.settings()
	if err != nil {
		return err
	}
	applyAuditFlags(cmd, opts, &cfg)
	if err := cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, ErrCodeConfig, "invalid flags", err)
	}

	out := &OutputFormatter{Format: cfg.Format, Writer: cmd.OutOrStdout()}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	if len(opts.LogFiles) == 0 {
		err := WrapExitError(ExitCommandError, ErrCodeUsage, "no execution logs given", nil)
		_ = out.Fail(err)
		return err
	}

	ctx := commandContext(cmd)

	tracker := audit.NewTracker(audit.WithLogger(logger))
	for _, path := range opts.LogFiles {
		if err := scanOne(ctx, tracker, path, cmd); err != nil {
			exitErr := classifyScanError(path, err)
			_ = out.Fail(exitErr)
			return exitErr
		}
	}

	summary := tracker.Summary()
	divs := tracker.Divergences()
	logger.Debug("audit complete",
		"files", summary.Files,
		"records", summary.Records,
		"fingerprints", summary.Fingerprints,
		"divergences", summary.Divergences,
	)

	if cfg.Database != "" {
		if err := archive(ctx, cfg.Database, opts.LogFiles, summary, divs, logger); err != nil {
			_ = out.Fail(err)
			return err
		}
	}

	reporter := audit.NewReporter(cfg.DiffContext)
	if cfg.Format == "json" {
		err = writeAuditJSON(out, reporter, summary, divs, cfg.JSONDiffs)
	} else {
		err = reporter.WriteText(cmd.OutOrStdout(), divs)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeGeneric, "failed to write report", err)
	}

	if cfg.FailOnDivergence && len(divs) > 0 {
		return &ExitError{
			Code:    ExitFailure,
			ErrCode: ErrCodeNondeterminism,
			Message: fmt.Sprintf("%d non-deterministic action(s) found", len(divs)),
		}
	}
	return nil
}

// applyAuditFlags lets explicitly set command flags override config.
func applyAuditFlags(cmd *cobra.Command, opts *AuditOptions, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("db") {
		cfg.Database = opts.Database
	}
	if flags.Changed("fail-on-divergence") {
		cfg.FailOnDivergence = opts.FailOnDivergence
	}
	if flags.Changed("diff-context") {
		cfg.DiffContext = opts.DiffContext
	}
	if flags.Changed("json-diffs") {
		cfg.JSONDiffs = opts.JSONDiffs
	}
}

func scanOne(ctx context.Context, tracker *audit.Tracker, path string, cmd *cobra.Command) error {
	if path == stdinPath {
		return tracker.ScanReader(ctx, "<stdin>", cmd.InOrStdin())
	}
	return tracker.ScanFile(ctx, path)
}

// classifyScanError maps a scan failure to an exit error with a JSON error
// code. Every scan failure is a command error; no partial report is written.
func classifyScanError(path string, err error) *ExitError {
	var (
		parseErr  *execlog.ParseError
		digestErr *spawn.DigestError
	)
	switch {
	case errors.As(err, &digestErr):
		return WrapExitError(ExitCommandError, ErrCodeInvalidDigest, "invalid digest in "+path, err)
	case errors.As(err, &parseErr):
		return WrapExitError(ExitCommandError, ErrCodeParseFailed, "malformed record in "+path, err)
	case errors.Is(err, context.Canceled):
		return WrapExitError(ExitCommandError, ErrCodeGeneric, "audit interrupted", err)
	default:
		return WrapExitError(ExitCommandError, ErrCodeReadFailed, "failed to read "+path, err)
	}
}

func archive(ctx context.Context, dbPath string, sources []string, summary audit.Summary, divs []*audit.Divergence, logger *slog.Logger) error {
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	defer st.Close()

	run, err := st.WriteRun(ctx, sources, summary, divs)
	if err != nil {
		return WrapExitError(ExitCommandError, ErrCodeDatabase, "failed to archive audit", err)
	}
	logger.Info("audit archived", "db", dbPath, "run", run.ID, "divergences", len(divs))
	return nil
}

func writeAuditJSON(out *OutputFormatter, reporter *audit.Reporter, summary audit.Summary, divs []*audit.Divergence, withDiff bool) error {
	report, err := reporter.Build(summary, divs, withDiff)
	if err != nil {
		return err
	}

	resp := CLIResponse{Status: "ok", Data: report}
	if !report.Deterministic() {
		resp.Status = "error"
		resp.Error = &CLIError{
			Code:    ErrCodeNondeterminism,
			Message: fmt.Sprintf("%d non-deterministic action(s) found", len(report.Divergences)),
		}
	}
	return out.Respond(resp)
}
