package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/detcheck/internal/config"
	"github.com/roach88/detcheck/internal/spawn"
	"github.com/roach88/detcheck/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database    string
	Fingerprint string // optional - only runs where this action diverged
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived audits",
		Long: `List audits archived with "detcheck audit --db", newest first.

With --fingerprint, only audits in which that action diverged are listed,
which shows how often a flaky action misbehaves.

Examples:
  detcheck history --db audits.db
  detcheck history --db audits.db --fingerprint 3f2a...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (or database in config)")
	cmd.Flags().StringVar(&opts.Fingerprint, "fingerprint", "", "only runs where this action fingerprint diverged")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	cfg, st, err := openHistory(opts.RootOptions, cmd, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	out := &OutputFormatter{Format: cfg.Format, Writer: cmd.OutOrStdout()}
	ctx := commandContext(cmd)

	runs, err := st.ListRuns(ctx)
	if err != nil {
		exitErr := WrapExitError(ExitCommandError, ErrCodeDatabase, "failed to list runs", err)
		_ = out.Fail(exitErr)
		return exitErr
	}

	if opts.Fingerprint != "" {
		runs, err = filterByFingerprint(ctx, st, runs, opts.Fingerprint)
		if err != nil {
			_ = out.Fail(err)
			return err
		}
	}

	if cfg.Format == "json" {
		return out.Success(runs)
	}
	writeHistoryText(cmd.OutOrStdout(), runs)
	return nil
}

func filterByFingerprint(ctx context.Context, st *store.Store, runs []store.Run, fingerprint string) ([]store.Run, error) {
	fp, err := spawn.ParseFingerprint(fingerprint)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeUsage, "invalid --fingerprint", err)
	}
	ids, err := st.RunsWithFingerprint(ctx, fp)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, ErrCodeDatabase, "failed to query fingerprint", err)
	}
	keep := make(map[string]bool, len(ids))
	for _, id := range ids {
		keep[id] = true
	}
	filtered := []store.Run{}
	for _, run := range runs {
		if keep[run.ID] {
			filtered = append(filtered, run)
		}
	}
	return filtered, nil
}

func writeHistoryText(w io.Writer, runs []store.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No audits found.")
		return
	}
	for _, run := range runs {
		status := "✓"
		if run.Summary.Divergences > 0 {
			status = "✗"
		}
		fmt.Fprintf(w, "%s %s  %s\n", status, run.ID, run.StartedAt.Format(time.RFC3339))
		fmt.Fprintf(w, "  Logs: %d, records: %d, actions: %d, non-deterministic: %d\n",
			run.Summary.Files, run.Summary.Records, run.Summary.Fingerprints, run.Summary.Divergences)
	}
}

// openHistory resolves config and opens the audit database for history
// and show.
func openHistory(rootOpts *RootOptions, cmd *cobra.Command, dbFlag string) (config.Config, *store.Store, error) {
	cfg, err := rootOpts.settings()
	if err != nil {
		return config.Config{}, nil, err
	}
	if cmd.Flags().Changed("db") {
		cfg.Database = dbFlag
	}
	if cfg.Database == "" {
		return config.Config{}, nil, WrapExitError(ExitCommandError, ErrCodeUsage, "required flag \"db\" not set", nil)
	}

	st, err := store.Open(cfg.Database)
	if err != nil {
		return config.Config{}, nil, WrapExitError(ExitCommandError, ErrCodeDatabase, "failed to open database", err)
	}
	return cfg, st, nil
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
