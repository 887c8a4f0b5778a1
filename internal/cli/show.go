package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/detcheck/internal/audit"
	"github.com/roach88/detcheck/internal/store"
)

// ShowOptions holds flags for the show command.
type ShowOptions struct {
	*RootOptions
	Database    string
	DiffContext int
}

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ShowOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Print the report of an archived audit",
		Long: `Re-render the report of an audit archived with "detcheck audit --db".

Examples:
  detcheck show --db audits.db 0b5c1f4e-...
  detcheck show --db audits.db --format json 0b5c1f4e-...`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShow(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (or database in config)")
	cmd.Flags().IntVar(&opts.DiffContext, "diff-context", audit.DefaultContext, "context lines around each diff hunk")

	return cmd
}

func runShow(opts *ShowOptions, runID string, cmd *cobra.Command) error {
	cfg, st, err := openHistory(opts.RootOptions, cmd, opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if cmd.Flags().Changed("diff-context") {
		cfg.DiffContext = opts.DiffContext
		if err := cfg.Validate(); err != nil {
			return WrapExitError(ExitCommandError, ErrCodeConfig, "invalid flags", err)
		}
	}

	out := &OutputFormatter{Format: cfg.Format, Writer: cmd.OutOrStdout()}

	run, divs, err := st.ReadRun(commandContext(cmd), runID)
	if err != nil {
		code := ErrCodeDatabase
		if errors.Is(err, store.ErrRunNotFound) {
			code = ErrCodeNotFound
		}
		exitErr := WrapExitError(ExitCommandError, code, "failed to read run", err)
		_ = out.Fail(exitErr)
		return exitErr
	}

	reporter := audit.NewReporter(cfg.DiffContext)
	if cfg.Format == "json" {
		report, err := reporter.Build(run.Summary, divs, cfg.JSONDiffs)
		if err != nil {
			return WrapExitError(ExitCommandError, ErrCodeGeneric, "failed to build report", err)
		}
		return out.Success(struct {
			Run    store.Run    `json:"run"`
			Report audit.Report `json:"report"`
		}{run, report})
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "Audit %s (%s)\n", run.ID, run.StartedAt.Format(time.RFC3339))
	for _, src := range run.Sources {
		fmt.Fprintf(w, "  %s\n", src)
	}
	fmt.Fprintln(w)
	if err := reporter.WriteText(w, divs); err != nil {
		return WrapExitError(ExitCommandError, ErrCodeGeneric, "failed to write report", err)
	}
	return nil
}
