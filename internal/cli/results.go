package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/atomic"
	"github.com/spf13/cobra"

	"github.com/roach88/nnvts/internal/harness"
	"github.com/roach88/nnvts/internal/store"
)

// ResultsOptions holds flags for the results subcommands.
type ResultsOptions struct {
	*RootOptions
	Name       string
	FailedOnly bool
	Limit      int
	Output     string
}

// NewResultsCommand creates the results command and its subcommands.
func NewResultsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ResultsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Query recorded harness runs",
		Long: `Query the run history recorded by the harness.

Runs are recorded when a suite passes a store as the harness recorder.
Run IDs may be abbreviated to any unique prefix.

Examples:
  nnvts results list --failed
  nnvts results show 3f2a
  nnvts results export 3f2a -o report.json`,
	}

	list := &cobra.Command{
		Use:           "list",
		Short:         "List recorded runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResultsList(opts, cmd)
		},
	}
	list.Flags().StringVar(&opts.Name, "name", "", "only runs with this name")
	list.Flags().BoolVar(&opts.FailedOnly, "failed", false, "only failing runs")
	list.Flags().IntVar(&opts.Limit, "limit", 0, "show at most this many of the latest runs")

	show := &cobra.Command{
		Use:           "show <run-id>",
		Short:         "Show the outcomes of one run",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResultsShow(opts, args[0], cmd)
		},
	}
	show.Flags().BoolVar(&opts.FailedOnly, "failed", false, "only failing outcomes")

	export := &cobra.Command{
		Use:           "export <run-id>",
		Short:         "Write one run as a JSON report",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResultsExport(opts, args[0], cmd)
		},
	}
	export.Flags().StringVarP(&opts.Output, "output", "o", "", "output file (default stdout)")

	cmd.AddCommand(list, show, export)
	return cmd
}

// openStore opens an existing results database. A missing file is a
// command error rather than an empty history.
func openStore(opts *RootOptions, formatter *OutputFormatter, logger *slog.Logger) (*store.Store, error) {
	if _, err := os.Stat(opts.Database); err != nil {
		msg := fmt.Sprintf("results database not found: %s", opts.Database)
		_ = formatter.Error(ErrCodeNoDatabase, msg, nil)
		return nil, WrapExitError(ExitCommandError, msg, err)
	}
	logger.Debug("opening database", "path", opts.Database)
	st, err := store.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeStoreFailed, err.Error(), nil)
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}
	return st, nil
}

func closeStore(st *store.Store, logger *slog.Logger) {
	if err := st.Close(); err != nil {
		logger.Error("error closing database", "error", err)
	}
}

// storeError maps a store error to an exit error.
func storeError(formatter *OutputFormatter, err error) error {
	code := ErrCodeStoreFailed
	if errors.Is(err, store.ErrNotFound) {
		code = ErrCodeRunNotFound
	}
	_ = formatter.Error(code, err.Error(), nil)
	return WrapExitError(ExitCommandError, code, err)
}

func runResultsList(opts *ResultsOptions, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	st, err := openStore(opts.RootOptions, formatter, logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	runs, err := st.ListRuns(cmd.Context(), store.Filter{Name: opts.Name, FailedOnly: opts.FailedOnly, Limit: opts.Limit})
	if err != nil {
		return storeError(formatter, err)
	}
	logger.Debug("runs listed", "count", len(runs))

	if formatter.JSON() {
		return formatter.Success(runs)
	}
	if len(runs) == 0 {
		formatter.Textf("No runs recorded")
		return nil
	}
	total := 0
	for _, r := range runs {
		outcomes := r.Passed + r.Failed + r.SkippedOutcomes
		total += outcomes
		formatter.Textf("%s  %-4s  %-3s  %s  %s  %d pass, %d fail, %d skip",
			shortID(r.ID), runStatus(r), r.Version, r.RecordedAt.Format("2006-01-02 15:04:05"), r.Name,
			r.Passed, r.Failed, r.SkippedOutcomes)
	}
	formatter.Textf("%d runs, %d outcomes", len(runs), total)
	return nil
}

// ShowResult is the JSON payload of results show.
type ShowResult struct {
	Run      store.Run         `json:"run"`
	Outcomes []harness.Outcome `json:"outcomes"`
}

func runResultsShow(opts *ResultsOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	st, err := openStore(opts.RootOptions, formatter, logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	run, err := st.GetRun(cmd.Context(), id)
	if err != nil {
		return storeError(formatter, err)
	}
	outcomes, err := st.ReadOutcomes(cmd.Context(), run.ID)
	if err != nil {
		return storeError(formatter, err)
	}
	if opts.FailedOnly {
		kept := outcomes[:0]
		for _, o := range outcomes {
			if o.Status == harness.StatusFail {
				kept = append(kept, o)
			}
		}
		outcomes = kept
	}

	if formatter.JSON() {
		return formatter.Success(ShowResult{Run: run, Outcomes: outcomes})
	}

	formatter.Textf("Run %s: %s (version %s) %s", run.ID, run.Name, run.Version, runStatus(run))
	if run.Reason != "" {
		formatter.Textf("  %s", run.Reason)
	}
	for _, e := range run.Errors {
		formatter.Textf("  error: %s", e)
	}
	for _, o := range outcomes {
		formatter.Textf("%-4s  %s example %d", o.Status, o.Combination, o.Example)
		if o.Reason != "" {
			formatter.Textf("      %s", o.Reason)
		}
		for _, f := range o.Failures {
			formatter.Textf("      %s", f)
		}
		for _, m := range o.Comparison.Mismatches {
			formatter.Textf("      %v", m)
		}
		if hidden := o.Comparison.Total - len(o.Comparison.Mismatches); hidden > 0 {
			formatter.Textf("      %d more mismatches", hidden)
		}
	}
	return nil
}

func runResultsExport(opts *ResultsOptions, id string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd.OutOrStdout(), cmd.ErrOrStderr())
	logger := newLogger(opts.RootOptions, formatter.GetErrWriter())

	st, err := openStore(opts.RootOptions, formatter, logger)
	if err != nil {
		return err
	}
	defer closeStore(st, logger)

	report, err := st.ReadReport(cmd.Context(), id)
	if err != nil {
		return storeError(formatter, err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return WrapExitError(ExitCommandError, "marshal report", err)
	}
	data = append(data, '\n')

	if opts.Output == "" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	if err := atomic.WriteFile(opts.Output, bytes.NewReader(data)); err != nil {
		_ = formatter.Error(ErrCodeWriteFailed, err.Error(), nil)
		return WrapExitError(ExitCommandError, ErrCodeWriteFailed, err)
	}
	formatter.VerboseLog("Wrote %s", opts.Output)
	if formatter.JSON() {
		return formatter.Success(map[string]string{"path": opts.Output})
	}
	formatter.Textf("✓ Exported %s to %s", report.Name, opts.Output)
	return nil
}

func runStatus(r store.Run) string {
	switch {
	case r.Skipped:
		return "SKIP"
	case r.Pass:
		return "PASS"
	}
	return "FAIL"
}

// shortID abbreviates a run ID for listings.
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i == 8 {
		return id[:8]
	}
	return id
}
