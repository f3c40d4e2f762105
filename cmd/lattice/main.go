package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kofron/lattice/internal/capability"
	"github.com/kofron/lattice/internal/cliout"
	"github.com/kofron/lattice/internal/engine"
	lerrors "github.com/kofron/lattice/internal/errors"
)

var (
	// Global flags, named after spec.md §6.3's global flag contract.
	flagCwd          string
	flagDebug        bool
	flagQuiet        bool
	flagInteractive  bool
	flagVerifyHooks  bool
	flagFormat       string
	flagNoColor      bool

	eng *engine.Engine
	out *cliout.Output

	rootCmd = &cobra.Command{
		Use:   "lattice",
		Short: "Manage stacks of dependent Git branches and their pull requests",
		Long: `Lattice tracks a stack of dependent branches, keeps each one rebased
onto its parent's current tip, and drives the pull requests that back it.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			out = cliout.NewOutput(os.Stdout)
			if flagFormat != "" {
				out.SetFormat(cliout.OutputFormat(flagFormat))
			}
			if flagNoColor {
				out.SetColorEnabled(false)
			}

			cwd := flagCwd
			if cwd == "" {
				var err error
				cwd, err = os.Getwd()
				if err != nil {
					return fmt.Errorf("resolving working directory: %w", err)
				}
			}

			var err error
			eng, err = engine.Open(cmd.Context(), cwd)
			if err != nil {
				return err
			}
			if flagDebug {
				eng.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
			}
			return nil
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagCwd, "cwd", "", "Repository path (defaults to the current directory)")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Emit structured per-stage debug logging to stderr")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "Minimal output")
	rootCmd.PersistentFlags().BoolVar(&flagInteractive, "interactive", true, "Prompt before ambiguous or destructive choices")
	rootCmd.PersistentFlags().BoolVar(&flagVerifyHooks, "verify", true, "Run Git hooks during mutating operations")
	rootCmd.PersistentFlags().StringVar(&flagFormat, "format", "", "Output format (human|json)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(restackCmd)
	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(doctorCmd)
	rootCmd.AddCommand(continueCmd)
	rootCmd.AddCommand(abortCmd)
}

func main() {
	ctx := context.Background()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(exitCodeFor(err))
	}
}

// exitError pairs a process exit code with its cause, for the one
// distinction the typed error taxonomy alone can't make: a NeedsRepair
// blocked specifically by an in-progress operation (exit 3) versus any
// other NeedsRepair or failure (exit 1/2).
type exitError struct {
	code  int
	cause error
}

func (e *exitError) Error() string { return e.cause.Error() }
func (e *exitError) Unwrap() error { return e.cause }

// exitCodeFor maps a returned error to the process exit code spec.md §6.3
// fixes: 0 success (handled by cobra's nil-error path), 1 known failure, 2
// internal, 3 refused because an op-state was already present.
func exitCodeFor(err error) int {
	var ee *exitError
	if stderrors.As(err, &ee) {
		fmt.Fprintln(os.Stderr, "Error:", ee.cause)
		return ee.code
	}
	var latticeErr *lerrors.LatticeError
	if stderrors.As(err, &latticeErr) {
		fmt.Fprintln(os.Stderr, "Error:", latticeErr.UserFriendlyMessage())
		return latticeErr.Kind.ExitCode()
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	return 1
}

// runEngineCommand drives cmd through the Engine and renders its outcome,
// every mutating subcommand's single entry point into the Engine. A
// NeedsRepair outcome is reported via `out` and wrapped in an *exitError so
// main can pick exit code 3 (blocked by an in-progress operation) apart
// from every other precondition failure (exit 1).
func runEngineCommand(ctx context.Context, cmd engine.Command) error {
	outcome, err := eng.Run(ctx, cmd)
	if outcome != nil {
		switch outcome.Kind {
		case engine.OutcomeNeedsRepair:
			reportIssues(outcome.Issues)
			code := 1
			if blocksOpInProgress(outcome.Issues) {
				code = 3
			}
			return &exitError{code: code, cause: err}
		case engine.OutcomePaused:
			var latticeErr *lerrors.LatticeError
			stderrors.As(err, &latticeErr)
			if latticeErr != nil {
				out.Warning(latticeErr.UserFriendlyMessage())
			}
			return &exitError{code: lerrors.KindConflict.ExitCode(), cause: err}
		case engine.OutcomeNoOp:
			out.Success("nothing to do")
			return nil
		case engine.OutcomeCommitted:
			out.Successf("%s committed (op %s)", cmd.Name(), outcome.Result.OpID)
			return nil
		}
	}
	if err != nil {
		return err
	}
	return nil
}

// blocksOpInProgress reports whether any blocking issue names
// NoLatticeOpInProgress — the one NeedsRepair cause spec.md §6.3 reserves
// exit code 3 for, distinct from every other blocked capability (exit 1).
func blocksOpInProgress(issues []capability.Issue) bool {
	for _, issue := range issues {
		for _, bc := range issue.BlocksCapabilities {
			if bc == capability.NoLatticeOpInProgress {
				return true
			}
		}
	}
	return false
}

// reportIssues prints every blocking issue from a NeedsRepair outcome,
// pointing the user at `lattice doctor` for automatic repairs.
func reportIssues(issues []capability.Issue) {
	for _, issue := range issues {
		out.Errorf("%s: %s", issue.ID, issue.Message)
	}
	if len(issues) > 0 {
		out.Info("Run 'lattice doctor' to see available fixes.")
	}
}
