package main

import (
	stderrors "errors"

	"github.com/spf13/cobra"

	lerrors "github.com/kofron/lattice/internal/errors"
)

var continueCmd = &cobra.Command{
	Use:   "continue",
	Short: "Resume an operation paused on a rebase conflict",
	RunE: func(cmd *cobra.Command, args []string) error {
		result, err := eng.Exec.Continue(cmd.Context())
		if err != nil {
			var latticeErr *lerrors.LatticeError
			if stderrors.As(err, &latticeErr) && latticeErr.Kind == lerrors.KindConflict {
				out.Warning(latticeErr.UserFriendlyMessage())
				return &exitError{code: lerrors.KindConflict.ExitCode(), cause: err}
			}
			return err
		}
		out.Successf("operation resumed and committed (op %s)", result.OpID)
		return nil
	},
}
