package main

import (
	"github.com/spf13/cobra"
)

var abortCmd = &cobra.Command{
	Use:   "abort",
	Short: "Discard the in-progress operation and roll back every applied step",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := eng.Exec.Abort(cmd.Context()); err != nil {
			return err
		}
		out.Success("operation aborted")
		return nil
	},
}
