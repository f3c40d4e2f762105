package main

import (
	"github.com/spf13/cobra"

	"github.com/kofron/lattice/internal/doctor"
)

var (
	flagDoctorAutoFix bool
	flagDoctorFixIDs  []string
)

func init() {
	doctorCmd.Flags().BoolVar(&flagDoctorAutoFix, "auto-fix", false, "Apply every proposed repair")
	doctorCmd.Flags().StringArrayVar(&flagDoctorFixIDs, "fix", nil, "Apply a specific repair by id (repeatable)")
}

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Diagnose and repair issues blocking the stack",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		options, allIssueIDs, err := eng.Propose(ctx)
		if err != nil {
			return err
		}

		var selected []doctor.FixOption
		switch {
		case flagDoctorAutoFix:
			selected = doctor.SelectAll(options)
		case len(flagDoctorFixIDs) > 0:
			selected = doctor.Select(options, flagDoctorFixIDs)
		}

		if len(selected) == 0 {
			printDoctorReport(options, allIssueIDs)
			return nil
		}

		result, err := eng.Repair(ctx, allIssueIDs, selected)
		if err != nil {
			return err
		}
		if result != nil {
			out.Successf("repaired %d issue(s) (op %s)", len(selected), result.OpID)
		}
		return nil
	},
}

func printDoctorReport(options []doctor.FixOption, allIssueIDs []string) {
	if len(options) == 0 {
		if len(allIssueIDs) == 0 {
			out.Success("no issues found")
		} else {
			out.Warning("issues found with no automatic fix; manual intervention required")
			for _, id := range allIssueIDs {
				out.Infof("  %s", id)
			}
		}
		return
	}

	out.Header("Proposed repairs")
	for _, opt := range options {
		out.Infof("[%s] %s", opt.ID, opt.Description)
		out.Infof("    %s", opt.Preview)
	}
	out.Info("Run 'lattice doctor --auto-fix' to apply all of the above, or --fix <id> to apply one.")
}
