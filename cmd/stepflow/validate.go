package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stepflow/stepflow/pkg/validate"
	"github.com/stepflow/stepflow/pkg/workflowregistry"
)

// newValidateCommand builds `stepflow validate`: a non-executing
// pre-flight check over every discovered workflow, printing every error
// and warning and exiting non-zero only when an error (not a mere
// warning) was found.
func newValidateCommand(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check every workflow under --dir without running it",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := resolveWorkflowsDir(cfg)
			reg, err := workflowregistry.Discover(dir)
			if err != nil {
				return fmt.Errorf("discovering workflows under %q: %w", dir, err)
			}

			report := validate.Run(reg)
			for _, w := range report.Warnings {
				fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w.String())
			}
			for _, e := range report.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "error: %s\n", e.String())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d error(s), %d warning(s)\n", report.ErrorCount(), report.WarningCount())

			if !report.IsValid() {
				return fmt.Errorf("validation failed")
			}
			return nil
		},
	}
}
