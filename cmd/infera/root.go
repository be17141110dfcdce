package main

import (
	"github.com/spf13/cobra"

	"github.com/computer-reinvention/infera/pkg/logx"
)

func newRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:           "infera",
		Short:         "Agent-driven infrastructure provisioning",
		Long:          "Infera analyzes a codebase, generates terraform for it, and provisions cloud infrastructure by driving LLM agent sessions.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			logx.SetVerbose(verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(
		newInitCmd(),
		newPlanCmd(),
		newApplyCmd(),
		newDestroyCmd(),
		newStatusCmd(),
		newAuthCmd(),
	)
	return cmd
}
