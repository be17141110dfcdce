package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Generate terraform and a speculative plan for the saved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(".", "", quiet)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Println("Generating terraform plan...")
			if err := a.orch.Plan(cmd.Context()); err != nil {
				return err
			}

			fmt.Printf("\nPlan written to %s\n", a.store.PlanOutputPath())
			fmt.Println("Run 'infera apply' to provision the infrastructure")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress agent commentary")
	return cmd
}
