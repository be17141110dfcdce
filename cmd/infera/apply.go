package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/computer-reinvention/infera/pkg/orch"
)

func newApplyCmd() *cobra.Command {
	var autoApprove bool

	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Provision the planned infrastructure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(".", "", false)
			if err != nil {
				return err
			}
			defer a.Close()

			if !autoApprove {
				ok, err := confirm("Provision the planned infrastructure? This creates billable cloud resources.")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Aborted.")
					return nil
				}
			}

			fmt.Println("Applying terraform plan...")
			if err := a.orch.Apply(cmd.Context(), orch.ApplyOptions{AutoApprove: autoApprove}); err != nil {
				return err
			}

			fmt.Println("\nInfrastructure provisioned.")
			fmt.Println("Run 'infera status' to inspect the deployment")
			return nil
		},
	}

	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "skip the confirmation prompt")
	return cmd
}
