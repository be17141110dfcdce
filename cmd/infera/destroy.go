package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDestroyCmd() *cobra.Command {
	var autoApprove bool

	cmd := &cobra.Command{
		Use:   "destroy",
		Short: "Tear down all provisioned infrastructure",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := buildApp(".", "", false)
			if err != nil {
				return err
			}
			defer a.Close()

			if !autoApprove {
				ok, err := confirm("Destroy all provisioned infrastructure? This cannot be undone.")
				if err != nil {
					return err
				}
				if !ok {
					fmt.Println("Aborted.")
					return nil
				}
			}

			fmt.Println("Destroying infrastructure...")
			if err := a.orch.Destroy(cmd.Context()); err != nil {
				return err
			}

			fmt.Println("\nAll resources destroyed.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&autoApprove, "auto-approve", false, "skip the confirmation prompt")
	return cmd
}
