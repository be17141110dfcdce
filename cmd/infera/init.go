package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/computer-reinvention/infera/pkg/orch"
	"github.com/computer-reinvention/infera/pkg/state"
)

func newInitCmd() *cobra.Command {
	var (
		provider       string
		nonInteractive bool
	)

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Analyze a codebase and generate its infrastructure configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := "."
			if len(args) == 1 {
				root = args[0]
			}

			a, err := buildApp(root, provider, false)
			if err != nil {
				return err
			}
			defer a.Close()

			fmt.Println("Analyzing codebase...")
			cfg, err := a.orch.Configure(cmd.Context(), orch.ConfigureOptions{
				Provider:       provider,
				NonInteractive: nonInteractive,
			})
			if err != nil {
				return err
			}

			fmt.Printf("\nConfiguration saved to %s\n", a.store.ConfigPath())
			fmt.Printf("  project:      %s\n", cfg.ProjectName)
			fmt.Printf("  provider:     %s\n", cfg.Provider)
			fmt.Printf("  architecture: %s\n", cfg.ArchitectureType)
			fmt.Printf("  resources:    %d\n", len(cfg.Resources))
			fmt.Println("\nNext steps:")
			fmt.Printf("  edit %s to adjust the configuration\n", state.Dir+"/config.yaml")
			fmt.Println("  run 'infera plan' to generate terraform")
			return nil
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "gcp", "cloud provider (gcp, aws, azure)")
	cmd.Flags().BoolVar(&nonInteractive, "non-interactive", false, "never prompt, use defaults")
	return cmd
}
