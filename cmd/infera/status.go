package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/computer-reinvention/infera/pkg/core"
	"github.com/computer-reinvention/infera/pkg/orch"
	"github.com/computer-reinvention/infera/pkg/state"
	"github.com/computer-reinvention/infera/pkg/tools"
)

func newStatusCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the project's provisioning state",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			// Status is read-only and never starts a session, so it needs
			// no API key and no agent wiring.
			root, err := filepath.Abs(".")
			if err != nil {
				return err
			}
			orchestrator, err := orch.New(orch.Config{
				Store: state.NewStore(root),
				Factory: func(core.Phase, string) (orch.Runner, error) {
					return nil, fmt.Errorf("status does not run sessions")
				},
			})
			if err != nil {
				return err
			}

			info, err := orchestrator.Status()
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			fmt.Printf("State: %s\n", info.State)
			if info.Config == nil {
				fmt.Println("No configuration. Run 'infera init' to analyze this codebase.")
				return nil
			}
			fmt.Printf("Project:      %s\n", info.Config.ProjectName)
			fmt.Printf("Provider:     %s (%s)\n", info.Config.Provider, info.Config.Region)
			fmt.Printf("Architecture: %s\n", info.Config.ArchitectureType)
			fmt.Printf("Resources:    %d\n", len(info.Config.Resources))
			for i := range info.Config.Resources {
				r := &info.Config.Resources[i]
				fmt.Printf("  - %s (%s)\n", r.ID, r.Type)
			}
			if info.TerraformGenerated {
				fmt.Println("Terraform:    generated")
			} else {
				fmt.Println("Terraform:    not generated (run 'infera plan')")
			}
			if mcp := tools.DiscoverTerraformMCP(tools.MCPLookups{}); mcp != nil {
				fmt.Printf("MCP server:   %s %s\n", mcp.Command, strings.Join(mcp.Args, " "))
			} else {
				fmt.Println("MCP server:   not available")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "emit machine-readable JSON")
	return cmd
}
