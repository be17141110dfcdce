package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

const authCheckTimeout = 30 * time.Second

// authCheck describes how to ask one provider's CLI for active credentials.
type authCheck struct {
	binary string
	args   []string
	hint   string
}

var authChecks = map[string]authCheck{
	"gcp": {
		binary: "gcloud",
		args:   []string{"auth", "application-default", "print-access-token"},
		hint:   "run 'gcloud auth application-default login'",
	},
	"aws": {
		binary: "aws",
		args:   []string{"sts", "get-caller-identity"},
		hint:   "run 'aws configure' or set AWS credentials in the environment",
	},
	"azure": {
		binary: "az",
		args:   []string{"account", "show"},
		hint:   "run 'az login'",
	},
}

// commandRunner runs a provider CLI and reports whether it succeeded.
// Injected in tests.
type commandRunner func(ctx context.Context, binary string, args ...string) (string, error)

func runAuthCommand(ctx context.Context, binary string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	err := cmd.Run()
	return out.String(), err
}

// VerifyAuthTool checks that credentials for the configured cloud provider
// are present and usable before any provisioning command runs.
type VerifyAuthTool struct {
	provider string
	run      commandRunner
}

// NewVerifyAuthTool creates a verify_auth tool for the given default provider.
func NewVerifyAuthTool(provider string) *VerifyAuthTool {
	return &VerifyAuthTool{provider: provider, run: runAuthCommand}
}

// Name returns the tool name.
func (t *VerifyAuthTool) Name() string {
	return ToolVerifyAuth
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *VerifyAuthTool) PromptDocumentation() string {
	return `- **verify_auth** - Verify cloud provider credentials
  - Parameters:
    - provider (string, optional): gcp, aws or azure (default: the project's provider)
  - Runs the provider CLI's credential check and reports whether it succeeded
  - Call this before generating or applying infrastructure`
}

// Definition returns the tool definition for the LLM.
func (t *VerifyAuthTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolVerifyAuth,
		Description: "Verify that cloud provider credentials are configured and valid. Call this before generating or applying infrastructure.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"provider": {
					Type:        "string",
					Description: "Cloud provider to check. Defaults to the project's provider.",
					Enum:        []string{"gcp", "aws", "azure"},
				},
			},
		},
	}
}

// Exec executes the tool with the given arguments.
func (t *VerifyAuthTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	provider := t.provider
	if raw, ok := args["provider"].(string); ok && raw != "" {
		provider = raw
	}

	check, ok := authChecks[provider]
	if !ok {
		return errorResult(fmt.Sprintf("unknown provider %q, expected one of gcp, aws, azure", provider))
	}

	runCtx, cancel := context.WithTimeout(ctx, authCheckTimeout)
	defer cancel()

	output, err := t.run(runCtx, check.binary, check.args...)
	resultMap := map[string]any{
		"provider":      provider,
		"authenticated": err == nil,
	}
	if err != nil {
		resultMap["error"] = strings.TrimSpace(output)
		resultMap["hint"] = check.hint
	}

	out, jsonErr := json.Marshal(resultMap)
	if jsonErr != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", jsonErr)
	}
	return &ExecResult{Content: string(out), IsError: err != nil}, nil
}
