package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

const (
	shellDefaultTimeout = 5 * time.Minute
	shellMaxOutputBytes = 256 * 1024
)

// ShellTool executes shell commands in the project root. Policy decisions
// about which commands are permitted happen before Exec is reached; the tool
// itself only runs what it is given.
type ShellTool struct {
	projectRoot string
	timeout     time.Duration
}

// NewShellTool creates a new shell tool running commands in projectRoot.
func NewShellTool(projectRoot string) *ShellTool {
	return &ShellTool{
		projectRoot: projectRoot,
		timeout:     shellDefaultTimeout,
	}
}

// Name returns the tool name.
func (t *ShellTool) Name() string {
	return ToolShell
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *ShellTool) PromptDocumentation() string {
	return `- **shell** - Execute a shell command in the project root
  - Parameters:
    - command (string, REQUIRED): command to run with sh -c
  - Returns stdout, stderr and the exit code
  - Output above 256KB is truncated
  - Destructive commands and paths outside the project are rejected`
}

// Definition returns the tool definition for the LLM.
func (t *ShellTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolShell,
		Description: "Execute a shell command in the project root and return stdout, stderr and the exit code. Use this to run terraform and to inspect the environment.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"command": {
					Type:        "string",
					Description: "Command to run with sh -c in the project root",
				},
			},
			Required: []string{"command"},
		},
	}
}

// Exec executes the tool with the given arguments.
func (t *ShellTool) Exec(ctx context.Context, args map[string]any) (*ExecResult, error) {
	command, ok := args["command"].(string)
	if !ok || command == "" {
		return nil, fmt.Errorf("command is required and must be a string")
	}

	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = t.projectRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runCtx.Err() != nil {
		// Propagate cancellation so the session loop stops instead of
		// feeding a timeout back to the LLM as a tool result.
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, ctx.Err()
		}
		return errorResult(fmt.Sprintf("command timed out after %s", t.timeout))
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return errorResult(fmt.Sprintf("failed to run command: %v", runErr))
		}
	}

	resultMap := map[string]any{
		"success":   exitCode == 0,
		"exit_code": exitCode,
		"stdout":    truncateOutput(stdout.String()),
		"stderr":    truncateOutput(stderr.String()),
	}
	out, jsonErr := json.Marshal(resultMap)
	if jsonErr != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", jsonErr)
	}
	return &ExecResult{Content: string(out), IsError: exitCode != 0}, nil
}

func truncateOutput(s string) string {
	if len(s) <= shellMaxOutputBytes {
		return s
	}
	return s[:shellMaxOutputBytes] + "\n... (output truncated)"
}
