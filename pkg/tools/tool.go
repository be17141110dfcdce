// Package tools provides the tool implementations and registry exposed to agent sessions.
package tools

import (
	"context"

	"github.com/computer-reinvention/infera/pkg/core"
)

// Tool name constants. Use these instead of string literals when building
// allow lists or policy rules.
const (
	ToolReadFile   = "read_file"
	ToolWriteFile  = "write_file"
	ToolListFiles  = "list_files"
	ToolShell      = "shell"
	ToolVerifyAuth = "verify_auth"
)

// Property describes a single parameter in a tool's input schema.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// InputSchema describes tool parameters in JSON Schema form.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// ToolDefinition is the wire-level definition sent to the LLM.
type ToolDefinition struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	InputSchema InputSchema `json:"input_schema"`
}

// ExecResult is the outcome of a tool execution. IsError marks results that
// should be surfaced to the LLM as tool failures rather than transport errors.
type ExecResult struct {
	Content string
	IsError bool
}

// Tool is the interface all agent tools implement.
type Tool interface {
	// Name returns the tool's registered name.
	Name() string

	// Definition returns the LLM-facing tool definition.
	Definition() ToolDefinition

	// PromptDocumentation returns formatted tool documentation for prompts.
	PromptDocumentation() string

	// Exec executes the tool with the given arguments.
	Exec(ctx context.Context, args map[string]any) (*ExecResult, error)
}

// PhaseTools returns the allowed tool names for each provisioning phase.
// Analysis (configure) is read-only plus auth probing; the terraform phases
// additionally write files and run commands.
func PhaseTools(phase core.Phase) []string {
	switch phase {
	case core.PhaseConfigure:
		return []string{ToolReadFile, ToolListFiles, ToolVerifyAuth}
	default:
		return []string{ToolReadFile, ToolWriteFile, ToolListFiles, ToolShell, ToolVerifyAuth}
	}
}
