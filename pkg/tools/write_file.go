package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// WriteFileTool writes files inside the project tree. Paths outside the
// project root are rejected before any filesystem access.
type WriteFileTool struct {
	fs          afero.Fs
	projectRoot string
}

// NewWriteFileTool creates a new write_file tool rooted at projectRoot.
func NewWriteFileTool(fs afero.Fs, projectRoot string) *WriteFileTool {
	return &WriteFileTool{fs: fs, projectRoot: projectRoot}
}

// Name returns the tool name.
func (t *WriteFileTool) Name() string {
	return ToolWriteFile
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *WriteFileTool) PromptDocumentation() string {
	return `- **write_file** - Write a file inside the project
  - Parameters:
    - path (string, REQUIRED): relative path within the project
    - content (string, REQUIRED): full file content to write
  - Creates parent directories as needed
  - Overwrites the file if it already exists
  - Paths outside the project root are rejected`
}

// Definition returns the tool definition for the LLM.
func (t *WriteFileTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolWriteFile,
		Description: "Write a file inside the project, creating parent directories as needed. Overwrites existing files. Paths outside the project root are rejected.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"path": {
					Type:        "string",
					Description: "Relative path within the project",
				},
				"content": {
					Type:        "string",
					Description: "Full file content to write",
				},
			},
			Required: []string{"path", "content"},
		},
	}
}

// Exec executes the tool with the given arguments.
func (t *WriteFileTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("path is required and must be a string")
	}
	content, ok := args["content"].(string)
	if !ok {
		return nil, fmt.Errorf("content is required and must be a string")
	}

	fullPath, err := resolveProjectPath(t.projectRoot, path)
	if err != nil {
		return errorResult(err.Error())
	}

	if err := t.fs.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return errorResult(fmt.Sprintf("failed to create parent directories for %s: %v", path, err))
	}
	if err := afero.WriteFile(t.fs, fullPath, []byte(content), 0o644); err != nil {
		return errorResult(fmt.Sprintf("failed to write %s: %v", path, err))
	}

	resultMap := map[string]any{
		"success": true,
		"path":    path,
		"bytes":   len(content),
	}
	out, jsonErr := json.Marshal(resultMap)
	if jsonErr != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", jsonErr)
	}
	return &ExecResult{Content: string(out)}, nil
}
