package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/afero"
)

// Directories that never carry provisioning signal. Skipped by list_files
// so analysis sessions do not waste iterations walking dependency trees.
var listSkipDirs = map[string]struct{}{
	".git":         {},
	".infera":      {},
	"node_modules": {},
	"__pycache__":  {},
	".venv":        {},
	"vendor":       {},
	".terraform":   {},
}

// ListFilesTool lists directory entries in the project tree.
type ListFilesTool struct {
	fs          afero.Fs
	projectRoot string
}

// NewListFilesTool creates a new list_files tool rooted at projectRoot.
func NewListFilesTool(fs afero.Fs, projectRoot string) *ListFilesTool {
	return &ListFilesTool{fs: fs, projectRoot: projectRoot}
}

// Name returns the tool name.
func (t *ListFilesTool) Name() string {
	return ToolListFiles
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *ListFilesTool) PromptDocumentation() string {
	return `- **list_files** - List files and directories under a path in the project
  - Parameters:
    - path (string, optional): relative path to list (default: project root)
  - Directories are suffixed with "/"
  - Dependency and VCS directories (node_modules, .git, ...) are omitted`
}

// Definition returns the tool definition for the LLM.
func (t *ListFilesTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolListFiles,
		Description: "List files and directories under a path in the project. Directories are suffixed with a slash. Dependency and VCS directories are omitted.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"path": {
					Type:        "string",
					Description: "Relative path to list. Defaults to the project root.",
				},
			},
		},
	}
}

// Exec executes the tool with the given arguments.
func (t *ListFilesTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	path := "."
	if raw, ok := args["path"]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("path must be a string")
		}
		if s != "" {
			path = s
		}
	}

	fullPath, err := resolveProjectPath(t.projectRoot, path)
	if err != nil {
		return errorResult(err.Error())
	}

	infos, err := afero.ReadDir(t.fs, fullPath)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to list %s: %v", path, err))
	}

	entries := make([]string, 0, len(infos))
	for _, info := range infos {
		name := info.Name()
		if info.IsDir() {
			if _, skip := listSkipDirs[name]; skip {
				continue
			}
			entries = append(entries, name+"/")
			continue
		}
		entries = append(entries, name)
	}
	sort.Strings(entries)

	resultMap := map[string]any{
		"success": true,
		"path":    path,
		"entries": entries,
	}
	out, jsonErr := json.Marshal(resultMap)
	if jsonErr != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", jsonErr)
	}
	return &ExecResult{Content: string(out)}, nil
}
