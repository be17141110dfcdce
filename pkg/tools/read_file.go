package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

const (
	defaultReadLines   = 2000 // Default number of lines to read
	maxLineLength      = 2000 // Truncate lines longer than this
	defaultStartOffset = 1    // 1-based line numbering
	defaultMaxRead     = 1 << 20
)

// ReadFileTool reads file contents from the project tree.
type ReadFileTool struct {
	fs           afero.Fs
	projectRoot  string
	maxSizeBytes int64
}

// NewReadFileTool creates a new read_file tool rooted at projectRoot.
func NewReadFileTool(fs afero.Fs, projectRoot string, maxSizeBytes int64) *ReadFileTool {
	if maxSizeBytes <= 0 {
		maxSizeBytes = defaultMaxRead
	}
	return &ReadFileTool{
		fs:           fs,
		projectRoot:  projectRoot,
		maxSizeBytes: maxSizeBytes,
	}
}

// Name returns the tool name.
func (t *ReadFileTool) Name() string {
	return ToolReadFile
}

// PromptDocumentation returns formatted tool documentation for prompts.
func (t *ReadFileTool) PromptDocumentation() string {
	return `- **read_file** - Read contents of a file from the project
  - Parameters:
    - path (string, REQUIRED): relative path to file within the project
    - offset (integer, optional): line number to start from (1-based, default: 1)
    - limit (integer, optional): number of lines to read (default: 2000)
  - Output uses numbered lines (cat -n format)
  - Lines longer than 2000 characters are truncated
  - For large files, use offset and limit to read specific sections`
}

// Definition returns the tool definition for the LLM.
func (t *ReadFileTool) Definition() ToolDefinition {
	return ToolDefinition{
		Name:        ToolReadFile,
		Description: "Read contents of a file from the project. Output uses numbered lines. For large files, use offset and limit to read specific sections.",
		InputSchema: InputSchema{
			Type: "object",
			Properties: map[string]Property{
				"path": {
					Type:        "string",
					Description: "Relative path to file within the project",
				},
				"offset": {
					Type:        "integer",
					Description: "Line number to start reading from (1-based). Defaults to 1.",
				},
				"limit": {
					Type:        "integer",
					Description: "Number of lines to read. Defaults to 2000.",
				},
			},
			Required: []string{"path"},
		},
	}
}

// intArgOrDefault extracts an integer argument from the args map, returning
// defaultVal if missing or invalid. Handles float64 (from JSON unmarshal),
// int, and int64 value types.
func intArgOrDefault(args map[string]any, key string, defaultVal int) int {
	v, exists := args[key]
	if !exists {
		return defaultVal
	}
	var n int
	switch val := v.(type) {
	case float64:
		n = int(val)
	case int:
		n = val
	case int64:
		n = int(val)
	default:
		return defaultVal
	}
	if n < 1 {
		return defaultVal
	}
	return n
}

// resolveProjectPath cleans a tool-supplied relative path and joins it under
// root, rejecting traversal outside the project tree.
func resolveProjectPath(root, path string) (string, error) {
	cleanPath := filepath.Clean(path)
	if filepath.IsAbs(cleanPath) || cleanPath == ".." || strings.HasPrefix(cleanPath, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path must be relative to the project root: %s", path)
	}
	return filepath.Join(root, cleanPath), nil
}

// Exec executes the tool with the given arguments.
func (t *ReadFileTool) Exec(_ context.Context, args map[string]any) (*ExecResult, error) {
	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, fmt.Errorf("path is required and must be a string")
	}

	offset := intArgOrDefault(args, "offset", defaultStartOffset)
	limit := intArgOrDefault(args, "limit", defaultReadLines)

	fullPath, err := resolveProjectPath(t.projectRoot, path)
	if err != nil {
		return errorResult(err.Error())
	}

	f, err := t.fs.Open(fullPath)
	if err != nil {
		return errorResult(fmt.Sprintf("file not found or not readable: %s (error: %v)", path, err))
	}
	defer f.Close()

	var out strings.Builder
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	endLine := offset + limit - 1
	totalLines := 0
	truncated := false
	for scanner.Scan() {
		totalLines++
		if totalLines < offset || totalLines > endLine {
			continue
		}
		line := scanner.Text()
		if len(line) > maxLineLength {
			line = line[:maxLineLength]
		}
		if int64(out.Len()) < t.maxSizeBytes {
			fmt.Fprintf(&out, "%6d\t%s\n", totalLines, line)
		} else {
			truncated = true
		}
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return errorResult(fmt.Sprintf("failed to read %s: %v", path, scanErr))
	}
	if totalLines > endLine {
		truncated = true
	}

	resultMap := map[string]any{
		"success":     true,
		"content":     out.String(),
		"path":        path,
		"truncated":   truncated,
		"offset":      offset,
		"limit":       limit,
		"total_lines": totalLines,
	}

	content, jsonErr := json.Marshal(resultMap)
	if jsonErr != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", jsonErr)
	}
	return &ExecResult{Content: string(content)}, nil
}

// errorResult creates a JSON error response flagged as a tool failure.
func errorResult(msg string) (*ExecResult, error) {
	response := map[string]any{
		"success": false,
		"error":   msg,
	}
	content, marshalErr := json.Marshal(response)
	if marshalErr != nil {
		return nil, fmt.Errorf("failed to marshal error response: %w", marshalErr)
	}
	return &ExecResult{Content: string(content), IsError: true}, nil
}
