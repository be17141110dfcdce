// Package templates renders phase prompts and materializes the instruction
// and architecture documents agent sessions read during a run.
package templates

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"

	"github.com/computer-reinvention/infera/pkg/core"
)

//go:embed prompts/*.tpl.md
var promptFS embed.FS

//go:embed all:docs
var docsFS embed.FS

// PromptData is the substitution context for prompt templates. Rendering is
// deterministic: equal data always yields byte-identical prompts.
type PromptData struct {
	ProjectRoot    string
	Provider       string
	TemplatesDir   string
	TerraformDir   string
	ConfigPath     string
	NonInteractive bool
	AutoApprove    bool

	// ToolDocumentation is the markdown tool listing for the phase's
	// allow-set, generated from the tools the session may actually call.
	ToolDocumentation string
}

var prompts = template.Must(template.ParseFS(promptFS, "prompts/*.tpl.md"))

// ComposeSystemPrompt renders the session system prompt.
func ComposeSystemPrompt(data PromptData) (string, error) {
	return render("system.tpl.md", data)
}

// ComposePrompt renders the user prompt for a provisioning phase.
func ComposePrompt(phase core.Phase, data PromptData) (string, error) {
	name := ""
	switch phase {
	case core.PhaseConfigure:
		name = "configure.tpl.md"
	case core.PhasePlan:
		name = "plan.tpl.md"
	case core.PhaseApply:
		name = "apply.tpl.md"
	case core.PhaseDestroy:
		name = "destroy.tpl.md"
	default:
		return "", fmt.Errorf("no prompt template for phase %q", phase)
	}
	return render(name, data)
}

func render(name string, data PromptData) (string, error) {
	var sb strings.Builder
	if err := prompts.ExecuteTemplate(&sb, name, data); err != nil {
		return "", fmt.Errorf("failed to render %s: %w", name, err)
	}
	return sb.String(), nil
}

// Docs returns the embedded instruction and architecture documents keyed by
// their path relative to the templates directory.
func Docs() (map[string]string, error) {
	out := make(map[string]string)
	err := fs.WalkDir(docsFS, "docs", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		data, readErr := fs.ReadFile(docsFS, path)
		if readErr != nil {
			return fmt.Errorf("failed to read embedded doc %s: %w", path, readErr)
		}
		out[strings.TrimPrefix(path, "docs/")] = string(data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
