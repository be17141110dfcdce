package tools

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// ProjectContext carries project-specific configuration for tool creation.
type ProjectContext struct {
	Fs          afero.Fs
	ProjectRoot string
	Provider    string
}

// ToolFactory creates a tool instance configured for a specific project context.
type ToolFactory func(ctx ProjectContext) (Tool, error)

// ToolMeta contains metadata about a tool for documentation and discovery.
type ToolMeta struct {
	Name        string
	Description string
	InputSchema InputSchema
}

// toolDescriptor contains the factory and metadata for a tool.
type toolDescriptor struct {
	meta    ToolMeta
	factory ToolFactory
}

// immutableRegistry is the global, read-only tool registry.
type immutableRegistry struct {
	mu     sync.RWMutex
	sealed bool
	tools  map[string]toolDescriptor
}

var globalRegistry = &immutableRegistry{
	tools: make(map[string]toolDescriptor),
}

// Register adds a tool factory to the global registry.
// Panics if called after the registry is sealed.
func Register(name string, factory ToolFactory, meta *ToolMeta) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	if globalRegistry.sealed {
		panic(fmt.Sprintf("tool registry sealed - cannot register tool '%s'", name))
	}

	globalRegistry.tools[name] = toolDescriptor{
		meta:    *meta,
		factory: factory,
	}
}

// Seal prevents further tool registrations.
// Called automatically when the first Provider is created.
func Seal() {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.sealed = true
}

// Provider creates and manages tool instances for a specific project context.
// Only tools in the allow set can be obtained.
type Provider struct {
	ctx      ProjectContext
	tools    map[string]Tool
	allowSet map[string]struct{}
	mu       sync.Mutex
}

// NewProvider creates a Provider for the given project context and allowed tools.
// Automatically seals the global registry on first use.
func NewProvider(ctx ProjectContext, allowedTools []string) *Provider {
	Seal()

	if ctx.Fs == nil {
		ctx.Fs = afero.NewOsFs()
	}

	allowSet := make(map[string]struct{}, len(allowedTools))
	for _, name := range allowedTools {
		allowSet[name] = struct{}{}
	}

	return &Provider{
		ctx:      ctx,
		tools:    make(map[string]Tool),
		allowSet: allowSet,
	}
}

// Get retrieves a tool instance, creating it lazily if needed.
func (p *Provider) Get(name string) (Tool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.allowSet[name]; !ok {
		return nil, fmt.Errorf("tool '%s' not allowed in this context", name)
	}

	if tool, ok := p.tools[name]; ok {
		return tool, nil
	}

	globalRegistry.mu.RLock()
	desc, exists := globalRegistry.tools[name]
	globalRegistry.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("tool '%s' not registered", name)
	}

	tool, err := desc.factory(p.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool '%s': %w", name, err)
	}

	p.tools[name] = tool
	return tool, nil
}

// List returns metadata for all allowed tools, sorted by name so tool
// definitions sent to the LLM are deterministic.
func (p *Provider) List() []ToolMeta {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	result := make([]ToolMeta, 0, len(p.allowSet))
	for name := range p.allowSet {
		if desc, ok := globalRegistry.tools[name]; ok {
			result = append(result, desc.meta)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Definitions returns the LLM-facing definitions for all allowed tools.
func (p *Provider) Definitions() []ToolDefinition {
	metas := p.List()
	defs := make([]ToolDefinition, 0, len(metas))
	for i := range metas {
		defs = append(defs, ToolDefinition{
			Name:        metas[i].Name,
			Description: metas[i].Description,
			InputSchema: metas[i].InputSchema,
		})
	}
	return defs
}

// GenerateToolDocumentation creates markdown documentation for this provider's
// allowed tools. The system prompt embeds it so the agent sees exactly the
// tools its phase allows.
func (p *Provider) GenerateToolDocumentation() string {
	metas := p.List()
	if len(metas) == 0 {
		return "No tools available"
	}

	var doc strings.Builder
	doc.WriteString("## Available Tools\n\n")
	for i := range metas {
		tool, err := p.Get(metas[i].Name)
		if err != nil {
			doc.WriteString(fmt.Sprintf("- **%s** - %s\n", metas[i].Name, metas[i].Description))
			continue
		}
		doc.WriteString(tool.PromptDocumentation())
		doc.WriteString("\n")
	}
	return doc.String()
}

// TOOL FACTORY FUNCTIONS

func createReadFileTool(ctx ProjectContext) (Tool, error) {
	return NewReadFileTool(ctx.Fs, ctx.ProjectRoot, 0), nil
}

func createWriteFileTool(ctx ProjectContext) (Tool, error) {
	return NewWriteFileTool(ctx.Fs, ctx.ProjectRoot), nil
}

func createListFilesTool(ctx ProjectContext) (Tool, error) {
	return NewListFilesTool(ctx.Fs, ctx.ProjectRoot), nil
}

func createShellTool(ctx ProjectContext) (Tool, error) {
	if ctx.ProjectRoot == "" {
		return nil, fmt.Errorf("shell tool requires a project root")
	}
	return NewShellTool(ctx.ProjectRoot), nil
}

func createVerifyAuthTool(ctx ProjectContext) (Tool, error) {
	return NewVerifyAuthTool(ctx.Provider), nil
}

func init() {
	Register(ToolReadFile, createReadFileTool, &ToolMeta{
		Name:        ToolReadFile,
		Description: "Read contents of a file from the project",
		InputSchema: NewReadFileTool(nil, "", 0).Definition().InputSchema,
	})

	Register(ToolWriteFile, createWriteFileTool, &ToolMeta{
		Name:        ToolWriteFile,
		Description: "Write a file inside the project root, creating parent directories as needed",
		InputSchema: NewWriteFileTool(nil, "").Definition().InputSchema,
	})

	Register(ToolListFiles, createListFilesTool, &ToolMeta{
		Name:        ToolListFiles,
		Description: "List files and directories under a path in the project",
		InputSchema: NewListFilesTool(nil, "").Definition().InputSchema,
	})

	Register(ToolShell, createShellTool, &ToolMeta{
		Name:        ToolShell,
		Description: "Execute shell commands in the project root and return the output",
		InputSchema: NewShellTool("").Definition().InputSchema,
	})

	Register(ToolVerifyAuth, createVerifyAuthTool, &ToolMeta{
		Name:        ToolVerifyAuth,
		Description: "Verify that cloud provider credentials are configured and valid",
		InputSchema: NewVerifyAuthTool("").Definition().InputSchema,
	})
}
