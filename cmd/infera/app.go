package main

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/computer-reinvention/infera/pkg/agent"
	"github.com/computer-reinvention/infera/pkg/agent/llm"
	"github.com/computer-reinvention/infera/pkg/config"
	"github.com/computer-reinvention/infera/pkg/core"
	"github.com/computer-reinvention/infera/pkg/logx"
	"github.com/computer-reinvention/infera/pkg/metrics"
	"github.com/computer-reinvention/infera/pkg/orch"
	"github.com/computer-reinvention/infera/pkg/persistence"
	"github.com/computer-reinvention/infera/pkg/policy"
	"github.com/computer-reinvention/infera/pkg/state"
	"github.com/computer-reinvention/infera/pkg/tools"
)

// app bundles everything a phase command needs: the state store, the
// orchestrator, and the audit database handle to close on exit.
type app struct {
	store *state.Store
	orch  *orch.Orchestrator
	audit *persistence.AuditDB
}

func (a *app) Close() {
	if a.audit != nil {
		if err := a.audit.Close(); err != nil {
			logx.Warnf("failed to close audit database: %v", err)
		}
	}
}

// buildApp assembles the production wiring for one project root. provider is
// the default cloud provider used by configure; quiet suppresses assistant
// text on the console.
func buildApp(projectRoot, provider string, quiet bool) (*app, error) {
	root, err := filepath.Abs(projectRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve project root: %w", err)
	}
	if info, err := os.Stat(root); err != nil || !info.IsDir() {
		return nil, core.NewConfigurationError(
			fmt.Sprintf("project root %s is not a directory", root), err)
	}

	store := state.NewStore(root)
	settings, err := config.Load(filepath.Join(store.BaseDir(), "settings.yaml"))
	if err != nil {
		return nil, err
	}

	apiKey, err := config.ResolveAPIKey(func() (string, error) {
		return readSecret("Passphrase: ")
	})
	if err != nil {
		return nil, core.NewAuthenticationError("anthropic", err.Error())
	}
	client := llm.Chain(agent.NewClaudeClient(apiKey, settings.Model), llm.RetryMiddleware())

	var recorder metrics.Recorder = metrics.NopRecorder{}
	if settings.Metrics {
		recorder = metrics.NewPrometheusRecorder()
	}

	// Audit is best effort: a broken database disables it, never the phase.
	var audit *persistence.AuditDB
	if err := os.MkdirAll(store.BaseDir(), 0o755); err == nil {
		audit, err = persistence.Open(store.AuditPath())
		if err != nil {
			logx.Warnf("audit disabled: %v", err)
			audit = nil
		}
	}

	if mcp := tools.DiscoverTerraformMCP(tools.MCPLookups{}); mcp != nil {
		logx.Debugf("terraform MCP server available: %s %s", mcp.Command, strings.Join(mcp.Args, " "))
	}

	factory := func(phase core.Phase, cloudProvider string) (orch.Runner, error) {
		toolProvider := tools.NewProvider(tools.ProjectContext{
			ProjectRoot: root,
			Provider:    cloudProvider,
		}, tools.PhaseTools(phase))

		return agent.NewSession(agent.SessionConfig{
			Client:        client,
			Provider:      toolProvider,
			Gate:          policy.NewGate(root),
			Recorder:      recorder,
			Audit:         audit,
			Phase:         phase,
			MaxIterations: settings.MaxIterations,
			MaxTokens:     settings.MaxTokens,
		})
	}

	orchestrator, err := orch.New(orch.Config{
		Store:    store,
		Factory:  factory,
		Sink:     consoleSink(quiet),
		Timeout:  time.Duration(settings.SessionTimeout),
		Provider: provider,
	})
	if err != nil {
		return nil, err
	}

	return &app{store: store, orch: orchestrator, audit: audit}, nil
}

// consoleSink renders session events for the terminal. quiet drops assistant
// prose but keeps tool activity and failures visible.
func consoleSink(quiet bool) agent.EventSink {
	return func(ev agent.Event) {
		switch ev.Type {
		case agent.EventAssistantText:
			if !quiet {
				fmt.Println(ev.Text)
			}
		case agent.EventToolPre:
			fmt.Printf("[tool] %s\n", ev.Tool)
		case agent.EventToolPost:
			if ev.IsError {
				fmt.Printf("[tool] %s failed\n", ev.Tool)
			}
		case agent.EventResult:
			if ev.Status != agent.StatusSuccess {
				fmt.Printf("Session %s: %s\n", ev.Status, ev.Message)
			}
		}
	}
}

// confirm asks a yes/no question on stdin. Anything but y/yes declines.
func confirm(question string) (bool, error) {
	fmt.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("failed to read confirmation: %w", err)
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes", nil
}
