package orch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/computer-reinvention/infera/pkg/agent"
	"github.com/computer-reinvention/infera/pkg/core"
	"github.com/computer-reinvention/infera/pkg/logx"
	"github.com/computer-reinvention/infera/pkg/state"
	"github.com/computer-reinvention/infera/pkg/templates"
	"github.com/computer-reinvention/infera/pkg/tools"
)

// Runner executes one agent session for a phase and returns the assistant
// transcript. *agent.Session satisfies this.
type Runner interface {
	Run(ctx context.Context, systemPrompt, userPrompt string, emit agent.EventSink) (string, error)
}

// RunnerFactory builds the runner for a phase. provider is the cloud
// provider the session's tools act for: the configure option for the first
// phase, the persisted configuration's provider for every later one.
// Production wiring creates a Claude-backed session with the phase's tool
// allow-set; tests substitute a scripted client.
type RunnerFactory func(phase core.Phase, provider string) (Runner, error)

// Config assembles an orchestrator's collaborators.
type Config struct {
	Store    *state.Store
	Factory  RunnerFactory
	Sink     agent.EventSink // optional, receives session events for display
	Timeout  time.Duration   // optional per-session budget
	Provider string          // default cloud provider for configure
}

// Orchestrator sequences the provisioning phases against one project root.
// Each phase checks its preconditions before any session starts, holds the
// project lock for its duration, and persists state only on success.
type Orchestrator struct {
	store    *state.Store
	factory  RunnerFactory
	sink     agent.EventSink
	timeout  time.Duration
	provider string
	logger   *logx.Logger
}

// New creates an orchestrator from the given configuration.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("orchestrator requires a state store")
	}
	if cfg.Factory == nil {
		return nil, fmt.Errorf("orchestrator requires a runner factory")
	}
	if cfg.Provider == "" {
		cfg.Provider = "gcp"
	}
	return &Orchestrator{
		store:    cfg.Store,
		factory:  cfg.Factory,
		sink:     cfg.Sink,
		timeout:  cfg.Timeout,
		provider: cfg.Provider,
		logger:   logx.NewLogger("orch"),
	}, nil
}

// ConfigureOptions tune the configure phase.
type ConfigureOptions struct {
	Provider       string // overrides the orchestrator default
	NonInteractive bool
}

// Configure analyzes the codebase through an agent session and persists the
// extracted configuration. Nothing is written when the session fails, is
// interrupted, or produces no valid configuration block.
func (o *Orchestrator) Configure(ctx context.Context, opts ConfigureOptions) (*core.ProjectConfiguration, error) {
	provider := opts.Provider
	if provider == "" {
		provider = o.provider
	}

	release, err := o.store.AcquireLock()
	if err != nil {
		return nil, err
	}
	defer o.releaseLock(release)

	if err := o.materializeTemplates(); err != nil {
		return nil, err
	}

	data := o.promptData(provider)
	data.NonInteractive = opts.NonInteractive

	transcript, err := o.runPhase(ctx, core.PhaseConfigure, data)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, core.NewAnalysisError("analysis session failed", err)
	}

	cfg := ExtractConfig(transcript)
	if cfg == nil {
		return nil, core.NewAnalysisError("agent response contained no valid configuration block", nil)
	}
	if err := cfg.Validate(); err != nil {
		return nil, core.NewAnalysisError("agent produced an invalid configuration", err)
	}

	if err := o.store.Save(cfg); err != nil {
		return nil, err
	}
	o.logger.Info("configuration saved to %s", o.store.ConfigPath())
	return cfg, nil
}

// Plan generates terraform files and a speculative plan for the persisted
// configuration. Requires a prior configure.
func (o *Orchestrator) Plan(ctx context.Context) error {
	cfg, err := o.requireConfig()
	if err != nil {
		return err
	}

	release, err := o.store.AcquireLock()
	if err != nil {
		return err
	}
	defer o.releaseLock(release)

	if err := o.store.EnsureTerraformDir(); err != nil {
		return err
	}

	if _, err := o.runPhase(ctx, core.PhasePlan, o.promptData(cfg.Provider)); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return core.NewProvisionError("plan session failed", "", err)
	}
	return nil
}

// ApplyOptions tune the apply phase.
type ApplyOptions struct {
	AutoApprove bool
}

// Apply executes the generated terraform plan. Requires a prior plan. A
// session interrupted mid-apply leaves cloud state indeterminate, which is
// reported as a RollbackError naming the declared resources.
func (o *Orchestrator) Apply(ctx context.Context, opts ApplyOptions) error {
	cfg, err := o.requireConfig()
	if err != nil {
		return err
	}
	if !o.store.TerraformGenerated() {
		return core.NewConfigurationError(
			"no terraform configuration found: run 'infera plan' first", nil)
	}

	release, err := o.store.AcquireLock()
	if err != nil {
		return err
	}
	defer o.releaseLock(release)

	data := o.promptData(cfg.Provider)
	data.AutoApprove = opts.AutoApprove

	if _, err := o.runPhase(ctx, core.PhaseApply, data); err != nil {
		if errors.Is(err, context.Canceled) {
			return core.NewRollbackError(cfg.ResourceIDs(), err)
		}
		return core.NewProvisionError("apply session failed", "", err)
	}
	return nil
}

// Destroy tears down all provisioned infrastructure. Requires a persisted
// configuration.
func (o *Orchestrator) Destroy(ctx context.Context) error {
	cfg, err := o.requireConfig()
	if err != nil {
		return err
	}

	release, err := o.store.AcquireLock()
	if err != nil {
		return err
	}
	defer o.releaseLock(release)

	if _, err := o.runPhase(ctx, core.PhaseDestroy, o.promptData(cfg.Provider)); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return core.NewProvisionError("destroy session failed", "", err)
	}
	return nil
}

// StatusInfo is a read-only snapshot of the project lifecycle.
type StatusInfo struct {
	State              core.ProjectState          `json:"state"`
	Config             *core.ProjectConfiguration `json:"config,omitempty"`
	ConfigPath         string                     `json:"config_path"`
	TerraformGenerated bool                       `json:"terraform_generated"`
}

// Status reports the current project state without taking the lock.
func (o *Orchestrator) Status() (*StatusInfo, error) {
	info := &StatusInfo{
		State:              o.store.ProjectState(),
		ConfigPath:         o.store.ConfigPath(),
		TerraformGenerated: o.store.TerraformGenerated(),
	}
	cfg, ok, err := o.store.Load()
	if err != nil {
		return nil, err
	}
	if ok {
		info.Config = cfg
	}
	return info, nil
}

// requireConfig loads the persisted configuration, failing with a
// ConfigurationError before any session starts when none exists.
func (o *Orchestrator) requireConfig() (*core.ProjectConfiguration, error) {
	cfg, ok, err := o.store.Load()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.NewConfigurationError(
			"no configuration found: run 'infera init' first", nil)
	}
	return cfg, nil
}

func (o *Orchestrator) runPhase(ctx context.Context, phase core.Phase, data templates.PromptData) (string, error) {
	data.ToolDocumentation = tools.NewProvider(tools.ProjectContext{
		ProjectRoot: o.store.Root(),
		Provider:    data.Provider,
	}, tools.PhaseTools(phase)).GenerateToolDocumentation()

	systemPrompt, err := templates.ComposeSystemPrompt(data)
	if err != nil {
		return "", err
	}
	userPrompt, err := templates.ComposePrompt(phase, data)
	if err != nil {
		return "", err
	}

	runner, err := o.factory(phase, data.Provider)
	if err != nil {
		return "", err
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	o.logger.Info("starting %s session", phase)
	return runner.Run(ctx, systemPrompt, userPrompt, o.sink)
}

func (o *Orchestrator) promptData(provider string) templates.PromptData {
	return templates.PromptData{
		ProjectRoot:  o.store.Root(),
		Provider:     provider,
		TemplatesDir: o.store.TemplatesDir(),
		TerraformDir: o.store.TerraformDir(),
		ConfigPath:   o.store.ConfigPath(),
	}
}

// materializeTemplates writes the embedded instruction documents into the
// project's templates directory so sessions can read them with read_file.
func (o *Orchestrator) materializeTemplates() error {
	docs, err := templates.Docs()
	if err != nil {
		return err
	}
	for path, content := range docs {
		if err := o.store.WriteTemplate(path, []byte(content)); err != nil {
			return err
		}
	}
	return nil
}

func (o *Orchestrator) releaseLock(release func() error) {
	if err := release(); err != nil {
		o.logger.Warn("failed to release project lock: %v", err)
	}
}
