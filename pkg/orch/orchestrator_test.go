package orch

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/computer-reinvention/infera/pkg/agent"
	"github.com/computer-reinvention/infera/pkg/core"
	"github.com/computer-reinvention/infera/pkg/state"
)

const analysisTranscript = "Analysis complete.\n" +
	"```yaml\n" +
	"version: '1.0'\n" +
	"project_name: demo\n" +
	"provider: gcp\n" +
	"region: us-central1\n" +
	"detected_frameworks: [flask]\n" +
	"has_dockerfile: false\n" +
	"architecture_type: api_service\n" +
	"resources:\n" +
	"  - id: api\n" +
	"    type: cloud_run_service\n" +
	"    name: demo-api\n" +
	"    provider: gcp\n" +
	"```\n"

// scriptedRunner returns a fixed transcript and error, counting invocations.
type scriptedRunner struct {
	transcript string
	err        error
	calls      *int
	prompts    *[]string
}

func (r *scriptedRunner) Run(_ context.Context, systemPrompt, _ string, _ agent.EventSink) (string, error) {
	*r.calls++
	*r.prompts = append(*r.prompts, systemPrompt)
	return r.transcript, r.err
}

type testHarness struct {
	fs            afero.Fs
	store         *state.Store
	orch          *Orchestrator
	calls         int
	phases        []core.Phase
	providers     []string
	systemPrompts []string
}

func newHarness(t *testing.T, transcript string, runErr error) *testHarness {
	t.Helper()
	h := &testHarness{fs: afero.NewMemMapFs()}
	h.store = state.NewStoreWithFs(h.fs, "/proj")

	factory := func(phase core.Phase, provider string) (Runner, error) {
		h.phases = append(h.phases, phase)
		h.providers = append(h.providers, provider)
		return &scriptedRunner{transcript: transcript, err: runErr, calls: &h.calls, prompts: &h.systemPrompts}, nil
	}

	o, err := New(Config{Store: h.store, Factory: factory, Provider: "gcp"})
	require.NoError(t, err)
	h.orch = o
	return h
}

func (h *testHarness) saveConfig(t *testing.T) {
	t.Helper()
	cfg := ExtractConfig(analysisTranscript)
	require.NotNil(t, cfg)
	require.NoError(t, h.store.Save(cfg))
}

func (h *testHarness) writeMainTF(t *testing.T) {
	t.Helper()
	path := filepath.Join(h.store.TerraformDir(), "main.tf")
	require.NoError(t, afero.WriteFile(h.fs, path, []byte("resource {}\n"), 0o644))
}

func TestConfigurePersistsExtractedConfig(t *testing.T) {
	h := newHarness(t, analysisTranscript, nil)

	cfg, err := h.orch.Configure(context.Background(), ConfigureOptions{})
	require.NoError(t, err)
	assert.Equal(t, "demo", cfg.ProjectName)
	assert.Equal(t, []core.Phase{core.PhaseConfigure}, h.phases)

	loaded, ok, err := h.store.Load()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, core.StateConfigured, h.store.ProjectState())
}

func TestConfigureMaterializesTemplates(t *testing.T) {
	h := newHarness(t, analysisTranscript, nil)

	_, err := h.orch.Configure(context.Background(), ConfigureOptions{})
	require.NoError(t, err)

	ok, err := afero.Exists(h.fs, filepath.Join(h.store.TemplatesDir(), "_index.md"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSystemPromptListsPhaseTools(t *testing.T) {
	h := newHarness(t, analysisTranscript, nil)

	_, err := h.orch.Configure(context.Background(), ConfigureOptions{})
	require.NoError(t, err)
	require.NoError(t, h.orch.Plan(context.Background()))
	require.Len(t, h.systemPrompts, 2)

	configurePrompt, planPrompt := h.systemPrompts[0], h.systemPrompts[1]
	assert.Contains(t, configurePrompt, "## Available Tools")
	assert.Contains(t, configurePrompt, "- **read_file**")
	assert.Contains(t, configurePrompt, "- **verify_auth**")
	assert.NotContains(t, configurePrompt, "- **shell**")
	assert.Contains(t, planPrompt, "- **shell**")
	assert.Contains(t, planPrompt, "- **write_file**")
}

func TestConfigureNoConfigBlockPersistsNothing(t *testing.T) {
	h := newHarness(t, "I could not find anything to analyze.", nil)

	_, err := h.orch.Configure(context.Background(), ConfigureOptions{})
	var analysisErr *core.AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.False(t, h.store.ConfigExists())
}

func TestConfigureMalformedBlockPersistsNothing(t *testing.T) {
	h := newHarness(t, "```yaml\n\t\tbroken\n```\n```yaml\nproject_name: demo\nprovider: gcp\n```", nil)

	_, err := h.orch.Configure(context.Background(), ConfigureOptions{})
	var analysisErr *core.AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.False(t, h.store.ConfigExists())
}

func TestConfigureInvalidConfigRejected(t *testing.T) {
	// Parses as YAML but fails schema validation: resource depends on an
	// unknown id.
	transcript := "```yaml\n" +
		"project_name: demo\n" +
		"provider: gcp\n" +
		"resources:\n" +
		"  - id: api\n" +
		"    type: cloud_run_service\n" +
		"    name: demo-api\n" +
		"    provider: gcp\n" +
		"    depends_on: [missing]\n" +
		"```"
	h := newHarness(t, transcript, nil)

	_, err := h.orch.Configure(context.Background(), ConfigureOptions{})
	var analysisErr *core.AnalysisError
	require.ErrorAs(t, err, &analysisErr)
	assert.False(t, h.store.ConfigExists())
}

func TestConfigureInterruptPersistsNothing(t *testing.T) {
	h := newHarness(t, "", context.Canceled)

	_, err := h.orch.Configure(context.Background(), ConfigureOptions{})
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, h.store.ConfigExists())
}

func TestPlanWithoutConfigStartsNoSession(t *testing.T) {
	h := newHarness(t, "", nil)

	err := h.orch.Plan(context.Background())
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Zero(t, h.calls)
}

func TestPlanRunsPlanSession(t *testing.T) {
	h := newHarness(t, "Plan written to tfplan.", nil)
	h.saveConfig(t)

	require.NoError(t, h.orch.Plan(context.Background()))
	assert.Equal(t, []core.Phase{core.PhasePlan}, h.phases)

	ok, err := afero.DirExists(h.fs, h.store.TerraformDir())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestPlanSessionFailure(t *testing.T) {
	h := newHarness(t, "", assert.AnError)
	h.saveConfig(t)

	err := h.orch.Plan(context.Background())
	var provErr *core.ProvisionError
	require.ErrorAs(t, err, &provErr)
}

func TestApplyRequiresTerraform(t *testing.T) {
	h := newHarness(t, "", nil)
	h.saveConfig(t)

	err := h.orch.Apply(context.Background(), ApplyOptions{})
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Zero(t, h.calls)
}

func TestApplyRunsApplySession(t *testing.T) {
	h := newHarness(t, "Apply complete.", nil)
	h.saveConfig(t)
	h.writeMainTF(t)

	require.NoError(t, h.orch.Apply(context.Background(), ApplyOptions{AutoApprove: true}))
	assert.Equal(t, []core.Phase{core.PhaseApply}, h.phases)
}

func TestApplyInterruptReportsRollback(t *testing.T) {
	h := newHarness(t, "", context.Canceled)
	h.saveConfig(t)
	h.writeMainTF(t)

	err := h.orch.Apply(context.Background(), ApplyOptions{})
	var rbErr *core.RollbackError
	require.ErrorAs(t, err, &rbErr)
	assert.Equal(t, []string{"api"}, rbErr.ResourceIDs)
}

func TestDestroyWithoutConfigStartsNoSession(t *testing.T) {
	h := newHarness(t, "", nil)

	err := h.orch.Destroy(context.Background())
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Zero(t, h.calls)
}

func TestDestroyRunsDestroySession(t *testing.T) {
	h := newHarness(t, "All resources destroyed.", nil)
	h.saveConfig(t)

	require.NoError(t, h.orch.Destroy(context.Background()))
	assert.Equal(t, []core.Phase{core.PhaseDestroy}, h.phases)
}

func TestPhasesPassConfiguredProviderToRunner(t *testing.T) {
	h := newHarness(t, "Working on it.", nil)

	// Persist a configuration whose provider differs from the
	// orchestrator's configure-time default.
	cfg := ExtractConfig(analysisTranscript)
	require.NotNil(t, cfg)
	cfg.Provider = "aws"
	for i := range cfg.Resources {
		cfg.Resources[i].Provider = "aws"
	}
	require.NoError(t, h.store.Save(cfg))
	h.writeMainTF(t)

	require.NoError(t, h.orch.Plan(context.Background()))
	require.NoError(t, h.orch.Apply(context.Background(), ApplyOptions{AutoApprove: true}))
	require.NoError(t, h.orch.Destroy(context.Background()))

	assert.Equal(t, []string{"aws", "aws", "aws"}, h.providers)
}

func TestConfigurePassesRequestedProviderToRunner(t *testing.T) {
	h := newHarness(t, analysisTranscript, nil)

	_, err := h.orch.Configure(context.Background(), ConfigureOptions{Provider: "azure"})
	// The transcript declares gcp, which still persists fine; what matters
	// here is which provider the runner was built for.
	require.NoError(t, err)
	assert.Equal(t, []string{"azure"}, h.providers)
}

func TestStatusReflectsLifecycle(t *testing.T) {
	h := newHarness(t, "", nil)

	info, err := h.orch.Status()
	require.NoError(t, err)
	assert.Equal(t, core.StateUninitialized, info.State)
	assert.Nil(t, info.Config)

	h.saveConfig(t)
	info, err = h.orch.Status()
	require.NoError(t, err)
	assert.Equal(t, core.StateConfigured, info.State)
	require.NotNil(t, info.Config)
	assert.Equal(t, "demo", info.Config.ProjectName)

	h.writeMainTF(t)
	info, err = h.orch.Status()
	require.NoError(t, err)
	assert.Equal(t, core.StatePlanned, info.State)
	assert.True(t, info.TerraformGenerated)
}

func TestLockReleasedBetweenPhases(t *testing.T) {
	h := newHarness(t, analysisTranscript, nil)

	_, err := h.orch.Configure(context.Background(), ConfigureOptions{})
	require.NoError(t, err)

	// A stale lock would make this second phase fail immediately.
	require.NoError(t, h.orch.Plan(context.Background()))
}

func TestLockReleasedOnFailure(t *testing.T) {
	h := newHarness(t, "no config here", nil)

	_, err := h.orch.Configure(context.Background(), ConfigureOptions{})
	require.Error(t, err)

	_, err = h.orch.Configure(context.Background(), ConfigureOptions{})
	var analysisErr *core.AnalysisError
	require.ErrorAs(t, err, &analysisErr)
}
