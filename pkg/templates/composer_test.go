package templates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/computer-reinvention/infera/pkg/core"
)

func testData() PromptData {
	return PromptData{
		ProjectRoot:    "/home/dev/app",
		Provider:       "gcp",
		TemplatesDir:   "/home/dev/app/.infera/templates",
		TerraformDir:   "/home/dev/app/.infera/terraform",
		ConfigPath:     "/home/dev/app/.infera/config.yaml",
		NonInteractive: true,
		ToolDocumentation: "## Available Tools\n\n" +
			"- **read_file** - Read contents of a file from the project\n",
	}
}

func TestComposeIsDeterministic(t *testing.T) {
	for _, phase := range []core.Phase{core.PhaseConfigure, core.PhasePlan, core.PhaseApply, core.PhaseDestroy} {
		a, err := ComposePrompt(phase, testData())
		require.NoError(t, err)
		b, err := ComposePrompt(phase, testData())
		require.NoError(t, err)
		assert.Equal(t, a, b, "phase %s", phase)
		assert.NotEmpty(t, a)
	}
}

func TestSystemPromptNamesInstructionFiles(t *testing.T) {
	out, err := ComposeSystemPrompt(testData())
	require.NoError(t, err)

	assert.Contains(t, out, "/home/dev/app/.infera/templates/instructions/codebase_analysis.md")
	assert.Contains(t, out, "/home/dev/app/.infera/templates/instructions/terraform_generation.md")
	assert.Contains(t, out, "/home/dev/app/.infera/templates/instructions/cost_estimation.md")
	assert.Contains(t, out, "/home/dev/app/.infera/templates/_index.md")
	assert.Contains(t, out, "Provider: `gcp`")
}

func TestSystemPromptEmbedsToolDocumentation(t *testing.T) {
	out, err := ComposeSystemPrompt(testData())
	require.NoError(t, err)

	assert.Contains(t, out, "## Available Tools")
	assert.Contains(t, out, "- **read_file** - Read contents of a file from the project")
}

func TestConfigurePromptEmbedsSchema(t *testing.T) {
	out, err := ComposePrompt(core.PhaseConfigure, testData())
	require.NoError(t, err)

	assert.Contains(t, out, "```yaml")
	assert.Contains(t, out, "version: '1.0'")
	assert.Contains(t, out, "provider: gcp")
	assert.Contains(t, out, "architecture_type: <static_site|api_service|fullstack|containerized>")
	assert.Contains(t, out, "non-interactive")
}

func TestApplyPromptHonorsAutoApprove(t *testing.T) {
	data := testData()
	out, err := ComposePrompt(core.PhaseApply, data)
	require.NoError(t, err)
	assert.Contains(t, out, "show tfplan")
	assert.Contains(t, out, "Summarize what will be created, changed, and destroyed")
	assert.NotContains(t, out, "Auto-approve is set")

	data.AutoApprove = true
	out, err = ComposePrompt(core.PhaseApply, data)
	require.NoError(t, err)
	assert.Contains(t, out, "Auto-approve is set")
	assert.NotContains(t, out, "show tfplan")
}

func TestPlanPromptReferencesTerraformDir(t *testing.T) {
	out, err := ComposePrompt(core.PhasePlan, testData())
	require.NoError(t, err)

	assert.Contains(t, out, "terraform -chdir=/home/dev/app/.infera/terraform init")
	assert.Contains(t, out, "plan -out=tfplan")
	assert.Contains(t, out, "main.tf")
}

func TestUnknownPhaseRejected(t *testing.T) {
	_, err := ComposePrompt(core.Phase("bogus"), testData())
	require.Error(t, err)
}

func TestDocsCoverEveryReferencedFile(t *testing.T) {
	docs, err := Docs()
	require.NoError(t, err)

	for _, name := range []string{
		"_index.md",
		"static_site.md",
		"api_service.md",
		"fullstack_app.md",
		"containerized.md",
		"instructions/codebase_analysis.md",
		"instructions/terraform_generation.md",
		"instructions/cost_estimation.md",
	} {
		assert.Contains(t, docs, name)
		assert.NotEmpty(t, docs[name])
	}
}
