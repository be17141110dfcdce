package state

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/computer-reinvention/infera/pkg/core"
)

func testConfig() *core.ProjectConfiguration {
	return &core.ProjectConfiguration{
		Version:     core.SchemaVersion,
		ProjectName: "demo",
		Provider:    "gcp",
		Region:      "us-central1",
		Resources: []core.ResourceSpec{
			{ID: "bucket", Type: "google_storage_bucket", Name: "demo-assets", Provider: "gcp"},
		},
	}
}

func TestLoadReturnsAbsentWhenNoConfig(t *testing.T) {
	store := NewStoreWithFs(afero.NewMemMapFs(), "/proj")

	cfg, found, err := store.Load()
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, cfg)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	store := NewStoreWithFs(afero.NewMemMapFs(), "/proj")
	cfg := testConfig()

	require.NoError(t, store.Save(cfg))

	loaded, found, err := store.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, cfg, loaded)
}

func TestSaveRejectsInvalidConfig(t *testing.T) {
	store := NewStoreWithFs(afero.NewMemMapFs(), "/proj")
	cfg := testConfig()
	cfg.Resources[0].DependsOn = []string{"ghost"}

	err := store.Save(cfg)
	var cfgErr *core.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.False(t, store.ConfigExists())
}

func TestLoadRejectsCorruptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStoreWithFs(fs, "/proj")
	require.NoError(t, fs.MkdirAll(store.BaseDir(), 0o755))
	require.NoError(t, afero.WriteFile(fs, store.ConfigPath(), []byte(":: not yaml ::"), 0o644))

	_, _, err := store.Load()
	var cfgErr *core.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
}

// A leftover temporary file from an interrupted write must not disturb the
// previously committed configuration.
func TestInterruptedWriteLeavesCommittedConfigIntact(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStoreWithFs(fs, "/proj")
	require.NoError(t, store.Save(testConfig()))

	committed, err := afero.ReadFile(fs, store.ConfigPath())
	require.NoError(t, err)

	// Simulate a crash mid-write: partial bytes in the temporary file,
	// rename never happened.
	require.NoError(t, afero.WriteFile(fs, store.ConfigPath()+".tmp", []byte("partial"), 0o644))

	after, err := afero.ReadFile(fs, store.ConfigPath())
	require.NoError(t, err)
	assert.Equal(t, committed, after)

	loaded, found, err := store.Load()
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "demo", loaded.ProjectName)
}

func TestProjectStateFollowsMarkers(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStoreWithFs(fs, "/proj")
	assert.Equal(t, core.StateUninitialized, store.ProjectState())

	require.NoError(t, store.Save(testConfig()))
	assert.Equal(t, core.StateConfigured, store.ProjectState())

	require.NoError(t, fs.MkdirAll(store.TerraformDir(), 0o755))
	require.NoError(t, afero.WriteFile(fs, store.TerraformDir()+"/main.tf", []byte("resource {}"), 0o644))
	assert.Equal(t, core.StatePlanned, store.ProjectState())
	assert.True(t, store.TerraformGenerated())
}

func TestAcquireLockIsExclusive(t *testing.T) {
	store := NewStoreWithFs(afero.NewMemMapFs(), "/proj")

	release, err := store.AcquireLock()
	require.NoError(t, err)

	_, err = store.AcquireLock()
	var cfgErr *core.ConfigurationError
	require.True(t, errors.As(err, &cfgErr))

	require.NoError(t, release())
	release2, err := store.AcquireLock()
	require.NoError(t, err)
	require.NoError(t, release2())
}

func TestWriteTemplateDoesNotOverwrite(t *testing.T) {
	fs := afero.NewMemMapFs()
	store := NewStoreWithFs(fs, "/proj")

	require.NoError(t, store.WriteTemplate("instructions/codebase_analysis.md", []byte("v1")))
	require.NoError(t, store.WriteTemplate("instructions/codebase_analysis.md", []byte("v2")))

	data, err := afero.ReadFile(fs, store.TemplatesDir()+"/instructions/codebase_analysis.md")
	require.NoError(t, err)
	assert.Equal(t, "v1", string(data))
}
