package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func validConfig() *ProjectConfiguration {
	return &ProjectConfiguration{
		Version:            SchemaVersion,
		ProjectName:        "demo",
		Provider:           "gcp",
		Region:             "us-central1",
		DetectedFrameworks: []string{"fastapi"},
		ArchitectureType:   ArchAPIService,
		Resources: []ResourceSpec{
			{ID: "db", Type: "google_sql_database_instance", Name: "demo-db", Provider: "gcp", Config: map[string]any{"tier": "db-f1-micro"}},
			{ID: "run", Type: "google_cloud_run_v2_service", Name: "demo-api", Provider: "gcp", DependsOn: []string{"db"}},
		},
	}
}

func TestValidateAcceptsWellFormedConfig(t *testing.T) {
	require.NoError(t, validConfig().Validate())
}

func TestValidateRejectsDuplicateResourceIDs(t *testing.T) {
	cfg := validConfig()
	cfg.Resources = append(cfg.Resources, ResourceSpec{ID: "db", Type: "x", Name: "x", Provider: "gcp"})

	err := cfg.Validate()
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Message, "duplicate resource id")
}

func TestValidateRejectsDanglingDependency(t *testing.T) {
	cfg := validConfig()
	cfg.Resources[1].DependsOn = []string{"missing"}

	err := cfg.Validate()
	var cfgErr *ConfigurationError
	require.True(t, errors.As(err, &cfgErr))
	assert.Contains(t, cfgErr.Message, "unknown resource")
}

func TestValidateRejectsSelfDependency(t *testing.T) {
	cfg := validConfig()
	cfg.Resources[0].DependsOn = []string{"db"}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "depends on itself")
}

func TestValidateRejectsUnknownArchitecture(t *testing.T) {
	cfg := validConfig()
	cfg.ArchitectureType = "mainframe"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown architecture_type")
}

func TestValidateAllowsEmptyArchitecture(t *testing.T) {
	cfg := validConfig()
	cfg.ArchitectureType = ""
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsDanglingSubdomainTarget(t *testing.T) {
	cfg := validConfig()
	cfg.Domain = &DomainConfig{
		Name:       "example.com",
		Subdomains: map[string]string{"api": "nonexistent"},
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown resource")
}

func TestYAMLRoundTripIsIdentity(t *testing.T) {
	cfg := validConfig()
	cfg.Domain = &DomainConfig{
		Name:       "example.com",
		Subdomains: map[string]string{"api": "run"},
	}

	data, err := yaml.Marshal(cfg)
	require.NoError(t, err)

	var back ProjectConfiguration
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, *cfg, back)
}

func TestErrorTaxonomyMatchesWithErrorsAs(t *testing.T) {
	wrapped := NewAnalysisError("no configuration found", errors.New("boom"))

	var analysisErr *AnalysisError
	require.True(t, errors.As(wrapped, &analysisErr))
	assert.ErrorContains(t, wrapped, "no configuration found")

	provErr := NewProvisionError("terraform apply failed", "db", nil)
	assert.Contains(t, provErr.Error(), "resource db")

	rb := NewRollbackError([]string{"db", "run"}, nil)
	assert.Contains(t, rb.Error(), "db, run")
}
