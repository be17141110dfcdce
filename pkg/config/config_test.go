package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWhenNoFile(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "settings.yaml"))
	require.NoError(t, err)

	assert.Equal(t, DefaultModel, s.Model)
	assert.Equal(t, DefaultMaxIterations, s.MaxIterations)
	assert.Equal(t, DefaultMaxTokens, s.MaxTokens)
	assert.Equal(t, 15*time.Minute, time.Duration(s.SessionTimeout))
}

func TestLoadReadsSettingsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	content := "model: claude-opus-4-1\nmax_iterations: 12\nsession_timeout: 5m\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "claude-opus-4-1", s.Model)
	assert.Equal(t, 12, s.MaxIterations)
	assert.Equal(t, 5*time.Minute, time.Duration(s.SessionTimeout))
	assert.Equal(t, DefaultMaxTokens, s.MaxTokens)
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("model: from-file\n"), 0o644))

	t.Setenv(EnvModel, "from-env")
	t.Setenv(EnvMaxIterations, "7")

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", s.Model)
	assert.Equal(t, 7, s.MaxIterations)
}

func TestInvalidMaxIterationsEnvRejected(t *testing.T) {
	t.Setenv(EnvMaxIterations, "zero")
	_, err := Load(filepath.Join(t.TempDir(), "settings.yaml"))
	require.Error(t, err)
}

func TestAPIKeyRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")

	require.NoError(t, SaveAPIKey(path, "hunter2", "sk-ant-test-key"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	key, err := LoadAPIKey(path, "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "sk-ant-test-key", key)
}

func TestWrongPassphraseFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, SaveAPIKey(path, "hunter2", "sk-ant-test-key"))

	_, err := LoadAPIKey(path, "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decryption failed")
}

func TestResolveAPIKeyPrefersEnvironment(t *testing.T) {
	t.Setenv(EnvAPIKey, "sk-from-env")
	key, err := ResolveAPIKey(func() (string, error) {
		t.Fatal("passphrase prompt should not run when env var is set")
		return "", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "sk-from-env", key)
}
