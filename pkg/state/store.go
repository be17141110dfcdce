// Package state provides durable, atomic persistence of the project
// configuration and the on-disk phase markers under .infera/.
package state

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/computer-reinvention/infera/pkg/core"
)

const (
	// Dir is the hidden state directory created in the project root.
	Dir = ".infera"

	configFile   = "config.yaml"
	terraformDir = "terraform"
	templatesDir = "templates"
	mainTF       = "main.tf"
	planOutput   = "plan_output.txt"
	lockFile     = ".lock"
	auditFile    = "audit.db"
)

// Store owns the on-disk representation of one project's state. No other
// component writes the configuration file directly.
type Store struct {
	fs   afero.Fs
	root string
}

// NewStore creates a store for the given project root on the OS filesystem.
func NewStore(projectRoot string) *Store {
	return NewStoreWithFs(afero.NewOsFs(), projectRoot)
}

// NewStoreWithFs creates a store on an explicit filesystem. Tests use
// afero.NewMemMapFs.
func NewStoreWithFs(fs afero.Fs, projectRoot string) *Store {
	return &Store{fs: fs, root: projectRoot}
}

// Root returns the project root this store was created for.
func (s *Store) Root() string {
	return s.root
}

// BaseDir returns the absolute .infera directory for this project.
func (s *Store) BaseDir() string {
	return filepath.Join(s.root, Dir)
}

// ConfigPath returns the path of the persisted configuration file.
func (s *Store) ConfigPath() string {
	return filepath.Join(s.BaseDir(), configFile)
}

// TerraformDir returns the directory the agent writes terraform files into.
func (s *Store) TerraformDir() string {
	return filepath.Join(s.BaseDir(), terraformDir)
}

// TemplatesDir returns the directory instruction documents are materialized into.
func (s *Store) TemplatesDir() string {
	return filepath.Join(s.BaseDir(), templatesDir)
}

// PlanOutputPath returns the path of the captured terraform plan output.
func (s *Store) PlanOutputPath() string {
	return filepath.Join(s.TerraformDir(), planOutput)
}

// LockPath returns the path of the cross-process phase lock file.
func (s *Store) LockPath() string {
	return filepath.Join(s.BaseDir(), lockFile)
}

// AuditPath returns the path of the session audit database.
func (s *Store) AuditPath() string {
	return filepath.Join(s.BaseDir(), auditFile)
}

// Load reads the persisted configuration. The second return value is false
// when no configuration has been persisted yet. A file that exists but fails
// schema validation yields a *core.ConfigurationError.
func (s *Store) Load() (*core.ProjectConfiguration, bool, error) {
	data, err := afero.ReadFile(s.fs, s.ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to read %s: %w", s.ConfigPath(), err)
	}

	var cfg core.ProjectConfiguration
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, false, core.NewConfigurationError(
			fmt.Sprintf("invalid configuration file %s", s.ConfigPath()), err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, false, err
	}
	return &cfg, true, nil
}

// Save validates and persists the configuration atomically: serialize to a
// temporary file in the same directory, sync, then rename over the target.
// A crash mid-write never corrupts a previously committed configuration.
func (s *Store) Save(cfg *core.ProjectConfiguration) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := s.fs.MkdirAll(s.BaseDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.BaseDir(), err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to serialize configuration: %w", err)
	}

	target := s.ConfigPath()
	tmp := target + ".tmp"

	f, err := s.fs.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", tmp, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to sync %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("failed to commit %s: %w", target, err)
	}
	return nil
}

// ConfigExists reports whether a configuration has been persisted.
func (s *Store) ConfigExists() bool {
	ok, err := afero.Exists(s.fs, s.ConfigPath())
	return err == nil && ok
}

// TerraformGenerated reports whether the primary generated terraform file
// exists. The orchestrator never parses its contents.
func (s *Store) TerraformGenerated() bool {
	ok, err := afero.Exists(s.fs, filepath.Join(s.TerraformDir(), mainTF))
	return err == nil && ok
}

// ProjectState infers the lifecycle position from on-disk markers.
func (s *Store) ProjectState() core.ProjectState {
	switch {
	case s.TerraformGenerated():
		return core.StatePlanned
	case s.ConfigExists():
		return core.StateConfigured
	default:
		return core.StateUninitialized
	}
}

// EnsureTerraformDir creates the terraform output directory for the agent.
func (s *Store) EnsureTerraformDir() error {
	if err := s.fs.MkdirAll(s.TerraformDir(), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", s.TerraformDir(), err)
	}
	return nil
}

// WriteTemplate materializes one instruction document under the templates
// directory so the agent can read it by path. Existing files are left alone;
// the documents ship with the binary and are not user state.
func (s *Store) WriteTemplate(relPath string, content []byte) error {
	target := filepath.Join(s.TemplatesDir(), relPath)
	if ok, _ := afero.Exists(s.fs, target); ok {
		return nil
	}
	if err := s.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(target), err)
	}
	if err := afero.WriteFile(s.fs, target, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	return nil
}
