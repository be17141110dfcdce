package state

import (
	"fmt"
	"os"

	"github.com/computer-reinvention/infera/pkg/core"
)

// AcquireLock takes the per-project phase lock. It fails when another
// invocation holds the lock, so at most one phase runs against a project
// root at a time. The returned release function removes the lock file.
func (s *Store) AcquireLock() (release func() error, err error) {
	if err := s.fs.MkdirAll(s.BaseDir(), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", s.BaseDir(), err)
	}

	path := s.LockPath()
	f, err := s.fs.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, core.NewConfigurationError(
			"another infera invocation is running against this project", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		_ = f.Close()
		_ = s.fs.Remove(path)
		return nil, fmt.Errorf("failed to write lock file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = s.fs.Remove(path)
		return nil, fmt.Errorf("failed to close lock file: %w", err)
	}

	fs := s.fs
	return func() error { return fs.Remove(path) }, nil
}
