// Package persistence provides SQLite-based audit storage for agent sessions.
package persistence

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/computer-reinvention/infera/pkg/logx"
)

// AuditDB records agent sessions and their tool calls. One instance per
// project; the orchestrator owns its lifecycle.
type AuditDB struct {
	db     *sql.DB
	logger *logx.Logger
}

// Open opens (creating if needed) the audit database at dbPath with WAL
// journaling and the current schema.
func Open(dbPath string) (*AuditDB, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(
		"file:%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)",
		dbPath,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to open audit database: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping audit database: %w", err)
	}

	if err := initializeSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize audit schema: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return &AuditDB{
		db:     db,
		logger: logx.NewLogger("audit"),
	}, nil
}

// Close closes the database connection.
func (a *AuditDB) Close() error {
	if a == nil || a.db == nil {
		return nil
	}
	if err := a.db.Close(); err != nil {
		return fmt.Errorf("failed to close audit database: %w", err)
	}
	return nil
}
