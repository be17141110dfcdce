package persistence

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Session statuses recorded in the audit database.
const (
	SessionStatusRunning     = "running"
	SessionStatusSuccess     = "success"
	SessionStatusFailure     = "failure"
	SessionStatusInterrupted = "interrupted"
)

// SessionRecord is one row from the sessions table.
type SessionRecord struct {
	ID          string
	Phase       string
	Status      string
	StartedAt   time.Time
	CompletedAt sql.NullTime
}

// BeginSession inserts a new running session for the given phase and
// returns its id.
func (a *AuditDB) BeginSession(phase string) (string, error) {
	id := uuid.New().String()
	_, err := a.db.Exec(
		"INSERT INTO sessions (id, phase, status) VALUES (?, ?, ?)",
		id, phase, SessionStatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("failed to begin session: %w", err)
	}
	a.logger.Debug("session %s started for phase %s", id, phase)
	return id, nil
}

// EndSession marks a session finished with the given status.
func (a *AuditDB) EndSession(sessionID, status string) error {
	res, err := a.db.Exec(
		"UPDATE sessions SET status = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?",
		status, sessionID,
	)
	if err != nil {
		return fmt.Errorf("failed to end session %s: %w", sessionID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %s not found", sessionID)
	}
	return nil
}

// RecordToolCall appends one tool call to a session's audit trail.
func (a *AuditDB) RecordToolCall(sessionID string, seq int, tool, decision, reason string, duration time.Duration, isError bool) error {
	errFlag := 0
	if isError {
		errFlag = 1
	}
	_, err := a.db.Exec(
		"INSERT INTO tool_calls (session_id, seq, tool, decision, reason, duration_ms, is_error) VALUES (?, ?, ?, ?, ?, ?, ?)",
		sessionID, seq, tool, decision, reason, duration.Milliseconds(), errFlag,
	)
	if err != nil {
		return fmt.Errorf("failed to record tool call: %w", err)
	}
	return nil
}

// RecentSessions returns up to limit sessions, newest first.
func (a *AuditDB) RecentSessions(limit int) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := a.db.Query(
		"SELECT id, phase, status, started_at, completed_at FROM sessions ORDER BY started_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var rec SessionRecord
		if err := rows.Scan(&rec.ID, &rec.Phase, &rec.Status, &rec.StartedAt, &rec.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sessions: %w", err)
	}
	return records, nil
}

// ToolCallCount returns the number of tool calls recorded for a session.
func (a *AuditDB) ToolCallCount(sessionID string) (int, error) {
	var n int
	err := a.db.QueryRow("SELECT COUNT(*) FROM tool_calls WHERE session_id = ?", sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count tool calls: %w", err)
	}
	return n, nil
}
