package store

import "fmt"

// EnsureSession inserts a session row if one doesn't already exist for id,
// per spec §4.S5's idempotent "ensure-session" step. project is only used
// on first insert; an existing session's project is never overwritten.
func EnsureSession(q Querier, id, project string, startedAt int64) error {
	_, err := q.Exec(
		`INSERT INTO sessions (id, project, started_at) VALUES (?, ?, ?)
		 ON CONFLICT (id) DO NOTHING`,
		id, project, startedAt,
	)
	if err != nil {
		return fmt.Errorf("ensure session: %w", err)
	}
	return nil
}

// SessionExists reports whether a session row already exists for id.
func SessionExists(q Querier, id string) (bool, error) {
	var exists int
	err := q.QueryRow(`SELECT 1 FROM sessions WHERE id = ?`, id).Scan(&exists)
	if err == nil {
		return true, nil
	}
	if err.Error() == "sql: no rows in result set" {
		return false, nil
	}
	return false, fmt.Errorf("check session exists: %w", err)
}

// EndSession records a session's end timestamp and final signature, per spec
// §4.S5's Stop handler.
func EndSession(q Querier, id string, endedAt int64, signature string) error {
	_, err := q.Exec(
		`UPDATE sessions SET ended_at = ?, signature = ? WHERE id = ?`,
		endedAt, signature, id,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	return nil
}

// SetSessionSummary stores a session's summary JSON, set once by S6/S7.
func SetSessionSummary(q Querier, id, summary string) error {
	_, err := q.Exec(`UPDATE sessions SET summary = ? WHERE id = ?`, summary, id)
	if err != nil {
		return fmt.Errorf("set session summary: %w", err)
	}
	return nil
}
