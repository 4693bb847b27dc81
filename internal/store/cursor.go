package store

import (
	"database/sql"
	"fmt"
)

// GetTranscriptCursor returns the persisted line number for a session's
// transcript cursor, or 0 if the session has never been scanned.
func GetTranscriptCursor(q Querier, sessionID string) (int64, error) {
	var line int64
	err := q.QueryRow(`SELECT line_number FROM transcript_cursors WHERE session_id = ?`, sessionID).Scan(&line)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get transcript cursor: %w", err)
	}
	return line, nil
}

// SetTranscriptCursor persists the line number one past the last processed
// transcript line, per spec §3 ("advanced monotonically by S3").
func SetTranscriptCursor(q Querier, sessionID string, lineNumber int64) error {
	_, err := q.Exec(
		`INSERT INTO transcript_cursors (session_id, line_number) VALUES (?, ?)
		 ON CONFLICT (session_id) DO UPDATE SET line_number = excluded.line_number`,
		sessionID, lineNumber,
	)
	if err != nil {
		return fmt.Errorf("set transcript cursor: %w", err)
	}
	return nil
}
