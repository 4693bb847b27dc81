package store

import (
	"database/sql"
	"fmt"

	"github.com/nmemsh/nmem/internal/models"
)

// InsertUserPrompt records an immutable user prompt and returns its id.
func InsertUserPrompt(q Querier, sessionID string, timestamp int64, content string) (int64, error) {
	res, err := q.Exec(
		`INSERT INTO prompts (session_id, timestamp, source, content) VALUES (?, ?, ?, ?)`,
		sessionID, timestamp, models.PromptSourceUser, content,
	)
	if err != nil {
		return 0, fmt.Errorf("insert user prompt: %w", err)
	}
	return res.LastInsertId()
}

// UpsertAgentPrompt inserts an agent ("thinking") prompt, deduping on
// (session_id, source='agent', content) per spec §4.S3. If an identical row
// already exists, its id is returned instead of inserting a duplicate.
func UpsertAgentPrompt(q Querier, sessionID string, timestamp int64, content string) (int64, error) {
	_, err := q.Exec(
		`INSERT INTO prompts (session_id, timestamp, source, content)
		 VALUES (?, ?, 'agent', ?)
		 ON CONFLICT (session_id, content) WHERE source = 'agent' DO NOTHING`,
		sessionID, timestamp, content,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert agent prompt: %w", err)
	}

	var id int64
	err = q.QueryRow(
		`SELECT id FROM prompts WHERE session_id = ? AND source = 'agent' AND content = ?`,
		sessionID, content,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lookup agent prompt id: %w", err)
	}
	return id, nil
}

// LatestAgentPromptID returns the highest agent-prompt id for a session, or 0
// if the session has no agent prompts yet.
func LatestAgentPromptID(q Querier, sessionID string) (int64, error) {
	var id sql.NullInt64
	err := q.QueryRow(
		`SELECT MAX(id) FROM prompts WHERE session_id = ? AND source = 'agent'`,
		sessionID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("latest agent prompt id: %w", err)
	}
	if !id.Valid {
		return 0, nil
	}
	return id.Int64, nil
}

// LatestPromptID returns the highest prompt id for a session across both
// sources, or 0 if the session has no prompts yet. Used by S5 to attach the
// most recently seen prompt to a newly inserted observation.
func LatestPromptID(q Querier, sessionID string) (int64, error) {
	var id sql.NullInt64
	err := q.QueryRow(
		`SELECT MAX(id) FROM prompts WHERE session_id = ?`,
		sessionID,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("latest prompt id: %w", err)
	}
	if !id.Valid {
		return 0, nil
	}
	return id.Int64, nil
}
