package store

import (
	"fmt"

	"github.com/nmemsh/nmem/internal/models"
)

// UserPrompts returns a session's user prompts in id order, the sequence S6
// segments into episodes.
func UserPrompts(q Querier, sessionID string) ([]models.Prompt, error) {
	rows, err := q.Query(
		`SELECT id, session_id, timestamp, source, content FROM prompts
		 WHERE session_id = ? AND source = 'user' ORDER BY id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("user prompts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Prompt
	for rows.Next() {
		var p models.Prompt
		var ts int64
		if err := rows.Scan(&p.ID, &p.SessionID, &ts, &p.Source, &p.Content); err != nil {
			return nil, err
		}
		p.Timestamp = unixToTime(ts)
		out = append(out, p)
	}
	return out, rows.Err()
}

// PromptByID loads a single prompt row, used by S6/S9 to render a preview.
func PromptByID(q Querier, id int64) (models.Prompt, error) {
	var p models.Prompt
	var ts int64
	err := q.QueryRow(
		`SELECT id, session_id, timestamp, source, content FROM prompts WHERE id = ?`, id,
	).Scan(&p.ID, &p.SessionID, &ts, &p.Source, &p.Content)
	if err != nil {
		return models.Prompt{}, fmt.Errorf("prompt by id: %w", err)
	}
	p.Timestamp = unixToTime(ts)
	return p, nil
}

// AgentPromptsInRange returns a session's agent ("thinking") prompts whose id
// falls within [first, last], in id order, used by S6's narrative payload.
func AgentPromptsInRange(q Querier, sessionID string, first, last int64) ([]models.Prompt, error) {
	rows, err := q.Query(
		`SELECT id, session_id, timestamp, source, content FROM prompts
		 WHERE session_id = ? AND source = 'agent' AND id BETWEEN ? AND ?
		 ORDER BY id`,
		sessionID, first, last,
	)
	if err != nil {
		return nil, fmt.Errorf("agent prompts in range: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Prompt
	for rows.Next() {
		var p models.Prompt
		var ts int64
		if err := rows.Scan(&p.ID, &p.SessionID, &ts, &p.Source, &p.Content); err != nil {
			return nil, err
		}
		p.Timestamp = unixToTime(ts)
		out = append(out, p)
	}
	return out, rows.Err()
}
