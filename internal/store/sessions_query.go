package store

import (
	"database/sql"
	"fmt"

	"github.com/nmemsh/nmem/internal/models"
)

func scanSession(row interface{ Scan(...any) error }) (models.Session, error) {
	var s models.Session
	var startedAt int64
	var endedAt sql.NullInt64
	var signature, summary sql.NullString

	err := row.Scan(&s.ID, &s.Project, &startedAt, &endedAt, &signature, &summary)
	if err != nil {
		return models.Session{}, err
	}
	s.StartedAt = unixToTime(startedAt)
	if endedAt.Valid {
		t := unixToTime(endedAt.Int64)
		s.EndedAt = &t
	}
	s.Signature = signature.String
	s.Summary = summary.String
	return s, nil
}

// GetSession loads a single session row by id.
func GetSession(q Querier, id string) (models.Session, error) {
	row := q.QueryRow(`SELECT id, project, started_at, ended_at, signature, summary FROM sessions WHERE id = ?`, id)
	return scanSession(row)
}

// SessionsForSummaryDigest returns up to limit sessions for project with a
// nonempty summary that either predate episodeWindowStart or have no
// episodes at all, most recently started first — per spec §4.S9 section 2.
func SessionsForSummaryDigest(q Querier, project string, episodeWindowStart int64, limit int) ([]models.Session, error) {
	rows, err := q.Query(
		`SELECT s.id, s.project, s.started_at, s.ended_at, s.signature, s.summary
		 FROM sessions s
		 WHERE s.project = ?
		   AND s.summary IS NOT NULL AND s.summary != ''
		   AND (s.started_at < ? OR NOT EXISTS (
		       SELECT 1 FROM work_units w WHERE w.session_id = s.id
		   ))
		 ORDER BY s.started_at DESC
		 LIMIT ?`,
		project, episodeWindowStart, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sessions for summary digest: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// MostRecentSessionSummary returns the single most recent session summary
// JSON blob for project, or "" if none exists.
func MostRecentSessionSummary(q Querier, project string) (string, error) {
	var summary sql.NullString
	err := q.QueryRow(
		`SELECT summary FROM sessions WHERE project = ? AND summary IS NOT NULL AND summary != ''
		 ORDER BY started_at DESC LIMIT 1`,
		project,
	).Scan(&summary)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("most recent session summary: %w", err)
	}
	return summary.String, nil
}

// SessionSummariesForProject returns up to limit sessions for project with a
// nonempty summary, most recently started first, for the query server's
// session_summaries operation (spec §4.S12).
func SessionSummariesForProject(q Querier, project string, limit int) ([]models.Session, error) {
	rows, err := q.Query(
		`SELECT id, project, started_at, ended_at, signature, summary FROM sessions
		 WHERE project = ? AND summary IS NOT NULL AND summary != ''
		 ORDER BY started_at DESC LIMIT ?`,
		project, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("session summaries for project: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// UnsummarizedSessionExists reports whether session id has ended but has no
// summary yet, per spec §4.S10's "sessions whose summary has not been
// written are not swept".
func SessionHasSummary(q Querier, id string) (bool, error) {
	var summary sql.NullString
	err := q.QueryRow(`SELECT summary FROM sessions WHERE id = ?`, id).Scan(&summary)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("session has summary: %w", err)
	}
	return summary.Valid && summary.String != "", nil
}
