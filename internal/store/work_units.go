package store

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nmemsh/nmem/internal/models"
)

// InsertWorkUnitParams carries everything S6 computes for one closed episode.
type InsertWorkUnitParams struct {
	SessionID     string
	StartedAt     int64
	EndedAt       int64
	Intent        string
	FirstPromptID int64
	LastPromptID  int64
	HotFiles      []string
	PhaseSig      models.PhaseSignature
	ObsCount      int
}

// InsertWorkUnit records one episode row and returns its id.
func InsertWorkUnit(q Querier, p InsertWorkUnitParams) (int64, error) {
	hotFiles, err := json.Marshal(p.HotFiles)
	if err != nil {
		return 0, fmt.Errorf("marshal hot files: %w", err)
	}
	phaseSig, err := json.Marshal(p.PhaseSig)
	if err != nil {
		return 0, fmt.Errorf("marshal phase signature: %w", err)
	}

	res, err := q.Exec(
		`INSERT INTO work_units (
			session_id, started_at, ended_at, intent, first_prompt_id, last_prompt_id,
			hot_files, phase_signature, obs_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.SessionID, p.StartedAt, p.EndedAt, p.Intent, p.FirstPromptID, p.LastPromptID,
		string(hotFiles), string(phaseSig), p.ObsCount,
	)
	if err != nil {
		return 0, fmt.Errorf("insert work unit: %w", err)
	}
	return res.LastInsertId()
}

// SetWorkUnitSummary stores the narrative JSON returned by S7 for episode id.
func SetWorkUnitSummary(q Querier, id int64, summary string) error {
	_, err := q.Exec(`UPDATE work_units SET summary = ? WHERE id = ?`, summary, id)
	if err != nil {
		return fmt.Errorf("set work unit summary: %w", err)
	}
	return nil
}

const workUnitColumns = `id, session_id, started_at, ended_at, intent, first_prompt_id, last_prompt_id,
	hot_files, phase_signature, obs_count, summary, learned, notes`

func scanWorkUnit(row interface{ Scan(...any) error }) (models.WorkUnit, error) {
	var w models.WorkUnit
	var startedAt int64
	var endedAt sql.NullInt64
	var hotFiles, phaseSig string
	var summary, learned, notes sql.NullString

	err := row.Scan(
		&w.ID, &w.SessionID, &startedAt, &endedAt, &w.Intent, &w.FirstPromptID, &w.LastPromptID,
		&hotFiles, &phaseSig, &w.ObsCount, &summary, &learned, &notes,
	)
	if err != nil {
		return models.WorkUnit{}, err
	}

	w.StartedAt = unixToTime(startedAt)
	if endedAt.Valid {
		t := unixToTime(endedAt.Int64)
		w.EndedAt = &t
	}
	_ = json.Unmarshal([]byte(hotFiles), &w.HotFiles)
	_ = json.Unmarshal([]byte(phaseSig), &w.PhaseSig)
	w.Summary = summary.String
	w.Learned = learned.String
	w.Notes = notes.String
	return w, nil
}

// RecentEpisodes returns up to limit episodes for project with obs_count > 0
// started on or after sinceTS, most recent first, per spec §4.S9.
func RecentEpisodes(q Querier, project string, sinceTS int64, limit int) ([]models.WorkUnit, error) {
	rows, err := q.Query(
		`SELECT `+workUnitColumns+` FROM work_units w
		 JOIN sessions s ON s.id = w.session_id
		 WHERE s.project = ? AND w.started_at >= ? AND w.obs_count > 0
		 ORDER BY w.started_at DESC LIMIT ?`,
		project, sinceTS, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent episodes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.WorkUnit
	for rows.Next() {
		w, err := scanWorkUnit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// RecentEpisodeSummaries returns the n most recent episode summary JSON blobs
// (non-empty) for project, most recent first, used by S9's suggested-tasks
// union.
func RecentEpisodeSummaries(q Querier, project string, n int) ([]string, error) {
	rows, err := q.Query(
		`SELECT w.summary FROM work_units w
		 JOIN sessions s ON s.id = w.session_id
		 WHERE s.project = ? AND w.summary IS NOT NULL AND w.summary != ''
		 ORDER BY w.started_at DESC LIMIT ?`,
		project, n,
	)
	if err != nil {
		return nil, fmt.Errorf("recent episode summaries: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanStrings(rows)
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
