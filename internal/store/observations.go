package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nmemsh/nmem/internal/models"
)

// unixToTime converts a stored unix-seconds column into time.Time, per
// spec §9 ("all timestamps are integer seconds since the UNIX epoch").
func unixToTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

// InsertObservationParams carries every observation column the ingest
// coordinator can populate at insert time (spec §4.S5). Label columns are
// optional: a nil dimension pointer leaves the column NULL, per spec §4.S4's
// "classifier absence silently contributes NULL" failure mode.
type InsertObservationParams struct {
	SessionID    string
	PromptID     *int64
	Timestamp    int64
	ObsType      string
	SourceEvent  string
	ToolName     string
	FilePath     string
	Content      string
	Metadata     string
	Phase        *string
	PhaseRunID   *int64
	Scope        *string
	ScopeRunID   *int64
	Locus        *string
	LocusRunID   *int64
	Novelty      *string
	NoveltyRunID *int64
}

// InsertObservation records an immutable observation row and returns its id.
func InsertObservation(q Querier, p InsertObservationParams) (int64, error) {
	res, err := q.Exec(
		`INSERT INTO observations (
			session_id, prompt_id, timestamp, obs_type, source_event, tool_name,
			file_path, content, metadata,
			phase, classifier_run_id, scope, scope_run_id, locus, locus_run_id, novelty, novelty_run_id
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.SessionID, nullInt64(p.PromptID), p.Timestamp, p.ObsType, p.SourceEvent, nullString(p.ToolName),
		nullString(p.FilePath), p.Content, nullString(p.Metadata),
		p.Phase, p.PhaseRunID, p.Scope, p.ScopeRunID, p.Locus, p.LocusRunID, p.Novelty, p.NoveltyRunID,
	)
	if err != nil {
		return 0, fmt.Errorf("insert observation: %w", err)
	}
	return res.LastInsertId()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullInt64(v *int64) any {
	if v == nil {
		return nil
	}
	return *v
}

// observationColumnNames is the fixed column list every observation scan
// shares, keeping SELECT and Scan in lockstep.
var observationColumnNames = []string{
	"id", "session_id", "prompt_id", "timestamp", "obs_type", "source_event", "tool_name",
	"file_path", "content", "metadata", "is_pinned",
	"phase", "classifier_run_id", "scope", "scope_run_id", "locus", "locus_run_id", "novelty", "novelty_run_id",
}

var observationColumns = strings.Join(observationColumnNames, ", ")

// ObservationColumns returns the observation SELECT column list, qualified
// with alias (e.g. "o") when the caller joins against other tables. Scan the
// result with ScanObservation to stay in lockstep.
func ObservationColumns(alias string) string {
	if alias == "" {
		return observationColumns
	}
	qualified := make([]string, len(observationColumnNames))
	for i, c := range observationColumnNames {
		qualified[i] = alias + "." + c
	}
	return strings.Join(qualified, ", ")
}

// ScanObservation scans one observationColumns-shaped row into a
// models.Observation. Exported so S8/S9/S11 can compose richer joined
// queries while reusing the same column layout.
func ScanObservation(row interface{ Scan(...any) error }) (models.Observation, error) {
	return scanObservation(row)
}

func scanObservation(row interface{ Scan(...any) error }) (models.Observation, error) {
	var o models.Observation
	var promptID sql.NullInt64
	var ts int64
	var toolName, filePath, metadata sql.NullString
	var phase, scope, locus, novelty sql.NullString
	var classifierRunID, scopeRunID, locusRunID, noveltyRunID sql.NullInt64
	var isPinned int

	err := row.Scan(
		&o.ID, &o.SessionID, &promptID, &ts, &o.ObsType, &o.SourceEvent, &toolName,
		&filePath, &o.Content, &metadata, &isPinned,
		&phase, &classifierRunID, &scope, &scopeRunID, &locus, &locusRunID, &novelty, &noveltyRunID,
	)
	if err != nil {
		return models.Observation{}, err
	}

	o.Timestamp = unixToTime(ts)
	o.IsPinned = isPinned != 0
	if promptID.Valid {
		v := promptID.Int64
		o.PromptID = &v
	}
	o.ToolName = toolName.String
	o.FilePath = filePath.String
	o.Metadata = metadata.String
	if phase.Valid {
		o.Phase = &phase.String
	}
	if classifierRunID.Valid {
		o.ClassifierRunID = &classifierRunID.Int64
	}
	if scope.Valid {
		o.Scope = &scope.String
	}
	if scopeRunID.Valid {
		o.ScopeRunID = &scopeRunID.Int64
	}
	if locus.Valid {
		o.Locus = &locus.String
	}
	if locusRunID.Valid {
		o.LocusRunID = &locusRunID.Int64
	}
	if novelty.Valid {
		o.Novelty = &novelty.String
	}
	if noveltyRunID.Valid {
		o.NoveltyRunID = &noveltyRunID.Int64
	}
	return o, nil
}

// GetObservationByID loads a single observation row.
func GetObservationByID(q Querier, id int64) (models.Observation, error) {
	row := q.QueryRow(`SELECT `+observationColumns+` FROM observations WHERE id = ?`, id)
	return scanObservation(row)
}

// GetObservationsByIDs loads observations for ids, preserving the caller's
// input order, per spec §4.S8 ("order preserved as input"). Missing ids are
// silently skipped. ids longer than 50 are truncated to the hard cap.
func GetObservationsByIDs(q Querier, ids []int64) ([]models.Observation, error) {
	const hardCap = 50
	if len(ids) > hardCap {
		ids = ids[:hardCap]
	}
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := `SELECT ` + observationColumns + ` FROM observations WHERE id IN (` + joinPlaceholders(placeholders) + `)`

	rows, err := q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("get observations by ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[int64]models.Observation, len(ids))
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		byID[o.ID] = o
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.Observation, 0, len(ids))
	for _, id := range ids {
		if o, ok := byID[id]; ok {
			out = append(out, o)
		}
	}
	return out, nil
}

func joinPlaceholders(ph []string) string {
	out := ph[0]
	for _, p := range ph[1:] {
		out += "," + p
	}
	return out
}

// ObservationsInPromptRange returns observations attached (via prompt_id) to
// prompts within [firstPromptID, lastPromptID] for sessionID, used by S6 to
// annotate an episode.
func ObservationsInPromptRange(q Querier, sessionID string, firstPromptID, lastPromptID int64) ([]models.Observation, error) {
	rows, err := q.Query(
		`SELECT `+observationColumns+` FROM observations
		 WHERE session_id = ? AND prompt_id BETWEEN ? AND ?
		 ORDER BY id`,
		sessionID, firstPromptID, lastPromptID,
	)
	if err != nil {
		return nil, fmt.Errorf("observations in prompt range: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Observation
	for rows.Next() {
		o, err := scanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// PinObservation sets is_pinned=1 for id.
func PinObservation(q Querier, id int64) error {
	_, err := q.Exec(`UPDATE observations SET is_pinned = 1 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("pin observation: %w", err)
	}
	return nil
}

// UnpinObservation sets is_pinned=0 for id.
func UnpinObservation(q Querier, id int64) error {
	_, err := q.Exec(`UPDATE observations SET is_pinned = 0 WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("unpin observation: %w", err)
	}
	return nil
}

// SessionSignatureCounts computes the (obs_type, count) histogram for a
// session, sorted by count desc, per spec §4.S5's Stop-handler signature.
func SessionSignatureCounts(q Querier, sessionID string) ([]models.ObsTypeCount, error) {
	rows, err := q.Query(
		`SELECT obs_type, COUNT(*) AS n FROM observations WHERE session_id = ?
		 GROUP BY obs_type ORDER BY n DESC, obs_type ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("session signature counts: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.ObsTypeCount
	for rows.Next() {
		var c models.ObsTypeCount
		if err := rows.Scan(&c.ObsType, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
