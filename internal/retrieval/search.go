package retrieval

import (
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nmemsh/nmem/internal/models"
	"github.com/nmemsh/nmem/internal/store"
)

// candidatePoolCap bounds how many rank-ordered FTS hits (or how many recent
// rows) are pulled into Go before blended scoring/dedup, per spec §4.S8.
const candidatePoolCap = 500

// SearchParams configures the S8 search surface.
type SearchParams struct {
	Query   string
	Project string
	ObsType string
	Limit   int
	Offset  int
	OrderBy string // "relevance" or "blended"; defaults to "relevance"
}

// Result pairs an observation with its computed ranking score.
type Result struct {
	Observation models.Observation
	Score       float64
}

// rowPlusRank adapts a *sql.Rows so ScanObservation can populate a struct
// while an extra trailing rank column is captured alongside it.
type rowPlusRank struct {
	rows *sql.Rows
	rank *float64
}

func (r rowPlusRank) Scan(dest ...any) error {
	return r.rows.Scan(append(dest, r.rank)...)
}

// isFTSSyntaxError reports whether err originates from FTS5's MATCH query
// parser rejecting malformed syntax, per spec §4.S8's failure taxonomy.
func isFTSSyntaxError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "fts5")
}

// Search implements S8's relevance and blended ranking modes over
// observations_fts.
func Search(q store.Querier, p SearchParams, now time.Time) ([]Result, error) {
	orderBy := p.OrderBy
	if orderBy == "" {
		orderBy = "relevance"
	}
	if orderBy != "relevance" && orderBy != "blended" {
		return nil, models.Parameter(fmt.Sprintf("invalid order_by %q: want relevance or blended", p.OrderBy), nil)
	}
	limit := p.Limit
	if limit <= 0 {
		limit = 20
	}

	conds := []string{"f.content MATCH ?"}
	args := []any{p.Query}
	from := "observations_fts f JOIN observations o ON o.id = f.rowid"
	if p.Project != "" {
		from += " JOIN sessions s ON s.id = o.session_id"
		conds = append(conds, "s.project = ?")
		args = append(args, p.Project)
	}
	if p.ObsType != "" {
		conds = append(conds, "o.obs_type = ?")
		args = append(args, p.ObsType)
	}
	where := strings.Join(conds, " AND ")

	if orderBy == "relevance" {
		query := "SELECT " + store.ObservationColumns("o") + ", f.rank FROM " + from +
			" WHERE " + where + " ORDER BY f.rank LIMIT ? OFFSET ?"
		rows, err := q.Query(query, append(append([]any{}, args...), limit, p.Offset)...)
		if err != nil {
			return nil, classifySearchError(err)
		}
		defer func() { _ = rows.Close() }()

		var out []Result
		for rows.Next() {
			var rank float64
			o, err := store.ScanObservation(rowPlusRank{rows: rows, rank: &rank})
			if err != nil {
				return nil, models.Storage("scan search result", err)
			}
			out = append(out, Result{Observation: o, Score: rank})
		}
		return out, wrapRowsErr(rows)
	}

	// Blended mode: pull a rank-ordered candidate pool, rescale, blend, sort
	// in Go, then paginate — the linear blend can't be expressed in one SQL
	// pass against FTS5's opaque rank column.
	query := "SELECT " + store.ObservationColumns("o") + ", f.rank FROM " + from +
		" WHERE " + where + " ORDER BY f.rank LIMIT ?"
	rows, err := q.Query(query, append(append([]any{}, args...), candidatePoolCap)...)
	if err != nil {
		return nil, classifySearchError(err)
	}
	defer func() { _ = rows.Close() }()

	type candidate struct {
		obs  models.Observation
		rank float64
	}
	var candidates []candidate
	for rows.Next() {
		var rank float64
		o, err := store.ScanObservation(rowPlusRank{rows: rows, rank: &rank})
		if err != nil {
			return nil, models.Storage("scan search result", err)
		}
		candidates = append(candidates, candidate{obs: o, rank: rank})
	}
	if err := wrapRowsErr(rows); err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	minRank, maxRank := candidates[0].rank, candidates[0].rank
	for _, c := range candidates[1:] {
		if c.rank < minRank {
			minRank = c.rank
		}
		if c.rank > maxRank {
			maxRank = c.rank
		}
	}

	out := make([]Result, len(candidates))
	for i, c := range candidates {
		bm25Norm := NormalizeRank(c.rank, minRank, maxRank)
		ageDays := now.Sub(c.obs.Timestamp).Hours() / 24
		out[i] = Result{Observation: c.obs, Score: BlendedScore(bm25Norm, ageDays, c.obs.ObsType)}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if p.Offset >= len(out) {
		return nil, nil
	}
	end := p.Offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[p.Offset:end], nil
}

func classifySearchError(err error) error {
	if isFTSSyntaxError(err) {
		return models.Parameter("malformed search query", err)
	}
	return models.Storage("search query failed", err)
}

func wrapRowsErr(rows *sql.Rows) error {
	if err := rows.Err(); err != nil {
		return models.Storage("iterate search results", err)
	}
	return nil
}

// GetObservations implements the get_observations surface: bulk id lookup,
// hard-capped at 50, preserving input order, per spec §4.S8.
func GetObservations(q store.Querier, ids []int64) ([]models.Observation, error) {
	out, err := store.GetObservationsByIDs(q, ids)
	if err != nil {
		return nil, models.Storage("get observations", err)
	}
	return out, nil
}

// Timeline implements the timeline surface: an anchor observation plus up to
// `before` preceding and `after` following observations from the same
// session, with the "before" slice sorted ascending.
func Timeline(q store.Querier, anchorID int64, before, after int) ([]models.Observation, error) {
	anchor, err := store.GetObservationByID(q, anchorID)
	if err == sql.ErrNoRows {
		return nil, models.Parameter("missing anchor observation", err)
	}
	if err != nil {
		return nil, models.Storage("load anchor observation", err)
	}

	beforeRows, err := q.Query(
		"SELECT "+store.ObservationColumns("o")+" FROM observations o WHERE o.session_id = ? AND o.id < ? ORDER BY o.id DESC LIMIT ?",
		anchor.SessionID, anchorID, before,
	)
	if err != nil {
		return nil, models.Storage("timeline before window", err)
	}
	var beforeObs []models.Observation
	for beforeRows.Next() {
		o, err := store.ScanObservation(beforeRows)
		if err != nil {
			_ = beforeRows.Close()
			return nil, models.Storage("scan timeline row", err)
		}
		beforeObs = append(beforeObs, o)
	}
	if err := beforeRows.Err(); err != nil {
		_ = beforeRows.Close()
		return nil, models.Storage("iterate timeline before window", err)
	}
	_ = beforeRows.Close()
	for i, j := 0, len(beforeObs)-1; i < j; i, j = i+1, j-1 {
		beforeObs[i], beforeObs[j] = beforeObs[j], beforeObs[i]
	}

	afterRows, err := q.Query(
		"SELECT "+store.ObservationColumns("o")+" FROM observations o WHERE o.session_id = ? AND o.id > ? ORDER BY o.id ASC LIMIT ?",
		anchor.SessionID, anchorID, after,
	)
	if err != nil {
		return nil, models.Storage("timeline after window", err)
	}
	defer func() { _ = afterRows.Close() }()
	var afterObs []models.Observation
	for afterRows.Next() {
		o, err := store.ScanObservation(afterRows)
		if err != nil {
			return nil, models.Storage("scan timeline row", err)
		}
		afterObs = append(afterObs, o)
	}
	if err := afterRows.Err(); err != nil {
		return nil, models.Storage("iterate timeline after window", err)
	}

	out := make([]models.Observation, 0, len(beforeObs)+1+len(afterObs))
	out = append(out, beforeObs...)
	out = append(out, anchor)
	out = append(out, afterObs...)
	return out, nil
}

// RecentContext implements the recent_context surface: a recency/type/
// project-match blend over the most recent observations, deduplicated by
// file_path (observations with no file_path dedupe by id instead).
func RecentContext(q store.Querier, project string, limit int, now time.Time) ([]Result, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := q.Query(
		`SELECT `+store.ObservationColumns("o")+`, s.project FROM observations o
		 JOIN sessions s ON s.id = o.session_id
		 ORDER BY o.timestamp DESC LIMIT ?`,
		candidatePoolCap,
	)
	if err != nil {
		return nil, models.Storage("recent context query", err)
	}
	defer func() { _ = rows.Close() }()

	type candidate struct {
		obs      models.Observation
		project  string
		score    float64
	}
	byKey := make(map[string]candidate)
	var order []string
	for rows.Next() {
		var rowProject string
		o, err := store.ScanObservation(rowPlusString{rows: rows, extra: &rowProject})
		if err != nil {
			return nil, models.Storage("scan recent context row", err)
		}

		ageDays := now.Sub(o.Timestamp).Hours() / 24
		recency := Recency(ageDays)
		typeW := TypeWeight(o.ObsType)
		var score float64
		if project != "" {
			projectMatch := 0.3
			if rowProject == project {
				projectMatch = 1.0
			}
			score = 0.5*recency + 0.3*typeW + 0.2*projectMatch
		} else {
			score = 0.6*recency + 0.4*typeW
		}

		key := o.FilePath
		if key == "" {
			key = fmt.Sprintf("id:%d", o.ID)
		}
		if existing, ok := byKey[key]; !ok || score > existing.score {
			if !ok {
				order = append(order, key)
			}
			byKey[key] = candidate{obs: o, project: rowProject, score: score}
		}
	}
	if err := wrapRowsErr(rows); err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(order))
	for _, key := range order {
		c := byKey[key]
		out = append(out, Result{Observation: c.obs, Score: c.score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

// rowPlusString adapts a *sql.Rows so ScanObservation can populate a struct
// while an extra trailing string column (here, the joined session's
// project) is captured alongside it.
type rowPlusString struct {
	rows  *sql.Rows
	extra *string
}

func (r rowPlusString) Scan(dest ...any) error {
	return r.rows.Scan(append(dest, r.extra)...)
}
