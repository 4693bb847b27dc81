package store

import (
	"fmt"

	"github.com/nmemsh/nmem/internal/models"
)

// localActivityPoolCap bounds how many raw rows LocalProjectActivity pulls
// before contextgen groups/truncates them to its local-row limit.
const localActivityPoolCap = 200

// LocalProjectActivity returns project's observations that are pinned, or a
// file_edit within fileEditWindow seconds of now, or a git_commit/git_push
// within gitWindow seconds of now — pinned first, then timestamp desc, per
// spec §4.S9 section 4.
func LocalProjectActivity(q Querier, project string, now, fileEditWindow, gitWindow int64) ([]models.Observation, error) {
	rows, err := q.Query(
		`SELECT `+ObservationColumns("o")+` FROM observations o
		 JOIN sessions s ON s.id = o.session_id
		 WHERE s.project = ? AND (
		   o.is_pinned = 1
		   OR (o.obs_type = 'file_edit' AND o.timestamp >= ?)
		   OR (o.obs_type IN ('git_commit', 'git_push') AND o.timestamp >= ?)
		 )
		 ORDER BY o.is_pinned DESC, o.timestamp DESC
		 LIMIT ?`,
		project, now-fileEditWindow, now-gitWindow, localActivityPoolCap,
	)
	if err != nil {
		return nil, fmt.Errorf("local project activity: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Observation
	for rows.Next() {
		o, err := ScanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// OtherProjectsPinned returns up to limit pinned observations from projects
// other than project, most recent first, per spec §4.S9 section 5.
func OtherProjectsPinned(q Querier, project string, limit int) ([]models.Observation, error) {
	rows, err := q.Query(
		`SELECT `+ObservationColumns("o")+` FROM observations o
		 JOIN sessions s ON s.id = o.session_id
		 WHERE s.project != ? AND o.is_pinned = 1
		 ORDER BY o.timestamp DESC LIMIT ?`,
		project, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("other projects pinned: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []models.Observation
	for rows.Next() {
		o, err := ScanObservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
