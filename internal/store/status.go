package store

import "database/sql"

// StatusCounts summarizes table sizes for the status command, mirroring the
// teacher's GetStatusCounts shape.
type StatusCounts struct {
	Sessions     int64 `json:"sessions"`
	Observations int64 `json:"observations"`
	Prompts      int64 `json:"prompts"`
	Episodes     int64 `json:"episodes"`
	PinnedObs    int64 `json:"pinned_observations"`
}

// GetStatusCounts reports row counts across the core tables for the status
// command's at-a-glance summary.
func GetStatusCounts(db *sql.DB) (*StatusCounts, error) {
	var c StatusCounts
	for table, dest := range map[string]*int64{
		"sessions":     &c.Sessions,
		"observations": &c.Observations,
		"prompts":      &c.Prompts,
		"work_units":   &c.Episodes,
	} {
		if err := db.QueryRow("SELECT COUNT(*) FROM " + table).Scan(dest); err != nil {
			return nil, err
		}
	}
	if err := db.QueryRow("SELECT COUNT(*) FROM observations WHERE is_pinned = 1").Scan(&c.PinnedObs); err != nil {
		return nil, err
	}
	return &c, nil
}
