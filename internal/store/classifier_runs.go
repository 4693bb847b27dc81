package store

import "fmt"

// RegisterClassifierRun records a classifier_run row on first use of a
// (name, model_hash) pair, returning its id; a repeat call with the same
// pair reuses the existing id, per spec §4.S4.
func RegisterClassifierRun(q Querier, name, modelHash string, createdAt int64) (int64, error) {
	_, err := q.Exec(
		`INSERT INTO classifier_runs (created_at, name, model_hash) VALUES (?, ?, ?)
		 ON CONFLICT (name, model_hash) DO NOTHING`,
		createdAt, name, modelHash,
	)
	if err != nil {
		return 0, fmt.Errorf("register classifier run: %w", err)
	}

	var id int64
	err = q.QueryRow(
		`SELECT id FROM classifier_runs WHERE name = ? AND model_hash = ?`,
		name, modelHash,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("lookup classifier run id: %w", err)
	}
	return id, nil
}
