package classify

import (
	"database/sql"
	"fmt"

	"github.com/nmemsh/nmem/internal/models"
	"github.com/nmemsh/nmem/internal/store"
)

// dimensionColumns maps a dimension name to its observations label column
// and run-id column. Phase is the odd one out: its provenance column is
// named classifier_run_id rather than phase_run_id, per spec §3's data
// model.
var dimensionColumns = map[string]struct {
	label string
	runID string
}{
	models.DimensionPhase:   {label: "phase", runID: "classifier_run_id"},
	models.DimensionScope:   {label: "scope", runID: "scope_run_id"},
	models.DimensionLocus:   {label: "locus", runID: "locus_run_id"},
	models.DimensionNovelty: {label: "novelty", runID: "novelty_run_id"},
}

// defaultBackfillChunkSize bounds how many rows one backfill transaction
// touches, keeping the writer lock window short per spec §5.
const defaultBackfillChunkSize = 200

// Backfill classifies observations whose dimension column is still NULL, in
// chunks inside a transaction, updating only (label, run_id) per row — per
// spec §4.S4 ("must not touch other columns"). Returns the number of rows
// updated.
func Backfill(db *sql.DB, dimension string, now int64) (int, error) {
	cols, ok := dimensionColumns[dimension]
	if !ok {
		return 0, fmt.Errorf("backfill: unknown dimension %q", dimension)
	}

	total := 0
	for {
		n, err := backfillChunk(db, dimension, cols.label, cols.runID, now)
		if err != nil {
			return total, err
		}
		total += n
		if n < defaultBackfillChunkSize {
			return total, nil
		}
	}
}

func backfillChunk(db *sql.DB, dimension, labelCol, runIDCol string, now int64) (int, error) {
	type row struct {
		id      int64
		content string
	}

	var rows []row
	err := store.Transact(db, func(tx *sql.Tx) error {
		q := fmt.Sprintf(
			`SELECT id, content FROM observations WHERE %s IS NULL ORDER BY id LIMIT ?`,
			labelCol,
		)
		sqlRows, err := tx.Query(q, defaultBackfillChunkSize)
		if err != nil {
			return fmt.Errorf("select backfill candidates: %w", err)
		}
		defer func() { _ = sqlRows.Close() }()

		for sqlRows.Next() {
			var r row
			if err := sqlRows.Scan(&r.id, &r.content); err != nil {
				return fmt.Errorf("scan backfill candidate: %w", err)
			}
			rows = append(rows, r)
		}
		return sqlRows.Err()
	})
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	err = store.Transact(db, func(tx *sql.Tx) error {
		for _, r := range rows {
			label, err := Classify(tx, dimension, r.content, now)
			if err != nil {
				return err
			}
			updateSQL := fmt.Sprintf(
				`UPDATE observations SET %s = ?, %s = ? WHERE id = ?`,
				labelCol, runIDCol,
			)
			if _, err := tx.Exec(updateSQL, label.Value, label.RunID, r.id); err != nil {
				return fmt.Errorf("update backfilled observation %d: %w", r.id, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}
