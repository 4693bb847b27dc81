// Package retention sweeps expired observations and orphaned rows per spec
// §4.S10, triggered opportunistically from the ingest coordinator's Stop
// handler.
package retention

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/nmemsh/nmem/internal/app"
	"github.com/nmemsh/nmem/internal/store"
)

// fullVacuumRebuildThreshold is the deleted-row count past which the FTS
// index is rebuilt rather than left to its incremental trigger maintenance.
const fullVacuumRebuildThreshold = 1000

// opportunisticObsAgeHours/opportunisticObsCountThreshold gate the Stop-time
// trigger per spec §4.S10: "≥ 100 observations older than 24h".
const (
	opportunisticObsAgeHours       = 24
	opportunisticObsCountThreshold = 100
)

// MaybeSweep runs Sweep when retention is enabled and either the DB+WAL size
// exceeds the configured cap or enough stale observations have piled up.
// Best-effort: failures are logged, never propagated to the caller.
func MaybeSweep(db *sql.DB, project string, now int64) {
	_ = project // retention sweeps the whole store, not per-project; kept for call-site symmetry with other S5 post-commit steps
	cfg, err := app.LoadSettings()
	if err != nil || !cfg.Retention.Enabled {
		return
	}

	trigger, err := shouldSweep(db, cfg.Retention, now)
	if err != nil {
		slog.Default().Warn("retention: trigger check failed", "error", err)
		return
	}
	if !trigger {
		return
	}
	if err := Sweep(db, cfg.Retention, now); err != nil {
		slog.Default().Warn("retention sweep failed", "error", err)
	}
}

func shouldSweep(db *sql.DB, cfg app.RetentionConfig, now int64) (bool, error) {
	if cfg.MaxDBSizeMB != nil {
		sizeMB, err := dbSizeMB(db)
		if err != nil {
			return false, err
		}
		if sizeMB >= float64(*cfg.MaxDBSizeMB) {
			return true, nil
		}
	}

	var count int
	err := db.QueryRow(
		`SELECT COUNT(*) FROM observations WHERE timestamp < ?`,
		now-opportunisticObsAgeHours*3600,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count stale observations: %w", err)
	}
	return count >= opportunisticObsCountThreshold, nil
}

func dbSizeMB(db *sql.DB) (float64, error) {
	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0, fmt.Errorf("page_count: %w", err)
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0, fmt.Errorf("page_size: %w", err)
	}
	return float64(pageCount*pageSize) / (1024 * 1024), nil
}

// Sweep deletes expired, unpinned, summarized-session observations per
// cfg.Days, then cleans up orphaned cursor/prompt/session rows, then runs
// incremental vacuum, an FTS rebuild if warranted, and a WAL truncate
// checkpoint, per spec §4.S10.
func Sweep(db *sql.DB, cfg app.RetentionConfig, now int64) error {
	var deleted int64

	err := store.Transact(db, func(tx *sql.Tx) error {
		hasSyntheses, err := tableExists(tx, "syntheses")
		if err != nil {
			return err
		}
		query := deleteExpiredQuery(hasSyntheses)

		for obsType, days := range cfg.Days {
			cutoff := now - int64(days)*86400
			res, err := tx.Exec(query, obsType, cutoff)
			if err != nil {
				return fmt.Errorf("sweep %s: %w", obsType, err)
			}
			n, _ := res.RowsAffected()
			deleted += n
		}

		n, err := cleanupOrphans(tx)
		if err != nil {
			return err
		}
		deleted += n
		return nil
	})
	if err != nil {
		return err
	}

	ctx := context.Background()
	if _, err := db.ExecContext(ctx, "PRAGMA incremental_vacuum"); err != nil {
		slog.Default().Warn("retention: incremental vacuum failed", "error", err)
	}
	if deleted > fullVacuumRebuildThreshold {
		if _, err := db.ExecContext(ctx, `INSERT INTO observations_fts(observations_fts) VALUES ('rebuild')`); err != nil {
			slog.Default().Warn("retention: fts rebuild failed", "error", err)
		}
	}
	if err := store.CheckpointWAL(ctx, db, "TRUNCATE"); err != nil {
		slog.Default().Warn("retention: wal checkpoint failed", "error", err)
	}
	return nil
}

// deleteExpiredQuery builds the per-type sweep DELETE, joining against an
// optional "syntheses" table when present: the schema ships no such table,
// but an external synthesis-tracking extension may add one, and this query
// excludes its referenced observations without requiring a migration here.
func deleteExpiredQuery(hasSyntheses bool) string {
	base := `DELETE FROM observations
		WHERE obs_type = ? AND timestamp < ? AND is_pinned = 0
		  AND session_id IN (SELECT id FROM sessions WHERE summary IS NOT NULL AND summary != '')`
	if hasSyntheses {
		base += ` AND id NOT IN (SELECT observation_id FROM syntheses)`
	}
	return base
}

func tableExists(q store.Querier, name string) (bool, error) {
	var n int
	err := q.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check table exists: %w", err)
	}
	return n > 0, nil
}

func cleanupOrphans(tx *sql.Tx) (int64, error) {
	var total int64

	for _, q := range []string{
		`DELETE FROM transcript_cursors WHERE session_id NOT IN (SELECT id FROM sessions)`,
		`DELETE FROM prompts WHERE session_id NOT IN (SELECT id FROM sessions)`,
		`DELETE FROM sessions WHERE
		   id NOT IN (SELECT DISTINCT session_id FROM observations)
		   AND id NOT IN (SELECT DISTINCT session_id FROM prompts)`,
	} {
		res, err := tx.Exec(q)
		if err != nil {
			return total, fmt.Errorf("cleanup orphans: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}
