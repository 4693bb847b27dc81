package retention

import (
	"database/sql"
	"testing"

	"github.com/nmemsh/nmem/internal/app"
	"github.com/nmemsh/nmem/internal/store"
)

func newSweeperTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.InitDBWithPath(":memory:")
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

const day = int64(86400)

func insertObs(t *testing.T, db *sql.DB, sessionID, obsType string, ts int64, pinned bool) int64 {
	t.Helper()
	id, err := store.InsertObservation(db, store.InsertObservationParams{
		SessionID:   sessionID,
		Timestamp:   ts,
		ObsType:     obsType,
		SourceEvent: "PostToolUse",
		Content:     "content",
	})
	if err != nil {
		t.Fatalf("insert observation: %v", err)
	}
	if pinned {
		if err := store.PinObservation(db, id); err != nil {
			t.Fatalf("pin observation: %v", err)
		}
	}
	return id
}

func TestSweep_DeletesExpiredUnpinnedSummarizedSession(t *testing.T) {
	db := newSweeperTestDB(t)
	now := int64(1_000_000)

	sessionID := "s-summarized"
	if err := store.EnsureSession(db, sessionID, "proj", now-30*day); err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	if err := store.SetSessionSummary(db, sessionID, `{"intent":"done"}`); err != nil {
		t.Fatalf("set session summary: %v", err)
	}

	oldID := insertObs(t, db, sessionID, "command", now-30*day, false)
	freshID := insertObs(t, db, sessionID, "command", now-1*day, false)

	cfg := app.RetentionConfig{
		Enabled: true,
		Days:    map[string]int{"command": 7},
	}
	if err := Sweep(db, cfg, now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	var exists int
	_ = db.QueryRow(`SELECT COUNT(*) FROM observations WHERE id = ?`, oldID).Scan(&exists)
	if exists != 0 {
		t.Errorf("expected old observation %d to be swept", oldID)
	}
	_ = db.QueryRow(`SELECT COUNT(*) FROM observations WHERE id = ?`, freshID).Scan(&exists)
	if exists != 1 {
		t.Errorf("expected fresh observation %d to survive sweep", freshID)
	}
}

func TestSweep_SkipsUnsummarizedSession(t *testing.T) {
	db := newSweeperTestDB(t)
	now := int64(1_000_000)

	sessionID := "s-no-summary"
	if err := store.EnsureSession(db, sessionID, "proj", now-30*day); err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	oldID := insertObs(t, db, sessionID, "command", now-30*day, false)

	cfg := app.RetentionConfig{Enabled: true, Days: map[string]int{"command": 7}}
	if err := Sweep(db, cfg, now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	var exists int
	_ = db.QueryRow(`SELECT COUNT(*) FROM observations WHERE id = ?`, oldID).Scan(&exists)
	if exists != 1 {
		t.Errorf("expected unsummarized session's observation to be retained, got exists=%d", exists)
	}
}

func TestSweep_NeverDeletesPinned(t *testing.T) {
	db := newSweeperTestDB(t)
	now := int64(1_000_000)

	sessionID := "s-pinned"
	if err := store.EnsureSession(db, sessionID, "proj", now-30*day); err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	if err := store.SetSessionSummary(db, sessionID, `{"intent":"done"}`); err != nil {
		t.Fatalf("set session summary: %v", err)
	}
	pinnedID := insertObs(t, db, sessionID, "command", now-30*day, true)

	cfg := app.RetentionConfig{Enabled: true, Days: map[string]int{"command": 7}}
	if err := Sweep(db, cfg, now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	var exists int
	_ = db.QueryRow(`SELECT COUNT(*) FROM observations WHERE id = ?`, pinnedID).Scan(&exists)
	if exists != 1 {
		t.Errorf("expected pinned observation to survive sweep")
	}
}

func TestSweep_CleansUpOrphanedSessions(t *testing.T) {
	db := newSweeperTestDB(t)
	now := int64(1_000_000)

	sessionID := "s-empty"
	if err := store.EnsureSession(db, sessionID, "proj", now-30*day); err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	if _, err := store.UpsertAgentPrompt(db, sessionID, now-30*day, "thinking block"); err != nil {
		t.Fatalf("upsert agent prompt: %v", err)
	}
	if err := store.SetSessionSummary(db, sessionID, `{"intent":"done"}`); err != nil {
		t.Fatalf("set session summary: %v", err)
	}
	if _, err := db.Exec(`DELETE FROM prompts WHERE session_id = ?`, sessionID); err != nil {
		t.Fatalf("delete prompts: %v", err)
	}

	cfg := app.RetentionConfig{Enabled: true, Days: map[string]int{}}
	if err := Sweep(db, cfg, now); err != nil {
		t.Fatalf("Sweep: %v", err)
	}

	var exists int
	_ = db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, sessionID).Scan(&exists)
	if exists != 0 {
		t.Errorf("expected session with no observations or prompts to be cleaned up as orphan")
	}
}

func TestDeleteExpiredQuery_IncludesSynthesesExclusionWhenPresent(t *testing.T) {
	withSyntheses := deleteExpiredQuery(true)
	without := deleteExpiredQuery(false)
	if withSyntheses == without {
		t.Errorf("expected syntheses-aware query to differ from the base query")
	}
}
