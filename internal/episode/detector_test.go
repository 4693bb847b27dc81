package episode

import (
	"database/sql"
	"testing"

	"github.com/nmemsh/nmem/internal/store"
)

func newEpisodeTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := store.InitDBWithPath(":memory:")
	if err != nil {
		t.Fatalf("init db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedUserPrompts(t *testing.T, db *sql.DB, sessionID string, prompts []string, startTS int64) {
	t.Helper()
	if err := store.EnsureSession(db, sessionID, "proj", startTS); err != nil {
		t.Fatalf("ensure session: %v", err)
	}
	ts := startTS
	for _, p := range prompts {
		if _, err := store.InsertUserPrompt(db, sessionID, ts, p); err != nil {
			t.Fatalf("insert prompt: %v", err)
		}
		ts += 60
	}
}

func TestDetectAndPersist_SegmentsByJaccardDrop(t *testing.T) {
	sessionID := "s-episode-1"
	db := newEpisodeTestDB(t)

	prompts := []string{
		"fix the authentication bug in the login handler",
		"update the authentication test for the login fix",
		"now refactor the database schema migration system",
	}
	seedUserPrompts(t, db, sessionID, prompts, 1000)

	units, err := DetectAndPersist(db, sessionID, 2000)
	if err != nil {
		t.Fatalf("DetectAndPersist: %v", err)
	}
	if len(units) != 2 {
		t.Fatalf("expected 2 episodes, got %d: %+v", len(units), units)
	}
	for i, u := range units {
		if u.FirstPromptID > u.LastPromptID {
			t.Errorf("episode %d: first prompt id %d > last %d", i, u.FirstPromptID, u.LastPromptID)
		}
	}
}

func TestDetectAndPersist_ShortPromptsContinueOpenEpisode(t *testing.T) {
	sessionID := "s-episode-short"
	db := newEpisodeTestDB(t)

	prompts := []string{
		"investigate the flaky retry logic in the http client module",
		"ok",
		"yes continue",
	}
	seedUserPrompts(t, db, sessionID, prompts, 1000)

	units, err := DetectAndPersist(db, sessionID, 2000)
	if err != nil {
		t.Fatalf("DetectAndPersist: %v", err)
	}
	if len(units) != 1 {
		t.Fatalf("expected short follow-up prompts to extend a single episode, got %d", len(units))
	}
	if units[0].ObsCount != 0 {
		t.Errorf("expected 0 observations, got %d", units[0].ObsCount)
	}
}

func TestDetectAndPersist_Stable(t *testing.T) {
	prompts := []string{
		"investigate the flaky retry logic in the http client",
		"fix the retry backoff jitter calculation",
		"write a new test for the schema migration runner",
	}

	run := func(sessionID string) []int64 {
		db := newEpisodeTestDB(t)
		seedUserPrompts(t, db, sessionID, prompts, 1000)
		units, err := DetectAndPersist(db, sessionID, 2000)
		if err != nil {
			t.Fatalf("DetectAndPersist: %v", err)
		}
		bounds := make([]int64, 0, len(units)*2)
		for _, u := range units {
			bounds = append(bounds, u.FirstPromptID, u.LastPromptID)
		}
		return bounds
	}

	first := run("s-episode-stable-a")
	second := run("s-episode-stable-b")

	if len(first) != len(second) {
		t.Fatalf("episode boundary count differs across runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("boundary %d differs: %d vs %d", i, first[i], second[i])
		}
	}
}

func TestJaccard(t *testing.T) {
	a := map[string]struct{}{"fix": {}, "auth": {}, "login": {}}
	b := map[string]struct{}{"fix": {}, "auth": {}}
	got := jaccard(a, b)
	if got < 0.66 || got > 0.67 {
		t.Errorf("jaccard = %v, want ~0.667", got)
	}
	if jaccard(map[string]struct{}{}, map[string]struct{}{}) != 0 {
		t.Errorf("jaccard of two empty sets should be 0")
	}
}

func TestIntentKeywords_FiltersShortWordsAndStopwords(t *testing.T) {
	kw := intentKeywords("Fix the bug in a login handler to do this")
	if _, ok := kw["the"]; ok {
		t.Errorf("stopword 'the' should be filtered")
	}
	if _, ok := kw["fix"]; !ok {
		t.Errorf("expected 'fix' in keywords")
	}
	if _, ok := kw["in"]; ok {
		t.Errorf("short word 'in' should be filtered (<3 chars)")
	}
}
