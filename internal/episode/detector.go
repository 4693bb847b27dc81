// Package episode segments a session's user prompts into work episodes and
// annotates each with observation aggregates, per spec §4.S6.
package episode

import (
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/nmemsh/nmem/internal/models"
	"github.com/nmemsh/nmem/internal/store"
)

const (
	jaccardThreshold = 0.15
	shortPromptWords = 5
	maxIntentLen     = 120
)

// stopwords mirrors the filter the pattern learner applies to content tokens
// before grouping, reused here for intent-keyword extraction.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "to": {}, "of": {},
	"in": {}, "on": {}, "for": {}, "with": {}, "is": {}, "at": {}, "this": {},
	"that": {}, "it": {}, "be": {}, "are": {}, "was": {}, "were": {}, "i": {},
	"you": {}, "we": {}, "me": {}, "my": {}, "can": {}, "do": {}, "does": {},
}

type openEpisode struct {
	startedAt     time.Time
	endedAt       time.Time
	firstPromptID int64
	lastPromptID  int64
	keywords      map[string]struct{}
}

// DetectAndPersist segments sessionID's user prompts into episodes, persists
// each as a work_unit, and returns the persisted rows. Idempotency is not
// required: per spec §4.S6 this runs once per session at Stop.
func DetectAndPersist(db *sql.DB, sessionID string, now int64) ([]models.WorkUnit, error) {
	prompts, err := store.UserPrompts(db, sessionID)
	if err != nil {
		return nil, err
	}
	if len(prompts) == 0 {
		return nil, nil
	}

	var closed []openEpisode
	var current *openEpisode

	for _, p := range prompts {
		words := strings.Fields(p.Content)
		if len(words) < shortPromptWords {
			if current == nil {
				current = &openEpisode{
					startedAt: p.Timestamp, endedAt: p.Timestamp,
					firstPromptID: p.ID, lastPromptID: p.ID,
					keywords: map[string]struct{}{},
				}
			} else {
				current.lastPromptID = p.ID
				current.endedAt = p.Timestamp
			}
			continue
		}

		kw := intentKeywords(p.Content)
		if current == nil {
			current = &openEpisode{
				startedAt: p.Timestamp, endedAt: p.Timestamp,
				firstPromptID: p.ID, lastPromptID: p.ID,
				keywords: kw,
			}
			continue
		}

		if jaccard(kw, current.keywords) < jaccardThreshold {
			closed = append(closed, *current)
			current = &openEpisode{
				startedAt: p.Timestamp, endedAt: p.Timestamp,
				firstPromptID: p.ID, lastPromptID: p.ID,
				keywords: kw,
			}
			continue
		}

		for k := range kw {
			current.keywords[k] = struct{}{}
		}
		current.lastPromptID = p.ID
		current.endedAt = p.Timestamp
	}
	if current != nil {
		closed = append(closed, *current)
	}

	out := make([]models.WorkUnit, 0, len(closed))
	for _, ep := range closed {
		wu, err := annotateAndPersist(db, sessionID, ep)
		if err != nil {
			return out, err
		}
		out = append(out, wu)
	}
	return out, nil
}

func annotateAndPersist(db *sql.DB, sessionID string, ep openEpisode) (models.WorkUnit, error) {
	obs, err := store.ObservationsInPromptRange(db, sessionID, ep.firstPromptID, ep.lastPromptID)
	if err != nil {
		return models.WorkUnit{}, err
	}

	hotFiles := hotFilesOf(obs)
	sig := phaseSignatureOf(obs)

	intent, err := intentFor(db, ep.firstPromptID)
	if err != nil {
		return models.WorkUnit{}, err
	}

	params := store.InsertWorkUnitParams{
		SessionID:     sessionID,
		StartedAt:     ep.startedAt.Unix(),
		EndedAt:       ep.endedAt.Unix(),
		Intent:        intent,
		FirstPromptID: ep.firstPromptID,
		LastPromptID:  ep.lastPromptID,
		HotFiles:      hotFiles,
		PhaseSig:      sig,
		ObsCount:      len(obs),
	}
	id, err := store.InsertWorkUnit(db, params)
	if err != nil {
		return models.WorkUnit{}, err
	}

	endedAt := ep.endedAt
	return models.WorkUnit{
		ID:            id,
		SessionID:     sessionID,
		StartedAt:     ep.startedAt,
		EndedAt:       &endedAt,
		Intent:        intent,
		FirstPromptID: ep.firstPromptID,
		LastPromptID:  ep.lastPromptID,
		HotFiles:      hotFiles,
		PhaseSig:      sig,
		ObsCount:      len(obs),
	}, nil
}

func intentFor(q store.Querier, firstPromptID int64) (string, error) {
	p, err := store.PromptByID(q, firstPromptID)
	if err != nil {
		return "", err
	}
	return truncateRunes(strings.TrimSpace(p.Content), maxIntentLen), nil
}

func hotFilesOf(obs []models.Observation) []string {
	set := map[string]struct{}{}
	for _, o := range obs {
		if o.FilePath != "" {
			set[o.FilePath] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for f := range set {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// phaseSignatureOf aggregates investigate/execute/failures/diverge/converge
// counts across an episode's observations, per spec §4.S6.
func phaseSignatureOf(obs []models.Observation) models.PhaseSignature {
	var sig models.PhaseSignature
	for _, o := range obs {
		switch {
		case o.Phase != nil && *o.Phase == "think":
			sig.Investigate++
		case o.Phase != nil && *o.Phase == "act":
			sig.Execute++
		case o.Phase == nil:
			switch o.ObsType {
			case models.ObsFileRead, models.ObsSearch, models.ObsWebSearch, models.ObsWebFetch:
				sig.Investigate++
			case models.ObsFileEdit, models.ObsFileWrite, models.ObsGitCommit, models.ObsGitPush, models.ObsCommand:
				sig.Execute++
			}
		}
		if o.Failed() {
			sig.Failures++
		}
		if o.Scope != nil {
			switch *o.Scope {
			case "diverge":
				sig.Diverge++
			case "converge":
				sig.Converge++
			}
		}
	}
	return sig
}

func intentKeywords(content string) map[string]struct{} {
	out := map[string]struct{}{}
	var b strings.Builder
	flush := func() {
		if b.Len() == 0 {
			return
		}
		tok := b.String()
		b.Reset()
		if len(tok) < 3 {
			return
		}
		if _, skip := stopwords[tok]; skip {
			return
		}
		out[tok] = struct{}{}
	}
	for _, r := range strings.ToLower(content) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '_' {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
