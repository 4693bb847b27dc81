package episode

import (
	"database/sql"
	"log/slog"

	"github.com/nmemsh/nmem/internal/models"
	"github.com/nmemsh/nmem/internal/store"
	"github.com/nmemsh/nmem/internal/summarize"
)

const (
	minNarratePrompts = 2
	minNarrateObs     = 3

	maxNarratePrompts   = 10
	maxNarrateReasoning = 5
	maxNarrateActions   = 30
)

// Narrate summarizes every persisted episode meeting spec §4.S6's narration
// threshold (≥2 user prompts, ≥3 observations), storing the summarizer's
// canonical JSON verbatim in work_units.summary. Narration is best-effort
// post-commit work: failures are logged and skipped, never propagated.
func Narrate(db *sql.DB, sessionID string, episodes []models.WorkUnit, now int64) {
	if len(episodes) == 0 {
		return
	}
	prompts, err := store.UserPrompts(db, sessionID)
	if err != nil {
		slog.Default().Warn("episode narration: load prompts failed", "error", err, "session_id", sessionID)
		return
	}

	for _, ep := range episodes {
		if ep.ObsCount < minNarrateObs || countInRange(prompts, ep.FirstPromptID, ep.LastPromptID) < minNarratePrompts {
			continue
		}

		payload, err := buildPayload(db, sessionID, ep, prompts)
		if err != nil {
			slog.Default().Warn("episode narration: build payload failed", "error", err, "work_unit_id", ep.ID)
			continue
		}

		summary, err := summarize.Episode(payload, now)
		if err != nil {
			slog.Default().Warn("episode narration failed", "error", err, "work_unit_id", ep.ID)
			continue
		}
		if err := store.SetWorkUnitSummary(db, ep.ID, summary); err != nil {
			slog.Default().Warn("episode narration: store summary failed", "error", err, "work_unit_id", ep.ID)
		}
	}
}

func countInRange(prompts []models.Prompt, first, last int64) int {
	n := 0
	for _, p := range prompts {
		if p.ID >= first && p.ID <= last {
			n++
		}
	}
	return n
}

func buildPayload(db *sql.DB, sessionID string, ep models.WorkUnit, userPrompts []models.Prompt) (summarize.EpisodePayload, error) {
	var prompts []string
	for _, p := range userPrompts {
		if p.ID < ep.FirstPromptID || p.ID > ep.LastPromptID {
			continue
		}
		prompts = append(prompts, truncateRunes(p.Content, 100))
		if len(prompts) >= maxNarratePrompts {
			break
		}
	}

	agentPrompts, err := store.AgentPromptsInRange(db, sessionID, ep.FirstPromptID, ep.LastPromptID)
	if err != nil {
		return summarize.EpisodePayload{}, err
	}
	var reasoning []string
	for _, p := range agentPrompts {
		reasoning = append(reasoning, truncateRunes(p.Content, 200))
		if len(reasoning) >= maxNarrateReasoning {
			break
		}
	}

	obs, err := store.ObservationsInPromptRange(db, sessionID, ep.FirstPromptID, ep.LastPromptID)
	if err != nil {
		return summarize.EpisodePayload{}, err
	}
	var actions []string
	for _, o := range obs {
		actions = append(actions, truncateRunes(o.ObsType+": "+o.Content, 150))
		if len(actions) >= maxNarrateActions {
			break
		}
	}

	return summarize.EpisodePayload{
		Intent:        ep.Intent,
		UserPrompts:   prompts,
		AgentThinking: reasoning,
		Actions:       actions,
		HotFiles:      ep.HotFiles,
	}, nil
}
