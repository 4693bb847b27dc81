// Package contextgen composes the Markdown context digest injected at
// session start and served by the query server's regenerate_context
// operation, per spec §4.S9.
package contextgen

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nmemsh/nmem/internal/app"
	"github.com/nmemsh/nmem/internal/models"
	"github.com/nmemsh/nmem/internal/store"
)

const (
	defaultEpisodeWindowHours = 48
	defaultLocalLimit         = 20
	defaultCrossLimit         = 10

	maxEpisodes       = 15
	maxEnrichedTop    = 3
	maxHotFilesShown  = 5
	maxLearnedShown   = 3
	maxSessionDigest  = 5
	maxSuggestedTasks = 5

	fileEditWindow = 2 * 60 * 60
	gitOpWindow    = 24 * 60 * 60
)

// Params configures one context-generation call, per spec §4.S9's input:
// project name, local-row limit, cross-row limit, optional before timestamp
// for paginated replays.
type Params struct {
	Project    string
	LocalLimit int
	CrossLimit int
	Before     *int64
}

// Generate composes the Markdown context digest for p. Sections are emitted
// only when non-empty; the result is "" if there is nothing to report.
func Generate(q store.Querier, p Params, now time.Time) (string, error) {
	projCfg := app.ProjectConfigFor(p.Project)

	episodeWindowHours := projCfg.ContextEpisodeWindowHours
	if episodeWindowHours <= 0 {
		episodeWindowHours = defaultEpisodeWindowHours
	}
	localLimit := p.LocalLimit
	if localLimit <= 0 {
		localLimit = projCfg.ContextLocalLimit
	}
	if localLimit <= 0 {
		localLimit = defaultLocalLimit
	}
	crossLimit := p.CrossLimit
	if crossLimit <= 0 {
		crossLimit = projCfg.ContextCrossLimit
	}
	if crossLimit <= 0 {
		crossLimit = defaultCrossLimit
	}

	windowStart := now.Add(-time.Duration(episodeWindowHours) * time.Hour)

	var sections []string

	episodesSection, err := recentEpisodesSection(q, p.Project, windowStart, now)
	if err != nil {
		return "", models.Storage("recent episodes section", err)
	}
	if episodesSection != "" {
		sections = append(sections, episodesSection)
	}

	sessionsSection, err := sessionSummariesSection(q, p.Project, windowStart.Unix(), now)
	if err != nil {
		return "", models.Storage("session summaries section", err)
	}
	if sessionsSection != "" {
		sections = append(sections, sessionsSection)
	}

	tasksSection, err := suggestedTasksSection(q, p.Project)
	if err != nil {
		return "", models.Storage("suggested tasks section", err)
	}
	if tasksSection != "" {
		sections = append(sections, tasksSection)
	}

	localSection, err := localActivitySection(q, p.Project, now, localLimit)
	if err != nil {
		return "", models.Storage("local activity section", err)
	}
	if localSection != "" {
		sections = append(sections, localSection)
	}

	if !projCfg.SuppressCrossProject {
		otherSection, err := otherProjectsSection(q, p.Project, crossLimit)
		if err != nil {
			return "", models.Storage("other projects section", err)
		}
		if otherSection != "" {
			sections = append(sections, otherSection)
		}
	}

	if len(sections) == 0 {
		return "", nil
	}
	return "# nmem context\n\n" + strings.Join(sections, "\n\n"), nil
}

func isURLish(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func displayIntent(raw, fallback string) string {
	if fallback == "" {
		return raw
	}
	if isURLish(raw) || len([]rune(raw)) < 10 {
		return fallback
	}
	return raw
}

func sessionIntent(q store.Querier, sessionID string) string {
	sess, err := store.GetSession(q, sessionID)
	if err != nil || sess.Summary == "" {
		return ""
	}
	var summary models.SessionSummary
	if err := json.Unmarshal([]byte(sess.Summary), &summary); err != nil {
		return ""
	}
	return summary.Intent
}

func phaseLabel(sig models.PhaseSignature) string {
	var base string
	switch {
	case sig.Investigate > sig.Execute:
		base = "investigate"
	case sig.Execute > sig.Investigate:
		base = "execute"
	default:
		base = "mixed"
	}
	if sig.Diverge != 0 || sig.Converge != 0 {
		scope := "converge"
		if sig.Diverge > sig.Converge {
			scope = "diverge"
		}
		base += "→" + scope
	}
	if sig.Failures > 0 {
		base += "+failures"
	}
	return base
}

func recentEpisodesSection(q store.Querier, project string, windowStart, now time.Time) (string, error) {
	episodes, err := store.RecentEpisodes(q, project, windowStart.Unix(), maxEpisodes)
	if err != nil {
		return "", err
	}
	if len(episodes) == 0 {
		return "", nil
	}

	sessionIntents := map[string]string{}
	lines := []string{"## Recent Episodes", ""}
	for i, ep := range episodes {
		fallback, ok := sessionIntents[ep.SessionID]
		if !ok {
			fallback = sessionIntent(q, ep.SessionID)
			sessionIntents[ep.SessionID] = fallback
		}
		intent := displayIntent(ep.Intent, fallback)

		lines = append(lines, fmt.Sprintf("- [%s] **%s** (%d obs, %s)",
			RelativeTime(ep.StartedAt, now), intent, ep.ObsCount, phaseLabel(ep.PhaseSig)))

		if i >= maxEnrichedTop {
			continue
		}
		if hf := ep.HotFiles; len(hf) > 0 {
			if len(hf) > maxHotFilesShown {
				hf = hf[:maxHotFilesShown]
			}
			lines = append(lines, "  - files: "+strings.Join(hf, ", "))
		}
		if ep.Summary != "" {
			var summary models.EpisodeSummary
			if err := json.Unmarshal([]byte(ep.Summary), &summary); err == nil {
				learned := summary.Learned
				if len(learned) > maxLearnedShown {
					learned = learned[:maxLearnedShown]
				}
				for _, l := range learned {
					lines = append(lines, "  - learned: "+l)
				}
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}

func sessionSummariesSection(q store.Querier, project string, episodeWindowStart int64, now time.Time) (string, error) {
	sessions, err := store.SessionsForSummaryDigest(q, project, episodeWindowStart, maxSessionDigest*3)
	if err != nil {
		return "", err
	}

	type entry struct {
		sess    models.Session
		summary models.SessionSummary
	}
	var entries []entry
	for _, s := range sessions {
		var summary models.SessionSummary
		if err := json.Unmarshal([]byte(s.Summary), &summary); err != nil || summary.Intent == "" {
			continue
		}
		entries = append(entries, entry{sess: s, summary: summary})
		if len(entries) >= maxSessionDigest {
			break
		}
	}
	if len(entries) == 0 {
		return "", nil
	}

	lines := []string{"## Session Summaries", ""}
	for i, e := range entries {
		lines = append(lines, fmt.Sprintf("- [%s] **%s**", RelativeTime(e.sess.StartedAt, now), e.summary.Intent))
		if i >= maxEnrichedTop {
			continue
		}
		learned := e.summary.Learned
		if len(learned) > maxLearnedShown {
			learned = learned[:maxLearnedShown]
		}
		for _, l := range learned {
			lines = append(lines, "  - learned: "+l)
		}
	}
	return strings.Join(lines, "\n"), nil
}

func suggestedTasksSection(q store.Querier, project string) (string, error) {
	var steps []string
	seen := map[string]struct{}{}
	add := func(list []string) {
		for _, s := range list {
			if s == "" {
				continue
			}
			if _, dup := seen[s]; dup {
				continue
			}
			seen[s] = struct{}{}
			steps = append(steps, s)
		}
	}

	latest, err := store.MostRecentSessionSummary(q, project)
	if err != nil {
		return "", err
	}
	if latest != "" {
		var summary models.SessionSummary
		if err := json.Unmarshal([]byte(latest), &summary); err == nil {
			add(summary.NextSteps)
		}
	}

	episodeSummaries, err := store.RecentEpisodeSummaries(q, project, maxSessionDigest)
	if err != nil {
		return "", err
	}
	for _, raw := range episodeSummaries {
		var summary models.EpisodeSummary
		if err := json.Unmarshal([]byte(raw), &summary); err == nil {
			add(summary.NextSteps)
		}
	}

	if len(steps) == 0 {
		return "", nil
	}
	if len(steps) > maxSuggestedTasks {
		steps = steps[:maxSuggestedTasks]
	}

	lines := []string{"## Suggested Tasks", ""}
	for _, s := range steps {
		lines = append(lines, "- "+s)
	}
	return strings.Join(lines, "\n"), nil
}

func localActivitySection(q store.Querier, project string, now time.Time, limit int) (string, error) {
	obs, err := store.LocalProjectActivity(q, project, now.Unix(), fileEditWindow, gitOpWindow)
	if err != nil {
		return "", err
	}
	if len(obs) == 0 {
		return "", nil
	}

	type fileEditGroup struct {
		count      int
		lastTS     time.Time
		firstIndex int
	}
	groups := map[string]*fileEditGroup{}
	var lines []string

	for i, o := range obs {
		if o.ObsType == models.ObsFileEdit && !o.IsPinned {
			g, ok := groups[o.FilePath]
			if !ok {
				g = &fileEditGroup{firstIndex: len(lines)}
				groups[o.FilePath] = g
				lines = append(lines, "") // placeholder, filled below
			}
			g.count++
			if o.Timestamp.After(g.lastTS) {
				g.lastTS = o.Timestamp
			}
			continue
		}
		_ = i
		lines = append(lines, individualActivityLine(o, now))
	}

	for path, g := range groups {
		if g.count <= 1 {
			lines[g.firstIndex] = fmt.Sprintf("- %s — 1 edit (%s)", path, RelativeTime(g.lastTS, now))
		} else {
			lines[g.firstIndex] = fmt.Sprintf("- %s — %d edits (%s)", path, g.count, RelativeTime(g.lastTS, now))
		}
	}

	compact := make([]string, 0, len(lines))
	for _, l := range lines {
		if l != "" {
			compact = append(compact, l)
		}
	}
	if len(compact) > limit {
		compact = compact[:limit]
	}
	if len(compact) == 0 {
		return "", nil
	}
	return strings.Join(append([]string{"## Local project activity", ""}, compact...), "\n"), nil
}

func individualActivityLine(o models.Observation, now time.Time) string {
	label := o.FilePath
	if label == "" {
		label = o.Content
	}
	return fmt.Sprintf("- %s — %s (%s)", o.ObsType, label, RelativeTime(o.Timestamp, now))
}

func otherProjectsSection(q store.Querier, project string, crossLimit int) (string, error) {
	obs, err := store.OtherProjectsPinned(q, project, crossLimit)
	if err != nil {
		return "", err
	}
	if len(obs) == 0 {
		return "", nil
	}
	lines := []string{"## Other projects", ""}
	for _, o := range obs {
		label := o.FilePath
		if label == "" {
			label = o.Content
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", o.ObsType, label))
	}
	return strings.Join(lines, "\n"), nil
}
