// Package ingest dispatches one hook payload into the store, invoking
// redaction (S1), extraction (S2), transcript scanning (S3), and
// classification (S4) inside a single transaction, per spec §4.S5.
package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nmemsh/nmem/internal/app"
	"github.com/nmemsh/nmem/internal/classify"
	"github.com/nmemsh/nmem/internal/contextgen"
	"github.com/nmemsh/nmem/internal/episode"
	"github.com/nmemsh/nmem/internal/extract"
	"github.com/nmemsh/nmem/internal/models"
	"github.com/nmemsh/nmem/internal/retention"
	"github.com/nmemsh/nmem/internal/secretfilter"
	"github.com/nmemsh/nmem/internal/store"
	"github.com/nmemsh/nmem/internal/summarize"
	"github.com/nmemsh/nmem/internal/transcript"
)

// maxPromptLen caps a stored user prompt, per spec §4.S5.
const maxPromptLen = 500

// maxFailureResponseLen caps the tool_response preview stashed in a failed
// observation's metadata.
const maxFailureResponseLen = 500

// systemReminderPrefix marks host-injected prompts that are never persisted.
const systemReminderPrefix = "<system-reminder>"

// projectMarkers are the path segments DeriveProject looks for, per spec
// §4.S5's ensure-session project derivation.
var projectMarkers = map[string]bool{
	"workspace":  true,
	"dev":        true,
	"viablesys":  true,
	"forge":      true,
}

// HookInput is one hook payload parsed from stdin JSON, per spec §4.S5.
type HookInput struct {
	SessionID      string          `json:"session_id"`
	CWD            string          `json:"cwd"`
	HookEventName  string          `json:"hook_event_name"`
	ToolName       string          `json:"tool_name,omitempty"`
	ToolInput      json.RawMessage `json:"tool_input,omitempty"`
	ToolResponse   json.RawMessage `json:"tool_response,omitempty"`
	TranscriptPath string          `json:"transcript_path,omitempty"`
	Source         string          `json:"source,omitempty"`
	Prompt         string          `json:"prompt,omitempty"`
}

// Result is what the coordinator hands back to the hook's stdout writer.
type Result struct {
	AdditionalContext string
}

// Handle dispatches in per spec §4.S5. An empty session id is a silent
// no-op success. now is unix-seconds, supplied by the caller for a single
// consistent clock across the whole event.
func Handle(db *sql.DB, in HookInput, now int64) (Result, error) {
	if in.SessionID == "" {
		return Result{}, nil
	}

	switch in.HookEventName {
	case models.HookSessionStart:
		return handleSessionStart(db, in, now)
	case models.HookUserPromptSubmit:
		return Result{}, handleUserPromptSubmit(db, in, now)
	case models.HookPostToolUse, models.HookPostToolUseFailure:
		return Result{}, handlePostToolUse(db, in, now)
	case models.HookStop:
		return Result{}, handleStop(db, in, now)
	default:
		return Result{}, nil
	}
}

// DeriveProject implements spec §4.S5's ensure-session project derivation:
// strip $HOME, then skip every consecutive path segment matching the marker
// set, returning the first segment that isn't one of them; "home" if cwd is
// $HOME; "unknown" on empty input or a path made up entirely of markers; the
// last non-empty path component when cwd falls outside $HOME entirely.
func DeriveProject(cwd string) string {
	if cwd == "" {
		return "unknown"
	}
	home, _ := os.UserHomeDir()

	sep := string(filepath.Separator)
	rel := cwd
	if home != "" {
		switch {
		case cwd == home, cwd == home+sep:
			return "home"
		case strings.HasPrefix(cwd, home):
			rel = strings.TrimPrefix(strings.TrimPrefix(cwd, home), sep)
		default:
			return lastPathComponent(cwd, sep)
		}
	}

	lastPart := ""
	for _, part := range strings.Split(rel, sep) {
		if part == "" {
			continue
		}
		lastPart = part
		if !projectMarkers[part] {
			return part
		}
	}
	if lastPart == "" {
		return "unknown"
	}
	return lastPart
}

// lastPathComponent returns the last non-empty "/"-separated segment of p,
// or "unknown" if every segment is empty.
func lastPathComponent(p, sep string) string {
	parts := strings.Split(p, sep)
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return "unknown"
}

func handleSessionStart(db *sql.DB, in HookInput, now int64) (Result, error) {
	project := DeriveProject(in.CWD)

	err := store.Transact(db, func(tx *sql.Tx) error {
		if err := store.EnsureSession(tx, in.SessionID, project, now); err != nil {
			return err
		}
		obsType, ok := models.SessionSyntheticObsType(in.Source)
		if !ok {
			return nil
		}
		_, err := store.InsertObservation(tx, store.InsertObservationParams{
			SessionID:   in.SessionID,
			Timestamp:   now,
			ObsType:     obsType,
			SourceEvent: in.HookEventName,
			Content:     "session " + in.Source,
		})
		return err
	})
	if err != nil {
		return Result{}, models.Storage("session start", err)
	}

	md, err := contextgen.Generate(db, contextgen.Params{Project: project}, time.Unix(now, 0).UTC())
	if err != nil {
		slog.Default().Warn("context injection failed", "error", err, "session_id", in.SessionID)
		return Result{}, nil
	}
	return Result{AdditionalContext: md}, nil
}

func handleUserPromptSubmit(db *sql.DB, in HookInput, now int64) error {
	prompt := in.Prompt
	if prompt == "" || strings.HasPrefix(prompt, systemReminderPrefix) {
		return nil
	}
	prompt = truncateRunes(prompt, maxPromptLen)

	cfg, err := app.LoadSettings()
	if err != nil {
		return models.Parameter("load settings", err)
	}
	project := DeriveProject(in.CWD)
	prompt, _ = secretfilter.Redact(prompt, cfg.Filter, app.ProjectConfigFor(project))

	err = store.Transact(db, func(tx *sql.Tx) error {
		if err := store.EnsureSession(tx, in.SessionID, project, now); err != nil {
			return err
		}
		_, err := store.InsertUserPrompt(tx, in.SessionID, now, prompt)
		return err
	})
	if err != nil {
		return models.Storage("user prompt submit", err)
	}
	return nil
}

func handlePostToolUse(db *sql.DB, in HookInput, now int64) error {
	failed := in.HookEventName == models.HookPostToolUseFailure
	project := DeriveProject(in.CWD)
	cfg, err := app.LoadSettings()
	if err != nil {
		return models.Parameter("load settings", err)
	}
	projCfg := app.ProjectConfigFor(project)

	res := extract.Extract(in.ToolName, in.ToolInput)
	metadata := res.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	respText := responseText(in.ToolResponse)
	switch res.ObsType {
	case models.ObsGitCommit:
		extract.ParseGitCommitResponse(respText, metadata)
	case models.ObsGitPush:
		extract.ParseGitPushResponse(respText, metadata)
	}

	if failed {
		metadata["failed"] = true
		redactedResp, _ := secretfilter.Redact(truncateRunes(respText, maxFailureResponseLen), cfg.Filter, projCfg)
		metadata["response"] = redactedResp
	}

	content, _ := secretfilter.Redact(res.Content, cfg.Filter, projCfg)
	redactedMetadata, _ := secretfilter.RedactValue(metadata, cfg.Filter, projCfg)

	metadataJSON, err := json.Marshal(redactedMetadata)
	if err != nil {
		return models.Parameter("marshal observation metadata", err)
	}

	return store.Transact(db, func(tx *sql.Tx) error {
		if err := store.EnsureSession(tx, in.SessionID, project, now); err != nil {
			return err
		}

		var promptID int64
		if in.TranscriptPath != "" {
			id, err := transcript.Scan(tx, in.SessionID, in.TranscriptPath, now)
			if err != nil {
				return err
			}
			promptID = id
		} else {
			id, err := store.LatestPromptID(tx, in.SessionID)
			if err != nil {
				return err
			}
			promptID = id
		}

		labels, err := classify.ClassifyAll(tx, content, now)
		if err != nil {
			return err
		}
		params := store.InsertObservationParams{
			SessionID:   in.SessionID,
			Timestamp:   now,
			ObsType:     res.ObsType,
			SourceEvent: in.HookEventName,
			ToolName:    in.ToolName,
			FilePath:    res.FilePath,
			Content:     content,
			Metadata:    string(metadataJSON),
		}
		if promptID != 0 {
			params.PromptID = &promptID
		}
		applyLabels(&params, labels)

		_, err = store.InsertObservation(tx, params)
		return err
	})
}

func applyLabels(p *store.InsertObservationParams, labels []classify.Label) {
	for _, l := range labels {
		value := l.Value
		runID := l.RunID
		switch l.Dimension {
		case models.DimensionPhase:
			p.Phase, p.PhaseRunID = &value, &runID
		case models.DimensionScope:
			p.Scope, p.ScopeRunID = &value, &runID
		case models.DimensionLocus:
			p.Locus, p.LocusRunID = &value, &runID
		case models.DimensionNovelty:
			p.Novelty, p.NoveltyRunID = &value, &runID
		}
	}
}

func handleStop(db *sql.DB, in HookInput, now int64) error {
	project := DeriveProject(in.CWD)

	err := store.Transact(db, func(tx *sql.Tx) error {
		if err := store.EnsureSession(tx, in.SessionID, project, now); err != nil {
			return err
		}
		if in.TranscriptPath != "" {
			if _, err := transcript.Scan(tx, in.SessionID, in.TranscriptPath, now); err != nil {
				return err
			}
		}

		counts, err := store.SessionSignatureCounts(tx, in.SessionID)
		if err != nil {
			return err
		}
		sigJSON, err := json.Marshal(counts)
		if err != nil {
			return models.Parameter("marshal session signature", err)
		}
		return store.EndSession(tx, in.SessionID, now, string(sigJSON))
	})
	if err != nil {
		return models.Storage("session stop", err)
	}

	episodes, err := episode.DetectAndPersist(db, in.SessionID, now)
	if err != nil {
		slog.Default().Warn("episode detection failed", "error", err, "session_id", in.SessionID)
	} else {
		episode.Narrate(db, in.SessionID, episodes, now)
	}

	summarizeSession(db, in.SessionID, project, episodes, now)
	retention.MaybeSweep(db, project, now)

	if err := store.CheckpointWAL(context.Background(), db, "PASSIVE"); err != nil {
		slog.Default().Warn("wal checkpoint failed", "error", err, "session_id", in.SessionID)
	}
	return nil
}

func summarizeSession(db *sql.DB, sessionID, project string, episodes []models.WorkUnit, now int64) {
	cfg, err := app.LoadSettings()
	if err != nil || !cfg.Summarization.Enabled {
		return
	}

	prompts, err := store.UserPrompts(db, sessionID)
	if err != nil {
		slog.Default().Warn("session summary: load prompts failed", "error", err, "session_id", sessionID)
		return
	}
	var userPrompts []string
	for _, p := range prompts {
		userPrompts = append(userPrompts, truncateRunes(p.Content, 100))
	}
	intents := make([]string, 0, len(episodes))
	for _, ep := range episodes {
		if ep.Intent != "" {
			intents = append(intents, ep.Intent)
		}
	}

	summary, err := summarize.Session(summarize.SessionPayload{
		Project:        project,
		EpisodeIntents: intents,
		UserPrompts:    userPrompts,
	}, now)
	if err != nil {
		slog.Default().Warn("session summary failed", "error", err, "session_id", sessionID)
		return
	}
	if err := store.SetSessionSummary(db, sessionID, summary); err != nil {
		slog.Default().Warn("session summary: store failed", "error", err, "session_id", sessionID)
	}
}

func responseText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err == nil {
		for _, key := range []string{"stdout", "output", "text", "content"} {
			if v, ok := obj[key].(string); ok {
				return v
			}
		}
	}
	return string(raw)
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}
