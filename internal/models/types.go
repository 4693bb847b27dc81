package models

import "time"

// Session is a contiguous stretch of interaction identified by the host.
// Created at first hook event referencing the id; never mutated except to
// set EndedAt, Signature, Summary.
type Session struct {
	ID        string     `json:"id"`
	Project   string     `json:"project"`
	StartedAt time.Time  `json:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`
	Signature string     `json:"signature,omitempty"` // JSON array of {obs_type, count}
	Summary   string     `json:"summary,omitempty"`   // JSON SessionSummary
}

// Prompt is a turn of conversation: either user-authored or an agent's
// captured reasoning block. Immutable once written.
type Prompt struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"` // PromptSourceUser | PromptSourceAgent
	Content   string    `json:"content"`
}

// Observation is a single recorded tool-invocation event. Immutable except
// IsPinned and classifier backfill of NULL label columns.
type Observation struct {
	ID               int64     `json:"id"`
	SessionID        string    `json:"session_id"`
	PromptID         *int64    `json:"prompt_id,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	ObsType          string    `json:"obs_type"`
	SourceEvent      string    `json:"source_event"`
	ToolName         string    `json:"tool_name,omitempty"`
	FilePath         string    `json:"file_path,omitempty"`
	Content          string    `json:"content"`
	Metadata         string    `json:"metadata,omitempty"` // JSON object
	IsPinned         bool      `json:"is_pinned"`
	Phase            *string   `json:"phase,omitempty"`
	ClassifierRunID  *int64    `json:"classifier_run_id,omitempty"`
	Scope            *string   `json:"scope,omitempty"`
	ScopeRunID       *int64    `json:"scope_run_id,omitempty"`
	Locus            *string   `json:"locus,omitempty"`
	LocusRunID       *int64    `json:"locus_run_id,omitempty"`
	Novelty          *string   `json:"novelty,omitempty"`
	NoveltyRunID     *int64    `json:"novelty_run_id,omitempty"`
}

// Failed reports whether this observation's metadata marks it as a tool
// failure (spec §4.S5's PostToolUseFailure handling).
func (o *Observation) Failed() bool {
	return containsFailedFlag(o.Metadata)
}

// ObsTypeCount is one (obs_type, count) pair of a session's signature
// histogram (spec §3, §4.S5).
type ObsTypeCount struct {
	ObsType string `json:"obs_type"`
	Count   int    `json:"count"`
}

// TranscriptCursor tracks the last processed line of a session's transcript
// file. Advanced monotonically by the transcript scanner.
type TranscriptCursor struct {
	SessionID  string `json:"session_id"`
	LineNumber int    `json:"line_number"`
}

// ClassifierRun records provenance for a classifier invocation: which bundle
// (by name + content hash) produced the label columns referencing it.
type ClassifierRun struct {
	ID         int64     `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Name       string    `json:"name"`
	ModelHash  string    `json:"model_hash"`
	CorpusSize *int      `json:"corpus_size,omitempty"`
	CVAccuracy *float64  `json:"cv_accuracy,omitempty"`
	Metadata   string    `json:"metadata,omitempty"`
}

// PhaseSignature is the aggregate classifier histogram annotating an
// episode (spec §4.S6).
type PhaseSignature struct {
	Investigate int `json:"investigate"`
	Execute     int `json:"execute"`
	Failures    int `json:"failures"`
	Diverge     int `json:"diverge"`
	Converge    int `json:"converge"`
}

// WorkUnit (Episode) is a subsequence of a session's prompts sharing a
// coherent intent.
type WorkUnit struct {
	ID            int64          `json:"id"`
	SessionID     string         `json:"session_id"`
	StartedAt     time.Time      `json:"started_at"`
	EndedAt       *time.Time     `json:"ended_at,omitempty"`
	Intent        string         `json:"intent"`
	FirstPromptID int64          `json:"first_prompt_id"`
	LastPromptID  int64          `json:"last_prompt_id"`
	HotFiles      []string       `json:"hot_files"`
	PhaseSig      PhaseSignature `json:"phase_signature"`
	ObsCount      int            `json:"obs_count"`
	Summary       string         `json:"summary,omitempty"` // JSON EpisodeSummary
	Learned       string         `json:"learned,omitempty"`
	Notes         string         `json:"notes,omitempty"`
}

// SessionSummary is the structured narrative a summarizer call returns for a
// whole session (spec §4.S7).
type SessionSummary struct {
	Intent      string   `json:"intent"`
	Learned     []string `json:"learned"`
	Completed   []string `json:"completed"`
	NextSteps   []string `json:"next_steps"`
	FilesRead   []string `json:"files_read"`
	FilesEdited []string `json:"files_edited"`
	Notes       string   `json:"notes"`
}

// EpisodeSummary is the structured narrative for a single episode. Same
// shape as SessionSummary; kept distinct for clarity at call sites.
type EpisodeSummary = SessionSummary
