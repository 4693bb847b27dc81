package models

// Hook event names dispatched by the host (spec §6).
const (
	HookSessionStart        = "SessionStart"
	HookUserPromptSubmit    = "UserPromptSubmit"
	HookPostToolUse         = "PostToolUse"
	HookPostToolUseFailure  = "PostToolUseFailure"
	HookStop                = "Stop"
)

// SessionStart source values.
const (
	SourceStartup = "startup"
	SourceCompact = "compact"
	SourceResume  = "resume"
	SourceClear   = "clear"
)

// Prompt sources.
const (
	PromptSourceUser  = "user"
	PromptSourceAgent = "agent"
)

// Observation types, per spec §4.S2.
const (
	ObsCommand        = "command"
	ObsGitPush        = "git_push"
	ObsGitCommit      = "git_commit"
	ObsGitHub         = "github"
	ObsFileRead       = "file_read"
	ObsFileWrite      = "file_write"
	ObsFileEdit       = "file_edit"
	ObsSearch         = "search"
	ObsGlob           = "glob"
	ObsTask           = "task"
	ObsWebFetch       = "web_fetch"
	ObsWebSearch      = "web_search"
	ObsAskUser        = "ask_user_question"
	ObsMCPCall        = "mcp_call"
	ObsToolOther      = "tool_other"
	ObsSessionCompact = "session_compact"
	ObsSessionResume  = "session_resume"
	ObsSessionClear   = "session_clear"
)

// SessionSyntheticObsType maps a SessionStart source to its synthetic
// observation type (spec §4.S5).
func SessionSyntheticObsType(source string) (string, bool) {
	switch source {
	case SourceCompact:
		return ObsSessionCompact, true
	case SourceResume:
		return ObsSessionResume, true
	case SourceClear:
		return ObsSessionClear, true
	default:
		return "", false
	}
}

// Classifier dimension names (spec §4.S4).
const (
	DimensionPhase    = "think-act"
	DimensionScope    = "converge-diverge"
	DimensionLocus    = "internal-external"
	DimensionNovelty  = "routine-novel"
	DimensionFriction = "smooth-friction" // reserved, episode-level only
)
