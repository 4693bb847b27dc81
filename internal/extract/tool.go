// Package extract maps raw tool-call input/response payloads to
// observations, per spec §4.S2.
package extract

import (
	"encoding/json"
	"strings"

	"github.com/nmemsh/nmem/internal/models"
)

// maxBashContentLen caps the Bash command preview stored as content.
const maxBashContentLen = 500

// maxTaskContentLen caps the Task description/prompt preview.
const maxTaskContentLen = 200

// Result is the pure mapping output: an observation's type-specific fields
// before session/timestamp/ids are attached by the ingest coordinator.
type Result struct {
	ObsType  string
	Content  string
	FilePath string
	Metadata map[string]any
}

// Extract maps (toolName, toolInput) to a Result per spec §4.S2. toolInput
// is the raw JSON object Claude Code sends for the tool call; malformed or
// partial JSON degrades to zero-value fields rather than failing, since a
// best-effort observation is better than a dropped one.
func Extract(toolName string, toolInput json.RawMessage) Result {
	switch toolName {
	case "Bash":
		return extractBash(toolInput)
	case "Read":
		return extractFileOp(toolInput, models.ObsFileRead)
	case "Write":
		return extractFileOp(toolInput, models.ObsFileWrite)
	case "Edit":
		return extractFileOp(toolInput, models.ObsFileEdit)
	case "Grep":
		return extractGrep(toolInput)
	case "Glob":
		return extractGlob(toolInput)
	case "Task":
		return extractTask(toolInput)
	case "WebFetch":
		return extractWebFetch(toolInput)
	case "WebSearch":
		return extractWebSearch(toolInput)
	case "AskUserQuestion":
		return extractAskUserQuestion(toolInput)
	default:
		return extractUnknown(toolName)
	}
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func decodeField(toolInput json.RawMessage, fields ...string) map[string]string {
	var raw map[string]any
	out := make(map[string]string, len(fields))
	if err := json.Unmarshal(toolInput, &raw); err != nil {
		return out
	}
	for _, f := range fields {
		if v, ok := raw[f].(string); ok {
			out[f] = v
		}
	}
	return out
}

func extractBash(toolInput json.RawMessage) Result {
	fields := decodeField(toolInput, "command")
	command := fields["command"]
	return Result{
		ObsType: classifyBash(command),
		Content: truncateRunes(command, maxBashContentLen),
	}
}

func extractFileOp(toolInput json.RawMessage, obsType string) Result {
	fields := decodeField(toolInput, "file_path")
	return Result{
		ObsType:  obsType,
		Content:  fields["file_path"],
		FilePath: fields["file_path"],
	}
}

func extractGrep(toolInput json.RawMessage) Result {
	fields := decodeField(toolInput, "pattern", "path")
	content := fields["pattern"]
	if fields["path"] != "" {
		content = content + " in " + fields["path"]
	}
	return Result{
		ObsType:  models.ObsSearch,
		Content:  content,
		FilePath: fields["path"],
	}
}

func extractGlob(toolInput json.RawMessage) Result {
	fields := decodeField(toolInput, "pattern", "path")
	return Result{
		ObsType:  models.ObsGlob,
		Content:  fields["pattern"],
		FilePath: fields["path"],
	}
}

func extractTask(toolInput json.RawMessage) Result {
	fields := decodeField(toolInput, "description", "prompt")
	content := fields["description"]
	if content == "" {
		content = fields["prompt"]
	}
	return Result{
		ObsType: models.ObsTask,
		Content: truncateRunes(content, maxTaskContentLen),
	}
}

func extractWebFetch(toolInput json.RawMessage) Result {
	fields := decodeField(toolInput, "url")
	return Result{ObsType: models.ObsWebFetch, Content: fields["url"]}
}

func extractWebSearch(toolInput json.RawMessage) Result {
	fields := decodeField(toolInput, "query")
	return Result{ObsType: models.ObsWebSearch, Content: fields["query"]}
}

// askUserQuestionInput mirrors the subset of the AskUserQuestion tool_input
// schema nmem cares about: a list of question objects, each carrying a
// question string.
type askUserQuestionInput struct {
	Questions []struct {
		Question string `json:"question"`
	} `json:"questions"`
}

func extractAskUserQuestion(toolInput json.RawMessage) Result {
	var parsed askUserQuestionInput
	_ = json.Unmarshal(toolInput, &parsed)
	content := ""
	if len(parsed.Questions) > 0 {
		content = parsed.Questions[0].Question
	}
	return Result{ObsType: models.ObsAskUser, Content: content}
}

func extractUnknown(toolName string) Result {
	obsType := models.ObsToolOther
	if strings.Contains(toolName, "__") {
		obsType = models.ObsMCPCall
	}
	return Result{ObsType: obsType, Content: toolName}
}

// classifyBash determines the refined Bash observation type per spec §4.S2:
// push dominates commit dominates gh dominates plain command. It scans every
// &&/; separated segment of the command for a git push/commit invocation
// before falling back to gh/plain classification.
func classifyBash(command string) string {
	segments := splitCommandSegments(command)

	sawCommit := false
	sawGh := false
	for _, seg := range segments {
		fields := strings.Fields(seg)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "git":
			switch gitSubcommand(fields[1:]) {
			case "push":
				return models.ObsGitPush
			case "commit":
				sawCommit = true
			}
		case "gh":
			sawGh = true
		}
	}

	if sawCommit {
		return models.ObsGitCommit
	}
	if sawGh {
		return models.ObsGitHub
	}
	return models.ObsCommand
}

// gitSubcommand returns the first non-flag token after "git", skipping
// intermediate options like -C <dir> or --no-pager.
func gitSubcommand(args []string) string {
	for _, a := range args {
		if strings.HasPrefix(a, "-") {
			continue
		}
		return a
	}
	return ""
}

func splitCommandSegments(command string) []string {
	replaced := strings.ReplaceAll(command, "&&", ";")
	parts := strings.Split(replaced, ";")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
