package extract

import (
	"encoding/json"
	"testing"

	"github.com/nmemsh/nmem/internal/models"
	"github.com/stretchr/testify/require"
)

func TestExtract_Bash_PlainCommand(t *testing.T) {
	r := Extract("Bash", json.RawMessage(`{"command":"ls -la"}`))
	require.Equal(t, models.ObsCommand, r.ObsType)
	require.Equal(t, "ls -la", r.Content)
}

func TestExtract_Bash_GitPushDominates(t *testing.T) {
	r := Extract("Bash", json.RawMessage(`{"command":"git add -A && git commit -m wip && git push origin main"}`))
	require.Equal(t, models.ObsGitPush, r.ObsType)
}

func TestExtract_Bash_GitCommitDominatesGh(t *testing.T) {
	r := Extract("Bash", json.RawMessage(`{"command":"gh pr view; git commit -am wip"}`))
	require.Equal(t, models.ObsGitCommit, r.ObsType)
}

func TestExtract_Bash_GhWhenNoGit(t *testing.T) {
	r := Extract("Bash", json.RawMessage(`{"command":"gh pr list"}`))
	require.Equal(t, models.ObsGitHub, r.ObsType)
}

func TestExtract_Bash_GitWithOptionsBeforeSubcommand(t *testing.T) {
	r := Extract("Bash", json.RawMessage(`{"command":"git --no-pager push"}`))
	require.Equal(t, models.ObsGitPush, r.ObsType)
}

func TestExtract_Bash_TruncatesLongCommand(t *testing.T) {
	long := make([]byte, 600)
	for i := range long {
		long[i] = 'a'
	}
	input, _ := json.Marshal(map[string]string{"command": string(long)})
	r := Extract("Bash", input)
	require.Len(t, []rune(r.Content), maxBashContentLen)
}

func TestExtract_FileOps(t *testing.T) {
	cases := []struct {
		tool    string
		obsType string
	}{
		{"Read", models.ObsFileRead},
		{"Write", models.ObsFileWrite},
		{"Edit", models.ObsFileEdit},
	}
	for _, tc := range cases {
		t.Run(tc.tool, func(t *testing.T) {
			input, _ := json.Marshal(map[string]string{"file_path": "/tmp/x.go"})
			r := Extract(tc.tool, input)
			require.Equal(t, tc.obsType, r.ObsType)
			require.Equal(t, "/tmp/x.go", r.Content)
			require.Equal(t, "/tmp/x.go", r.FilePath)
		})
	}
}

func TestExtract_Grep(t *testing.T) {
	input, _ := json.Marshal(map[string]string{"pattern": "TODO", "path": "internal/"})
	r := Extract("Grep", input)
	require.Equal(t, models.ObsSearch, r.ObsType)
	require.Equal(t, "TODO in internal/", r.Content)
	require.Equal(t, "internal/", r.FilePath)
}

func TestExtract_Glob(t *testing.T) {
	input, _ := json.Marshal(map[string]string{"pattern": "*.go", "path": "."})
	r := Extract("Glob", input)
	require.Equal(t, models.ObsGlob, r.ObsType)
	require.Equal(t, "*.go", r.Content)
}

func TestExtract_Task_PrefersDescription(t *testing.T) {
	input, _ := json.Marshal(map[string]string{"description": "do the thing", "prompt": "a much longer prompt body"})
	r := Extract("Task", input)
	require.Equal(t, models.ObsTask, r.ObsType)
	require.Equal(t, "do the thing", r.Content)
}

func TestExtract_Task_FallsBackToPrompt(t *testing.T) {
	input, _ := json.Marshal(map[string]string{"prompt": "investigate the bug"})
	r := Extract("Task", input)
	require.Equal(t, "investigate the bug", r.Content)
}

func TestExtract_WebFetch(t *testing.T) {
	input, _ := json.Marshal(map[string]string{"url": "https://example.com"})
	r := Extract("WebFetch", input)
	require.Equal(t, models.ObsWebFetch, r.ObsType)
	require.Equal(t, "https://example.com", r.Content)
}

func TestExtract_WebSearch(t *testing.T) {
	input, _ := json.Marshal(map[string]string{"query": "golang fts5"})
	r := Extract("WebSearch", input)
	require.Equal(t, models.ObsWebSearch, r.ObsType)
	require.Equal(t, "golang fts5", r.Content)
}

func TestExtract_AskUserQuestion_FirstQuestion(t *testing.T) {
	input := json.RawMessage(`{"questions":[{"question":"Which approach?"},{"question":"second"}]}`)
	r := Extract("AskUserQuestion", input)
	require.Equal(t, models.ObsAskUser, r.ObsType)
	require.Equal(t, "Which approach?", r.Content)
}

func TestExtract_Unknown_MCPCall(t *testing.T) {
	r := Extract("mcp__filesystem__read_file", json.RawMessage(`{}`))
	require.Equal(t, models.ObsMCPCall, r.ObsType)
	require.Equal(t, "mcp__filesystem__read_file", r.Content)
}

func TestExtract_Unknown_ToolOther(t *testing.T) {
	r := Extract("SomeUnknownTool", json.RawMessage(`{}`))
	require.Equal(t, models.ObsToolOther, r.ObsType)
}

func TestParseGitCommitResponse(t *testing.T) {
	response := "[main abc1234] fix the thing\n 2 files changed, 10 insertions(+), 3 deletions(-)\n create mode 100644 new.go\n delete mode 100644 old.go\n"
	metadata := map[string]any{}
	ParseGitCommitResponse(response, metadata)
	require.Equal(t, "main", metadata["branch"])
	require.Equal(t, "abc1234", metadata["commit_hash"])
	require.Equal(t, "fix the thing", metadata["commit_message"])
	require.Equal(t, 2, metadata["files_changed"])
	require.Equal(t, 10, metadata["insertions"])
	require.Equal(t, 3, metadata["deletions"])
	require.Equal(t, []string{"new.go", "old.go"}, metadata["new_files"])
}

func TestParseGitPushResponse(t *testing.T) {
	response := "To github.com:me/repo.git\n   ab12cd3..ef45ab6  main -> main\n"
	metadata := map[string]any{}
	ParseGitPushResponse(response, metadata)
	require.Equal(t, "github.com:me/repo.git", metadata["remote_url"])
	require.Equal(t, "ab12cd3..ef45ab6", metadata["hash_range"])
	require.Equal(t, "main", metadata["branch"])
}
