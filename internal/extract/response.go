package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	commitHeaderRe  = regexp.MustCompile(`^\[([^\s\]]+)\s+([0-9a-f]+)\]\s+(.*)$`)
	commitStatsRe   = regexp.MustCompile(`(\d+)\s+files?\s+changed(?:,\s+(\d+)\s+insertions?\(\+\))?(?:,\s+(\d+)\s+deletions?\(-\))?`)
	commitModeRe    = regexp.MustCompile(`^\s*(create|delete) mode \d+ (.+)$`)
	pushToURLRe     = regexp.MustCompile(`^To\s+(\S+)`)
	pushHashRangeRe = regexp.MustCompile(`^\s*([0-9a-f]+)\.\.([0-9a-f]+)\s+(\S+)\s+->\s+(\S+)`)
)

// ParseGitCommitResponse extracts structured fields from a `git commit`
// response per spec §4.S2, injecting them into the caller's metadata map.
func ParseGitCommitResponse(response string, metadata map[string]any) {
	insertions := 0
	deletions := 0
	filesChanged := 0
	var newFiles []string

	for _, line := range strings.Split(response, "\n") {
		if m := commitHeaderRe.FindStringSubmatch(line); m != nil {
			metadata["branch"] = m[1]
			metadata["commit_hash"] = m[2]
			metadata["commit_message"] = m[3]
			continue
		}
		if m := commitStatsRe.FindStringSubmatch(line); m != nil {
			filesChanged = atoiOr(m[1], 0)
			insertions = atoiOr(m[2], 0)
			deletions = atoiOr(m[3], 0)
			continue
		}
		if m := commitModeRe.FindStringSubmatch(line); m != nil {
			newFiles = append(newFiles, m[2])
		}
	}

	metadata["files_changed"] = filesChanged
	metadata["insertions"] = insertions
	metadata["deletions"] = deletions
	if newFiles != nil {
		metadata["new_files"] = newFiles
	}
}

// ParseGitPushResponse extracts structured fields from a `git push` response
// per spec §4.S2, injecting them into the caller's metadata map.
func ParseGitPushResponse(response string, metadata map[string]any) {
	for _, line := range strings.Split(response, "\n") {
		if m := pushToURLRe.FindStringSubmatch(line); m != nil {
			metadata["remote_url"] = m[1]
			continue
		}
		if m := pushHashRangeRe.FindStringSubmatch(line); m != nil {
			metadata["hash_range"] = m[1] + ".." + m[2]
			metadata["branch"] = m[3]
			continue
		}
	}
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return v
}
