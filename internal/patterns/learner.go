// Package patterns scans observations for two cross-session patterns —
// repeated failed commands and unresolved reads — and renders a Markdown
// heat report, per spec §4.S11.
package patterns

import (
	"database/sql"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/nmemsh/nmem/internal/contextgen"
	"github.com/nmemsh/nmem/internal/models"
	"github.com/nmemsh/nmem/internal/store"
)

const (
	minDistinctSessions = 3
	heatHalfLifeHours   = 168.0
	maxGroupsPerCategory = 20
)

var diagnosticFirstTokens = map[string]bool{
	"which": true, "type": true, "command": true, "hash": true,
}

var diagnosticPrefixes = []string{
	"tmux kill-", "tmux has-session", "sleep ", "source ", ". ", "export ",
}

var multiTokenTools = map[string]bool{
	"cargo": true, "npm": true, "git": true, "docker": true, "kubectl": true, "go": true,
}

var binaryPathPrefixes = []string{
	"/usr/local/bin/", "/usr/bin/", "/bin/", "/opt/homebrew/bin/",
}

var referenceSegments = map[string]bool{
	"library": true, "ADR": true, "design": true, "docs": true, ".claude": true, "node_modules": true,
}

var (
	trailingPipeRe = regexp.MustCompile(`\s*\|\s*(tail|head)\b.*$`)
	trailingRedirRe = regexp.MustCompile(`\s*2>&1\s*$`)
)

// occurrence is one group member's session and timestamp, used to compute
// heat per distinct session.
type occurrence struct {
	sessionID string
	timestamp time.Time
}

// Group is one rendered pattern-report entry.
type Group struct {
	Key            string
	SessionCount   int
	Heat           float64
	NormalizedHeat float64
	LastSeen       time.Time
	Examples       []string
}

type groupBuild struct {
	key         string
	occurrences []occurrence
	examples    []string
}

// Report scans every observation and renders the Markdown pattern report,
// per spec §4.S11.
func Report(q store.Querier, now time.Time) (string, error) {
	failedCmds, err := loadFailedCommands(q)
	if err != nil {
		return "", err
	}
	unresolvedReads, err := loadUnresolvedReads(q)
	if err != nil {
		return "", err
	}

	commandGroups := finalizeGroups(failedCmds, now)
	readGroups := finalizeGroups(unresolvedReads, now)

	normalizeHeat(commandGroups, readGroups)

	return render(commandGroups, readGroups, now), nil
}

func loadFailedCommands(q store.Querier) ([]groupBuild, error) {
	rows, err := q.Query(
		`SELECT session_id, timestamp, content, metadata FROM observations WHERE obs_type = ?`,
		models.ObsCommand,
	)
	if err != nil {
		return nil, fmt.Errorf("load failed commands: %w", err)
	}
	defer func() { _ = rows.Close() }()

	grouped := map[string]*groupBuild{}
	for rows.Next() {
		var sessionID, content string
		var ts int64
		var metadata sql.NullString
		if err := rows.Scan(&sessionID, &ts, &content, &metadata); err != nil {
			return nil, fmt.Errorf("load failed commands: %w", err)
		}
		o := models.Observation{Metadata: metadata.String}
		if !o.Failed() || isDiagnostic(content) {
			continue
		}
		key := normalizeCommand(content)
		if key == "" {
			continue
		}
		addOccurrence(grouped, key, sessionID, time.Unix(ts, 0).UTC(), content)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load failed commands: %w", err)
	}
	return flattenGroups(grouped), nil
}

func loadUnresolvedReads(q store.Querier) ([]groupBuild, error) {
	rows, err := q.Query(
		`SELECT session_id, timestamp, file_path FROM observations
		 WHERE obs_type = ? AND file_path IS NOT NULL AND file_path != ''
		   AND file_path NOT IN (
		     SELECT file_path FROM observations
		     WHERE obs_type IN (?, ?) AND file_path IS NOT NULL
		   )`,
		models.ObsFileRead, models.ObsFileEdit, models.ObsFileWrite,
	)
	if err != nil {
		return nil, fmt.Errorf("load unresolved reads: %w", err)
	}
	defer func() { _ = rows.Close() }()

	grouped := map[string]*groupBuild{}
	for rows.Next() {
		var sessionID, filePath string
		var ts int64
		if err := rows.Scan(&sessionID, &ts, &filePath); err != nil {
			return nil, fmt.Errorf("load unresolved reads: %w", err)
		}
		if isReferencePath(filePath) {
			continue
		}
		addOccurrence(grouped, filePath, sessionID, time.Unix(ts, 0).UTC(), filePath)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load unresolved reads: %w", err)
	}
	return flattenGroups(grouped), nil
}

func addOccurrence(grouped map[string]*groupBuild, key, sessionID string, ts time.Time, example string) {
	g, ok := grouped[key]
	if !ok {
		g = &groupBuild{key: key}
		grouped[key] = g
	}
	g.occurrences = append(g.occurrences, occurrence{sessionID: sessionID, timestamp: ts})
	const maxExamples = 3
	if len(g.examples) < maxExamples && !containsString(g.examples, example) {
		g.examples = append(g.examples, example)
	}
}

func flattenGroups(grouped map[string]*groupBuild) []groupBuild {
	out := make([]groupBuild, 0, len(grouped))
	for _, g := range grouped {
		out = append(out, *g)
	}
	return out
}

func finalizeGroups(builds []groupBuild, now time.Time) []Group {
	var out []Group
	for _, b := range builds {
		latestBySession := map[string]time.Time{}
		for _, occ := range b.occurrences {
			if t, ok := latestBySession[occ.sessionID]; !ok || occ.timestamp.After(t) {
				latestBySession[occ.sessionID] = occ.timestamp
			}
		}
		if len(latestBySession) < minDistinctSessions {
			continue
		}

		var heat float64
		var lastSeen time.Time
		for _, t := range latestBySession {
			ageHours := now.Sub(t).Hours()
			heat += store.ExpDecay(ageHours, heatHalfLifeHours)
			if t.After(lastSeen) {
				lastSeen = t
			}
		}

		out = append(out, Group{
			Key:          b.key,
			SessionCount: len(latestBySession),
			Heat:         heat,
			LastSeen:     lastSeen,
			Examples:     b.examples,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Heat > out[j].Heat })
	if len(out) > maxGroupsPerCategory {
		out = out[:maxGroupsPerCategory]
	}
	return out
}

func normalizeHeat(a, b []Group) {
	max := 0.0
	for _, g := range a {
		if g.Heat > max {
			max = g.Heat
		}
	}
	for _, g := range b {
		if g.Heat > max {
			max = g.Heat
		}
	}
	if max <= 0 {
		return
	}
	for i := range a {
		a[i].NormalizedHeat = a[i].Heat / max * 100
	}
	for i := range b {
		b[i].NormalizedHeat = b[i].Heat / max * 100
	}
}

func render(commands, reads []Group, now time.Time) string {
	var b strings.Builder
	b.WriteString("# Pattern Report\n\n")

	b.WriteString("## Repeated Failed Commands\n\n")
	if len(commands) == 0 {
		b.WriteString("None found.\n\n")
	} else {
		for _, g := range commands {
			fmt.Fprintf(&b, "- **%s** — heat %.0f, %d sessions, last seen %s\n",
				g.Key, g.NormalizedHeat, g.SessionCount, contextgen.RelativeTime(g.LastSeen, now))
			for _, ex := range g.Examples {
				fmt.Fprintf(&b, "  - `%s`\n", ex)
			}
		}
		b.WriteString("\n")
	}

	b.WriteString("## Unresolved Reads\n\n")
	if len(reads) == 0 {
		b.WriteString("None found.\n")
	} else {
		for _, g := range reads {
			fmt.Fprintf(&b, "- **%s** — heat %.0f, %d sessions, last seen %s\n",
				g.Key, g.NormalizedHeat, g.SessionCount, contextgen.RelativeTime(g.LastSeen, now))
		}
	}

	return b.String()
}

func isDiagnostic(cmd string) bool {
	trimmed := strings.TrimSpace(cmd)
	fields := strings.Fields(trimmed)
	if len(fields) == 0 {
		return true
	}
	if diagnosticFirstTokens[fields[0]] {
		return true
	}
	for _, p := range diagnosticPrefixes {
		if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	return false
}

// normalizeCommand implements spec §4.S11's normalize_command: strip $HOME,
// then common binary-path prefixes, then trailing "| tail|head" and
// "2>&1", then collapse multi-token invocations of well-known CLIs to their
// first two tokens.
func normalizeCommand(content string) string {
	cmd := strings.TrimSpace(content)

	if home, err := os.UserHomeDir(); err == nil && home != "" {
		cmd = strings.ReplaceAll(cmd, home, "$HOME")
	}
	for _, p := range binaryPathPrefixes {
		cmd = strings.ReplaceAll(cmd, p, "")
	}
	cmd = trailingPipeRe.ReplaceAllString(cmd, "")
	cmd = trailingRedirRe.ReplaceAllString(cmd, "")
	cmd = strings.TrimSpace(cmd)

	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return ""
	}
	if multiTokenTools[fields[0]] && len(fields) > 2 {
		return strings.Join(fields[:2], " ")
	}
	return cmd
}

func isReferencePath(path string) bool {
	for _, seg := range strings.Split(path, "/") {
		if referenceSegments[seg] {
			return true
		}
	}
	return false
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
