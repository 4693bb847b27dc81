// Package summarize calls an external OpenAI-style chat-completion endpoint
// to produce structured session and episode narratives, per spec §4.S7.
package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/nmemsh/nmem/internal/app"
	"github.com/nmemsh/nmem/internal/models"
)

const (
	systemPrompt = "You produce structured JSON summaries of coding-agent sessions. Respond with JSON only, no commentary."

	sessionMaxTokens   = 1024
	episodeMaxTokens   = 512
	defaultTimeoutSecs = 30

	maxResponseBytes = 1 << 20
)

// limiter throttles outbound summarizer calls process-wide, per the domain
// stack's commitment to golang.org/x/time/rate for S7/S12 backpressure.
var limiter = rate.NewLimiter(rate.Every(time.Second), 2) //nolint:gochecknoglobals // shared process-wide throttle

// EpisodePayload carries the gathered, pre-truncated material for one
// episode's narrative request, per spec §4.S6.
type EpisodePayload struct {
	Intent        string
	UserPrompts   []string
	AgentThinking []string
	Actions       []string
	HotFiles      []string
}

// SessionPayload carries the gathered material for a whole session's
// narrative request.
type SessionPayload struct {
	Project        string
	EpisodeIntents []string
	UserPrompts    []string
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// rawSummary mirrors the JSON a summarizer returns before array-field
// coercion: small models often emit a single string where the schema asks
// for a list, per spec §4.S7.
type rawSummary struct {
	Intent      string          `json:"intent"`
	Learned     json.RawMessage `json:"learned"`
	Completed   json.RawMessage `json:"completed"`
	NextSteps   json.RawMessage `json:"next_steps"`
	FilesRead   json.RawMessage `json:"files_read"`
	FilesEdited json.RawMessage `json:"files_edited"`
	Notes       string          `json:"notes"`
}

func coerceStrings(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil && one != "" {
		return []string{one}
	}
	return nil
}

func (r rawSummary) toSummary() models.SessionSummary {
	return models.SessionSummary{
		Intent:      r.Intent,
		Learned:     coerceStrings(r.Learned),
		Completed:   coerceStrings(r.Completed),
		NextSteps:   coerceStrings(r.NextSteps),
		FilesRead:   coerceStrings(r.FilesRead),
		FilesEdited: coerceStrings(r.FilesEdited),
		Notes:       r.Notes,
	}
}

// Episode requests an episode narrative and returns the coerced, canonical
// summary JSON, per spec §4.S7. now is unused by the request itself but kept
// for callers that want a consistent clock boundary with the rest of the
// Stop-handler pipeline.
func Episode(payload EpisodePayload, now int64) (string, error) {
	_ = now
	return summarize(episodePrompt(payload), episodeMaxTokens)
}

// Session requests a whole-session narrative and returns the coerced,
// canonical summary JSON, per spec §4.S7.
func Session(payload SessionPayload, now int64) (string, error) {
	_ = now
	return summarize(sessionPrompt(payload), sessionMaxTokens)
}

func summarize(userMsg string, maxTokens int) (string, error) {
	cfg, err := app.LoadSettings()
	if err != nil {
		return "", models.Parameter("load summarization config", err)
	}
	sc := cfg.Summarization
	if !sc.Enabled || sc.Endpoint == "" {
		return "", models.Parameter("summarization not configured", nil)
	}

	timeout := time.Duration(sc.TimeoutSecs) * time.Second
	if sc.TimeoutSecs <= 0 {
		timeout = defaultTimeoutSecs * time.Second
	}

	body := chatRequest{
		Model:       sc.Model,
		Temperature: 0.0,
		MaxTokens:   maxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userMsg},
		},
	}

	text, err := callEndpoint(sc.Endpoint, body, timeout)
	if err != nil && sc.FallbackEndpoint != nil && *sc.FallbackEndpoint != "" {
		text, err = callEndpoint(*sc.FallbackEndpoint, body, timeout)
	}
	if err != nil {
		return "", models.External("summarizer call failed", err)
	}

	var raw rawSummary
	if err := json.Unmarshal([]byte(stripFence(text)), &raw); err != nil {
		return "", models.External("parse summarizer response", err)
	}
	canonical, err := json.Marshal(raw.toSummary())
	if err != nil {
		return "", models.External("marshal summarizer response", err)
	}
	return string(canonical), nil
}

func callEndpoint(endpoint string, body chatRequest, timeout time.Duration) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := limiter.Wait(ctx); err != nil {
		return "", err
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(buf))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summarizer http %d: %s", resp.StatusCode, string(respBody))
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", err
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("summarizer returned no choices")
	}
	return cr.Choices[0].Message.Content, nil
}

// stripFence removes an optional ```/```json fence wrapper, per spec §4.S7.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		if first := s[:idx]; !strings.Contains(first, "{") {
			s = s[idx+1:]
		}
	}
	return strings.TrimSuffix(strings.TrimSpace(s), "```")
}

func episodePrompt(p EpisodePayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Episode intent: %s\n\n", p.Intent)
	writeList(&b, "User prompts", p.UserPrompts)
	writeList(&b, "Agent reasoning", p.AgentThinking)
	writeList(&b, "Actions taken", p.Actions)
	writeList(&b, "Files touched", p.HotFiles)
	b.WriteString("\nRespond with JSON: {intent, learned[], completed[], next_steps[], files_read[], files_edited[], notes}.")
	return b.String()
}

func sessionPrompt(p SessionPayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n\n", p.Project)
	writeList(&b, "Episode intents", p.EpisodeIntents)
	writeList(&b, "User prompts", p.UserPrompts)
	b.WriteString("\nRespond with JSON: {intent, learned[], completed[], next_steps[], files_read[], files_edited[], notes}.")
	return b.String()
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for _, it := range items {
		fmt.Fprintf(b, "- %s\n", it)
	}
	b.WriteString("\n")
}
