package transcript

import (
	"fmt"

	"github.com/nmemsh/nmem/internal/store"
)

// Scan reads the session's persisted cursor, parses any new transcript
// lines, upserts each thinking block as a deduped agent prompt, advances the
// cursor, and returns the latest known agent prompt id for the session. now
// is the unix-seconds timestamp attached to newly inserted prompts.
func Scan(q store.Querier, sessionID, transcriptPath string, now int64) (int64, error) {
	fromLine, err := store.GetTranscriptCursor(q, sessionID)
	if err != nil {
		return 0, fmt.Errorf("scan transcript: %w", err)
	}

	result, err := Parse(transcriptPath, fromLine)
	if err != nil {
		return 0, fmt.Errorf("scan transcript: %w", err)
	}
	if result.NotFound {
		return store.LatestAgentPromptID(q, sessionID)
	}

	var latestID int64
	for _, text := range result.ThinkingTexts {
		id, err := store.UpsertAgentPrompt(q, sessionID, now, text)
		if err != nil {
			return 0, fmt.Errorf("scan transcript: %w", err)
		}
		latestID = id
	}

	if err := store.SetTranscriptCursor(q, sessionID, result.NextCursor); err != nil {
		return 0, fmt.Errorf("scan transcript: %w", err)
	}

	if latestID == 0 {
		return store.LatestAgentPromptID(q, sessionID)
	}
	return latestID, nil
}
