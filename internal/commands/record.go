package commands

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/nmemsh/nmem/internal/ingest"
)

// maxHookStdinBytes caps stdin reads: hook payloads are small JSON objects.
const maxHookStdinBytes = 1 << 20

// hookOutput/hookSpecific mirror the JSON the host agent's hook runner
// expects back on stdout from a SessionStart-style hook.
type hookOutput struct {
	HookSpecificOutput *hookSpecific `json:"hookSpecificOutput,omitempty"`
}

type hookSpecific struct {
	HookEventName     string `json:"hookEventName"`
	AdditionalContext string `json:"additionalContext,omitempty"`
}

func newRecordCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "record",
		Short:         "Ingest one hook payload from stdin (SessionStart, UserPromptSubmit, PostToolUse, Stop)",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := io.ReadAll(io.LimitReader(os.Stdin, maxHookStdinBytes))
			if err != nil {
				return cmdErr(err)
			}
			var in ingest.HookInput
			if err := json.Unmarshal(data, &in); err != nil {
				return cmdErr(err)
			}

			var result ingest.Result
			err = withDB(func(db *DB) error {
				r, err := ingest.Handle(db, in, time.Now().Unix())
				if err != nil {
					return err
				}
				result = r
				return nil
			})
			if err != nil {
				// Hooks must never block the host agent: withDB already logged.
				return nil
			}

			if result.AdditionalContext == "" {
				return nil
			}
			out := hookOutput{
				HookSpecificOutput: &hookSpecific{
					HookEventName:     in.HookEventName,
					AdditionalContext: result.AdditionalContext,
				},
			}
			return json.NewEncoder(os.Stdout).Encode(out)
		},
	}
}
