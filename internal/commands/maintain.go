package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/nmemsh/nmem/internal/output"
	"github.com/nmemsh/nmem/internal/patterns"
	"github.com/nmemsh/nmem/internal/store"
)

// newMaintainCmd runs the cross-session pattern learner (spec §4.S11) and a
// WAL truncate checkpoint — the two maintenance tasks that aren't already
// triggered opportunistically from the ingest coordinator's Stop handler.
func newMaintainCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "maintain",
		Short: "Run the pattern learner and checkpoint the WAL",
		RunE: func(cmd *cobra.Command, args []string) error {
			var report string
			if err := withDB(func(db *DB) error {
				r, err := patterns.Report(db, time.Now())
				if err != nil {
					return err
				}
				report = r
				return store.CheckpointWAL(context.Background(), db, "TRUNCATE")
			}); err != nil {
				return err
			}

			type resp struct {
				Report string `json:"report"`
			}
			return output.PrintSuccess(resp{Report: report})
		},
	}
}
