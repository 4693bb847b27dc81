package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/nmemsh/nmem/internal/app"
	"github.com/nmemsh/nmem/internal/output"
	"github.com/nmemsh/nmem/internal/retention"
)

func newPurgeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Force a retention sweep now, ignoring the opportunistic trigger (spec §4.S10)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadSettings()
			if err != nil {
				return cmdErr(err)
			}

			var swept bool
			if err := withDB(func(db *DB) error {
				if err := retention.Sweep(db, cfg.Retention, time.Now().Unix()); err != nil {
					return err
				}
				swept = true
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Swept bool `json:"swept"`
			}
			return output.PrintSuccess(resp{Swept: swept})
		},
	}
}
