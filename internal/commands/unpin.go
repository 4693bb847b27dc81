package commands

import (
	"strconv"

	"github.com/spf13/cobra"

	"github.com/nmemsh/nmem/internal/models"
	"github.com/nmemsh/nmem/internal/output"
	"github.com/nmemsh/nmem/internal/store"
)

func newUnpinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unpin <observation-id>",
		Short: "Unpin an observation, making it eligible for retention sweeps again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return cmdErr(models.Parameter("invalid observation id", err))
			}
			if err := withDB(func(db *DB) error {
				return store.UnpinObservation(db, id)
			}); err != nil {
				return err
			}
			return output.PrintSuccess(map[string]any{"id": id, "pinned": false})
		},
	}
}
