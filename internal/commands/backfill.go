package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nmemsh/nmem/internal/classify"
	"github.com/nmemsh/nmem/internal/models"
	"github.com/nmemsh/nmem/internal/output"
)

func newBackfillCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backfill <dimension>",
		Short: "Classify every observation with a NULL label for one dimension (spec §4.S4)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dimension := args[0]
			if !validBackfillDimension(dimension) {
				return cmdErr(models.Parameter(
					fmt.Sprintf("unknown dimension %q, want one of %s", dimension, strings.Join(classify.Dimensions(), ", ")),
					nil,
				))
			}

			var n int
			if err := withDB(func(db *DB) error {
				count, err := classify.Backfill(db, dimension, time.Now().Unix())
				if err != nil {
					return err
				}
				n = count
				return nil
			}); err != nil {
				return err
			}

			return output.PrintSuccess(map[string]any{"dimension": dimension, "classified": n})
		},
	}
}

func validBackfillDimension(dimension string) bool {
	for _, d := range classify.Dimensions() {
		if d == dimension {
			return true
		}
	}
	return false
}
