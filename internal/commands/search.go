package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/nmemsh/nmem/internal/output"
	"github.com/nmemsh/nmem/internal/retrieval"
)

func newSearchCmd() *cobra.Command {
	var (
		project string
		obsType string
		limit   int
		offset  int
		orderBy string
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search observations by full-text relevance or blended recency+relevance",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var results []retrieval.Result
			if err := withReadOnlyDB(func(db *DB) error {
				r, err := retrieval.Search(db, retrieval.SearchParams{
					Query:   args[0],
					Project: project,
					ObsType: obsType,
					Limit:   limit,
					Offset:  offset,
					OrderBy: orderBy,
				}, time.Now())
				if err != nil {
					return err
				}
				results = r
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Count   int                `json:"count"`
				Results []retrieval.Result `json:"results"`
			}
			return output.PrintSuccess(resp{Count: len(results), Results: results})
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Restrict results to a project")
	cmd.Flags().StringVar(&obsType, "obs-type", "", "Restrict results to an observation type")
	cmd.Flags().IntVar(&limit, "limit", 20, "Max results to return")
	cmd.Flags().IntVar(&offset, "offset", 0, "Result offset for pagination")
	cmd.Flags().StringVar(&orderBy, "order-by", "relevance", "relevance|blended")

	return cmd
}
