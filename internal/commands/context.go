package commands

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/nmemsh/nmem/internal/contextgen"
	"github.com/nmemsh/nmem/internal/output"
)

func newContextCmd() *cobra.Command {
	var (
		project    string
		localLimit int
		crossLimit int
	)

	cmd := &cobra.Command{
		Use:   "context",
		Short: "Render the Markdown context digest for a project (spec §4.S9)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var md string
			if err := withReadOnlyDB(func(db *DB) error {
				generated, err := contextgen.Generate(db, contextgen.Params{
					Project:    project,
					LocalLimit: localLimit,
					CrossLimit: crossLimit,
				}, time.Now())
				if err != nil {
					return err
				}
				md = generated
				return nil
			}); err != nil {
				return err
			}

			type resp struct {
				Context string `json:"context"`
			}
			return output.PrintSuccess(resp{Context: md})
		},
	}

	cmd.Flags().StringVar(&project, "project", "", "Project to generate context for (required)")
	cmd.Flags().IntVar(&localLimit, "local-limit", 0, "Override local activity row limit")
	cmd.Flags().IntVar(&crossLimit, "cross-limit", 0, "Override cross-project row limit")
	_ = cmd.MarkFlagRequired("project")

	return cmd
}
