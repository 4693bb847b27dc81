package commands

import (
	"github.com/spf13/cobra"

	"github.com/nmemsh/nmem/internal/app"
	"github.com/nmemsh/nmem/internal/rpcserver"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:           "serve",
		Short:         "Run the long-lived JSON-RPC query server over stdin/stdout",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath, err := app.GetDBPath()
			if err != nil {
				return cmdErr(err)
			}
			if err := rpcserver.Run(dbPath); err != nil {
				return cmdErr(err)
			}
			return nil
		},
	}
}
