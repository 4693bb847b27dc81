package commands

import (
	"context"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/nmemsh/nmem/internal/app"
	"github.com/nmemsh/nmem/internal/output"
	"github.com/nmemsh/nmem/internal/store"
)

func newStatusCmd() *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show nmem installation status: schema version, DB size, row counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(check)
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Run a connectivity check (SELECT 1)")
	return cmd
}

func runStatus(check bool) error {
	dbPath, dbSource, err := app.ResolveDBPathDetailed()
	if err != nil {
		return cmdErr(err)
	}

	type dbInfo struct {
		Path      string `json:"path"`
		Source    string `json:"source"`
		OK        bool   `json:"ok"`
		SizeHuman string `json:"size,omitempty"`
		Error     string `json:"error,omitempty"`
	}

	type resp struct {
		DB          dbInfo              `json:"db"`
		SchemaOK    bool                `json:"schema_ok"`
		SchemaError string              `json:"schema_error,omitempty"`
		Counts      *store.StatusCounts `json:"counts,omitempty"`
		QueryOK     *bool               `json:"query_ok,omitempty"`
		QueryError  string              `json:"query_error,omitempty"`
	}

	result := resp{DB: dbInfo{Path: dbPath, Source: dbSource}}

	db, err := store.OpenDB(dbPath)
	if err != nil {
		result.DB.Error = err.Error()
		return output.PrintSuccess(result)
	}
	result.DB.OK = true
	defer func() { _ = store.CloseDB(db) }()

	if stat, statErr := os.Stat(dbPath); statErr == nil {
		result.DB.SizeHuman = humanize.Bytes(uint64(stat.Size()))
	}

	if err := store.CheckSchemaVersion(db); err != nil {
		result.SchemaError = err.Error()
	} else {
		result.SchemaOK = true
	}

	if counts, err := store.GetStatusCounts(db); err == nil {
		result.Counts = counts
	}

	if check {
		var one int
		qErr := db.QueryRowContext(context.Background(), "SELECT 1").Scan(&one)
		qOK := qErr == nil
		result.QueryOK = &qOK
		if !qOK {
			result.QueryError = qErr.Error()
		}
	}

	return output.PrintSuccess(result)
}
