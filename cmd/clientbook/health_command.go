package main

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"clientbook/internal/clients"
	"clientbook/internal/preflight"
)

type healthReport struct {
	Database  clients.DatabaseHealth `json:"database"`
	Preflight []preflight.Result     `json:"preflight"`
	Healthy   bool                   `json:"healthy"`
}

// errUnhealthy makes the command exit non-zero without repeating the report.
var errUnhealthy = errors.New("health checks failed")

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check database health and directory access",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			db, err := store.CheckHealth(cmd.Context())
			if err != nil {
				return err
			}
			checks := preflight.RunAll(ctx.configValue())
			report := healthReport{
				Database:  db,
				Preflight: checks,
				Healthy:   db.Healthy() && len(preflight.Failed(checks)) == 0,
			}

			if jsonOut {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				renderHealth(cmd, report)
			}
			if !report.Healthy {
				return errUnhealthy
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

func renderHealth(cmd *cobra.Command, report healthReport) {
	out := cmd.OutOrStdout()
	db := report.Database
	fmt.Fprintf(out, "Database path: %s\n", db.DBPath)
	fmt.Fprintf(out, "Database exists: %s\n", yesNo(db.DatabaseExists))
	fmt.Fprintf(out, "Readable: %s\n", yesNo(db.DatabaseReadable))
	fmt.Fprintf(out, "Schema version: %s\n", db.SchemaVersion)
	fmt.Fprintf(out, "clients table present: %s\n", yesNo(db.TableExists))
	if len(db.ColumnsPresent) > 0 {
		cols := append([]string(nil), db.ColumnsPresent...)
		sort.Strings(cols)
		fmt.Fprintf(out, "Columns: %s\n", strings.Join(cols, ", "))
	}
	if len(db.MissingColumns) > 0 {
		fmt.Fprintf(out, "Missing columns: %s\n", strings.Join(db.MissingColumns, ", "))
	} else {
		fmt.Fprintln(out, "Missing columns: none")
	}
	fmt.Fprintf(out, "Integrity check: %s\n", yesNo(db.IntegrityCheck))
	fmt.Fprintf(out, "Total records: %d\n", db.TotalRecords)
	if db.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", db.Error)
	}
	for _, check := range report.Preflight {
		status := "ok"
		if !check.Passed {
			status = "FAIL"
		}
		fmt.Fprintf(out, "%s: %s (%s)\n", check.Name, status, check.Detail)
	}
}
