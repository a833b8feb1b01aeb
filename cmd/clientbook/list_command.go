package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"clientbook/internal/clients"
)

type listedRecord struct {
	ID          int64  `json:"id"`
	Submitter   string `json:"username"`
	PhoneNumber string `json:"phone_number"`
	AddedTime   string `json:"added_time"`
}

func newListCommand(ctx *commandContext) *cobra.Command {
	var (
		limit      int
		jsonOut    bool
		forceTable bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the most recently added numbers",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			records, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			listed := make([]listedRecord, 0, len(records))
			for _, rec := range records {
				listed = append(listed, listedRecord{
					ID:          rec.ID,
					Submitter:   rec.Submitter,
					PhoneNumber: rec.PhoneNumber,
					AddedTime:   clients.FormatTime(rec.AddedAt),
				})
			}
			if jsonOut {
				return writeJSON(cmd, listed)
			}

			out := cmd.OutOrStdout()
			if len(listed) == 0 {
				fmt.Fprintln(out, "No records stored")
				return nil
			}
			headers := []string{"ID", "Submitter", "Phone", "Added"}
			rows := make([][]string, 0, len(listed))
			for _, rec := range listed {
				rows = append(rows, []string{strconv.FormatInt(rec.ID, 10), rec.Submitter, rec.PhoneNumber, rec.AddedTime})
			}
			if forceTable || isTerminal(out) {
				fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignRight, alignLeft, alignLeft, alignLeft}))
				return nil
			}
			fmt.Fprint(out, renderTSV(headers, rows))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of records to show")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&forceTable, "table", false, "Render a table even when stdout is not a terminal")
	return cmd
}
