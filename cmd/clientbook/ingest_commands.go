package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/spf13/cobra"

	"clientbook/internal/clients"
	"clientbook/internal/ingest"
	"clientbook/internal/phone"
)

func newAddCommand(ctx *commandContext) *cobra.Command {
	var submitter string

	cmd := &cobra.Command{
		Use:   "add <number>",
		Short: "Submit a single phone number",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			pipeline, err := ctx.pipeline()
			if err != nil {
				return err
			}
			res, err := pipeline.Submit(cmd.Context(), submitterOrUser(submitter), phone.Clean(args[0]))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			switch res.Outcome {
			case ingest.Added:
				fmt.Fprintf(out, "Added %s\n", res.Number)
			case ingest.Duplicate:
				fmt.Fprintf(out, "Already exists: %s\n", res.Number)
			default:
				fmt.Fprintf(out, "Invalid format: %q (want + followed by %d-%d digits)\n", res.Number, phone.MinDigits, phone.MaxDigits)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&submitter, "submitter", "s", "", "Submitter handle recorded with the number")
	return cmd
}

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var (
		submitter string
		jsonOut   bool
	)

	cmd := &cobra.Command{
		Use:   "batch [numbers...]",
		Short: "Submit several numbers at once (reads stdin when no arguments are given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			tokens := args
			if len(tokens) == 0 {
				read, err := readTokens(cmd.InOrStdin())
				if err != nil {
					return fmt.Errorf("read stdin: %w", err)
				}
				tokens = read
			}
			cleaned := make([]string, 0, len(tokens))
			for _, token := range tokens {
				cleaned = append(cleaned, phone.Clean(token))
			}

			pipeline, err := ctx.pipeline()
			if err != nil {
				return err
			}
			res, err := pipeline.SubmitBatch(cmd.Context(), submitterOrUser(submitter), cleaned)
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, map[string]any{
					"added":     nonNil(res.Added),
					"duplicate": nonNil(res.Duplicate),
					"invalid":   nonNil(res.Invalid),
					"added_at":  res.AddedAt,
				})
			}
			out := cmd.OutOrStdout()
			printSection(out, "Added", res.Added)
			printSection(out, "Already exists (skipped)", res.Duplicate)
			printSection(out, "Invalid format", res.Invalid)
			fmt.Fprintf(out, "Total: %d added, %d duplicate, %d invalid\n", len(res.Added), len(res.Duplicate), len(res.Invalid))
			return nil
		},
	}
	cmd.Flags().StringVarP(&submitter, "submitter", "s", "", "Submitter handle recorded with the numbers")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// errNotStored gives `lookup --quiet` a non-zero exit for absent numbers.
var errNotStored = errors.New("number not stored")

func newLookupCommand(ctx *commandContext) *cobra.Command {
	var quiet bool

	cmd := &cobra.Command{
		Use:   "lookup <number>",
		Short: "Check whether a number is already stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			store, err := ctx.openStore()
			if err != nil {
				return err
			}
			number := phone.Clean(args[0])
			out := cmd.OutOrStdout()

			if quiet {
				found, err := store.Exists(cmd.Context(), number)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, yesNo(found))
				if !found {
					return errNotStored
				}
				return nil
			}

			rec, err := store.Lookup(cmd.Context(), number)
			if err != nil {
				return err
			}
			if rec == nil {
				fmt.Fprintf(out, "%s not found\n", number)
				return nil
			}
			fmt.Fprintf(out, "%s added %s by %s\n", rec.PhoneNumber, clients.FormatTime(rec.AddedAt), rec.Submitter)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Print only yes or no and exit non-zero when absent")
	return cmd
}

func submitterOrUser(flag string) string {
	if value := strings.TrimSpace(flag); value != "" {
		return value
	}
	return currentUser()
}

func readTokens(r io.Reader) ([]string, error) {
	var tokens []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		tokens = append(tokens, strings.FieldsFunc(scanner.Text(), func(r rune) bool {
			return unicode.IsSpace(r) || r == ','
		})...)
	}
	return tokens, scanner.Err()
}

func printSection(out io.Writer, title string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(out, "%s:\n", title)
	for _, v := range values {
		fmt.Fprintf(out, "  %s\n", v)
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
