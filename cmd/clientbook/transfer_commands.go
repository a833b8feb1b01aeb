package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"clientbook/internal/reconcile"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		formatFlag string
		output     string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every stored record as a spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			format, err := optionalFormat(formatFlag)
			if err != nil {
				return err
			}
			rec, err := ctx.reconciler()
			if err != nil {
				return err
			}

			target := strings.TrimSpace(output)
			if target == "-" {
				_, err := rec.Export(cmd.Context(), cmd.OutOrStdout(), format)
				return err
			}
			if target != "" && !isDir(target) {
				return exportToFile(cmd, rec, target, format)
			}

			path, summary, err := rec.ExportFile(cmd.Context(), target, format)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", summary.Rows, path)
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Spreadsheet format: xlsx or csv (defaults to export.format)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file or directory; '-' writes to stdout")
	return cmd
}

func exportToFile(cmd *cobra.Command, rec *reconcile.Reconciler, path string, format reconcile.Format) error {
	if format == "" {
		if inferred, ok := reconcile.FormatFromName(path); ok {
			format = inferred
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	summary, err := rec.Export(cmd.Context(), file, format)
	if closeErr := file.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("close export file: %w", closeErr)
	}
	if err != nil {
		_ = os.Remove(path)
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d records to %s\n", summary.Rows, path)
	return nil
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	var formatFlag string

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Merge a spreadsheet of records into the store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer ctx.close()
			format, err := optionalFormat(formatFlag)
			if err != nil {
				return err
			}
			path := args[0]
			if format == "" {
				inferred, ok := reconcile.FormatFromName(path)
				if !ok {
					return fmt.Errorf("cannot infer format from %q; pass --format", path)
				}
				format = inferred
			}

			rec, err := ctx.reconciler()
			if err != nil {
				return err
			}
			file, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open import file: %w", err)
			}
			defer file.Close()

			summary, err := rec.Import(cmd.Context(), file, format)
			if err != nil {
				var mfe *reconcile.MalformedFileError
				if errors.As(err, &mfe) {
					return fmt.Errorf("import rejected: %s", mfe.Reason)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), summary.Summary())
			return nil
		},
	}
	cmd.Flags().StringVarP(&formatFlag, "format", "f", "", "Spreadsheet format: xlsx or csv (defaults to the file extension)")
	return cmd
}

func optionalFormat(value string) (reconcile.Format, error) {
	if strings.TrimSpace(value) == "" {
		return "", nil
	}
	return reconcile.ParseFormat(value)
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
