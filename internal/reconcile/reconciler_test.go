package reconcile_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"clientbook/internal/clients"
	"clientbook/internal/config"
	"clientbook/internal/reconcile"
	"clientbook/internal/testsupport"
)

func setup(t *testing.T, opts ...testsupport.ConfigOption) (*config.Config, *clients.Store, *reconcile.Reconciler) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	return cfg, store, reconcile.New(cfg, store)
}

func seed(t *testing.T, store *clients.Store) {
	t.Helper()
	base := time.Date(2024, 2, 3, 4, 5, 6, 0, time.UTC)
	testsupport.SeedRecord(t, store, "alice", "+11234567890", base)
	testsupport.SeedRecord(t, store, "bob", "+441234567890", base.Add(time.Minute))
	testsupport.SeedRecord(t, store, "", "+8613800138000", base.Add(time.Hour))
}

func TestExportImportIsIdempotent(t *testing.T) {
	for _, format := range []reconcile.Format{reconcile.FormatXLSX, reconcile.FormatCSV} {
		t.Run(string(format), func(t *testing.T) {
			_, store, rec := setup(t)
			seed(t, store)
			ctx := context.Background()

			var buf bytes.Buffer
			exported, err := rec.Export(ctx, &buf, format)
			if err != nil {
				t.Fatalf("Export failed: %v", err)
			}
			if exported.Rows != 3 {
				t.Fatalf("expected 3 exported rows, got %d", exported.Rows)
			}

			summary, err := rec.Import(ctx, bytes.NewReader(buf.Bytes()), format)
			if err != nil {
				t.Fatalf("Import failed: %v", err)
			}
			if summary.Added != 0 || summary.Duplicates != 3 || summary.Skipped != 0 {
				t.Fatalf("unexpected summary %+v", summary)
			}
			count, _ := store.Count(ctx)
			if count != 3 {
				t.Fatalf("expected store unchanged, got %d records", count)
			}
		})
	}
}

func TestImportIntoEmptyStorePreservesFields(t *testing.T) {
	for _, format := range []reconcile.Format{reconcile.FormatXLSX, reconcile.FormatCSV} {
		t.Run(string(format), func(t *testing.T) {
			_, source, exporter := setup(t)
			seed(t, source)
			ctx := context.Background()

			var buf bytes.Buffer
			if _, err := exporter.Export(ctx, &buf, format); err != nil {
				t.Fatalf("Export failed: %v", err)
			}

			_, target, importer := setup(t)
			summary, err := importer.Import(ctx, &buf, format)
			if err != nil {
				t.Fatalf("Import failed: %v", err)
			}
			if summary.Added != 3 {
				t.Fatalf("expected 3 added, got %+v", summary)
			}

			want, _ := source.All(ctx)
			got, err := target.All(ctx)
			if err != nil {
				t.Fatalf("All failed: %v", err)
			}
			if len(got) != len(want) {
				t.Fatalf("got %d records, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i].PhoneNumber != want[i].PhoneNumber ||
					got[i].Submitter != want[i].Submitter ||
					!got[i].AddedAt.Equal(want[i].AddedAt) {
					t.Fatalf("record %d = %+v, want %+v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestImportSkipsBadRowsAndSucceeds(t *testing.T) {
	_, store, rec := setup(t)
	ctx := context.Background()

	csvData := strings.Join([]string{
		"username,phone_number,added_time",
		"alice,+11234567890,2024-01-01 10:00:00",
		"bob,12345,2024-01-01 10:00:00",
		"carol,+15550001111,not a time",
		"dave",
	}, "\n")

	summary, err := rec.Import(ctx, strings.NewReader(csvData), reconcile.FormatCSV)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if summary.Added != 1 || summary.Skipped != 3 || summary.Rows != 4 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	lines := []int{}
	for _, row := range summary.SkippedLines {
		lines = append(lines, row.Line)
	}
	if len(lines) != 3 || lines[0] != 3 || lines[1] != 4 || lines[2] != 5 {
		t.Fatalf("unexpected skipped lines %v", lines)
	}
	if !strings.Contains(summary.Summary(), "1 added") || !strings.Contains(summary.Summary(), "lines 3, 4, 5") {
		t.Fatalf("unexpected summary text %q", summary.Summary())
	}
	found, _ := store.Exists(ctx, "+11234567890")
	if !found {
		t.Fatal("expected valid row to be stored")
	}
}

func TestImportAcceptsAliasesAndOffsetHeader(t *testing.T) {
	_, store, rec := setup(t)
	ctx := context.Background()

	csvData := "\ufeffclient export\n\nSubmitter,Phone,Added At,id\n,＋８６１３８００１３８０００,2024/05/01 08:30,7\n"
	summary, err := rec.Import(ctx, strings.NewReader(csvData), reconcile.FormatCSV)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if summary.Added != 1 {
		t.Fatalf("expected one added, got %+v", summary)
	}
	got, err := store.Lookup(ctx, "+8613800138000")
	if err != nil || got == nil {
		t.Fatalf("Lookup = %v, %v", got, err)
	}
	if got.Submitter != clients.UnknownSubmitter {
		t.Fatalf("expected placeholder submitter, got %q", got.Submitter)
	}
	if !got.AddedAt.Equal(time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected timestamp %v", got.AddedAt)
	}
}

func TestImportMalformedFiles(t *testing.T) {
	cases := []struct {
		name   string
		format reconcile.Format
		data   []byte
	}{
		{name: "empty csv", format: reconcile.FormatCSV, data: nil},
		{name: "missing column", format: reconcile.FormatCSV, data: []byte("username,added_time\nalice,2024-01-01 00:00:00\n")},
		{name: "not a workbook", format: reconcile.FormatXLSX, data: []byte("definitely not a zip archive")},
		{name: "header too deep", format: reconcile.FormatCSV, data: []byte(strings.Repeat("note\n", reconcile.MaxHeaderSearchRows) + "username,phone_number,added_time\nalice,+11234567890,2024-01-01 10:00:00\n")},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, store, rec := setup(t)
			_, err := rec.Import(context.Background(), bytes.NewReader(tc.data), tc.format)
			if !errors.Is(err, reconcile.ErrMalformedFile) {
				t.Fatalf("expected ErrMalformedFile, got %v", err)
			}
			var mfe *reconcile.MalformedFileError
			if !errors.As(err, &mfe) || mfe.ErrorKind() != "malformed_file" {
				t.Fatalf("expected MalformedFileError, got %T", err)
			}
			count, _ := store.Count(context.Background())
			if count != 0 {
				t.Fatalf("expected nothing applied, got %d", count)
			}
		})
	}
}

func TestImportRejectsOversizeFile(t *testing.T) {
	_, _, rec := setup(t, testsupport.WithMaxImportBytes(32))
	data := "username,phone_number,added_time\nalice,+11234567890,2024-01-01 10:00:00\n"
	_, err := rec.Import(context.Background(), strings.NewReader(data), reconcile.FormatCSV)
	if !errors.Is(err, reconcile.ErrMalformedFile) {
		t.Fatalf("expected ErrMalformedFile, got %v", err)
	}
}

func TestImportReadsClientsSheet(t *testing.T) {
	_, store, rec := setup(t)

	f := excelize.NewFile()
	if _, err := f.NewSheet(reconcile.SheetName); err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	rows := [][]any{
		{"username", "phone_number", "added_time"},
		{"alice", "+11234567890", "2024-01-01 10:00:00"},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(reconcile.SheetName, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f.Close()

	summary, err := rec.Import(context.Background(), &buf, reconcile.FormatXLSX)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if summary.Added != 1 {
		t.Fatalf("expected one added, got %+v", summary)
	}
	found, _ := store.Exists(context.Background(), "+11234567890")
	if !found {
		t.Fatal("expected record from clients sheet")
	}
}

func TestExportFileIsNamedAndComplete(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithExportFormat("csv"))
	store := testsupport.MustOpenStore(t, cfg)
	seed(t, store)
	fixed := time.Date(2024, 7, 8, 9, 10, 11, 0, time.UTC)
	rec := reconcile.New(cfg, store, reconcile.WithClock(testsupport.FixedClock(fixed)))

	path, summary, err := rec.ExportFile(context.Background(), "", "")
	if err != nil {
		t.Fatalf("ExportFile failed: %v", err)
	}
	if summary.Format != reconcile.FormatCSV || summary.Rows != 3 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if dir := filepath.Dir(path); dir != cfg.Paths.ExportDir {
		t.Fatalf("export dir = %q, want %q", dir, cfg.Paths.ExportDir)
	}
	name := filepath.Base(path)
	if !strings.HasPrefix(name, "clients-20240708-091011-") || !strings.HasSuffix(name, ".csv") {
		t.Fatalf("unexpected export name %q", name)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !strings.Contains(string(content), "username,phone_number,added_time") {
		t.Fatalf("missing header in %q", content)
	}
	if !strings.Contains(string(content), "alice,+11234567890,2024-02-03 04:05:06") {
		t.Fatalf("missing row in %q", content)
	}

	entries, _ := os.ReadDir(cfg.Paths.ExportDir)
	if len(entries) != 1 {
		t.Fatalf("expected only the final file, got %d entries", len(entries))
	}
}

func TestExportFileSameSecondKeepsBothFiles(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithExportFormat("csv"))
	store := testsupport.MustOpenStore(t, cfg)
	seed(t, store)
	fixed := time.Date(2024, 7, 8, 9, 10, 11, 0, time.UTC)
	rec := reconcile.New(cfg, store, reconcile.WithClock(testsupport.FixedClock(fixed)))

	first, _, err := rec.ExportFile(context.Background(), "", "")
	if err != nil {
		t.Fatalf("first export: %v", err)
	}
	second, _, err := rec.ExportFile(context.Background(), "", "")
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	if first == second {
		t.Fatalf("exports in the same second share a name: %q", first)
	}
	for _, path := range []string{first, second} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("export %s missing: %v", path, err)
		}
	}
}

func TestImportAcceptsExcelDateCells(t *testing.T) {
	_, store, rec := setup(t)

	added := time.Date(2024, 6, 1, 12, 30, 45, 0, time.UTC)
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	rows := [][]any{
		{"username", "phone_number", "added_time"},
		{"x", "+11234567890", added},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	style, err := f.NewStyle(&excelize.Style{NumFmt: 17})
	if err != nil {
		t.Fatalf("NewStyle: %v", err)
	}
	if err := f.SetCellStyle(sheet, "C2", "C2", style); err != nil {
		t.Fatalf("SetCellStyle: %v", err)
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatalf("Write: %v", err)
	}
	f.Close()

	summary, err := rec.Import(context.Background(), &buf, reconcile.FormatXLSX)
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if summary.Added != 1 || summary.Skipped != 0 {
		t.Fatalf("expected one added row, got %+v", summary)
	}
	got, err := store.Lookup(context.Background(), "+11234567890")
	if err != nil || got == nil {
		t.Fatalf("Lookup: %v %v", got, err)
	}
	if !got.AddedAt.Equal(added) {
		t.Fatalf("added time = %v, want %v", got.AddedAt, added)
	}
}

func TestFormatFromName(t *testing.T) {
	cases := map[string]reconcile.Format{
		"clients.xlsx":  reconcile.FormatXLSX,
		"CLIENTS.CSV":   reconcile.FormatCSV,
		"dir/file.Xlsx": reconcile.FormatXLSX,
	}
	for name, want := range cases {
		got, ok := reconcile.FormatFromName(name)
		if !ok || got != want {
			t.Fatalf("FormatFromName(%q) = %q, %v", name, got, ok)
		}
	}
	for _, name := range []string{"clients", "clients.xls", ""} {
		if _, ok := reconcile.FormatFromName(name); ok {
			t.Fatalf("FormatFromName(%q) should fail", name)
		}
	}
}
