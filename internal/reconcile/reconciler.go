package reconcile

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"clientbook/internal/clients"
	"clientbook/internal/config"
	"clientbook/internal/logging"
	"clientbook/internal/phone"
)

// Store is the persistence surface the reconciler needs.
type Store interface {
	All(ctx context.Context) ([]clients.Record, error)
	Begin(ctx context.Context) (*clients.Tx, error)
}

// Recorder receives import and export totals. internal/metrics implements it.
type Recorder interface {
	RecordExport(format string, rows int)
	RecordImport(added, duplicates, skipped int)
	RecordImportFailure()
}

// ExportSummary describes one export run.
type ExportSummary struct {
	ID     string
	Format Format
	Rows   int
}

// SkippedRow records a data row left out of an import.
type SkippedRow struct {
	Line   int
	Reason string
}

// ImportSummary describes one import run.
type ImportSummary struct {
	ID           string
	Format       Format
	Rows         int
	Added        int
	Duplicates   int
	Skipped      int
	SkippedLines []SkippedRow
}

// Summary renders the outcome on a single line.
func (s ImportSummary) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "import complete: %d rows, %d added, %d duplicate, %d skipped",
		s.Rows, s.Added, s.Duplicates, s.Skipped)
	if len(s.SkippedLines) > 0 {
		lines := make([]string, 0, len(s.SkippedLines))
		for _, row := range s.SkippedLines {
			lines = append(lines, strconv.Itoa(row.Line))
		}
		fmt.Fprintf(&b, " (lines %s)", strings.Join(lines, ", "))
	}
	return b.String()
}

// Option customizes a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source used for export file names.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithRecorder attaches an import/export recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Reconciler) { r.recorder = rec }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Reconciler exports and imports client records.
type Reconciler struct {
	store         Store
	defaultFormat Format
	exportDir     string
	filePrefix    string
	maxFileBytes  int64
	now           func() time.Time
	recorder      Recorder
	logger        *slog.Logger
}

// New builds a Reconciler using cfg for defaults and limits.
func New(cfg *config.Config, store Store, opts ...Option) *Reconciler {
	r := &Reconciler{
		store:         store,
		defaultFormat: FormatXLSX,
		filePrefix:    "clients",
		maxFileBytes:  20 << 20,
		now:           time.Now,
		logger:        logging.NewNop(),
	}
	if cfg != nil {
		if format, err := ParseFormat(cfg.Export.Format); err == nil {
			r.defaultFormat = format
		}
		if prefix := strings.TrimSpace(cfg.Export.FilePrefix); prefix != "" {
			r.filePrefix = prefix
		}
		if cfg.Import.MaxFileBytes > 0 {
			r.maxFileBytes = cfg.Import.MaxFileBytes
		}
		r.exportDir = cfg.Paths.ExportDir
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "reconcile")
	return r
}

// DefaultFormat returns the configured export format.
func (r *Reconciler) DefaultFormat() Format { return r.defaultFormat }

func (r *Reconciler) resolve(format Format) Format {
	if format == "" {
		return r.defaultFormat
	}
	return format
}

// Export writes every stored record to w.
func (r *Reconciler) Export(ctx context.Context, w io.Writer, format Format) (ExportSummary, error) {
	format = r.resolve(format)
	summary := ExportSummary{ID: uuid.NewString(), Format: format}

	records, err := r.store.All(ctx)
	if err != nil {
		return summary, fmt.Errorf("export snapshot: %w", err)
	}

	switch format {
	case FormatCSV:
		err = writeCSV(w, records)
	case FormatXLSX:
		err = writeXLSX(w, records)
	default:
		return summary, fmt.Errorf("export: unsupported format %q", format)
	}
	if err != nil {
		return summary, fmt.Errorf("export %s: %w", format, err)
	}

	summary.Rows = len(records)
	if r.recorder != nil {
		r.recorder.RecordExport(string(format), summary.Rows)
	}
	r.logger.Info("export written",
		logging.String(logging.FieldImportID, summary.ID),
		logging.String("format", string(format)),
		logging.Int("rows", summary.Rows),
	)
	return summary, nil
}

// ExportFile writes an export into dir (the configured export directory when
// empty) and returns the final path. The file appears only once complete.
func (r *Reconciler) ExportFile(ctx context.Context, dir string, format Format) (string, ExportSummary, error) {
	format = r.resolve(format)
	if strings.TrimSpace(dir) == "" {
		dir = r.exportDir
	}
	if dir == "" {
		return "", ExportSummary{}, fmt.Errorf("export: no output directory configured")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", ExportSummary{}, fmt.Errorf("create export dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+r.filePrefix+"-*.tmp")
	if err != nil {
		return "", ExportSummary{}, fmt.Errorf("create temp export: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() { _ = os.Remove(tmpPath) }()

	summary, err := r.Export(ctx, tmp, format)
	if err != nil {
		_ = tmp.Close()
		return "", summary, err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return "", summary, fmt.Errorf("sync export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", summary, fmt.Errorf("close export: %w", err)
	}

	name := fmt.Sprintf("%s-%s-%s.%s", r.filePrefix, r.now().Format("20060102-150405"), shortID(summary.ID), format.Ext())
	target := filepath.Join(dir, name)
	if err := os.Rename(tmpPath, target); err != nil {
		return "", summary, fmt.Errorf("publish export: %w", err)
	}
	return target, summary, nil
}

// shortID keeps exports from the same second apart.
func shortID(id string) string {
	id = strings.ReplaceAll(id, "-", "")
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type importRow struct {
	line   int
	record clients.Record
}

// Import reads a spreadsheet and inserts every valid row that is not already
// stored. A malformed file returns a *MalformedFileError and applies nothing.
func (r *Reconciler) Import(ctx context.Context, src io.Reader, format Format) (ImportSummary, error) {
	format = r.resolve(format)
	summary := ImportSummary{ID: uuid.NewString(), Format: format}
	logger := r.logger.With(logging.String(logging.FieldImportID, summary.ID))

	rows, err := r.parse(src, format)
	if err != nil {
		r.importFailed(logger, err)
		return summary, err
	}

	summary.SkippedLines = rows.skipped
	summary.Skipped = len(rows.skipped)
	summary.Rows = len(rows.valid) + len(rows.skipped)

	if len(rows.valid) > 0 {
		if err := r.apply(ctx, rows.valid, &summary); err != nil {
			r.importFailed(logger, err)
			return ImportSummary{ID: summary.ID, Format: format}, err
		}
	}

	if r.recorder != nil {
		r.recorder.RecordImport(summary.Added, summary.Duplicates, summary.Skipped)
	}
	logger.Info("import applied",
		logging.String("format", string(format)),
		logging.Int("rows", summary.Rows),
		logging.Int("added", summary.Added),
		logging.Int("duplicates", summary.Duplicates),
		logging.Int("skipped", summary.Skipped),
	)
	return summary, nil
}

func (r *Reconciler) importFailed(logger *slog.Logger, err error) {
	if r.recorder != nil {
		r.recorder.RecordImportFailure()
	}
	logger.Warn("import refused",
		logging.Error(err),
		logging.String(logging.FieldEventType, "import_failed"),
		logging.String(logging.FieldErrorHint, "check the file columns: username, phone_number, added_time"),
	)
}

type parsedRows struct {
	valid   []importRow
	skipped []SkippedRow
}

func (r *Reconciler) parse(src io.Reader, format Format) (parsedRows, error) {
	data, err := io.ReadAll(io.LimitReader(src, r.maxFileBytes+1))
	if err != nil {
		return parsedRows{}, malformed("unreadable upload", err)
	}
	if int64(len(data)) > r.maxFileBytes {
		return parsedRows{}, malformed(fmt.Sprintf("file exceeds %d bytes", r.maxFileBytes), nil)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return parsedRows{}, malformed("empty file", nil)
	}

	var records [][]string
	switch format {
	case FormatCSV:
		records, err = readCSV(data)
	case FormatXLSX:
		records, err = readXLSX(data)
	default:
		return parsedRows{}, malformed(fmt.Sprintf("unsupported format %q", format), nil)
	}
	if err != nil {
		return parsedRows{}, err
	}
	if len(records) == 0 {
		return parsedRows{}, malformed("empty file", nil)
	}

	headerRow, idx, missing := findHeader(records)
	if headerRow < 0 {
		return parsedRows{}, malformed("missing required columns: "+strings.Join(missing, ", "), nil)
	}

	var out parsedRows
	width := idx.width()
	for i, row := range records[headerRow+1:] {
		line := headerRow + i + 2
		if isEmptyRow(row) {
			continue
		}
		if len(row) < width {
			out.skipped = append(out.skipped, SkippedRow{
				Line:   line,
				Reason: fmt.Sprintf("expected %d columns, got %d", width, len(row)),
			})
			continue
		}

		number := phone.Clean(row[idx[ColumnPhone]])
		if err := phone.Check(number); err != nil {
			out.skipped = append(out.skipped, SkippedRow{Line: line, Reason: err.Error()})
			continue
		}
		added, err := parseCellTime(row[idx[ColumnAddedTime]])
		if err != nil {
			out.skipped = append(out.skipped, SkippedRow{Line: line, Reason: err.Error()})
			continue
		}
		submitter := cleanCell(row[idx[ColumnSubmitter]])
		if submitter == "" {
			submitter = clients.UnknownSubmitter
		}
		out.valid = append(out.valid, importRow{
			line: line,
			record: clients.Record{
				Submitter:   submitter,
				PhoneNumber: number,
				AddedAt:     added,
			},
		})
	}
	return out, nil
}

func (r *Reconciler) apply(ctx context.Context, rows []importRow, summary *ImportSummary) error {
	tx, err := r.store.Begin(ctx)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, row := range rows {
		inserted, err := tx.InsertIfAbsent(ctx, row.record)
		if err != nil {
			return fmt.Errorf("import line %d: %w", row.line, err)
		}
		if inserted {
			summary.Added++
		} else {
			summary.Duplicates++
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("import: %w", err)
	}
	return nil
}
