package clients

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"clientbook/internal/config"
	"clientbook/internal/phone"
)

// Store manages client record persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
	now  func() time.Time
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// dbtx is the subset of *sql.DB and *sql.Tx the record helpers need.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code()&0xff == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

// dsn applies pragmas per pooled connection rather than once on a single one.
// The path is escaped so "#" or "?" in a directory name stays part of the file name.
func dsn(path string) string {
	pragmas := []string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
		"_txlock=immediate",
	}
	u := url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(path),
		OmitHost: true,
		RawQuery: strings.Join(pragmas, "&"),
	}
	return u.String()
}

// Open initializes or connects to the client database.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, errors.New("clients: nil config")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := cfg.Paths.DatabasePath
	db, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, storageErr("open sqlite db", err)
	}

	store := &Store{db: db, path: dbPath, now: time.Now}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		if errors.Is(err, ErrSchemaMismatch) {
			return nil, err
		}
		return nil, storageErr("init schema", err)
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Exists reports whether the number is already stored. It serves read-only
// callers such as `clientbook lookup -q`; inserts rely on InsertIfAbsent and
// never check first.
func (s *Store) Exists(ctx context.Context, number string) (bool, error) {
	return exists(ensureContext(ctx), s.db, number)
}

// InsertIfAbsent stores rec unless its phone number is already present.
// It returns true only when this call created the row. Invalid numbers are
// refused with a *phone.FormatError before touching the database.
func (s *Store) InsertIfAbsent(ctx context.Context, rec Record) (bool, error) {
	return insertIfAbsent(ensureContext(ctx), s.db, rec, s.now)
}

// All returns every stored record in insertion order.
func (s *Store) All(ctx context.Context) ([]Record, error) {
	ctx = ensureContext(ctx)
	var records []Record
	err := retryOnBusy(ctx, func() error {
		records = records[:0]
		rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM clients ORDER BY id`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			rec, err := scanRecord(rows)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, storageErr("list clients", err)
	}
	return records, nil
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	ctx = ensureContext(ctx)
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+recordColumns+` FROM clients ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, storageErr("recent clients", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storageErr("scan client", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("recent clients", err)
	}
	return records, nil
}

// Lookup returns the record stored for number, or nil when absent.
func (s *Store) Lookup(ctx context.Context, number string) (*Record, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM clients WHERE phone_number = ?`, number)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storageErr("lookup client", err)
	}
	return &rec, nil
}

// Count returns the number of stored records.
func (s *Store) Count(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM clients`).Scan(&count); err != nil {
		return 0, storageErr("count clients", err)
	}
	return count, nil
}

// Begin opens a write session. Callers defer Rollback; it is a no-op after Commit.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	ctx = ensureContext(ctx)
	var tx *sql.Tx
	err := retryOnBusy(ctx, func() error {
		var beginErr error
		tx, beginErr = s.db.BeginTx(ctx, nil)
		return beginErr
	})
	if err != nil {
		return nil, storageErr("begin session", err)
	}
	return &Tx{tx: tx, now: s.now}, nil
}

func exists(ctx context.Context, db dbtx, number string) (bool, error) {
	var found int
	err := retryOnBusy(ctx, func() error {
		return db.QueryRowContext(ctx, `SELECT COUNT(1) FROM clients WHERE phone_number = ?`, number).Scan(&found)
	})
	if err != nil {
		return false, storageErr("check client", err)
	}
	return found > 0, nil
}

func insertIfAbsent(ctx context.Context, db dbtx, rec Record, now func() time.Time) (bool, error) {
	if err := phone.Check(rec.PhoneNumber); err != nil {
		return false, err
	}
	added := rec.AddedAt
	if added.IsZero() {
		added = now()
	}

	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = db.ExecContext(ctx,
			`INSERT INTO clients (username, phone_number, added_time) VALUES (?, ?, ?)
             ON CONFLICT(phone_number) DO NOTHING`,
			normalizeSubmitter(rec.Submitter),
			rec.PhoneNumber,
			FormatTime(added),
		)
		return execErr
	})
	if err != nil {
		return false, storageErr("insert client", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, storageErr("insert client rows affected", err)
	}
	return affected == 1, nil
}
