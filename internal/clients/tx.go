package clients

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Tx is a write session scoped to one pipeline operation.
type Tx struct {
	tx   *sql.Tx
	now  func() time.Time
	done bool
}

// Exists reports whether number is stored, including rows inserted in this
// session. Like Store.Exists it is a read helper; it does not guard inserts.
func (t *Tx) Exists(ctx context.Context, number string) (bool, error) {
	return exists(ensureContext(ctx), t.tx, number)
}

// InsertIfAbsent behaves like Store.InsertIfAbsent inside the session.
func (t *Tx) InsertIfAbsent(ctx context.Context, rec Record) (bool, error) {
	return insertIfAbsent(ensureContext(ctx), t.tx, rec, t.now)
}

// Commit makes the session's inserts durable.
func (t *Tx) Commit() error {
	if t.done {
		return storageErr("commit session", sql.ErrTxDone)
	}
	t.done = true
	return storageErr("commit session", t.tx.Commit())
}

// Rollback discards the session. Calling it after Commit is a no-op.
func (t *Tx) Rollback() error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return storageErr("rollback session", err)
	}
	return nil
}
