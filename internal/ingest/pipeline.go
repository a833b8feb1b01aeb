package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"clientbook/internal/clients"
	"clientbook/internal/logging"
	"clientbook/internal/phone"
)

// Outcome classifies one submitted entry.
type Outcome string

const (
	Added     Outcome = "added"
	Duplicate Outcome = "duplicate"
	Invalid   Outcome = "invalid"
)

// Result is the classification of a single submission.
type Result struct {
	Outcome Outcome
	Number  string
}

// BatchResult holds the three partitions of a batch in submission order.
type BatchResult struct {
	Added     []string
	Duplicate []string
	Invalid   []string
	AddedAt   time.Time
}

// Total returns the number of classified entries.
func (b BatchResult) Total() int {
	return len(b.Added) + len(b.Duplicate) + len(b.Invalid)
}

// Recorder receives outcome counts. internal/metrics implements it.
type Recorder interface {
	RecordOutcome(outcome string, count int)
}

// Store is the persistence surface the pipeline needs.
type Store interface {
	InsertIfAbsent(ctx context.Context, rec clients.Record) (bool, error)
	Begin(ctx context.Context) (*clients.Tx, error)
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source used for insertion timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		if now != nil {
			p.now = now
		}
	}
}

// WithRecorder attaches an outcome recorder.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) { p.recorder = r }
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithDefaultSubmitter sets the placeholder used for empty submitter handles.
func WithDefaultSubmitter(name string) Option {
	return func(p *Pipeline) {
		if name = strings.TrimSpace(name); name != "" {
			p.defaultSubmitter = name
		}
	}
}

// WithMaxBatchSize caps the number of entries accepted per batch. Zero disables the cap.
func WithMaxBatchSize(n int) Option {
	return func(p *Pipeline) { p.maxBatch = n }
}

// BatchTooLargeError is returned when a batch exceeds the configured cap.
type BatchTooLargeError struct {
	Size  int
	Limit int
}

func (e *BatchTooLargeError) Error() string {
	return fmt.Sprintf("batch of %d entries exceeds limit of %d", e.Size, e.Limit)
}

// ErrorKind classifies oversize batches as validation failures.
func (e *BatchTooLargeError) ErrorKind() string { return "validation" }

// Pipeline validates and stores submitted numbers.
type Pipeline struct {
	store            Store
	now              func() time.Time
	recorder         Recorder
	logger           *slog.Logger
	defaultSubmitter string
	maxBatch         int
}

// New builds a pipeline over store.
func New(store Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		store:            store,
		now:              time.Now,
		logger:           logging.NewNop(),
		defaultSubmitter: clients.UnknownSubmitter,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = logging.NewComponentLogger(p.logger, "ingest")
	return p
}

// Submit classifies and stores one raw entry. Duplicate and invalid input
// are reported through Result; only storage failures return an error.
func (p *Pipeline) Submit(ctx context.Context, submitter, raw string) (Result, error) {
	number := strings.TrimSpace(raw)
	submitter = p.submitter(submitter)
	if !phone.Valid(number) {
		p.record(Invalid, 1)
		p.logger.Debug("number rejected",
			logging.String(logging.FieldSubmitter, submitter),
			logging.String(logging.FieldOutcome, string(Invalid)),
		)
		return Result{Outcome: Invalid, Number: number}, nil
	}

	inserted, err := p.store.InsertIfAbsent(ctx, clients.Record{
		Submitter:   submitter,
		PhoneNumber: number,
		AddedAt:     p.timestamp(),
	})
	if err != nil {
		return Result{}, fmt.Errorf("submit %s: %w", number, err)
	}

	outcome := Duplicate
	if inserted {
		outcome = Added
	}
	p.record(outcome, 1)
	p.logger.Debug("number classified",
		logging.String(logging.FieldSubmitter, submitter),
		logging.String(logging.FieldOutcome, string(outcome)),
	)
	return Result{Outcome: outcome, Number: number}, nil
}

// SubmitBatch classifies and stores a list of raw entries in one session.
// Empty entries are dropped. The first occurrence of a number within the batch
// decides its outcome; every later occurrence is a Duplicate.
func (p *Pipeline) SubmitBatch(ctx context.Context, submitter string, raws []string) (BatchResult, error) {
	entries := make([]string, 0, len(raws))
	for _, raw := range raws {
		if entry := strings.TrimSpace(raw); entry != "" {
			entries = append(entries, entry)
		}
	}
	if p.maxBatch > 0 && len(entries) > p.maxBatch {
		return BatchResult{}, &BatchTooLargeError{Size: len(entries), Limit: p.maxBatch}
	}

	submitter = p.submitter(submitter)
	result := BatchResult{AddedAt: p.timestamp()}
	if len(entries) == 0 {
		return result, nil
	}

	tx, err := p.store.Begin(ctx)
	if err != nil {
		return BatchResult{}, fmt.Errorf("batch: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	seen := make(map[string]struct{}, len(entries))
	for _, entry := range entries {
		if !phone.Valid(entry) {
			result.Invalid = append(result.Invalid, entry)
			continue
		}
		if _, dup := seen[entry]; dup {
			result.Duplicate = append(result.Duplicate, entry)
			continue
		}
		seen[entry] = struct{}{}

		inserted, err := tx.InsertIfAbsent(ctx, clients.Record{
			Submitter:   submitter,
			PhoneNumber: entry,
			AddedAt:     result.AddedAt,
		})
		if err != nil {
			return BatchResult{}, fmt.Errorf("batch insert %s: %w", entry, err)
		}
		if inserted {
			result.Added = append(result.Added, entry)
		} else {
			result.Duplicate = append(result.Duplicate, entry)
		}
	}

	if err := tx.Commit(); err != nil {
		return BatchResult{}, fmt.Errorf("batch: %w", err)
	}

	p.record(Added, len(result.Added))
	p.record(Duplicate, len(result.Duplicate))
	p.record(Invalid, len(result.Invalid))
	p.logger.Info("batch processed",
		logging.String(logging.FieldSubmitter, submitter),
		logging.Int("added", len(result.Added)),
		logging.Int("duplicate", len(result.Duplicate)),
		logging.Int("invalid", len(result.Invalid)),
	)
	return result, nil
}

func (p *Pipeline) submitter(value string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return p.defaultSubmitter
}

func (p *Pipeline) timestamp() time.Time {
	return p.now().UTC().Truncate(time.Second)
}

func (p *Pipeline) record(outcome Outcome, count int) {
	if p.recorder == nil || count == 0 {
		return
	}
	p.recorder.RecordOutcome(string(outcome), count)
}
