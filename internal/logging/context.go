package logging

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5/middleware"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRequestID is the standardized key for gateway request identifiers.
	FieldRequestID = "request_id"
	// FieldSubmitter is the standardized key for the handle that supplied a number.
	FieldSubmitter = "submitter"
	// FieldOutcome is the standardized key for ingestion classifications.
	FieldOutcome = "outcome"
	// FieldImportID is the standardized key for a single import or export run.
	FieldImportID = "import_id"
	// FieldEventType names the kind of event behind a warning or error.
	FieldEventType = "event_type"
	// FieldErrorHint carries a short operator-facing next step.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		return []slog.Attr{slog.String(FieldRequestID, reqID)}
	}
	return nil
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(attrsToArgs(fields)...)
}
