// Package chat turns chat messages into ingestion and file-transfer calls and
// renders the bilingual replies submitters see.
package chat

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"unicode"

	"clientbook/internal/errs"
	"clientbook/internal/ingest"
	"clientbook/internal/logging"
	"clientbook/internal/phone"
	"clientbook/internal/reconcile"
)

// Message is one inbound chat message.
type Message struct {
	Submitter      string
	Text           string
	Attachment     io.Reader
	AttachmentName string
}

// Document is a file sent back to the submitter.
type Document struct {
	Name        string
	ContentType string
	Caption     string
	Data        []byte
}

// Reply is the router's answer to one message.
type Reply struct {
	Text     string
	Document *Document
}

// Ingester classifies and stores submitted numbers.
type Ingester interface {
	Submit(ctx context.Context, submitter, raw string) (ingest.Result, error)
	SubmitBatch(ctx context.Context, submitter string, raws []string) (ingest.BatchResult, error)
}

// Transfer moves records to and from spreadsheet files.
type Transfer interface {
	Export(ctx context.Context, w io.Writer, format reconcile.Format) (reconcile.ExportSummary, error)
	Import(ctx context.Context, r io.Reader, format reconcile.Format) (reconcile.ImportSummary, error)
	DefaultFormat() reconcile.Format
}

// Router dispatches chat messages.
type Router struct {
	ingester Ingester
	transfer Transfer
	logger   *slog.Logger
}

// NewRouter builds a router. A nil logger discards output.
func NewRouter(ingester Ingester, transfer Transfer, logger *slog.Logger) *Router {
	return &Router{
		ingester: ingester,
		transfer: transfer,
		logger:   logging.NewComponentLogger(logger, "chat"),
	}
}

// Handle answers one message. Failures become generic replies and are logged.
func (r *Router) Handle(ctx context.Context, msg Message) Reply {
	logger := logging.WithContext(ctx, r.logger).With(logging.String(logging.FieldSubmitter, msg.Submitter))
	text := strings.TrimSpace(msg.Text)

	command, args, isCommand := parseCommand(text)
	if !isCommand {
		if text == "" {
			if msg.Attachment != nil {
				return Reply{Text: importUsage}
			}
			return Reply{Text: helpText}
		}
		return r.single(ctx, logger, msg.Submitter, text)
	}

	switch command {
	case "start", "help":
		return Reply{Text: helpText}
	case "batch":
		return r.batch(ctx, logger, msg.Submitter, args)
	case "export":
		return r.export(ctx, logger, args)
	case "import":
		return r.importFile(ctx, logger, msg)
	default:
		return Reply{Text: helpText}
	}
}

func (r *Router) single(ctx context.Context, logger *slog.Logger, submitter, text string) Reply {
	res, err := r.ingester.Submit(ctx, submitter, phone.Clean(text))
	if err != nil {
		return r.failure(logger, "submit failed", err)
	}
	return Reply{Text: singleReply(res)}
}

func (r *Router) batch(ctx context.Context, logger *slog.Logger, submitter, args string) Reply {
	tokens := splitNumbers(args)
	if len(tokens) == 0 {
		return Reply{Text: batchUsage}
	}
	res, err := r.ingester.SubmitBatch(ctx, submitter, tokens)
	if err != nil {
		var tooLarge *ingest.BatchTooLargeError
		if errors.As(err, &tooLarge) {
			return Reply{Text: batchTooLargeReply(tooLarge.Limit)}
		}
		return r.failure(logger, "batch failed", err)
	}
	return Reply{Text: batchReply(res)}
}

func (r *Router) export(ctx context.Context, logger *slog.Logger, args string) Reply {
	format := r.transfer.DefaultFormat()
	if arg := strings.TrimSpace(args); arg != "" {
		parsed, err := reconcile.ParseFormat(strings.Fields(arg)[0])
		if err != nil {
			return Reply{Text: unsupportedFormatReply(arg)}
		}
		format = parsed
	}

	var buf bytes.Buffer
	if _, err := r.transfer.Export(ctx, &buf, format); err != nil {
		return r.failure(logger, "export failed", err)
	}
	return Reply{
		Text: exportCaption,
		Document: &Document{
			Name:        "clients." + format.Ext(),
			ContentType: format.ContentType(),
			Caption:     exportCaption,
			Data:        buf.Bytes(),
		},
	}
}

func (r *Router) importFile(ctx context.Context, logger *slog.Logger, msg Message) Reply {
	if msg.Attachment == nil {
		return Reply{Text: importUsage}
	}
	format := r.transfer.DefaultFormat()
	if name := strings.TrimSpace(msg.AttachmentName); name != "" {
		detected, ok := reconcile.FormatFromName(name)
		if !ok {
			return Reply{Text: unsupportedFormatReply(name)}
		}
		format = detected
	}

	summary, err := r.transfer.Import(ctx, msg.Attachment, format)
	if err != nil {
		var mfe *reconcile.MalformedFileError
		if errors.As(err, &mfe) {
			return Reply{Text: importFailedReply(mfe.Reason)}
		}
		return r.failure(logger, "import failed", err)
	}
	return Reply{Text: importReply(summary)}
}

func (r *Router) failure(logger *slog.Logger, msg string, err error) Reply {
	kind := errs.KindOf(err)
	logging.ErrorWithContext(logger, msg, string(kind),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "see storage health with `clientbook health`"),
	)
	return Reply{Text: failureReply}
}

// parseCommand splits "/cmd@bot args" into its parts.
func parseCommand(text string) (string, string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, rest := text, ""
	if idx := strings.IndexFunc(text, unicode.IsSpace); idx >= 0 {
		head, rest = text[:idx], text[idx+1:]
	}
	command := strings.TrimPrefix(head, "/")
	if at := strings.IndexByte(command, '@'); at >= 0 {
		command = command[:at]
	}
	return strings.ToLower(command), rest, true
}

func splitNumbers(args string) []string {
	fields := strings.FieldsFunc(args, func(r rune) bool {
		return unicode.IsSpace(r) || r == ',' || r == '，' || r == ';'
	})
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		if cleaned := phone.Clean(field); cleaned != "" {
			tokens = append(tokens, cleaned)
		}
	}
	return tokens
}
