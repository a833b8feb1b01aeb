package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"clientbook/internal/chat"
	"clientbook/internal/clients"
	"clientbook/internal/errs"
	"clientbook/internal/logging"
	"clientbook/internal/reconcile"
)

type messageRequest struct {
	Submitter string `json:"submitter"`
	Text      string `json:"text"`
}

type documentPayload struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

type messageResponse struct {
	Text     string           `json:"text"`
	Document *documentPayload `json:"document,omitempty"`
}

type skippedLine struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

type importResponse struct {
	ID         string        `json:"id"`
	Format     string        `json:"format"`
	Rows       int           `json:"rows"`
	Added      int           `json:"added"`
	Duplicates int           `json:"duplicates"`
	Skipped    int           `json:"skipped"`
	Lines      []skippedLine `json:"skipped_lines,omitempty"`
	Summary    string        `json:"summary"`
}

type statusResponse struct {
	Records  int                    `json:"records"`
	Healthy  bool                   `json:"healthy"`
	Database clients.DatabaseHealth `json:"database"`
	LockPath string                 `json:"lock_path"`
}

const maxMessageBytes = 1 << 20

func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid message payload")
		return
	}

	reply := s.router.Handle(r.Context(), chat.Message{Submitter: req.Submitter, Text: req.Text})
	resp := messageResponse{Text: reply.Text}
	if doc := reply.Document; doc != nil {
		resp.Document = &documentPayload{Name: doc.Name, ContentType: doc.ContentType, Data: doc.Data}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.Import.MaxFileBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+(1<<20))
	if err := r.ParseMultipartForm(limit); err != nil {
		writeError(w, http.StatusBadRequest, "expected multipart form with a file field")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer file.Close()

	format, err := s.requestFormat(r.FormValue("format"), header.Filename)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.transfer.Import(r.Context(), file, format)
	if err != nil {
		var mfe *reconcile.MalformedFileError
		if errors.As(err, &mfe) {
			writeError(w, http.StatusUnprocessableEntity, mfe.Reason)
			return
		}
		s.internalError(w, r, "import failed", err)
		return
	}

	logging.WithContext(r.Context(), s.logger).Info("import uploaded",
		logging.String(logging.FieldImportID, summary.ID),
		logging.String(logging.FieldSubmitter, strings.TrimSpace(r.FormValue("submitter"))),
		logging.String("file", header.Filename),
	)

	resp := importResponse{
		ID:         summary.ID,
		Format:     string(summary.Format),
		Rows:       summary.Rows,
		Added:      summary.Added,
		Duplicates: summary.Duplicates,
		Skipped:    summary.Skipped,
		Summary:    summary.Summary(),
	}
	for _, row := range summary.SkippedLines {
		resp.Lines = append(resp.Lines, skippedLine{Line: row.Line, Reason: row.Reason})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := s.requestFormat(r.URL.Query().Get("format"), "")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var buf bytes.Buffer
	if _, err := s.transfer.Export(r.Context(), &buf, format); err != nil {
		s.internalError(w, r, "export failed", err)
		return
	}

	name := fmt.Sprintf("%s-%s.%s", s.cfg.Export.FilePrefix, time.Now().Format("20060102-150405"), format.Ext())
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	health, err := s.store.CheckHealth(r.Context())
	if err != nil {
		s.internalError(w, r, "health check failed", err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Records:  health.TotalRecords,
		Healthy:  health.Healthy(),
		Database: health,
		LockPath: s.lockPath,
	})
}

func (s *Server) requestFormat(explicit, filename string) (reconcile.Format, error) {
	if strings.TrimSpace(explicit) != "" {
		return reconcile.ParseFormat(explicit)
	}
	if strings.TrimSpace(filename) != "" {
		if format, ok := reconcile.FormatFromName(filename); ok {
			return format, nil
		}
		return "", fmt.Errorf("unsupported file type %q", filename)
	}
	return s.transfer.DefaultFormat(), nil
}

func (s *Server) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), msg, string(errs.KindOf(err)),
		logging.Error(err),
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}
