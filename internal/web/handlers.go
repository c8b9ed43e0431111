package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/payimport/internal/importer"
	"github.com/JonMunkholm/payimport/internal/logging"
)

// multipartOverhead is extra body allowance for multipart framing.
const multipartOverhead = 1 << 20

// ImportResponse is the JSON body returned by POST /api/imports.
type ImportResponse struct {
	RunID     string        `json:"run_id"`
	FileName  string        `json:"file_name"`
	Rows      int           `json:"rows"`
	Persisted int           `json:"persisted"`
	Created   int           `json:"created"`
	Notified  int           `json:"notified"`
	Errors    []ImportIssue `json:"errors"`
}

// ImportIssue is one row or file error of an import.
type ImportIssue struct {
	Kind    string `json:"kind"`
	Line    int    `json:"line,omitempty"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Action  string `json:"action,omitempty"`
}

func newImportResponse(res *importer.Result) ImportResponse {
	resp := ImportResponse{
		RunID:     res.RunID,
		FileName:  res.FileName,
		Rows:      res.Rows,
		Persisted: res.Persisted,
		Created:   res.Created,
		Notified:  res.Notified,
		Errors:    make([]ImportIssue, 0, len(res.Errors)),
	}
	for _, e := range res.Errors {
		msg := importer.MapError(e)
		resp.Errors = append(resp.Errors, ImportIssue{
			Kind:    e.Kind.String(),
			Line:    e.Line,
			Message: e.Message,
			Code:    msg.Code,
			Action:  msg.Action,
		})
	}
	return resp
}

// onlyFileError reports whether the run was rejected as a whole.
func onlyFileError(res *importer.Result) bool {
	return len(res.Errors) == 1 && errors.Is(res.Errors[0], importer.ErrFileType)
}

// handleImport accepts a multipart upload in field "file" and imports it
// synchronously. Row errors still answer 200; a rejected file answers 422.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			respondError(w, r, fmt.Errorf("file too large: %w", err), http.StatusRequestEntityTooLarge)
			return
		}
		respondError(w, r, fmt.Errorf("no file provided: %w", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, fmt.Errorf("no file provided: %w", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusBadRequest)
		return
	}

	name := filepath.Base(header.Filename)
	log := logging.WithFields(r.Context(), "file", name, "size", len(data))

	if err := s.limiter.Acquire(r.Context()); err != nil {
		if errors.Is(err, ErrTooManyImports) {
			w.Header().Set("Retry-After", "30")
			respondError(w, r, err, http.StatusServiceUnavailable)
			return
		}
		respondError(w, r, err, http.StatusRequestTimeout)
		return
	}
	defer s.limiter.Release()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()

	log.Info("import accepted")
	res, err := s.importer.Run(ctx, importer.UploadedFile{Filename: name, Data: data})
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	status := http.StatusOK
	if onlyFileError(res) {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, newImportResponse(res))
}

// handleHealth reports whether the database is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			logging.FromContext(r.Context()).Error("health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
