package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/leapstack-labs/stepcat/pkg/core"
)

// UploadResponse is returned by a successful upload.
type UploadResponse struct {
	Message    string `json:"message"`
	Filename   string `json:"filename"`
	Generation int64  `json:"generation"`
	Tables     int    `json:"tables"`
}

// TablesResponse wraps catalog rows.
type TablesResponse struct {
	Tables []core.CatalogRow `json:"tables"`
}

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

const uploadMessage = "Configuration uploaded and replaced successfully"

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: %v", core.ErrInvalidArgument, err))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: multipart field \"file\" is required", core.ErrInvalidArgument))
		return
	}
	defer func() { _ = file.Close() }()

	raw, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, fmt.Errorf("%w: failed to read upload: %v", core.ErrInvalidArgument, err))
		return
	}

	res, err := s.svc.Upload(r.Context(), header.Filename, raw)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, UploadResponse{
		Message:    uploadMessage,
		Filename:   res.Filename,
		Generation: res.Generation,
		Tables:     len(res.Tables),
	})
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	rows, err := s.svc.Tables(r.Context(), pathParam(r, "filename"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TablesResponse{Tables: rows})
}

func (s *Server) handleConfiguration(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.svc.Configuration(r.Context(), pathParam(r, "filename"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	filename := pathParam(r, "filename")
	if err := s.svc.Delete(r.Context(), filename); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Configuration deleted", "filename": filename})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"configurations": list})
}

func (s *Server) handleLineage(w http.ResponseWriter, r *http.Request) {
	rows, err := s.svc.Lineage(r.Context(), pathParam(r, "database"), pathParam(r, "table"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, TablesResponse{Tables: rows})
}

// pathParam returns a decoded URL parameter. chi matches against RawPath
// when the request has one, so only then are the values still escaped.
func pathParam(r *http.Request, name string) string {
	v := chi.URLParam(r, name)
	if r.URL.RawPath == "" {
		return v
	}
	if decoded, err := url.PathUnescape(v); err == nil {
		return decoded
	}
	return v
}

// writeError maps err onto a status code. Client errors carry the cause
// message; server errors are logged and reported generically.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Detail: "Configuration not found"})
	case errors.Is(err, core.ErrInvalidDocument), errors.Is(err, core.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Detail: err.Error()})
	default:
		s.logger.Error("request failed",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Detail: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
