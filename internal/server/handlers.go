package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/13maks37/sanctions-checker/internal/db"
	"github.com/13maks37/sanctions-checker/internal/server/middleware"
	"github.com/13maks37/sanctions-checker/internal/sources"
	"github.com/13maks37/sanctions-checker/internal/spreadsheet"
	"github.com/13maks37/sanctions-checker/internal/types"
)

// xlsxContentType is the media type of report downloads.
const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// SourceResponse describes one configured source.
type SourceResponse struct {
	Name     string `json:"name"`
	URL      string `json:"url"`
	Format   string `json:"format"`
	Schema   string `json:"schema"`
	RenderJS bool   `json:"render_js,omitempty"`
}

// ScreenNamesRequest is the body of POST /screen/names.
type ScreenNamesRequest struct {
	Companies []string `json:"companies" validate:"required,min=1,max=10000"`
}

// ScreenResponse is the JSON result of a screening run.
type ScreenResponse struct {
	RunID  string                 `json:"run_id,omitempty"`
	Report *types.ScreeningReport `json:"report"`
}

// handleHealth returns server health status
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSources lists the configured sources in report order.
func (s *Server) handleSources(w http.ResponseWriter, _ *http.Request) {
	srcs := s.pipeline.Sources()
	out := make([]SourceResponse, 0, len(srcs))
	for _, src := range srcs {
		out = append(out, SourceResponse{
			Name:     src.Name,
			URL:      src.URL,
			Format:   string(src.Format),
			Schema:   sources.Describe(src.Schema),
			RenderJS: src.RenderJS,
		})
	}
	s.jsonResponse(w, http.StatusOK, out)
}

// handleScreen screens the company column of an uploaded workbook.
func (s *Server) handleScreen(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid multipart form: "+err.Error())
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Missing form file \"file\"")
		return
	}
	defer func() { _ = file.Close() }()

	if !spreadsheet.IsSupportedFile(header.Filename) {
		s.errorResponse(w, http.StatusBadRequest, "Unsupported file: "+spreadsheet.UnsupportedFileMessage)
		return
	}

	path, err := s.saveUpload(file, header.Filename)
	if err != nil {
		s.logger.Error("failed to save upload", slog.Any("error", err))
		s.errorResponse(w, http.StatusInternalServerError, "Failed to store upload")
		return
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			s.logger.Warn("failed to remove upload", slog.String("path", path), slog.Any("error", err))
		}
	}()

	column := s.companyColumn
	if c := strings.TrimSpace(r.FormValue("column")); c != "" {
		column = c
	}
	companies, err := readCompanies(path, column)
	if err != nil {
		s.errorResponse(w, statusOr(err, http.StatusBadRequest), err.Error())
		return
	}
	if len(companies) == 0 {
		s.errorResponse(w, http.StatusBadRequest, fmt.Sprintf("No company names in column %q", column))
		return
	}

	s.screen(w, r, companies, wantsJSON(r))
}

// handleScreenNames screens a JSON list of company names.
func (s *Server) handleScreenNames(w http.ResponseWriter, r *http.Request) {
	var req ScreenNamesRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, (&ErrValidation{Field: "companies", Message: err.Error()}).Error())
		return
	}
	s.screen(w, r, req.Companies, true)
}

// screen runs the pipeline, stores the run and writes the report.
func (s *Server) screen(w http.ResponseWriter, r *http.Request, companies []string, asJSON bool) {
	logger := s.logger
	if user, err := middleware.GetUser(r); err == nil {
		logger = logger.With(slog.String("user", user))
	}
	logger.Info("screening request", slog.Int("companies", len(companies)))

	report, err := s.pipeline.Run(r.Context(), companies)
	if err != nil {
		logger.Warn("screening aborted", slog.Any("error", err))
		s.errorResponse(w, http.StatusServiceUnavailable, "Screening aborted: "+err.Error())
		return
	}

	var runID string
	if s.store != nil {
		id, err := s.store.SaveRun(r.Context(), report)
		if err != nil {
			// The report is still useful without its stored copy.
			logger.Error("failed to save run", slog.Any("error", err))
		} else {
			runID = id.String()
			w.Header().Set("X-Run-ID", runID)
		}
	}

	if asJSON {
		s.jsonResponse(w, http.StatusOK, ScreenResponse{RunID: runID, Report: report})
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment",
		map[string]string{"filename": spreadsheet.ReportFileName(report.CreatedAt)}))
	if err := spreadsheet.WriteReport(w, report); err != nil {
		logger.Error("failed to write report", slog.Any("error", err))
	}
}

// handleListRuns lists stored runs, newest first.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorResponse(w, HTTPStatus(ErrNoStore), ErrNoStore.Error())
		return
	}

	limit := db.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			s.errorResponse(w, http.StatusBadRequest, "limit must be between 1 and 1000")
			return
		}
		limit = n
	}

	runs, err := s.store.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list runs", slog.Any("error", err))
		s.errorResponse(w, HTTPStatus(err), "Failed to list runs")
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// handleGetRun returns one stored run.
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		s.errorResponse(w, HTTPStatus(ErrNoStore), ErrNoStore.Error())
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid run ID")
		return
	}

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		status := HTTPStatus(err)
		if status == http.StatusInternalServerError {
			s.logger.Error("failed to get run", slog.String("id", id.String()), slog.Any("error", err))
		}
		s.errorResponse(w, status, err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, run)
}

// saveUpload copies an upload into the upload dir under a unique name.
func (s *Server) saveUpload(src io.Reader, filename string) (string, error) {
	path := filepath.Join(s.uploadDir, uuid.NewString()+"_"+filepath.Base(filename))
	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func readCompanies(path, column string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return spreadsheet.ReadCompanies(f, column)
}

// wantsJSON reports whether the client asked for a JSON report.
func wantsJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mediaType == "application/json" {
			return true
		}
	}
	return r.URL.Query().Get("format") == "json"
}

// statusOr returns HTTPStatus(err) unless that is 500, in which case fallback.
func statusOr(err error, fallback int) int {
	if status := HTTPStatus(err); status != http.StatusInternalServerError {
		return status
	}
	return fallback
}

// jsonResponse writes a JSON response
func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response", slog.Any("error", err))
	}
}

// errorResponse writes an error JSON response
func (s *Server) errorResponse(w http.ResponseWriter, status int, message string) {
	s.jsonResponse(w, status, map[string]string{"error": message})
}
