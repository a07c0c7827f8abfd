package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/labelbook/internal/core"
	"github.com/JonMunkholm/labelbook/internal/storage"
)

// maxExportRequest bounds the JSON body of an export request.
const maxExportRequest = 1 << 20

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{"status": "ok", "runs": s.service.LimiterStatus()})
}

func (s *Server) handleLanguages(w http.ResponseWriter, r *http.Request) {
	langs, err := s.service.Languages(r.Context())
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, langs)
}

func (s *Server) handleEntities(w http.ResponseWriter, r *http.Request) {
	names, err := s.service.Entities(r.Context())
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, names)
}

func (s *Server) handleSheets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.service.Sheets())
}

// handleExport builds a workbook for the JSON request body and returns it
// as an attachment. Empty languages and filter fall back to the configured
// export defaults.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var req core.ExportRequest
	if r.ContentLength != 0 {
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxExportRequest))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			badRequest(w, "invalid export request: "+err.Error(), "REQ001")
			return
		}
	}
	if req.Filter != "" {
		filter, ok := core.ParseLabelFilter(string(req.Filter))
		if !ok {
			badRequest(w, fmt.Sprintf("unknown filter %q", req.Filter), "REQ002")
			return
		}
		req.Filter = filter
	}
	if err := s.applyExportDefaults(&req); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}

	result, err := s.service.Export(withOperator(r.Context(), r), req)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", storage.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, result.FileName))
	w.Header().Set("X-Run-Id", result.RunID)
	w.Header().Set("X-Omitted-Nodes", strconv.Itoa(len(result.Omitted)))
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	w.Write(result.Data)
}

func (s *Server) applyExportDefaults(req *core.ExportRequest) error {
	if len(req.Languages) == 0 {
		codes, err := s.cfg.ExportLanguageCodes()
		if err != nil {
			return err
		}
		req.Languages = codes
	}
	if req.Filter == "" {
		req.Filter, _ = core.ParseLabelFilter(s.cfg.Export.Filter)
	}
	return nil
}

// handleRuns lists recorded runs, newest first.
func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			badRequest(w, "limit must be a non-negative integer", "REQ003")
			return
		}
		limit = n
	}
	runs, err := s.service.Runs(r.Context(), limit)
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, runs)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.Run(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, run)
}

// handleArchivedWorkbook downloads the workbook a run exported or imported.
func (s *Server) handleArchivedWorkbook(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.service.ArchivedWorkbook(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", storage.ContentTypeXLSX)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Write(data)
}
