package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/labelbook/internal/core"
)

// readWorkbook reads the "file" part of a multipart upload, bounded by the
// configured maximum size.
func (s *Server) readWorkbook(w http.ResponseWriter, r *http.Request) (string, []byte, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+1<<20) // room for multipart framing

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, maxSize)
		}
		return "", nil, fmt.Errorf("no file provided: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, fmt.Errorf("no file provided: %w", err)
	}
	defer file.Close()

	if header.Size > maxSize {
		return "", nil, fmt.Errorf("%w: %d bytes exceeds %d", core.ErrFileTooLarge, header.Size, maxSize)
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("read upload: %w", err)
	}
	return filepath.Base(header.Filename), data, nil
}

// handleImport starts an import and returns its run id. With ?wait=true the
// import runs within the request and the result is returned instead.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.readWorkbook(w, r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	ctx := withOperator(r.Context(), r)

	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		result, err := s.service.Import(ctx, name, data, nil)
		if err != nil && result == nil {
			respondError(w, r, err, http.StatusInternalServerError)
			return
		}
		writeJSON(w, result)
		return
	}

	runID, err := s.service.StartImport(ctx, name, data)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSONStatus(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

// handlePreview reports what an import would change without writing.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.readWorkbook(w, r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	preview, err := s.service.PreviewImport(r.Context(), name, data)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}
	writeJSON(w, preview)
}

// handleImportProgress streams progress as server-sent events until the run
// ends. Events carry the group and percent; a reconnecting client passes
// lastEventId to skip updates it already has within the current group.
func (s *Server) handleImportProgress(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	lastEventID := r.URL.Query().Get("lastEventId")
	if lastEventID == "" {
		lastEventID = r.Header.Get("Last-Event-ID")
	}

	updates, err := s.service.SubscribeProgress(runID)
	if err != nil {
		respondError(w, r, err, http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	for {
		select {
		case p, ok := <-updates:
			if !ok {
				fmt.Fprint(w, "event: complete\ndata: {}\n\n")
				flusher.Flush()
				return
			}
			id := eventID(p)
			if id == lastEventID {
				continue
			}
			data, _ := json.Marshal(p)
			fmt.Fprintf(w, "id: %s\nevent: progress\ndata: %s\n\n", id, data)
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}

// eventID identifies a progress state: phase, group and percent.
func eventID(p core.Progress) string {
	return fmt.Sprintf("%s:%s:%d", p.Phase, p.Group, p.Percent())
}

// handleImportResult waits for a run to finish and returns its result.
func (s *Server) handleImportResult(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.GetImportResult(r.Context(), chi.URLParam(r, "runID"))
	if err != nil {
		respondError(w, r, err, http.StatusNotFound)
		return
	}
	writeJSON(w, result)
}

// handleCancelImport cancels a running import before its next group.
func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	if err := s.service.CancelImport(chi.URLParam(r, "runID")); err != nil {
		respondError(w, r, err, http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]string{"status": "cancelling"})
}
