package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nerrad567/building-data/internal/history"
	"github.com/nerrad567/building-data/internal/pipeline"
)

// maxListLimit caps the limit query parameter of the run list.
const maxListLimit = 500

// handleListImports returns recent import runs, newest first.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "import history is not configured")
		return
	}

	limit := history.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxListLimit {
			writeBadRequest(w, fmt.Sprintf("limit must be between 1 and %d", maxListLimit))
			return
		}
		limit = n
	}

	runs, err := s.history.List(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing import runs failed", "error", err)
		writeInternalError(w, "listing import runs failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

// handleGetImport returns one import run.
func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	if s.history == nil {
		writeUnavailable(w, "import history is not configured")
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid run id")
		return
	}

	run, err := s.history.Get(r.Context(), id)
	if errors.Is(err, history.ErrRunNotFound) {
		writeNotFound(w, "import run not found")
		return
	}
	if err != nil {
		s.logger.Error("reading import run failed", "run_id", id, "error", err)
		writeInternalError(w, "reading import run failed")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleStartImport runs an import job and swaps the served dataset when it
// succeeds. The response carries the run record.
func (s *Server) handleStartImport(w http.ResponseWriter, r *http.Request) {
	if s.runner == nil {
		writeUnavailable(w, "imports are not configured")
		return
	}

	run, err := s.runner.Run(r.Context(), history.OriginAPI)
	switch {
	case errors.Is(err, pipeline.ErrImportRunning):
		writeError(w, http.StatusConflict, ErrCodeConflict, "an import is already running")
	case err != nil:
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"status":  http.StatusUnprocessableEntity,
			"code":    ErrCodeImportAborted,
			"message": err.Error(),
			"run":     run,
		})
	default:
		writeJSON(w, http.StatusCreated, run)
	}
}
