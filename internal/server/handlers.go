package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/frytempura/tempura/internal/apperr"
	"github.com/frytempura/tempura/internal/models"
	"github.com/frytempura/tempura/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

// Handler holds API route handlers.
type Handler struct {
	p *pipeline.Pipeline
}

// NewHandler creates a new Handler.
func NewHandler(p *pipeline.Pipeline) *Handler {
	return &Handler{p: p}
}

// ScriptDetail is a catalog entry together with its source text.
type ScriptDetail struct {
	models.ScriptMeta
	Content string `json:"content"`
}

// Status handles GET /api/status.
//
//	@Summary		Snapshot of the most recent build-and-deploy run
//	@Tags			status
//	@Produce		json
//	@Success		200	{object}	models.Status
//	@Security		BearerAuth
//	@Router			/status [get]
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.p.Status())
}

// TriggerBuild handles POST /api/build.
//
//	@Summary		Run a full rebuild now
//	@Tags			build
//	@Produce		json
//	@Success		200	{object}	models.Status
//	@Failure		422	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/build [post]
func (h *Handler) TriggerBuild(w http.ResponseWriter, r *http.Request) {
	if err := h.p.Rebuild(r.Context(), "api"); err != nil {
		if errors.Is(err, apperr.ErrBuildFailed) {
			// Compiler diagnostics go back to the caller; they describe the
			// user's own sources, not server internals.
			writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
		} else {
			slog.Error("build trigger failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, h.p.Status())
}

// ListScripts handles GET /api/scripts.
//
//	@Summary		List scripts in the registry
//	@Tags			scripts
//	@Produce		json
//	@Success		200	{object}	map[string]any
//	@Security		BearerAuth
//	@Router			/scripts [get]
func (h *Handler) ListScripts(w http.ResponseWriter, _ *http.Request) {
	scripts := h.p.Catalog().Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"scripts": scripts,
		"total":   len(scripts),
	})
}

// GetScript handles GET /api/scripts/{name}.
//
//	@Summary		Get a script with its source text
//	@Tags			scripts
//	@Produce		json
//	@Param			name	path		string	true	"Script name"
//	@Success		200		{object}	ScriptDetail
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/scripts/{name} [get]
func (h *Handler) GetScript(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	meta, data, err := h.p.ReadScript(name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get script failed", slog.String("name", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, ScriptDetail{ScriptMeta: meta, Content: string(data)})
}

// Search handles GET /api/search.
//
//	@Summary		Search scripts by name, description, or export
//	@Tags			search
//	@Produce		json
//	@Param			q	query		string	true	"Search query"
//	@Success		200	{object}	map[string]any
//	@Failure		400	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	results := h.p.Catalog().Search(q)
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}
