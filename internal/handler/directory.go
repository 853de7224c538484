package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/cocktail-club/internal/service"
)

type DirectoryHandler struct {
	directory *service.DirectoryService
	logger    *slog.Logger
}

func NewDirectoryHandler(directory *service.DirectoryService, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{directory: directory, logger: logger}
}

// HandleCities → GET /api/citys
func (h *DirectoryHandler) HandleCities(w http.ResponseWriter, r *http.Request) {
	cities, err := h.directory.Cities(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(cities))
}

// HandleBars → GET /api/bars
func (h *DirectoryHandler) HandleBars(w http.ResponseWriter, r *http.Request) {
	bars, err := h.directory.Bars(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(bars))
}

// HandleHotBars → GET /api/bars/hot?limit=
func (h *DirectoryHandler) HandleHotBars(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	bars, err := h.directory.HotBars(r.Context(), limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(bars))
}

// HandleBarsInCity → GET /api/bars/{city}; chi has already unescaped the
// Hangul city name.
func (h *DirectoryHandler) HandleBarsInCity(w http.ResponseWriter, r *http.Request) {
	bars, err := h.directory.BarsInCity(r.Context(), chi.URLParam(r, "city"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(bars))
}
