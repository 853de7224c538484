package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/cocktail-club/internal/apperror"
	"github.com/sakif/cocktail-club/internal/service"
)

// CocktailHandler serves the catalog and the like buttons.
type CocktailHandler struct {
	cocktails *service.CocktailService
	likes     *service.LikeService
	logger    *slog.Logger
}

func NewCocktailHandler(cocktails *service.CocktailService, likes *service.LikeService, logger *slog.Logger) *CocktailHandler {
	return &CocktailHandler{cocktails: cocktails, likes: likes, logger: logger}
}

// HandleList → GET /api/cocktails
func (h *CocktailHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	items, err := h.cocktails.List(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

// HandleGet → GET /api/cocktails/{id}; the segment is a slug or a decimal id.
func (h *CocktailHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	c, err := h.cocktails.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// HandleSearch → GET /api/search/cocktails?keyword=
func (h *CocktailHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	items, err := h.cocktails.Search(r.Context(), r.URL.Query().Get("keyword"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newList(items))
}

// HandleLikeStatus → GET /api/cocktails/{id}/like (optional auth)
func (h *CocktailHandler) HandleLikeStatus(w http.ResponseWriter, r *http.Request) {
	cocktailID, err := cocktailIDParam(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	st, err := h.likes.Status(r.Context(), cocktailID, viewerID(r))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleLike → POST /api/cocktails/{id}/like
func (h *CocktailHandler) HandleLike(w http.ResponseWriter, r *http.Request) {
	cocktailID, id, err := h.likeTarget(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	st, err := h.likes.Add(r.Context(), cocktailID, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// HandleUnlike → DELETE /api/cocktails/{id}/like
func (h *CocktailHandler) HandleUnlike(w http.ResponseWriter, r *http.Request) {
	cocktailID, id, err := h.likeTarget(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	st, err := h.likes.Remove(r.Context(), cocktailID, id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *CocktailHandler) likeTarget(r *http.Request) (int64, string, error) {
	id, err := identity(r)
	if err != nil {
		return 0, "", err
	}
	cocktailID, err := cocktailIDParam(r)
	if err != nil {
		return 0, "", err
	}
	return cocktailID, id.UserID, nil
}

func cocktailIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperror.ValidationFailed("id", "cocktail id must be a positive integer")
	}
	return id, nil
}
