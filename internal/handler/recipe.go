package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/cocktail-club/internal/model"
	"github.com/sakif/cocktail-club/internal/service"
)

// RecipeHandler is the AI bartender.
type RecipeHandler struct {
	recipes *service.RecipeService
	logger  *slog.Logger
}

func NewRecipeHandler(recipes *service.RecipeService, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{recipes: recipes, logger: logger}
}

type recipeResponse struct {
	Recipe *model.Recipe `json:"recipe"`
}

// HandleGenerate → POST /api/gemeni
//
// REQUEST BODY: {"baseSpirit": "gin", "rawTaste": "sweet, sour", "rawKeywords": "mint"}
func (h *RecipeHandler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	var in service.GenerateInput
	if err := decodeJSON(r, w, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}
	recipe, err := h.recipes.Generate(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, recipeResponse{Recipe: recipe})
}

// HandleSave → POST /api/gemeni/save
//
// REQUEST BODY: {"recipe": {"name": ..., "ingredient": [...], "step": [...]}}
func (h *RecipeHandler) HandleSave(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var body struct {
		Recipe model.Recipe `json:"recipe"`
	}
	if err := decodeJSON(r, w, &body); err != nil {
		writeError(w, h.logger, err)
		return
	}
	saved, err := h.recipes.Save(r.Context(), id.UserID, body.Recipe)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// HandleListSaved → GET /api/gemeni/save?page=&limit=
func (h *RecipeHandler) HandleListSaved(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	req, err := pageRequest(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	page, err := h.recipes.ListSaved(r.Context(), id.UserID, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}
