package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gosimple/slug"

	"github.com/sakif/cocktail-club/internal/ai"
	"github.com/sakif/cocktail-club/internal/apperror"
	"github.com/sakif/cocktail-club/internal/metrics"
	"github.com/sakif/cocktail-club/internal/model"
	"github.com/sakif/cocktail-club/internal/repository"
)

const maxListItems = 10

// GenerateInput is the AI bartender form. Taste and Keywords are
// comma-separated lists as typed by the user.
type GenerateInput struct {
	BaseSpirit string `json:"baseSpirit" validate:"max=50"`
	Taste      string `json:"rawTaste"   validate:"max=200"`
	Keywords   string `json:"rawKeywords" validate:"max=200"`
}

// RecipeService invents recipes through the AI client and keeps the ones a
// user saves.
type RecipeService struct {
	repo      repository.RecipeRepository
	generator ai.Generator
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewRecipeService(repo repository.RecipeRepository, generator ai.Generator, m *metrics.Metrics, logger *slog.Logger) *RecipeService {
	return &RecipeService{repo: repo, generator: generator, metrics: m, logger: logger}
}

// Generate asks the AI service for a recipe. A base spirit or at least one
// taste is required.
func (s *RecipeService) Generate(ctx context.Context, in GenerateInput) (*model.Recipe, error) {
	if err := validateStruct(in); err != nil {
		return nil, err
	}
	req := ai.Requirements{
		BaseSpirit: strings.TrimSpace(in.BaseSpirit),
		Taste:      splitList(in.Taste),
		Keywords:   splitList(in.Keywords),
	}
	if req.BaseSpirit == "" && len(req.Taste) == 0 {
		return nil, apperror.ValidationFailed("baseSpirit", "a base spirit or a taste is required")
	}

	recipe, err := s.generator.Generate(ctx, req)
	if err != nil {
		s.metrics.RecordUpstreamError("gemini")
		s.logger.Error("recipe generation failed", slog.String("error", err.Error()))
		if errors.Is(err, apperror.ErrUpstream) {
			return nil, err
		}
		return nil, apperror.Upstream("gemini", err)
	}
	return recipe, nil
}

// Save keeps a recipe on the user's page under a slug of its name. Saving a
// recipe with the same name twice is apperror.ErrConflict.
func (s *RecipeService) Save(ctx context.Context, userID string, recipe model.Recipe) (*model.SavedRecipe, error) {
	recipe.Name = strings.TrimSpace(recipe.Name)
	if err := validateStruct(recipe); err != nil {
		return nil, err
	}

	saved := &model.SavedRecipe{
		UserID: userID,
		Slug:   recipeSlug(recipe.Name),
		Recipe: recipe,
	}
	if err := s.repo.SaveRecipe(ctx, saved); err != nil {
		return nil, err
	}
	s.logger.Info("recipe saved",
		slog.String("userID", userID),
		slog.String("slug", saved.Slug),
	)
	return saved, nil
}

func (s *RecipeService) ListSaved(ctx context.Context, userID string, req PageRequest) (Page[model.SavedRecipe], error) {
	req = req.normalize()

	total, err := s.repo.CountSavedRecipes(ctx, userID)
	if err != nil {
		return Page[model.SavedRecipe]{}, fmt.Errorf("service/recipe: counting saved recipes: %w", err)
	}
	items, err := s.repo.ListSavedRecipes(ctx, userID, req.listOptions())
	if err != nil {
		return Page[model.SavedRecipe]{}, fmt.Errorf("service/recipe: listing saved recipes: %w", err)
	}
	return newPage(items, total, req), nil
}

// recipeSlug transliterates the name; names with nothing to transliterate
// fall back to "recipe".
func recipeSlug(name string) string {
	if s := slug.Make(name); s != "" {
		return s
	}
	return "recipe"
}

// splitList turns "sweet, sour,,bitter" into [sweet sour bitter], keeping at
// most maxListItems entries.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
		if len(out) == maxListItems {
			break
		}
	}
	return out
}
