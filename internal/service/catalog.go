package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/sakif/cocktail-club/internal/apperror"
	"github.com/sakif/cocktail-club/internal/model"
	"github.com/sakif/cocktail-club/internal/repository"
)

const (
	maxKeywordRunes = 100
	maxSearchHits   = 100
	DefaultHotBars  = 10
)

// CocktailService serves the read-only cocktail catalog.
type CocktailService struct {
	repo repository.CocktailRepository
}

func NewCocktailService(repo repository.CocktailRepository) *CocktailService {
	return &CocktailService{repo: repo}
}

func (s *CocktailService) List(ctx context.Context) ([]model.Cocktail, error) {
	cocktails, err := s.repo.ListCocktails(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/cocktail: listing: %w", err)
	}
	return cocktails, nil
}

// Get looks a cocktail up by slug, or by decimal id for entries without one.
func (s *CocktailService) Get(ctx context.Context, slugOrID string) (*model.Cocktail, error) {
	slugOrID = strings.TrimSpace(slugOrID)
	if slugOrID == "" {
		return nil, apperror.ValidationFailed("slug", "slug is required")
	}
	return s.repo.GetCocktail(ctx, slugOrID)
}

// Search matches the keyword against names and tags, case-insensitively.
func (s *CocktailService) Search(ctx context.Context, keyword string) ([]model.Cocktail, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, apperror.ValidationFailed("keyword", "keyword is required")
	}
	if utf8.RuneCountInString(keyword) > maxKeywordRunes {
		return nil, apperror.ValidationFailed("keyword", fmt.Sprintf("keyword must not exceed %d characters", maxKeywordRunes))
	}

	hits, err := s.repo.SearchCocktails(ctx, keyword, maxSearchHits)
	if err != nil {
		return nil, fmt.Errorf("service/cocktail: searching %q: %w", keyword, err)
	}
	return hits, nil
}

// DirectoryService serves cities and bars for the map page.
type DirectoryService struct {
	repo repository.DirectoryRepository
}

func NewDirectoryService(repo repository.DirectoryRepository) *DirectoryService {
	return &DirectoryService{repo: repo}
}

func (s *DirectoryService) Cities(ctx context.Context) ([]model.City, error) {
	cities, err := s.repo.ListCities(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/directory: listing cities: %w", err)
	}
	return cities, nil
}

func (s *DirectoryService) Bars(ctx context.Context) ([]model.Bar, error) {
	bars, err := s.repo.ListBars(ctx)
	if err != nil {
		return nil, fmt.Errorf("service/directory: listing bars: %w", err)
	}
	return bars, nil
}

// HotBars returns the most recently added bars.
func (s *DirectoryService) HotBars(ctx context.Context, limit int) ([]model.Bar, error) {
	if limit <= 0 {
		limit = DefaultHotBars
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	bars, err := s.repo.ListRecentBars(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("service/directory: listing hot bars: %w", err)
	}
	return bars, nil
}

// BarsInCity resolves the city by its display name. An unknown city is
// apperror.ErrNotFound rather than an empty list.
func (s *DirectoryService) BarsInCity(ctx context.Context, cityName string) ([]model.Bar, error) {
	cityName = strings.TrimSpace(cityName)
	if cityName == "" {
		return nil, apperror.ValidationFailed("city", "city is required")
	}

	city, err := s.repo.GetCityByName(ctx, cityName)
	if err != nil {
		return nil, err
	}
	bars, err := s.repo.ListBarsByCity(ctx, city.ID)
	if err != nil {
		return nil, fmt.Errorf("service/directory: listing bars in %s: %w", cityName, err)
	}
	return bars, nil
}
