package service

import "github.com/sakif/cocktail-club/internal/repository"

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// PageMeta describes one page of a listing.
type PageMeta struct {
	Total     int  `json:"total"`
	Page      int  `json:"page"`
	Limit     int  `json:"limit"`
	PageCount int  `json:"pageCount"`
	HasPrev   bool `json:"hasPrev"`
	HasNext   bool `json:"hasNext"`
}

// Page is a listing response.
type Page[T any] struct {
	Items []T      `json:"items"`
	Meta  PageMeta `json:"meta"`
}

// PageRequest is a 1-based page number and a page size. Zero values mean
// the first page of DefaultPageLimit items.
type PageRequest struct {
	Page  int
	Limit int
}

func (p PageRequest) normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = DefaultPageLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}

func (p PageRequest) listOptions() repository.ListOptions {
	return repository.ListOptions{Limit: p.Limit, Offset: (p.Page - 1) * p.Limit}
}

func newPage[T any](items []T, total int, p PageRequest) Page[T] {
	if items == nil {
		items = []T{}
	}
	pageCount := (total + p.Limit - 1) / p.Limit
	return Page[T]{
		Items: items,
		Meta: PageMeta{
			Total:     total,
			Page:      p.Page,
			Limit:     p.Limit,
			PageCount: pageCount,
			HasPrev:   p.Page > 1,
			HasNext:   p.Page < pageCount,
		},
	}
}
