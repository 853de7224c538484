package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/cocktail-club/internal/apperror"
	"github.com/sakif/cocktail-club/internal/model"
	"github.com/sakif/cocktail-club/internal/repository"
)

// SaveRecipe stores the recipe body as JSON. (user_id, slug) is unique, so
// saving the same recipe twice is a conflict.
func (db *DB) SaveRecipe(ctx context.Context, saved *model.SavedRecipe) error {
	body, err := json.Marshal(saved.Recipe)
	if err != nil {
		return fmt.Errorf("sqlite: encoding recipe: %w", err)
	}

	saved.ID = xid.New().String()
	saved.CreatedAt = time.Now().UTC()

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO saved_recipes (id, user_id, slug, recipe, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		saved.ID,
		saved.UserID,
		saved.Slug,
		string(body),
		saved.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("saved recipe", saved.Slug)
		}
		return fmt.Errorf("sqlite: saving recipe %s: %w", saved.Slug, err)
	}
	return nil
}

// ListSavedRecipes returns a user's recipes, newest first.
func (db *DB) ListSavedRecipes(ctx context.Context, userID string, opts repository.ListOptions) ([]model.SavedRecipe, error) {
	limit, offset := clampPage(opts)

	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, slug, recipe, created_at
		 FROM saved_recipes
		 WHERE user_id = ?
		 ORDER BY id DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing saved recipes of %s: %w", userID, err)
	}
	defer rows.Close()

	recipes := make([]model.SavedRecipe, 0, limit)
	for rows.Next() {
		var (
			r    model.SavedRecipe
			body string
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.Slug, &body, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning saved recipe row: %w", err)
		}
		if err := json.Unmarshal([]byte(body), &r.Recipe); err != nil {
			return nil, fmt.Errorf("sqlite: decoding saved recipe %s: %w", r.ID, err)
		}
		recipes = append(recipes, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating saved recipes: %w", err)
	}
	return recipes, nil
}

func (db *DB) CountSavedRecipes(ctx context.Context, userID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM saved_recipes WHERE user_id = ?`, userID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting saved recipes of %s: %w", userID, err)
	}
	return n, nil
}
