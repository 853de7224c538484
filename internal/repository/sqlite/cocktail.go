package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sakif/cocktail-club/internal/apperror"
	"github.com/sakif/cocktail-club/internal/model"
)

const cocktailColumns = `id, name, slug, abv, tags, ingredients, steps, image, comment, like_count`

// scanCocktail reads one row. The list columns are stored as JSON arrays.
func scanCocktail(row interface{ Scan(...any) error }) (*model.Cocktail, error) {
	var (
		c                        model.Cocktail
		slug                     sql.NullString
		tags, ingredients, steps string
		likeCount                sql.NullInt64
	)
	err := row.Scan(
		&c.ID,
		&c.Name,
		&slug,
		&c.ABV,
		&tags,
		&ingredients,
		&steps,
		&c.Image,
		&c.Comment,
		&likeCount,
	)
	if err != nil {
		return nil, err
	}

	var slugPtr *string
	if slug.Valid {
		slugPtr = &slug.String
	}
	c.Slug = model.EffectiveSlug(c.ID, slugPtr)
	c.LikeCount = likeCount.Int64

	if c.Tags, err = decodeList(tags); err != nil {
		return nil, fmt.Errorf("decoding tags of cocktail %d: %w", c.ID, err)
	}
	if c.Ingredients, err = decodeList(ingredients); err != nil {
		return nil, fmt.Errorf("decoding ingredients of cocktail %d: %w", c.ID, err)
	}
	if c.Steps, err = decodeList(steps); err != nil {
		return nil, fmt.Errorf("decoding steps of cocktail %d: %w", c.ID, err)
	}
	return &c, nil
}

func decodeList(raw string) ([]string, error) {
	out := []string{}
	if raw == "" {
		return out, nil
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (db *DB) ListCocktails(ctx context.Context) ([]model.Cocktail, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+cocktailColumns+` FROM cocktails ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing cocktails: %w", err)
	}
	defer rows.Close()

	return collectCocktails(rows)
}

// GetCocktail matches the stored slug first, then the decimal id. A cocktail
// without a slug is therefore reachable by the same value EffectiveSlug
// reports for it.
func (db *DB) GetCocktail(ctx context.Context, slugOrID string) (*model.Cocktail, error) {
	c, err := scanCocktail(db.conn.QueryRowContext(ctx,
		`SELECT `+cocktailColumns+`
		 FROM cocktails
		 WHERE slug = ? OR CAST(id AS TEXT) = ?
		 ORDER BY slug = ? DESC
		 LIMIT 1`,
		slugOrID, slugOrID, slugOrID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("cocktail", slugOrID)
		}
		return nil, fmt.Errorf("sqlite: getting cocktail %s: %w", slugOrID, err)
	}
	return c, nil
}

// SearchCocktails is a case-insensitive substring match on the name and the
// raw tag list.
func (db *DB) SearchCocktails(ctx context.Context, keyword string, limit int) ([]model.Cocktail, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	pattern := "%" + escapeLike(strings.ToLower(keyword)) + "%"

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+cocktailColumns+`
		 FROM cocktails
		 WHERE lower(name) LIKE ? ESCAPE '\' OR lower(tags) LIKE ? ESCAPE '\'
		 ORDER BY name
		 LIMIT ?`,
		pattern, pattern, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching cocktails %q: %w", keyword, err)
	}
	defer rows.Close()

	return collectCocktails(rows)
}

func collectCocktails(rows *sql.Rows) ([]model.Cocktail, error) {
	cocktails := make([]model.Cocktail, 0)
	for rows.Next() {
		c, err := scanCocktail(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning cocktail row: %w", err)
		}
		cocktails = append(cocktails, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating cocktails: %w", err)
	}
	return cocktails, nil
}

// escapeLike makes user input literal inside a LIKE pattern.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
