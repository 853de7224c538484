package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sakif/cocktail-club/internal/apperror"
	"github.com/sakif/cocktail-club/internal/model"
)

const barSelect = `SELECT b.id, b.name, COALESCE(c.name, ''), b.lat, b.lng, b.address, b.phone, b.website, COALESCE(b.comment, '')
	FROM bars b
	LEFT JOIN cities c ON c.id = b.city_id`

func (db *DB) ListCities(ctx context.Context) ([]model.City, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, name, COALESCE(image, '') FROM cities ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing cities: %w", err)
	}
	defer rows.Close()

	cities := make([]model.City, 0)
	for rows.Next() {
		var c model.City
		if err := rows.Scan(&c.ID, &c.Name, &c.Image); err != nil {
			return nil, fmt.Errorf("sqlite: scanning city row: %w", err)
		}
		cities = append(cities, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating cities: %w", err)
	}
	return cities, nil
}

func (db *DB) GetCityByName(ctx context.Context, name string) (*model.City, error) {
	var c model.City
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, COALESCE(image, '') FROM cities WHERE name = ?`, name,
	).Scan(&c.ID, &c.Name, &c.Image)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("city", name)
		}
		return nil, fmt.Errorf("sqlite: getting city %s: %w", name, err)
	}
	return &c, nil
}

func (db *DB) ListBars(ctx context.Context) ([]model.Bar, error) {
	return db.queryBars(ctx, barSelect+` ORDER BY b.id`)
}

// ListRecentBars backs the "hot bars" strip: the most recently added venues.
func (db *DB) ListRecentBars(ctx context.Context, limit int) ([]model.Bar, error) {
	if limit <= 0 {
		limit = 10
	}
	return db.queryBars(ctx, barSelect+` ORDER BY b.id DESC LIMIT ?`, limit)
}

func (db *DB) ListBarsByCity(ctx context.Context, cityID int64) ([]model.Bar, error) {
	return db.queryBars(ctx, barSelect+` WHERE b.city_id = ? ORDER BY b.id`, cityID)
}

func (db *DB) queryBars(ctx context.Context, query string, args ...any) ([]model.Bar, error) {
	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing bars: %w", err)
	}
	defer rows.Close()

	bars := make([]model.Bar, 0)
	for rows.Next() {
		var b model.Bar
		if err := rows.Scan(&b.ID, &b.Name, &b.City, &b.Lat, &b.Lng, &b.Address, &b.Phone, &b.Website, &b.Desc); err != nil {
			return nil, fmt.Errorf("sqlite: scanning bar row: %w", err)
		}
		bars = append(bars, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating bars: %w", err)
	}
	return bars, nil
}
