package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/sakif/cocktail-club/internal/apperror"
	"github.com/sakif/cocktail-club/internal/model"
)

// LIKE LEDGER STATEMENTS:
// cocktails.like_count is a cached COUNT(*) of cocktail_likes. The service
// composes these statements inside one transaction; the counter only moves
// when the membership statement reports that it actually changed a row.
// Counter updates are relative ("like_count + 1"), never a write-back of a
// value read earlier, so concurrent toggles by different users cannot lose
// an update.

// CocktailLikeCount reads the counter inside the transaction. A NULL counter
// reads as zero.
func (s queries) CocktailLikeCount(ctx context.Context, cocktailID int64) (int64, error) {
	var count sql.NullInt64
	err := s.q.QueryRowContext(ctx,
		`SELECT like_count FROM cocktails WHERE id = ?`, cocktailID,
	).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, apperror.NotFound("cocktail", strconv.FormatInt(cocktailID, 10))
		}
		return 0, fmt.Errorf("sqlite: reading like count for cocktail %d: %w", cocktailID, err)
	}
	return count.Int64, nil
}

// InsertLike adds the (cocktail, user) pair. An existing pair is left alone and
// reported as false rather than as an error.
func (s queries) InsertLike(ctx context.Context, cocktailID int64, userID string) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`INSERT INTO cocktail_likes (cocktail_id, user_id, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (cocktail_id, user_id) DO NOTHING`,
		cocktailID, userID, time.Now().UTC(),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: inserting like (%d, %s): %w", cocktailID, userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n == 1, nil
}

// DeleteLike removes the pair and reports whether it existed.
func (s queries) DeleteLike(ctx context.Context, cocktailID int64, userID string) (bool, error) {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM cocktail_likes WHERE cocktail_id = ? AND user_id = ?`,
		cocktailID, userID,
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: deleting like (%d, %s): %w", cocktailID, userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n == 1, nil
}

func (s queries) IncrementLikeCount(ctx context.Context, cocktailID int64) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE cocktails SET like_count = COALESCE(like_count, 0) + 1 WHERE id = ?`,
		cocktailID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: incrementing like count for cocktail %d: %w", cocktailID, err)
	}
	return nil
}

// DecrementLikeCount is floored at zero so an already drifted counter never
// turns negative.
func (s queries) DecrementLikeCount(ctx context.Context, cocktailID int64) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE cocktails SET like_count = MAX(COALESCE(like_count, 0) - 1, 0) WHERE id = ?`,
		cocktailID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: decrementing like count for cocktail %d: %w", cocktailID, err)
	}
	return nil
}

// LikeStatus is a single read outside any transaction. Membership is only
// looked up for a logged-in viewer.
func (db *DB) LikeStatus(ctx context.Context, cocktailID int64, userID string) (*model.LikeStatus, error) {
	var (
		count sql.NullInt64
		liked bool
	)
	err := db.conn.QueryRowContext(ctx,
		`SELECT c.like_count,
		        ? <> '' AND EXISTS (
		            SELECT 1 FROM cocktail_likes l
		            WHERE l.cocktail_id = c.id AND l.user_id = ?
		        )
		 FROM cocktails c
		 WHERE c.id = ?`,
		userID, userID, cocktailID,
	).Scan(&count, &liked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("cocktail", strconv.FormatInt(cocktailID, 10))
		}
		return nil, fmt.Errorf("sqlite: reading like status for cocktail %d: %w", cocktailID, err)
	}

	return &model.LikeStatus{
		CocktailID: cocktailID,
		LikeCount:  count.Int64,
		Liked:      liked,
	}, nil
}

// ReconcileLikeCounts recomputes every counter that disagrees with the
// membership table (including NULL counters) and returns how many changed.
func (db *DB) ReconcileLikeCounts(ctx context.Context) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE cocktails
		 SET like_count = (
		     SELECT COUNT(*) FROM cocktail_likes l WHERE l.cocktail_id = cocktails.id
		 )
		 WHERE like_count IS NOT (
		     SELECT COUNT(*) FROM cocktail_likes l WHERE l.cocktail_id = cocktails.id
		 )`,
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reconciling like counts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}
