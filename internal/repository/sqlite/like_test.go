package sqlite

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/cocktail-club/internal/apperror"
	"github.com/sakif/cocktail-club/internal/repository"
)

// These tests drive the ledger statements the same way the like service does:
// membership change and counter update inside one transaction.

func addLike(ctx context.Context, db *DB, cocktailID int64, userID string) error {
	return db.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.CocktailLikeCount(ctx, cocktailID); err != nil {
			return err
		}
		inserted, err := tx.InsertLike(ctx, cocktailID, userID)
		if err != nil || !inserted {
			return err
		}
		return tx.IncrementLikeCount(ctx, cocktailID)
	})
}

func removeLike(ctx context.Context, db *DB, cocktailID int64, userID string) error {
	return db.WithinTx(ctx, func(tx repository.Tx) error {
		deleted, err := tx.DeleteLike(ctx, cocktailID, userID)
		if err != nil || !deleted {
			return err
		}
		return tx.DecrementLikeCount(ctx, cocktailID)
	})
}

func likeCount(t *testing.T, db *DB, cocktailID int64) int64 {
	t.Helper()
	st, err := db.LikeStatus(context.Background(), cocktailID, "")
	require.NoError(t, err)
	return st.LikeCount
}

func TestLike_AddIsIdempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "liker@example.com", "liker")

	require.NoError(t, addLike(ctx, db, 1, u.ID))
	require.NoError(t, addLike(ctx, db, 1, u.ID))

	st, err := db.LikeStatus(ctx, 1, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.LikeCount)
	assert.True(t, st.Liked)
}

func TestLike_RemoveWithoutLikeIsNoop(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "x@example.com", "x")
	v := createTestUser(t, db, "y@example.com", "y")

	require.NoError(t, addLike(ctx, db, 2, v.ID))
	require.NoError(t, removeLike(ctx, db, 2, u.ID))

	assert.Equal(t, int64(1), likeCount(t, db, 2))
}

func TestLike_AddThenRemove(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "z@example.com", "z")

	require.NoError(t, addLike(ctx, db, 3, u.ID))
	require.NoError(t, removeLike(ctx, db, 3, u.ID))

	st, err := db.LikeStatus(ctx, 3, u.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), st.LikeCount)
	assert.False(t, st.Liked)
}

func TestLike_DecrementFloorsAtZero(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	err := db.WithinTx(ctx, func(tx repository.Tx) error {
		return tx.DecrementLikeCount(ctx, 1)
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), likeCount(t, db, 1))
}

func TestLike_UnknownCocktail(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "n@example.com", "n")

	assert.ErrorIs(t, addLike(ctx, db, 999, u.ID), apperror.ErrNotFound)

	_, err := db.LikeStatus(ctx, 999, "")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestLike_ConcurrentUsers(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	const k = 16
	users := make([]string, k)
	for i := range users {
		users[i] = createTestUser(t, db, fmt.Sprintf("c%d@example.com", i), fmt.Sprintf("c%d", i)).ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, k*2)
	for _, id := range users {
		wg.Add(2)
		// Each user races themselves too; only one of the pair may count.
		go func() { defer wg.Done(); errs <- addLike(ctx, db, 1, id) }()
		go func() { defer wg.Done(); errs <- addLike(ctx, db, 1, id) }()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, int64(k), likeCount(t, db, 1))

	for _, id := range users {
		wg.Add(1)
		go func() { defer wg.Done(); assert.NoError(t, removeLike(ctx, db, 1, id)) }()
	}
	wg.Wait()

	assert.Equal(t, int64(0), likeCount(t, db, 1))
}

func TestReconcileLikeCounts(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "r@example.com", "r")
	require.NoError(t, addLike(ctx, db, 5, u.ID))

	// Simulate drift: one counter wrong, one NULL.
	_, err := db.conn.ExecContext(ctx, `UPDATE cocktails SET like_count = 7 WHERE id = 5`)
	require.NoError(t, err)
	_, err = db.conn.ExecContext(ctx, `UPDATE cocktails SET like_count = NULL WHERE id = 2`)
	require.NoError(t, err)

	fixed, err := db.ReconcileLikeCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), fixed)
	assert.Equal(t, int64(1), likeCount(t, db, 5))
	assert.Equal(t, int64(0), likeCount(t, db, 2))

	fixed, err = db.ReconcileLikeCounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, fixed)
}
