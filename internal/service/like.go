package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/cocktail-club/internal/apperror"
	"github.com/sakif/cocktail-club/internal/metrics"
	"github.com/sakif/cocktail-club/internal/model"
	"github.com/sakif/cocktail-club/internal/repository"
)

// LikeService is the like-count ledger. Every change to a membership row and
// the matching counter update happen in the same transaction, and the counter
// is only ever moved relative to its current value.
type LikeService struct {
	store   repository.LikeStore
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewLikeService(store repository.LikeStore, m *metrics.Metrics, logger *slog.Logger) *LikeService {
	return &LikeService{store: store, metrics: m, logger: logger}
}

// Add records that userID likes the cocktail. Liking twice changes nothing.
func (s *LikeService) Add(ctx context.Context, cocktailID int64, userID string) (*model.LikeStatus, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}

	status := &model.LikeStatus{CocktailID: cocktailID, Liked: true}
	var inserted bool
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.CocktailLikeCount(ctx, cocktailID); err != nil {
			return err
		}
		var err error
		if inserted, err = tx.InsertLike(ctx, cocktailID, userID); err != nil {
			return err
		}
		if inserted {
			if err := tx.IncrementLikeCount(ctx, cocktailID); err != nil {
				return err
			}
		}
		status.LikeCount, err = tx.CocktailLikeCount(ctx, cocktailID)
		return err
	})
	if err != nil {
		return nil, wrapLikeErr("adding", cocktailID, err)
	}

	s.record(metrics.LikeAdded, inserted, cocktailID, userID)
	return status, nil
}

// Remove withdraws userID's like. Removing a like that does not exist is a
// no-op that still reports the current count.
func (s *LikeService) Remove(ctx context.Context, cocktailID int64, userID string) (*model.LikeStatus, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}

	status := &model.LikeStatus{CocktailID: cocktailID}
	var deleted bool
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		if _, err := tx.CocktailLikeCount(ctx, cocktailID); err != nil {
			return err
		}
		var err error
		if deleted, err = tx.DeleteLike(ctx, cocktailID, userID); err != nil {
			return err
		}
		if deleted {
			if err := tx.DecrementLikeCount(ctx, cocktailID); err != nil {
				return err
			}
		}
		status.LikeCount, err = tx.CocktailLikeCount(ctx, cocktailID)
		return err
	})
	if err != nil {
		return nil, wrapLikeErr("removing", cocktailID, err)
	}

	s.record(metrics.LikeRemoved, deleted, cocktailID, userID)
	return status, nil
}

// Status reads the counter and, for a logged-in viewer, whether they liked it.
func (s *LikeService) Status(ctx context.Context, cocktailID int64, userID string) (*model.LikeStatus, error) {
	st, err := s.store.LikeStatus(ctx, cocktailID, userID)
	if err != nil {
		return nil, wrapLikeErr("reading", cocktailID, err)
	}
	return st, nil
}

// Reconcile repairs counters that drifted from the membership table, for
// example after rows were edited by hand.
func (s *LikeService) Reconcile(ctx context.Context) (int64, error) {
	n, err := s.store.ReconcileLikeCounts(ctx)
	if err != nil {
		return 0, fmt.Errorf("service/like: reconciling: %w", err)
	}
	s.metrics.RecordLikeRepairs(n)
	if n > 0 {
		s.logger.Warn("like counters repaired", slog.Int64("count", n))
	}
	return n, nil
}

// RunReconciler calls Reconcile every interval until ctx is done.
func (s *LikeService) RunReconciler(ctx context.Context, interval time.Duration) {
	runEvery(ctx, s.logger, "like reconciliation", interval, func(ctx context.Context) error {
		_, err := s.Reconcile(ctx)
		return err
	})
}

func (s *LikeService) record(change string, changed bool, cocktailID int64, userID string) {
	if !changed {
		s.metrics.RecordLikeToggle(metrics.LikeUnchanged)
		return
	}
	s.metrics.RecordLikeToggle(change)
	s.logger.Debug("like toggled",
		slog.String("change", change),
		slog.Int64("cocktailID", cocktailID),
		slog.String("userID", userID),
	)
}

func wrapLikeErr(op string, cocktailID int64, err error) error {
	if errors.Is(err, apperror.ErrNotFound) {
		return err
	}
	return fmt.Errorf("service/like: %s like on cocktail %d: %w", op, cocktailID, err)
}
