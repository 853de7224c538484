package service

import (
	"context"
	"log/slog"
	"time"
)

// runEvery calls job on a ticker until ctx is cancelled. A failing run is
// logged and the loop carries on; a non-positive interval disables the job.
func runEvery(ctx context.Context, logger *slog.Logger, name string, interval time.Duration, job func(context.Context) error) {
	if interval <= 0 {
		logger.Info("background job disabled", slog.String("job", name))
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := job(ctx); err != nil && ctx.Err() == nil {
				logger.Error("background job failed",
					slog.String("job", name),
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// RunRevocationPurge drops expired revocations every interval until ctx is done.
func (s *IdentityService) RunRevocationPurge(ctx context.Context, interval time.Duration) {
	runEvery(ctx, s.logger, "revocation purge", interval, func(ctx context.Context) error {
		_, err := s.PurgeRevocations(ctx)
		return err
	})
}
