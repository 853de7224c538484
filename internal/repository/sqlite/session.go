package sqlite

import (
	"context"
	"fmt"
	"time"
)

// Revoked session ids are stored with their expiry as unix seconds so that
// purging is a plain integer comparison.

// RevokeSession records a logged-out credential. Revoking twice is a no-op.
func (db *DB) RevokeSession(ctx context.Context, tokenID, userID string, expiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO revoked_sessions (token_id, user_id, expires_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (token_id) DO NOTHING`,
		tokenID, userID, expiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: revoking session %s: %w", tokenID, err)
	}
	return nil
}

// IsSessionRevoked reports whether the credential id was logged out.
func (db *DB) IsSessionRevoked(ctx context.Context, tokenID string) (bool, error) {
	var revoked bool
	err := db.conn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_sessions WHERE token_id = ?)`,
		tokenID,
	).Scan(&revoked)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking session %s: %w", tokenID, err)
	}
	return revoked, nil
}

// PurgeExpiredRevocations drops entries whose credential has expired anyway.
func (db *DB) PurgeExpiredRevocations(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM revoked_sessions WHERE expires_at < ?`, now.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("sqlite: purging revoked sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n, nil
}
