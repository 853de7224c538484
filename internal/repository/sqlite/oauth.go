package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/cocktail-club/internal/apperror"
	"github.com/sakif/cocktail-club/internal/model"
)

const oauthColumns = `id, user_id, provider, provider_user_id, access_token, refresh_token, expires_at, created_at, updated_at`

func scanOAuthAccount(row interface{ Scan(...any) error }) (*model.OAuthAccount, error) {
	var (
		a       model.OAuthAccount
		refresh sql.NullString
		expires sql.NullTime
	)
	err := row.Scan(
		&a.ID,
		&a.UserID,
		&a.Provider,
		&a.ProviderUserID,
		&a.AccessToken,
		&refresh,
		&expires,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.RefreshToken = refresh.String
	a.ExpiresAt = expires.Time
	return &a, nil
}

// FindOAuthAccount looks a link up by its natural key.
func (s queries) FindOAuthAccount(ctx context.Context, provider, providerUserID string) (*model.OAuthAccount, error) {
	a, err := scanOAuthAccount(s.q.QueryRowContext(ctx,
		`SELECT `+oauthColumns+`
		 FROM oauth_accounts
		 WHERE provider = ? AND provider_user_id = ?`,
		provider, providerUserID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("oauth account", provider+":"+providerUserID)
		}
		return nil, fmt.Errorf("sqlite: finding oauth account %s:%s: %w", provider, providerUserID, err)
	}
	return a, nil
}

// UpdateOAuthTokens writes the token fields of an existing link. The caller
// has already resolved the effective refresh token (see OAuthAccount.ApplyTokens).
func (s queries) UpdateOAuthTokens(ctx context.Context, account *model.OAuthAccount) error {
	account.UpdatedAt = time.Now().UTC()

	res, err := s.q.ExecContext(ctx,
		`UPDATE oauth_accounts
		 SET access_token = ?, refresh_token = ?, expires_at = ?, updated_at = ?
		 WHERE id = ?`,
		account.AccessToken,
		nullString(account.RefreshToken),
		nullTime(account.ExpiresAt),
		account.UpdatedAt,
		account.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating oauth tokens %s: %w", account.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("oauth account", account.ID)
	}
	return nil
}

// UpsertOAuthAccount inserts a link keyed on (provider, provider_user_id).
//
// When a concurrent login already inserted the same identity, the conflict
// branch refreshes the tokens in place instead of failing. The stored refresh
// token is kept when the new one is empty: in this branch the stored value is
// only visible to the statement itself, so the rule is expressed in SQL here
// and in OAuthAccount.ApplyTokens everywhere else.
func (s queries) UpsertOAuthAccount(ctx context.Context, account *model.OAuthAccount) (*model.OAuthAccount, error) {
	now := time.Now().UTC()

	stored, err := scanOAuthAccount(s.q.QueryRowContext(ctx,
		`INSERT INTO oauth_accounts
		   (id, user_id, provider, provider_user_id, access_token, refresh_token, expires_at, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (provider, provider_user_id) DO UPDATE SET
		   access_token  = excluded.access_token,
		   refresh_token = COALESCE(excluded.refresh_token, oauth_accounts.refresh_token),
		   expires_at    = excluded.expires_at,
		   updated_at    = excluded.updated_at
		 RETURNING `+oauthColumns,
		xid.New().String(),
		account.UserID,
		account.Provider,
		account.ProviderUserID,
		account.AccessToken,
		nullString(account.RefreshToken),
		nullTime(account.ExpiresAt),
		now,
		now,
	))
	if err != nil {
		return nil, fmt.Errorf("sqlite: upserting oauth account %s:%s: %w",
			account.Provider, account.ProviderUserID, err)
	}
	return stored, nil
}
