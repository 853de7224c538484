// Package service contains the business logic of the application.
//
// Services sit between the HTTP handlers and the repositories:
//
//	Handler (HTTP) → Service (business logic) → Repository (database)
//
// They validate input, decide what happens, and return apperror kinds that
// the handler layer maps to status codes. They never see an http.Request.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/sakif/cocktail-club/internal/apperror"
	"github.com/sakif/cocktail-club/internal/auth"
	"github.com/sakif/cocktail-club/internal/metrics"
	"github.com/sakif/cocktail-club/internal/model"
	"github.com/sakif/cocktail-club/internal/repository"
)

const (
	// nameAttempts bounds how many display names an OAuth sign-up tries:
	// the candidate itself plus four suffixed variants.
	nameAttempts  = 5
	nameSuffixLen = 4
	maxNameRunes  = 30
)

// Session is the result of every successful authentication: the user and a
// freshly signed credential for the cookie.
type Session struct {
	User     *model.User
	Token    string
	Identity auth.Identity
}

// SignupInput is a local account registration.
type SignupInput struct {
	LoginID  string `json:"login_id" validate:"required,min=4,max=20,loginid"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Name     string `json:"name"     validate:"required,max=30"`
	Nickname string `json:"nickname" validate:"max=30"`
}

// LoginInput is a local login.
type LoginInput struct {
	LoginID  string `json:"login_id" validate:"required,max=254"`
	Password string `json:"password" validate:"required,max=72"`
}

// ProfileInput changes the public profile.
type ProfileInput struct {
	Name     string `json:"name"     validate:"required,max=30"`
	Nickname string `json:"nickname" validate:"max=30"`
}

// IdentityService answers "who is this" and reconciles external identities
// with local accounts.
type IdentityService struct {
	store     repository.IdentityStore
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	metrics   *metrics.Metrics
	logger    *slog.Logger

	// nameSuffix produces the random numeric suffix for colliding names.
	nameSuffix func() (string, error)
}

func NewIdentityService(
	store repository.IdentityStore,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	m *metrics.Metrics,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		store:     store,
		tokens:    tokens,
		passwords: passwords,
		metrics:   m,
		logger:    logger,
		nameSuffix: func() (string, error) {
			return gonanoid.Generate("0123456789", nameSuffixLen)
		},
	}
}

// TokenTTL is the validity window of issued credentials.
func (s *IdentityService) TokenTTL() time.Duration {
	return s.tokens.TTL()
}

// =========================================================================
// LOCAL ACCOUNTS
// =========================================================================

// Signup creates a local account. Unlike OAuth sign-up, the display name was
// chosen by the user, so a taken name is reported instead of suffixed.
func (s *IdentityService) Signup(ctx context.Context, in SignupInput) (*Session, error) {
	in.LoginID = strings.TrimSpace(in.LoginID)
	in.Name = strings.TrimSpace(in.Name)
	in.Nickname = strings.TrimSpace(in.Nickname)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		if errors.Is(err, auth.ErrPasswordTooLong) {
			return nil, apperror.ValidationFailed("password", "must not exceed 72 bytes")
		}
		return nil, fmt.Errorf("service/identity: %w", err)
	}

	user := &model.User{
		LoginID:      in.LoginID,
		Name:         in.Name,
		Nickname:     in.Nickname,
		PasswordHash: hash,
	}
	err = s.store.WithinTx(ctx, func(tx repository.Tx) error {
		outcome, err := tx.InsertUser(ctx, user)
		if err != nil {
			return err
		}
		if outcome == repository.UserNameTaken {
			return apperror.Conflict("user name", in.Name)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("user signed up",
		slog.String("userID", user.ID),
		slog.String("loginID", user.LoginID),
	)
	return s.issue(user)
}

// Login checks a local password. Unknown login ids and wrong passwords give
// the same error and take about the same time.
func (s *IdentityService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	in.LoginID = strings.TrimSpace(in.LoginID)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.store.GetUserByLoginID(ctx, in.LoginID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			s.passwords.SpendComparison(in.Password)
			return nil, apperror.Unauthenticated("invalid login id or password")
		}
		return nil, fmt.Errorf("service/identity: loading user: %w", err)
	}

	if err := s.passwords.Verify(user.PasswordHash, in.Password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			return nil, apperror.Unauthenticated("invalid login id or password")
		}
		return nil, fmt.Errorf("service/identity: verifying password: %w", err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID))
	return s.issue(user)
}

// =========================================================================
// OAUTH LINKING
// =========================================================================

// LinkOAuth resolves an external identity to a local user inside one
// transaction:
//
//  1. a known (provider, external id) link refreshes its tokens and wins
//  2. otherwise a user whose login_id is the external email becomes the owner
//  3. otherwise a new user is created, retrying on display-name collisions
//  4. the link is upserted; if a concurrent callback linked the identity to
//     someone else first, that owner wins and the user made here is removed
//
// Nothing is visible unless the whole sequence commits.
func (s *IdentityService) LinkOAuth(ctx context.Context, ext *auth.ExternalIdentity, tokens *auth.Tokens) (*Session, error) {
	if ext == nil || ext.Provider == "" || ext.ID == "" {
		return nil, apperror.ValidationFailed("provider", "external identity is incomplete")
	}
	if tokens == nil {
		tokens = &auth.Tokens{}
	}

	var (
		user    *model.User
		outcome string
	)
	err := s.store.WithinTx(ctx, func(tx repository.Tx) error {
		user, outcome = nil, ""

		acct, err := tx.FindOAuthAccount(ctx, ext.Provider, ext.ID)
		switch {
		case err == nil:
			acct.ApplyTokens(tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt)
			if err := tx.UpdateOAuthTokens(ctx, acct); err != nil {
				return err
			}
			user, err = tx.GetUserByID(ctx, acct.UserID)
			outcome = metrics.OAuthLinked
			return err
		case !errors.Is(err, apperror.ErrNotFound):
			return err
		}

		if ext.Email != "" {
			found, err := tx.GetUserByLoginID(ctx, ext.Email)
			switch {
			case err == nil:
				user, outcome = found, metrics.OAuthMatched
			case !errors.Is(err, apperror.ErrNotFound):
				return err
			}
		}

		created := false
		if user == nil {
			if user, err = s.createOAuthUser(ctx, tx, ext); err != nil {
				return err
			}
			created, outcome = true, metrics.OAuthCreated
		}

		stored, err := tx.UpsertOAuthAccount(ctx, &model.OAuthAccount{
			UserID:         user.ID,
			Provider:       ext.Provider,
			ProviderUserID: ext.ID,
			AccessToken:    tokens.AccessToken,
			RefreshToken:   tokens.RefreshToken,
			ExpiresAt:      tokens.ExpiresAt,
		})
		if err != nil {
			return err
		}

		if stored.UserID != user.ID {
			if created {
				if err := tx.DeleteUser(ctx, user.ID); err != nil {
					return err
				}
			}
			user, err = tx.GetUserByID(ctx, stored.UserID)
			outcome = metrics.OAuthLinked
			return err
		}
		return nil
	})
	if err != nil {
		s.metrics.RecordOAuthLogin(ext.Provider, metrics.OAuthFailed)
		s.logger.Error("oauth linking failed",
			slog.String("provider", ext.Provider),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("service/identity: linking %s account: %w", ext.Provider, err)
	}

	s.metrics.RecordOAuthLogin(ext.Provider, outcome)
	s.logger.Info("user authenticated via oauth",
		slog.String("provider", ext.Provider),
		slog.String("userID", user.ID),
		slog.String("outcome", outcome),
	)
	return s.issue(user)
}

// createOAuthUser inserts a user for a first-time external login. The
// candidate name is tried as is, then with random numeric suffixes.
func (s *IdentityService) createOAuthUser(ctx context.Context, tx repository.Tx, ext *auth.ExternalIdentity) (*model.User, error) {
	base := candidateName(ext)
	loginID := ext.Email
	if loginID == "" {
		loginID = ext.Provider + ":" + ext.ID
	}

	for attempt := 0; attempt < nameAttempts; attempt++ {
		name := base
		if attempt > 0 {
			suffix, err := s.nameSuffix()
			if err != nil {
				return nil, fmt.Errorf("generating name suffix: %w", err)
			}
			name = base + "_" + suffix
		}

		user := &model.User{LoginID: loginID, Name: name}
		outcome, err := tx.InsertUser(ctx, user)
		if err != nil {
			return nil, err
		}
		if outcome == repository.UserCreated {
			return user, nil
		}
		s.logger.Debug("display name taken, retrying",
			slog.String("name", name),
			slog.Int("attempt", attempt+1),
		)
	}
	return nil, apperror.Conflict("user name", base)
}

// candidateName is the profile name, else the email local part, else
// "<provider>_<first 8 chars of the external id>".
func candidateName(ext *auth.ExternalIdentity) string {
	if name := strings.TrimSpace(ext.Name); name != "" {
		return truncateRunes(name, maxNameRunes)
	}
	if local, _, ok := strings.Cut(ext.Email, "@"); ok && local != "" {
		return truncateRunes(local, maxNameRunes)
	}
	id := ext.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return ext.Provider + "_" + id
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// =========================================================================
// SESSIONS
// =========================================================================

// CurrentUser loads the user behind a verified credential.
func (s *IdentityService) CurrentUser(ctx context.Context, userID string) (*model.User, error) {
	if userID == "" {
		return nil, apperror.Unauthenticated("authentication required")
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			// A valid credential for a user that no longer exists.
			return nil, apperror.Unauthenticated("invalid token")
		}
		return nil, fmt.Errorf("service/identity: fetching user %s: %w", userID, err)
	}
	return user, nil
}

// Refresh re-mints a credential from a still-valid one and revokes the old
// one, so each refresh leaves exactly one live credential.
func (s *IdentityService) Refresh(ctx context.Context, id *auth.Identity) (*Session, error) {
	if id == nil {
		return nil, apperror.Unauthenticated("authentication required")
	}
	user, err := s.CurrentUser(ctx, id.UserID)
	if err != nil {
		return nil, err
	}
	session, err := s.issue(user)
	if err != nil {
		return nil, err
	}
	if err := s.revoke(ctx, id); err != nil {
		return nil, err
	}
	return session, nil
}

// Logout revokes the credential until its natural expiry. Without an
// identity (already expired or never logged in) there is nothing to revoke.
func (s *IdentityService) Logout(ctx context.Context, id *auth.Identity) error {
	if id == nil {
		return nil
	}
	if err := s.revoke(ctx, id); err != nil {
		return err
	}
	s.logger.Info("user logged out", slog.String("userID", id.UserID))
	return nil
}

func (s *IdentityService) revoke(ctx context.Context, id *auth.Identity) error {
	if id.TokenID == "" {
		return nil
	}
	if err := s.store.RevokeSession(ctx, id.TokenID, id.UserID, id.ExpiresAt); err != nil {
		return fmt.Errorf("service/identity: revoking session: %w", err)
	}
	return nil
}

// IsSessionRevoked lets the auth middleware consult the revocation table.
func (s *IdentityService) IsSessionRevoked(ctx context.Context, tokenID string) (bool, error) {
	return s.store.IsSessionRevoked(ctx, tokenID)
}

// PurgeRevocations drops revocations whose credentials have expired anyway.
func (s *IdentityService) PurgeRevocations(ctx context.Context) (int64, error) {
	n, err := s.store.PurgeExpiredRevocations(ctx, time.Now())
	if err != nil {
		return 0, fmt.Errorf("service/identity: purging revocations: %w", err)
	}
	s.metrics.RecordRevocationsPurged(n)
	if n > 0 {
		s.logger.Info("expired revocations purged", slog.Int64("count", n))
	}
	return n, nil
}

// UpdateProfile changes name and nickname and returns a credential carrying
// the new name.
func (s *IdentityService) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*Session, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Nickname = strings.TrimSpace(in.Nickname)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	user, err := s.CurrentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	user.Name = in.Name
	user.Nickname = in.Nickname
	if err := s.store.UpdateUserProfile(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", slog.String("userID", user.ID))
	return s.issue(user)
}

func (s *IdentityService) issue(user *model.User) (*Session, error) {
	id := auth.Identity{UserID: user.ID, LoginID: user.LoginID, Name: user.Name}
	token, err := s.tokens.Issue(id)
	if err != nil {
		return nil, fmt.Errorf("service/identity: issuing token for %s: %w", user.ID, err)
	}
	return &Session{User: user, Token: token, Identity: id}, nil
}
