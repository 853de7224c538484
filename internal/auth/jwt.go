// Package auth issues and verifies the session credential, runs the Google
// authorization-code flow and hashes local passwords.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. User signs up / logs in locally, or visits /auth/google and comes back
//     to /auth/google/callback with a code
//  2. The identity service resolves (or creates) the local user
//  3. The server issues a signed token and stores it in the HttpOnly "auth" cookie
//  4. On later requests, RequireAuth / OptionalAuth read the cookie, validate
//     the token, and put the Identity in the request context
//
// The token is self-contained: {uid, login_id, name} plus expiry and a unique
// id (jti). Verification needs only the secret. The jti is what a logout
// records in the revocation table, so a copied cookie stops working before
// its natural expiry.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultSessionTTL is how long a freshly issued credential stays valid.
const DefaultSessionTTL = 7 * 24 * time.Hour

const issuer = "cocktail-club"

var (
	// ErrTokenExpired means the signature was fine but the window has passed.
	ErrTokenExpired = errors.New("auth: session expired")
	// ErrTokenInvalid covers everything else: bad signature, wrong algorithm,
	// malformed input, missing claims.
	ErrTokenInvalid = errors.New("auth: invalid token")
)

// Identity is the decoded session payload attached to a request.
type Identity struct {
	UserID  string `json:"id"`
	LoginID string `json:"login_id"`
	Name    string `json:"name"`

	// TokenID and ExpiresAt identify the credential itself; logout uses them.
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"-"`
}

// TokenService handles token creation and validation.
//
// It holds the HMAC secret used to sign and verify tokens; the same secret
// must be used for both operations.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret.
// ttl <= 0 selects DefaultSessionTTL.
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// TTL is the validity window of tokens from Issue. The session cookie's
// Max-Age is set from it.
func (s *TokenService) TTL() time.Duration {
	return s.ttl
}

// claims is the token payload. The registered "sub" claim carries the user id;
// the custom claims mirror the Identity fields the client reads.
type claims struct {
	UserID  string `json:"uid"`
	LoginID string `json:"login_id"`
	Name    string `json:"name"`
	jwt.RegisteredClaims
}

// Issue signs a credential for id valid for the configured TTL.
func (s *TokenService) Issue(id Identity) (string, error) {
	return s.IssueWithDuration(id, s.ttl)
}

// IssueWithDuration signs a credential with a custom lifetime. Tests use a
// negative duration to produce an already expired token.
func (s *TokenService) IssueWithDuration(id Identity, d time.Duration) (string, error) {
	if id.UserID == "" {
		return "", fmt.Errorf("auth: cannot issue a token without a user id")
	}
	now := time.Now()

	c := claims{
		UserID:  id.UserID,
		LoginID: id.LoginID,
		Name:    id.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing token: %w", err)
	}
	return signed, nil
}

// Validate verifies the signature, algorithm, issuer and expiry and returns
// the decoded identity. Failures are ErrTokenExpired or ErrTokenInvalid.
//
// ALGORITHM PINNING:
// WithValidMethods rejects tokens whose header names any algorithm other than
// HS256, which closes the "alg: none" and RS/HS confusion attacks.
func (s *TokenService) Validate(tokenStr string) (*Identity, error) {
	token, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenInvalid, err)
	}

	c, ok := token.Claims.(*claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}
	if c.UserID == "" || c.Subject != c.UserID || c.ID == "" {
		return nil, fmt.Errorf("%w: missing identity claims", ErrTokenInvalid)
	}

	return &Identity{
		UserID:    c.UserID,
		LoginID:   c.LoginID,
		Name:      c.Name,
		TokenID:   c.ID,
		ExpiresAt: c.ExpiresAt.Time,
	}, nil
}
