package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
)

// contextKey is an unexported type used for context keys in this package.
//
// context.WithValue accepts any key. A package-private type means only this
// package can create a key that reads or writes the identity, so no other
// package can shadow it by accident.
type contextKey string

const identityKey contextKey = "identity"

// RevocationChecker reports whether a credential id was logged out.
// The identity service implements it against the revocation table.
type RevocationChecker interface {
	IsSessionRevoked(ctx context.Context, tokenID string) (bool, error)
}

// Authenticator holds what both middlewares need.
type Authenticator struct {
	tokens  *TokenService
	revoked RevocationChecker
	logger  *slog.Logger
}

// NewAuthenticator builds the middlewares. revoked may be nil, in which case
// tokens are accepted until they expire.
func NewAuthenticator(tokens *TokenService, revoked RevocationChecker, logger *slog.Logger) *Authenticator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{tokens: tokens, revoked: revoked, logger: logger}
}

// RequireAuth is a middleware that enforces authentication on protected routes.
//
// It reads the token from the "auth" HttpOnly cookie, validates it, and
// stores the Identity in the request context. A missing, invalid, expired or
// revoked token ends the request with 401 and a JSON body.
//
// MIDDLEWARE PATTERN IN GO:
// A middleware takes an http.Handler and returns a new one that wraps it:
//
//	func Middleware(next http.Handler) http.Handler {
//	    return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
//	        // ... before ...
//	        next.ServeHTTP(w, r)
//	        // ... after ...
//	    })
//	}
//
// Chi applies middlewares in a chain: req → M1 → M2 → Handler → M2 → M1 → resp
func (a *Authenticator) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := a.identify(r)
		if err != nil {
			writeUnauthorized(w, unauthorizedMessage(err))
			return
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// OptionalAuth attaches the Identity when a valid credential is present and
// otherwise lets the request through anonymously. It never fails a request.
func (a *Authenticator) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := a.identify(r); err == nil {
			r = r.WithContext(WithIdentity(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// IdentityFromContext returns the identity RequireAuth or OptionalAuth stored.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

// WithIdentity stores id in ctx. Handler tests use it to skip the cookie.
func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

var (
	errNoCookie = errors.New("auth: no session cookie")
	errRevoked  = errors.New("auth: session revoked")
)

func (a *Authenticator) identify(r *http.Request) (*Identity, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil || cookie.Value == "" {
		return nil, errNoCookie
	}

	id, err := a.tokens.Validate(cookie.Value)
	if err != nil {
		return nil, err
	}

	if a.revoked != nil {
		revoked, err := a.revoked.IsSessionRevoked(r.Context(), id.TokenID)
		if err != nil {
			// The credential itself is valid; a storage hiccup should not
			// log everyone out.
			a.logger.Warn("revocation check failed",
				slog.String("token_id", id.TokenID),
				slog.String("error", err.Error()),
			)
		} else if revoked {
			return nil, errRevoked
		}
	}
	return id, nil
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, errNoCookie):
		return "authentication required"
	case errors.Is(err, ErrTokenExpired), errors.Is(err, errRevoked):
		return "session expired"
	default:
		return "invalid token"
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	// message is one of the fixed strings above, so no escaping is needed.
	_, _ = w.Write([]byte(`{"error":"unauthenticated","message":"` + message + `"}`))
}
