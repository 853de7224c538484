package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sakif/cocktail-club/internal/auth"
	"github.com/sakif/cocktail-club/internal/model"
	"github.com/sakif/cocktail-club/internal/service"
)

const (
	stateCookieName = "oauth_state"
	stateCookieTTL  = 600 // seconds
)

// OAuthProvider is the part of auth.GoogleProvider the callback needs.
type OAuthProvider interface {
	Configured() bool
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.ExternalIdentity, *auth.Tokens, error)
}

// AuthHandler manages local accounts, the Google login flow and the session
// cookie.
//
// HANDLER RESPONSIBILITIES:
//   - HandleSignup / HandleLogin      → check credentials, set the cookie
//   - HandleLogout / HandleRefresh    → revoke or rotate the credential
//   - HandleMe / HandleUpdateMe       → read or change the current profile
//   - HandleGoogleLogin               → redirect the browser to Google
//   - HandleGoogleCallback            → link the Google account, set the cookie
type AuthHandler struct {
	identity    *service.IdentityService
	google      OAuthProvider
	cookies     auth.CookieConfig
	frontendURL string
	logger      *slog.Logger
}

func NewAuthHandler(
	identity *service.IdentityService,
	google OAuthProvider,
	cookies auth.CookieConfig,
	frontendURL string,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		identity:    identity,
		google:      google,
		cookies:     cookies,
		frontendURL: frontendURL,
		logger:      logger,
	}
}

type userResponse struct {
	User *model.User `json:"user"`
}

// HandleSignup creates a local account and logs it in.
//
// HTTP: POST /api/auth/signup
func (h *AuthHandler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var in service.SignupInput
	if err := decodeJSON(r, w, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	session, err := h.identity.Signup(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.cookies.SetSession(w, session.Token, h.identity.TokenTTL())
	writeJSON(w, http.StatusCreated, userResponse{User: session.User})
}

// HandleLogin checks a local password.
//
// HTTP: POST /api/login, POST /api/auth/login
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := decodeJSON(r, w, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	session, err := h.identity.Login(r.Context(), in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.cookies.SetSession(w, session.Token, h.identity.TokenTTL())
	writeJSON(w, http.StatusOK, userResponse{User: session.User})
}

// HandleLogout revokes the presented credential, if any, and clears the
// cookie. It succeeds for anonymous callers too.
//
// HTTP: POST /api/auth/logout, POST /api/logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	id, _ := auth.IdentityFromContext(r.Context())
	if err := h.identity.Logout(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.cookies.ClearSession(w)
	writeJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// HandleRefresh swaps a valid credential for a fresh one.
//
// HTTP: POST /api/auth/refresh
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	session, err := h.identity.Refresh(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.cookies.SetSession(w, session.Token, h.identity.TokenTTL())
	writeJSON(w, http.StatusOK, userResponse{User: session.User})
}

// HandleMe returns the logged-in user.
//
// HTTP: GET /api/auth/me
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	user, err := h.identity.CurrentUser(r.Context(), id.UserID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, userResponse{User: user})
}

// HandleUpdateMe changes name and nickname. The cookie is re-issued because
// the credential carries the display name.
//
// HTTP: PUT /api/auth/me
func (h *AuthHandler) HandleUpdateMe(w http.ResponseWriter, r *http.Request) {
	id, err := identity(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	var in service.ProfileInput
	if err := decodeJSON(r, w, &in); err != nil {
		writeError(w, h.logger, err)
		return
	}

	session, err := h.identity.UpdateProfile(r.Context(), id.UserID, in)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.cookies.SetSession(w, session.Token, h.identity.TokenTTL())
	writeJSON(w, http.StatusOK, userResponse{User: session.User})
}

// HandleGoogleLogin redirects to Google's consent page.
//
// HTTP: GET /auth/google?next=/mypage
//
// CSRF PROTECTION VIA STATE:
// A random nonce goes both into a short-lived HttpOnly cookie and into the
// state parameter, next to the path to return to. The callback only proceeds
// when the two nonces match.
func (h *AuthHandler) HandleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.google.Configured() {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error:   "unavailable",
			Message: "Google login is not configured",
		})
		return
	}

	nonce, err := auth.NewNonce()
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    nonce,
		Path:     "/",
		MaxAge:   stateCookieTTL,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	state := auth.EncodeState(r.URL.Query().Get("next"), nonce)
	http.Redirect(w, r, h.google.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGoogleCallback completes the login.
//
// HTTP: GET /auth/google/callback?code=xxx&state=yyy
//
// FLOW:
//  1. Check the state nonce against the cookie (CSRF)
//  2. Exchange the code for the Google profile and tokens
//  3. Link the profile to a local user (one transaction)
//  4. Set the session cookie and redirect to the front end at state.next
//
// Every failure gets the same response and no cookie.
func (h *AuthHandler) HandleGoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := auth.DecodeState(q.Get("state"))

	cookie, err := r.Cookie(stateCookieName)
	if err != nil || cookie.Value == "" || state.Nonce != cookie.Value {
		h.logger.Warn("oauth callback: state mismatch")
		h.oauthFailed(w, http.StatusBadRequest)
		return
	}

	// The state cookie is single-use.
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.Secure,
		SameSite: http.SameSiteLaxMode,
	})

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("oauth callback: user denied authorization", slog.String("error", errParam))
		http.Redirect(w, r, h.frontendURL+"/?auth=denied", http.StatusFound)
		return
	}

	code := q.Get("code")
	if code == "" {
		h.oauthFailed(w, http.StatusBadRequest)
		return
	}

	ext, tokens, err := h.google.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed", slog.String("error", err.Error()))
		h.oauthFailed(w, http.StatusInternalServerError)
		return
	}

	session, err := h.identity.LinkOAuth(r.Context(), ext, tokens)
	if err != nil {
		// LinkOAuth has logged the cause.
		h.oauthFailed(w, http.StatusInternalServerError)
		return
	}

	h.cookies.SetSession(w, session.Token, h.identity.TokenTTL())
	http.Redirect(w, r, h.frontendURL+state.Next, http.StatusFound)
}

func (h *AuthHandler) oauthFailed(w http.ResponseWriter, status int) {
	writeJSON(w, status, ErrorResponse{Error: "oauth_failed", Message: "OAuth failed"})
}
