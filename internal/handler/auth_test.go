package handler_test

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/cocktail-club/internal/auth"
)

type userBody struct {
	User struct {
		ID       string `json:"id"`
		LoginID  string `json:"login_id"`
		Name     string `json:"name"`
		Nickname string `json:"nickname"`
	} `json:"user"`
}

// ===== Local accounts =====

func TestSignupLoginMe(t *testing.T) {
	env := newTestEnv(t)

	t.Run("signup sets the session cookie", func(t *testing.T) {
		cookie := env.signup(t, "mixer_01", "Mixer")
		assert.True(t, cookie.HttpOnly)
		assert.Equal(t, "/", cookie.Path)
		assert.Positive(t, cookie.MaxAge)

		rr := env.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
		require.Equal(t, http.StatusOK, rr.Code)
		body := decode[userBody](t, rr)
		assert.Equal(t, "mixer_01", body.User.LoginID)
		assert.Equal(t, "Mixer", body.User.Name)
	})

	t.Run("login with the right password", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/login", map[string]string{
			"login_id": "mixer_01", "password": "password123",
		})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.NotNil(t, findCookie(rr, auth.SessionCookieName))
	})

	t.Run("wrong password is 401 without a cookie", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/login", map[string]string{
			"login_id": "mixer_01", "password": "nope-nope-nope",
		})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
		assert.Nil(t, findCookie(rr, auth.SessionCookieName))
	})

	t.Run("duplicate name is 409", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
			"login_id": "mixer_02", "password": "password123", "name": "Mixer",
		})
		assert.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("invalid body reports fields", func(t *testing.T) {
		rr := env.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
			"login_id": "x", "password": "short",
		})
		require.Equal(t, http.StatusBadRequest, rr.Code)
		body := decode[errorBody](t, rr)
		assert.Equal(t, "validation_error", body.Error)
		assert.Contains(t, body.Fields, "login_id")
		assert.Contains(t, body.Fields, "password")
	})
}

func TestMe_RequiresCookie(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = env.do(t, http.MethodGet, "/api/auth/me", nil, &http.Cookie{Name: auth.SessionCookieName, Value: "garbage"})
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "invalid token", decode[errorBody](t, rr).Message)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signup(t, "barkeep", "Barkeep")

	rr := env.do(t, http.MethodPost, "/api/logout", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	cleared := findCookie(rr, auth.SessionCookieName)
	require.NotNil(t, cleared)
	assert.Negative(t, cleared.MaxAge)

	// The old credential is revoked, not just forgotten by the browser.
	rr = env.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "session expired", decode[errorBody](t, rr).Message)

	// Anonymous logout is fine.
	rr = env.do(t, http.MethodPost, "/api/logout", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRefreshAndUpdateMe(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.signup(t, "shaker", "Shaker")

	rr := env.do(t, http.MethodPost, "/api/auth/refresh", nil, cookie)
	require.Equal(t, http.StatusOK, rr.Code)
	fresh := findCookie(rr, auth.SessionCookieName)
	require.NotNil(t, fresh)
	assert.NotEqual(t, cookie.Value, fresh.Value)

	rr = env.do(t, http.MethodPut, "/api/auth/me", map[string]string{"name": "Stirrer", "nickname": "stir"}, fresh)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Stirrer", decode[userBody](t, rr).User.Name)
	assert.NotNil(t, findCookie(rr, auth.SessionCookieName))
}

// ===== Google login =====

// startGoogleLogin runs /auth/google and returns the state parameter and the
// state cookie the callback must see.
func startGoogleLogin(t *testing.T, env *testEnv, next string) (string, *http.Cookie) {
	t.Helper()
	rr := env.do(t, http.MethodGet, "/auth/google?next="+url.QueryEscape(next), nil)
	require.Equal(t, http.StatusTemporaryRedirect, rr.Code)
	stateCookie := findCookie(rr, "oauth_state")
	require.NotNil(t, stateCookie)
	require.NotEmpty(t, env.google.lastState)
	return env.google.lastState, stateCookie
}

func TestGoogleCallback_Success(t *testing.T) {
	env := newTestEnv(t)
	state, stateCookie := startGoogleLogin(t, env, "/mypage")

	rr := env.do(t, http.MethodGet, "/auth/google/callback?code=abc&state="+url.QueryEscape(state), nil, stateCookie)
	require.Equal(t, http.StatusFound, rr.Code, rr.Body.String())
	assert.Equal(t, testFrontend+"/mypage", rr.Header().Get("Location"))

	session := findCookie(rr, auth.SessionCookieName)
	require.NotNil(t, session)

	me := env.do(t, http.MethodGet, "/api/auth/me", nil, session)
	require.Equal(t, http.StatusOK, me.Code)
	assert.Equal(t, "Kim", decode[userBody](t, me).User.Name)

	// A second login with the same Google account lands on the same user.
	state, stateCookie = startGoogleLogin(t, env, "")
	rr = env.do(t, http.MethodGet, "/auth/google/callback?code=def&state="+url.QueryEscape(state), nil, stateCookie)
	require.Equal(t, http.StatusFound, rr.Code)
	assert.Equal(t, testFrontend+"/", rr.Header().Get("Location"))
}

func TestGoogleCallback_Failures(t *testing.T) {
	t.Run("state mismatch", func(t *testing.T) {
		env := newTestEnv(t)
		state, _ := startGoogleLogin(t, env, "/")
		rr := env.do(t, http.MethodGet, "/auth/google/callback?code=abc&state="+url.QueryEscape(state), nil,
			&http.Cookie{Name: "oauth_state", Value: "someone-elses-nonce"})
		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Equal(t, "OAuth failed", decode[errorBody](t, rr).Message)
		assert.Nil(t, findCookie(rr, auth.SessionCookieName))
	})

	t.Run("missing state cookie", func(t *testing.T) {
		env := newTestEnv(t)
		state, _ := startGoogleLogin(t, env, "/")
		rr := env.do(t, http.MethodGet, "/auth/google/callback?code=abc&state="+url.QueryEscape(state), nil)
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("user denied consent", func(t *testing.T) {
		env := newTestEnv(t)
		state, stateCookie := startGoogleLogin(t, env, "/")
		rr := env.do(t, http.MethodGet, "/auth/google/callback?error=access_denied&state="+url.QueryEscape(state), nil, stateCookie)
		require.Equal(t, http.StatusFound, rr.Code)
		assert.Equal(t, testFrontend+"/?auth=denied", rr.Header().Get("Location"))
	})

	t.Run("exchange error", func(t *testing.T) {
		env := newTestEnv(t)
		env.google.err = errors.New("token endpoint said no")
		state, stateCookie := startGoogleLogin(t, env, "/")
		rr := env.do(t, http.MethodGet, "/auth/google/callback?code=abc&state="+url.QueryEscape(state), nil, stateCookie)
		require.Equal(t, http.StatusInternalServerError, rr.Code)
		body := decode[errorBody](t, rr)
		assert.Equal(t, "oauth_failed", body.Error)
		assert.NotContains(t, body.Message, "token endpoint")
		assert.Nil(t, findCookie(rr, auth.SessionCookieName))
	})

	t.Run("incomplete profile", func(t *testing.T) {
		env := newTestEnv(t)
		env.google.ext = &auth.ExternalIdentity{Provider: auth.ProviderGoogle}
		state, stateCookie := startGoogleLogin(t, env, "/")
		rr := env.do(t, http.MethodGet, "/auth/google/callback?code=abc&state="+url.QueryEscape(state), nil, stateCookie)
		assert.Equal(t, http.StatusInternalServerError, rr.Code)
	})
}

func TestGoogleLogin_NotConfigured(t *testing.T) {
	env := newTestEnv(t)
	env.google.configured = false

	rr := env.do(t, http.MethodGet, "/auth/google", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestGoogleLogin_IgnoresOffsiteNext(t *testing.T) {
	env := newTestEnv(t)
	state, _ := startGoogleLogin(t, env, "//evil.example/steal")
	assert.Equal(t, auth.DefaultNext, auth.DecodeState(state).Next)
}
