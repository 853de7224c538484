package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRevocations struct {
	revoked map[string]bool
	err     error
}

func (f fakeRevocations) IsSessionRevoked(_ context.Context, tokenID string) (bool, error) {
	return f.revoked[tokenID], f.err
}

// echoIdentity writes the user id from context, or "anonymous".
var echoIdentity = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	if id, ok := IdentityFromContext(r.Context()); ok {
		_, _ = w.Write([]byte(id.UserID))
		return
	}
	_, _ = w.Write([]byte("anonymous"))
})

func requestWithCookie(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: token})
	}
	return req
}

func TestRequireAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Issue(alice)
	expired, _ := ts.IssueWithDuration(alice, -time.Minute)

	a := NewAuthenticator(ts, nil, nil)
	h := a.RequireAuth(echoIdentity)

	cases := []struct {
		name       string
		token      string
		wantStatus int
		wantBody   string
	}{
		{"valid", valid, http.StatusOK, alice.UserID},
		{"missing", "", http.StatusUnauthorized, "authentication required"},
		{"expired", expired, http.StatusUnauthorized, "session expired"},
		{"invalid", "garbage", http.StatusUnauthorized, "invalid token"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, requestWithCookie(tc.token))

			assert.Equal(t, tc.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
			if tc.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestRequireAuth_Revoked(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Issue(alice)
	id, err := ts.Validate(token)
	require.NoError(t, err)

	a := NewAuthenticator(ts, fakeRevocations{revoked: map[string]bool{id.TokenID: true}}, nil)
	rec := httptest.NewRecorder()
	a.RequireAuth(echoIdentity).ServeHTTP(rec, requestWithCookie(token))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "session expired")
}

func TestRequireAuth_RevocationStoreDownStillAccepts(t *testing.T) {
	ts := newTestTokenService(t)
	token, _ := ts.Issue(alice)

	a := NewAuthenticator(ts, fakeRevocations{err: errors.New("db locked")}, nil)
	rec := httptest.NewRecorder()
	a.RequireAuth(echoIdentity).ServeHTTP(rec, requestWithCookie(token))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOptionalAuth(t *testing.T) {
	ts := newTestTokenService(t)
	valid, _ := ts.Issue(alice)
	expired, _ := ts.IssueWithDuration(alice, -time.Minute)

	h := NewAuthenticator(ts, nil, nil).OptionalAuth(echoIdentity)

	for token, want := range map[string]string{
		valid:     alice.UserID,
		expired:   "anonymous",
		"garbage": "anonymous",
		"":        "anonymous",
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, requestWithCookie(token))

		assert.Equal(t, http.StatusOK, rec.Code, "optional auth never rejects")
		assert.Equal(t, want, rec.Body.String())
	}
}

// =========================================================================
// COOKIE TESTS
// =========================================================================

func TestCookieConfig(t *testing.T) {
	t.Run("production", func(t *testing.T) {
		rec := httptest.NewRecorder()
		CookieConfigFor(true).SetSession(rec, "tok", DefaultSessionTTL)

		c := rec.Result().Cookies()[0]
		assert.Equal(t, SessionCookieName, c.Name)
		assert.Equal(t, "/", c.Path)
		assert.True(t, c.HttpOnly)
		assert.True(t, c.Secure)
		assert.Equal(t, http.SameSiteNoneMode, c.SameSite)
		assert.Equal(t, int(DefaultSessionTTL.Seconds()), c.MaxAge)
	})

	t.Run("development", func(t *testing.T) {
		rec := httptest.NewRecorder()
		CookieConfigFor(false).SetSession(rec, "tok", time.Hour)

		c := rec.Result().Cookies()[0]
		assert.False(t, c.Secure)
		assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
		assert.Equal(t, 3600, c.MaxAge)
	})

	t.Run("clear", func(t *testing.T) {
		rec := httptest.NewRecorder()
		CookieConfigFor(false).ClearSession(rec)

		c := rec.Result().Cookies()[0]
		assert.Equal(t, "", c.Value)
		assert.Less(t, c.MaxAge, 0)
	})
}
