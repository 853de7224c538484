package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/sakif/cocktail-club/internal/ai"
	"github.com/sakif/cocktail-club/internal/auth"
	"github.com/sakif/cocktail-club/internal/handler"
	"github.com/sakif/cocktail-club/internal/metrics"
	"github.com/sakif/cocktail-club/internal/model"
	"github.com/sakif/cocktail-club/internal/repository/sqlite"
	"github.com/sakif/cocktail-club/internal/service"
)

// =========================================================================
// TEST HARNESS
// =========================================================================

const (
	testSecret   = "handler-test-secret-0123456789"
	testFrontend = "http://front.test"
)

// fakeProvider stands in for Google: it returns a fixed profile for any code.
type fakeProvider struct {
	configured bool
	ext        *auth.ExternalIdentity
	err        error
	lastState  string
}

func (f *fakeProvider) Configured() bool { return f.configured }

func (f *fakeProvider) AuthURL(state string) string {
	f.lastState = state
	return "https://accounts.example/auth?state=" + state
}

func (f *fakeProvider) Exchange(_ context.Context, code string) (*auth.ExternalIdentity, *auth.Tokens, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.ext, &auth.Tokens{AccessToken: "at-" + code, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

type fakeGenerator struct {
	recipe *model.Recipe
	err    error
}

func (f *fakeGenerator) Generate(context.Context, ai.Requirements) (*model.Recipe, error) {
	return f.recipe, f.err
}

type testEnv struct {
	router   chi.Router
	db       *sqlite.DB
	google   *fakeProvider
	gen      *fakeGenerator
	identity *service.IdentityService
}

// newTestEnv mounts every handler the way the server does, minus the
// rate limiter and timeouts.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.Open(filepath.Join(t.TempDir(), "handler.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	m := metrics.New()
	env := &testEnv{
		db: db,
		google: &fakeProvider{
			configured: true,
			ext:        &auth.ExternalIdentity{Provider: auth.ProviderGoogle, ID: "g-1", Email: "kim@gmail.test", Name: "Kim"},
		},
		gen: &fakeGenerator{recipe: &model.Recipe{
			Name:        "Jeju Breeze",
			Ingredients: []model.Ingredient{{Item: "Hallabong juice", Volume: "60ml"}},
			Steps:       []string{"Shake with ice"},
		}},
	}
	env.identity = service.NewIdentityService(db, tokens, auth.NewPasswordServiceForTest(4), m, logger)

	authn := auth.NewAuthenticator(tokens, env.identity, logger)
	ah := handler.NewAuthHandler(env.identity, env.google, auth.CookieConfigFor(false), testFrontend, logger)
	ch := handler.NewCocktailHandler(service.NewCocktailService(db), service.NewLikeService(db, m, logger), logger)
	cm := handler.NewCommunityHandler(service.NewCommunityService(db, logger), logger)
	dh := handler.NewDirectoryHandler(service.NewDirectoryService(db), logger)
	rh := handler.NewRecipeHandler(service.NewRecipeService(db, env.gen, m, logger), logger)

	r := chi.NewRouter()
	r.Get("/auth/google", ah.HandleGoogleLogin)
	r.Get("/auth/google/callback", ah.HandleGoogleCallback)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", ah.HandleSignup)
		r.Post("/login", ah.HandleLogin)
		r.With(authn.OptionalAuth).Post("/logout", ah.HandleLogout)
		r.With(authn.RequireAuth).Get("/auth/me", ah.HandleMe)
		r.With(authn.RequireAuth).Put("/auth/me", ah.HandleUpdateMe)
		r.With(authn.RequireAuth).Post("/auth/refresh", ah.HandleRefresh)

		r.Get("/cocktails", ch.HandleList)
		r.Get("/search/cocktails", ch.HandleSearch)
		r.Get("/cocktails/{id}", ch.HandleGet)
		r.With(authn.OptionalAuth).Get("/cocktails/{id}/like", ch.HandleLikeStatus)
		r.With(authn.RequireAuth).Post("/cocktails/{id}/like", ch.HandleLike)
		r.With(authn.RequireAuth).Delete("/cocktails/{id}/like", ch.HandleUnlike)

		r.Get("/posts/latest", cm.HandleLatest)
		r.Get("/posts", cm.HandleList)
		r.Get("/posts/{id}", cm.HandleGet)
		r.Get("/comment/{id}", cm.HandleListComments)
		r.With(authn.RequireAuth).Post("/posts", cm.HandleCreate)
		r.With(authn.RequireAuth).Put("/posts/{id}", cm.HandleUpdate)
		r.With(authn.RequireAuth).Delete("/posts/{id}", cm.HandleDelete)
		r.With(authn.RequireAuth).Post("/comment", cm.HandleCreateComment)
		r.With(authn.RequireAuth).Post("/comment/{id}/replies", cm.HandleReply)

		r.Get("/citys", dh.HandleCities)
		r.Get("/bars/hot", dh.HandleHotBars)
		r.Get("/bars/{city}", dh.HandleBarsInCity)

		r.Post("/gemeni", rh.HandleGenerate)
		r.With(authn.RequireAuth).Post("/gemeni/save", rh.HandleSave)
		r.With(authn.RequireAuth).Get("/gemeni/save", rh.HandleListSaved)
	})
	env.router = r
	return env
}

// do sends a request with an optional JSON body and cookies.
func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

// signup registers a user over HTTP and returns the session cookie.
func (e *testEnv) signup(t *testing.T, loginID, name string) *http.Cookie {
	t.Helper()
	rr := e.do(t, http.MethodPost, "/api/auth/signup", map[string]string{
		"login_id": loginID,
		"password": "password123",
		"name":     name,
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	c := findCookie(rr, auth.SessionCookieName)
	require.NotNil(t, c)
	return c
}

func findCookie(rr *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rr.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&v))
	return v
}

type errorBody struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields"`
}
