package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/cocktail-club/internal/auth"
	"github.com/sakif/cocktail-club/internal/metrics"
	"github.com/sakif/cocktail-club/internal/model"
	"github.com/sakif/cocktail-club/internal/repository"
	"github.com/sakif/cocktail-club/internal/repository/sqlite"
)

// =========================================================================
// HELPERS
// =========================================================================

// Services are tested against a real SQLite file: the ledger and linking
// guarantees live in transactions, which a fake would not exercise.

const testSecret = "test-secret-at-least-16-chars"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "service.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestIdentityService(t *testing.T, db *sqlite.DB, m *metrics.Metrics) *IdentityService {
	t.Helper()
	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	return NewIdentityService(db, tokens, auth.NewPasswordServiceForTest(4), m, discardLogger())
}

// signup creates a local user with a throwaway password.
func signup(t *testing.T, svc *IdentityService, loginID, name string) *model.User {
	t.Helper()
	session, err := svc.Signup(context.Background(), SignupInput{
		LoginID:  loginID,
		Password: "password123",
		Name:     name,
	})
	require.NoError(t, err)
	return session.User
}

// insertUser bypasses sign-up validation, for login ids only OAuth produces.
func insertUser(t *testing.T, db *sqlite.DB, loginID, name string) *model.User {
	t.Helper()
	user := &model.User{LoginID: loginID, Name: name}
	err := db.WithinTx(context.Background(), func(tx repository.Tx) error {
		outcome, err := tx.InsertUser(context.Background(), user)
		if err != nil {
			return err
		}
		require.Equal(t, repository.UserCreated, outcome)
		return nil
	})
	require.NoError(t, err)
	return user
}

// scrape renders the metrics endpoint as text.
func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	return rec.Body.String()
}
