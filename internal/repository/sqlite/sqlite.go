// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the server builds
// without CGo. The package exposes one owned handle, *DB, created by Open at
// process start and closed at shutdown; there is no package-level pool.
//
// CONNECTION SETTINGS:
// Every pooled connection is opened with the same pragmas through the DSN:
//   - foreign_keys(1)     referential integrity (likes → cocktails, comments → posts)
//   - busy_timeout(5000)  wait up to 5s for a competing writer instead of failing
//   - journal_mode(WAL)   readers do not block the single writer
//
// and _txlock=immediate, so BEGIN takes the write lock up front. Two like
// toggles on the same cocktail therefore serialize at BEGIN instead of both
// reading under a shared lock and then deadlocking on the upgrade.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/sakif/cocktail-club/internal/repository"

	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and provides repository methods.
//
// The embedded queries value runs statements directly against the pool;
// WithinTx hands fn a queries value bound to a *sql.Tx instead, so every
// statement is written once and works in both places.
type DB struct {
	conn *sql.DB
	queries
}

// querier is the subset of *sql.DB and *sql.Tx the statements need.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type queries struct {
	q querier
}

var (
	_ repository.Transactor          = (*DB)(nil)
	_ repository.Tx                  = queries{}
	_ repository.IdentityStore       = (*DB)(nil)
	_ repository.LikeStore           = (*DB)(nil)
	_ repository.CocktailRepository  = (*DB)(nil)
	_ repository.CommunityRepository = (*DB)(nil)
	_ repository.DirectoryRepository = (*DB)(nil)
	_ repository.RecipeRepository    = (*DB)(nil)
)

// Open creates the connection pool, verifies it and applies migrations.
//
// dbPath examples:
//   - "data/cocktails.db"  → file-based database (persistent)
//   - ":memory:"           → in-memory database, limited to one connection
//     because every SQLite connection to :memory: is a separate database
func Open(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	} else {
		conn.SetMaxOpenConns(8)
		conn.SetMaxIdleConns(4)
		conn.SetConnMaxLifetime(time.Hour)
	}

	// sql.Open does not connect; Ping surfaces a bad path or permissions now.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	if err := migrateUp(conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return &DB{conn: conn, queries: queries{q: conn}}, nil
}

// dsn turns a path into a modernc URI carrying the per-connection settings.
func dsn(dbPath string) string {
	params := url.Values{}
	params.Add("_pragma", "foreign_keys(1)")
	params.Add("_pragma", "busy_timeout(5000)")
	params.Add("_txlock", "immediate")
	if dbPath != ":memory:" {
		params.Add("_pragma", "journal_mode(WAL)")
	}

	name := dbPath
	if !strings.HasPrefix(name, "file:") {
		name = "file:" + name
	}
	return name + "?" + params.Encode()
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable. Used by /healthz.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// WithinTx runs fn inside one transaction on one borrowed connection.
//
// SCOPED ACQUISITION:
// The connection goes back to the pool on every exit path:
//   - fn returns nil      → COMMIT
//   - fn returns an error → ROLLBACK, error returned unchanged
//   - fn panics           → ROLLBACK, then the panic continues up the stack
//
// Callers never see a half-applied transaction.
func (db *DB) WithinTx(ctx context.Context, fn func(tx repository.Tx) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				err = errors.Join(err, fmt.Errorf("sqlite: rolling back: %w", rbErr))
			}
		}
	}()

	if err = fn(queries{q: tx}); err != nil {
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing transaction: %w", err)
	}
	return nil
}

// nullTime stores the zero time as NULL.
func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// nullString stores the empty string as NULL.
func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
