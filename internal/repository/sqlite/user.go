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
	"github.com/sakif/cocktail-club/internal/repository"
)

const userColumns = `id, login_id, name, nickname, password_hash, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.LoginID,
		&u.Name,
		&u.Nickname,
		&u.PasswordHash,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (s queries) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetUserByLoginID retrieves a user by login_id (username or email).
func (s queries) GetUserByLoginID(ctx context.Context, loginID string) (*model.User, error) {
	u, err := scanUser(s.q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE login_id = ?`, loginID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", loginID)
		}
		return nil, fmt.Errorf("sqlite: getting user by login_id %s: %w", loginID, err)
	}
	return u, nil
}

// InsertUser creates a user row.
//
// The ON CONFLICT(name) DO NOTHING clause turns a display-name collision into
// "zero rows affected", which is reported as repository.UserNameTaken. Any
// other uniqueness failure (login_id) is still an error from the driver and
// is mapped to apperror.ErrConflict by its result code.
func (s queries) InsertUser(ctx context.Context, user *model.User) (repository.InsertOutcome, error) {
	now := time.Now().UTC()
	id := xid.New().String()

	res, err := s.q.ExecContext(ctx,
		`INSERT INTO users (id, login_id, name, nickname, password_hash, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (name) DO NOTHING`,
		id,
		user.LoginID,
		user.Name,
		user.Nickname,
		user.PasswordHash,
		now,
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, apperror.Conflict("user", user.LoginID)
		}
		return 0, fmt.Errorf("sqlite: inserting user %s: %w", user.LoginID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return repository.UserNameTaken, nil
	}

	user.ID = id
	user.CreatedAt = now
	user.UpdatedAt = now
	return repository.UserCreated, nil
}

// DeleteUser removes a user row. Only used to undo a user created inside a
// transaction that lost an OAuth linking race.
func (s queries) DeleteUser(ctx context.Context, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting user %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", id)
	}
	return nil
}

// UpdateUserProfile changes the display name and nickname.
func (db *DB) UpdateUserProfile(ctx context.Context, user *model.User) error {
	user.UpdatedAt = time.Now().UTC()

	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET name = ?, nickname = ?, updated_at = ? WHERE id = ?`,
		user.Name,
		user.Nickname,
		user.UpdatedAt,
		user.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user name", user.Name)
		}
		return fmt.Errorf("sqlite: updating user %s: %w", user.ID, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound("user", user.ID)
	}
	return nil
}
