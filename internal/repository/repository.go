// Package repository declares the storage contracts the service layer depends on.
//
// Services receive these interfaces, never a concrete database type, so the
// wiring in internal/server is the only place that knows about SQLite.
package repository

import (
	"context"
	"time"

	"github.com/sakif/cocktail-club/internal/model"
)

// ListOptions is offset pagination for listing queries.
type ListOptions struct {
	Limit  int
	Offset int
}

// InsertOutcome reports how a user insert ended when it did not fail outright.
// A taken display name is an expected outcome, not an error, so callers can
// retry with another candidate without inspecting driver errors.
type InsertOutcome int

const (
	UserCreated InsertOutcome = iota
	UserNameTaken
)

// Transactor runs fn inside one database transaction. The transaction commits
// when fn returns nil and rolls back on error or panic; the underlying
// connection is released on every path.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// UserReader looks users up. Both return apperror.ErrNotFound when absent.
type UserReader interface {
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetUserByLoginID(ctx context.Context, loginID string) (*model.User, error)
}

// Tx is the set of statements that must run on a single connection.
type Tx interface {
	UserReader

	// InsertUser assigns ID and timestamps. A login_id collision is returned
	// as apperror.ErrConflict; a name collision as UserNameTaken.
	InsertUser(ctx context.Context, user *model.User) (InsertOutcome, error)
	DeleteUser(ctx context.Context, id string) error

	// FindOAuthAccount returns apperror.ErrNotFound when the identity is unlinked.
	FindOAuthAccount(ctx context.Context, provider, providerUserID string) (*model.OAuthAccount, error)
	UpdateOAuthTokens(ctx context.Context, account *model.OAuthAccount) error
	// UpsertOAuthAccount inserts the link, or on a (provider, provider_user_id)
	// conflict updates the token fields in place. It returns the stored row,
	// whose UserID is the owner that actually holds the link.
	UpsertOAuthAccount(ctx context.Context, account *model.OAuthAccount) (*model.OAuthAccount, error)

	// CocktailLikeCount returns the current counter, apperror.ErrNotFound for
	// an unknown cocktail.
	CocktailLikeCount(ctx context.Context, cocktailID int64) (int64, error)
	// InsertLike reports whether a new (cocktail, user) row was created.
	InsertLike(ctx context.Context, cocktailID int64, userID string) (bool, error)
	// DeleteLike reports whether an existing row was removed.
	DeleteLike(ctx context.Context, cocktailID int64, userID string) (bool, error)
	// IncrementLikeCount and DecrementLikeCount are relative updates;
	// the decrement never goes below zero.
	IncrementLikeCount(ctx context.Context, cocktailID int64) error
	DecrementLikeCount(ctx context.Context, cocktailID int64) error
}

// RevocationStore keeps the ids of session credentials that were logged out
// before their natural expiry.
type RevocationStore interface {
	RevokeSession(ctx context.Context, tokenID, userID string, expiresAt time.Time) error
	IsSessionRevoked(ctx context.Context, tokenID string) (bool, error)
	PurgeExpiredRevocations(ctx context.Context, now time.Time) (int64, error)
}

// IdentityStore is everything the identity service needs.
type IdentityStore interface {
	Transactor
	UserReader
	RevocationStore
	// UpdateUserProfile writes name and nickname; a taken name is apperror.ErrConflict.
	UpdateUserProfile(ctx context.Context, user *model.User) error
}

// LikeStore is everything the like ledger needs.
type LikeStore interface {
	Transactor
	// LikeStatus reads the counter and, when userID is non-empty, membership.
	LikeStatus(ctx context.Context, cocktailID int64, userID string) (*model.LikeStatus, error)
	// ReconcileLikeCounts rewrites every counter that drifted from
	// COUNT(cocktail_likes) and returns how many were repaired.
	ReconcileLikeCounts(ctx context.Context) (int64, error)
}

type CocktailRepository interface {
	ListCocktails(ctx context.Context) ([]model.Cocktail, error)
	// GetCocktail accepts a slug or a decimal id.
	GetCocktail(ctx context.Context, slugOrID string) (*model.Cocktail, error)
	SearchCocktails(ctx context.Context, keyword string, limit int) ([]model.Cocktail, error)
}

type CommunityRepository interface {
	CreatePost(ctx context.Context, post *model.Post) error
	GetPost(ctx context.Context, id string) (*model.Post, error)
	ListPosts(ctx context.Context, opts ListOptions) ([]model.Post, error)
	CountPosts(ctx context.Context) (int, error)
	UpdatePost(ctx context.Context, post *model.Post) error
	DeletePost(ctx context.Context, id string) error

	CreateComment(ctx context.Context, comment *model.Comment) error
	GetComment(ctx context.Context, id string) (*model.Comment, error)
	ListComments(ctx context.Context, postID string) ([]model.Comment, error)
	UpdateComment(ctx context.Context, comment *model.Comment) error
	DeleteComment(ctx context.Context, id string) error
	CreateSubComment(ctx context.Context, reply *model.SubComment) error
}

type DirectoryRepository interface {
	ListCities(ctx context.Context) ([]model.City, error)
	GetCityByName(ctx context.Context, name string) (*model.City, error)
	ListBars(ctx context.Context) ([]model.Bar, error)
	ListRecentBars(ctx context.Context, limit int) ([]model.Bar, error)
	ListBarsByCity(ctx context.Context, cityID int64) ([]model.Bar, error)
}

type RecipeRepository interface {
	SaveRecipe(ctx context.Context, saved *model.SavedRecipe) error
	ListSavedRecipes(ctx context.Context, userID string, opts ListOptions) ([]model.SavedRecipe, error)
	CountSavedRecipes(ctx context.Context, userID string) (int, error)
}
