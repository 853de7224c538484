// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a local account. It is created either by local sign-up or by the
// first OAuth login whose external identity matches no existing account.
//
// LoginID is the username/email-equivalent and Name is the public display
// name; both are UNIQUE in the database. PasswordHash is empty for accounts
// that only ever signed in through a provider.
type User struct {
	ID           string    `json:"id"`
	LoginID      string    `json:"login_id"`
	Name         string    `json:"name"`
	Nickname     string    `json:"nickname"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// OAuthAccount links one third-party identity to a local user.
// (Provider, ProviderUserID) is globally unique; one user may own several links.
type OAuthAccount struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	Provider       string    `json:"provider"`
	ProviderUserID string    `json:"providerUserId"`
	AccessToken    string    `json:"-"`
	RefreshToken   string    `json:"-"`
	ExpiresAt      time.Time `json:"expiresAt"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// ApplyTokens copies freshly issued provider tokens onto the link.
//
// The access token and expiry always move forward. Providers do not re-issue a
// refresh token on every login, so an empty one never replaces a stored one.
func (a *OAuthAccount) ApplyTokens(accessToken, refreshToken string, expiresAt time.Time) {
	a.AccessToken = accessToken
	a.ExpiresAt = expiresAt
	if refreshToken != "" {
		a.RefreshToken = refreshToken
	}
}
