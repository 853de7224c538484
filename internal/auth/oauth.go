package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ProviderGoogle is the provider name stored in oauth_accounts.
const ProviderGoogle = "google"

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// ExternalIdentity is the profile a provider returned for the signed-in user.
type ExternalIdentity struct {
	Provider string
	ID       string
	Email    string
	Name     string
}

// Tokens are the provider credentials stored on the account link.
// RefreshToken is empty when the provider did not issue a new one.
type Tokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// GoogleProvider wraps the OAuth2 authorization-code flow against Google.
//
// OAUTH2 AUTHORIZATION CODE FLOW:
//  1. AuthURL builds the consent URL; the browser is redirected there
//  2. Google redirects back with ?code=...&state=...
//  3. Exchange trades the code for tokens (server to server)
//  4. The access token is used once to read the userinfo profile
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
	client      *http.Client
}

// GoogleOption customises a GoogleProvider. Tests point both URLs at an
// httptest server.
type GoogleOption func(*GoogleProvider)

// WithEndpoint replaces Google's auth and token endpoints.
func WithEndpoint(ep oauth2.Endpoint) GoogleOption {
	return func(p *GoogleProvider) { p.config.Endpoint = ep }
}

// WithUserInfoURL replaces the profile endpoint.
func WithUserInfoURL(u string) GoogleOption {
	return func(p *GoogleProvider) { p.userInfoURL = u }
}

// WithHTTPClient sets the client used for the token exchange and the
// profile call. The default has a 10s timeout.
func WithHTTPClient(c *http.Client) GoogleOption {
	return func(p *GoogleProvider) { p.client = c }
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string, opts ...GoogleOption) *GoogleProvider {
	p := &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
		client:      &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Configured reports whether client credentials were provided. The Google
// routes answer 503 without them.
func (p *GoogleProvider) Configured() bool {
	return p.config.ClientID != "" && p.config.ClientSecret != ""
}

// AuthURL asks for offline access so Google issues a refresh token on the
// first consent.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades the code for tokens and reads the user's profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*ExternalIdentity, *Tokens, error) {
	// oauth2 picks the HTTP client for the token request up from the context.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	tok, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	client := p.config.Client(ctx, tok)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: building userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("auth: calling Google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil, fmt.Errorf("auth: Google userinfo returned status %d", resp.StatusCode)
	}

	var profile struct {
		Sub   string `json:"sub"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, nil, fmt.Errorf("auth: decoding Google userinfo: %w", err)
	}
	if profile.Sub == "" {
		return nil, nil, fmt.Errorf("auth: Google returned a profile without a subject")
	}

	ext := &ExternalIdentity{
		Provider: ProviderGoogle,
		ID:       profile.Sub,
		Email:    profile.Email,
		Name:     profile.Name,
	}
	tokens := &Tokens{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}
	return ext, tokens, nil
}
