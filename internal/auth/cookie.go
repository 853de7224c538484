package auth

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie that carries the session credential.
const SessionCookieName = "auth"

// CookieConfig decides the attributes of the session cookie.
//
// The SPA is served from a different origin in production, so the browser
// only sends the cookie on cross-site fetches when it is SameSite=None, and
// browsers only accept SameSite=None together with Secure. Local development
// runs over plain http, where Secure cookies are dropped, so it uses Lax.
type CookieConfig struct {
	Secure   bool
	SameSite http.SameSite
	Domain   string
}

// CookieConfigFor returns the production or development attributes.
func CookieConfigFor(production bool) CookieConfig {
	if production {
		return CookieConfig{Secure: true, SameSite: http.SameSiteNoneMode}
	}
	return CookieConfig{Secure: false, SameSite: http.SameSiteLaxMode}
}

// SetSession writes the credential with Max-Age equal to its validity window.
func (c CookieConfig) SetSession(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}

// ClearSession expires the cookie. The attributes must match the ones it was
// set with or the browser keeps the original.
func (c CookieConfig) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Domain:   c.Domain,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	})
}
