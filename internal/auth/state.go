package auth

import (
	"encoding/base64"
	"encoding/json"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// DefaultNext is where a login lands when no usable target was requested.
const DefaultNext = "/"

// State is the OAuth "state" parameter: a CSRF nonce that must match the
// oauth_state cookie, and the path to return to after login.
type State struct {
	Nonce string `json:"nonce"`
	Next  string `json:"next,omitempty"`
}

// NewNonce returns a random nonce for the state cookie.
func NewNonce() (string, error) {
	return gonanoid.New(32)
}

// EncodeState serialises the state as URL-safe base64 JSON.
func EncodeState(next, nonce string) string {
	b, _ := json.Marshal(State{Nonce: nonce, Next: SafeNext(next)})
	return base64.RawURLEncoding.EncodeToString(b)
}

// DecodeState is best effort: anything unparsable yields an empty nonce and
// DefaultNext, which the callback then rejects on the nonce check.
func DecodeState(raw string) State {
	st := State{Next: DefaultNext}
	if raw == "" {
		return st
	}

	b, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(raw, "="))
	if err != nil {
		// Accept the padded standard alphabet some clients produce.
		if b, err = base64.StdEncoding.DecodeString(raw); err != nil {
			return st
		}
	}

	var decoded State
	if err := json.Unmarshal(b, &decoded); err != nil {
		return st
	}
	decoded.Next = SafeNext(decoded.Next)
	return decoded
}

// SafeNext only allows same-site paths. "//host" and "/\host" are
// protocol-relative in browsers and would be an open redirect.
func SafeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") ||
		strings.HasPrefix(next, "//") || strings.HasPrefix(next, `/\`) {
		return DefaultNext
	}
	return next
}
