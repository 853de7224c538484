package auth

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_RoundTrip(t *testing.T) {
	nonce, err := NewNonce()
	require.NoError(t, err)
	require.Len(t, nonce, 32)

	got := DecodeState(EncodeState("/cocktails/negroni?tab=likes", nonce))
	assert.Equal(t, nonce, got.Nonce)
	assert.Equal(t, "/cocktails/negroni?tab=likes", got.Next)
}

func TestDecodeState_BestEffort(t *testing.T) {
	std := base64.StdEncoding.EncodeToString([]byte(`{"nonce":"n","next":"/mypage"}`))

	cases := []struct {
		name, raw, wantNext, wantNonce string
	}{
		{"empty", "", "/", ""},
		{"not base64", "%%%", "/", ""},
		{"not json", base64.RawURLEncoding.EncodeToString([]byte("next=/x")), "/", ""},
		{"padded std alphabet", std, "/mypage", "n"},
		{"next missing", EncodeState("", "n"), "/", "n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := DecodeState(tc.raw)
			assert.Equal(t, tc.wantNext, st.Next)
			assert.Equal(t, tc.wantNonce, st.Nonce)
		})
	}
}

func TestSafeNext(t *testing.T) {
	cases := map[string]string{
		"/community":             "/community",
		"":                       "/",
		"https://evil.example":   "/",
		"//evil.example/path":    "/",
		`/\evil.example`:         "/",
		"relative/path":          "/",
		"/bars/서울":               "/bars/서울",
	}
	for in, want := range cases {
		assert.Equal(t, want, SafeNext(in), "SafeNext(%q)", in)
	}
}
