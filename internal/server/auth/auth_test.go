package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func request(header, query string) *http.Request {
	target := "/playlist/generate"
	if query != "" {
		target += "?token=" + query
	}
	r := httptest.NewRequest(http.MethodPost, target, nil)
	if header != "" {
		r.Header.Set("Authorization", header)
	}
	return r
}

func TestCheckToken(t *testing.T) {
	c := NewChecker("s3cret", "")

	cases := []struct {
		name   string
		header string
		query  string
		want   bool
	}{
		{"bearer", "Bearer s3cret", "", true},
		{"lowercase scheme", "bearer   s3cret ", "", true},
		{"bare header", "s3cret", "", true},
		{"query", "", "s3cret", true},
		{"wrong header right query", "Bearer nope", "s3cret", true},
		{"wrong", "Bearer nope", "", false},
		{"prefix only", "Bearer s3cre", "", false},
		{"none", "", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, c.Check(request(tc.header, tc.query)))
		})
	}
}

func TestCheckHash(t *testing.T) {
	hash, err := HashToken("hashed-secret")
	require.NoError(t, err)
	c := NewChecker("", hash)

	assert.True(t, c.Enabled())
	assert.True(t, c.Check(request("Bearer hashed-secret", "")))
	assert.False(t, c.Check(request("Bearer "+hash, "")))
}

func TestNoSecretMeansNoAdmin(t *testing.T) {
	c := NewChecker("", "")
	assert.False(t, c.Enabled())
	assert.False(t, c.Check(request("Bearer ", "")))
	assert.False(t, c.Check(request("", "")))
}

func TestMiddleware(t *testing.T) {
	var seen bool
	h := Middleware(NewChecker("s3cret", ""))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IsAdmin(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), request("Bearer s3cret", ""))
	assert.True(t, seen)
	h.ServeHTTP(httptest.NewRecorder(), request("", ""))
	assert.False(t, seen)
}
