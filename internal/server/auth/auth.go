// Package auth decides whether a request carries the admin token that
// allows writing the playlist manifest.
package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type adminKey struct{}

var bearerPrefix = regexp.MustCompile(`(?i)^bearer\s+`)

// Checker verifies admin credentials against a plain token, a bcrypt hash of
// it, or both. With neither configured nobody is admin.
type Checker struct {
	token []byte
	hash  []byte
}

func NewChecker(token, hash string) *Checker {
	c := &Checker{}
	if token != "" {
		c.token = []byte(token)
	}
	if hash != "" {
		c.hash = []byte(hash)
	}
	return c
}

// Enabled reports whether any secret is configured.
func (c *Checker) Enabled() bool {
	return c != nil && (c.token != nil || c.hash != nil)
}

// Check reports whether r presents the admin token, either as
// "Authorization: Bearer <token>" or as the token query parameter.
func (c *Checker) Check(r *http.Request) bool {
	if !c.Enabled() {
		return false
	}
	for _, cand := range credentials(r) {
		if c.verify(cand) {
			return true
		}
	}
	return false
}

func (c *Checker) verify(cand string) bool {
	if cand == "" {
		return false
	}
	if c.token != nil && subtle.ConstantTimeCompare([]byte(cand), c.token) == 1 {
		return true
	}
	if c.hash != nil && bcrypt.CompareHashAndPassword(c.hash, []byte(cand)) == nil {
		return true
	}
	return false
}

func credentials(r *http.Request) []string {
	var out []string
	if h := r.Header.Get("Authorization"); h != "" {
		out = append(out, strings.TrimSpace(bearerPrefix.ReplaceAllString(h, "")))
	}
	if q := r.URL.Query().Get("token"); q != "" {
		out = append(out, q)
	}
	return out
}

// HashToken returns a bcrypt hash suitable for the admin_token_hash setting.
func HashToken(token string) (string, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// WithAdmin records the admin decision for the request.
func WithAdmin(ctx context.Context, admin bool) context.Context {
	return context.WithValue(ctx, adminKey{}, admin)
}

// IsAdmin reports the decision stored by WithAdmin; false when unset.
func IsAdmin(ctx context.Context) bool {
	v, _ := ctx.Value(adminKey{}).(bool)
	return v
}

// Middleware stores the admin decision for every request passing through.
func Middleware(c *Checker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithAdmin(r.Context(), c.Check(r))))
		})
	}
}
