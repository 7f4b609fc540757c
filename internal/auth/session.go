// Package auth gates the cockpit behind configured session tokens.
package auth

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"
)

// CookieName is the session cookie read by Middleware.
const CookieName = "cockpit_session"

type sessionKey struct{}

// Session is the authenticated caller attached to a request context.
type Session struct {
	Token string
}

// Authenticator validates session tokens against a fixed allow list.
type Authenticator struct {
	tokens [][]byte
}

// New returns an Authenticator accepting the given tokens. Blank entries are ignored.
func New(tokens []string) *Authenticator {
	a := &Authenticator{}
	for _, t := range tokens {
		t = strings.TrimSpace(t)
		if t != "" {
			a.tokens = append(a.tokens, []byte(t))
		}
	}
	return a
}

// Valid reports whether token is one of the configured tokens.
func (a *Authenticator) Valid(token string) bool {
	if a == nil || token == "" {
		return false
	}
	ok := false
	for _, t := range a.tokens {
		if subtle.ConstantTimeCompare(t, []byte(token)) == 1 {
			ok = true
		}
	}
	return ok
}

// Login returns ctx carrying a session when token is valid, or ctx unchanged.
func (a *Authenticator) Login(ctx context.Context, token string) context.Context {
	if !a.Valid(token) {
		return ctx
	}
	return context.WithValue(ctx, sessionKey{}, Session{Token: token})
}

// Middleware attaches a session to requests presenting a valid bearer token
// or session cookie. Requests without one pass through anonymously.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if token := requestToken(r); token != "" {
			r = r.WithContext(a.Login(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

// IsAuthenticated reports whether ctx carries a session.
func (a *Authenticator) IsAuthenticated(ctx context.Context) bool {
	_, ok := SessionFromContext(ctx)
	return ok
}

// SessionFromContext returns the session attached by Middleware or Login.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// TokenFromContext returns the session token, or "" for anonymous callers.
func TokenFromContext(ctx context.Context) string {
	s, _ := SessionFromContext(ctx)
	return s.Token
}

// RequireSession rejects anonymous requests with 401.
func RequireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := SessionFromContext(r.Context()); !ok {
			w.Header().Set("WWW-Authenticate", "Bearer")
			http.Error(w, "authentication required", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

func requestToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}
