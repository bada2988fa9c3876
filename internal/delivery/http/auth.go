package http

import (
	"context"
	"net/http"
	"strings"

	"portfolio-backend/internal/domain"
)

type contextKey struct{}

// UserID returns the authenticated user stored by Authenticator.
func UserID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(contextKey{}).(string)
	return uid, ok && uid != ""
}

// WithUserID returns a context carrying uid.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, contextKey{}, uid)
}

// Authenticator resolves the caller from a bearer token. Browsers cannot set
// headers on a websocket upgrade, so a token query parameter is accepted too.
type Authenticator struct {
	identity domain.IdentityProvider
}

func NewAuthenticator(identity domain.IdentityProvider) *Authenticator {
	return &Authenticator{identity: identity}
}

func (a *Authenticator) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, err := a.identity.Authenticate(r.Context(), credential(r))
		if err != nil || uid == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r.WithContext(WithUserID(r.Context(), uid)))
	}
}

func credential(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	return r.URL.Query().Get("token")
}
