package middleware

import (
	"context"
	"net/http"

	"pulsetrack/shared/auth/rbac"
)

type contextKey string

const contextPrincipal contextKey = "principal"

// Headers the gateway uses to pass the verified identity upstream.
const (
	HeaderUserEmail = "X-User-Email"
	HeaderUserRole  = "X-User-Role"
)

func WithPrincipal(ctx context.Context, p rbac.Principal) context.Context {
	return context.WithValue(ctx, contextPrincipal, p)
}

func PrincipalFrom(ctx context.Context) (rbac.Principal, bool) {
	p, ok := ctx.Value(contextPrincipal).(rbac.Principal)
	return p, ok
}

// StripIdentityHeaders drops any client supplied identity headers.
func StripIdentityHeaders(h http.Header) {
	h.Del(HeaderUserEmail)
	h.Del(HeaderUserRole)
}

// SetIdentityHeaders writes the principal stored in ctx onto h, clearing
// whatever was there first.
func SetIdentityHeaders(ctx context.Context, h http.Header) {
	StripIdentityHeaders(h)
	if p, ok := PrincipalFrom(ctx); ok {
		h.Set(HeaderUserEmail, p.Subject)
		h.Set(HeaderUserRole, p.Role.String())
	}
}

// ForwardedIdentity rebuilds the principal on upstream services that sit
// behind the gateway. Requests with a missing or unknown role carry no
// principal.
func ForwardedIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email := r.Header.Get(HeaderUserEmail)
		role := rbac.Role(r.Header.Get(HeaderUserRole))
		if email != "" && role.Valid() {
			r = r.WithContext(WithPrincipal(r.Context(), rbac.Principal{Subject: email, Role: role}))
		}
		next.ServeHTTP(w, r)
	})
}
