package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/ironbark-dev/ironbark/internal/identity/domain"
	"github.com/ironbark-dev/ironbark/pkg/httpx"
)

type principalKey struct{}

// PrincipalFromContext returns the authenticated actor attached by the
// authn middleware.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(domain.Principal)
	return p, ok
}

// authn verifies the Bearer token and attaches the actor Principal to the
// request context. Requests without a valid token never reach the handler.
func (rt *Router) authn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			w.Header().Set("WWW-Authenticate", `Bearer realm="ironbark"`)
			httpx.WriteError(w, http.StatusUnauthorized,
				"invalid_token", "Missing or malformed Authorization header")
			return
		}

		principal, err := rt.TokenService.VerifyToken(r.Context(), raw)
		if err != nil {
			w.Header().Set("WWW-Authenticate", `Bearer realm="ironbark", error="invalid_token"`)
			httpx.WriteError(w, http.StatusUnauthorized,
				"invalid_token", "Token is invalid or expired")
			return
		}

		ctx := context.WithValue(r.Context(), principalKey{}, principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireAdmin gates a route on the admin authority. Must run inside authn.
func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, ok := PrincipalFromContext(r.Context())
		if !ok || !principal.IsAdmin() {
			httpx.WriteError(w, http.StatusForbidden,
				"access_denied", "Administrator authority required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
