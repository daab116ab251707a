package middleware

import (
	"net/http"
	"strings"

	"github.com/mediabin/service/internal/auth"
	"github.com/mediabin/service/internal/response"
)

// RequireKey returns middleware that authenticates a bearer API key, checks
// the required permission, and injects the key into the request context.
//
// Missing or invalid credentials yield 401; a valid key lacking the
// permission yields 403 — distinct outcomes by design, so operators can tell
// bad credentials from insufficient grants. With security disabled the
// middleware passes everything through with no caller in context.
func RequireKey(svc *auth.Service, enabled bool, perm auth.Permission) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}

			raw := bearerToken(r)
			if raw == "" {
				response.Unauthorized(w, "api key required")
				return
			}

			key, err := svc.AuthenticateKey(r.Context(), raw)
			if err != nil {
				response.Unauthorized(w, "invalid api key")
				return
			}
			if !key.Has(perm) {
				response.Forbidden(w, "api key lacks permission "+string(perm))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithCaller(r.Context(), key)))
		})
	}
}

// bearerToken extracts the credential from an "Authorization: Bearer x" header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
