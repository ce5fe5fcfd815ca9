package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/mcoot/roomserver/internal/api/apierr"
	"github.com/mcoot/roomserver/internal/services/identity"
)

// Verifier checks a bearer credential with the identity service
type Verifier interface {
	Verify(ctx context.Context, jwt string) error
}

// Auth creates authentication middleware. The credential is checked with
// the identity service on every request; nothing is cached.
func Auth(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				apierr.WriteError(w, apierr.NewUnauthorizedError())
				return
			}

			if err := verifier.Verify(r.Context(), token); err != nil {
				apierr.WriteError(w, err)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// extractToken reads the credential from the identity service's own header,
// falling back to a bearer Authorization header
func extractToken(r *http.Request) string {
	if token := r.Header.Get(identity.TokenHeader); token != "" {
		return token
	}

	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return ""
}
