package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/V4T54L/tabletop/internal/pkg/token"
)

type claimsKey struct{}

// ClaimsFromContext returns the session claims stored by Session, if any.
func ClaimsFromContext(ctx context.Context) (*token.Claims, bool) {
	claims, ok := ctx.Value(claimsKey{}).(*token.Claims)
	return claims, ok
}

// Session validates the bearer token of tenant requests. It must run after
// Tenant. When required is false requests without a token pass through, but
// a token that is present must still be valid.
func Session(issuer *token.Issuer, required bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				if required {
					writeError(w, http.StatusUnauthorized, "session token is required")
					return
				}
				next.ServeHTTP(w, r)
				return
			}

			claims, err := issuer.Validate(raw)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid session token")
				return
			}
			if claims.APIKey != ScopeFromContext(r.Context()).APIKey {
				writeError(w, http.StatusUnauthorized, "session token does not match tenant")
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	scheme, raw, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return "", false
	}
	return strings.TrimSpace(raw), true
}
