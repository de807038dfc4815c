package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
)

// APIKeyHeader carries the tenant API key.
const APIKeyHeader = "X-API-Key"

// maxPeekBytes bounds how much of a request body is buffered to look for an
// apiKey field.
const maxPeekBytes = 1 << 20

type scopeKey struct{}

// ScopeResolver maps an API key onto a tenant scope.
type ScopeResolver interface {
	Resolve(ctx context.Context, apiKey string) (domain.Scope, error)
}

// WithScope returns a copy of ctx carrying scope.
func WithScope(ctx context.Context, scope domain.Scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, scope)
}

// ScopeFromContext returns the tenant scope stored by Tenant. The zero Scope
// is returned when none is set.
func ScopeFromContext(ctx context.Context) domain.Scope {
	scope, _ := ctx.Value(scopeKey{}).(domain.Scope)
	return scope
}

// Tenant resolves the caller's tenant and stores its scope in the request
// context. The key is taken from the X-API-Key header, then the apiKey query
// parameter, then an apiKey field of a JSON body, then defaultKey.
func Tenant(resolver ScopeResolver, defaultKey string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := apiKeyFromRequest(r)
			if key == "" {
				key = defaultKey
			}

			scope, err := resolver.Resolve(r.Context(), key)
			if err != nil {
				switch {
				case errors.Is(err, domain.ErrNotConfigured):
					writeError(w, http.StatusUnauthorized, "api key is required")
				case errors.Is(err, domain.ErrUnauthorized):
					writeError(w, http.StatusUnauthorized, "invalid api key")
				default:
					logger.Error("failed to resolve tenant", zap.Error(err))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithScope(r.Context(), scope)))
		})
	}
}

func apiKeyFromRequest(r *http.Request) string {
	if key := r.Header.Get(APIKeyHeader); key != "" {
		return key
	}
	if key := r.URL.Query().Get("apiKey"); key != "" {
		return key
	}
	return apiKeyFromBody(r)
}

// apiKeyFromBody reads the apiKey field of a JSON object body and restores
// the body for the handler.
func apiKeyFromBody(r *http.Request) string {
	if r.Body == nil || r.Body == http.NoBody {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type")); err != nil || mediaType != "application/json" {
		return ""
	}

	data, err := io.ReadAll(io.LimitReader(r.Body, maxPeekBytes))
	r.Body.Close()
	r.Body = io.NopCloser(bytes.NewReader(data))
	if err != nil {
		return ""
	}

	var payload struct {
		APIKey string `json:"apiKey"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return ""
	}
	return payload.APIKey
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
