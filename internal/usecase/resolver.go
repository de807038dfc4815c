package usecase

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/adapter/metrics"
	"github.com/V4T54L/tabletop/internal/domain"
)

type cacheEntry struct {
	scope     domain.Scope
	found     bool
	expiresAt time.Time
}

// TenantResolver maps an API key onto an active tenant scope. Lookups, both
// hits and misses, are cached in memory for ttl.
type TenantResolver struct {
	tenants domain.TenantRepository
	logger  *zap.Logger
	metrics *metrics.APIMetrics
	ttl     time.Duration

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// NewTenantResolver creates a resolver backed by the tenant repository.
func NewTenantResolver(tenants domain.TenantRepository, logger *zap.Logger, ttl time.Duration, m *metrics.APIMetrics) *TenantResolver {
	return &TenantResolver{
		tenants: tenants,
		logger:  logger.With(zap.String("component", "tenant-resolver")),
		metrics: m,
		ttl:     ttl,
		cache:   make(map[string]cacheEntry),
	}
}

// Resolve returns the scope of the tenant owning apiKey. It fails with
// ErrNotConfigured for an empty key and ErrUnauthorized for unknown or
// suspended tenants.
func (r *TenantResolver) Resolve(ctx context.Context, apiKey string) (domain.Scope, error) {
	key := domain.NormalizeAPIKey(apiKey)
	if key == "" {
		return domain.Scope{}, domain.ErrNotConfigured
	}

	// 1. Check cache with a read lock
	r.mu.RLock()
	entry, ok := r.cache[key]
	r.mu.RUnlock()

	if ok && time.Now().Before(entry.expiresAt) {
		if r.metrics != nil {
			r.metrics.TenantCacheHits.Inc()
		}
		return entry.result()
	}

	// 2. Cache miss or expired
	if r.metrics != nil {
		r.metrics.TenantCacheMisses.Inc()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Another goroutine may have filled the entry while we waited for the lock.
	if entry, ok = r.cache[key]; ok && time.Now().Before(entry.expiresAt) {
		return entry.result()
	}

	// 3. Query the store
	entry = cacheEntry{expiresAt: time.Now().Add(r.ttl)}
	tenant, err := r.tenants.FindByAPIKey(ctx, key)
	switch {
	case err == nil:
		entry.found = tenant.Active()
		entry.scope = domain.Scope{APIKey: tenant.APIKey, CompanyID: tenant.CompanyID}
	case errors.Is(err, domain.ErrNotFound):
	default:
		// Errors are not cached so the next request retries the store.
		r.logger.Error("failed to look up tenant", zap.Error(err), zap.String("api_key", key))
		return domain.Scope{}, err
	}

	r.cache[key] = entry
	return entry.result()
}

// Invalidate drops the cached lookup for apiKey.
func (r *TenantResolver) Invalidate(apiKey string) {
	r.mu.Lock()
	delete(r.cache, domain.NormalizeAPIKey(apiKey))
	r.mu.Unlock()
}

func (e cacheEntry) result() (domain.Scope, error) {
	if !e.found {
		return domain.Scope{}, domain.ErrUnauthorized
	}
	return e.scope, nil
}
