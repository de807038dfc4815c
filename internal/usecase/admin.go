package usecase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
)

// AdminUseCase backs the operator endpoints on the admin listener.
type AdminUseCase struct {
	store    domain.Store
	stream   domain.AuditStreamAdmin
	resolver *TenantResolver
	group    string
	logger   *zap.Logger
}

// NewAdminUseCase creates a new AdminUseCase. stream may be nil when the
// process runs without an audit buffer.
func NewAdminUseCase(store domain.Store, stream domain.AuditStreamAdmin, resolver *TenantResolver, group string, logger *zap.Logger) *AdminUseCase {
	return &AdminUseCase{
		store:    store,
		stream:   stream,
		resolver: resolver,
		group:    group,
		logger:   logger.With(zap.String("component", "admin")),
	}
}

// Ping checks the backing store.
func (uc *AdminUseCase) Ping(ctx context.Context) error {
	return uc.store.Ping(ctx)
}

// Tenant returns the tenant record for apiKey.
func (uc *AdminUseCase) Tenant(ctx context.Context, apiKey string) (*domain.Tenant, error) {
	return uc.store.Tenants().FindByAPIKey(ctx, domain.NormalizeAPIKey(apiKey))
}

// SetTenantStatus suspends or reactivates a tenant and drops it from the
// resolver cache so the change applies to the next request.
func (uc *AdminUseCase) SetTenantStatus(ctx context.Context, apiKey string, status domain.TenantStatus) (*domain.Tenant, error) {
	if status != domain.TenantActive && status != domain.TenantSuspended {
		return nil, domain.NewValidationError("status", "must be %q or %q", domain.TenantActive, domain.TenantSuspended)
	}
	apiKey = domain.NormalizeAPIKey(apiKey)
	if err := uc.store.Tenants().UpdateStatus(ctx, apiKey, status); err != nil {
		return nil, fmt.Errorf("update tenant status: %w", err)
	}
	if uc.resolver != nil {
		uc.resolver.Invalidate(apiKey)
	}
	uc.logger.Info("tenant status changed", zap.String("api_key", apiKey), zap.String("status", string(status)))
	return uc.Tenant(ctx, apiKey)
}

// AuditStats summarises the audit stream for the relay group.
func (uc *AdminUseCase) AuditStats(ctx context.Context) (*domain.AuditStreamStats, error) {
	if uc.stream == nil {
		return nil, domain.ErrNotConfigured
	}
	return uc.stream.Stats(ctx, uc.group)
}

// TrimAudit caps the audit stream at maxLen entries.
func (uc *AdminUseCase) TrimAudit(ctx context.Context, maxLen int64) (int64, error) {
	if maxLen <= 0 {
		return 0, domain.NewValidationError("maxlen", "must be a positive integer")
	}
	if uc.stream == nil {
		return 0, domain.ErrNotConfigured
	}
	return uc.stream.Trim(ctx, maxLen)
}
