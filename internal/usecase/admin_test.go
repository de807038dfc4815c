package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
	"github.com/V4T54L/tabletop/internal/domain/mocks"
)

func TestAdminUseCase_SetTenantStatusInvalidatesResolver(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMemoryStore()
	apiKey := provisionACME(t, store).APIKey

	resolver := NewTenantResolver(store.Tenants(), zap.NewNop(), time.Hour, nil)
	_, err := resolver.Resolve(ctx, apiKey)
	require.NoError(t, err)

	admin := NewAdminUseCase(store, nil, resolver, "audit-relays", zap.NewNop())
	tenant, err := admin.SetTenantStatus(ctx, apiKey, domain.TenantSuspended)
	require.NoError(t, err)
	assert.Equal(t, domain.TenantSuspended, tenant.Status)

	_, err = resolver.Resolve(ctx, apiKey)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = admin.SetTenantStatus(ctx, apiKey, domain.TenantActive)
	require.NoError(t, err)
	_, err = resolver.Resolve(ctx, apiKey)
	assert.NoError(t, err)
}

func TestAdminUseCase_SetTenantStatusValidation(t *testing.T) {
	admin := NewAdminUseCase(mocks.NewMemoryStore(), nil, nil, "g", zap.NewNop())

	_, err := admin.SetTenantStatus(context.Background(), "acme_1234", "paused")
	assert.True(t, domain.IsValidation(err))

	_, err = admin.SetTenantStatus(context.Background(), "missing_0000", domain.TenantSuspended)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAdminUseCase_AuditStream(t *testing.T) {
	ctx := context.Background()

	t.Run("no stream configured", func(t *testing.T) {
		admin := NewAdminUseCase(mocks.NewMemoryStore(), nil, nil, "g", zap.NewNop())
		_, err := admin.AuditStats(ctx)
		assert.ErrorIs(t, err, domain.ErrNotConfigured)
		_, err = admin.TrimAudit(ctx, 10)
		assert.ErrorIs(t, err, domain.ErrNotConfigured)
	})

	t.Run("stats and trim", func(t *testing.T) {
		stream := &mocks.MockAuditStreamAdmin{
			StatsResult: &domain.AuditStreamStats{Length: 42, Pending: 3},
			Trimmed:     32,
		}
		admin := NewAdminUseCase(mocks.NewMemoryStore(), stream, nil, "g", zap.NewNop())

		stats, err := admin.AuditStats(ctx)
		require.NoError(t, err)
		assert.EqualValues(t, 42, stats.Length)

		n, err := admin.TrimAudit(ctx, 10)
		require.NoError(t, err)
		assert.EqualValues(t, 32, n)
		assert.EqualValues(t, 10, stream.LastMaxLen)

		_, err = admin.TrimAudit(ctx, 0)
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("stream error", func(t *testing.T) {
		stream := &mocks.MockAuditStreamAdmin{Err: errors.New("redis down")}
		admin := NewAdminUseCase(mocks.NewMemoryStore(), stream, nil, "g", zap.NewNop())
		_, err := admin.AuditStats(ctx)
		assert.Error(t, err)
	})
}
