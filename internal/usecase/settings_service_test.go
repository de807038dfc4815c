package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
	"github.com/V4T54L/tabletop/internal/domain/mocks"
)

func TestSettingsService_Get(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMemoryStore()
	svc := NewSettingsService(store.Settings(), NopAuditRecorder{}, zap.NewNop())

	t.Run("Built-in default", func(t *testing.T) {
		doc, err := svc.Get(ctx, acmeScope(), domain.SettingsCatalog)
		require.NoError(t, err)
		assert.Equal(t, true, doc.Fields["itemEdit"])
	})

	t.Run("Global document wins over the default", func(t *testing.T) {
		require.NoError(t, store.Settings().Upsert(ctx, &domain.Settings{
			Type: domain.SettingsCatalog, APIKey: domain.GlobalScope, Fields: map[string]any{"itemEdit": false},
		}))
		doc, err := svc.Get(ctx, acmeScope(), domain.SettingsCatalog)
		require.NoError(t, err)
		assert.Equal(t, false, doc.Fields["itemEdit"])
		assert.Equal(t, domain.GlobalScope, doc.APIKey)
	})

	t.Run("Tenant document wins over the global one", func(t *testing.T) {
		require.NoError(t, store.Settings().Upsert(ctx, &domain.Settings{
			Type: domain.SettingsCatalog, APIKey: "acme_1234", Fields: map[string]any{"itemEdit": true, "itemDelete": false},
		}))
		doc, err := svc.Get(ctx, acmeScope(), domain.SettingsCatalog)
		require.NoError(t, err)
		assert.Equal(t, "acme_1234", doc.APIKey)
		assert.Equal(t, false, doc.Fields["itemDelete"])
	})

	t.Run("Unknown type", func(t *testing.T) {
		_, err := svc.Get(ctx, acmeScope(), "printer")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Missing tenant", func(t *testing.T) {
		_, err := svc.Get(ctx, domain.Scope{}, domain.SettingsCatalog)
		assert.ErrorIs(t, err, domain.ErrNotConfigured)
	})
}

func TestSettingsService_Upsert(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMemoryStore()
	provisionACME(t, store)
	svc := NewSettingsService(store.Settings(), NopAuditRecorder{}, zap.NewNop())

	doc, err := svc.Upsert(ctx, acmeScope(), domain.SettingsUserEdit, map[string]any{
		"userDelete": false,
		"apiKey":     "someone_else",
		"type":       "catalog",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.SettingsUserEdit, doc.Type)
	assert.Equal(t, "acme_1234", doc.APIKey)
	assert.Equal(t, map[string]any{"userEdit": true, "userDelete": false}, doc.Fields)

	stored, err := svc.Get(ctx, acmeScope(), domain.SettingsUserEdit)
	require.NoError(t, err)
	assert.Equal(t, false, stored.Fields["userDelete"])

	t.Run("New type is created", func(t *testing.T) {
		doc, err := svc.Upsert(ctx, acmeScope(), "printer", map[string]any{"copies": 2})
		require.NoError(t, err)
		assert.Equal(t, map[string]any{"copies": 2}, doc.Fields)
	})

	t.Run("Empty body", func(t *testing.T) {
		_, err := svc.Upsert(ctx, acmeScope(), domain.SettingsCatalog, map[string]any{"type": "x"})
		assert.True(t, domain.IsValidation(err))
	})
}
