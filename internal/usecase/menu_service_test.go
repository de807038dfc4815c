package usecase

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
	"github.com/V4T54L/tabletop/internal/domain/mocks"
)

func newMenuService(store *mocks.MemoryStore) *MenuService {
	codes := NewCodeGenerator(store.Counters(), store.Menu())
	return NewMenuService(store.Menu(), codes, NopAuditRecorder{}, zap.NewNop())
}

func TestPrice(t *testing.T) {
	tests := []struct {
		body    string
		want    float64
		wantErr bool
	}{
		{`{"MRP": 120}`, 120, false},
		{`{"MRP": "99.5"}`, 99.5, false},
		{`{"MRP": " 10 "}`, 10, false},
		{`{"MRP": 0}`, 0, true},
		{`{"MRP": -5}`, 0, true},
		{`{"MRP": "abc"}`, 0, true},
		{`{"MRP": "NaN"}`, 0, true},
		{`{"MRP": true}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.body, func(t *testing.T) {
			var in MenuItemInput
			require.NoError(t, json.Unmarshal([]byte(tt.body), &in))
			got, err := in.MRP.Value()
			if tt.wantErr {
				assert.True(t, domain.IsValidation(err), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMenuService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Invalid MRP is rejected before any write", func(t *testing.T) {
		for _, mrp := range []string{"0", "-1", "free"} {
			store := mocks.NewMemoryStore()
			svc := newMenuService(store)
			_, err := svc.Create(ctx, acmeScope(), MenuItemInput{ItemName: strPtr("Tea"), MRP: pricePtr(mrp)})
			assert.True(t, domain.IsValidation(err), "mrp %q: %v", mrp, err)
			assert.Zero(t, store.Writes, "mrp %q", mrp)
		}
	})

	t.Run("Missing fields", func(t *testing.T) {
		svc := newMenuService(mocks.NewMemoryStore())
		_, err := svc.Create(ctx, acmeScope(), MenuItemInput{MRP: pricePtr("10")})
		assert.True(t, domain.IsValidation(err))
		_, err = svc.Create(ctx, acmeScope(), MenuItemInput{ItemName: strPtr("Tea")})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Assigns sequential codes", func(t *testing.T) {
		svc := newMenuService(mocks.NewMemoryStore())
		first, err := svc.Create(ctx, acmeScope(), MenuItemInput{ItemName: strPtr("Tea"), MRP: pricePtr("20"), Category: strPtr("Drinks")})
		require.NoError(t, err)
		assert.Equal(t, "1001", first.ItemCode)
		assert.Equal(t, 20.0, first.MRP)
		assert.Equal(t, "acme_1234", first.APIKey)

		second, err := svc.Create(ctx, acmeScope(), MenuItemInput{ItemName: strPtr("Coffee"), MRP: pricePtr("30")})
		require.NoError(t, err)
		assert.Equal(t, "1002", second.ItemCode)
	})

	t.Run("Explicit codes advance the sequence", func(t *testing.T) {
		svc := newMenuService(mocks.NewMemoryStore())
		_, err := svc.Create(ctx, acmeScope(), MenuItemInput{ItemName: strPtr("Tea"), ItemCode: strPtr("D-1500"), MRP: pricePtr("20")})
		require.NoError(t, err)

		code, err := svc.NextCode(ctx, acmeScope())
		require.NoError(t, err)
		assert.Equal(t, "1501", code)
	})

	t.Run("Duplicate name or code", func(t *testing.T) {
		store := mocks.NewMemoryStore()
		svc := newMenuService(store)
		_, err := svc.Create(ctx, acmeScope(), MenuItemInput{ItemName: strPtr("Tea"), ItemCode: strPtr("T1"), MRP: pricePtr("20")})
		require.NoError(t, err)
		writes := store.Writes

		_, err = svc.Create(ctx, acmeScope(), MenuItemInput{ItemName: strPtr("Tea"), MRP: pricePtr("25")})
		var ve *domain.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "itemName", ve.Field)

		_, err = svc.Create(ctx, acmeScope(), MenuItemInput{ItemName: strPtr("Green Tea"), ItemCode: strPtr("T1"), MRP: pricePtr("25")})
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "itemCode", ve.Field)
		assert.Equal(t, writes, store.Writes)

		// Same name in another tenant is fine.
		_, err = svc.Create(ctx, domain.Scope{APIKey: "other_0001"}, MenuItemInput{ItemName: strPtr("Tea"), MRP: pricePtr("25")})
		assert.NoError(t, err)
	})

	t.Run("Missing tenant", func(t *testing.T) {
		svc := newMenuService(mocks.NewMemoryStore())
		_, err := svc.Create(ctx, domain.Scope{}, MenuItemInput{ItemName: strPtr("Tea"), MRP: pricePtr("20")})
		assert.ErrorIs(t, err, domain.ErrNotConfigured)
	})
}

func TestMenuService_Update(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMemoryStore()
	svc := newMenuService(store)

	tea, err := svc.Create(ctx, acmeScope(), MenuItemInput{ItemName: strPtr("Tea"), MRP: pricePtr("20"), Category: strPtr("Drinks")})
	require.NoError(t, err)
	coffee, err := svc.Create(ctx, acmeScope(), MenuItemInput{ItemName: strPtr("Coffee"), MRP: pricePtr("30")})
	require.NoError(t, err)

	t.Run("Partial merge", func(t *testing.T) {
		updated, err := svc.Update(ctx, acmeScope(), tea.ID, MenuItemInput{MRP: pricePtr("25")})
		require.NoError(t, err)
		assert.Equal(t, 25.0, updated.MRP)
		assert.Equal(t, "Tea", updated.ItemName)
		assert.Equal(t, "Drinks", updated.Category)
		assert.False(t, updated.UpdatedAt.Before(tea.UpdatedAt))
	})

	t.Run("Keeping its own name is allowed", func(t *testing.T) {
		_, err := svc.Update(ctx, acmeScope(), tea.ID, MenuItemInput{ItemName: strPtr("Tea")})
		assert.NoError(t, err)
	})

	t.Run("Taking another item's name is rejected", func(t *testing.T) {
		_, err := svc.Update(ctx, acmeScope(), coffee.ID, MenuItemInput{ItemName: strPtr("Tea")})
		assert.True(t, domain.IsValidation(err))
	})

	t.Run("Invalid MRP", func(t *testing.T) {
		writes := store.Writes
		_, err := svc.Update(ctx, acmeScope(), tea.ID, MenuItemInput{MRP: pricePtr("0")})
		assert.True(t, domain.IsValidation(err))
		assert.Equal(t, writes, store.Writes)
	})

	t.Run("Unknown item", func(t *testing.T) {
		_, err := svc.Update(ctx, acmeScope(), "missing", MenuItemInput{MRP: pricePtr("10")})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Other tenant cannot see the item", func(t *testing.T) {
		_, err := svc.Update(ctx, domain.Scope{APIKey: "other_0001"}, tea.ID, MenuItemInput{MRP: pricePtr("10")})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestMenuService_ReadsAndDelete(t *testing.T) {
	ctx := context.Background()
	store := mocks.NewMemoryStore()
	svc := newMenuService(store)

	items, err := svc.List(ctx, acmeScope(), "")
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)

	tea, err := svc.Create(ctx, acmeScope(), MenuItemInput{ItemName: strPtr("Tea"), MRP: pricePtr("20"), Category: strPtr("Drinks")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, acmeScope(), MenuItemInput{ItemName: strPtr("Samosa"), MRP: pricePtr("15"), Category: strPtr("Snacks")})
	require.NoError(t, err)

	drinks, err := svc.List(ctx, acmeScope(), "Drinks")
	require.NoError(t, err)
	require.Len(t, drinks, 1)
	assert.Equal(t, "Tea", drinks[0].ItemName)

	exists, err := svc.NameExists(ctx, acmeScope(), "Tea", "")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.NameExists(ctx, acmeScope(), "Tea", tea.ID)
	require.NoError(t, err)
	assert.False(t, exists)

	exists, err = svc.CodeExists(ctx, acmeScope(), tea.ItemCode, "")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.NameExists(ctx, domain.Scope{APIKey: "empty_0000"}, "Tea", "")
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, svc.Delete(ctx, acmeScope(), tea.ID))
	assert.ErrorIs(t, svc.Delete(ctx, acmeScope(), tea.ID), domain.ErrNotFound)

	all, err := svc.List(ctx, acmeScope(), "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
