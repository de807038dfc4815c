package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/V4T54L/tabletop/internal/domain"
	"github.com/V4T54L/tabletop/internal/domain/mocks"
)

func TestNextCode(t *testing.T) {
	tests := []struct {
		name  string
		codes []string
		want  string
	}{
		{"No items", nil, "1001"},
		{"Mixed codes", []string{"A-1005", "B-999", "bad-code"}, "1006"},
		{"Plain numbers", []string{"1001", "1002"}, "1003"},
		{"Only small numbers", []string{"7", "12"}, "1001"},
		{"Digits in the middle ignored", []string{"12ab"}, "1001"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NextCode(tt.codes))
		})
	}
}

func TestCodeGenerator(t *testing.T) {
	ctx := context.Background()

	t.Run("Seeds from stored codes", func(t *testing.T) {
		store := mocks.NewMemoryStore()
		for i, code := range []string{"A-1005", "B-999", "bad-code"} {
			require.NoError(t, store.Menu().Create(ctx, &domain.MenuItem{
				ID: string(rune('a' + i)), APIKey: "acme_1234", ItemName: code, ItemCode: code,
			}))
		}
		gen := NewCodeGenerator(store.Counters(), store.Menu())

		code, err := gen.Next(ctx, "acme_1234")
		require.NoError(t, err)
		assert.Equal(t, "1006", code)

		code, err = gen.Next(ctx, "acme_1234")
		require.NoError(t, err)
		assert.Equal(t, "1007", code)
	})

	t.Run("Empty tenant starts at 1001", func(t *testing.T) {
		store := mocks.NewMemoryStore()
		gen := NewCodeGenerator(store.Counters(), store.Menu())

		code, err := gen.Next(ctx, "acme_1234")
		require.NoError(t, err)
		assert.Equal(t, "1001", code)
	})

	t.Run("Observe lifts the counter", func(t *testing.T) {
		store := mocks.NewMemoryStore()
		gen := NewCodeGenerator(store.Counters(), store.Menu())

		require.NoError(t, gen.Observe(ctx, "acme_1234", "X-2000"))
		require.NoError(t, gen.Observe(ctx, "acme_1234", "no-number"))
		code, err := gen.Next(ctx, "acme_1234")
		require.NoError(t, err)
		assert.Equal(t, "2001", code)
	})

	t.Run("Tenants are independent", func(t *testing.T) {
		store := mocks.NewMemoryStore()
		gen := NewCodeGenerator(store.Counters(), store.Menu())

		require.NoError(t, gen.Observe(ctx, "a_1", "5000"))
		code, err := gen.Next(ctx, "b_2")
		require.NoError(t, err)
		assert.Equal(t, "1001", code)
	})
}
