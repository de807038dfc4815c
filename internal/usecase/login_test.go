package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
	"github.com/V4T54L/tabletop/internal/domain/mocks"
	"github.com/V4T54L/tabletop/internal/pkg/token"
)

func newLoginFixture(t *testing.T) (*LoginService, *mocks.MemoryStore, *token.Issuer) {
	t.Helper()
	store := mocks.NewMemoryStore()
	provisionACME(t, store)
	issuer := token.NewIssuer("test-secret", time.Hour)
	return NewLoginService(store, issuer, NopAuditRecorder{}, zap.NewNop(), nil), store, issuer
}

func TestLoginService_Check(t *testing.T) {
	svc, _, _ := newLoginFixture(t)
	ctx := context.Background()

	identity, err := svc.Check(ctx, "555", "ACME")
	require.NoError(t, err)
	assert.Equal(t, &LoginIdentity{
		UserName:  "Alice",
		UserEmail: "alice@acme.test",
		APIKey:    "acme_1234",
		CompanyID: "ACME",
	}, identity)

	_, err = svc.Check(ctx, "556", "ACME")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Check(ctx, "555", "OTHER")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.Check(ctx, "", "ACME")
	assert.True(t, domain.IsValidation(err))
}

func TestLoginService_Complete(t *testing.T) {
	svc, store, issuer := newLoginFixture(t)
	ctx := context.Background()

	session, err := svc.Complete(ctx, "555", "ACME", token.Digest("secret"))
	require.NoError(t, err)
	assert.Equal(t, "acme_1234", session.UserData.APIKey)
	assert.Equal(t, "ACME", session.UserData.CompanyID)
	assert.Equal(t, domain.RoleAdmin, session.UserData.UserRole)

	claims, err := issuer.Validate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, "acme_1234", claims.APIKey)
	assert.Equal(t, session.UserData.ID, claims.UserID)

	rejected := []struct {
		name, phone, company, digest string
	}{
		{"Wrong password", "555", "ACME", token.Digest("nope")},
		{"Unknown phone", "556", "ACME", token.Digest("secret")},
		{"Unknown company", "555", "OTHER", token.Digest("secret")},
		{"Plain text password", "555", "ACME", "secret"},
		{"Empty password", "555", "ACME", ""},
	}
	for _, tt := range rejected {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Complete(ctx, tt.phone, tt.company, tt.digest)
			assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
		})
	}

	t.Run("Soft deleted user", func(t *testing.T) {
		admin, err := store.Users().FindActiveByPhone(ctx, "acme_1234", "555")
		require.NoError(t, err)
		users := NewUserService(store.Users(), store.Directory(), NopAuditRecorder{}, zap.NewNop())
		_, err = users.SoftDelete(ctx, acmeScope(), admin.ID)
		require.NoError(t, err)

		_, err = svc.Complete(ctx, "555", "ACME", token.Digest("secret"))
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)

		_, err = users.ReEnable(ctx, acmeScope(), admin.ID, UserInput{})
		require.NoError(t, err)
		_, err = svc.Complete(ctx, "555", "ACME", token.Digest("secret"))
		assert.NoError(t, err)
	})

	t.Run("Suspended tenant", func(t *testing.T) {
		require.NoError(t, store.Tenants().UpdateStatus(ctx, "acme_1234", domain.TenantSuspended))
		_, err := svc.Complete(ctx, "555", "ACME", token.Digest("secret"))
		assert.ErrorIs(t, err, domain.ErrInvalidCredentials)
	})
}
