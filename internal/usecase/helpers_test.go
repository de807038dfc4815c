package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
	"github.com/V4T54L/tabletop/internal/domain/mocks"
	"github.com/V4T54L/tabletop/internal/pkg/token"
)

// fixtureTime yields the key acme_1234 for company "ACME".
var fixtureTime = time.UnixMilli(1700000001234).UTC()

// provisionACME provisions the tenant used across the tests: company ACME,
// admin phone 555, password "secret".
func provisionACME(t *testing.T, store *mocks.MemoryStore) *ProvisionResult {
	t.Helper()
	p := NewProvisioner(store, NopAuditRecorder{}, zap.NewNop(), nil)
	p.now = func() time.Time { return fixtureTime }

	res, err := p.Provision(context.Background(), ProvisionRequest{
		CompanyName: "ACME",
		CompanyID:   "ACME",
		UserPhone:   "555",
		UserName:    "Alice",
		UserEmail:   "alice@acme.test",
		Password:    token.Digest("secret"),
	})
	require.NoError(t, err)
	require.Equal(t, "acme_1234", res.APIKey)
	return res
}

func acmeScope() domain.Scope {
	return domain.Scope{APIKey: "acme_1234", CompanyID: "ACME"}
}

func strPtr(s string) *string { return &s }

func pricePtr(s string) *Price {
	p := Price(s)
	return &p
}
