package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/adapter/metrics"
	"github.com/V4T54L/tabletop/internal/domain"
	"github.com/V4T54L/tabletop/internal/pkg/token"
)

const maxKeyAttempts = 3

// ProvisionRequest is the input of a new tenant. Password is the client
// digest of the admin password.
type ProvisionRequest struct {
	CompanyName string `json:"companyName"`
	CompanyID   string `json:"companyId"`
	UserPhone   string `json:"userPhone"`
	UserName    string `json:"userName"`
	UserEmail   string `json:"userEmail,omitempty"`
	Password    string `json:"password"`
}

func (r *ProvisionRequest) validate() error {
	for _, f := range []struct{ name, value string }{
		{"companyName", r.CompanyName},
		{"companyId", r.CompanyID},
		{"userPhone", r.UserPhone},
		{"userName", r.UserName},
		{"password", r.Password},
	} {
		if strings.TrimSpace(f.value) == "" {
			return domain.NewValidationError(f.name, "is required")
		}
	}
	if len(r.Password) > token.MaxPasswordBytes {
		return domain.NewValidationError("password", "must be at most %d bytes", token.MaxPasswordBytes)
	}
	return nil
}

// ProvisionResult reports the new key and the datasets that could not be
// prepared.
type ProvisionResult struct {
	APIKey         string   `json:"apiKey"`
	FailedDatasets []string `json:"failedDatasets"`
}

// Provisioner creates tenants with their seeded default state.
type Provisioner struct {
	store   domain.Store
	audit   AuditRecorder
	logger  *zap.Logger
	metrics *metrics.APIMetrics
	now     func() time.Time
}

// NewProvisioner creates a new Provisioner.
func NewProvisioner(store domain.Store, audit AuditRecorder, logger *zap.Logger, m *metrics.APIMetrics) *Provisioner {
	return &Provisioner{
		store:   store,
		audit:   audit,
		logger:  logger.With(zap.String("component", "provisioner")),
		metrics: m,
		now:     time.Now,
	}
}

// Provision creates the tenant record, its directory entry, its datasets, the
// admin user and the default settings, in that order. A dataset that cannot be
// prepared is logged and skipped; any other failure aborts.
func (p *Provisioner) Provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	ctx, span := otel.Tracer("provisioner").Start(ctx, "Provision")
	defer span.End()

	res, err := p.provision(ctx, req)
	switch {
	case err != nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		p.observe("error")
	case len(res.FailedDatasets) > 0:
		p.observe("partial")
	default:
		p.observe("ok")
	}
	if res != nil {
		span.SetAttributes(spanAttrs(res.APIKey))
	}
	return res, err
}

func (p *Provisioner) provision(ctx context.Context, req ProvisionRequest) (*ProvisionResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	now := p.now().UTC()
	tenant, err := p.createTenant(ctx, req, now)
	if err != nil {
		return nil, err
	}
	apiKey := tenant.APIKey
	trace := zap.String("api_key", apiKey)
	p.logger.Info("tenant record created", trace, zap.String("company_id", req.CompanyID))

	if err := p.store.Directory().Upsert(ctx, &domain.DirectoryEntry{
		UserName:  req.UserName,
		UserEmail: req.UserEmail,
		UserPhone: req.UserPhone,
		UserRole:  domain.RoleAdmin,
		APIKey:    apiKey,
		CompanyID: req.CompanyID,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return nil, fmt.Errorf("create directory entry: %w", err)
	}

	result := &ProvisionResult{APIKey: apiKey, FailedDatasets: []string{}}
	var datasetErr error
	for _, dataset := range domain.TenantDatasets {
		if err := p.store.EnsureDataset(ctx, apiKey, dataset); err != nil {
			p.logger.Warn("failed to prepare dataset, skipping", trace, zap.String("dataset", domain.DatasetName(apiKey, dataset)), zap.Error(err))
			result.FailedDatasets = append(result.FailedDatasets, dataset)
			datasetErr = multierr.Append(datasetErr, fmt.Errorf("%s: %w", dataset, err))
		}
	}
	if datasetErr != nil {
		p.logger.Warn("tenant provisioned with missing datasets", trace, zap.Error(datasetErr))
	}

	hash, err := hashDigest(req.Password)
	if err != nil {
		return nil, err
	}
	admin := &domain.User{
		ID:           uuid.NewString(),
		APIKey:       apiKey,
		UserName:     req.UserName,
		UserPhone:    req.UserPhone,
		UserEmail:    req.UserEmail,
		UserRole:     domain.RoleAdmin,
		PasswordHash: hash,
		CreatedDate:  now,
		UpdatedDate:  now,
	}
	if err := p.store.Users().Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin user: %w", err)
	}

	for _, typ := range []string{domain.SettingsCatalog, domain.SettingsUserRoles, domain.SettingsUserEdit} {
		doc := &domain.Settings{
			Type:      typ,
			APIKey:    apiKey,
			Fields:    domain.DefaultSettings()[typ],
			UpdatedAt: now,
		}
		if err := p.store.Settings().Upsert(ctx, doc); err != nil {
			return nil, fmt.Errorf("seed %s settings: %w", typ, err)
		}
	}

	p.audit.Record(ctx, apiKey, domain.ActionTenantProvisioned, req.CompanyID, map[string]any{
		"companyName":    req.CompanyName,
		"companyId":      req.CompanyID,
		"userPhone":      req.UserPhone,
		"failedDatasets": result.FailedDatasets,
	})
	p.logger.Info("tenant provisioned", trace, zap.Int("failed_datasets", len(result.FailedDatasets)))
	return result, nil
}

// createTenant inserts the tenant record under the derived key and falls back
// to random suffixes when the key is taken.
func (p *Provisioner) createTenant(ctx context.Context, req ProvisionRequest, now time.Time) (*domain.Tenant, error) {
	tenant := &domain.Tenant{
		CompanyName: req.CompanyName,
		CompanyID:   req.CompanyID,
		APIKey:      DeriveAPIKey(req.CompanyName, now),
		UserPhone:   req.UserPhone,
		UserName:    req.UserName,
		CreatedAt:   now,
		Status:      domain.TenantActive,
	}

	for attempt := 1; ; attempt++ {
		err := p.store.Tenants().Create(ctx, tenant)
		if err == nil {
			return tenant, nil
		}
		if !errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("create tenant: %w", err)
		}
		if attempt == maxKeyAttempts {
			return nil, fmt.Errorf("create tenant: no free api key after %d attempts: %w", attempt, err)
		}
		p.logger.Warn("api key taken, retrying with a random suffix", zap.String("api_key", tenant.APIKey))
		if tenant.APIKey, err = randomAPIKey(req.CompanyName); err != nil {
			return nil, fmt.Errorf("generate api key: %w", err)
		}
	}
}

func (p *Provisioner) observe(outcome string) {
	if p.metrics != nil {
		p.metrics.ProvisionTotal.WithLabelValues(outcome).Inc()
	}
}

// spanAttrs is shared by the traced services.
func spanAttrs(apiKey string) attribute.KeyValue {
	return attribute.String("tenant.api_key", apiKey)
}
