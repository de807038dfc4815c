package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/V4T54L/tabletop/internal/domain"
)

type tenantRepository struct {
	db *sql.DB
}

func (r *tenantRepository) Create(ctx context.Context, t *domain.Tenant) error {
	query := `
		INSERT INTO tenants (api_key, company_name, company_id, user_phone, user_name, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	status := t.Status
	if status == "" {
		status = domain.TenantActive
	}
	_, err := r.db.ExecContext(ctx, query,
		t.APIKey,
		t.CompanyName,
		t.CompanyID,
		t.UserPhone,
		t.UserName,
		status,
		t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("store tenant: %w", mapErr(err))
	}
	return nil
}

func (r *tenantRepository) FindByAPIKey(ctx context.Context, apiKey string) (*domain.Tenant, error) {
	query := `
		SELECT api_key, company_name, company_id, user_phone, user_name, status, created_at
		FROM tenants
		WHERE api_key = $1
	`
	var t domain.Tenant
	err := r.db.QueryRowContext(ctx, query, apiKey).Scan(
		&t.APIKey,
		&t.CompanyName,
		&t.CompanyID,
		&t.UserPhone,
		&t.UserName,
		&t.Status,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find tenant by API key: %w", mapErr(err))
	}
	return &t, nil
}

func (r *tenantRepository) UpdateStatus(ctx context.Context, apiKey string, status domain.TenantStatus) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tenants SET status = $2 WHERE api_key = $1`, apiKey, status)
	if err != nil {
		return fmt.Errorf("update tenant status: %w", mapErr(err))
	}
	return requireRow(res)
}
