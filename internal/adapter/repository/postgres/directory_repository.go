package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/V4T54L/tabletop/internal/domain"
)

type directoryRepository struct {
	db *sql.DB
}

// FindByPhoneAndCompany returns the most recently updated matching entry.
func (r *directoryRepository) FindByPhoneAndCompany(ctx context.Context, phone, companyID string) (*domain.DirectoryEntry, error) {
	query := `
		SELECT user_name, user_email, user_phone, user_role, api_key, company_id, profile_image, created_at, updated_at
		FROM directory
		WHERE user_phone = $1 AND company_id = $2
		ORDER BY updated_at DESC
		LIMIT 1
	`
	var e domain.DirectoryEntry
	err := r.db.QueryRowContext(ctx, query, phone, companyID).Scan(
		&e.UserName,
		&e.UserEmail,
		&e.UserPhone,
		&e.UserRole,
		&e.APIKey,
		&e.CompanyID,
		&e.ProfileImage,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("find directory entry: %w", mapErr(err))
	}
	return &e, nil
}

// Upsert keeps the original created_at of an existing entry.
func (r *directoryRepository) Upsert(ctx context.Context, e *domain.DirectoryEntry) error {
	query := `
		INSERT INTO directory (user_phone, api_key, company_id, user_name, user_email, user_role, profile_image, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_phone, api_key) DO UPDATE SET
			company_id = EXCLUDED.company_id,
			user_name = EXCLUDED.user_name,
			user_email = EXCLUDED.user_email,
			user_role = EXCLUDED.user_role,
			profile_image = EXCLUDED.profile_image,
			updated_at = EXCLUDED.updated_at
	`
	_, err := r.db.ExecContext(ctx, query,
		e.UserPhone,
		e.APIKey,
		e.CompanyID,
		e.UserName,
		e.UserEmail,
		e.UserRole,
		e.ProfileImage,
		e.CreatedAt,
		e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert directory entry: %w", mapErr(err))
	}
	return nil
}

func (r *directoryRepository) Delete(ctx context.Context, phone, apiKey string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM directory WHERE user_phone = $1 AND api_key = $2`, phone, apiKey)
	if err != nil {
		return fmt.Errorf("delete directory entry: %w", mapErr(err))
	}
	return requireRow(res)
}
