package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/V4T54L/tabletop/internal/domain"
)

type settingsRepository struct {
	db *sql.DB
}

func (r *settingsRepository) Find(ctx context.Context, apiKey, typ string) (*domain.Settings, error) {
	doc := domain.Settings{APIKey: apiKey, Type: typ}
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT fields, updated_at FROM settings WHERE api_key = $1 AND type = $2`,
		apiKey, typ,
	).Scan(&raw, &doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("find settings: %w", mapErr(err))
	}
	if err := json.Unmarshal(raw, &doc.Fields); err != nil {
		return nil, fmt.Errorf("decode settings fields: %w", err)
	}
	return &doc, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, s *domain.Settings) error {
	raw, err := json.Marshal(s.Fields)
	if err != nil {
		return fmt.Errorf("encode settings fields: %w", err)
	}
	query := `
		INSERT INTO settings (api_key, type, fields, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (api_key, type) DO UPDATE SET fields = EXCLUDED.fields, updated_at = EXCLUDED.updated_at
	`
	if _, err := r.db.ExecContext(ctx, query, s.APIKey, s.Type, raw, s.UpdatedAt); err != nil {
		return fmt.Errorf("upsert settings: %w", mapErr(err))
	}
	return nil
}
