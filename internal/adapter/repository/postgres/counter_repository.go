package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

type counterRepository struct {
	db *sql.DB
}

func (r *counterRepository) Increment(ctx context.Context, apiKey, name string) (int64, error) {
	var value int64
	err := r.db.QueryRowContext(ctx,
		`UPDATE counters SET value = value + 1 WHERE api_key = $1 AND name = $2 RETURNING value`,
		apiKey, name,
	).Scan(&value)
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, mapErr(err))
	}
	return value, nil
}

func (r *counterRepository) Raise(ctx context.Context, apiKey, name string, floor int64) error {
	query := `
		INSERT INTO counters (api_key, name, value)
		VALUES ($1, $2, $3)
		ON CONFLICT (api_key, name) DO UPDATE SET value = GREATEST(counters.value, EXCLUDED.value)
	`
	if _, err := r.db.ExecContext(ctx, query, apiKey, name, floor); err != nil {
		return fmt.Errorf("raise counter %s: %w", name, mapErr(err))
	}
	return nil
}
