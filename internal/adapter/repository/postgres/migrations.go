package postgres

import (
	"context"
	"fmt"

	"github.com/V4T54L/tabletop/internal/domain"
)

var sharedSchema = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		api_key      TEXT PRIMARY KEY,
		company_name TEXT NOT NULL,
		company_id   TEXT NOT NULL,
		user_phone   TEXT NOT NULL,
		user_name    TEXT NOT NULL,
		status       TEXT NOT NULL DEFAULT 'active',
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS directory (
		user_phone    TEXT NOT NULL,
		api_key       TEXT NOT NULL,
		company_id    TEXT NOT NULL,
		user_name     TEXT NOT NULL,
		user_email    TEXT NOT NULL DEFAULT '',
		user_role     TEXT NOT NULL DEFAULT '',
		profile_image TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (user_phone, api_key)
	)`,
	`CREATE INDEX IF NOT EXISTS directory_phone_company_idx ON directory (user_phone, company_id)`,
	`CREATE TABLE IF NOT EXISTS counters (
		api_key TEXT NOT NULL,
		name    TEXT NOT NULL,
		value   BIGINT NOT NULL,
		PRIMARY KEY (api_key, name)
	)`,
	`CREATE TABLE IF NOT EXISTS audit_events (
		event_id     TEXT PRIMARY KEY,
		api_key      TEXT NOT NULL,
		action       TEXT NOT NULL,
		subject      TEXT NOT NULL DEFAULT '',
		occurred_at  TIMESTAMPTZ NOT NULL,
		metadata     JSONB,
		pii_redacted BOOLEAN NOT NULL DEFAULT false
	)`,
	`CREATE INDEX IF NOT EXISTS audit_events_tenant_idx ON audit_events (api_key, occurred_at DESC)`,
}

// datasetSchema holds the tables backing each tenant dataset. The tables are
// shared by all tenants and partitioned by api_key.
var datasetSchema = map[string][]string{
	domain.DatasetUsers: {
		`CREATE TABLE IF NOT EXISTS users (
			id              TEXT PRIMARY KEY,
			api_key         TEXT NOT NULL,
			user_name       TEXT NOT NULL,
			user_phone      TEXT NOT NULL,
			user_email      TEXT NOT NULL DEFAULT '',
			user_role       TEXT NOT NULL,
			password        TEXT NOT NULL DEFAULT '',
			profile_image   TEXT NOT NULL DEFAULT '',
			created_date    TIMESTAMPTZ NOT NULL,
			updated_date    TIMESTAMPTZ NOT NULL,
			is_deleted      BOOLEAN NOT NULL DEFAULT false,
			deleted_date    TIMESTAMPTZ,
			re_enabled_date TIMESTAMPTZ
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS users_active_phone_uq ON users (api_key, user_phone) WHERE is_deleted = false`,
		`CREATE INDEX IF NOT EXISTS users_tenant_created_idx ON users (api_key, created_date DESC)`,
	},
	domain.DatasetItems: {
		`CREATE TABLE IF NOT EXISTS menu_items (
			id          TEXT PRIMARY KEY,
			api_key     TEXT NOT NULL,
			item_name   TEXT NOT NULL,
			item_code   TEXT NOT NULL,
			category    TEXT NOT NULL DEFAULT '',
			mrp         DOUBLE PRECISION NOT NULL CHECK (mrp > 0),
			description TEXT NOT NULL DEFAULT '',
			image_url   TEXT NOT NULL DEFAULT '',
			created_at  TIMESTAMPTZ NOT NULL,
			updated_at  TIMESTAMPTZ NOT NULL,
			CONSTRAINT menu_items_name_uq UNIQUE (api_key, item_name),
			CONSTRAINT menu_items_code_uq UNIQUE (api_key, item_code)
		)`,
		`CREATE INDEX IF NOT EXISTS menu_items_tenant_created_idx ON menu_items (api_key, created_at DESC)`,
	},
	domain.DatasetOrders: {
		`CREATE TABLE IF NOT EXISTS orders (
			id         TEXT PRIMARY KEY,
			api_key    TEXT NOT NULL,
			data       JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS orders_tenant_idx ON orders (api_key, created_at DESC)`,
	},
	domain.DatasetSettings: {
		`CREATE TABLE IF NOT EXISTS settings (
			api_key    TEXT NOT NULL,
			type       TEXT NOT NULL,
			fields     JSONB NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (api_key, type)
		)`,
	},
	domain.DatasetInventory: {
		`CREATE TABLE IF NOT EXISTS inventory (
			id         TEXT PRIMARY KEY,
			api_key    TEXT NOT NULL,
			data       JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS inventory_tenant_idx ON inventory (api_key)`,
	},
}

// Migrate creates the shared schema and every dataset table.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.exec(ctx, sharedSchema); err != nil {
		return err
	}
	for _, dataset := range domain.TenantDatasets {
		if err := s.exec(ctx, datasetSchema[dataset]); err != nil {
			return fmt.Errorf("migrate %s: %w", dataset, err)
		}
	}
	s.logger.Info("schema migrated")
	return nil
}

// EnsureDataset makes sure the table backing dataset exists. All statements
// are idempotent so repeated provisioning is harmless.
func (s *Store) EnsureDataset(ctx context.Context, apiKey, dataset string) error {
	stmts, ok := datasetSchema[dataset]
	if !ok {
		return fmt.Errorf("unknown dataset %q", dataset)
	}
	if err := s.exec(ctx, stmts); err != nil {
		return fmt.Errorf("ensure dataset %s: %w", domain.DatasetName(apiKey, dataset), err)
	}
	return nil
}

func (s *Store) exec(ctx context.Context, stmts []string) error {
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
