package postgres

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
)

// AuditRepository archives relayed audit events in the audit_events table.
// It implements domain.AuditSink.
type AuditRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAuditRepository creates a new PostgreSQL audit sink.
func NewAuditRepository(db *sql.DB, logger *zap.Logger) *AuditRepository {
	return &AuditRepository{db: db, logger: logger.With(zap.String("component", "postgres_audit"))}
}

// WriteBatch stages events with COPY and merges them into audit_events.
// Replayed events with a known event_id are ignored, so redelivery is safe.
func (r *AuditRepository) WriteBatch(ctx context.Context, events []domain.AuditEvent) error {
	if len(events) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer txn.Rollback() // no-op after Commit

	const staging = "audit_events_staging"
	if _, err := txn.ExecContext(ctx, `CREATE TEMP TABLE `+staging+` (LIKE audit_events INCLUDING DEFAULTS) ON COMMIT DROP`); err != nil {
		return err
	}

	stmt, err := txn.PrepareContext(ctx, pq.CopyIn(staging, "event_id", "api_key", "action", "subject", "occurred_at", "metadata", "pii_redacted"))
	if err != nil {
		return err
	}
	for _, event := range events {
		var metadata any
		if len(event.Metadata) > 0 {
			metadata = string(event.Metadata)
		}
		if _, err := stmt.ExecContext(ctx, event.ID, event.APIKey, event.Action, event.Subject, event.OccurredAt, metadata, event.PIIRedacted); err != nil {
			_ = stmt.Close()
			return err
		}
	}
	// Flush the COPY buffer.
	if _, err := stmt.ExecContext(ctx); err != nil {
		_ = stmt.Close()
		return err
	}
	if err := stmt.Close(); err != nil {
		return err
	}

	res, err := txn.ExecContext(ctx, `
		INSERT INTO audit_events (event_id, api_key, action, subject, occurred_at, metadata, pii_redacted)
		SELECT event_id, api_key, action, subject, occurred_at, metadata, pii_redacted FROM `+staging+`
		ON CONFLICT (event_id) DO NOTHING
	`)
	if err != nil {
		return err
	}
	if err := txn.Commit(); err != nil {
		return err
	}

	if inserted, err := res.RowsAffected(); err == nil && inserted < int64(len(events)) {
		r.logger.Debug("skipped already archived audit events", zap.Int64("duplicates", int64(len(events))-inserted))
	}
	return nil
}
