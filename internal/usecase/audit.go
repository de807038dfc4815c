package usecase

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/adapter/metrics"
	"github.com/V4T54L/tabletop/internal/adapter/pii"
	"github.com/V4T54L/tabletop/internal/domain"
)

// AuditRecorder is what the services use to emit audit events. Recording is
// fire and forget: a failure is logged and never fails the mutation.
type AuditRecorder interface {
	Record(ctx context.Context, apiKey, action, subject string, metadata any)
}

// NopAuditRecorder drops every event.
type NopAuditRecorder struct{}

func (NopAuditRecorder) Record(context.Context, string, string, string, any) {}

// AuditUseCase enriches, redacts and buffers audit events.
type AuditUseCase struct {
	buffer   domain.AuditBuffer
	redactor *pii.Redactor
	logger   *zap.Logger
	metrics  *metrics.APIMetrics
}

// NewAuditUseCase creates a new AuditUseCase.
func NewAuditUseCase(buffer domain.AuditBuffer, redactor *pii.Redactor, logger *zap.Logger, m *metrics.APIMetrics) *AuditUseCase {
	return &AuditUseCase{
		buffer:   buffer,
		redactor: redactor,
		logger:   logger.With(zap.String("component", "audit")),
		metrics:  m,
	}
}

// Ingest enriches, redacts, and buffers an audit event.
func (uc *AuditUseCase) Ingest(ctx context.Context, event *domain.AuditEvent) error {
	// 1. Enrich with server-side data
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	// 2. Redact PII
	if err := uc.redactor.Redact(event); err != nil {
		// Non-fatal, the event is kept as is.
		uc.logger.Warn("failed to redact PII, proceeding with original event", zap.Error(err), zap.String("event_id", event.ID))
	}

	// 3. Buffer the event
	if err := uc.buffer.BufferEvent(ctx, *event); err != nil {
		uc.observe("error")
		uc.logger.Error("failed to buffer audit event", zap.Error(err), zap.String("event_id", event.ID))
		return err
	}
	uc.observe("buffered")
	return nil
}

// Record builds an event from the arguments and ingests it.
func (uc *AuditUseCase) Record(ctx context.Context, apiKey, action, subject string, metadata any) {
	event := &domain.AuditEvent{
		APIKey:  apiKey,
		Action:  action,
		Subject: subject,
	}
	if metadata != nil {
		raw, err := json.Marshal(metadata)
		if err != nil {
			uc.logger.Warn("failed to encode audit metadata", zap.Error(err), zap.String("action", action))
		} else {
			event.Metadata = raw
		}
	}
	// The request may be finished by the time the buffer is reached.
	_ = uc.Ingest(context.WithoutCancel(ctx), event)
}

func (uc *AuditUseCase) observe(status string) {
	if uc.metrics != nil {
		uc.metrics.AuditEventsTotal.WithLabelValues(status).Inc()
	}
}
