package pii

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
)

const RedactedPlaceholder = "[REDACTED]"

// Redactor replaces configured metadata fields of audit events.
type Redactor struct {
	fieldsToRedact map[string]struct{}
	logger         *zap.Logger
}

// NewRedactor creates a new Redactor instance with a given set of fields to redact.
func NewRedactor(fields []string, logger *zap.Logger) *Redactor {
	fieldSet := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		fieldSet[field] = struct{}{}
	}
	return &Redactor{
		fieldsToRedact: fieldSet,
		logger:         logger,
	}
}

// Redact modifies the event in place. Nested objects are walked so a phone
// number inside e.g. {"user": {...}} is caught as well.
func (r *Redactor) Redact(event *domain.AuditEvent) error {
	if len(r.fieldsToRedact) == 0 || len(event.Metadata) == 0 {
		return nil
	}

	var metadata map[string]interface{}
	if err := json.Unmarshal(event.Metadata, &metadata); err != nil {
		r.logger.Warn("failed to unmarshal metadata for PII redaction", zap.Error(err), zap.String("event_id", event.ID))
		return err
	}

	if !r.redactMap(metadata) {
		return nil
	}

	modified, err := json.Marshal(metadata)
	if err != nil {
		r.logger.Error("failed to marshal metadata after PII redaction", zap.Error(err), zap.String("event_id", event.ID))
		return err
	}
	event.Metadata = modified
	event.PIIRedacted = true
	return nil
}

func (r *Redactor) redactMap(m map[string]interface{}) bool {
	redacted := false
	for k, v := range m {
		if _, ok := r.fieldsToRedact[k]; ok {
			m[k] = RedactedPlaceholder
			redacted = true
			continue
		}
		if nested, ok := v.(map[string]interface{}); ok && r.redactMap(nested) {
			redacted = true
		}
	}
	return redacted
}
