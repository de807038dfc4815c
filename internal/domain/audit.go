package domain

import (
	"encoding/json"
	"time"
)

// Audit actions.
const (
	ActionTenantProvisioned = "tenant.provisioned"
	ActionUserCreated       = "user.created"
	ActionUserUpdated       = "user.updated"
	ActionUserDeleted       = "user.deleted"
	ActionUserReEnabled     = "user.re_enabled"
	ActionUserPurged        = "user.purged"
	ActionMenuCreated       = "menu.created"
	ActionMenuUpdated       = "menu.updated"
	ActionMenuDeleted       = "menu.deleted"
	ActionSettingsUpdated   = "settings.updated"
	ActionLoginSucceeded    = "login.succeeded"
)

// AuditEvent records one mutation performed against a tenant.
type AuditEvent struct {
	ID              string          `json:"event_id"`
	APIKey          string          `json:"api_key"`
	Action          string          `json:"action"`
	Subject         string          `json:"subject,omitempty"`
	OccurredAt      time.Time       `json:"occurred_at"`
	Metadata        json.RawMessage `json:"metadata,omitempty"`
	PIIRedacted     bool            `json:"pii_redacted,omitempty"`
	StreamMessageID string          `json:"-"`
}

// AuditStreamStats summarises the audit buffer for operators.
type AuditStreamStats struct {
	Length         int64            `json:"length"`
	Pending        int64            `json:"pending"`
	FirstPendingID string           `json:"first_pending_id,omitempty"`
	LastPendingID  string           `json:"last_pending_id,omitempty"`
	ConsumerTotals map[string]int64 `json:"consumer_totals,omitempty"`
}
