package domain

import (
	"context"
	"encoding/json"
	"time"
)

// Known settings document types.
const (
	SettingsCatalog   = "catalog"
	SettingsUserRoles = "userRoles"
	SettingsUserEdit  = "userEdit"
)

// Settings is a per-tenant configuration document of one type. Fields holds
// the type specific values and is flattened into the JSON representation.
type Settings struct {
	Type      string         `bson:"type"`
	APIKey    string         `bson:"apiKey"`
	Fields    map[string]any `bson:"fields"`
	UpdatedAt time.Time      `bson:"updatedAt"`
}

// MarshalJSON renders {type, apiKey, ...fields}.
func (s Settings) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(s.Fields)+2)
	for k, v := range s.Fields {
		out[k] = v
	}
	out["type"] = s.Type
	out["apiKey"] = s.APIKey
	return json.Marshal(out)
}

// DefaultSettings returns the documents seeded for a new tenant, keyed by type.
func DefaultSettings() map[string]map[string]any {
	return map[string]map[string]any{
		SettingsCatalog: {
			"itemDelete": true,
			"itemEdit":   true,
		},
		SettingsUserRoles: {
			"roles": []any{RoleAdmin, "Manager", "Cashier", "Waiter", "Chef"},
		},
		SettingsUserEdit: {
			"userEdit":   true,
			"userDelete": true,
		},
	}
}

// SettingsRepository persists settings documents. Global documents use
// GlobalScope as their apiKey.
type SettingsRepository interface {
	Find(ctx context.Context, apiKey, typ string) (*Settings, error)
	// Upsert creates or replaces the document keyed by (APIKey, Type).
	Upsert(ctx context.Context, s *Settings) error
}
