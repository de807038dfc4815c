package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
)

// reserved keys are owned by the document itself, not by its fields.
var reservedSettingsKeys = []string{"type", "apiKey", "_id", "updatedAt"}

// SettingsService reads and writes settings documents.
type SettingsService struct {
	settings domain.SettingsRepository
	audit    AuditRecorder
	logger   *zap.Logger
	now      func() time.Time
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(settings domain.SettingsRepository, audit AuditRecorder, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		settings: settings,
		audit:    audit,
		logger:   logger.With(zap.String("component", "settings")),
		now:      time.Now,
	}
}

// Get resolves a settings document: the tenant's own document first, then the
// global one, then the built-in default. Unknown types with no stored
// document yield ErrNotFound.
func (s *SettingsService) Get(ctx context.Context, scope domain.Scope, typ string) (*domain.Settings, error) {
	if scope.APIKey == "" {
		return nil, domain.ErrNotConfigured
	}
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return nil, domain.NewValidationError("type", "is required")
	}

	for _, owner := range []string{scope.APIKey, domain.GlobalScope} {
		doc, err := s.settings.Find(ctx, owner, typ)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("find %s settings: %w", typ, err)
		}
	}

	fields, ok := domain.DefaultSettings()[typ]
	if !ok {
		return nil, domain.ErrNotFound
	}
	s.logger.Debug("serving default settings", zap.String("api_key", scope.APIKey), zap.String("type", typ))
	return &domain.Settings{Type: typ, APIKey: scope.APIKey, Fields: fields}, nil
}

// Upsert merges fields into the tenant's document of the given type,
// creating it when missing.
func (s *SettingsService) Upsert(ctx context.Context, scope domain.Scope, typ string, fields map[string]any) (*domain.Settings, error) {
	if scope.APIKey == "" {
		return nil, domain.ErrNotConfigured
	}
	typ = strings.TrimSpace(typ)
	if typ == "" {
		return nil, domain.NewValidationError("type", "is required")
	}
	for _, k := range reservedSettingsKeys {
		delete(fields, k)
	}
	if len(fields) == 0 {
		return nil, domain.NewValidationError("fields", "at least one field is required")
	}

	doc, err := s.settings.Find(ctx, scope.APIKey, typ)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		doc = &domain.Settings{Type: typ, APIKey: scope.APIKey, Fields: map[string]any{}}
	case err != nil:
		return nil, fmt.Errorf("find %s settings: %w", typ, err)
	}
	if doc.Fields == nil {
		doc.Fields = map[string]any{}
	}
	for k, v := range fields {
		doc.Fields[k] = v
	}
	doc.UpdatedAt = s.now().UTC()

	if err := s.settings.Upsert(ctx, doc); err != nil {
		return nil, fmt.Errorf("upsert %s settings: %w", typ, err)
	}

	s.audit.Record(ctx, scope.APIKey, domain.ActionSettingsUpdated, typ, fields)
	return doc, nil
}
