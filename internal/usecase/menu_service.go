package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
)

// Price accepts a JSON number or a numeric string.
type Price string

func (p *Price) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = unquoted
	}
	*p = Price(strings.TrimSpace(s))
	return nil
}

// Value parses the price and checks that it is a positive finite number.
func (p Price) Value() (float64, error) {
	v, err := strconv.ParseFloat(string(p), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, domain.NewValidationError("MRP", "must be a number")
	}
	if v <= 0 {
		return 0, domain.NewValidationError("MRP", "must be greater than 0")
	}
	return v, nil
}

// MenuItemInput carries the writable fields of a menu item. Nil fields are
// left untouched on update.
type MenuItemInput struct {
	ItemName    *string `json:"itemName"`
	ItemCode    *string `json:"itemCode"`
	Category    *string `json:"Category"`
	MRP         *Price  `json:"MRP"`
	Description *string `json:"description"`
	ImageURL    *string `json:"imageUrl"`
}

// MenuService manages menu items of a tenant.
type MenuService struct {
	items  domain.MenuRepository
	codes  *CodeGenerator
	audit  AuditRecorder
	logger *zap.Logger
	now    func() time.Time
}

// NewMenuService creates a new MenuService.
func NewMenuService(items domain.MenuRepository, codes *CodeGenerator, audit AuditRecorder, logger *zap.Logger) *MenuService {
	return &MenuService{
		items:  items,
		codes:  codes,
		audit:  audit,
		logger: logger.With(zap.String("component", "menu")),
		now:    time.Now,
	}
}

// List returns the tenant's items, newest first. An empty category returns
// every item.
func (s *MenuService) List(ctx context.Context, scope domain.Scope, category string) ([]*domain.MenuItem, error) {
	if scope.APIKey == "" {
		return nil, domain.ErrNotConfigured
	}
	items, err := s.items.List(ctx, scope.APIKey, category)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && items == nil) {
		return []*domain.MenuItem{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	return items, nil
}

// NameExists reports whether another item already uses name.
func (s *MenuService) NameExists(ctx context.Context, scope domain.Scope, name, excludeID string) (bool, error) {
	return s.exists(ctx, scope, name, func() (bool, error) {
		return s.items.ExistsByName(ctx, scope.APIKey, name, excludeID)
	})
}

// CodeExists reports whether another item already uses code.
func (s *MenuService) CodeExists(ctx context.Context, scope domain.Scope, code, excludeID string) (bool, error) {
	return s.exists(ctx, scope, code, func() (bool, error) {
		return s.items.ExistsByCode(ctx, scope.APIKey, code, excludeID)
	})
}

func (s *MenuService) exists(ctx context.Context, scope domain.Scope, value string, check func() (bool, error)) (bool, error) {
	if scope.APIKey == "" {
		return false, domain.ErrNotConfigured
	}
	if value == "" {
		return false, nil
	}
	ok, err := check()
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("check menu item: %w", err)
	}
	return ok, nil
}

// Create validates and stores a new item. An empty code is replaced with the
// next sequential code.
func (s *MenuService) Create(ctx context.Context, scope domain.Scope, in MenuItemInput) (*domain.MenuItem, error) {
	if scope.APIKey == "" {
		return nil, domain.ErrNotConfigured
	}
	name := trimmed(in.ItemName)
	if name == "" {
		return nil, domain.NewValidationError("itemName", "is required")
	}
	if in.MRP == nil {
		return nil, domain.NewValidationError("MRP", "is required")
	}
	mrp, err := in.MRP.Value()
	if err != nil {
		return nil, err
	}

	code := trimmed(in.ItemCode)
	if err := s.checkUnique(ctx, scope.APIKey, name, code, ""); err != nil {
		return nil, err
	}
	if code == "" {
		if code, err = s.codes.Next(ctx, scope.APIKey); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	item := &domain.MenuItem{
		ID:          uuid.NewString(),
		APIKey:      scope.APIKey,
		ItemName:    name,
		ItemCode:    code,
		Category:    trimmed(in.Category),
		MRP:         mrp,
		Description: deref(in.Description),
		ImageURL:    deref(in.ImageURL),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.items.Create(ctx, item); err != nil {
		return nil, conflictErr(err, "itemName", "an item with this name or code already exists", "create menu item")
	}

	s.observeCode(ctx, scope.APIKey, code)
	s.audit.Record(ctx, scope.APIKey, domain.ActionMenuCreated, item.ID, item)
	return item, nil
}

// Update merges the supplied fields into the stored item.
func (s *MenuService) Update(ctx context.Context, scope domain.Scope, id string, in MenuItemInput) (*domain.MenuItem, error) {
	if scope.APIKey == "" {
		return nil, domain.ErrNotConfigured
	}

	// Validate everything before touching the store.
	var mrp float64
	if in.MRP != nil {
		v, err := in.MRP.Value()
		if err != nil {
			return nil, err
		}
		mrp = v
	}
	if in.ItemName != nil && trimmed(in.ItemName) == "" {
		return nil, domain.NewValidationError("itemName", "must not be empty")
	}
	if in.ItemCode != nil && trimmed(in.ItemCode) == "" {
		return nil, domain.NewValidationError("itemCode", "must not be empty")
	}

	item, err := s.items.FindByID(ctx, scope.APIKey, id)
	if err != nil {
		return nil, fmt.Errorf("find menu item: %w", err)
	}
	if err := s.checkUnique(ctx, scope.APIKey, trimmed(in.ItemName), trimmed(in.ItemCode), id); err != nil {
		return nil, err
	}

	if in.ItemName != nil {
		item.ItemName = trimmed(in.ItemName)
	}
	if in.ItemCode != nil {
		item.ItemCode = trimmed(in.ItemCode)
	}
	if in.Category != nil {
		item.Category = trimmed(in.Category)
	}
	if in.MRP != nil {
		item.MRP = mrp
	}
	if in.Description != nil {
		item.Description = *in.Description
	}
	if in.ImageURL != nil {
		item.ImageURL = *in.ImageURL
	}
	item.UpdatedAt = s.now().UTC()

	if err := s.items.Update(ctx, item); err != nil {
		return nil, conflictErr(err, "itemName", "an item with this name or code already exists", "update menu item")
	}

	if in.ItemCode != nil {
		s.observeCode(ctx, scope.APIKey, item.ItemCode)
	}
	s.audit.Record(ctx, scope.APIKey, domain.ActionMenuUpdated, item.ID, item)
	return item, nil
}

// Delete removes an item.
func (s *MenuService) Delete(ctx context.Context, scope domain.Scope, id string) error {
	if scope.APIKey == "" {
		return domain.ErrNotConfigured
	}
	if err := s.items.Delete(ctx, scope.APIKey, id); err != nil {
		return fmt.Errorf("delete menu item: %w", err)
	}
	s.audit.Record(ctx, scope.APIKey, domain.ActionMenuDeleted, id, nil)
	return nil
}

// NextCode returns the next sequential item code of the tenant.
func (s *MenuService) NextCode(ctx context.Context, scope domain.Scope) (string, error) {
	if scope.APIKey == "" {
		return "", domain.ErrNotConfigured
	}
	return s.codes.Next(ctx, scope.APIKey)
}

func (s *MenuService) checkUnique(ctx context.Context, apiKey, name, code, excludeID string) error {
	if name != "" {
		taken, err := s.items.ExistsByName(ctx, apiKey, name, excludeID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("check item name: %w", err)
		}
		if taken {
			return domain.NewValidationError("itemName", "an item named %q already exists", name)
		}
	}
	if code != "" {
		taken, err := s.items.ExistsByCode(ctx, apiKey, code, excludeID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("check item code: %w", err)
		}
		if taken {
			return domain.NewValidationError("itemCode", "an item with code %q already exists", code)
		}
	}
	return nil
}

func (s *MenuService) observeCode(ctx context.Context, apiKey, code string) {
	if err := s.codes.Observe(ctx, apiKey, code); err != nil {
		s.logger.Warn("failed to advance code counter", zap.String("api_key", apiKey), zap.String("item_code", code), zap.Error(err))
	}
}

// conflictErr turns a store uniqueness violation into a validation error.
func conflictErr(err error, field, msg, op string) error {
	if errors.Is(err, domain.ErrConflict) {
		return domain.NewValidationError(field, "%s", msg)
	}
	return fmt.Errorf("%s: %w", op, err)
}

func trimmed(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
