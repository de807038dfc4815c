package domain

import (
	"context"
	"strings"
	"time"
)

// TenantStatus is the lifecycle state of a tenant.
type TenantStatus string

const (
	TenantActive    TenantStatus = "active"
	TenantSuspended TenantStatus = "suspended"
)

// GlobalScope is the apiKey value used by shared, non-tenant documents.
const GlobalScope = "*"

// Dataset names, one per logical per-tenant data set.
const (
	DatasetUsers     = "users"
	DatasetItems     = "items"
	DatasetOrders    = "orders"
	DatasetSettings  = "settings"
	DatasetInventory = "inventory"
)

// TenantDatasets lists the datasets every tenant is provisioned with, in order.
var TenantDatasets = []string{
	DatasetUsers,
	DatasetItems,
	DatasetOrders,
	DatasetSettings,
	DatasetInventory,
}

// Tenant represents one restaurant instance.
type Tenant struct {
	CompanyName string       `json:"companyName" bson:"companyName"`
	CompanyID   string       `json:"companyId" bson:"companyId"`
	APIKey      string       `json:"apiKey" bson:"apiKey"`
	UserPhone   string       `json:"userPhone" bson:"userPhone"`
	UserName    string       `json:"userName" bson:"userName"`
	CreatedAt   time.Time    `json:"createdAt" bson:"createdAt"`
	Status      TenantStatus `json:"status" bson:"status"`
}

// Active reports whether the tenant may serve requests.
func (t *Tenant) Active() bool {
	return t.Status == "" || t.Status == TenantActive
}

// DirectoryEntry routes a (phone, companyId) login to its tenant.
type DirectoryEntry struct {
	UserName     string    `json:"userName" bson:"userName"`
	UserEmail    string    `json:"userEmail,omitempty" bson:"userEmail,omitempty"`
	UserPhone    string    `json:"userPhone" bson:"userPhone"`
	UserRole     string    `json:"userRole,omitempty" bson:"userRole,omitempty"`
	APIKey       string    `json:"apiKey" bson:"apiKey"`
	CompanyID    string    `json:"companyId" bson:"companyId"`
	ProfileImage string    `json:"profileImage,omitempty" bson:"profileImage,omitempty"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Scope is a resolved tenant context handed to the CRUD services.
type Scope struct {
	APIKey    string
	CompanyID string
}

// NormalizeAPIKey lower-cases and trims a caller supplied key.
func NormalizeAPIKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// DatasetName renders the legacy per-tenant collection name. It is kept for
// logging and metric labels; storage is a shared schema filtered by apiKey.
func DatasetName(apiKey, dataset string) string {
	return NormalizeAPIKey(apiKey) + "_" + dataset
}

// TenantRepository persists tenant records.
type TenantRepository interface {
	// Create inserts a tenant, returning ErrConflict when the apiKey exists.
	Create(ctx context.Context, t *Tenant) error
	FindByAPIKey(ctx context.Context, apiKey string) (*Tenant, error)
	UpdateStatus(ctx context.Context, apiKey string, status TenantStatus) error
}

// DirectoryRepository persists the global login directory.
type DirectoryRepository interface {
	FindByPhoneAndCompany(ctx context.Context, phone, companyID string) (*DirectoryEntry, error)
	// Upsert creates or replaces the entry keyed by (UserPhone, APIKey).
	Upsert(ctx context.Context, e *DirectoryEntry) error
	Delete(ctx context.Context, phone, apiKey string) error
}
