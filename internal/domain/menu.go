package domain

import (
	"context"
	"time"
)

// ItemCodeCounter is the counter name backing sequential item codes.
const ItemCodeCounter = "itemCode"

// MenuItem is a dish or product on a tenant's menu.
type MenuItem struct {
	ID          string    `json:"_id" bson:"_id"`
	APIKey      string    `json:"apiKey" bson:"apiKey"`
	ItemName    string    `json:"itemName" bson:"itemName"`
	ItemCode    string    `json:"itemCode" bson:"itemCode"`
	Category    string    `json:"Category" bson:"category"`
	MRP         float64   `json:"MRP" bson:"mrp"`
	Description string    `json:"description,omitempty" bson:"description,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// MenuRepository persists menu items. Every method is scoped by apiKey.
type MenuRepository interface {
	// Create returns ErrConflict when the name or code is taken in the tenant.
	Create(ctx context.Context, item *MenuItem) error
	FindByID(ctx context.Context, apiKey, id string) (*MenuItem, error)
	// List returns items sorted by CreatedAt descending. An empty category
	// matches every item.
	List(ctx context.Context, apiKey, category string) ([]*MenuItem, error)
	ExistsByName(ctx context.Context, apiKey, name, excludeID string) (bool, error)
	ExistsByCode(ctx context.Context, apiKey, code, excludeID string) (bool, error)
	ListCodes(ctx context.Context, apiKey string) ([]string, error)
	Update(ctx context.Context, item *MenuItem) error
	Delete(ctx context.Context, apiKey, id string) error
}

// CounterRepository provides atomic per-tenant sequences.
type CounterRepository interface {
	// Increment adds one to the counter and returns the new value. It returns
	// ErrNotFound when the counter has never been seeded.
	Increment(ctx context.Context, apiKey, name string) (int64, error)
	// Raise creates the counter or lifts it so its value is at least floor.
	Raise(ctx context.Context, apiKey, name string, floor int64) error
}
