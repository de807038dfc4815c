package domain

import (
	"context"
	"time"
)

// RoleAdmin is the role given to the user created at provisioning.
const RoleAdmin = "Admin"

// UserStatus filters users by their soft delete state.
type UserStatus string

const (
	UserStatusActive  UserStatus = "active"
	UserStatusDeleted UserStatus = "deleted"
	UserStatusAll     UserStatus = "all"
)

// ParseUserStatus maps query values onto a UserStatus, defaulting to active.
func ParseUserStatus(s string) UserStatus {
	switch UserStatus(s) {
	case UserStatusDeleted, UserStatusAll:
		return UserStatus(s)
	case "inactive":
		return UserStatusDeleted
	default:
		return UserStatusActive
	}
}

// User is a staff account inside one tenant.
type User struct {
	ID            string     `json:"_id" bson:"_id"`
	APIKey        string     `json:"apiKey" bson:"apiKey"`
	UserName      string     `json:"userName" bson:"userName"`
	UserPhone     string     `json:"userPhone" bson:"userPhone"`
	UserEmail     string     `json:"userEmail,omitempty" bson:"userEmail,omitempty"`
	UserRole      string     `json:"userRole" bson:"userRole"`
	PasswordHash  string     `json:"-" bson:"password"`
	ProfileImage  string     `json:"profileImage,omitempty" bson:"profileImage,omitempty"`
	CreatedDate   time.Time  `json:"createdDate" bson:"createdDate"`
	UpdatedDate   time.Time  `json:"updatedDate" bson:"updatedDate"`
	IsDeleted     bool       `json:"isDeleted" bson:"isDeleted"`
	DeletedDate   *time.Time `json:"deletedDate,omitempty" bson:"deletedDate,omitempty"`
	ReEnabledDate *time.Time `json:"reEnabledDate,omitempty" bson:"reEnabledDate,omitempty"`
}

// UserFilter narrows a user listing. Zero Limit means no limit.
type UserFilter struct {
	Role   string
	Status UserStatus
	Skip   int64
	Limit  int64
}

// UserPage is one page of a paginated user listing.
type UserPage struct {
	Users      []*User `json:"users"`
	Total      int64   `json:"total"`
	Page       int64   `json:"page"`
	PageSize   int64   `json:"pageSize"`
	TotalPages int64   `json:"totalPages"`
}

// UserRepository persists tenant users. Every method is scoped by apiKey.
type UserRepository interface {
	// Create returns ErrConflict when an active user already has the phone.
	Create(ctx context.Context, u *User) error
	FindByID(ctx context.Context, apiKey, id string) (*User, error)
	FindActiveByPhone(ctx context.Context, apiKey, phone string) (*User, error)
	// List returns users sorted by CreatedDate descending plus the total
	// number of matches ignoring Skip and Limit.
	List(ctx context.Context, apiKey string, f UserFilter) ([]*User, int64, error)
	// Update replaces the stored user with u, matched by (APIKey, ID).
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, apiKey, id string) error
}
