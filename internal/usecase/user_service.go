package usecase

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
	"github.com/V4T54L/tabletop/internal/pkg/token"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
	maxPage         = 1_000_000
	csvDateLayout   = "2006-01-02"
	csvMissing      = "N/A"
)

var csvHeader = []string{"Name", "Phone Number", "Email", "Role", "User Status", "Created Date", "Deleted Date"}

// UserInput carries the writable fields of a user. Password is the client
// digest. Nil fields are left untouched on update.
type UserInput struct {
	UserName     *string `json:"userName"`
	UserPhone    *string `json:"userPhone"`
	UserEmail    *string `json:"userEmail"`
	UserRole     *string `json:"userRole"`
	Password     *string `json:"password"`
	ProfileImage *string `json:"profileImage"`
}

// UserService manages the staff accounts of a tenant and keeps the login
// directory in sync with them.
type UserService struct {
	users     domain.UserRepository
	directory domain.DirectoryRepository
	audit     AuditRecorder
	logger    *zap.Logger
	now       func() time.Time
}

// NewUserService creates a new UserService.
func NewUserService(users domain.UserRepository, directory domain.DirectoryRepository, audit AuditRecorder, logger *zap.Logger) *UserService {
	return &UserService{
		users:     users,
		directory: directory,
		audit:     audit,
		logger:    logger.With(zap.String("component", "users")),
		now:       time.Now,
	}
}

// List returns every user of the tenant, optionally narrowed to one role.
func (s *UserService) List(ctx context.Context, scope domain.Scope, role string) ([]*domain.User, error) {
	if scope.APIKey == "" {
		return nil, domain.ErrNotConfigured
	}
	users, _, err := s.users.List(ctx, scope.APIKey, domain.UserFilter{Role: role, Status: domain.UserStatusAll})
	if errors.Is(err, domain.ErrNotFound) || (err == nil && users == nil) {
		return []*domain.User{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// ListPage returns one page of users in the given status. Page numbers start
// at 1.
func (s *UserService) ListPage(ctx context.Context, scope domain.Scope, status domain.UserStatus, page, pageSize int64) (*domain.UserPage, error) {
	if scope.APIKey == "" {
		return nil, domain.ErrNotConfigured
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	if page > maxPage {
		return nil, domain.NewValidationError("page", "must be at most %d", maxPage)
	}

	users, total, err := s.users.List(ctx, scope.APIKey, domain.UserFilter{
		Status: status,
		Skip:   (page - 1) * pageSize,
		Limit:  pageSize,
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("list users: %w", err)
	}
	if users == nil {
		users = []*domain.User{}
	}
	return &domain.UserPage{
		Users:      users,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
	}, nil
}

// Get returns a single user.
func (s *UserService) Get(ctx context.Context, scope domain.Scope, id string) (*domain.User, error) {
	if scope.APIKey == "" {
		return nil, domain.ErrNotConfigured
	}
	u, err := s.users.FindByID(ctx, scope.APIKey, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// Create validates and stores a new user and mirrors it to the directory.
func (s *UserService) Create(ctx context.Context, scope domain.Scope, in UserInput) (*domain.User, error) {
	if scope.APIKey == "" {
		return nil, domain.ErrNotConfigured
	}
	u := &domain.User{
		UserName:     trimmed(in.UserName),
		UserPhone:    trimmed(in.UserPhone),
		UserEmail:    trimmed(in.UserEmail),
		UserRole:     trimmed(in.UserRole),
		ProfileImage: deref(in.ProfileImage),
	}
	switch {
	case u.UserName == "":
		return nil, domain.NewValidationError("userName", "is required")
	case u.UserPhone == "":
		return nil, domain.NewValidationError("userPhone", "is required")
	case u.UserRole == "":
		return nil, domain.NewValidationError("userRole", "is required")
	}
	if err := s.checkPhone(ctx, scope.APIKey, u.UserPhone, ""); err != nil {
		return nil, err
	}
	if digest := deref(in.Password); digest != "" {
		hash, err := hashDigest(digest)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}

	now := s.now().UTC()
	u.ID = uuid.NewString()
	u.APIKey = scope.APIKey
	u.CreatedDate = now
	u.UpdatedDate = now

	if err := s.users.Create(ctx, u); err != nil {
		return nil, conflictErr(err, "userPhone", "an active user with this phone already exists", "create user")
	}
	if err := s.mirror(ctx, scope, u); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, scope.APIKey, domain.ActionUserCreated, u.ID, u)
	return u, nil
}

// Update merges the supplied fields into the stored user.
func (s *UserService) Update(ctx context.Context, scope domain.Scope, id string, in UserInput) (*domain.User, error) {
	if scope.APIKey == "" {
		return nil, domain.ErrNotConfigured
	}
	for field, v := range map[string]*string{"userName": in.UserName, "userPhone": in.UserPhone, "userRole": in.UserRole} {
		if v != nil && trimmed(v) == "" {
			return nil, domain.NewValidationError(field, "must not be empty")
		}
	}

	u, err := s.users.FindByID(ctx, scope.APIKey, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	oldPhone := u.UserPhone

	if in.UserPhone != nil && trimmed(in.UserPhone) != oldPhone {
		if err := s.checkPhone(ctx, scope.APIKey, trimmed(in.UserPhone), u.ID); err != nil {
			return nil, err
		}
		u.UserPhone = trimmed(in.UserPhone)
	}
	applyProfile(u, in)
	if digest := deref(in.Password); digest != "" {
		hash, err := hashDigest(digest)
		if err != nil {
			return nil, err
		}
		u.PasswordHash = hash
	}
	u.UpdatedDate = s.now().UTC()

	if err := s.users.Update(ctx, u); err != nil {
		return nil, conflictErr(err, "userPhone", "an active user with this phone already exists", "update user")
	}
	if oldPhone != u.UserPhone {
		s.releasePhone(ctx, scope.APIKey, oldPhone, u.ID)
	}
	// A deleted user's phone may belong to an active user's entry by now.
	if !u.IsDeleted {
		if err := s.mirror(ctx, scope, u); err != nil {
			return nil, err
		}
	}

	s.audit.Record(ctx, scope.APIKey, domain.ActionUserUpdated, u.ID, u)
	return u, nil
}

// SoftDelete marks the user deleted. The record and directory entry stay so
// the user can be re-enabled.
func (s *UserService) SoftDelete(ctx context.Context, scope domain.Scope, id string) (*domain.User, error) {
	if scope.APIKey == "" {
		return nil, domain.ErrNotConfigured
	}
	u, err := s.users.FindByID(ctx, scope.APIKey, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if u.IsDeleted {
		return u, nil
	}

	now := s.now().UTC()
	u.IsDeleted = true
	u.DeletedDate = &now
	u.UpdatedDate = now
	if err := s.users.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("soft delete user: %w", err)
	}

	s.audit.Record(ctx, scope.APIKey, domain.ActionUserDeleted, u.ID, nil)
	return u, nil
}

// ReEnable clears the deletion markers, applies the optional name, email and
// role overrides and mirrors the result to the directory.
func (s *UserService) ReEnable(ctx context.Context, scope domain.Scope, id string, in UserInput) (*domain.User, error) {
	if scope.APIKey == "" {
		return nil, domain.ErrNotConfigured
	}
	u, err := s.users.FindByID(ctx, scope.APIKey, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := s.checkPhone(ctx, scope.APIKey, u.UserPhone, u.ID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	u.IsDeleted = false
	u.DeletedDate = nil
	u.ReEnabledDate = &now
	u.UpdatedDate = now
	applyProfile(u, UserInput{UserName: in.UserName, UserEmail: in.UserEmail, UserRole: in.UserRole})

	if err := s.users.Update(ctx, u); err != nil {
		return nil, conflictErr(err, "userPhone", "an active user with this phone already exists", "re-enable user")
	}
	if err := s.mirror(ctx, scope, u); err != nil {
		return nil, err
	}

	s.audit.Record(ctx, scope.APIKey, domain.ActionUserReEnabled, u.ID, nil)
	return u, nil
}

// Purge removes the user record and its directory entry for good.
func (s *UserService) Purge(ctx context.Context, scope domain.Scope, id string) error {
	if scope.APIKey == "" {
		return domain.ErrNotConfigured
	}
	u, err := s.users.FindByID(ctx, scope.APIKey, id)
	if err != nil {
		return fmt.Errorf("find user: %w", err)
	}
	if err := s.users.Delete(ctx, scope.APIKey, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.releasePhone(ctx, scope.APIKey, u.UserPhone, u.ID)

	s.audit.Record(ctx, scope.APIKey, domain.ActionUserPurged, u.ID, map[string]any{"userPhone": u.UserPhone})
	return nil
}

// ExportCSV writes the users in the given status as CSV.
func (s *UserService) ExportCSV(ctx context.Context, scope domain.Scope, status domain.UserStatus, w io.Writer) error {
	if scope.APIKey == "" {
		return domain.ErrNotConfigured
	}
	users, _, err := s.users.List(ctx, scope.APIKey, domain.UserFilter{Status: status})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("list users: %w", err)
	}
	return WriteUsersCSV(w, users)
}

// WriteUsersCSV renders users in the export format.
func WriteUsersCSV(w io.Writer, users []*domain.User) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, u := range users {
		status, deleted := "Active", csvMissing
		if u.IsDeleted {
			status = "Deleted"
			if u.DeletedDate != nil {
				deleted = u.DeletedDate.Format(csvDateLayout)
			}
		}
		created := csvMissing
		if !u.CreatedDate.IsZero() {
			created = u.CreatedDate.Format(csvDateLayout)
		}
		if err := cw.Write([]string{
			orMissing(u.UserName),
			orMissing(u.UserPhone),
			orMissing(u.UserEmail),
			orMissing(u.UserRole),
			status,
			created,
			deleted,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *UserService) checkPhone(ctx context.Context, apiKey, phone, excludeID string) error {
	other, err := s.users.FindActiveByPhone(ctx, apiKey, phone)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("check user phone: %w", err)
	case other.ID != excludeID:
		return domain.NewValidationError("userPhone", "an active user with phone %s already exists", phone)
	}
	return nil
}

func (s *UserService) mirror(ctx context.Context, scope domain.Scope, u *domain.User) error {
	now := s.now().UTC()
	err := s.directory.Upsert(ctx, &domain.DirectoryEntry{
		UserName:     u.UserName,
		UserEmail:    u.UserEmail,
		UserPhone:    u.UserPhone,
		UserRole:     u.UserRole,
		APIKey:       scope.APIKey,
		CompanyID:    scope.CompanyID,
		ProfileImage: u.ProfileImage,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return fmt.Errorf("mirror user to directory: %w", err)
	}
	return nil
}

// releasePhone removes the directory entry of phone unless another active
// user of the tenant has taken the phone after a soft delete.
func (s *UserService) releasePhone(ctx context.Context, apiKey, phone, userID string) {
	other, err := s.users.FindActiveByPhone(ctx, apiKey, phone)
	switch {
	case err == nil && other.ID != userID:
		s.logger.Info("directory entry kept for active user", zap.String("user_id", other.ID))
		return
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		s.logger.Warn("failed to check phone owner, directory entry kept", zap.String("api_key", apiKey), zap.Error(err))
		return
	}
	s.dropDirectoryEntry(ctx, phone, apiKey)
}

// hashDigest maps over-long digests to a validation error.
func hashDigest(digest string) (string, error) {
	hash, err := token.HashPassword(digest)
	if errors.Is(err, token.ErrPasswordTooLong) {
		return "", domain.NewValidationError("password", "must be at most %d bytes", token.MaxPasswordBytes)
	}
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

func (s *UserService) dropDirectoryEntry(ctx context.Context, phone, apiKey string) {
	if err := s.directory.Delete(ctx, phone, apiKey); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.Warn("failed to remove directory entry", zap.String("api_key", apiKey), zap.Error(err))
	}
}

func applyProfile(u *domain.User, in UserInput) {
	if in.UserName != nil {
		u.UserName = trimmed(in.UserName)
	}
	if in.UserEmail != nil {
		u.UserEmail = trimmed(in.UserEmail)
	}
	if in.UserRole != nil {
		u.UserRole = trimmed(in.UserRole)
	}
	if in.ProfileImage != nil {
		u.ProfileImage = *in.ProfileImage
	}
}

func orMissing(s string) string {
	if s == "" {
		return csvMissing
	}
	return s
}
