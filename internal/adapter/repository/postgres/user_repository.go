package postgres

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/V4T54L/tabletop/internal/domain"
)

var userColumns = []string{
	"id", "api_key", "user_name", "user_phone", "user_email", "user_role", "password",
	"profile_image", "created_date", "updated_date", "is_deleted", "deleted_date", "re_enabled_date",
}

type userRepository struct {
	db *sql.DB
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	var u domain.User
	var deleted, reEnabled sql.NullTime
	err := row.Scan(
		&u.ID,
		&u.APIKey,
		&u.UserName,
		&u.UserPhone,
		&u.UserEmail,
		&u.UserRole,
		&u.PasswordHash,
		&u.ProfileImage,
		&u.CreatedDate,
		&u.UpdatedDate,
		&u.IsDeleted,
		&deleted,
		&reEnabled,
	)
	if err != nil {
		return nil, err
	}
	u.DeletedDate = timePtr(deleted)
	u.ReEnabledDate = timePtr(reEnabled)
	return &u, nil
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	query, args, err := psql.Insert("users").
		Columns(userColumns...).
		Values(u.ID, u.APIKey, u.UserName, u.UserPhone, u.UserEmail, u.UserRole, u.PasswordHash,
			u.ProfileImage, u.CreatedDate, u.UpdatedDate, u.IsDeleted, nullTime(u.DeletedDate), nullTime(u.ReEnabledDate)).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store user: %w", mapErr(err))
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, apiKey, id string) (*domain.User, error) {
	return r.findOne(ctx, sq.Eq{"api_key": apiKey, "id": id})
}

func (r *userRepository) FindActiveByPhone(ctx context.Context, apiKey, phone string) (*domain.User, error) {
	return r.findOne(ctx, sq.Eq{"api_key": apiKey, "user_phone": phone, "is_deleted": false})
}

func (r *userRepository) findOne(ctx context.Context, where sq.Eq) (*domain.User, error) {
	query, args, err := psql.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, err
	}
	u, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("find user: %w", mapErr(err))
	}
	return u, nil
}

func (r *userRepository) List(ctx context.Context, apiKey string, f domain.UserFilter) ([]*domain.User, int64, error) {
	where := sq.And{sq.Eq{"api_key": apiKey}}
	if f.Role != "" {
		where = append(where, sq.Eq{"user_role": f.Role})
	}
	switch f.Status {
	case domain.UserStatusActive:
		where = append(where, sq.Eq{"is_deleted": false})
	case domain.UserStatusDeleted:
		where = append(where, sq.Eq{"is_deleted": true})
	}

	countQuery, countArgs, err := psql.Select("COUNT(*)").From("users").Where(where).ToSql()
	if err != nil {
		return nil, 0, err
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", mapErr(err))
	}

	q := psql.Select(userColumns...).From("users").Where(where).OrderBy("created_date DESC")
	if f.Skip > 0 {
		q = q.Offset(uint64(f.Skip))
	}
	if f.Limit > 0 {
		q = q.Limit(uint64(f.Limit))
	}
	query, args, err := q.ToSql()
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", mapErr(err))
	}
	defer rows.Close()

	users := []*domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	query, args, err := psql.Update("users").SetMap(map[string]any{
		"user_name":       u.UserName,
		"user_phone":      u.UserPhone,
		"user_email":      u.UserEmail,
		"user_role":       u.UserRole,
		"password":        u.PasswordHash,
		"profile_image":   u.ProfileImage,
		"updated_date":    u.UpdatedDate,
		"is_deleted":      u.IsDeleted,
		"deleted_date":    nullTime(u.DeletedDate),
		"re_enabled_date": nullTime(u.ReEnabledDate),
	}).Where(sq.Eq{"api_key": u.APIKey, "id": u.ID}).ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update user: %w", mapErr(err))
	}
	return requireRow(res)
}

func (r *userRepository) Delete(ctx context.Context, apiKey, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE api_key = $1 AND id = $2`, apiKey, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", mapErr(err))
	}
	return requireRow(res)
}
