package postgres

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/V4T54L/tabletop/internal/domain"
)

var menuColumns = []string{
	"id", "api_key", "item_name", "item_code", "category", "mrp", "description", "image_url", "created_at", "updated_at",
}

type menuRepository struct {
	db *sql.DB
}

func scanMenuItem(row rowScanner) (*domain.MenuItem, error) {
	var item domain.MenuItem
	err := row.Scan(
		&item.ID,
		&item.APIKey,
		&item.ItemName,
		&item.ItemCode,
		&item.Category,
		&item.MRP,
		&item.Description,
		&item.ImageURL,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *menuRepository) Create(ctx context.Context, item *domain.MenuItem) error {
	query, args, err := psql.Insert("menu_items").
		Columns(menuColumns...).
		Values(item.ID, item.APIKey, item.ItemName, item.ItemCode, item.Category, item.MRP,
			item.Description, item.ImageURL, item.CreatedAt, item.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("store menu item: %w", mapErr(err))
	}
	return nil
}

func (r *menuRepository) FindByID(ctx context.Context, apiKey, id string) (*domain.MenuItem, error) {
	query, args, err := psql.Select(menuColumns...).From("menu_items").
		Where(sq.Eq{"api_key": apiKey, "id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	item, err := scanMenuItem(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, fmt.Errorf("find menu item: %w", mapErr(err))
	}
	return item, nil
}

func (r *menuRepository) List(ctx context.Context, apiKey, category string) ([]*domain.MenuItem, error) {
	where := sq.Eq{"api_key": apiKey}
	if category != "" {
		where["category"] = category
	}
	query, args, err := psql.Select(menuColumns...).From("menu_items").
		Where(where).OrderBy("created_at DESC").ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", mapErr(err))
	}
	defer rows.Close()

	items := []*domain.MenuItem{}
	for rows.Next() {
		item, err := scanMenuItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan menu item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *menuRepository) ExistsByName(ctx context.Context, apiKey, name, excludeID string) (bool, error) {
	return r.exists(ctx, sq.Eq{"api_key": apiKey, "item_name": name}, excludeID)
}

func (r *menuRepository) ExistsByCode(ctx context.Context, apiKey, code, excludeID string) (bool, error) {
	return r.exists(ctx, sq.Eq{"api_key": apiKey, "item_code": code}, excludeID)
}

func (r *menuRepository) exists(ctx context.Context, where sq.Eq, excludeID string) (bool, error) {
	cond := sq.And{where}
	if excludeID != "" {
		cond = append(cond, sq.NotEq{"id": excludeID})
	}
	inner, args, err := psql.Select("1").From("menu_items").Where(cond).ToSql()
	if err != nil {
		return false, err
	}

	var exists bool
	if err := r.db.QueryRowContext(ctx, "SELECT EXISTS("+inner+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("check menu item: %w", mapErr(err))
	}
	return exists, nil
}

func (r *menuRepository) ListCodes(ctx context.Context, apiKey string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT item_code FROM menu_items WHERE api_key = $1`, apiKey)
	if err != nil {
		return nil, fmt.Errorf("list item codes: %w", mapErr(err))
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, err
		}
		codes = append(codes, code)
	}
	return codes, rows.Err()
}

func (r *menuRepository) Update(ctx context.Context, item *domain.MenuItem) error {
	query, args, err := psql.Update("menu_items").SetMap(map[string]any{
		"item_name":   item.ItemName,
		"item_code":   item.ItemCode,
		"category":    item.Category,
		"mrp":         item.MRP,
		"description": item.Description,
		"image_url":   item.ImageURL,
		"updated_at":  item.UpdatedAt,
	}).Where(sq.Eq{"api_key": item.APIKey, "id": item.ID}).ToSql()
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update menu item: %w", mapErr(err))
	}
	return requireRow(res)
}

func (r *menuRepository) Delete(ctx context.Context, apiKey, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM menu_items WHERE api_key = $1 AND id = $2`, apiKey, id)
	if err != nil {
		return fmt.Errorf("delete menu item: %w", mapErr(err))
	}
	return requireRow(res)
}
