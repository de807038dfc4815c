package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
)

// uniqueViolation is the PostgreSQL SQLSTATE for a unique index conflict.
const uniqueViolation = "23505"

// psql builds queries with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// Store implements domain.Store on a shared PostgreSQL schema. Every tenant
// owned row carries an api_key column.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

var _ domain.Store = (*Store)(nil)

// Open connects to url and verifies the connection.
func Open(ctx context.Context, url string, logger *zap.Logger) (*Store, error) {
	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return New(db, logger), nil
}

// New wraps an existing connection pool.
func New(db *sql.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger.With(zap.String("component", "postgres_store"))}
}

// DB exposes the pool for components sharing the connection.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Tenants() domain.TenantRepository       { return &tenantRepository{db: s.db} }
func (s *Store) Directory() domain.DirectoryRepository { return &directoryRepository{db: s.db} }
func (s *Store) Users() domain.UserRepository          { return &userRepository{db: s.db} }
func (s *Store) Menu() domain.MenuRepository           { return &menuRepository{db: s.db} }
func (s *Store) Counters() domain.CounterRepository    { return &counterRepository{db: s.db} }
func (s *Store) Settings() domain.SettingsRepository   { return &settingsRepository{db: s.db} }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close(ctx context.Context) error {
	return s.db.Close()
}

// mapErr translates driver errors into domain errors.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", domain.ErrConflict, pqErr.Constraint)
	}
	return err
}

// requireRow returns ErrNotFound when an UPDATE or DELETE matched nothing.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
