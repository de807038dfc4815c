package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/V4T54L/tabletop/internal/domain"
)

// Collection names. Tenant datasets are shared collections filtered by apiKey.
const (
	collTenants   = "tenants"
	collDirectory = "master_users"
	collCounters  = "counters"
)

var datasetCollections = map[string]string{
	domain.DatasetUsers:     "users",
	domain.DatasetItems:     "items",
	domain.DatasetOrders:    "orders",
	domain.DatasetSettings:  "settings",
	domain.DatasetInventory: "inventory",
}

// Store implements domain.Store on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger *zap.Logger
}

var _ domain.Store = (*Store)(nil)

// Connect dials uri and verifies the connection.
func Connect(ctx context.Context, uri, database string, logger *zap.Logger) (*Store, error) {
	clientOptions := options.Client().ApplyURI(uri).
		SetMaxPoolSize(50).
		SetConnectTimeout(5 * time.Second).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	logger.Info("connected to MongoDB", zap.String("database", database))
	return New(client, database, logger), nil
}

// New wraps an existing client.
func New(client *mongo.Client, database string, logger *zap.Logger) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
		logger: logger.With(zap.String("component", "mongo_store")),
	}
}

func (s *Store) Tenants() domain.TenantRepository {
	return &tenantRepository{coll: s.db.Collection(collTenants)}
}

func (s *Store) Directory() domain.DirectoryRepository {
	return &directoryRepository{coll: s.db.Collection(collDirectory)}
}

func (s *Store) Users() domain.UserRepository {
	return &userRepository{coll: s.db.Collection(datasetCollections[domain.DatasetUsers])}
}

func (s *Store) Menu() domain.MenuRepository {
	return &menuRepository{coll: s.db.Collection(datasetCollections[domain.DatasetItems])}
}

func (s *Store) Counters() domain.CounterRepository {
	return &counterRepository{coll: s.db.Collection(collCounters)}
}

func (s *Store) Settings() domain.SettingsRepository {
	return &settingsRepository{coll: s.db.Collection(datasetCollections[domain.DatasetSettings])}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// mapErr translates driver errors into domain errors.
func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return domain.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", domain.ErrConflict, err)
	default:
		return err
	}
}
