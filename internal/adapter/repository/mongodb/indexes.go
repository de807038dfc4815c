package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/V4T54L/tabletop/internal/domain"
)

// namespaceExists is the server error code for creating an existing collection.
const namespaceExists = 48

var sharedIndexes = map[string][]mongo.IndexModel{
	collTenants: {
		{Keys: bson.D{{Key: "apiKey", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	collDirectory: {
		{Keys: bson.D{{Key: "userPhone", Value: 1}, {Key: "apiKey", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "userPhone", Value: 1}, {Key: "companyId", Value: 1}}},
	},
	collCounters: {
		{Keys: bson.D{{Key: "apiKey", Value: 1}, {Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
}

var datasetIndexes = map[string][]mongo.IndexModel{
	domain.DatasetUsers: {
		{
			Keys: bson.D{{Key: "apiKey", Value: 1}, {Key: "userPhone", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.D{{Key: "isDeleted", Value: false}}),
		},
		{Keys: bson.D{{Key: "apiKey", Value: 1}, {Key: "createdDate", Value: -1}}},
	},
	domain.DatasetItems: {
		{Keys: bson.D{{Key: "apiKey", Value: 1}, {Key: "itemName", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "apiKey", Value: 1}, {Key: "itemCode", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "apiKey", Value: 1}, {Key: "createdAt", Value: -1}}},
	},
	domain.DatasetOrders: {
		{Keys: bson.D{{Key: "apiKey", Value: 1}}},
	},
	domain.DatasetSettings: {
		{Keys: bson.D{{Key: "apiKey", Value: 1}, {Key: "type", Value: 1}}, Options: options.Index().SetUnique(true)},
	},
	domain.DatasetInventory: {
		{Keys: bson.D{{Key: "apiKey", Value: 1}}},
	},
}

// Migrate creates every collection and index.
func (s *Store) Migrate(ctx context.Context) error {
	for name, models := range sharedIndexes {
		if err := s.ensureCollection(ctx, name, models); err != nil {
			return err
		}
	}
	for _, dataset := range domain.TenantDatasets {
		if err := s.ensureCollection(ctx, datasetCollections[dataset], datasetIndexes[dataset]); err != nil {
			return err
		}
	}
	s.logger.Info("collections and indexes migrated")
	return nil
}

// EnsureDataset makes sure the shared collection backing dataset and its
// tenant scoped indexes exist.
func (s *Store) EnsureDataset(ctx context.Context, apiKey, dataset string) error {
	name, ok := datasetCollections[dataset]
	if !ok {
		return fmt.Errorf("unknown dataset %q", dataset)
	}
	if err := s.ensureCollection(ctx, name, datasetIndexes[dataset]); err != nil {
		return fmt.Errorf("ensure dataset %s: %w", domain.DatasetName(apiKey, dataset), err)
	}
	return nil
}

func (s *Store) ensureCollection(ctx context.Context, name string, models []mongo.IndexModel) error {
	err := s.db.CreateCollection(ctx, name)
	var cmdErr mongo.CommandError
	if err != nil && !(errors.As(err, &cmdErr) && cmdErr.Code == namespaceExists) {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	if len(models) == 0 {
		return nil
	}
	if _, err := s.db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("create indexes on %s: %w", name, err)
	}
	return nil
}
