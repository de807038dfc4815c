package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/V4T54L/tabletop/internal/domain"
)

type tenantRepository struct {
	coll *mongo.Collection
}

func (r *tenantRepository) Create(ctx context.Context, t *domain.Tenant) error {
	doc := *t
	if doc.Status == "" {
		doc.Status = domain.TenantActive
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert tenant: %w", mapErr(err))
	}
	return nil
}

func (r *tenantRepository) FindByAPIKey(ctx context.Context, apiKey string) (*domain.Tenant, error) {
	var t domain.Tenant
	if err := r.coll.FindOne(ctx, bson.M{"apiKey": apiKey}).Decode(&t); err != nil {
		return nil, fmt.Errorf("find tenant: %w", mapErr(err))
	}
	return &t, nil
}

func (r *tenantRepository) UpdateStatus(ctx context.Context, apiKey string, status domain.TenantStatus) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"apiKey": apiKey}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return fmt.Errorf("update tenant status: %w", mapErr(err))
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
