package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/V4T54L/tabletop/internal/domain"
)

type settingsRepository struct {
	coll *mongo.Collection
}

func (r *settingsRepository) Find(ctx context.Context, apiKey, typ string) (*domain.Settings, error) {
	var doc domain.Settings
	if err := r.coll.FindOne(ctx, bson.M{"apiKey": apiKey, "type": typ}).Decode(&doc); err != nil {
		return nil, fmt.Errorf("find settings: %w", mapErr(err))
	}
	return &doc, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, s *domain.Settings) error {
	_, err := r.coll.ReplaceOne(ctx,
		bson.M{"apiKey": s.APIKey, "type": s.Type},
		s,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", mapErr(err))
	}
	return nil
}
