package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/V4T54L/tabletop/internal/domain"
)

type menuRepository struct {
	coll *mongo.Collection
}

func (r *menuRepository) Create(ctx context.Context, item *domain.MenuItem) error {
	if _, err := r.coll.InsertOne(ctx, item); err != nil {
		return fmt.Errorf("insert menu item: %w", mapErr(err))
	}
	return nil
}

func (r *menuRepository) FindByID(ctx context.Context, apiKey, id string) (*domain.MenuItem, error) {
	var item domain.MenuItem
	if err := r.coll.FindOne(ctx, bson.M{"apiKey": apiKey, "_id": id}).Decode(&item); err != nil {
		return nil, fmt.Errorf("find menu item: %w", mapErr(err))
	}
	return &item, nil
}

func (r *menuRepository) List(ctx context.Context, apiKey, category string) ([]*domain.MenuItem, error) {
	filter := bson.M{"apiKey": apiKey}
	if category != "" {
		filter["category"] = category
	}
	cur, err := r.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list menu items: %w", mapErr(err))
	}

	items := []*domain.MenuItem{}
	if err := cur.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode menu items: %w", err)
	}
	return items, nil
}

func (r *menuRepository) ExistsByName(ctx context.Context, apiKey, name, excludeID string) (bool, error) {
	return r.exists(ctx, bson.M{"apiKey": apiKey, "itemName": name}, excludeID)
}

func (r *menuRepository) ExistsByCode(ctx context.Context, apiKey, code, excludeID string) (bool, error) {
	return r.exists(ctx, bson.M{"apiKey": apiKey, "itemCode": code}, excludeID)
}

func (r *menuRepository) exists(ctx context.Context, filter bson.M, excludeID string) (bool, error) {
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": excludeID}
	}
	n, err := r.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("check menu item: %w", mapErr(err))
	}
	return n > 0, nil
}

func (r *menuRepository) ListCodes(ctx context.Context, apiKey string) ([]string, error) {
	opts := options.Find().SetProjection(bson.M{"itemCode": 1, "_id": 0})
	cur, err := r.coll.Find(ctx, bson.M{"apiKey": apiKey}, opts)
	if err != nil {
		return nil, fmt.Errorf("list item codes: %w", mapErr(err))
	}

	var docs []struct {
		ItemCode string `bson:"itemCode"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode item codes: %w", err)
	}
	codes := make([]string, 0, len(docs))
	for _, d := range docs {
		codes = append(codes, d.ItemCode)
	}
	return codes, nil
}

func (r *menuRepository) Update(ctx context.Context, item *domain.MenuItem) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"apiKey": item.APIKey, "_id": item.ID}, item)
	if err != nil {
		return fmt.Errorf("update menu item: %w", mapErr(err))
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *menuRepository) Delete(ctx context.Context, apiKey, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"apiKey": apiKey, "_id": id})
	if err != nil {
		return fmt.Errorf("delete menu item: %w", mapErr(err))
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
