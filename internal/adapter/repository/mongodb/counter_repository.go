package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type counterRepository struct {
	coll *mongo.Collection
}

type counterDoc struct {
	Value int64 `bson:"value"`
}

func (r *counterRepository) Increment(ctx context.Context, apiKey, name string) (int64, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc counterDoc
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"apiKey": apiKey, "name": name},
		bson.M{"$inc": bson.M{"value": int64(1)}},
		opts,
	).Decode(&doc)
	if err != nil {
		return 0, fmt.Errorf("increment counter %s: %w", name, mapErr(err))
	}
	return doc.Value, nil
}

func (r *counterRepository) Raise(ctx context.Context, apiKey, name string, floor int64) error {
	filter := bson.M{"apiKey": apiKey, "name": name}
	update := bson.M{"$max": bson.M{"value": floor}}
	opts := options.Update().SetUpsert(true)

	_, err := r.coll.UpdateOne(ctx, filter, update, opts)
	if mongo.IsDuplicateKeyError(err) {
		// Two concurrent upserts raced; the document exists now.
		_, err = r.coll.UpdateOne(ctx, filter, update, opts)
	}
	if err != nil {
		return fmt.Errorf("raise counter %s: %w", name, mapErr(err))
	}
	return nil
}
