package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/V4T54L/tabletop/internal/domain"
)

type directoryRepository struct {
	coll *mongo.Collection
}

func (r *directoryRepository) FindByPhoneAndCompany(ctx context.Context, phone, companyID string) (*domain.DirectoryEntry, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "updatedAt", Value: -1}})
	var e domain.DirectoryEntry
	err := r.coll.FindOne(ctx, bson.M{"userPhone": phone, "companyId": companyID}, opts).Decode(&e)
	if err != nil {
		return nil, fmt.Errorf("find directory entry: %w", mapErr(err))
	}
	return &e, nil
}

func (r *directoryRepository) Upsert(ctx context.Context, e *domain.DirectoryEntry) error {
	filter := bson.M{"userPhone": e.UserPhone, "apiKey": e.APIKey}
	update := bson.M{
		"$set": bson.M{
			"companyId":    e.CompanyID,
			"userName":     e.UserName,
			"userEmail":    e.UserEmail,
			"userRole":     e.UserRole,
			"profileImage": e.ProfileImage,
			"updatedAt":    e.UpdatedAt,
		},
		"$setOnInsert": bson.M{"createdAt": e.CreatedAt},
	}
	if _, err := r.coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("upsert directory entry: %w", mapErr(err))
	}
	return nil
}

func (r *directoryRepository) Delete(ctx context.Context, phone, apiKey string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"userPhone": phone, "apiKey": apiKey})
	if err != nil {
		return fmt.Errorf("delete directory entry: %w", mapErr(err))
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
