package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/V4T54L/tabletop/internal/domain"
)

type userRepository struct {
	coll *mongo.Collection
}

func (r *userRepository) Create(ctx context.Context, u *domain.User) error {
	if _, err := r.coll.InsertOne(ctx, u); err != nil {
		return fmt.Errorf("insert user: %w", mapErr(err))
	}
	return nil
}

func (r *userRepository) FindByID(ctx context.Context, apiKey, id string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"apiKey": apiKey, "_id": id})
}

func (r *userRepository) FindActiveByPhone(ctx context.Context, apiKey, phone string) (*domain.User, error) {
	return r.findOne(ctx, bson.M{"apiKey": apiKey, "userPhone": phone, "isDeleted": false})
}

func (r *userRepository) findOne(ctx context.Context, filter bson.M) (*domain.User, error) {
	var u domain.User
	if err := r.coll.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, fmt.Errorf("find user: %w", mapErr(err))
	}
	return &u, nil
}

func userFilter(apiKey string, f domain.UserFilter) bson.M {
	filter := bson.M{"apiKey": apiKey}
	if f.Role != "" {
		filter["userRole"] = f.Role
	}
	switch f.Status {
	case domain.UserStatusActive:
		filter["isDeleted"] = false
	case domain.UserStatusDeleted:
		filter["isDeleted"] = true
	}
	return filter
}

func (r *userRepository) List(ctx context.Context, apiKey string, f domain.UserFilter) ([]*domain.User, int64, error) {
	filter := userFilter(apiKey, f)

	total, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count users: %w", mapErr(err))
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdDate", Value: -1}})
	if f.Skip > 0 {
		opts.SetSkip(f.Skip)
	}
	if f.Limit > 0 {
		opts.SetLimit(f.Limit)
	}
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", mapErr(err))
	}

	users := []*domain.User{}
	if err := cur.All(ctx, &users); err != nil {
		return nil, 0, fmt.Errorf("decode users: %w", err)
	}
	return users, total, nil
}

func (r *userRepository) Update(ctx context.Context, u *domain.User) error {
	res, err := r.coll.ReplaceOne(ctx, bson.M{"apiKey": u.APIKey, "_id": u.ID}, u)
	if err != nil {
		return fmt.Errorf("update user: %w", mapErr(err))
	}
	if res.MatchedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *userRepository) Delete(ctx context.Context, apiKey, id string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"apiKey": apiKey, "_id": id})
	if err != nil {
		return fmt.Errorf("delete user: %w", mapErr(err))
	}
	if res.DeletedCount == 0 {
		return domain.ErrNotFound
	}
	return nil
}
