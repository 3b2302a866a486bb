package password

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopd/shopd/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type MongoUserStore struct {
	collection *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{collection: db.Collection("users")}
}

func (m *MongoUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := m.collection.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &user, nil
}

func (m *MongoUserStore) FindByResetDigest(ctx context.Context, digest string, now time.Time) (*User, error) {
	filter := bson.M{
		"reset_token_digest": digest,
		"reset_token_expiry": bson.M{"$gt": now},
	}

	var user User
	err := m.collection.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrInvalidResetToken
	}
	if err != nil {
		return nil, fmt.Errorf("find user by reset token: %w", err)
	}
	return &user, nil
}

func (m *MongoUserStore) SetResetToken(ctx context.Context, userID, digest string, expiry time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"reset_token_digest": digest,
			"reset_token_expiry": expiry,
		},
	}
	result, err := m.collection.UpdateByID(ctx, userID, update)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (m *MongoUserStore) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	update := bson.M{
		"$set":   bson.M{"password_hash": passwordHash},
		"$unset": bson.M{"reset_token_digest": "", "reset_token_expiry": ""},
	}
	result, err := m.collection.UpdateByID(ctx, userID, update)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if result.MatchedCount == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
