// Package repository provides the mongo-backed persistence layer behind the
// auth core's store interface.
package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"backend/internal/auth"
	"backend/internal/models"
)

type MongoUserStore struct {
	db *mongo.Database
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{db: db}
}

func (s *MongoUserStore) users() *mongo.Collection {
	return s.db.Collection("users")
}

// Projections: default reads never carry the secret fields; the WithSecret
// and WithFingerprint reads each include exactly one of them.
var (
	publicProjection      = bson.M{"passwordHash": 0, "refreshFingerprint": 0}
	secretProjection      = bson.M{"refreshFingerprint": 0}
	fingerprintProjection = bson.M{"passwordHash": 0}
)

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M, projection bson.M) (*models.User, error) {
	var user models.User
	err := s.users().FindOne(ctx, filter, options.FindOne().SetProjection(projection)).Decode(&user)
	if err == mongo.ErrNoDocuments {
		return nil, auth.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email}, publicProjection)
}

func (s *MongoUserStore) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"username": username}, publicProjection)
}

func (s *MongoUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, auth.ErrUserNotFound
	}
	return s.findOne(ctx, bson.M{"_id": objectID}, publicProjection)
}

func (s *MongoUserStore) FindByEmailWithSecret(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email}, secretProjection)
}

func (s *MongoUserStore) FindByIDWithFingerprint(ctx context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, auth.ErrUserNotFound
	}
	return s.findOne(ctx, bson.M{"_id": objectID}, fingerprintProjection)
}

func (s *MongoUserStore) Create(ctx context.Context, user *models.User) (*models.User, error) {
	res, err := s.users().InsertOne(ctx, user)
	if err != nil {
		// Unique index backstop for the register-then-insert race.
		if mongo.IsDuplicateKeyError(err) {
			return nil, auth.ErrEmailTaken
		}
		return nil, err
	}

	if id, ok := res.InsertedID.(primitive.ObjectID); ok {
		user.ID = id
	}
	return user, nil
}

func (s *MongoUserStore) Update(ctx context.Context, id string, update auth.UserUpdate) error {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return auth.ErrUserNotFound
	}

	set := bson.M{"updatedAt": time.Now()}
	unset := bson.M{}

	if update.Username != nil {
		if *update.Username == "" {
			unset["username"] = ""
		} else {
			set["username"] = *update.Username
		}
	}
	if update.RefreshFingerprint != nil {
		if *update.RefreshFingerprint == "" {
			unset["refreshFingerprint"] = ""
		} else {
			set["refreshFingerprint"] = *update.RefreshFingerprint
		}
	}

	updateDoc := bson.M{"$set": set}
	if len(unset) > 0 {
		updateDoc["$unset"] = unset
	}

	_, err = s.users().UpdateByID(ctx, objectID, updateDoc)
	return err
}

func (s *MongoUserStore) Count(ctx context.Context) (int64, error) {
	return s.users().CountDocuments(ctx, bson.M{})
}
