package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("users").Indexes()

	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}

	// username is optional; the partial filter keeps the unique constraint
	// from colliding on documents without one.
	usernameIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "username", Value: 1}},
		Options: options.Index().
			SetName("username_unique").
			SetUnique(true).
			SetPartialFilterExpression(bson.M{
				"username": bson.M{
					"$exists": true,
				},
			}),
	}

	log.Println("EnsureUserIndexes: creating email_unique and username_unique indexes")
	_, err := indexes.CreateMany(ctx, []mongo.IndexModel{emailIndex, usernameIndex})
	if err != nil {
		log.Println("EnsureUserIndexes: index error:", err)
		return err
	}
	log.Println("EnsureUserIndexes: indexes created")
	return nil
}

func EnsureActivityIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("activities").Indexes()

	listingIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "category", Value: 1},
			{Key: "createdAt", Value: -1},
		},
		Options: options.Index().SetName("category_createdAt_index"),
	}

	creatorIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "createdBy", Value: 1}},
		Options: options.Index().SetName("createdBy_index"),
	}

	log.Println("EnsureActivityIndexes: creating listing and creator indexes")
	_, err := indexes.CreateMany(ctx, []mongo.IndexModel{listingIndex, creatorIndex})
	if err != nil {
		log.Println("EnsureActivityIndexes: index error:", err)
		return err
	}
	log.Println("EnsureActivityIndexes: indexes created")
	return nil
}
