package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collections holding per-user history records read by /user/* endpoints.
var historyCollections = []string{"orders", "event_registrations", "workshop_registrations", "subscriptions"}

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

	log.Println("EnsureUserIndexes: creating email_unique index")
	_, err := indexes.CreateOne(ctx, emailIndex)
	if err != nil {
		log.Println("EnsureUserIndexes: email index error:", err)
		return err
	}
	log.Println("EnsureUserIndexes: email_unique index created")
	return nil
}

func EnsureHistoryIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, name := range historyCollections {
		userIDIndex := mongo.IndexModel{
			Keys: bson.D{
				{Key: "userId", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("userId_createdAt_index"),
		}

		log.Printf("EnsureHistoryIndexes: creating userId_createdAt_index on %s", name)
		if _, err := db.Collection(name).Indexes().CreateOne(ctx, userIDIndex); err != nil {
			log.Printf("EnsureHistoryIndexes: %s index error: %v", name, err)
			return err
		}
	}
	log.Println("EnsureHistoryIndexes: history indexes created")
	return nil
}

func EnsureReviewIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection("reviews").Indexes()

	productIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "productId", Value: 1},
			{Key: "createdAt", Value: -1},
		},
		Options: options.Index().SetName("productId_createdAt_index"),
	}

	log.Println("EnsureReviewIndexes: creating productId_createdAt_index index")
	_, err := indexes.CreateOne(ctx, productIndex)
	if err != nil {
		log.Println("EnsureReviewIndexes: productId index error:", err)
		return err
	}
	log.Println("EnsureReviewIndexes: productId_createdAt_index index created")
	return nil
}
