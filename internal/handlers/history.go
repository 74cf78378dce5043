package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"urbanharvest/internal/models"
)

func GetUserOrders(db *mongo.Database) gin.HandlerFunc {
	return listUserDocuments[models.Order](db, "orders", "GET /user/orders")
}

func GetUserEvents(db *mongo.Database) gin.HandlerFunc {
	return listUserDocuments[models.EventRegistration](db, "event_registrations", "GET /user/events")
}

func GetUserWorkshops(db *mongo.Database) gin.HandlerFunc {
	return listUserDocuments[models.WorkshopRegistration](db, "workshop_registrations", "GET /user/workshops")
}

func GetUserSubscriptions(db *mongo.Database) gin.HandlerFunc {
	return listUserDocuments[models.Subscription](db, "subscriptions", "GET /user/subscriptions")
}

// listUserDocuments returns every document in collection owned by the caller, newest first.
func listUserDocuments[T any](db *mongo.Database, collection, route string) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer handlePanic(c, route)

		userID, ok := currentUserID(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		cursor, err := db.Collection(collection).Find(
			ctx,
			bson.M{"userId": userID},
			options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
		)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		docs := make([]T, 0)
		if err := cursor.All(ctx, &docs); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		log.Printf("[%s] returning %d records", route, len(docs))
		c.JSON(http.StatusOK, docs)
	}
}
