package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"urbanharvest/internal/middleware"
	"urbanharvest/internal/models"
	"urbanharvest/internal/validation"
)

type reviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (r reviewRequest) validate() (validation.Review, validation.FieldErrors) {
	review := validation.Review{Rating: r.Rating, Comment: strings.TrimSpace(r.Comment)}
	return review, validation.ValidateReview(review)
}

/*
GET /products/:id/reviews
- newest first
- response: data + pagination
*/
func ListReviews(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "GET /products/:id/reviews"
		defer handlePanic(c, route)

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid product id")
			return
		}

		page, limit, err := parsePaginationParams(c.Query("page"), c.Query("limit"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, err.Error())
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		filter := bson.M{"productId": productID}

		total, err := db.Collection("reviews").CountDocuments(ctx, filter)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		findOptions := options.Find().
			SetSkip((page - 1) * limit).
			SetLimit(limit).
			SetSort(bson.D{{Key: "createdAt", Value: -1}})

		cursor, err := db.Collection("reviews").Find(ctx, filter, findOptions)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		defer cursor.Close(ctx)

		reviews := make([]models.Review, 0)
		if err := cursor.All(ctx, &reviews); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "decode error")
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"data": reviews,
			"pagination": gin.H{
				"page":  page,
				"limit": limit,
				"total": total,
			},
		})
	}
}

func CreateReview(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "POST /products/:id/reviews"
		defer handlePanic(c, route)

		identity, ok := middleware.CurrentIdentity(c)
		if !ok {
			respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
			return
		}

		productID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid product id")
			return
		}

		var req reviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		input, fieldErrs := req.validate()
		if fieldErrs != nil {
			respondWithFieldErrors(c, route, fieldErrs)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		count, err := db.Collection("products").CountDocuments(ctx, visibleProductFilter(bson.M{"_id": productID}))
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if count == 0 {
			respondWithError(c, http.StatusNotFound, route, "product not found")
			return
		}

		now := time.Now()
		review := models.Review{
			ProductID: productID,
			UserID:    identity.UserID,
			UserName:  identity.Name,
			Rating:    input.Rating,
			Comment:   input.Comment,
			CreatedAt: now,
			UpdatedAt: now,
		}

		res, err := db.Collection("reviews").InsertOne(ctx, review)
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if id, ok := res.InsertedID.(primitive.ObjectID); ok {
			review.ID = id
		}

		log.Println("[REVIEW] [INFO] review created for product:", productID.Hex())
		c.JSON(http.StatusCreated, review)
	}
}

func UpdateReview(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "PUT /reviews/:id"
		defer handlePanic(c, route)

		var req reviewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid request body")
			return
		}
		input, fieldErrs := req.validate()
		if fieldErrs != nil {
			respondWithFieldErrors(c, route, fieldErrs)
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		review, ok := loadOwnedReview(ctx, c, db, route)
		if !ok {
			return
		}

		review.Rating = input.Rating
		review.Comment = input.Comment
		review.UpdatedAt = time.Now()

		_, err := db.Collection("reviews").UpdateByID(ctx, review.ID, bson.M{"$set": bson.M{
			"rating":    review.Rating,
			"comment":   review.Comment,
			"updatedAt": review.UpdatedAt,
		}})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		c.JSON(http.StatusOK, review)
	}
}

func DeleteReview(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /reviews/:id"
		defer handlePanic(c, route)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		review, ok := loadOwnedReview(ctx, c, db, route)
		if !ok {
			return
		}

		if _, err := db.Collection("reviews").DeleteOne(ctx, bson.M{"_id": review.ID}); err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}

		log.Println("[REVIEW] [INFO] review deleted:", review.ID.Hex())
		c.JSON(http.StatusOK, gin.H{"message": "review deleted"})
	}
}

// loadOwnedReview fetches the review in the path and checks the caller may change it.
func loadOwnedReview(ctx context.Context, c *gin.Context, db *mongo.Database, route string) (models.Review, bool) {
	identity, ok := middleware.CurrentIdentity(c)
	if !ok {
		respondWithError(c, http.StatusUnauthorized, route, "unauthorized")
		return models.Review{}, false
	}

	reviewID, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		respondWithError(c, http.StatusBadRequest, route, "invalid id")
		return models.Review{}, false
	}

	var review models.Review
	err = db.Collection("reviews").FindOne(ctx, bson.M{"_id": reviewID}).Decode(&review)
	if err == mongo.ErrNoDocuments {
		respondWithError(c, http.StatusNotFound, route, "review not found")
		return models.Review{}, false
	}
	if err != nil {
		respondWithError(c, http.StatusInternalServerError, route, "db error")
		return models.Review{}, false
	}

	if !canModifyReview(identity, review) {
		respondWithError(c, http.StatusForbidden, route, "you can only modify your own reviews")
		return models.Review{}, false
	}

	return review, true
}

func canModifyReview(identity middleware.Identity, review models.Review) bool {
	return identity.Role == models.RoleAdmin || identity.UserID == review.UserID
}

// AdminDeleteReview removes any review. AdminAuth guards the route, so no
// ownership check is made here.
func AdminDeleteReview(db *mongo.Database) gin.HandlerFunc {
	return func(c *gin.Context) {
		const route = "DELETE /admin/reviews/:id"
		defer handlePanic(c, route)

		reviewID, err := primitive.ObjectIDFromHex(c.Param("id"))
		if err != nil {
			respondWithError(c, http.StatusBadRequest, route, "invalid id")
			return
		}

		if err := ensureDBConnection(c.Request.Context(), db); err != nil {
			respondWithError(c, http.StatusServiceUnavailable, route, "database unavailable")
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
		defer cancel()

		res, err := db.Collection("reviews").DeleteOne(ctx, bson.M{"_id": reviewID})
		if err != nil {
			respondWithError(c, http.StatusInternalServerError, route, "db error")
			return
		}
		if res.DeletedCount == 0 {
			respondWithError(c, http.StatusNotFound, route, "review not found")
			return
		}

		identity, _ := middleware.CurrentIdentity(c)
		log.Printf("[REVIEW] [INFO] review %s removed by admin %s", reviewID.Hex(), identity.UserID.Hex())
		c.JSON(http.StatusOK, gin.H{"message": "review deleted"})
	}
}
