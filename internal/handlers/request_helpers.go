package handlers

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"urbanharvest/internal/middleware"
	"urbanharvest/internal/validation"
)

var errNoDatabase = errors.New("database not configured")

// requestID returns the id set by middleware.RequestID, or "-" outside it.
func requestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return "-"
}

func errorBody(c *gin.Context, message string) gin.H {
	body := gin.H{"error": message}
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		body["requestId"] = id
	}
	return body
}

func handlePanic(c *gin.Context, route string) {
	if r := recover(); r != nil {
		log.Printf("[HTTP] [ERROR] [%s] panic recovered request_id=%s: %v", route, requestID(c), r)
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorBody(c, "internal server error"))
	}
}

func ensureDBConnection(ctx context.Context, db *mongo.Database) error {
	if db == nil {
		return errNoDatabase
	}

	checkCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := db.Client().Ping(checkCtx, readpref.Primary()); err != nil {
		log.Println("[DB] [ERROR] ping failed:", err)
		return err
	}
	return nil
}

// respondWithError aborts with {"error": message, "requestId": ...}. Client
// errors log at WARN, server errors at ERROR.
func respondWithError(c *gin.Context, status int, route string, message string) {
	log.Printf("[HTTP] [%s] [%s] %d %s request_id=%s", levelFor(status), route, status, message, requestID(c))
	c.AbortWithStatusJSON(status, errorBody(c, message))
}

// respondWithFieldErrors aborts with 400 and the per-field messages under "fields".
func respondWithFieldErrors(c *gin.Context, route string, errs validation.FieldErrors) {
	log.Printf("[HTTP] [WARN] [%s] %d %s request_id=%s", route, http.StatusBadRequest, errs.Error(), requestID(c))
	body := errorBody(c, errs.Error())
	body["fields"] = errs
	c.AbortWithStatusJSON(http.StatusBadRequest, body)
}

func levelFor(status int) string {
	if status >= http.StatusInternalServerError {
		return "ERROR"
	}
	return "WARN"
}
