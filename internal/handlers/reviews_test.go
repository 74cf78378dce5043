package handlers

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"urbanharvest/internal/middleware"
	"urbanharvest/internal/models"
)

func TestCanModifyReview(t *testing.T) {
	owner := primitive.NewObjectID()
	review := models.Review{UserID: owner}

	if !canModifyReview(middleware.Identity{UserID: owner, Role: models.RoleCustomer}, review) {
		t.Fatal("owner should be able to modify")
	}
	if canModifyReview(middleware.Identity{UserID: primitive.NewObjectID(), Role: models.RoleCustomer}, review) {
		t.Fatal("other customer should not be able to modify")
	}
	if !canModifyReview(middleware.Identity{UserID: primitive.NewObjectID(), Role: models.RoleAdmin}, review) {
		t.Fatal("admin should be able to modify")
	}
}

func TestCreateReviewRejectsLongComment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	comment := strings.Repeat("tasty ", 101)
	body := `{"rating":5,"comment":"` + comment + `"}`
	c.Request = httptest.NewRequest(http.MethodPost, "/products/x/reviews", bytes.NewBufferString(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = gin.Params{{Key: "id", Value: primitive.NewObjectID().Hex()}}
	c.Set("identity", middleware.Identity{UserID: primitive.NewObjectID(), Role: models.RoleCustomer})

	CreateReview(nil)(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "100 words") {
		t.Fatalf("expected word limit message, got %s", w.Body.String())
	}
}

func TestListReviewsRejectsInvalidProductID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/products/bad/reviews", nil)
	c.Params = gin.Params{{Key: "id", Value: "bad"}}

	ListReviews(nil)(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}
