package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"urbanharvest/internal/middleware"
	"urbanharvest/internal/validation"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })
	return &buf
}

func TestRespondWithErrorCarriesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := captureLog(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.RequestIDKey, "req-123")

	respondWithError(c, http.StatusNotFound, "GET /products/:id", "product not found")

	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
	var body map[string]string
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if body["error"] != "product not found" || body["requestId"] != "req-123" {
		t.Fatalf("unexpected body %v", body)
	}
	line := logs.String()
	if !strings.Contains(line, "[HTTP] [WARN] [GET /products/:id] 404") || !strings.Contains(line, "request_id=req-123") {
		t.Fatalf("unexpected log line %q", line)
	}
}

func TestRespondWithErrorLogsServerErrorsAtErrorLevel(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := captureLog(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	respondWithError(c, http.StatusServiceUnavailable, "POST /orders", "database unavailable")

	if !strings.Contains(logs.String(), "[HTTP] [ERROR] [POST /orders]") || !strings.Contains(logs.String(), "request_id=-") {
		t.Fatalf("unexpected log line %q", logs.String())
	}
	if strings.Contains(w.Body.String(), "requestId") {
		t.Fatalf("expected no requestId outside the middleware, got %s", w.Body.String())
	}
}

func TestRespondWithFieldErrors(t *testing.T) {
	gin.SetMode(gin.TestMode)
	captureLog(t)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Set(middleware.RequestIDKey, "req-9")

	respondWithFieldErrors(c, "POST /orders", validation.FieldErrors{"recipientPhone": "Phone number is required"})

	var body struct {
		Error     string            `json:"error"`
		RequestID string            `json:"requestId"`
		Fields    map[string]string `json:"fields"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	if w.Code != http.StatusBadRequest || body.Fields["recipientPhone"] != "Phone number is required" || body.RequestID != "req-9" {
		t.Fatalf("unexpected response %d %s", w.Code, w.Body.String())
	}
}

func TestHandlePanicReturnsJSONWithRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := captureLog(t)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.GET("/boom", func(c *gin.Context) {
		defer handlePanic(c, "GET /boom")
		panic("kaboom")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	id := w.Header().Get(middleware.RequestIDHeader)
	if id == "" || !strings.Contains(w.Body.String(), id) {
		t.Fatalf("expected request id %q in body %s", id, w.Body.String())
	}
	if !strings.Contains(logs.String(), "[HTTP] [ERROR] [GET /boom] panic recovered") {
		t.Fatalf("unexpected log %q", logs.String())
	}
}

func TestEnsureDBConnectionWithoutDatabase(t *testing.T) {
	if err := ensureDBConnection(context.Background(), nil); err != errNoDatabase {
		t.Fatalf("expected errNoDatabase, got %v", err)
	}
}
