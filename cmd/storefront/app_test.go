package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"urbanharvest/internal/api"
	"urbanharvest/internal/checkout"
	"urbanharvest/internal/reviews"
	"urbanharvest/internal/storage"
)

type orderLog struct {
	mu     sync.Mutex
	orders []api.OrderRequest
}

func (l *orderLog) list() []api.OrderRequest {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]api.OrderRequest(nil), l.orders...)
}

func newBackend(t *testing.T) (*httptest.Server, *orderLog) {
	t.Helper()
	orders := &orderLog{}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"Invalid email or password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"token":"tok-1","user":{"id":"u1","name":"Ada","email":"ada@example.com","role":"customer"}}`))
	})
	mux.HandleFunc("/auth/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`{"id":"u1","name":"Ada","email":"ada@example.com","role":"customer"}`))
	})
	mux.HandleFunc("/products/p1", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"p1","name":"Carrots","price":3,"salePrice":2.5,"isOnSale":true,"category":"vegetables","inStock":true}`))
	})
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		var req api.OrderRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		orders.mu.Lock()
		orders.orders = append(orders.orders, req)
		orders.mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"orderId":"o1","total":5,"message":"Order placed"}`))
	})

	reviews := []api.Review{
		{ID: "r1", UserID: "u2", UserName: "Bo", Rating: 5, Comment: "Sweet"},
		{ID: "r2", UserID: "u3", UserName: "Cy", Rating: 4, Comment: "Crunchy"},
		{ID: "r3", UserID: "u1", UserName: "Ada", Rating: 2, Comment: "Small"},
	}
	mux.HandleFunc("/products/p1/reviews", func(w http.ResponseWriter, r *http.Request) {
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		start := (page - 1) * limit
		if start > len(reviews) {
			start = len(reviews)
		}
		end := start + limit
		if end > len(reviews) {
			end = len(reviews)
		}
		_ = json.NewEncoder(w).Encode(api.ReviewPage{
			Data:       reviews[start:end],
			Pagination: api.Pagination{Page: page, Limit: limit, Total: len(reviews)},
		})
	})
	mux.HandleFunc("/reviews/r3", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		var in api.ReviewInput
		_ = json.NewDecoder(r.Body).Decode(&in)
		_ = json.NewEncoder(w).Encode(api.Review{ID: "r3", UserID: "u1", Rating: in.Rating, Comment: in.Comment})
	})
	mux.HandleFunc("/user/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(`[{"id":"o7","items":[{"productId":"p1","name":"Carrots","price":2.5,"quantity":2}],"totalPrice":5,"status":"pending","createdAt":"2026-03-01T10:00:00Z"}]`))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, orders
}

// invoke runs one command the way a fresh process would: new app, same storage.
func invoke(t *testing.T, store storage.Storage, baseURL string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	a, err := newApp(&out, store, baseURL)
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	err = a.run(context.Background(), args)
	return out.String(), err
}

func TestGuestCartThenLoginSwitchesPartition(t *testing.T) {
	srv, _ := newBackend(t)
	store := storage.NewMemory()

	if _, err := invoke(t, store, srv.URL, "cart", "add", "-id", "p1", "-qty", "2"); err != nil {
		t.Fatalf("guest add: %v", err)
	}
	if raw, ok, _ := store.GetItem("cart_guest"); !ok || !strings.Contains(raw, `"quantity":2`) {
		t.Fatalf("expected guest partition saved, got %q", raw)
	}

	if _, err := invoke(t, store, srv.URL, "login", "-email", "ada@example.com", "-password", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	out, err := invoke(t, store, srv.URL, "cart")
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	if !strings.Contains(out, "Your cart is empty.") {
		t.Fatalf("expected empty user cart, got %q", out)
	}

	out, err = invoke(t, store, srv.URL, "whoami")
	if err != nil || !strings.Contains(out, "Ada <ada@example.com>") {
		t.Fatalf("whoami: %q %v", out, err)
	}
}

func TestCheckoutPlacesOrderAndClearsCart(t *testing.T) {
	srv, orders := newBackend(t)
	store := storage.NewMemory()

	if _, err := invoke(t, store, srv.URL, "login", "-email", "ada@example.com", "-password", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := invoke(t, store, srv.URL, "cart", "add", "-id", "p1", "-qty", "2"); err != nil {
		t.Fatalf("add: %v", err)
	}

	_, err := invoke(t, store, srv.URL, "checkout", "-name", "Ada", "-phone", "12345", "-address", "1 Farm Rd")
	if describe(err) != "Phone number must be exactly 10 digits" {
		t.Fatalf("expected phone error, got %v", err)
	}
	if len(orders.list()) != 0 {
		t.Fatalf("expected no order sent")
	}

	out, err := invoke(t, store, srv.URL, "checkout", "-name", "Ada", "-phone", "555-123-4567", "-address", "1 Farm Rd")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if !strings.Contains(out, "Order o1 placed") {
		t.Fatalf("unexpected output %q", out)
	}
	sent := orders.list()
	if len(sent) != 1 || sent[0].UserID != "u1" || sent[0].RecipientPhone != "5551234567" {
		t.Fatalf("unexpected order request: %+v", sent)
	}
	if raw, _, _ := store.GetItem("cart_u1"); raw != "[]" {
		t.Fatalf("expected user cart cleared, got %q", raw)
	}
}

func TestCheckoutAsGuestRequiresLogin(t *testing.T) {
	srv, _ := newBackend(t)

	_, err := invoke(t, storage.NewMemory(), srv.URL, "checkout", "-name", "Ada", "-phone", "5551234567", "-address", "1 Farm Rd")
	if !errors.Is(err, checkout.ErrLoginRequired) {
		t.Fatalf("expected ErrLoginRequired, got %v", err)
	}
}

func TestLoginFailureShowsServerMessage(t *testing.T) {
	srv, _ := newBackend(t)

	_, err := invoke(t, storage.NewMemory(), srv.URL, "login", "-email", "ada@example.com", "-password", "wrong")
	if describe(err) != "Invalid email or password" {
		t.Fatalf("unexpected message %q", describe(err))
	}
}

func TestStaleTokenIsDroppedOnStart(t *testing.T) {
	srv, _ := newBackend(t)
	store := storage.NewMemory()
	_ = store.SetItem("token", "expired")

	out, err := invoke(t, store, srv.URL, "whoami")
	if err != nil || !strings.Contains(out, "guest") {
		t.Fatalf("expected guest, got %q %v", out, err)
	}
	if _, ok, _ := store.GetItem("token"); ok {
		t.Fatalf("expected stale token removed")
	}
}

func TestUnknownCommand(t *testing.T) {
	srv, _ := newBackend(t)

	if _, err := invoke(t, storage.NewMemory(), srv.URL, "bake"); !errors.Is(err, errUsage) {
		t.Fatalf("expected usage error, got %v", err)
	}
}

func TestReviewsListPagesWithAll(t *testing.T) {
	srv, _ := newBackend(t)
	store := storage.NewMemory()

	out, err := invoke(t, store, srv.URL, "reviews", "list", "-product", "p1", "-limit", "2")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "2 of 3 reviews shown") || strings.Contains(out, "[r3]") {
		t.Fatalf("expected first page only, got %q", out)
	}

	out, err = invoke(t, store, srv.URL, "reviews", "list", "-product", "p1", "-limit", "2", "-all")
	if err != nil {
		t.Fatalf("list -all: %v", err)
	}
	if !strings.Contains(out, "[r3] 2/5 Ada: Small") || !strings.Contains(out, "3 of 3 reviews shown") {
		t.Fatalf("expected every page, got %q", out)
	}
}

func TestReviewsEditFindsReviewAcrossPages(t *testing.T) {
	srv, _ := newBackend(t)
	store := storage.NewMemory()

	if _, err := invoke(t, store, srv.URL, "login", "-email", "ada@example.com", "-password", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}

	out, err := invoke(t, store, srv.URL, "reviews", "edit", "-product", "p1", "-id", "r3", "-rating", "4", "-comment", "Better this week")
	if err != nil {
		t.Fatalf("edit: %v", err)
	}
	if !strings.Contains(out, "Review r3 updated.") {
		t.Fatalf("unexpected output %q", out)
	}

	_, err = invoke(t, store, srv.URL, "reviews", "edit", "-product", "p1", "-id", "r1", "-rating", "1", "-comment", "Nope")
	if !errors.Is(err, reviews.ErrNotAllowed) {
		t.Fatalf("expected ErrNotAllowed for another user's review, got %v", err)
	}

	_, err = invoke(t, store, srv.URL, "reviews", "delete", "-product", "p1", "-id", "missing")
	if err == nil || !strings.Contains(err.Error(), "review missing not found") {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestHistoryOrders(t *testing.T) {
	srv, _ := newBackend(t)
	store := storage.NewMemory()

	if _, err := invoke(t, store, srv.URL, "history", "orders"); !errors.Is(err, checkout.ErrLoginRequired) {
		t.Fatalf("expected login required for guest, got %v", err)
	}

	if _, err := invoke(t, store, srv.URL, "login", "-email", "ada@example.com", "-password", "secret"); err != nil {
		t.Fatalf("login: %v", err)
	}
	out, err := invoke(t, store, srv.URL, "history", "orders")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if !strings.Contains(out, "o7") || !strings.Contains(out, "2026-03-01") || !strings.Contains(out, "5.00") {
		t.Fatalf("unexpected history output %q", out)
	}

	if _, err := invoke(t, store, srv.URL, "history", "coupons"); err == nil {
		t.Fatalf("expected error for unknown history kind")
	}
}
