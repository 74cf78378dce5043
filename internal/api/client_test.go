package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, handler http.HandlerFunc, tokens TokenSource) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(Config{BaseURL: srv.URL + "/", Tokens: tokens})
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return c
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error for empty BaseURL")
	}
}

func TestLoginDecodesTokenAndUser(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID header")
		}
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["email"] != "ada@example.com" || body["password"] != "pw" {
			t.Errorf("unexpected body %v", body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"token": "jwt-1",
			"user":  map[string]string{"id": "u1", "name": "Ada", "email": "ada@example.com", "role": "customer"},
		})
	}, nil)

	resp, err := c.Login(context.Background(), "ada@example.com", "pw")
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	if resp.Token != "jwt-1" || resp.User.ID != "u1" || resp.User.Role != "customer" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestErrorBodyBecomesMessage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid email or password"}`))
	}, nil)

	_, err := c.Login(context.Background(), "a@b.co", "bad")
	var apiErr *Error
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized {
		t.Fatalf("expected *Error with 401, got %v", err)
	}
	if got := Message(err, "Login failed"); got != "Invalid email or password" {
		t.Fatalf("expected server message, got %q", got)
	}
}

func TestMessageFallsBackWithoutBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("<html>oops</html>"))
	}, nil)

	err := c.Signup(context.Background(), "a@b.co", "pw", "A")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := Message(err, "Signup failed"); got != "Signup failed" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := Message(errors.New("dial tcp: refused"), "Network error"); got != "Network error" {
		t.Fatalf("expected fallback for transport errors, got %q", got)
	}
}

func TestAuthenticatedCallsSendBearer(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/orders":
			var req OrderRequest
			_ = json.NewDecoder(r.Body).Decode(&req)
			if req.UserID != "u1" || len(req.Items) != 1 || req.Items[0].Quantity != 3 {
				t.Errorf("unexpected order %+v", req)
			}
			w.WriteHeader(http.StatusCreated)
			_, _ = w.Write([]byte(`{"orderId":"o1","total":12.5,"message":"order created"}`))
		case "/user/subscriptions":
			_, _ = w.Write([]byte(`[{"id":"s1","planName":"Weekly Box","frequency":"weekly","price":25,"status":"active"}]`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}, staticToken("tok"))

	conf, err := c.CreateOrder(context.Background(), OrderRequest{
		UserID: "u1",
		Items:  []OrderItem{{ProductID: "p1", Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("CreateOrder returned error: %v", err)
	}
	if conf.OrderID != "o1" || conf.Total != 12.5 {
		t.Fatalf("unexpected confirmation %+v", conf)
	}

	subs, err := c.UserSubscriptions(context.Background())
	if err != nil {
		t.Fatalf("UserSubscriptions returned error: %v", err)
	}
	if len(subs) != 1 || subs[0].PlanName != "Weekly Box" {
		t.Fatalf("unexpected subscriptions %+v", subs)
	}
}

func TestMeUsesExplicitToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer restored" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"u9","name":"Bo","email":"bo@example.com","role":"admin"}`))
	}, staticToken("other"))

	user, err := c.Me(context.Background(), "restored")
	if err != nil {
		t.Fatalf("Me returned error: %v", err)
	}
	if user.ID != "u9" || user.Role != RoleAdmin {
		t.Fatalf("unexpected user %+v", user)
	}
}

func TestListReviewsSendsPagination(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/products/p1/reviews" || r.URL.Query().Get("page") != "2" || r.URL.Query().Get("limit") != "5" {
			t.Errorf("unexpected request %s", r.URL.String())
		}
		_, _ = w.Write([]byte(`{"data":[{"id":"r1","rating":4,"comment":"crisp"}],"pagination":{"page":2,"limit":5,"total":6}}`))
	}, nil)

	page, err := c.ListReviews(context.Background(), "p1", 2, 5)
	if err != nil {
		t.Fatalf("ListReviews returned error: %v", err)
	}
	if len(page.Data) != 1 || page.Pagination.Total != 6 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestProductUnitPrice(t *testing.T) {
	p := Product{Price: 10, SalePrice: 8, IsOnSale: true}
	if p.UnitPrice() != 8 {
		t.Fatalf("expected sale price, got %v", p.UnitPrice())
	}
	p.IsOnSale = false
	if p.UnitPrice() != 10 {
		t.Fatalf("expected regular price, got %v", p.UnitPrice())
	}
}

func TestListCategories(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/categories" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`["dairy","vegetables"]`))
	}, nil)

	got, err := c.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories returned error: %v", err)
	}
	if len(got) != 2 || got[0] != "dairy" {
		t.Fatalf("unexpected categories %v", got)
	}
}

func TestAdminDeleteReviewUsesAdminPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/admin/reviews/r7" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer admin-tok" {
			t.Errorf("expected admin bearer token")
		}
		_, _ = w.Write([]byte(`{"message":"review deleted"}`))
	}, staticToken("admin-tok"))

	if err := c.AdminDeleteReview(context.Background(), "r7"); err != nil {
		t.Fatalf("AdminDeleteReview returned error: %v", err)
	}
}
