// Package api is the storefront's client for the Urban Harvest REST backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// TokenSource hands out the current bearer token ("" when logged out).
type TokenSource interface {
	Token() string
}

// Error is a non-OK response from the backend.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
}

// Message returns the server-provided message in err, or fallback.
func Message(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && strings.TrimSpace(apiErr.Message) != "" {
		return apiErr.Message
	}
	return fallback
}

// Client talks to the backend. It sets no timeout of its own; callers cancel
// through the context.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
}

type Config struct {
	BaseURL    string
	HTTPClient *http.Client
	Tokens     TokenSource
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		httpClient: httpClient,
		tokens:     cfg.Tokens,
	}, nil
}

func (c *Client) token() string {
	if c.tokens == nil {
		return ""
	}
	return c.tokens.Token()
}

// =============================================================================
// Auth
// =============================================================================

func (c *Client) Login(ctx context.Context, email, password string) (LoginResponse, error) {
	var out LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", "", body, &out); err != nil {
		return LoginResponse{}, err
	}
	if out.Token == "" {
		return LoginResponse{}, &Error{Status: http.StatusOK, Message: "login response did not include a token"}
	}
	return out, nil
}

func (c *Client) Signup(ctx context.Context, email, password, name string) error {
	body := map[string]string{"email": email, "password": password, "name": name}
	return c.do(ctx, http.MethodPost, "/auth/signup", "", body, nil)
}

// Me resolves token to the current user.
func (c *Client) Me(ctx context.Context, token string) (User, error) {
	var out User
	if err := c.do(ctx, http.MethodGet, "/auth/me", token, nil, &out); err != nil {
		return User{}, err
	}
	return out, nil
}

// =============================================================================
// Catalogue and orders
// =============================================================================

func (c *Client) ListProducts(ctx context.Context, category, search string) ([]Product, error) {
	q := url.Values{}
	if category != "" {
		q.Set("category", category)
	}
	if search != "" {
		q.Set("search", search)
	}
	path := "/products"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out []Product
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListCategories returns the categories that have products on sale.
func (c *Client) ListCategories(ctx context.Context) ([]string, error) {
	var out []string
	if err := c.do(ctx, http.MethodGet, "/categories", "", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (Product, error) {
	var out Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(id), "", nil, &out); err != nil {
		return Product{}, err
	}
	return out, nil
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (OrderConfirmation, error) {
	var out OrderConfirmation
	if err := c.do(ctx, http.MethodPost, "/orders", c.token(), req, &out); err != nil {
		return OrderConfirmation{}, err
	}
	return out, nil
}

// =============================================================================
// Reviews
// =============================================================================

func (c *Client) ListReviews(ctx context.Context, productID string, page, limit int) (ReviewPage, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))

	var out ReviewPage
	path := "/products/" + url.PathEscape(productID) + "/reviews?" + q.Encode()
	if err := c.do(ctx, http.MethodGet, path, "", nil, &out); err != nil {
		return ReviewPage{}, err
	}
	return out, nil
}

func (c *Client) CreateReview(ctx context.Context, productID string, in ReviewInput) (Review, error) {
	var out Review
	path := "/products/" + url.PathEscape(productID) + "/reviews"
	if err := c.do(ctx, http.MethodPost, path, c.token(), in, &out); err != nil {
		return Review{}, err
	}
	return out, nil
}

func (c *Client) UpdateReview(ctx context.Context, reviewID string, in ReviewInput) (Review, error) {
	var out Review
	if err := c.do(ctx, http.MethodPut, "/reviews/"+url.PathEscape(reviewID), c.token(), in, &out); err != nil {
		return Review{}, err
	}
	return out, nil
}

func (c *Client) DeleteReview(ctx context.Context, reviewID string) error {
	return c.do(ctx, http.MethodDelete, "/reviews/"+url.PathEscape(reviewID), c.token(), nil, nil)
}

// AdminDeleteReview removes another customer's review. Requires an admin token.
func (c *Client) AdminDeleteReview(ctx context.Context, reviewID string) error {
	return c.do(ctx, http.MethodDelete, "/admin/reviews/"+url.PathEscape(reviewID), c.token(), nil, nil)
}

// =============================================================================
// History
// =============================================================================

func (c *Client) UserOrders(ctx context.Context) ([]Order, error) {
	var out []Order
	if err := c.do(ctx, http.MethodGet, "/user/orders", c.token(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UserEvents(ctx context.Context) ([]EventRegistration, error) {
	var out []EventRegistration
	if err := c.do(ctx, http.MethodGet, "/user/events", c.token(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UserWorkshops(ctx context.Context) ([]WorkshopRegistration, error) {
	var out []WorkshopRegistration
	if err := c.do(ctx, http.MethodGet, "/user/workshops", c.token(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UserSubscriptions(ctx context.Context) ([]Subscription, error) {
	var out []Subscription
	if err := c.do(ctx, http.MethodGet, "/user/subscriptions", c.token(), nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// =============================================================================
// Transport
// =============================================================================

func (c *Client) do(ctx context.Context, method, path, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Status: resp.StatusCode, Message: errorMessage(raw)}
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage pulls {"error": "..."} or {"message": "..."} out of a body.
func errorMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Message
}
