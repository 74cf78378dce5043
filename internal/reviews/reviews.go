// Package reviews composes, edits and pages through product reviews.
package reviews

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"urbanharvest/internal/api"
	"urbanharvest/internal/validation"
)

const DefaultPageSize = 10

var (
	ErrLoginRequired = errors.New("reviews: login required")
	ErrNotAllowed    = errors.New("reviews: only the author or an admin can change this review")
)

type API interface {
	ListReviews(ctx context.Context, productID string, page, limit int) (api.ReviewPage, error)
	CreateReview(ctx context.Context, productID string, in api.ReviewInput) (api.Review, error)
	UpdateReview(ctx context.Context, reviewID string, in api.ReviewInput) (api.Review, error)
	DeleteReview(ctx context.Context, reviewID string) error
	AdminDeleteReview(ctx context.Context, reviewID string) error
}

type Identity interface {
	User() *api.User
}

// ValidateComment returns the message for an empty or over-long comment, or "".
func ValidateComment(comment string) string {
	return Validate(api.ReviewInput{Rating: 1, Comment: comment})["comment"]
}

// Validate checks a review before it is sent.
func Validate(in api.ReviewInput) validation.FieldErrors {
	return validation.ValidateReview(validation.Review{Rating: in.Rating, Comment: in.Comment})
}

// Composer sends reviews on behalf of the current user. Invalid input never
// reaches the network.
type Composer struct {
	api      API
	identity Identity
}

func NewComposer(client API, identity Identity) *Composer {
	return &Composer{api: client, identity: identity}
}

// CanModify reports whether the current user may edit or delete r.
func (c *Composer) CanModify(r api.Review) bool {
	user := c.identity.User()
	if user == nil {
		return false
	}
	return user.ID == r.UserID || user.Role == api.RoleAdmin
}

func (c *Composer) Create(ctx context.Context, productID string, in api.ReviewInput) (api.Review, error) {
	if c.identity.User() == nil {
		return api.Review{}, ErrLoginRequired
	}
	in.Comment = strings.TrimSpace(in.Comment)
	if errs := Validate(in); errs != nil {
		return api.Review{}, errs
	}

	review, err := c.api.CreateReview(ctx, productID, in)
	if err != nil {
		log.Println("[REVIEWS] [ERROR] create failed:", err)
		return api.Review{}, err
	}
	return review, nil
}

func (c *Composer) Update(ctx context.Context, existing api.Review, in api.ReviewInput) (api.Review, error) {
	if c.identity.User() == nil {
		return api.Review{}, ErrLoginRequired
	}
	if !c.CanModify(existing) {
		return api.Review{}, ErrNotAllowed
	}
	in.Comment = strings.TrimSpace(in.Comment)
	if errs := Validate(in); errs != nil {
		return api.Review{}, errs
	}

	review, err := c.api.UpdateReview(ctx, existing.ID, in)
	if err != nil {
		log.Println("[REVIEWS] [ERROR] update failed:", err)
		return api.Review{}, err
	}
	return review, nil
}

func (c *Composer) Delete(ctx context.Context, existing api.Review) error {
	if c.identity.User() == nil {
		return ErrLoginRequired
	}
	if !c.CanModify(existing) {
		return ErrNotAllowed
	}

	remove := c.api.DeleteReview
	if user := c.identity.User(); user != nil && user.ID != existing.UserID {
		// Only admins pass CanModify for someone else's review.
		remove = c.api.AdminDeleteReview
	}
	if err := remove(ctx, existing.ID); err != nil {
		log.Println("[REVIEWS] [ERROR] delete failed:", err)
		return err
	}
	return nil
}

// Pager loads a product's reviews one page at a time.
type Pager struct {
	api       API
	productID string
	limit     int

	mu      sync.Mutex
	page    int
	total   int
	loaded  []api.Review
	started bool
}

func NewPager(client API, productID string, limit int) *Pager {
	if limit < 1 {
		limit = DefaultPageSize
	}
	return &Pager{api: client, productID: productID, limit: limit}
}

// Next fetches the following page and returns its reviews.
func (p *Pager) Next(ctx context.Context) ([]api.Review, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started && len(p.loaded) >= p.total {
		return nil, nil
	}

	resp, err := p.api.ListReviews(ctx, p.productID, p.page+1, p.limit)
	if err != nil {
		return nil, err
	}

	p.started = true
	p.page++
	p.total = resp.Pagination.Total
	p.loaded = append(p.loaded, resp.Data...)
	if len(resp.Data) == 0 {
		// Server returned fewer than it advertised; stop paging.
		p.total = len(p.loaded)
	}
	return resp.Data, nil
}

// HasMore reports whether another Next call can return reviews.
func (p *Pager) HasMore() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return !p.started || len(p.loaded) < p.total
}

// Loaded returns every review fetched so far.
func (p *Pager) Loaded() []api.Review {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]api.Review(nil), p.loaded...)
}

func (p *Pager) Total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.total
}
