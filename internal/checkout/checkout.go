// Package checkout turns the current cart into an order for the logged-in user.
package checkout

import (
	"context"
	"errors"
	"log"
	"sync"

	"urbanharvest/internal/api"
	"urbanharvest/internal/cart"
	"urbanharvest/internal/validation"
)

const (
	EmptyCartMessage = "Your cart is empty"
	FailureMessage   = "Failed to place order. Please try again."
)

var (
	// ErrLoginRequired is returned to guests; nothing is validated or sent.
	ErrLoginRequired = errors.New("checkout: login required")
	// ErrSubmitInFlight is returned while an earlier submission is outstanding.
	ErrSubmitInFlight = errors.New("checkout: order submission already in progress")
)

type State int

const (
	Idle State = iota
	Validating
	Submitting
	Confirmed
)

func (s State) String() string {
	switch s {
	case Validating:
		return "validating"
	case Submitting:
		return "submitting"
	case Confirmed:
		return "confirmed"
	default:
		return "idle"
	}
}

// ValidationErrors maps form fields (and "items" for the cart) to messages.
type ValidationErrors map[string]string

func (v ValidationErrors) Error() string {
	return validation.FieldErrors(v).Error()
}

// SubmitError is a rejected or failed order submission.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message }

func (e *SubmitError) Unwrap() error { return e.Err }

// Form is what the customer types on the checkout page.
type Form struct {
	RecipientName   string
	RecipientPhone  string
	DeliveryAddress string
	PaymentMethod   string
}

type Confirmation struct {
	OrderID string
	Total   float64
	Message string
}

// Identity reports who is checking out; nil means guest.
type Identity interface {
	User() *api.User
}

// Cart is the store being checked out. Snapshot must return the partition
// key and its lines under one lock.
type Cart interface {
	Snapshot() (string, []cart.Item)
	ClearCart() error
	OwnerKey() string
}

type OrderAPI interface {
	CreateOrder(ctx context.Context, req api.OrderRequest) (api.OrderConfirmation, error)
}

// Flow walks Idle -> Validating -> Submitting -> Confirmed, falling back to
// Idle on invalid input or a failed submission.
type Flow struct {
	identity Identity
	cart     Cart
	orders   OrderAPI

	mu    sync.Mutex
	state State
}

func New(identity Identity, c Cart, orders OrderAPI) *Flow {
	return &Flow{identity: identity, cart: c, orders: orders}
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Reset returns a confirmed flow to Idle.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == Confirmed {
		f.state = Idle
	}
}

// Submit validates form against the current cart and places the order. On
// success the cart is cleared; on any failure it is left as it was.
func (f *Flow) Submit(ctx context.Context, form Form) (Confirmation, error) {
	req, ownerKey, err := f.prepare(form)
	if err != nil {
		return Confirmation{}, err
	}

	resp, err := f.orders.CreateOrder(ctx, req)
	if err != nil {
		f.setState(Idle)
		log.Println("[CHECKOUT] [ERROR] order submission failed:", err)
		return Confirmation{}, &SubmitError{Message: api.Message(err, FailureMessage), Err: err}
	}

	if f.cart.OwnerKey() == ownerKey {
		if err := f.cart.ClearCart(); err != nil {
			log.Println("[CHECKOUT] [ERROR] clear cart after order failed:", err)
		}
	} else {
		log.Println("[CHECKOUT] [WARN] identity changed during checkout, cart left untouched")
	}

	f.setState(Confirmed)
	log.Println("[CHECKOUT] [INFO] order placed:", resp.OrderID)
	return Confirmation{OrderID: resp.OrderID, Total: resp.Total, Message: resp.Message}, nil
}

func (f *Flow) prepare(form Form) (api.OrderRequest, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.state == Validating || f.state == Submitting {
		return api.OrderRequest{}, "", ErrSubmitInFlight
	}

	user := f.identity.User()
	if user == nil {
		f.state = Idle
		return api.OrderRequest{}, "", ErrLoginRequired
	}

	f.state = Validating

	recipient, fieldErrs := validation.ValidateRecipient(validation.Recipient{
		RecipientName:   form.RecipientName,
		RecipientPhone:  form.RecipientPhone,
		DeliveryAddress: form.DeliveryAddress,
		PaymentMethod:   form.PaymentMethod,
	})

	errs := ValidationErrors{}
	for field, msg := range fieldErrs {
		errs[field] = msg
	}

	ownerKey, items := f.cart.Snapshot()
	if len(items) == 0 {
		errs["items"] = EmptyCartMessage
	}

	if len(errs) > 0 {
		f.state = Idle
		return api.OrderRequest{}, "", errs
	}

	lines := make([]api.OrderItem, 0, len(items))
	for _, it := range items {
		lines = append(lines, api.OrderItem{ProductID: it.ID, Quantity: it.Quantity})
	}

	f.state = Submitting
	return api.OrderRequest{
		UserID:          user.ID,
		Items:           lines,
		RecipientName:   recipient.RecipientName,
		RecipientPhone:  recipient.RecipientPhone,
		DeliveryAddress: recipient.DeliveryAddress,
		PaymentMethod:   recipient.PaymentMethod,
	}, ownerKey, nil
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}
