// Package validation holds the field rules shared by the storefront checkout
// and the order and review endpoints.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

const (
	PhoneDigits    = 10
	MaxReviewWords = 100
)

// FieldErrors maps a JSON field name to a human-readable message.
type FieldErrors map[string]string

func (f FieldErrors) Error() string {
	keys := make([]string, 0, len(f))
	for k := range f {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, f[k]))
	}
	return strings.Join(parts, "; ")
}

// Recipient is the delivery block of an order.
type Recipient struct {
	RecipientName   string `json:"recipientName" validate:"required"`
	RecipientPhone  string `json:"recipientPhone" validate:"required,phone10"`
	DeliveryAddress string `json:"deliveryAddress" validate:"required"`
	PaymentMethod   string `json:"paymentMethod" validate:"oneof=card cod"`
}

// Review is the user-editable part of a product review.
type Review struct {
	Rating  int    `json:"rating" validate:"min=1,max=5"`
	Comment string `json:"comment" validate:"required,maxwords"`
}

var messages = map[string]map[string]string{
	"recipientName":   {"required": "Recipient name is required"},
	"recipientPhone":  {"required": "Phone number is required", "phone10": "Phone number must be exactly 10 digits"},
	"deliveryAddress": {"required": "Delivery address is required"},
	"paymentMethod":   {"oneof": "Payment method must be card or cod"},
	"rating":          {"min": "Rating must be between 1 and 5", "max": "Rating must be between 1 and 5"},
	"comment": {
		"required": "Review comment is required",
		"maxwords": fmt.Sprintf("Review must be %d words or fewer", MaxReviewWords),
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("phone10", func(fl validator.FieldLevel) bool {
		return len(DigitsOnly(fl.Field().String())) == PhoneDigits
	})
	_ = v.RegisterValidation("maxwords", func(fl validator.FieldLevel) bool {
		return CountWords(fl.Field().String()) <= MaxReviewWords
	})
	return v
}

// DigitsOnly strips every non-digit character.
func DigitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// CountWords counts whitespace-separated words.
func CountWords(s string) int {
	return len(strings.FieldsFunc(s, unicode.IsSpace))
}

// NormalizeRecipient trims text fields and defaults the payment method to card.
// The phone is left as typed so validation can tell empty from malformed input.
func NormalizeRecipient(r Recipient) Recipient {
	r.RecipientName = strings.TrimSpace(r.RecipientName)
	r.RecipientPhone = strings.TrimSpace(r.RecipientPhone)
	r.DeliveryAddress = strings.TrimSpace(r.DeliveryAddress)
	r.PaymentMethod = strings.ToLower(strings.TrimSpace(r.PaymentMethod))
	if r.PaymentMethod == "" {
		r.PaymentMethod = "card"
	}
	return r
}

// ValidateRecipient normalizes r and returns it with the phone reduced to digits.
func ValidateRecipient(r Recipient) (Recipient, FieldErrors) {
	r = NormalizeRecipient(r)
	if errs := check(r); errs != nil {
		return r, errs
	}
	r.RecipientPhone = DigitsOnly(r.RecipientPhone)
	return r, nil
}

func ValidateReview(r Review) FieldErrors {
	r.Comment = strings.TrimSpace(r.Comment)
	return check(r)
}

func check(v any) FieldErrors {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return FieldErrors{"_": err.Error()}
	}

	out := make(FieldErrors, len(validationErrors))
	for _, fe := range validationErrors {
		field := fe.Field()
		if _, exists := out[field]; exists {
			continue
		}
		if msg, ok := messages[field][fe.Tag()]; ok {
			out[field] = msg
			continue
		}
		out[field] = fmt.Sprintf("%s is invalid", field)
	}
	return out
}
