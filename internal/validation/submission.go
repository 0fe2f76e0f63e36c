// Package validation checks carts and order submissions before any network
// or database work happens.
package validation

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tconnectmw/store-system/internal/model"
)

// Validation failures surfaced inline to the customer; no request is made
// when any of these trigger.
var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrInvalidItem          = errors.New("invalid cart item")
	ErrEmailRequired        = errors.New("email is required")
	ErrSenderNameRequired   = errors.New("sender name is required")
	ErrReceiptRequired      = errors.New("points receipt is required")
	ErrUnknownPackage       = errors.New("unknown points package")
	ErrInsufficientPoints   = errors.New("points balance does not cover the package")
	ErrCardNotSupported     = errors.New("card payment is not yet available")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
)

// ValidateItems checks the structural cart invariants: at least one line,
// positive quantities, non-negative prices, known product types.
func ValidateItems(items []model.CartLineItem) error {
	if len(items) == 0 {
		return ErrEmptyCart
	}
	for _, item := range items {
		if item.ID == "" || item.Quantity < 1 || item.UnitPriceUSD < 0 || !item.Type.Valid() {
			return fmt.Errorf("%w: %q", ErrInvalidItem, item.ID)
		}
	}
	return nil
}

// ValidatePayment checks the per-method submission preconditions on the
// client side, before any upload starts. totalUSD is the gross cart total,
// pointsBalance the customer's current balance and hasReceipt reports
// whether a points receipt file has been attached.
func ValidatePayment(totalUSD float64, pointsBalance int, p model.Payment, hasReceipt bool) error {
	switch v := p.(type) {
	case model.BankPayment:
		if strings.TrimSpace(v.SenderName) == "" {
			return ErrSenderNameRequired
		}
	case model.PointsPayment:
		if _, ok := model.PointsPackageFor(v.Package.Points); !ok {
			return ErrUnknownPackage
		}
		if v.Package.Points > pointsBalance {
			return ErrInsufficientPoints
		}
		if !hasReceipt {
			return ErrReceiptRequired
		}
		if totalUSD-v.Package.ValueUSD > 0 && strings.TrimSpace(v.RemainderSenderName) == "" {
			// The remainder is settled by bank transfer and needs a sender.
			return ErrSenderNameRequired
		}
	case model.CardPayment:
		return ErrCardNotSupported
	default:
		return ErrUnknownPaymentMethod
	}
	return nil
}

// ValidateSubmission checks the flattened wire shape on the server side. It
// mirrors ValidatePayment but works off the serialized fields, since the
// union is flattened at the boundary.
func ValidateSubmission(sub model.OrderSubmission) error {
	if strings.TrimSpace(sub.Email) == "" {
		return ErrEmailRequired
	}
	if err := ValidateItems(sub.Items); err != nil {
		return err
	}

	switch sub.PaymentMethod {
	case model.PaymentMethodBank:
		if strings.TrimSpace(sub.SenderName) == "" {
			return ErrSenderNameRequired
		}
	case model.PaymentMethodPoints:
		if _, ok := model.PointsPackageFor(sub.PointsUsed); !ok {
			return ErrUnknownPackage
		}
		if sub.ReceiptURL == "" {
			return ErrReceiptRequired
		}
		// TotalUSD on the wire is already the post-discount remainder, so
		// any positive value must name who settles it by bank transfer.
		if sub.TotalUSD > 0 && strings.TrimSpace(sub.SenderName) == "" {
			return ErrSenderNameRequired
		}
	case model.PaymentMethodCard:
		return ErrCardNotSupported
	default:
		return ErrUnknownPaymentMethod
	}
	return nil
}
