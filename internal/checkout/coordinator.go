// Package checkout assembles and submits orders: it prices the cart,
// uploads payment evidence and posts the submission exactly once per
// confirmation, clearing the cart only after the server accepts the order.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tconnectmw/store-system/internal/model"
	"github.com/tconnectmw/store-system/internal/pricing"
	"github.com/tconnectmw/store-system/internal/validation"
)

// State is the submission lifecycle state of the coordinator.
type State string

const (
	StateIdle       State = "idle"
	StateUploading  State = "uploading"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
)

const (
	receiptBucket = "receipts"
	popBucket     = "proof-of-payment"
)

var (
	// ErrSubmissionInFlight is returned when Submit is called while a
	// previous submission is still uploading or posting.
	ErrSubmissionInFlight = errors.New("submission already in flight")
	// ErrReceiptUpload is returned when the points receipt upload fails;
	// unlike proof of payment, the receipt is mandatory evidence.
	ErrReceiptUpload = errors.New("points receipt upload failed")
)

// Rates supplies multipliers for pricing and lets the coordinator trigger an
// opportunistic refresh before each computation.
type Rates interface {
	pricing.RateProvider
	RefreshIfStale(ctx context.Context)
}

// Uploader stores a file in the external object store and returns its
// public URL.
type Uploader interface {
	Upload(ctx context.Context, bucket, name string, content []byte, contentType string) (string, error)
}

// Submitter posts an assembled submission to the order endpoint. A non-2xx
// response surfaces as an error carrying the server's message.
type Submitter interface {
	Submit(ctx context.Context, sub model.OrderSubmission) (*model.Order, error)
}

// CartView is the slice of cart behavior the coordinator needs.
type CartView interface {
	Items() []model.CartLineItem
	Clear()
}

// File is an attachment selected by the customer.
type File struct {
	Name        string
	ContentType string
	Content     []byte
}

// Request carries everything outside the cart needed to submit an order.
// PointsBalance is the customer's balance as last synced from the server;
// a points package larger than it never leaves Idle.
type Request struct {
	Email          string
	Payment        model.Payment
	PointsBalance  int
	ProofOfPayment *File
	Receipt        *File
}

// Result is a confirmed submission.
type Result struct {
	Order      *model.Order
	TotalUSD   float64
	TotalLocal int64
	Warnings   []string
}

// Coordinator drives one customer's submissions through
// Idle -> Uploading -> Submitting -> Success, falling back to Idle on any
// failure with the cart and form state preserved for retry.
type Coordinator struct {
	cart      CartView
	rates     Rates
	uploader  Uploader
	submitter Submitter
	logger    *zap.Logger

	mu        sync.Mutex
	state     State
	clientRef string
}

// NewCoordinator creates an idle coordinator.
func NewCoordinator(cart CartView, rates Rates, uploader Uploader, submitter Submitter, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		cart:      cart,
		rates:     rates,
		uploader:  uploader,
		submitter: submitter,
		logger:    logger,
		state:     StateIdle,
	}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Submit validates, uploads and posts the order. On failure the cart is left
// untouched and the coordinator returns to Idle; the same client reference
// is reused on retry so the server can deduplicate. Only a confirmed 2xx
// clears the cart.
func (c *Coordinator) Submit(ctx context.Context, req Request) (*Result, error) {
	if err := c.begin(); err != nil {
		return nil, err
	}

	items := c.cart.Items()

	if err := validation.ValidateItems(items); err != nil {
		c.setState(StateIdle)
		return nil, err
	}
	if err := validation.ValidatePayment(pricing.CartUSD(items), req.PointsBalance, req.Payment, req.Receipt != nil); err != nil {
		c.setState(StateIdle)
		return nil, err
	}

	// Pricing proceeds with whatever the cache holds; the refresh only
	// affects later computations.
	c.rates.RefreshIfStale(ctx)

	payment, warnings, err := c.upload(ctx, req.Payment, req)
	if err != nil {
		c.setState(StateIdle)
		return nil, err
	}

	totalUSD, totalLocal := c.totals(items, payment)

	c.setState(StateSubmitting)

	sub := model.NewOrderSubmission(c.ref(), req.Email, items, totalUSD, totalLocal, payment)

	order, err := c.submitter.Submit(ctx, sub)
	if err != nil {
		c.setState(StateIdle)
		return nil, err
	}

	// Clear only after the server confirmed acceptance: a network failure
	// must never silently drop cart contents.
	c.cart.Clear()

	c.mu.Lock()
	c.state = StateSuccess
	c.clientRef = ""
	c.mu.Unlock()

	return &Result{
		Order:      order,
		TotalUSD:   totalUSD,
		TotalLocal: totalLocal,
		Warnings:   warnings,
	}, nil
}

func (c *Coordinator) begin() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateUploading || c.state == StateSubmitting {
		return ErrSubmissionInFlight
	}
	c.state = StateUploading
	return nil
}

func (c *Coordinator) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// ref returns the client reference for the current logical submission,
// minting one on first use and keeping it across retries.
func (c *Coordinator) ref() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.clientRef == "" {
		c.clientRef = uuid.NewString()
	}
	return c.clientRef
}

// upload pushes the selected files to object storage. A failed points
// receipt aborts the attempt; a failed proof of payment only degrades it.
func (c *Coordinator) upload(ctx context.Context, payment model.Payment, req Request) (model.Payment, []string, error) {
	var warnings []string

	switch p := payment.(type) {
	case model.PointsPayment:
		name := c.ref() + "-" + req.Receipt.Name
		url, err := c.uploader.Upload(ctx, receiptBucket, name, req.Receipt.Content, req.Receipt.ContentType)
		if err != nil {
			return payment, nil, fmt.Errorf("%w: %w", ErrReceiptUpload, err)
		}
		p.ReceiptURL = url
		p.ReceiptID = name
		payment = p

	case model.BankPayment:
		if req.ProofOfPayment == nil {
			break
		}
		name := c.ref() + "-" + req.ProofOfPayment.Name
		url, err := c.uploader.Upload(ctx, popBucket, name, req.ProofOfPayment.Content, req.ProofOfPayment.ContentType)
		if err != nil {
			// Proof of payment is recommended but not blocking.
			c.logger.Warn("proof of payment upload failed, submitting without it", zap.Error(err))
			warnings = append(warnings, "proof of payment upload failed; order submitted without it")
		} else {
			p.ProofOfPaymentURL = url
			payment = p
		}
	}

	return payment, warnings, nil
}

// totals computes the payable amounts for the submission. A points payment
// spreads its USD discount proportionally across items before each item is
// converted at its own category rate.
func (c *Coordinator) totals(items []model.CartLineItem, payment model.Payment) (float64, int64) {
	if p, ok := payment.(model.PointsPayment); ok {
		b := pricing.ApplyPointsDiscount(c.rates, items, p.Package)
		return b.FinalTotalUSD, b.FinalTotalLocal
	}
	return pricing.CartUSD(items), pricing.CartLocal(c.rates, items)
}
