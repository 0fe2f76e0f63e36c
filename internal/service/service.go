// Package service implements the business logic of the storefront.
package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/tconnectmw/store-system/internal/model"
	"github.com/tconnectmw/store-system/internal/pricing"
	"github.com/tconnectmw/store-system/internal/validation"
)

// AdminInbox is the shared notification inbox read by the back office.
const AdminInbox = "admin"

// Tolerances for client-computed totals. USD amounts must match to the cent.
// Local totals may drift when a rate changes between the client pricing a
// cart and the server re-pricing it, so they get a relative allowance.
const (
	usdTolerance        = 0.01
	localToleranceRatio = 0.02
)

var (
	ErrTotalMismatch     = errors.New("submitted totals do not match server pricing")
	ErrInvalidRate       = errors.New("invalid rate")
	ErrInvalidProduct    = errors.New("invalid product")
	ErrInvalidStatus     = errors.New("invalid order status")
	ErrInvalidTransition = errors.New("invalid chat transition")
	ErrChatClosed        = errors.New("chat is closed")
)

// Repository describes the data access contract used by the service.
type Repository interface {
	Close() error
	UpsertUser(ctx context.Context, email, displayName string) (*model.User, error)
	GetUserByEmail(ctx context.Context, email string) (*model.User, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	CreateProduct(ctx context.Context, p model.Product) (int64, error)
	AddRate(ctx context.Context, category model.RateCategory, value float64) error
	RateRecords(ctx context.Context) ([]model.RateRecord, error)
	CreateOrder(ctx context.Context, sub model.OrderSubmission) (*model.Order, bool, error)
	GetOrder(ctx context.Context, id string) (*model.Order, error)
	GetOrdersByEmail(ctx context.Context, email string) ([]model.Order, error)
	ListOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, codes map[int64]string) error
	CreateChat(ctx context.Context, email, customerName string) (*model.ChatSession, error)
	GetChat(ctx context.Context, id string) (*model.ChatSession, error)
	ListChats(ctx context.Context, state model.ChatState) ([]model.ChatSession, error)
	TransitionChat(ctx context.Context, id string, from, to model.ChatState, agentName string) error
	AddChatMessage(ctx context.Context, chatID string, sender model.ChatSender, body, imageURL string) (*model.ChatMessage, error)
	GetChatMessages(ctx context.Context, chatID string) ([]model.ChatMessage, error)
	CreateNotification(ctx context.Context, email, title, body string) error
	ListNotifications(ctx context.Context, email string) ([]model.Notification, error)
	UnreadNotificationCount(ctx context.Context, email string) (int64, error)
	MarkNotificationRead(ctx context.Context, id int64) error
	MarkAllNotificationsRead(ctx context.Context, email string) error
}

// Rates provides the cached rate table used to re-price submissions.
type Rates interface {
	pricing.RateProvider
	RefreshIfStale(ctx context.Context)
	Refresh(ctx context.Context) error
}

// Service contains the business logic of the storefront.
type Service struct {
	repo   Repository
	rates  Rates
	logger *zap.Logger
}

// NewService creates a service with the given repository and rate cache.
func NewService(repo Repository, rates Rates, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		rates:  rates,
		logger: logger,
	}
}

// Close closes the service's resources.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// SyncProfile creates or refreshes a customer profile on login.
func (s *Service) SyncProfile(ctx context.Context, email, displayName string) (*model.User, error) {
	if email == "" {
		return nil, validation.ErrEmailRequired
	}
	return s.repo.UpsertUser(ctx, email, displayName)
}

// Profile returns the profile for an email.
func (s *Service) Profile(ctx context.Context, email string) (*model.User, error) {
	return s.repo.GetUserByEmail(ctx, email)
}

// Products returns the catalog.
func (s *Service) Products(ctx context.Context) ([]model.Product, error) {
	return s.repo.ListProducts(ctx)
}

// AddProduct validates and stores a catalog entry, returning its ID.
func (s *Service) AddProduct(ctx context.Context, p model.Product) (int64, error) {
	if p.Name == "" || !p.Type.Valid() || p.PriceUSD <= 0 {
		return 0, ErrInvalidProduct
	}
	return s.repo.CreateProduct(ctx, p)
}

// RateHistory returns the append-only rate history.
func (s *Service) RateHistory(ctx context.Context) ([]model.RateRecord, error) {
	return s.repo.RateRecords(ctx)
}

// SetRate appends a rate record and refreshes the cache so the new value
// takes effect without waiting out the TTL.
func (s *Service) SetRate(ctx context.Context, category model.RateCategory, value float64) error {
	if !category.Valid() || value <= 0 || math.IsInf(value, 0) || math.IsNaN(value) {
		return ErrInvalidRate
	}

	if err := s.repo.AddRate(ctx, category, value); err != nil {
		return err
	}

	if err := s.rates.Refresh(ctx); err != nil {
		s.logger.Warn("rate cache refresh after update failed", zap.Error(err))
	}
	return nil
}

// SubmitOrder validates a submission, re-prices it against the server's rate
// table and persists it. The returned bool is false when the client_ref was
// already accepted and the stored order is returned instead.
func (s *Service) SubmitOrder(ctx context.Context, sub model.OrderSubmission) (*model.Order, bool, error) {
	if err := validation.ValidateSubmission(sub); err != nil {
		return nil, false, err
	}

	s.rates.RefreshIfStale(ctx)

	if err := s.checkTotals(sub); err != nil {
		return nil, false, err
	}

	order, created, err := s.repo.CreateOrder(ctx, sub)
	if err != nil {
		return nil, false, err
	}

	if created {
		s.notify(ctx, AdminInbox, "New order",
			fmt.Sprintf("Order %s from %s for $%.2f is awaiting review", order.ID, order.Email, order.TotalUSD))
	}

	return order, created, nil
}

func (s *Service) checkTotals(sub model.OrderSubmission) error {
	var (
		wantUSD   float64
		wantLocal int64
	)

	if sub.PaymentMethod == model.PaymentMethodPoints {
		pkg, ok := model.PointsPackageFor(sub.PointsUsed)
		if !ok {
			return validation.ErrUnknownPackage
		}
		b := pricing.ApplyPointsDiscount(s.rates, sub.Items, pkg)
		wantUSD = b.FinalTotalUSD
		wantLocal = b.FinalTotalLocal
	} else {
		wantUSD = pricing.CartUSD(sub.Items)
		wantLocal = pricing.CartLocal(s.rates, sub.Items)
	}

	if math.Abs(sub.TotalUSD-wantUSD) > usdTolerance {
		return ErrTotalMismatch
	}

	allowed := localToleranceRatio * math.Max(float64(wantLocal), 1)
	if math.Abs(float64(sub.TotalLocal-wantLocal)) > allowed {
		return ErrTotalMismatch
	}
	return nil
}

// Orders returns the customer's orders.
func (s *Service) Orders(ctx context.Context, email string) ([]model.Order, error) {
	return s.repo.GetOrdersByEmail(ctx, email)
}

// AllOrders returns every order for the back office.
func (s *Service) AllOrders(ctx context.Context) ([]model.Order, error) {
	return s.repo.ListOrders(ctx)
}

// UpdateOrderStatus moves an order through review and notifies the customer.
// Fulfillment codes are keyed by order item ID.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, codes map[int64]string) (*model.Order, error) {
	switch status {
	case model.OrderStatusPending, model.OrderStatusApproved, model.OrderStatusRejected:
	default:
		return nil, ErrInvalidStatus
	}

	if err := s.repo.UpdateOrderStatus(ctx, id, status, codes); err != nil {
		return nil, err
	}

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}

	switch status {
	case model.OrderStatusApproved:
		s.notify(ctx, order.Email, "Order approved",
			fmt.Sprintf("Order %s has been approved", order.ID))
	case model.OrderStatusRejected:
		s.notify(ctx, order.Email, "Order rejected",
			fmt.Sprintf("Order %s has been rejected, contact support for details", order.ID))
	}

	return order, nil
}

// notify stores an alert best-effort. A failed insert never fails the
// operation that triggered it.
func (s *Service) notify(ctx context.Context, email, title, body string) {
	if err := s.repo.CreateNotification(ctx, email, title, body); err != nil {
		s.logger.Warn("create notification failed",
			zap.String("email", email),
			zap.Error(err))
	}
}

// Notifications returns an inbox, newest first.
func (s *Service) Notifications(ctx context.Context, email string) ([]model.Notification, error) {
	return s.repo.ListNotifications(ctx, email)
}

// UnreadCount returns the number of unread alerts in an inbox.
func (s *Service) UnreadCount(ctx context.Context, email string) (int64, error) {
	return s.repo.UnreadNotificationCount(ctx, email)
}

// MarkRead marks one alert as read.
func (s *Service) MarkRead(ctx context.Context, id int64) error {
	return s.repo.MarkNotificationRead(ctx, id)
}

// MarkAllRead marks every alert in an inbox as read.
func (s *Service) MarkAllRead(ctx context.Context, email string) error {
	return s.repo.MarkAllNotificationsRead(ctx, email)
}
