// Package handler contains the HTTP handlers of the storefront API.
package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tconnectmw/store-system/internal/middleware"
	"github.com/tconnectmw/store-system/internal/model"
	"github.com/tconnectmw/store-system/internal/repository"
	"github.com/tconnectmw/store-system/internal/service"
	"github.com/tconnectmw/store-system/internal/validation"
)

// Service defines the business logic contract used by the HTTP handlers.
type Service interface {
	SyncProfile(ctx context.Context, email, displayName string) (*model.User, error)
	Profile(ctx context.Context, email string) (*model.User, error)
	Products(ctx context.Context) ([]model.Product, error)
	AddProduct(ctx context.Context, p model.Product) (int64, error)
	RateHistory(ctx context.Context) ([]model.RateRecord, error)
	SetRate(ctx context.Context, category model.RateCategory, value float64) error
	SubmitOrder(ctx context.Context, sub model.OrderSubmission) (*model.Order, bool, error)
	Orders(ctx context.Context, email string) ([]model.Order, error)
	AllOrders(ctx context.Context) ([]model.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, codes map[int64]string) (*model.Order, error)
	StartChat(ctx context.Context, email, customerName string) (*model.ChatSession, error)
	Chat(ctx context.Context, id string) (*model.ChatSession, []model.ChatMessage, error)
	Chats(ctx context.Context, state model.ChatState) ([]model.ChatSession, error)
	CustomerMessage(ctx context.Context, chatID, body, imageURL string, needsAgent bool) (*model.ChatMessage, error)
	JoinChat(ctx context.Context, chatID, agentName string) (*model.ChatSession, error)
	AgentMessage(ctx context.Context, chatID, body, imageURL string) (*model.ChatMessage, error)
	CloseChat(ctx context.Context, chatID string) error
	Notifications(ctx context.Context, email string) ([]model.Notification, error)
	UnreadCount(ctx context.Context, email string) (int64, error)
	MarkRead(ctx context.Context, id int64) error
	MarkAllRead(ctx context.Context, email string) error
}

// Handler implements the HTTP handlers of the storefront API.
type Handler struct {
	service       Service
	logger        *zap.Logger
	adminAuth     *middleware.AdminAuth
	adminPassword string
	uploader      Uploader
}

// NewHandler creates a handler with the given service, logger and admin auth.
// uploader may be nil when no object storage is configured; uploads then
// answer 503.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AdminAuth, adminPassword string, uploader Uploader) *Handler {
	return &Handler{
		service:       s,
		logger:        logger,
		adminAuth:     auth,
		adminPassword: adminPassword,
		uploader:      uploader,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

type loginRequest struct {
	AgentName string `json:"agentName"`
	Password  string `json:"password"`
}

// AdminLogin authenticates a back-office agent against the shared admin
// password and issues the signed admin cookie.
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.AgentName) == "" {
		writeError(w, http.StatusBadRequest, "agent name is required")
		return
	}

	if h.adminPassword == "" ||
		subtle.ConstantTimeCompare([]byte(req.Password), []byte(h.adminPassword)) != 1 {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	h.adminAuth.SetAuthCookie(w, req.AgentName)
	w.WriteHeader(http.StatusOK)
}

type profileRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
}

// SyncProfile creates or refreshes a customer profile after an external
// login.
func (h *Handler) SyncProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, err := h.service.SyncProfile(r.Context(), req.Email, req.DisplayName)
	if err != nil {
		if errors.Is(err, validation.ErrEmailRequired) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("sync profile error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// GetProfile returns the profile for the email query parameter.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	user, err := h.service.Profile(r.Context(), email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		h.logger.Error("get profile error", zap.Error(err), zap.String("email", email))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// GetProducts returns the catalog.
func (h *Handler) GetProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.Products(r.Context())
	if err != nil {
		h.logger.Error("get products error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if products == nil {
		products = []model.Product{}
	}
	writeJSON(w, http.StatusOK, products)
}

// AddProduct stores a catalog entry.
func (h *Handler) AddProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := h.service.AddProduct(r.Context(), p)
	if err != nil {
		if errors.Is(err, service.ErrInvalidProduct) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("add product error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	p.ID = id
	writeJSON(w, http.StatusCreated, p)
}

// GetRates returns the rate history.
func (h *Handler) GetRates(w http.ResponseWriter, r *http.Request) {
	records, err := h.service.RateHistory(r.Context())
	if err != nil {
		h.logger.Error("get rates error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if records == nil {
		records = []model.RateRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

type rateRequest struct {
	Category model.RateCategory `json:"type"`
	Value    float64            `json:"value"`
}

// SetRate appends a rate record.
func (h *Handler) SetRate(w http.ResponseWriter, r *http.Request) {
	var req rateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.SetRate(r.Context(), req.Category, req.Value); err != nil {
		if errors.Is(err, service.ErrInvalidRate) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("set rate error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusCreated)
}

// SubmitOrder accepts an order submission. A new order answers 201; a retry
// of an already accepted clientRef answers 200 with the stored order.
func (h *Handler) SubmitOrder(w http.ResponseWriter, r *http.Request) {
	var sub model.OrderSubmission
	if err := json.NewDecoder(r.Body).Decode(&sub); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, created, err := h.service.SubmitOrder(r.Context(), sub)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTotalMismatch):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		case errors.Is(err, repository.ErrInsufficientPoints):
			writeError(w, http.StatusPaymentRequired, err.Error())
		case errors.Is(err, repository.ErrUserNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		case isValidationError(err):
			writeError(w, http.StatusBadRequest, err.Error())
		default:
			h.logger.Error("submit order error", zap.Error(err), zap.String("clientRef", sub.ClientRef))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	status := http.StatusCreated
	if !created {
		status = http.StatusOK
	}
	writeJSON(w, status, order)
}

func isValidationError(err error) bool {
	return errors.Is(err, validation.ErrEmptyCart) ||
		errors.Is(err, validation.ErrInvalidItem) ||
		errors.Is(err, validation.ErrEmailRequired) ||
		errors.Is(err, validation.ErrSenderNameRequired) ||
		errors.Is(err, validation.ErrReceiptRequired) ||
		errors.Is(err, validation.ErrUnknownPackage) ||
		errors.Is(err, validation.ErrCardNotSupported) ||
		errors.Is(err, validation.ErrUnknownPaymentMethod)
}

// GetOrders returns the orders for the email query parameter.
func (h *Handler) GetOrders(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	orders, err := h.service.Orders(r.Context(), email)
	if err != nil {
		h.logger.Error("get orders error", zap.Error(err), zap.String("email", email))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if len(orders) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, http.StatusOK, orders)
}

// ListOrders returns every order for the back office.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.AllOrders(r.Context())
	if err != nil {
		h.logger.Error("list orders error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if orders == nil {
		orders = []model.Order{}
	}
	writeJSON(w, http.StatusOK, orders)
}

type orderStatusRequest struct {
	Status           model.OrderStatus `json:"status"`
	FulfillmentCodes map[string]string `json:"fulfillmentCodes,omitempty"`
}

// UpdateOrderStatus moves an order through review. Fulfillment codes arrive
// keyed by item ID in JSON string form.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	var req orderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	codes := make(map[int64]string, len(req.FulfillmentCodes))
	for key, code := range req.FulfillmentCodes {
		itemID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid item id: "+key)
			return
		}
		codes[itemID] = code
	}

	order, err := h.service.UpdateOrderStatus(r.Context(), orderID, req.Status, codes)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, err.Error())
		default:
			h.logger.Error("update order status error", zap.Error(err), zap.String("orderID", orderID))
			writeError(w, http.StatusInternalServerError, "internal error")
		}
		return
	}

	writeJSON(w, http.StatusOK, order)
}
