package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/tconnectmw/store-system/internal/middleware"
	"github.com/tconnectmw/store-system/internal/model"
	"github.com/tconnectmw/store-system/internal/repository"
	"github.com/tconnectmw/store-system/internal/service"
)

type stubService struct {
	user    *model.User
	userErr error

	products []model.Product

	rateRecords []model.RateRecord
	setRateErr  error

	order     *model.Order
	created   bool
	submitErr error

	orders    []model.Order
	updateErr error

	chat       *model.ChatSession
	chatErr    error
	chats      []model.ChatSession
	message    *model.ChatMessage
	messageErr error
	closeErr   error

	notifications []model.Notification
	unread        int64
}

func (s *stubService) SyncProfile(ctx context.Context, email, displayName string) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubService) Profile(ctx context.Context, email string) (*model.User, error) {
	return s.user, s.userErr
}

func (s *stubService) Products(ctx context.Context) ([]model.Product, error) {
	return s.products, nil
}

func (s *stubService) AddProduct(ctx context.Context, p model.Product) (int64, error) {
	return 1, nil
}

func (s *stubService) RateHistory(ctx context.Context) ([]model.RateRecord, error) {
	return s.rateRecords, nil
}

func (s *stubService) SetRate(ctx context.Context, category model.RateCategory, value float64) error {
	return s.setRateErr
}

func (s *stubService) SubmitOrder(ctx context.Context, sub model.OrderSubmission) (*model.Order, bool, error) {
	return s.order, s.created, s.submitErr
}

func (s *stubService) Orders(ctx context.Context, email string) ([]model.Order, error) {
	return s.orders, nil
}

func (s *stubService) AllOrders(ctx context.Context) ([]model.Order, error) {
	return s.orders, nil
}

func (s *stubService) UpdateOrderStatus(ctx context.Context, id string, status model.OrderStatus, codes map[int64]string) (*model.Order, error) {
	return s.order, s.updateErr
}

func (s *stubService) StartChat(ctx context.Context, email, customerName string) (*model.ChatSession, error) {
	return s.chat, s.chatErr
}

func (s *stubService) Chat(ctx context.Context, id string) (*model.ChatSession, []model.ChatMessage, error) {
	return s.chat, nil, s.chatErr
}

func (s *stubService) Chats(ctx context.Context, state model.ChatState) ([]model.ChatSession, error) {
	return s.chats, nil
}

func (s *stubService) CustomerMessage(ctx context.Context, chatID, body, imageURL string, needsAgent bool) (*model.ChatMessage, error) {
	return s.message, s.messageErr
}

func (s *stubService) JoinChat(ctx context.Context, chatID, agentName string) (*model.ChatSession, error) {
	return s.chat, s.chatErr
}

func (s *stubService) AgentMessage(ctx context.Context, chatID, body, imageURL string) (*model.ChatMessage, error) {
	return s.message, s.messageErr
}

func (s *stubService) CloseChat(ctx context.Context, chatID string) error {
	return s.closeErr
}

func (s *stubService) Notifications(ctx context.Context, email string) ([]model.Notification, error) {
	return s.notifications, nil
}

func (s *stubService) UnreadCount(ctx context.Context, email string) (int64, error) {
	return s.unread, nil
}

func (s *stubService) MarkRead(ctx context.Context, id int64) error { return nil }

func (s *stubService) MarkAllRead(ctx context.Context, email string) error { return nil }

func newTestHandler(t *testing.T, svc Service) *Handler {
	t.Helper()

	auth := middleware.NewAdminAuth("test-secret")
	return NewHandler(svc, zap.NewNop(), auth, "hunter2", nil)
}

func postJSON(t *testing.T, router http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func bankSubmission() model.OrderSubmission {
	return model.OrderSubmission{
		ClientRef:     "ref-1",
		Email:         "jane@tconnect.mw",
		Items:         []model.CartLineItem{{ID: "p1", Type: model.ProductTypeGiftCard, UnitPriceUSD: 10, Quantity: 1}},
		TotalUSD:      10,
		TotalLocal:    19000,
		PaymentMethod: model.PaymentMethodBank,
		SenderName:    "J Banda",
	}
}

func TestSubmitOrder_Created(t *testing.T) {
	svc := &stubService{
		order:   &model.Order{ID: "o-1", Status: model.OrderStatusPending},
		created: true,
	}
	router := newTestHandler(t, svc).SetupRouter()

	rec := postJSON(t, router, "/api/orders", bankSubmission())
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusCreated, rec.Body.String())
	}

	var order model.Order
	if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if order.ID != "o-1" {
		t.Fatalf("order id = %q", order.ID)
	}
}

func TestSubmitOrder_DuplicateAnswersOK(t *testing.T) {
	svc := &stubService{
		order:   &model.Order{ID: "o-1"},
		created: false,
	}
	router := newTestHandler(t, svc).SetupRouter()

	rec := postJSON(t, router, "/api/orders", bankSubmission())
	if rec.Code != http.StatusOK {
		t.Fatalf("duplicate submission status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestSubmitOrder_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"total mismatch", service.ErrTotalMismatch, http.StatusUnprocessableEntity},
		{"insufficient points", repository.ErrInsufficientPoints, http.StatusPaymentRequired},
		{"unknown user", repository.ErrUserNotFound, http.StatusNotFound},
		{"internal", context.DeadlineExceeded, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{submitErr: tt.err}
			router := newTestHandler(t, svc).SetupRouter()

			rec := postJSON(t, router, "/api/orders", bankSubmission())
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}

			var resp errorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("error body must be JSON: %v", err)
			}
			if resp.Error == "" {
				t.Fatalf("error body must carry a message")
			}
		})
	}
}

func TestGetOrders_NoContent(t *testing.T) {
	svc := &stubService{}
	router := newTestHandler(t, svc).SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/orders/me?email=jane%40tconnect.mw", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestGetOrders_MissingEmail(t *testing.T) {
	svc := &stubService{}
	router := newTestHandler(t, svc).SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/orders/me", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestAdminLogin(t *testing.T) {
	svc := &stubService{}
	router := newTestHandler(t, svc).SetupRouter()

	rec := postJSON(t, router, "/api/admin/login", loginRequest{AgentName: "Chisomo", Password: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	rec = postJSON(t, router, "/api/admin/login", loginRequest{AgentName: "Chisomo", Password: "hunter2"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status = %d, want %d", rec.Code, http.StatusOK)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Fatalf("login must set the admin cookie")
	}
}

func TestAdminRoutesRequireCookie(t *testing.T) {
	svc := &stubService{}
	router := newTestHandler(t, svc).SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestJoinChat_UsesAgentFromCookie(t *testing.T) {
	svc := &stubService{
		chat: &model.ChatSession{ID: "c-1", State: model.ChatStateActive, AgentName: "Chisomo"},
	}
	h := newTestHandler(t, svc)
	router := h.SetupRouter()

	login := postJSON(t, router, "/api/admin/login", loginRequest{AgentName: "Chisomo", Password: "hunter2"})
	cookie := login.Result().Cookies()[0]

	req := httptest.NewRequest(http.MethodPost, "/api/chats/c-1/join", bytes.NewReader([]byte("{}")))
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	var session model.ChatSession
	if err := json.NewDecoder(rec.Body).Decode(&session); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	if session.AgentName != "Chisomo" {
		t.Fatalf("agent = %q, want Chisomo", session.AgentName)
	}
}

func TestChatErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", repository.ErrChatNotFound, http.StatusNotFound},
		{"closed", service.ErrChatClosed, http.StatusConflict},
		{"stale transition", service.ErrInvalidTransition, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{messageErr: tt.err, chatErr: nil}
			svc.chat = &model.ChatSession{ID: "c-1", State: model.ChatStateBot}
			router := newTestHandler(t, svc).SetupRouter()

			rec := postJSON(t, router, "/api/chats/c-1/messages", messageRequest{Body: "hello"})
			if rec.Code != tt.want {
				t.Fatalf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestGetChat_NotFound(t *testing.T) {
	svc := &stubService{chatErr: repository.ErrChatNotFound}
	router := newTestHandler(t, svc).SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/chats/missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}

func TestGetUnreadCount(t *testing.T) {
	svc := &stubService{unread: 3}
	router := newTestHandler(t, svc).SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/notifications/unread-count?email=admin", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}

	var resp unreadCountResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Count != 3 {
		t.Fatalf("count = %d, want 3", resp.Count)
	}
}

func TestGetRates_JSONResponse(t *testing.T) {
	svc := &stubService{
		rateRecords: []model.RateRecord{{Category: model.RateCategoryGiftCard, Value: 1900}},
	}
	router := newTestHandler(t, svc).SetupRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/rates", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content-type = %q, want application/json", ct)
	}

	var records []model.RateRecord
	if err := json.NewDecoder(rec.Body).Decode(&records); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(records) != 1 || records[0].Value != 1900 {
		t.Fatalf("unexpected records: %+v", records)
	}
}
