package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	custommiddleware "github.com/tconnectmw/store-system/internal/middleware"
)

// SetupRouter wires the HTTP routes and middleware of the storefront API.
// Back-office routes carry the admin cookie check; everything else trusts the
// email the caller presents, matching the external-auth model.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))

	admin := h.adminAuth.Middleware

	r.Route("/api", func(r chi.Router) {
		r.Post("/admin/login", h.AdminLogin)

		r.Get("/rates", h.GetRates)
		r.With(admin).Post("/rates", h.SetRate)

		r.Get("/products", h.GetProducts)
		r.With(admin).Post("/products", h.AddProduct)

		r.Post("/uploads", h.UploadFile)

		r.Post("/orders", h.SubmitOrder)
		r.Get("/orders/me", h.GetOrders)
		r.With(admin).Get("/orders", h.ListOrders)
		r.With(admin).Patch("/orders/{id}", h.UpdateOrderStatus)

		r.Post("/users/upsert", h.SyncProfile)
		r.Get("/users/profile", h.GetProfile)

		r.Route("/chats", func(r chi.Router) {
			r.Post("/", h.StartChat)
			r.With(admin).Get("/", h.ListChats)
			r.Get("/{id}", h.GetChat)
			r.Post("/{id}/messages", h.PostCustomerMessage)
			r.With(admin).Post("/{id}/join", h.JoinChat)
			r.With(admin).Post("/{id}/agent-message", h.PostAgentMessage)
			r.With(admin).Post("/{id}/close", h.CloseChat)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", h.GetNotifications)
			r.Get("/unread-count", h.GetUnreadCount)
			r.Patch("/{id}/read", h.MarkNotificationRead)
			r.Patch("/read-all", h.MarkAllNotificationsRead)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	return r
}
