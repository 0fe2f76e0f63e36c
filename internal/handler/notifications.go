package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tconnectmw/store-system/internal/model"
	"github.com/tconnectmw/store-system/internal/repository"
)

// GetNotifications returns an inbox for the email query parameter.
func (h *Handler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	notifications, err := h.service.Notifications(r.Context(), email)
	if err != nil {
		h.logger.Error("get notifications error", zap.Error(err), zap.String("email", email))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if notifications == nil {
		notifications = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notifications)
}

type unreadCountResponse struct {
	Count int64 `json:"count"`
}

// GetUnreadCount returns the number of unread alerts in an inbox.
func (h *Handler) GetUnreadCount(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	count, err := h.service.UnreadCount(r.Context(), email)
	if err != nil {
		h.logger.Error("unread count error", zap.Error(err), zap.String("email", email))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, unreadCountResponse{Count: count})
}

// MarkNotificationRead marks one alert as read.
func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid notification id")
		return
	}

	if err := h.service.MarkRead(r.Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotificationNotFound) {
			writeError(w, http.StatusNotFound, "notification not found")
			return
		}
		h.logger.Error("mark notification read error", zap.Error(err), zap.Int64("id", id))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusOK)
}

// MarkAllNotificationsRead marks every alert in an inbox as read.
func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	if err := h.service.MarkAllRead(r.Context(), email); err != nil {
		h.logger.Error("mark all read error", zap.Error(err), zap.String("email", email))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.WriteHeader(http.StatusOK)
}
