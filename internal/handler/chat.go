package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/tconnectmw/store-system/internal/middleware"
	"github.com/tconnectmw/store-system/internal/model"
	"github.com/tconnectmw/store-system/internal/repository"
	"github.com/tconnectmw/store-system/internal/service"
)

type startChatRequest struct {
	Email        string `json:"email"`
	CustomerName string `json:"customerName"`
}

// StartChat opens a support chat in the bot state.
func (h *Handler) StartChat(w http.ResponseWriter, r *http.Request) {
	var req startChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	session, err := h.service.StartChat(r.Context(), req.Email, req.CustomerName)
	if err != nil {
		h.logger.Error("start chat error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, session)
}

type chatResponse struct {
	Session  *model.ChatSession  `json:"session"`
	Messages []model.ChatMessage `json:"messages"`
}

// GetChat returns a chat with its message history. Both consoles poll this.
func (h *Handler) GetChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")

	session, messages, err := h.service.Chat(r.Context(), chatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			writeError(w, http.StatusNotFound, "chat not found")
			return
		}
		h.logger.Error("get chat error", zap.Error(err), zap.String("chatID", chatID))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if messages == nil {
		messages = []model.ChatMessage{}
	}
	writeJSON(w, http.StatusOK, chatResponse{Session: session, Messages: messages})
}

// ListChats returns sessions for the admin console, optionally filtered by
// the state query parameter.
func (h *Handler) ListChats(w http.ResponseWriter, r *http.Request) {
	state := model.ChatState(r.URL.Query().Get("state"))
	if state != "" && !state.Valid() {
		writeError(w, http.StatusBadRequest, "unknown chat state")
		return
	}

	sessions, err := h.service.Chats(r.Context(), state)
	if err != nil {
		h.logger.Error("list chats error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if sessions == nil {
		sessions = []model.ChatSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

type messageRequest struct {
	Body       string `json:"body"`
	ImageURL   string `json:"imageUrl,omitempty"`
	NeedsAgent bool   `json:"needsAgent,omitempty"`
}

// PostCustomerMessage appends a customer message, escalating to waiting when
// the customer requests an agent.
func (h *Handler) PostCustomerMessage(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Body == "" && req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "message body is required")
		return
	}

	msg, err := h.service.CustomerMessage(r.Context(), chatID, req.Body, req.ImageURL, req.NeedsAgent)
	if err != nil {
		h.writeChatError(w, err, chatID)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// JoinChat assigns the authenticated agent to a waiting chat.
func (h *Handler) JoinChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")

	agent, ok := middleware.GetAgentFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	session, err := h.service.JoinChat(r.Context(), chatID, agent)
	if err != nil {
		h.writeChatError(w, err, chatID)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

// PostAgentMessage appends an agent message.
func (h *Handler) PostAgentMessage(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Body == "" && req.ImageURL == "" {
		writeError(w, http.StatusBadRequest, "message body is required")
		return
	}

	msg, err := h.service.AgentMessage(r.Context(), chatID, req.Body, req.ImageURL)
	if err != nil {
		h.writeChatError(w, err, chatID)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// CloseChat ends a session.
func (h *Handler) CloseChat(w http.ResponseWriter, r *http.Request) {
	chatID := chi.URLParam(r, "id")

	if err := h.service.CloseChat(r.Context(), chatID); err != nil {
		h.writeChatError(w, err, chatID)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (h *Handler) writeChatError(w http.ResponseWriter, err error, chatID string) {
	switch {
	case errors.Is(err, repository.ErrChatNotFound):
		writeError(w, http.StatusNotFound, "chat not found")
	case errors.Is(err, service.ErrChatClosed):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidTransition):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("chat error", zap.Error(err), zap.String("chatID", chatID))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
