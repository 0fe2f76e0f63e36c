package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tconnectmw/store-system/internal/model"
	"github.com/tconnectmw/store-system/internal/repository"
)

// StartChat opens a session in the bot state and posts the bot greeting.
func (s *Service) StartChat(ctx context.Context, email, customerName string) (*model.ChatSession, error) {
	session, err := s.repo.CreateChat(ctx, email, customerName)
	if err != nil {
		return nil, err
	}

	_, err = s.repo.AddChatMessage(ctx, session.ID, model.ChatSenderBot,
		"Hi! I'm the TConnect assistant. Ask me anything, or request an agent to talk to a human.", "")
	if err != nil {
		s.logger.Warn("post bot greeting failed", zap.String("chatId", session.ID), zap.Error(err))
	}

	return session, nil
}

// Chat returns a session with its full message history.
func (s *Service) Chat(ctx context.Context, id string) (*model.ChatSession, []model.ChatMessage, error) {
	session, err := s.repo.GetChat(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	messages, err := s.repo.GetChatMessages(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	return session, messages, nil
}

// Chats lists sessions for the admin console, optionally filtered by state.
func (s *Service) Chats(ctx context.Context, state model.ChatState) ([]model.ChatSession, error) {
	if state != "" && !state.Valid() {
		return nil, ErrInvalidTransition
	}
	return s.repo.ListChats(ctx, state)
}

// CustomerMessage appends a customer message. When needsAgent is set and the
// chat is still with the bot, the session escalates to waiting. Losing the
// escalation race is fine: the chat is already at waiting or beyond.
func (s *Service) CustomerMessage(ctx context.Context, chatID, body, imageURL string, needsAgent bool) (*model.ChatMessage, error) {
	session, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if session.State == model.ChatStateClosed {
		return nil, ErrChatClosed
	}

	msg, err := s.repo.AddChatMessage(ctx, chatID, model.ChatSenderCustomer, body, imageURL)
	if err != nil {
		return nil, err
	}

	if needsAgent && session.State == model.ChatStateBot {
		err := s.repo.TransitionChat(ctx, chatID, model.ChatStateBot, model.ChatStateWaiting, "")
		if err != nil && !errors.Is(err, repository.ErrStaleChatState) {
			return nil, err
		}
	}

	return msg, nil
}

// JoinChat assigns an agent and activates the session.
func (s *Service) JoinChat(ctx context.Context, chatID, agentName string) (*model.ChatSession, error) {
	session, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if session.State == model.ChatStateClosed {
		return nil, ErrChatClosed
	}
	if !session.State.CanTransition(model.ChatStateActive) {
		return nil, ErrInvalidTransition
	}

	if err := s.repo.TransitionChat(ctx, chatID, session.State, model.ChatStateActive, agentName); err != nil {
		if errors.Is(err, repository.ErrStaleChatState) {
			return nil, ErrInvalidTransition
		}
		return nil, err
	}

	_, err = s.repo.AddChatMessage(ctx, chatID, model.ChatSenderBot,
		fmt.Sprintf("%s joined the chat", agentName), "")
	if err != nil {
		s.logger.Warn("post join message failed", zap.String("chatId", chatID), zap.Error(err))
	}

	return s.repo.GetChat(ctx, chatID)
}

// AgentMessage appends an agent message to an open session.
func (s *Service) AgentMessage(ctx context.Context, chatID, body, imageURL string) (*model.ChatMessage, error) {
	session, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if session.State == model.ChatStateClosed {
		return nil, ErrChatClosed
	}

	return s.repo.AddChatMessage(ctx, chatID, model.ChatSenderAgent, body, imageURL)
}

// CloseChat ends a session. Closing is terminal: a closed chat accepts no
// messages and no further transitions.
func (s *Service) CloseChat(ctx context.Context, chatID string) error {
	session, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if session.State == model.ChatStateClosed {
		return ErrChatClosed
	}

	if err := s.repo.TransitionChat(ctx, chatID, session.State, model.ChatStateClosed, ""); err != nil {
		if errors.Is(err, repository.ErrStaleChatState) {
			return ErrInvalidTransition
		}
		return err
	}
	return nil
}
