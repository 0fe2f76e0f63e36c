package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/tconnectmw/store-system/internal/model"
)

// CreateChat opens a session in the bot state.
func (r *PostgresRepository) CreateChat(ctx context.Context, email, customerName string) (*model.ChatSession, error) {
	id := uuid.NewString()
	row := r.pool.QueryRow(ctx,
		`INSERT INTO chats (id, email, customer_name, state)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, email, customer_name, agent_name, state, created_at, updated_at`,
		id, email, customerName, string(model.ChatStateBot),
	)

	session, err := scanChat(row)
	if err != nil {
		return nil, fmt.Errorf("create chat: %w", err)
	}
	return session, nil
}

// GetChat returns one session.
func (r *PostgresRepository) GetChat(ctx context.Context, id string) (*model.ChatSession, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT id, email, customer_name, agent_name, state, created_at, updated_at
		 FROM chats WHERE id = $1`,
		id,
	)

	session, err := scanChat(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrChatNotFound
		}
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return session, nil
}

// ListChats returns sessions for the admin console, most recently updated
// first. An empty state returns every session.
func (r *PostgresRepository) ListChats(ctx context.Context, state model.ChatState) ([]model.ChatSession, error) {
	query := `SELECT id, email, customer_name, agent_name, state, created_at, updated_at
	          FROM chats`
	args := []any{}
	if state != "" {
		query += ` WHERE state = $1`
		args = append(args, string(state))
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select chats: %w", err)
	}
	defer rows.Close()

	var sessions []model.ChatSession
	for rows.Next() {
		session, err := scanChat(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		sessions = append(sessions, *session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return sessions, nil
}

func scanChat(row pgx.Row) (*model.ChatSession, error) {
	var (
		s     model.ChatSession
		state string
	)
	err := row.Scan(&s.ID, &s.Email, &s.CustomerName, &s.AgentName, &state, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.State = model.ChatState(state)
	return &s, nil
}

// TransitionChat moves a session from one state to another with a
// compare-and-set on the current state. A non-empty agentName is recorded on
// the session. Losing the race returns ErrStaleChatState.
func (r *PostgresRepository) TransitionChat(ctx context.Context, id string, from, to model.ChatState, agentName string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE chats
		 SET state = $1,
		     agent_name = COALESCE(NULLIF($2, ''), agent_name),
		     updated_at = now()
		 WHERE id = $3 AND state = $4`,
		string(to), agentName, id, string(from),
	)
	if err != nil {
		return fmt.Errorf("transition chat: %w", err)
	}

	if tag.RowsAffected() == 0 {
		if _, err := r.GetChat(ctx, id); err != nil {
			return err
		}
		return ErrStaleChatState
	}
	return nil
}

// AddChatMessage appends a message and bumps the session's updated_at.
func (r *PostgresRepository) AddChatMessage(ctx context.Context, chatID string, sender model.ChatSender, body, imageURL string) (*model.ChatMessage, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var m model.ChatMessage
	var senderCol string
	err = tx.QueryRow(ctx,
		`INSERT INTO chat_messages (chat_id, sender, body, image_url)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, chat_id, sender, body, image_url, created_at`,
		chatID, string(sender), body, imageURL,
	).Scan(&m.ID, &m.ChatID, &senderCol, &m.Body, &m.ImageURL, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert chat message: %w", err)
	}
	m.Sender = model.ChatSender(senderCol)

	if _, err := tx.Exec(ctx, `UPDATE chats SET updated_at = now() WHERE id = $1`, chatID); err != nil {
		return nil, fmt.Errorf("touch chat: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &m, nil
}

// GetChatMessages returns every message of a session in send order.
func (r *PostgresRepository) GetChatMessages(ctx context.Context, chatID string) ([]model.ChatMessage, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, chat_id, sender, body, image_url, created_at
		 FROM chat_messages WHERE chat_id = $1 ORDER BY id`,
		chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("select chat messages: %w", err)
	}
	defer rows.Close()

	var messages []model.ChatMessage
	for rows.Next() {
		var (
			m      model.ChatMessage
			sender string
		)
		if err := rows.Scan(&m.ID, &m.ChatID, &sender, &m.Body, &m.ImageURL, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.Sender = model.ChatSender(sender)
		messages = append(messages, m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return messages, nil
}
