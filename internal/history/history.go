// Package history persists conversation turns per session so a later
// invocation with the same session ID sees the earlier exchange.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"laila/internal/db"
	"laila/internal/llm"
)

var ErrUnknownSession = errors.New("unknown session")

type Store struct {
	conn *sql.DB
	q    *db.Queries
}

func NewStore(database *db.DB) *Store {
	return &Store{conn: database.Conn(), q: db.New(database.Conn())}
}

func (s *Store) EnsureSession(ctx context.Context, sessionID, channel string) error {
	if err := s.q.UpsertSession(ctx, db.UpsertSessionParams{ID: sessionID, Channel: channel}); err != nil {
		return fmt.Errorf("upserting session %s: %w", sessionID, err)
	}
	return nil
}

// SaveTurn appends a turn and bumps the session's updated_at in one
// transaction. The session must already exist.
func (s *Store) SaveTurn(ctx context.Context, sessionID, userMessage, response, model string) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("saving turn for %s: %w", sessionID, err)
	}
	defer tx.Rollback()

	q := s.q.WithTx(tx)
	ok, err := q.TouchSession(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("saving turn for %s: %w", sessionID, err)
	}
	if !ok {
		return fmt.Errorf("saving turn for %s: %w", sessionID, ErrUnknownSession)
	}
	err = q.InsertTurn(ctx, db.InsertTurnParams{
		SessionID:    sessionID,
		UserMessage:  userMessage,
		ResponseText: response,
		Model:        sql.NullString{String: model, Valid: model != ""},
	})
	if err != nil {
		return fmt.Errorf("saving turn for %s: %w", sessionID, err)
	}
	return tx.Commit()
}

// LoadHistory replays stored turns as alternating user and assistant
// messages. Tool traffic inside a turn is not kept.
func (s *Store) LoadHistory(ctx context.Context, sessionID string) ([]llm.Message, error) {
	turns, err := s.q.GetTurnsBySession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("loading turns for %s: %w", sessionID, err)
	}

	msgs := make([]llm.Message, 0, 2*len(turns))
	for _, t := range turns {
		msgs = append(msgs,
			llm.UserMessage(t.UserMessage),
			llm.Message{Role: llm.RoleAssistant, Content: t.ResponseText},
		)
	}
	return msgs, nil
}
