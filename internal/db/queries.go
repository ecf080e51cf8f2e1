package db

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type Turn struct {
	ID           int64
	SessionID    string
	UserMessage  string
	ResponseText string
	Model        sql.NullString
}

const upsertSession = `
INSERT INTO sessions (id, channel) VALUES (?, ?)
ON CONFLICT(id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP`

type UpsertSessionParams struct {
	ID      string
	Channel string
}

func (q *Queries) UpsertSession(ctx context.Context, arg UpsertSessionParams) error {
	_, err := q.db.ExecContext(ctx, upsertSession, arg.ID, arg.Channel)
	return err
}

const touchSession = `
UPDATE sessions SET updated_at = CURRENT_TIMESTAMP WHERE id = ?`

// TouchSession bumps updated_at and reports whether the session exists.
func (q *Queries) TouchSession(ctx context.Context, id string) (bool, error) {
	res, err := q.db.ExecContext(ctx, touchSession, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

const insertTurn = `
INSERT INTO turns (session_id, user_message, response_text, model) VALUES (?, ?, ?, ?)`

type InsertTurnParams struct {
	SessionID    string
	UserMessage  string
	ResponseText string
	Model        sql.NullString
}

func (q *Queries) InsertTurn(ctx context.Context, arg InsertTurnParams) error {
	_, err := q.db.ExecContext(ctx, insertTurn, arg.SessionID, arg.UserMessage, arg.ResponseText, arg.Model)
	return err
}

const getTurnsBySession = `
SELECT id, session_id, user_message, response_text, model
FROM turns WHERE session_id = ? ORDER BY id`

func (q *Queries) GetTurnsBySession(ctx context.Context, sessionID string) ([]Turn, error) {
	rows, err := q.db.QueryContext(ctx, getTurnsBySession, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.SessionID, &t.UserMessage, &t.ResponseText, &t.Model); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
