package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/RichardoC/chatd/internal/models"
)

// AppendMessage stores an exchange under the session and bumps the
// session's updated_at in the same transaction.
func (db *Database) AppendMessage(ctx context.Context, sessionID, input, response string) (*models.Message, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var updatedAt time.Time
	err = tx.QueryRowContext(ctx, db.q("SELECT updated_at FROM sessions WHERE id = ?"), sessionID).Scan(&updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}

	// updated_at never moves backwards, even if the wall clock does.
	now := db.timestamp()
	if now.Before(updatedAt) {
		now = updatedAt.UTC()
	}

	if _, err := tx.ExecContext(ctx, db.q("UPDATE sessions SET updated_at = ? WHERE id = ?"), now, sessionID); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}

	msg, err := db.insertMessage(ctx, tx, sessionID, input, response, now)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return msg, nil
}

func (db *Database) insertMessage(ctx context.Context, tx *sql.Tx, sessionID, input, response string, at time.Time) (*models.Message, error) {
	msg := &models.Message{
		SessionID: sessionID,
		Input:     input,
		Response:  response,
		CreatedAt: at,
	}

	query := `
        INSERT INTO messages (session_id, input, response, created_at)
        VALUES (?, ?, ?, ?)
        RETURNING id`

	if err := tx.QueryRowContext(ctx, db.q(query), sessionID, input, response, at).Scan(&msg.ID); err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}
	return msg, nil
}

// ListMessages returns the session's messages in the order they were sent.
func (db *Database) ListMessages(ctx context.Context, sessionID string) ([]models.Message, error) {
	query := `
        SELECT id, session_id, input, response, created_at
        FROM messages
        WHERE session_id = ?
        ORDER BY created_at ASC, id ASC`

	rows, err := db.db.QueryContext(ctx, db.q(query), sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	messages := make([]models.Message, 0)
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.SessionID, &msg.Input, &msg.Response, &msg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		msg.CreatedAt = msg.CreatedAt.UTC()
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// FirstMessage returns the earliest message of the session, or nil if it
// has none.
func (db *Database) FirstMessage(ctx context.Context, sessionID string) (*models.Message, error) {
	query := `
        SELECT id, session_id, input, response, created_at
        FROM messages
        WHERE session_id = ?
        ORDER BY created_at ASC, id ASC
        LIMIT 1`

	var msg models.Message
	err := db.db.QueryRowContext(ctx, db.q(query), sessionID).
		Scan(&msg.ID, &msg.SessionID, &msg.Input, &msg.Response, &msg.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get first message: %w", err)
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	return &msg, nil
}
