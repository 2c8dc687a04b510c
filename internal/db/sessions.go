package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RichardoC/chatd/internal/models"
	"github.com/google/uuid"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (db *Database) CreateSession(ctx context.Context, name string) (*models.Session, error) {
	session := db.newSession(name)
	if err := db.insertSession(ctx, db.db, session); err != nil {
		return nil, err
	}
	return session, nil
}

// CreateSessionWithMessage creates a session and stores its first exchange
// atomically, so a session never exists without the turn that created it.
func (db *Database) CreateSessionWithMessage(ctx context.Context, name, input, response string) (*models.Session, *models.Message, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	session := db.newSession(name)
	if err := db.insertSession(ctx, tx, session); err != nil {
		return nil, nil, err
	}

	msg, err := db.insertMessage(ctx, tx, session.ID, input, response, session.CreatedAt)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, err
	}
	return session, msg, nil
}

func (db *Database) newSession(name string) *models.Session {
	now := db.timestamp()
	return &models.Session{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (db *Database) insertSession(ctx context.Context, ex execer, session *models.Session) error {
	query := `
        INSERT INTO sessions (id, name, created_at, updated_at)
        VALUES (?, ?, ?, ?)`

	if _, err := ex.ExecContext(ctx, db.q(query), session.ID, session.Name, session.CreatedAt, session.UpdatedAt); err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetSession returns ErrNotFound when no session has the given id.
func (db *Database) GetSession(ctx context.Context, id string) (*models.Session, error) {
	query := `
        SELECT id, name, created_at, updated_at
        FROM sessions
        WHERE id = ?`

	var s models.Session
	err := db.db.QueryRowContext(ctx, db.q(query), id).Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session %s: %w", id, err)
	}
	normalise(&s)
	return &s, nil
}

// ListSessions returns every session, most recently updated first.
func (db *Database) ListSessions(ctx context.Context) ([]models.Session, error) {
	query := `
        SELECT id, name, created_at, updated_at
        FROM sessions
        ORDER BY updated_at DESC, created_at DESC`

	rows, err := db.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		var s models.Session
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		normalise(&s)
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// DeleteSession removes the session together with its messages.
func (db *Database) DeleteSession(ctx context.Context, id string) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, db.q("DELETE FROM messages WHERE session_id = ?"), id); err != nil {
		return fmt.Errorf("failed to delete messages: %w", err)
	}

	res, err := tx.ExecContext(ctx, db.q("DELETE FROM sessions WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

func normalise(s *models.Session) {
	s.CreatedAt = s.CreatedAt.UTC()
	s.UpdatedAt = s.UpdatedAt.UTC()
}
