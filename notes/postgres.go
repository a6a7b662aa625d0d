package notes

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"notegate/core/logger"

	"log/slog"
)

// PostgresStore persists notes in PostgreSQL via sqlx. Schema lives in the
// migrations directory and is applied with golang-migrate at startup.
type PostgresStore struct {
	db *sqlx.DB
}

// NewPostgresStore wraps an open connection pool.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const insertNoteQuery = `
	INSERT INTO notes (id, title, description, content, active, creator, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

// Create validates the draft and inserts a fresh active note.
func (s *PostgresStore) Create(ctx context.Context, draft Draft) (Note, error) {
	if err := validateDraft(draft); err != nil {
		return Note{}, err
	}

	now := time.Now().UTC()
	note := Note{
		ID:          NewID(),
		Title:       draft.Title,
		Description: draft.Description,
		Content:     draft.Content,
		Active:      true,
		Creator:     draft.Creator,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if _, err := s.db.ExecContext(ctx, insertNoteQuery,
		note.ID, note.Title, note.Description, note.Content,
		note.Active, note.Creator, note.CreatedAt, note.UpdatedAt,
	); err != nil {
		return Note{}, fmt.Errorf("insert note: %w", err)
	}

	logger.Info(ctx, "notes", "note.created",
		slog.String("note_id", note.ID),
		slog.String("status", "ok"),
	)
	return note, nil
}

// Get returns the note by id without mutating it.
func (s *PostgresStore) Get(ctx context.Context, id string) (Note, error) {
	var note Note
	err := s.db.GetContext(ctx, &note,
		`SELECT id, title, description, content, active, creator, created_at, updated_at
		 FROM notes WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Note{}, ErrNotFound
	}
	if err != nil {
		return Note{}, fmt.Errorf("select note: %w", err)
	}
	return note, nil
}

// List returns all notes ordered by CreatedAt descending, ties broken by id.
func (s *PostgresStore) List(ctx context.Context) ([]Note, error) {
	var out []Note
	err := s.db.SelectContext(ctx, &out,
		`SELECT id, title, description, content, active, creator, created_at, updated_at
		 FROM notes ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	return out, nil
}

// RevokeAndRegenerate retires an active note and mints its successor inside
// one transaction. The row lock serializes concurrent revokes of the same id.
func (s *PostgresStore) RevokeAndRegenerate(ctx context.Context, id string) (Revocation, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Revocation{}, fmt.Errorf("begin revoke tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var old Note
	err = tx.GetContext(ctx, &old,
		`SELECT id, title, description, content, active, creator, created_at, updated_at
		 FROM notes WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Revocation{}, ErrNotFound
	}
	if err != nil {
		return Revocation{}, fmt.Errorf("lock note: %w", err)
	}
	if !old.Active {
		return Revocation{}, ErrNotFound
	}

	now := time.Now().UTC()
	old.Active = false
	old.UpdatedAt = now
	if _, err := tx.ExecContext(ctx,
		`UPDATE notes SET active = FALSE, updated_at = $2 WHERE id = $1`, old.ID, now,
	); err != nil {
		return Revocation{}, fmt.Errorf("deactivate note: %w", err)
	}

	fresh := Note{
		ID:          NewID(),
		Title:       old.Title,
		Description: old.Description,
		Content:     old.Content,
		Active:      true,
		Creator:     old.Creator,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := tx.ExecContext(ctx, insertNoteQuery,
		fresh.ID, fresh.Title, fresh.Description, fresh.Content,
		fresh.Active, fresh.Creator, fresh.CreatedAt, fresh.UpdatedAt,
	); err != nil {
		return Revocation{}, fmt.Errorf("insert successor: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Revocation{}, fmt.Errorf("commit revoke: %w", err)
	}

	logger.Info(ctx, "notes", "note.revoked",
		slog.String("old_id", old.ID),
		slog.String("fresh_id", fresh.ID),
		slog.String("status", "ok"),
	)
	return Revocation{Old: old, Fresh: fresh}, nil
}
