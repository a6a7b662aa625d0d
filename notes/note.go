// Package notes implements the note store: publishable HTML documents
// addressable by opaque, high-entropy identifiers that can be revoked and
// regenerated without losing the audit trail.
package notes

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Note is one publishable document plus metadata.
//
// An id, once minted, is never reassigned to different content. Revocation
// flips Active and bumps UpdatedAt; Content is immutable for the lifetime of
// the record.
type Note struct {
	ID          string    `json:"id" db:"id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Content     string    `json:"content" db:"content"`
	Active      bool      `json:"active" db:"active"`
	Creator     string    `json:"creator,omitempty" db:"creator"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// Draft carries the fields collected for a new note. Creator may be empty
// (anonymous).
type Draft struct {
	Content     string
	Title       string
	Description string
	Creator     string
}

// Revocation pairs the retired record with its freshly minted successor.
type Revocation struct {
	Old   Note `json:"old"`
	Fresh Note `json:"fresh"`
}

// Store is the note repository contract. All operations are safe for
// concurrent use; mutations of a given note are serialized by the
// implementation.
type Store interface {
	// Create validates the draft, mints a fresh id, and stores the note as
	// active. Returns *ValidationError when content or title is missing.
	Create(ctx context.Context, draft Draft) (Note, error)
	// Get returns the note by id without mutating it. Returns ErrNotFound
	// for unknown ids; revoked notes are returned with Active=false.
	Get(ctx context.Context, id string) (Note, error)
	// List returns every note, active and revoked, ordered by CreatedAt
	// descending with ties broken by id.
	List(ctx context.Context) ([]Note, error)
	// RevokeAndRegenerate retires an active note id and mints a successor
	// pointing at the same content. Returns ErrNotFound for unknown ids and
	// for ids that were already revoked and superseded.
	RevokeAndRegenerate(ctx context.Context, id string) (Revocation, error)
}

// ErrNotFound reports an unknown or already superseded note id.
var ErrNotFound = errors.New("note not found")

// ValidationError reports a missing required draft field. It is recoverable
// and surfaced to the caller as a rejection with an explanation.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("notes: missing required field %q", e.Field)
}

// Code returns a stable machine-readable error code.
func (e *ValidationError) Code() string {
	return "validation_error"
}

func validateDraft(d Draft) error {
	if d.Content == "" {
		return &ValidationError{Field: "content"}
	}
	if d.Title == "" {
		return &ValidationError{Field: "title"}
	}
	return nil
}
