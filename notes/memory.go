package notes

import (
	"context"
	"sort"
	"sync"
	"time"

	"notegate/core/logger"

	"log/slog"
)

// MemoryStore keeps notes in process memory behind a single mutex.
//
// This is the non-durable storage contract inherited from the original
// deployment: a restart loses every note. Revoked records stay in the map so
// their ids can never be re-minted within the store's lifetime.
type MemoryStore struct {
	mu    sync.Mutex
	byID  map[string]Note
	clock func() time.Time
}

// NewMemoryStore constructs an empty in-memory note store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]Note),
		clock: time.Now,
	}
}

// Create validates the draft and stores a fresh active note.
func (s *MemoryStore) Create(ctx context.Context, draft Draft) (Note, error) {
	if err := validateDraft(draft); err != nil {
		return Note{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock().UTC()
	note := Note{
		ID:          s.freshIDLocked(),
		Title:       draft.Title,
		Description: draft.Description,
		Content:     draft.Content,
		Active:      true,
		Creator:     draft.Creator,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.byID[note.ID] = note

	logger.Info(ctx, "notes", "note.created",
		slog.String("note_id", note.ID),
		slog.String("status", "ok"),
	)
	return note, nil
}

// Get returns the note by id without mutating it.
func (s *MemoryStore) Get(_ context.Context, id string) (Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	note, ok := s.byID[id]
	if !ok {
		return Note{}, ErrNotFound
	}
	return note, nil
}

// List returns all notes ordered by CreatedAt descending, ties broken by id.
func (s *MemoryStore) List(_ context.Context) ([]Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Note, 0, len(s.byID))
	for _, note := range s.byID {
		out = append(out, note)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

// RevokeAndRegenerate retires an active note and mints its successor under
// one lock acquisition, so concurrent revokes of the same id cannot
// double-mint.
func (s *MemoryStore) RevokeAndRegenerate(ctx context.Context, id string) (Revocation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.byID[id]
	if !ok || !old.Active {
		return Revocation{}, ErrNotFound
	}

	now := s.clock().UTC()
	old.Active = false
	old.UpdatedAt = now
	s.byID[old.ID] = old

	fresh := Note{
		ID:          s.freshIDLocked(),
		Title:       old.Title,
		Description: old.Description,
		Content:     old.Content,
		Active:      true,
		Creator:     old.Creator,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.byID[fresh.ID] = fresh

	logger.Info(ctx, "notes", "note.revoked",
		slog.String("old_id", old.ID),
		slog.String("fresh_id", fresh.ID),
		slog.String("status", "ok"),
	)
	return Revocation{Old: old, Fresh: fresh}, nil
}

// freshIDLocked mints an id that is not present in the map. A collision of
// 128-bit random tokens is negligible; the loop only guards the invariant.
func (s *MemoryStore) freshIDLocked() string {
	for {
		id := NewID()
		if _, exists := s.byID[id]; !exists {
			return id
		}
	}
}
