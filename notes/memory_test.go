package notes

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateReturnsActiveNoteWithFreshID(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		note, err := s.Create(ctx, Draft{Content: "<h1>Hi</h1>", Title: "My Note"})
		require.NoError(t, err)

		assert.True(t, note.Active)
		assert.True(t, strings.HasPrefix(note.ID, "note_"))
		assert.Equal(t, "<h1>Hi</h1>", note.Content)
		assert.Equal(t, note.CreatedAt, note.UpdatedAt)

		_, dup := seen[note.ID]
		assert.False(t, dup, "id issued twice: %s", note.ID)
		seen[note.ID] = struct{}{}
	}
}

func TestCreateValidation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	var vErr *ValidationError

	_, err := s.Create(ctx, Draft{Title: "No content"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "content", vErr.Field)

	_, err = s.Create(ctx, Draft{Content: "<p>x</p>"})
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "title", vErr.Field)

	// Description is optional and defaults to empty.
	note, err := s.Create(ctx, Draft{Content: "<p>x</p>", Title: "t"})
	require.NoError(t, err)
	assert.Equal(t, "", note.Description)
}

func TestGetUnknownID(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.Get(context.Background(), "unknown_id")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRevokeAndRegenerate(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	note, err := s.Create(ctx, Draft{Content: "<h1>Hi</h1>", Title: "My Note", Description: "d"})
	require.NoError(t, err)

	rev, err := s.RevokeAndRegenerate(ctx, note.ID)
	require.NoError(t, err)

	assert.False(t, rev.Old.Active)
	assert.True(t, rev.Fresh.Active)
	assert.Equal(t, note.Content, rev.Fresh.Content)
	assert.Equal(t, note.Title, rev.Fresh.Title)
	assert.Equal(t, note.Description, rev.Fresh.Description)
	assert.NotEqual(t, rev.Old.ID, rev.Fresh.ID)

	// The old id stays resolvable for audit but reports inactive,
	// distinguishable from not-found.
	old, err := s.Get(ctx, note.ID)
	require.NoError(t, err)
	assert.False(t, old.Active)

	fresh, err := s.Get(ctx, rev.Fresh.ID)
	require.NoError(t, err)
	assert.True(t, fresh.Active)
}

func TestRevokeUnknownOrSuperseded(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	_, err := s.RevokeAndRegenerate(ctx, "unknown_id")
	assert.ErrorIs(t, err, ErrNotFound)

	note, err := s.Create(ctx, Draft{Content: "<p>x</p>", Title: "t"})
	require.NoError(t, err)
	_, err = s.RevokeAndRegenerate(ctx, note.ID)
	require.NoError(t, err)

	// Second revoke of the same, already superseded id.
	_, err = s.RevokeAndRegenerate(ctx, note.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestConcurrentRevokeSingleSuccessor(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	note, err := s.Create(ctx, Draft{Content: "<p>x</p>", Title: "t"})
	require.NoError(t, err)

	const workers = 16
	var wg sync.WaitGroup
	okCount := make(chan struct{}, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.RevokeAndRegenerate(ctx, note.ID); err == nil {
				okCount <- struct{}{}
			} else if !errors.Is(err, ErrNotFound) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	close(okCount)

	succeeded := 0
	for range okCount {
		succeeded++
	}
	assert.Equal(t, 1, succeeded, "exactly one revoke may mint a successor")

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestListOrder(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	step := 0
	s.clock = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Minute)
	}

	first, err := s.Create(ctx, Draft{Content: "<p>1</p>", Title: "first"})
	require.NoError(t, err)
	second, err := s.Create(ctx, Draft{Content: "<p>2</p>", Title: "second"})
	require.NoError(t, err)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
}

func TestListOrderDeterministicOnTies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	fixed := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	s.clock = func() time.Time { return fixed }

	for i := 0; i < 5; i++ {
		_, err := s.Create(ctx, Draft{Content: "<p>x</p>", Title: "t"})
		require.NoError(t, err)
	}

	first, err := s.List(ctx)
	require.NoError(t, err)
	second, err := s.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}
