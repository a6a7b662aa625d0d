package state

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpdateCreatesAndDeletesSessions(t *testing.T) {
	m := NewManager(Options{})

	assert.Equal(t, StateIdle, m.Current(7))
	assert.False(t, m.InProgress(7))

	m.Update(7, func(s *Session) {
		s.State = State("awaiting_content")
		s.Set("creator", "7")
	})
	assert.True(t, m.InProgress(7))
	assert.Equal(t, State("awaiting_content"), m.Current(7))
	assert.Equal(t, 1, m.Len())

	// Leaving the session idle deletes it.
	m.Update(7, func(s *Session) {
		assert.Equal(t, "7", s.Get("creator"))
		s.State = StateIdle
	})
	assert.False(t, m.InProgress(7))
	assert.Equal(t, 0, m.Len())
}

func TestUpdateSerializesPerPrincipal(t *testing.T) {
	m := NewManager(Options{})

	const workers = 32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Update(1, func(s *Session) {
				// Non-atomic read-modify-write; only safe if Update serializes.
				if s.Get("count") == "" {
					s.Set("count", "x")
				} else {
					s.Set("count", s.Get("count")+"x")
				}
				s.State = State("busy")
			})
		}()
	}
	wg.Wait()

	var got string
	m.Update(1, func(s *Session) {
		got = s.Get("count")
		s.State = StateIdle
	})
	require.Len(t, got, workers)
}

func TestJanitorEvictsExpiredSessions(t *testing.T) {
	m := NewManager(Options{TTL: time.Minute})
	now := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
	m.clock = func() time.Time { return now }

	m.Update(1, func(s *Session) { s.State = State("busy") })
	m.Update(2, func(s *Session) { s.State = State("busy") })

	// Only user 1 goes stale.
	now = now.Add(30 * time.Second)
	m.Update(2, func(s *Session) { s.State = State("busy") })
	now = now.Add(45 * time.Second)

	m.evictExpired(context.Background())
	assert.False(t, m.InProgress(1))
	assert.True(t, m.InProgress(2))
}

func TestZeroTTLDisablesJanitor(t *testing.T) {
	m := NewManager(Options{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m.Update(1, func(s *Session) { s.State = State("busy") })
	m.StartJanitor(ctx)

	// Nothing is ever evicted without a TTL.
	m.evictExpired(ctx)
	assert.True(t, m.InProgress(1))
}
