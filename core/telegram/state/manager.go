package state

import (
	"context"
	"sync"
	"time"

	"notegate/core/logger"

	"log/slog"
)

// Manager owns all sessions, keyed by user id. Every read-modify-write of a
// session runs under the manager lock, so two concurrent updates from the
// same principal can never interleave mid-transition.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	ttl      time.Duration
	clock    func() time.Time
}

// Options configure a Manager.
type Options struct {
	// TTL evicts sessions whose last update is older than this bound.
	// Zero disables eviction entirely.
	TTL time.Duration
}

// NewManager constructs an empty session manager.
func NewManager(opts Options) *Manager {
	return &Manager{
		sessions: make(map[int64]*Session),
		ttl:      opts.TTL,
		clock:    time.Now,
	}
}

// Update runs fn against the user's session under the manager lock, creating
// an idle session first if none exists. A session left in StateIdle by fn is
// deleted, which is how a completed or cancelled conversation ends.
func (m *Manager) Update(userID int64, fn func(s *Session)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	sess, ok := m.sessions[userID]
	if !ok {
		now := m.clock()
		sess = &Session{State: StateIdle, Data: make(map[string]string), StartedAt: now}
		m.sessions[userID] = sess
	}

	fn(sess)
	sess.UpdatedAt = m.clock()

	if sess.State == StateIdle {
		delete(m.sessions, userID)
	}
}

// Current returns the user's state, or StateIdle when no session exists.
func (m *Manager) Current(userID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess, ok := m.sessions[userID]; ok {
		return sess.State
	}
	return StateIdle
}

// InProgress reports whether the user has an active session.
func (m *Manager) InProgress(userID int64) bool {
	return m.Current(userID) != StateIdle
}

// Clear removes the user's session regardless of its state.
func (m *Manager) Clear(userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, userID)
}

// Len reports the number of live sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// StartJanitor evicts abandoned sessions in the background until ctx is done.
// It is a no-op when no TTL is configured: the historical behavior keeps
// abandoned sessions until process restart.
func (m *Manager) StartJanitor(ctx context.Context) {
	if m.ttl <= 0 {
		return
	}
	interval := m.ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.evictExpired(ctx)
			}
		}
	}()
}

func (m *Manager) evictExpired(ctx context.Context) {
	if m.ttl <= 0 {
		return
	}
	m.mu.Lock()
	cutoff := m.clock().Add(-m.ttl)
	var evicted []int64
	for userID, sess := range m.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(m.sessions, userID)
			evicted = append(evicted, userID)
		}
	}
	m.mu.Unlock()

	for _, userID := range evicted {
		logger.Info(ctx, "tg.state", "session.evicted",
			slog.Int64("user_id", userID),
			slog.String("status", "ok"),
		)
	}
}
