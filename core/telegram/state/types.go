// Package state provides a keyed session store for multi-step Telegram
// conversations. It is domain-agnostic: applications define their own states
// and stash draft fields in the session data map.
package state

import "time"

// State identifies a finite-state-machine step in a conversation.
type State string

// StateIdle indicates there is no active conversation with the user.
const StateIdle State = "idle"

// Session stores the conversation state and draft data for one principal.
type Session struct {
	State     State
	Data      map[string]string
	StartedAt time.Time
	UpdatedAt time.Time
}

// Set stores a draft field on the session.
func (s *Session) Set(key, value string) {
	if s.Data == nil {
		s.Data = make(map[string]string)
	}
	s.Data[key] = value
}

// Get returns a draft field previously stored on the session.
func (s *Session) Get(key string) string {
	return s.Data[key]
}
