// Package conversation implements the multi-step authoring flow that
// assembles a note from a sequence of disconnected admin chat messages.
//
// The flow is a per-principal linear state machine:
//
//	Idle -> AwaitingContent -> AwaitingTitle -> AwaitingDescription -> Idle
//
// The final transition persists exactly one note and deletes the session.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"notegate/core/logger"
	"notegate/core/telegram/state"
	"notegate/notes"

	"log/slog"
)

// Authoring states. StateIdle (no session) is owned by the state package.
const (
	StateAwaitingContent     = state.State("awaiting_content")
	StateAwaitingTitle       = state.State("awaiting_title")
	StateAwaitingDescription = state.State("awaiting_description")
)

// SkipSentinel maps to an empty description on the final step.
const SkipSentinel = "-"

// maxDocumentBytes bounds uploaded HTML documents.
const maxDocumentBytes = 1 << 20

// errDocumentTooLarge rejects uploads that exceed maxDocumentBytes rather
// than storing a truncated note.
var errDocumentTooLarge = errors.New("document exceeds size limit")

const (
	draftContentKey = "content"
	draftTitleKey   = "title"
)

// Messenger delivers outbound chat messages. Delivery is fire-and-forget:
// implementations log failures and never report them back, so a failed send
// cannot roll back a state transition.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string)
	SendNoteCard(ctx context.Context, chatID int64, note notes.Note, links notes.Links)
}

// Engine drives authoring sessions for all principals.
type Engine struct {
	sessions  *state.Manager
	store     notes.Store
	links     *notes.LinkBuilder
	messenger Messenger
	adminID   int64
}

// NewEngine wires the conversation engine.
func NewEngine(sessions *state.Manager, store notes.Store, links *notes.LinkBuilder, messenger Messenger, adminID int64) *Engine {
	return &Engine{
		sessions:  sessions,
		store:     store,
		links:     links,
		messenger: messenger,
		adminID:   adminID,
	}
}

// InProgress reports whether the principal has an active authoring session.
func (e *Engine) InProgress(userID int64) bool {
	return e.sessions.InProgress(userID)
}

// Start handles the initiation command. Unauthorized principals receive a
// polite rejection and no state is mutated; the reply never reveals whether
// any notes exist. An admin re-issuing the command restarts the draft from
// scratch, as the original flow did.
func (e *Engine) Start(ctx context.Context, userID, chatID int64) {
	if userID != e.adminID {
		logger.Warn(ctx, "conversation", "session.rejected",
			slog.Int64("user_id", userID),
			slog.String("cause", "not_admin"),
		)
		e.messenger.SendText(ctx, chatID, msgOnlyAdmin)
		return
	}

	e.sessions.Update(userID, func(s *state.Session) {
		s.State = StateAwaitingContent
		s.Data = map[string]string{}
	})
	logger.Info(ctx, "conversation", "session.started",
		slog.Int64("user_id", userID),
		slog.String("state", string(StateAwaitingContent)),
	)
	e.messenger.SendText(ctx, chatID, msgPromptContent)
}

// Cancel aborts an in-progress session.
func (e *Engine) Cancel(ctx context.Context, userID, chatID int64) {
	if userID != e.adminID {
		e.messenger.SendText(ctx, chatID, msgOnlyAdmin)
		return
	}
	if !e.sessions.InProgress(userID) {
		e.messenger.SendText(ctx, chatID, msgNothingToCancel)
		return
	}
	e.sessions.Clear(userID)
	logger.Info(ctx, "conversation", "session.cancelled",
		slog.Int64("user_id", userID),
	)
	e.messenger.SendText(ctx, chatID, msgCancelled)
}

// HandleText advances the principal's session with a text payload. Input
// that does not fit the current step is silently ignored and the session is
// left unchanged, matching the original flow.
func (e *Engine) HandleText(ctx context.Context, userID, chatID int64, text string) {
	if userID != e.adminID {
		return
	}

	e.sessions.Update(userID, func(s *state.Session) {
		switch s.State {
		case StateAwaitingContent:
			if strings.TrimSpace(text) == "" {
				return
			}
			s.Set(draftContentKey, text)
			s.State = StateAwaitingTitle
			e.messenger.SendText(ctx, chatID, msgPromptTitle)

		case StateAwaitingTitle:
			title := strings.TrimSpace(text)
			if title == "" {
				return
			}
			s.Set(draftTitleKey, title)
			s.State = StateAwaitingDescription
			e.messenger.SendText(ctx, chatID, msgPromptDescription)

		case StateAwaitingDescription:
			description := strings.TrimSpace(text)
			if description == SkipSentinel {
				description = ""
			}
			e.finalize(ctx, s, userID, chatID, description)

		default:
			// No session; the router should not have dispatched here.
		}
	})
}

// HandleDocument advances the content step with an uploaded file. Documents
// arriving at any other step are ignored without touching the session.
func (e *Engine) HandleDocument(ctx context.Context, userID, chatID int64, open func() (io.ReadCloser, error)) {
	if userID != e.adminID {
		return
	}
	if e.sessions.Current(userID) != StateAwaitingContent {
		return
	}

	// Fetch outside the session lock; only the stored result mutates state.
	content, err := readDocument(open)
	if err != nil {
		logger.Warn(ctx, "conversation", "document.read_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		msg := msgDocumentFailed
		if errors.Is(err, errDocumentTooLarge) {
			msg = msgDocumentTooLarge
		}
		e.messenger.SendText(ctx, chatID, msg)
		return
	}

	e.sessions.Update(userID, func(s *state.Session) {
		if s.State != StateAwaitingContent {
			return
		}
		s.Set(draftContentKey, content)
		s.State = StateAwaitingTitle
		e.messenger.SendText(ctx, chatID, msgPromptTitle)
	})
}

// finalize persists the assembled draft and resets the session. On a store
// failure the session stays on the description step so the admin can retry.
func (e *Engine) finalize(ctx context.Context, s *state.Session, userID, chatID int64, description string) {
	draft := notes.Draft{
		Content:     s.Get(draftContentKey),
		Title:       s.Get(draftTitleKey),
		Description: description,
		Creator:     fmt.Sprintf("tg:%d", userID),
	}

	note, err := e.store.Create(ctx, draft)
	if err != nil {
		logger.Error(ctx, "conversation", "note.create_failed",
			slog.Int64("user_id", userID),
			slog.String("err", err.Error()),
		)
		e.messenger.SendText(ctx, chatID, msgCreateFailed)
		return
	}

	logger.Info(ctx, "conversation", "session.completed",
		slog.Int64("user_id", userID),
		slog.String("note_id", note.ID),
	)
	e.messenger.SendNoteCard(ctx, chatID, note, e.links.Build(note.ID))
	s.State = state.StateIdle
}

func readDocument(open func() (io.ReadCloser, error)) (string, error) {
	rc, err := open()
	if err != nil {
		return "", fmt.Errorf("open document: %w", err)
	}
	defer rc.Close()

	// Read one byte past the limit so an over-limit file is detected
	// instead of silently stored as a truncated prefix.
	data, err := io.ReadAll(io.LimitReader(rc, maxDocumentBytes+1))
	if err != nil {
		return "", fmt.Errorf("read document: %w", err)
	}
	if len(data) > maxDocumentBytes {
		return "", errDocumentTooLarge
	}
	return string(data), nil
}
