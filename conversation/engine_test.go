package conversation

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"

	"notegate/core/telegram/state"
	"notegate/notes"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminID  = int64(42)
	chatID   = int64(42)
	outsider = int64(7)
)

type sentCard struct {
	note  notes.Note
	links notes.Links
}

type fakeMessenger struct {
	mu    sync.Mutex
	texts []string
	cards []sentCard
}

func (m *fakeMessenger) SendText(_ context.Context, _ int64, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.texts = append(m.texts, text)
}

func (m *fakeMessenger) SendNoteCard(_ context.Context, _ int64, note notes.Note, links notes.Links) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cards = append(m.cards, sentCard{note: note, links: links})
}

func (m *fakeMessenger) lastText(t *testing.T) string {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	require.NotEmpty(t, m.texts)
	return m.texts[len(m.texts)-1]
}

func newTestEngine(t *testing.T) (*Engine, *notes.MemoryStore, *fakeMessenger, *state.Manager) {
	t.Helper()
	store := notes.NewMemoryStore()
	sessions := state.NewManager(state.Options{})
	messenger := &fakeMessenger{}
	links := notes.NewLinkBuilder("notegate_bot", "https://notes.example.com")
	return NewEngine(sessions, store, links, messenger, adminID), store, messenger, sessions
}

func TestFullAuthoringFlow(t *testing.T) {
	ctx := context.Background()
	engine, store, messenger, sessions := newTestEngine(t)

	engine.Start(ctx, adminID, chatID)
	assert.Equal(t, StateAwaitingContent, sessions.Current(adminID))
	assert.Equal(t, msgPromptContent, messenger.lastText(t))

	engine.HandleText(ctx, adminID, chatID, "<h1>Hello</h1>")
	assert.Equal(t, StateAwaitingTitle, sessions.Current(adminID))

	engine.HandleText(ctx, adminID, chatID, "Welcome")
	assert.Equal(t, StateAwaitingDescription, sessions.Current(adminID))

	engine.HandleText(ctx, adminID, chatID, "First note")
	assert.False(t, sessions.InProgress(adminID), "session must end after the final step")

	require.Len(t, messenger.cards, 1)
	card := messenger.cards[0]
	assert.Equal(t, "<h1>Hello</h1>", card.note.Content)
	assert.Equal(t, "Welcome", card.note.Title)
	assert.Equal(t, "First note", card.note.Description)
	assert.True(t, card.note.Active)
	assert.Contains(t, card.links.TelegramDeepLink, card.note.ID)

	got, err := store.Get(ctx, card.note.ID)
	require.NoError(t, err)
	assert.Equal(t, card.note, got)
}

func TestSkipSentinelProducesEmptyDescription(t *testing.T) {
	ctx := context.Background()
	engine, _, messenger, _ := newTestEngine(t)

	engine.Start(ctx, adminID, chatID)
	engine.HandleText(ctx, adminID, chatID, "<p>body</p>")
	engine.HandleText(ctx, adminID, chatID, "Title")
	engine.HandleText(ctx, adminID, chatID, SkipSentinel)

	require.Len(t, messenger.cards, 1)
	assert.Empty(t, messenger.cards[0].note.Description)
}

func TestDocumentUploadOnContentStep(t *testing.T) {
	ctx := context.Background()
	engine, _, messenger, sessions := newTestEngine(t)

	engine.Start(ctx, adminID, chatID)
	engine.HandleDocument(ctx, adminID, chatID, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader("<html>file</html>")), nil
	})
	assert.Equal(t, StateAwaitingTitle, sessions.Current(adminID))

	engine.HandleText(ctx, adminID, chatID, "Uploaded")
	engine.HandleText(ctx, adminID, chatID, SkipSentinel)

	require.Len(t, messenger.cards, 1)
	assert.Equal(t, "<html>file</html>", messenger.cards[0].note.Content)
}

func TestDocumentIgnoredOutsideContentStep(t *testing.T) {
	ctx := context.Background()
	engine, _, _, sessions := newTestEngine(t)

	engine.Start(ctx, adminID, chatID)
	engine.HandleText(ctx, adminID, chatID, "<p>body</p>")

	engine.HandleDocument(ctx, adminID, chatID, func() (io.ReadCloser, error) {
		t.Fatal("document must not be fetched outside the content step")
		return nil, nil
	})
	assert.Equal(t, StateAwaitingTitle, sessions.Current(adminID))
}

func TestDocumentReadFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	engine, _, messenger, sessions := newTestEngine(t)

	engine.Start(ctx, adminID, chatID)
	engine.HandleDocument(ctx, adminID, chatID, func() (io.ReadCloser, error) {
		return nil, errors.New("network down")
	})

	assert.Equal(t, StateAwaitingContent, sessions.Current(adminID))
	assert.Equal(t, msgDocumentFailed, messenger.lastText(t))
}

func TestOversizedDocumentRejectedWithoutTruncation(t *testing.T) {
	ctx := context.Background()
	engine, store, messenger, sessions := newTestEngine(t)

	engine.Start(ctx, adminID, chatID)
	engine.HandleDocument(ctx, adminID, chatID, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(strings.Repeat("x", maxDocumentBytes+4096))), nil
	})

	assert.Equal(t, StateAwaitingContent, sessions.Current(adminID))
	assert.Equal(t, msgDocumentTooLarge, messenger.lastText(t))

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "an over-limit upload must not produce a note")
}

func TestDocumentAtSizeLimitAccepted(t *testing.T) {
	ctx := context.Background()
	engine, _, messenger, sessions := newTestEngine(t)

	body := strings.Repeat("y", maxDocumentBytes)
	engine.Start(ctx, adminID, chatID)
	engine.HandleDocument(ctx, adminID, chatID, func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(body)), nil
	})
	assert.Equal(t, StateAwaitingTitle, sessions.Current(adminID))

	engine.HandleText(ctx, adminID, chatID, "Big")
	engine.HandleText(ctx, adminID, chatID, SkipSentinel)

	require.Len(t, messenger.cards, 1)
	assert.Len(t, messenger.cards[0].note.Content, maxDocumentBytes)
}

func TestNonAdminInitiationRejected(t *testing.T) {
	ctx := context.Background()
	engine, _, messenger, sessions := newTestEngine(t)

	engine.Start(ctx, outsider, outsider)
	assert.False(t, sessions.InProgress(outsider))
	assert.Equal(t, msgOnlyAdmin, messenger.lastText(t))
}

func TestNonAdminTextIgnoredSilently(t *testing.T) {
	ctx := context.Background()
	engine, _, messenger, _ := newTestEngine(t)

	engine.HandleText(ctx, outsider, outsider, "hello")
	assert.Empty(t, messenger.texts)
	assert.Empty(t, messenger.cards)
}

func TestRestartResetsDraft(t *testing.T) {
	ctx := context.Background()
	engine, _, messenger, sessions := newTestEngine(t)

	engine.Start(ctx, adminID, chatID)
	engine.HandleText(ctx, adminID, chatID, "<p>old</p>")
	engine.HandleText(ctx, adminID, chatID, "Old title")

	engine.Start(ctx, adminID, chatID)
	assert.Equal(t, StateAwaitingContent, sessions.Current(adminID))

	engine.HandleText(ctx, adminID, chatID, "<p>new</p>")
	engine.HandleText(ctx, adminID, chatID, "New title")
	engine.HandleText(ctx, adminID, chatID, SkipSentinel)

	require.Len(t, messenger.cards, 1)
	assert.Equal(t, "<p>new</p>", messenger.cards[0].note.Content)
	assert.Equal(t, "New title", messenger.cards[0].note.Title)
}

func TestCancelAbortsSession(t *testing.T) {
	ctx := context.Background()
	engine, _, messenger, sessions := newTestEngine(t)

	engine.Cancel(ctx, adminID, chatID)
	assert.Equal(t, msgNothingToCancel, messenger.lastText(t))

	engine.Start(ctx, adminID, chatID)
	engine.HandleText(ctx, adminID, chatID, "<p>body</p>")
	engine.Cancel(ctx, adminID, chatID)

	assert.False(t, sessions.InProgress(adminID))
	assert.Equal(t, msgCancelled, messenger.lastText(t))
}

func TestBlankTitleKeepsStep(t *testing.T) {
	ctx := context.Background()
	engine, _, _, sessions := newTestEngine(t)

	engine.Start(ctx, adminID, chatID)
	engine.HandleText(ctx, adminID, chatID, "<p>body</p>")
	engine.HandleText(ctx, adminID, chatID, "   ")
	assert.Equal(t, StateAwaitingTitle, sessions.Current(adminID))
}

func TestStoreFailureKeepsDescriptionStep(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	sessions := state.NewManager(state.Options{})
	messenger := &fakeMessenger{}
	links := notes.NewLinkBuilder("notegate_bot", "https://notes.example.com")
	engine := NewEngine(sessions, store, links, messenger, adminID)

	engine.Start(ctx, adminID, chatID)
	engine.HandleText(ctx, adminID, chatID, "<p>body</p>")
	engine.HandleText(ctx, adminID, chatID, "Title")
	engine.HandleText(ctx, adminID, chatID, "desc")

	assert.Equal(t, StateAwaitingDescription, sessions.Current(adminID))
	assert.Equal(t, msgCreateFailed, messenger.lastText(t))
}

type failingStore struct{}

func (f *failingStore) Create(context.Context, notes.Draft) (notes.Note, error) {
	return notes.Note{}, errors.New("store unavailable")
}

func (f *failingStore) Get(context.Context, string) (notes.Note, error) {
	return notes.Note{}, notes.ErrNotFound
}

func (f *failingStore) List(context.Context) ([]notes.Note, error) { return nil, nil }

func (f *failingStore) RevokeAndRegenerate(context.Context, string) (notes.Revocation, error) {
	return notes.Revocation{}, notes.ErrNotFound
}
