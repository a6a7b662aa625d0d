package bot

import (
	"context"
	"fmt"
	"sync/atomic"

	"notegate/core/logger"
	"notegate/core/telegram/format"
	"notegate/core/telegram/keyboard"
	"notegate/core/telegram/sender"
	"notegate/notes"

	tele "gopkg.in/telebot.v4"
	"log/slog"
)

// Messenger delivers conversation replies through the outbound dispatcher.
// The bot handle is bound after startup, so it is held behind an atomic
// pointer; sends before binding are dropped with a log line.
type Messenger struct {
	bot        atomic.Pointer[tele.Bot]
	dispatcher *sender.Dispatcher
}

// NewMessenger creates a messenger backed by the given dispatcher.
func NewMessenger(dispatcher *sender.Dispatcher) *Messenger {
	return &Messenger{dispatcher: dispatcher}
}

// Bind attaches the live bot handle. Called from the run lifecycle OnStart hook.
func (m *Messenger) Bind(bot *tele.Bot) {
	m.bot.Store(bot)
}

// SendText sends a plain text message, fire-and-forget.
func (m *Messenger) SendText(ctx context.Context, chatID int64, text string) {
	m.enqueue(ctx, chatID, "send.text", func(b *tele.Bot) error {
		_, err := b.Send(tele.ChatID(chatID), text)
		return err
	})
}

// SendNoteCard sends the freshly created note summary with its share links
// and an inline keyboard opening the mini app.
func (m *Messenger) SendNoteCard(ctx context.Context, chatID int64, note notes.Note, links notes.Links) {
	text := renderNoteCard(note, links)
	markup := &tele.ReplyMarkup{}
	keyboard.WebAppRow(markup, "Open note", links.WebAppURL)

	m.enqueue(ctx, chatID, "send.note_card", func(b *tele.Bot) error {
		_, err := b.Send(tele.ChatID(chatID), text, &tele.SendOptions{
			ParseMode:   tele.ModeHTML,
			ReplyMarkup: markup,
		})
		return err
	})
}

func (m *Messenger) enqueue(ctx context.Context, chatID int64, action string, run func(b *tele.Bot) error) {
	b := m.bot.Load()
	if b == nil {
		logger.Warn(ctx, "bot", "send.dropped",
			slog.String("action", action),
			slog.Int64("chat_id", chatID),
			slog.String("cause", "bot_not_bound"),
		)
		return
	}

	if m.dispatcher == nil {
		logger.Warn(ctx, "bot", "send.dropped",
			slog.String("action", action),
			slog.Int64("chat_id", chatID),
			slog.String("cause", "no_dispatcher"),
		)
		return
	}

	// Callers may hold the session-manager lock, so a saturated or closed
	// queue drops the message instead of falling back to a blocking send.
	if err := m.dispatcher.Enqueue(ctx, action, "sendMessage", func() error { return run(b) }); err != nil {
		logger.Warn(ctx, "bot", "send.dropped",
			slog.String("action", action),
			slog.Int64("chat_id", chatID),
			slog.String("err", err.Error()),
		)
	}
}

func renderNoteCard(note notes.Note, links notes.Links) string {
	card := "✅ Note created\n\n" + format.Bold(note.Title) + "\n"
	if note.Description != "" {
		card += format.EscapeHTML(note.Description) + "\n"
	}
	card += "\nID: " + format.Code(note.ID) + "\n" +
		"\nShare link:\n" + format.EscapeHTML(links.TelegramDeepLink) + "\n" +
		"\nDirect link:\n" + format.EscapeHTML(links.WebAppURL)
	return card
}

func renderRevocationCard(rev notes.Revocation, links notes.Links) string {
	return "🔄 Link revoked\n\n" +
		"Old ID " + format.Code(rev.Old.ID) + " no longer works.\n" +
		fmt.Sprintf("Fresh ID: %s\n", format.Code(rev.Fresh.ID)) +
		"\nShare link:\n" + format.EscapeHTML(links.TelegramDeepLink) + "\n" +
		"\nDirect link:\n" + format.EscapeHTML(links.WebAppURL)
}
