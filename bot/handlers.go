// Package bot wires the note authoring surface onto the Telegram framework:
// commands, the session router, and the revoke callback.
package bot

import (
	"errors"
	"fmt"
	"strings"

	"notegate/conversation"
	coreconfig "notegate/core/config"
	"notegate/core/logger"
	tg "notegate/core/telegram"
	"notegate/core/telegram/callbacks"
	"notegate/core/telegram/commands"
	"notegate/core/telegram/format"
	tghelpers "notegate/core/telegram/helpers"
	"notegate/core/telegram/keyboard"
	"notegate/core/telegram/router"
	"notegate/notes"

	tele "gopkg.in/telebot.v4"
	"log/slog"
)

// RevokeCallbackKey identifies the inline revoke action.
const RevokeCallbackKey = "note_revoke"

const (
	msgWelcome = "Hi! I keep HTML notes behind shareable links.\n" +
		"Open a note through the link you received."

	msgNoNotes = "No notes yet. Use /newnote to create one."

	msgUnknownText = "I only respond to commands. Try /start."
)

// Options collects the dependencies for the bot surface.
type Options struct {
	Config *coreconfig.Config
	Engine *conversation.Engine
	Store  notes.Store
	Links  *notes.LinkBuilder
}

// BuildRegistry registers all commands and callbacks for the notes bot.
func BuildRegistry(opts Options) *tg.Registry {
	reg := tg.NewRegistry()

	reg.RegisterCommand("/start", commands.Command{
		Description: "What this bot does",
		Handler: func(c tele.Context) error {
			return tghelpers.SendText(c, msgWelcome)
		},
	})

	reg.RegisterCommand("/newnote", commands.Command{
		Description: "Create a new note",
		AdminOnly:   true,
		Handler: func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			opts.Engine.Start(ctx, c.Sender().ID, c.Chat().ID)
			return nil
		},
	})

	reg.RegisterCommand("/cancel", commands.Command{
		Description: "Abort note creation",
		AdminOnly:   true,
		Handler: func(c tele.Context) error {
			ctx := tghelpers.BuildContext(c)
			opts.Engine.Cancel(ctx, c.Sender().ID, c.Chat().ID)
			return nil
		},
	})

	reg.RegisterCommand("/notes", commands.Command{
		Description: "List notes with revoke actions",
		AdminOnly:   true,
		Handler:     listNotesHandler(opts),
	})

	if err := reg.RegisterCallback(RevokeCallbackKey, revokeHandler(opts)); err != nil {
		logger.TG.Warn("callback registration failed", slog.String("err", err.Error()))
	}

	reg.SetTextFallback(func(c tele.Context) error {
		return tghelpers.SendText(c, msgUnknownText)
	})

	return reg
}

// BuildRoutes assembles the full route table around the registry.
func BuildRoutes(reg *tg.Registry, opts Options) []tg.Route {
	adminID := opts.Config.Telegram.AdminID

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{
		AdminID: adminID,
		OnAdminReject: func(c tele.Context) error {
			return tghelpers.SendText(c, "Sorry, only the administrator can manage notes.")
		},
	})
	routes = append(routes, router.TextRoutes(newSessionRouter(opts.Engine), reg, router.TextOptions{})...)
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	return routes
}

func listNotesHandler(opts Options) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)

		list, err := opts.Store.List(ctx)
		if err != nil {
			logger.Error(ctx, "bot", "notes.list_failed", slog.String("err", err.Error()))
			return tghelpers.SendText(c, "Could not load notes, try again later.")
		}
		if len(list) == 0 {
			return tghelpers.SendText(c, msgNoNotes)
		}

		pages, buttons := buildNotesPages(list)
		for _, page := range pages[:len(pages)-1] {
			if err := tghelpers.SendHTML(c, page); err != nil {
				return err
			}
		}
		// Revoke buttons ride on the final page.
		return tghelpers.SendHTML(c, pages[len(pages)-1], keyboard.InlineButtons(buttons))
	}
}

// notesPageLimit keeps each list message safely under Telegram's 4096
// character cap for message text.
const notesPageLimit = 3500

// buildNotesPages renders the numbered note list into message-sized pages
// and collects a revoke button for every active note. Always returns at
// least one page.
func buildNotesPages(list []notes.Note) (pages []string, buttons []keyboard.InlineBtn) {
	var sb strings.Builder
	flush := func() {
		pages = append(pages, strings.TrimRight(sb.String(), "\n"))
		sb.Reset()
	}

	for i, n := range list {
		status := "active"
		if !n.Active {
			status = "revoked"
		}
		entry := fmt.Sprintf("%d. %s (%s)\n%s\n\n", i+1, format.Bold(n.Title), status, format.Code(n.ID))
		if sb.Len() > 0 && sb.Len()+len(entry) > notesPageLimit {
			flush()
		}
		sb.WriteString(entry)
		if n.Active {
			buttons = append(buttons, keyboard.InlineBtn{
				Text:   fmt.Sprintf("🔄 Revoke %d", i+1),
				Unique: RevokeCallbackKey,
				Data:   n.ID,
			})
		}
	}
	flush()
	return pages, buttons
}

// revokeHandler invalidates a shared link and replaces it with a fresh one.
// The old id stops resolving the moment the store commits; the note content
// survives under the regenerated id.
func revokeHandler(opts Options) tele.HandlerFunc {
	return func(c tele.Context) error {
		ctx := tghelpers.BuildContext(c)

		if c.Sender().ID != opts.Config.Telegram.AdminID {
			return c.Respond(&tele.CallbackResponse{Text: "Not allowed"})
		}

		id := callbacks.CallbackPayload(c)
		if id == "" {
			return c.Respond(&tele.CallbackResponse{Text: "Missing note id"})
		}

		rev, err := opts.Store.RevokeAndRegenerate(ctx, id)
		if err != nil {
			if errors.Is(err, notes.ErrNotFound) {
				return tghelpers.SendText(c, "That link is already revoked or unknown.")
			}
			logger.Error(ctx, "bot", "note.revoke_failed",
				slog.String("note_id", id),
				slog.String("err", err.Error()),
			)
			return tghelpers.SendText(c, "Revoking failed, try again later.")
		}

		links := opts.Links.Build(rev.Fresh.ID)
		markup := &tele.ReplyMarkup{}
		keyboard.WebAppRow(markup, "Open note", links.WebAppURL)
		return tghelpers.EditOrSendHTML(c, renderRevocationCard(rev, links), markup)
	}
}
