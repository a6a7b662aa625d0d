package bot

import (
	"errors"
	"io"

	"notegate/conversation"
	tghelpers "notegate/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

// sessionRouter adapts the conversation engine to the message router's
// FSM contract, extracting chat identity and payloads from tele.Context.
type sessionRouter struct {
	engine *conversation.Engine
}

func newSessionRouter(engine *conversation.Engine) *sessionRouter {
	return &sessionRouter{engine: engine}
}

func (r *sessionRouter) InProgress(userID int64) bool {
	return r.engine.InProgress(userID)
}

func (r *sessionRouter) HandleText(c tele.Context) error {
	ctx := tghelpers.BuildContext(c)
	r.engine.HandleText(ctx, c.Sender().ID, c.Chat().ID, c.Text())
	return nil
}

func (r *sessionRouter) HandleDocument(c tele.Context) error {
	msg := c.Message()
	if msg == nil || msg.Document == nil {
		return nil
	}

	doc := msg.Document
	b := c.Bot()
	open := func() (io.ReadCloser, error) {
		if b == nil {
			return nil, errors.New("bot handle unavailable")
		}
		return b.File(&doc.File)
	}

	ctx := tghelpers.BuildContext(c)
	r.engine.HandleDocument(ctx, c.Sender().ID, c.Chat().ID, open)
	return nil
}
