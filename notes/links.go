package notes

import (
	"fmt"
	"net/url"
	"strings"
)

// Links are the external references for one note id.
type Links struct {
	TelegramDeepLink string `json:"telegramDeepLink"`
	WebAppURL        string `json:"webAppUrl"`
}

// LinkBuilder derives shareable references from a note id. Both outputs are
// pure functions of (id, bot username, base URL).
type LinkBuilder struct {
	botUsername string
	webBase     string
}

// NewLinkBuilder configures link generation. The base URL is stored without
// a trailing slash.
func NewLinkBuilder(botUsername, webBase string) *LinkBuilder {
	return &LinkBuilder{
		botUsername: strings.TrimPrefix(strings.TrimSpace(botUsername), "@"),
		webBase:     strings.TrimRight(strings.TrimSpace(webBase), "/"),
	}
}

// Build returns the Telegram deep link and the direct mini-app URL for id.
func (b *LinkBuilder) Build(id string) Links {
	return Links{
		TelegramDeepLink: fmt.Sprintf("https://t.me/%s/start?startapp=%s", b.botUsername, id),
		WebAppURL:        fmt.Sprintf("%s/?tgWebAppStartParam=%s", b.webBase, url.QueryEscape(id)),
	}
}
