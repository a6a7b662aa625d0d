package format

import "strings"

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
)

// EscapeHTML escapes text for safe embedding in Telegram HTML parse mode.
// Telegram only recognizes a small tag subset, so escaping the three
// structural characters is sufficient.
func EscapeHTML(text string) string {
	return htmlEscaper.Replace(text)
}

// Code wraps text in a monospace span, escaping the content first.
func Code(text string) string {
	return "<code>" + EscapeHTML(text) + "</code>"
}

// Bold wraps text in a bold span, escaping the content first.
func Bold(text string) string {
	return "<b>" + EscapeHTML(text) + "</b>"
}
