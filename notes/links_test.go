package notes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLinkBuilderDeterministic(t *testing.T) {
	b := NewLinkBuilder("notegate_bot", "https://notes.example.com/")

	links := b.Build("note_abc123")
	assert.Equal(t, "https://t.me/notegate_bot/start?startapp=note_abc123", links.TelegramDeepLink)
	assert.Equal(t, "https://notes.example.com/?tgWebAppStartParam=note_abc123", links.WebAppURL)

	// Pure function of its inputs.
	assert.Equal(t, links, b.Build("note_abc123"))
}

func TestLinkBuilderNormalizesInputs(t *testing.T) {
	b := NewLinkBuilder("@notegate_bot", "https://notes.example.com")
	links := b.Build("note_x")
	assert.Equal(t, "https://t.me/notegate_bot/start?startapp=note_x", links.TelegramDeepLink)
	assert.Equal(t, "https://notes.example.com/?tgWebAppStartParam=note_x", links.WebAppURL)
}

func TestNewIDShape(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 1000; i++ {
		id := NewID()
		assert.Regexp(t, `^note_[0-9a-v]{26}$`, id)
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}
}
