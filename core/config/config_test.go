package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Token:   "123456:abc",
			AdminID: 42,
		},
		Links: LinksConfig{
			BotUsername:   "notegate_bot",
			WebAppBaseURL: "https://notes.example.com/",
		},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	require.NoError(t, Normalize(cfg))

	assert.Equal(t, RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, StorageMemory, cfg.Storage.Driver)
	assert.Equal(t, "0.0.0.0", cfg.API.Listen)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, []string{"*"}, cfg.API.CORSOrigins)
	assert.Equal(t, "https://notes.example.com", cfg.Links.WebAppBaseURL,
		"trailing slash must be trimmed")
}

func TestNormalizeRequiredFields(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.Token = ""
	assert.Error(t, Normalize(cfg))

	cfg = validConfig()
	cfg.Telegram.AdminID = 0
	assert.Error(t, Normalize(cfg))

	cfg = validConfig()
	cfg.Links.BotUsername = ""
	assert.Error(t, Normalize(cfg))

	cfg = validConfig()
	cfg.Links.WebAppBaseURL = ""
	assert.Error(t, Normalize(cfg))
}

func TestNormalizeWebhookMode(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = "webhook"
	assert.Error(t, Normalize(cfg), "webhook mode without url must fail")

	cfg.Webhook = WebhookConfig{
		URL:    "https://bot.example.com/hook",
		Listen: "0.0.0.0",
		Port:   8443,
	}
	assert.NoError(t, Normalize(cfg))
}

func TestNormalizePostgresDefaults(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Driver = "postgres"
	assert.Error(t, Normalize(cfg), "postgres without host must fail")

	cfg.Storage.Database.Host = "localhost"
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, "5432", cfg.Storage.Database.Port)
	assert.Equal(t, "disable", cfg.Storage.Database.SSLMode)
	assert.Equal(t, 10, cfg.Storage.Database.MaxConnections)
}

func TestNormalizeRejectsUnknownValues(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Driver = "sqlite"
	assert.Error(t, Normalize(cfg))

	cfg = validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{"inline_query"}
	assert.Error(t, Normalize(cfg))

	cfg = validConfig()
	cfg.RateLimit.ExcludeUpdates = []string{" Callback "}
	require.NoError(t, Normalize(cfg))
	assert.Equal(t, []string{"callback"}, cfg.RateLimit.ExcludeUpdates)
}
