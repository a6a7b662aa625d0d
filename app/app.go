// Package app assembles the full notegate service: configuration, logging,
// the note store, the HTTP API, and the Telegram bot lifecycle.
package app

import (
	"context"
	"fmt"
	"time"

	"notegate/api"
	"notegate/bot"
	"notegate/conversation"
	coreconfig "notegate/core/config"
	"notegate/core/database"
	"notegate/core/logger"
	tg "notegate/core/telegram"
	"notegate/core/telegram/sender"
	"notegate/core/telegram/state"
	"notegate/notes"

	"github.com/joho/godotenv"
	"log/slog"
)

// Run starts every component and blocks until ctx is cancelled or a fatal
// startup error occurs.
func Run(ctx context.Context, configPath string) error {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := coreconfig.Load(configPath)
	if err != nil {
		return fmt.Errorf("app: load config: %w", err)
	}

	if err := logger.Init(cfg); err != nil {
		return fmt.Errorf("app: init logger: %w", err)
	}
	defer func() { _ = logger.Shutdown() }()

	store, err := buildStore(cfg)
	if err != nil {
		return err
	}

	links := notes.NewLinkBuilder(cfg.Links.BotUsername, cfg.Links.WebAppBaseURL)

	sessions := state.NewManager(state.Options{
		TTL: time.Duration(cfg.Session.TTLMinutes) * time.Minute,
	})

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sessions.StartJanitor(ctx)

	dispatcher := sender.NewDispatcher(sender.Options{})
	messenger := bot.NewMessenger(dispatcher)
	engine := conversation.NewEngine(sessions, store, links, messenger, cfg.Telegram.AdminID)

	apiErr := make(chan error, 1)
	go func() {
		srv := api.NewServer(cfg.API, store, links)
		if err := srv.Run(ctx); err != nil {
			apiErr <- err
			cancel()
			return
		}
		apiErr <- nil
	}()

	botOpts := bot.Options{
		Config: cfg,
		Engine: engine,
		Store:  store,
		Links:  links,
	}
	reg := bot.BuildRegistry(botOpts)

	runErr := tg.RunTelegram(ctx, tg.RunOptions{
		Config:      cfg,
		Registry:    reg,
		Dispatcher:  dispatcher,
		Middlewares: tg.DefaultMiddlewares(cfg, nil),
		Routes:      bot.BuildRoutes(reg, botOpts),
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			messenger.Bind(rt.Bot)
			logger.Info(ctx, "app", "started",
				slog.String("storage", cfg.Storage.Driver),
				slog.Int64("admin_id", cfg.Telegram.AdminID),
			)
			return nil
		},
	})

	cancel()
	if serveErr := <-apiErr; serveErr != nil && runErr == nil {
		runErr = serveErr
	}
	return runErr
}

func buildStore(cfg *coreconfig.Config) (notes.Store, error) {
	switch cfg.Storage.Driver {
	case coreconfig.StoragePostgres:
		if err := database.RunMigrations(cfg.Storage.Database); err != nil {
			return nil, fmt.Errorf("app: migrations: %w", err)
		}
		db, err := database.Connect(cfg.Storage.Database)
		if err != nil {
			return nil, fmt.Errorf("app: connect database: %w", err)
		}
		return notes.NewPostgresStore(db), nil
	default:
		return notes.NewMemoryStore(), nil
	}
}
