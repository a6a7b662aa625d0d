// Package api exposes notes over HTTP: a public read endpoint consumed by
// the mini app and an admin surface guarded by a shared secret.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	coreconfig "notegate/core/config"
	"notegate/core/logger"
	"notegate/notes"

	"github.com/rs/cors"
	"log/slog"
)

// Server is the HTTP front for the notes store.
type Server struct {
	cfg   coreconfig.APIConfig
	store notes.Store
	links *notes.LinkBuilder
	http  *http.Server
}

// NewServer builds the server without binding the listener.
func NewServer(cfg coreconfig.APIConfig, store notes.Store, links *notes.LinkBuilder) *Server {
	s := &Server{
		cfg:   cfg,
		store: store,
		links: links,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/note", s.handleGetNote)
	mux.HandleFunc("GET /api/admin/notes", s.requireSecret(s.handleListNotes))
	mux.HandleFunc("POST /api/admin/notes", s.requireSecret(s.handleCreateNote))
	mux.HandleFunc("POST /api/admin/notes/{id}/revoke", s.requireSecret(s.handleRevokeNote))

	corsWrapper := cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", secretHeader},
	})

	handler := corsWrapper.Handler(mux)
	handler = accessLog(handler)
	handler = requestID(handler)
	handler = recovery(handler)

	s.http = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Listen, cfg.Port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return s
}

// Handler exposes the composed handler chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// Run serves until ctx is cancelled, then drains with a short grace period.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.API.Info("listening",
			slog.String("event", "api.start"),
			slog.String("addr", s.http.Addr),
			slog.Bool("admin_enabled", s.cfg.AdminSecret != ""),
		)
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("api: shutdown: %w", err)
		}
		return <-errCh
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api: serve: %w", err)
		}
		return nil
	}
}
