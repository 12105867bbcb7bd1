// Package server implements the HTTP surface of BotForge: the per-bot
// Telegram webhook dispatcher, the billing webhook, and the dashboard API
// (auth, bot CRUD, deploy).
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/botforge/botforge/internal/auth"
	"github.com/botforge/botforge/internal/config"
	"github.com/botforge/botforge/internal/database"
	"github.com/botforge/botforge/internal/lifecycle"
	"github.com/botforge/botforge/internal/logger"
	"github.com/botforge/botforge/internal/telegram"
)

// Server wires the HTTP router to the stores, the Telegram client, and the
// lifecycle manager.
type Server struct {
	cfg       *config.Config
	logger    *slog.Logger
	store     database.Store
	tg        telegram.Client
	lifecycle *lifecycle.Manager
	auth      *auth.Service
	validate  *validator.Validate
}

// New creates a Server with all its dependencies.
func New(
	cfg *config.Config,
	log *slog.Logger,
	store database.Store,
	tg telegram.Client,
	lm *lifecycle.Manager,
	authSvc *auth.Service,
) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:       cfg,
		logger:    log.With("component", "server"),
		store:     store,
		tg:        tg,
		lifecycle: lm,
		auth:      authSvc,
		validate:  validator.New(),
	}
}

// Router constructs the chi mux with all routes wired.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(logger.Middleware(s.logger))

	// Public — no auth required.
	r.Get("/health", s.handleHealth())

	// Webhooks — own authentication per source: the Telegram secret token
	// header for bot updates, an HMAC signature for billing events.
	r.Post("/webhooks/telegram/{botID}", s.handleTelegramWebhook())
	r.Post("/webhooks/billing", s.handleBillingWebhook())

	r.Post("/auth/register", s.handleRegister())
	r.Post("/auth/login", s.handleLogin())

	// Dashboard endpoints — bearer auth required.
	r.Group(func(r chi.Router) {
		r.Use(s.auth.Middleware)
		r.Get("/auth/me", s.handleMe())
		r.Route("/bots", func(r chi.Router) {
			r.Get("/", s.handleListBots())
			r.Post("/", s.handleCreateBot())
			r.Get("/{id}", s.handleGetBot())
			r.Patch("/{id}", s.handleUpdateBot())
			r.Delete("/{id}", s.handleDeleteBot())
			r.Post("/{id}/deploy", s.handleDeployBot())
		})
	})

	return r
}

// Run starts the HTTP listener and shuts it down gracefully when ctx is
// cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.ListenAddr,
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.WriteTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
