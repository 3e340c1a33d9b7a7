package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/kasundularaam/flash-feather-starter-v6/config"
	"github.com/kasundularaam/flash-feather-starter-v6/internal/auth"
	"github.com/kasundularaam/flash-feather-starter-v6/internal/db"
	"github.com/kasundularaam/flash-feather-starter-v6/internal/handlers"
	"github.com/kasundularaam/flash-feather-starter-v6/internal/mq"
	"github.com/kasundularaam/flash-feather-starter-v6/internal/oauth"
	"github.com/kasundularaam/flash-feather-starter-v6/internal/services"
	"github.com/kasundularaam/flash-feather-starter-v6/internal/store"
)

// Server wraps the HTTP server, router and the resources it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *mq.EventPublisher
	states     *oauth.RedisStateStore
	logger     *slog.Logger
}

// New wires the application from cfg. Google routes are mounted only when
// Google credentials are configured.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	srv := &Server{db: dbConn, logger: logger}

	userRepo := store.NewUserRepository(dbConn)
	userService := services.NewUserService(userRepo)
	authService := auth.NewService(auth.Config{
		Secret:       cfg.Auth.JWTSecret,
		AccessTTL:    cfg.Auth.AccessTTL(),
		RefreshTTL:   cfg.Auth.RefreshTTL(),
		CookieSecure: cfg.Auth.CookieSecure,
	}, userService, auth.BcryptHasher{}, auth.WithLogger(logger))

	var authenticator *oauth.Authenticator
	if cfg.Google.Enabled() {
		authenticator, err = srv.newAuthenticator(ctx, cfg)
		if err != nil {
			_ = srv.Shutdown()
			return nil, err
		}
	}

	backend, err := mq.NewBackend(ctx, cfg.Events)
	if err != nil {
		_ = srv.Shutdown()
		return nil, fmt.Errorf("init events backend: %w", err)
	}
	srv.events = mq.NewEventPublisher(backend, cfg.Events.Channel, logger)

	authHandler := handlers.NewAuthHandler(userService, authService, authenticator, srv.events, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
		handlers.Authenticate(authService),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	srv.router = router
	srv.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server configured",
		"port", port,
		"google_login", authenticator != nil,
		"events_backend", cfg.Events.Backend,
		"jwt_secret", config.MaskSecret(cfg.Auth.JWTSecret),
	)
	return srv, nil
}

func (s *Server) newAuthenticator(ctx context.Context, cfg config.Config) (*oauth.Authenticator, error) {
	provider, err := oauth.NewGoogle(ctx, oauth.GoogleConfig{
		ClientID:     cfg.Google.ClientID,
		ClientSecret: cfg.Google.ClientSecret,
		RedirectURL:  cfg.Google.RedirectURL,
	})
	if err != nil {
		return nil, fmt.Errorf("init google provider: %w", err)
	}

	if cfg.Redis.Addr == "" {
		return oauth.NewAuthenticator(provider, oauth.CookieStateStore{Secure: cfg.Auth.CookieSecure}), nil
	}

	states := oauth.NewRedisStateStore(oauth.RedisConfig{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := states.Ping(ctx); err != nil {
		_ = states.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	s.states = states
	return oauth.NewAuthenticator(provider, states), nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Events returns the publisher shared with the handlers.
func (s *Server) Events() *mq.EventPublisher {
	return s.events
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// ShutdownContext drains in-flight requests until ctx is done.
func (s *Server) ShutdownContext(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		errs = append(errs, s.httpServer.Shutdown(ctx))
	}
	errs = append(errs, s.closeResources())
	return errors.Join(errs...)
}

// Shutdown closes the server immediately.
func (s *Server) Shutdown() error {
	var errs []error
	if s.httpServer != nil {
		errs = append(errs, s.httpServer.Close())
	}
	errs = append(errs, s.closeResources())
	return errors.Join(errs...)
}

func (s *Server) closeResources() error {
	var errs []error
	if s.events != nil {
		errs = append(errs, s.events.Close())
	}
	if s.states != nil {
		errs = append(errs, s.states.Close())
	}
	if s.db != nil {
		errs = append(errs, s.db.Close())
	}
	return errors.Join(errs...)
}
