package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/homepilot/backend/internal/config"
	"github.com/homepilot/backend/internal/pkg/logger"
	"github.com/homepilot/backend/internal/pkg/utils"
)

type Server struct {
	cfg       *config.Config
	router    *chi.Mux
	registry  Dispatcher
	store     AssetStore
	tokenizer utils.Tokener
}

func New(cfg *config.Config, registry Dispatcher, store AssetStore, tokenizer utils.Tokener) *Server {
	s := &Server{
		cfg:       cfg,
		router:    chi.NewRouter(),
		registry:  registry,
		store:     store,
		tokenizer: tokenizer,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.RequestID)
	s.router.Use(apiKeyAuth(s.cfg.Server.APIKey))

	s.router.Get("/health", Health())
	s.router.Get("/providers", Providers(s.registry))
	s.router.Get("/settings", Settings(s.cfg))
	s.router.Post("/upload", Upload(s.store))
	s.router.Get("/uploads/{id}", ServeUpload(s.store))
	s.router.Post("/chat", Chat(s.registry, s.tokenizer))
}

// Handler exposes the routed mux, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: s.router}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info().Msgf("listening on %s", addr)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

// apiKeyAuth gates every route except /health when a key is configured.
// With no key set the middleware is a no-op.
func apiKeyAuth(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key == "" || r.URL.Path == "/health" {
				next.ServeHTTP(w, r)
				return
			}

			got := r.Header.Get("X-API-Key")
			if got == "" {
				if auth := r.Header.Get("Authorization"); len(auth) > 7 && auth[:7] == "Bearer " {
					got = auth[7:]
				}
			}

			if got != key {
				writeErr(w, http.StatusUnauthorized, "invalid api key")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
