package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/mohammed-shakir/geofence-helper/internal/core/config"
	"github.com/mohammed-shakir/geofence-helper/internal/core/health"
	middleware "github.com/mohammed-shakir/geofence-helper/internal/core/middleware"
	"github.com/mohammed-shakir/geofence-helper/internal/core/router"
)

type Options struct {
	Deps    router.Deps
	Ready   health.Pinger
	Metrics http.Handler // nil disables /metrics
}

// NewHandler builds the route tree. The gfhelper views sit behind basic auth
// when cfg.AuthUser is set; probes and metrics never do.
func NewHandler(cfg config.Config, logger *slog.Logger, opts Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))

	r.Get("/healthz", health.Liveness())
	if opts.Ready != nil {
		r.Get("/readyz", health.Readiness(opts.Ready, 2*time.Second))
	}
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Group(func(r chi.Router) {
		if cfg.AuthUser != "" {
			r.Use(chimw.BasicAuth("gfhelper", map[string]string{cfg.AuthUser: cfg.AuthPassword}))
		}
		r.Get("/", http.RedirectHandler(router.SelectPath, http.StatusFound).ServeHTTP)
		r.Get(router.SelectPath, router.HandleSelect(logger, opts.Deps))
		r.Get(router.ResultsPath, router.HandleResults(logger, opts.Deps))
	})
	return r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(cfg, logger, opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listen", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown", "err", err)
		}
		return nil
	case err := <-errCh:
		return err
	}
}
