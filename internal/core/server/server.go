package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/config"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/health"
	middleware "github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/middleware"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/model"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/router"
)

type Deps struct {
	Lister   router.ProductLister
	Views    router.ViewRecorder // optional
	Defaults model.Locale
	Ready    map[string]health.Pinger
	Metrics  http.Handler // nil serves the default registry
}

// NewHandler builds the chi router with every public route.
func NewHandler(logger *slog.Logger, d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS())

	metrics := d.Metrics
	if metrics == nil {
		metrics = promhttp.Handler()
	}

	products := router.HandleProducts(logger, d.Defaults, d.Lister, d.Views)
	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(d.Ready))
	r.Method(http.MethodGet, "/metrics", metrics)
	r.Get("/api/products", products)
	r.Get("/{locale}/api/products", products)
	return r
}

// sets up http and starts serving
func Run(ctx context.Context, cfg config.Config, logger *slog.Logger, d Deps) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           NewHandler(logger, d),
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
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
