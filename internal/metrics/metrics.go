// Package metrics owns the Prometheus registry and the optional dedicated
// metrics listener.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type BuildInfo struct {
	Version   string
	Revision  string
	Branch    string
	BuildDate string
}

// BuildInfoFromEnv reads BUILD_REVISION, BUILD_BRANCH and BUILD_DATE. The
// version comes from the binary.
func BuildInfoFromEnv(version string) BuildInfo {
	return BuildInfo{
		Version:   version,
		Revision:  os.Getenv("BUILD_REVISION"),
		Branch:    os.Getenv("BUILD_BRANCH"),
		BuildDate: os.Getenv("BUILD_DATE"),
	}
}

type Config struct {
	Build BuildInfo
}

type Provider struct {
	reg *prometheus.Registry
}

// Init builds a fresh registry with the go and process collectors and a
// storefront_build_info gauge.
func Init(cfg Config) *Provider {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	v := cfg.Build
	if v.Version == "" {
		v.Version = "dev"
	}
	reg.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "storefront_build_info",
			Help: "Build info for this binary (value is always 1).",
			ConstLabels: prometheus.Labels{
				"version":    v.Version,
				"revision":   v.Revision,
				"branch":     v.Branch,
				"build_date": v.BuildDate,
			},
		},
		func() float64 { return 1 },
	))

	return &Provider{reg: reg}
}

func (p *Provider) Handler() http.Handler {
	return promhttp.HandlerFor(p.reg, promhttp.HandlerOpts{Registry: p.reg})
}

func (p *Provider) Registerer() prometheus.Registerer { return p.reg }

// Serve exposes Handler on addr+path until ctx is done. It returns once the
// listener is shut down; listen errors are logged.
func (p *Provider) Serve(ctx context.Context, log *slog.Logger, addr, path string) {
	if path == "" {
		path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(path, p.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("metrics shutdown error", "err", err)
		}
	}()

	log.Info("metrics listen", "addr", addr, "path", path)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server exited", "err", err)
		return
	}
	<-done
}
