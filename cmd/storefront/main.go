package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/cache"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/cache/keys"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/cache/memory"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/cache/redisstore"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/config"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/health"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/httpclient"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/model"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/observability"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/server"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/core/storefront"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/invalidation/kafkaconsumer"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/listingevents"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/logger"
	"github.com/MdAlAmin212104/hydrogen-demo-store/internal/metrics"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	addrFlag := flag.String("addr", "", "listen address (overrides ADDR)")
	flag.Parse()

	cfg := config.FromEnv()
	if *addrFlag != "" {
		cfg.Addr = strings.TrimSpace(*addrFlag)
	}

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   cfg.LogConsole,
		SampleN:   cfg.LogSampleN,
		Service:   "storefront",
		Component: "api",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	appLog.Info("starting storefront api",
		"addr", cfg.Addr,
		"version", Version,
		"storefront", cfg.Storefront.URL,
		"api_version", cfg.Storefront.Version,
		"cache", cfg.Cache.Driver)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := metrics.Init(metrics.Config{Build: metrics.BuildInfoFromEnv(Version)})
	if err := observability.Init(p.Registerer()); err != nil {
		appLog.Error("metrics registration failed", "err", err)
		return 1
	}
	if cfg.MetricsEnabled {
		go p.Serve(ctx, appLog, cfg.MetricsAddr, cfg.MetricsPath)
	}

	store, ready, closeCache := buildCache(ctx, cfg.Cache, appLog)
	defer closeCache()

	client, err := storefront.New(cfg.Storefront.URL, cfg.Storefront.Version, cfg.Storefront.Token, storefront.Options{
		Logger:    appLog,
		HTTP:      httpclient.NewOutbound(cfg.Storefront.Timeout),
		Cache:     store,
		CacheTTL:  cfg.Cache.TTL,
		OpTimeout: cfg.Cache.OpTimeout,
	})
	if err != nil {
		appLog.Error("failed to initialize storefront client", "err", err)
		return 1
	}

	deps := server.Deps{
		Lister:   client,
		Defaults: model.Locale{Country: cfg.DefaultCountry, Language: cfg.DefaultLanguage},
		Ready:    ready,
		Metrics:  p.Handler(),
	}

	if cfg.Events.Enabled {
		pub, err := listingevents.NewPublisher(appLog, cfg.Events.Brokers, cfg.Events.Topic, cfg.Events.Queue)
		if err != nil {
			appLog.Warn("listing events disabled", "err", err)
		} else {
			deps.Views = pub
			defer func() {
				if err := pub.Close(); err != nil {
					appLog.Warn("listing events close failed", "err", err)
				}
			}()
		}
	}

	if cfg.Invalidation.Enabled {
		if purger, ok := store.(cache.Purger); ok {
			ic := cfg.Invalidation
			consumer := kafkaconsumer.New(kafkaconsumer.Config{
				Brokers:             ic.Brokers,
				Topic:               ic.Topic,
				GroupID:             ic.GroupID,
				InitialOffsetOldest: ic.InitialOldest,
				Prefixes:            []string{keys.ListingPrefix(storefront.OpAllProducts)},
			}, appLog, purger)
			if err := consumer.Start(ctx); err != nil {
				appLog.Warn("catalog invalidation disabled", "err", err)
			} else {
				defer consumer.Stop()
			}
		}
	}

	if err := server.Run(ctx, cfg, appLog, deps); err != nil {
		appLog.Error("server exited with error", "err", err)
		return 1
	}
	appLog.Info("server stopped")
	return 0
}

// buildCache never fails: an unreachable Redis degrades to the in-process LRU.
func buildCache(ctx context.Context, cc config.CacheCfg, log *slog.Logger) (cache.Interface, map[string]health.Pinger, func()) {
	noop := func() {}
	switch cc.Driver {
	case config.CacheDriverNone:
		return cache.Nop{}, nil, noop
	case config.CacheDriverRedis:
		dialCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		rc, err := redisstore.New(dialCtx, cc.RedisAddr)
		if err == nil {
			log.Info("redis cache connected", "addr", cc.RedisAddr)
			return rc, map[string]health.Pinger{"redis": rc}, func() { _ = rc.Close() }
		}
		log.Warn("redis unavailable, using memory cache", "addr", cc.RedisAddr, "err", err)
	}

	ms, err := memory.New(cc.MemorySize)
	if err != nil {
		log.Warn("memory cache disabled", "err", err)
		return cache.Nop{}, nil, noop
	}
	return ms, nil, noop
}
