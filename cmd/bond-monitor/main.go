package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"

	"github.com/Checker-Finance/bond-monitor/internal/api"
	"github.com/Checker-Finance/bond-monitor/internal/jobs"
	"github.com/Checker-Finance/bond-monitor/internal/monitor"
	"github.com/Checker-Finance/bond-monitor/internal/publisher"
	internalsecrets "github.com/Checker-Finance/bond-monitor/internal/secrets"
	"github.com/Checker-Finance/bond-monitor/internal/source"
	"github.com/Checker-Finance/bond-monitor/internal/store"
	"github.com/Checker-Finance/bond-monitor/internal/tushare"
	"github.com/Checker-Finance/bond-monitor/pkg/config"
	"github.com/Checker-Finance/bond-monitor/pkg/logger"
	"github.com/Checker-Finance/bond-monitor/pkg/secrets"
	"github.com/Checker-Finance/bond-monitor/pkg/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Load configuration ---
	cfg := config.Load()

	logger.Init(cfg.ServiceName, cfg.Env, cfg.LogLevel)
	defer logger.Sync()
	logg := logger.S()
	logg.Infof("starting [%s]...", cfg.ServiceName)
	logg.Info("connection to DSN: ", utils.MaskDSN(cfg.DatabaseURL))

	// --- Provider token (static env value, or AWS Secrets Manager) ---
	var provider secrets.Provider
	if cfg.TushareToken == "" && cfg.TushareTokenSecret != "" {
		awsProvider, err := secrets.NewAWSProvider(ctx, cfg.AWSRegion)
		if err != nil {
			logg.Fatalw("failed to create AWS Secrets Manager provider", "error", err)
		}
		provider = awsProvider
	}
	resolver := internalsecrets.NewTokenResolver(
		logger.L(),
		cfg.TushareToken,
		cfg.TushareTokenSecret,
		provider,
		secrets.NewCache[string](cfg.SecretCacheTTL),
	)
	token, err := resolver.Resolve(ctx)
	if err != nil {
		logg.Warnw("provider token unavailable", "error", err)
	}

	// --- Market data source ---
	registry := source.NewRegistry()
	registry.Register("tushare", tushare.Factory)
	registry.Register("static", source.StaticFactory)

	src, err := registry.New(ctx, cfg.DataSource, source.Deps{
		Config: cfg,
		Logger: logger.L(),
		Token:  token,
	})
	if err != nil {
		logg.Fatalw("failed to init data source", "source", cfg.DataSource, "error", err)
	}

	// --- Store (Redis + Postgres hybrid) ---
	hybrid, err := store.NewHybrid(store.RedisConfig{
		Addr:     cfg.RedisAddr,
		DB:       cfg.RedisDB,
		Password: cfg.RedisPass,
	}, cfg.DatabaseURL, store.PGPoolConfig{
		MaxConns:          int32(cfg.PGMaxConns),
		MinConns:          int32(cfg.PGMinConns),
		MaxConnLifetime:   cfg.PGMaxConnLifetime,
		MaxConnIdleTime:   cfg.PGMaxConnIdleTime,
		HealthCheckPeriod: cfg.PGHealthCheckPeriod,
	}, logger.L())
	if err != nil {
		logg.Fatalw("failed to init store", "error", err)
	}
	var st store.Store = hybrid
	if err := st.Migrate(ctx); err != nil {
		logg.Fatalw("failed to migrate schema", "error", err)
	}

	// --- NATS (optional) ---
	var nc *nats.Conn
	var events jobs.EventPublisher
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			logg.Warnw("failed to connect to NATS; snapshot events disabled", "error", err)
			nc = nil
		}
	}
	if nc != nil {
		if js, err := nc.JetStream(); err != nil {
			logg.Warnw("jetstream unavailable", "error", err)
		} else if err := publisher.EnsureStream(js, cfg.EventsStream, cfg.EventsSubject); err != nil {
			logg.Warnw("failed to ensure event stream", "stream", cfg.EventsStream, "error", err)
		}
		pub, err := publisher.New(nc, cfg.EventsSubject, cfg.ServiceName)
		if err != nil {
			logg.Fatalw("failed to init publisher", "error", err)
		}
		events = pub
	}

	// --- Pair assembler ---
	assembler := monitor.NewAssembler(logger.L(), src,
		monitor.WithThresholds(monitor.NewThresholds(cfg.SignalLimitUpPct, cfg.SignalBigRisePct)),
	)

	// --- Background jobs ---
	poller := jobs.NewMonitorPoller(logger.L(), assembler, src, st, events, jobs.PollerConfig{
		Interval:    cfg.MonitoringInterval,
		Limit:       cfg.UniverseLimit,
		SnapshotTTL: cfg.SnapshotTTL,
	})
	if cfg.PollerEnabled {
		go poller.Start(ctx)
	} else {
		logg.Info("POLLER_ENABLED=false; pairs are assembled on request only")
	}

	sweeper := jobs.NewRetentionSweeper(logger.L(), st, cfg.AutoCleanupInterval, jobs.Retention{
		Prices:  cfg.PriceRetention,
		Signals: cfg.SignalRetention,
		Trades:  cfg.TradeRetention,
	})
	go sweeper.Start(ctx)

	// --- Fiber HTTP Server ---
	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.HTTPReadTimeout,
		WriteTimeout: cfg.HTTPWriteTimeout,
		IdleTimeout:  cfg.HTTPIdleTimeout,
		BodyLimit:    cfg.HTTPBodyLimit,
	})

	api.UseCORS(app, cfg.CORSAllowOrigins)
	handler := api.NewMonitoringHandler(logger.L(), assembler, src, st, poller, cfg.DBSizeLimitMB)
	api.RegisterRoutes(app, nc, st, cfg.ServiceName, handler)

	go func() {
		logg.Infof("HTTP API listening on :%d", cfg.Port)
		if err := app.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
			logg.Fatalw("fiber.listen_failed", "error", err)
		}
	}()

	logg.Infow(fmt.Sprintf("[%s] running", cfg.ServiceName),
		"env", cfg.Env,
		"source", cfg.DataSource,
		"calls_per_minute", cfg.CallsPerMinute,
		"poller", cfg.PollerEnabled,
		"interval", cfg.MonitoringInterval)

	<-ctx.Done()
	logg.Infof("shutting down [%s]...", cfg.ServiceName)

	poller.Stop()
	sweeper.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logg.Warnw("fiber.shutdown_failed", "error", err)
	}
	if nc != nil {
		if err := nc.Drain(); err != nil {
			logg.Warnw("nats.drain_failed", "error", err)
		}
	}
	if err := st.Close(); err != nil {
		logg.Warnw("store.close_failed", "error", err)
	}
}
