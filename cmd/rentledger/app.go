package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/nhatro/rentledger"
	audithook "github.com/nhatro/rentledger/audit_hook"
	"github.com/nhatro/rentledger/config"
	"github.com/nhatro/rentledger/lock"
	"github.com/nhatro/rentledger/observability"
	"github.com/nhatro/rentledger/store/backend"
)

// app is an engine wired from configuration.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	engine   *rentledger.Engine
	registry *prometheus.Registry
	metrics  *observability.PrometheusFactory
	redis    *redis.Client
}

// newApp loads the configuration, opens the store and starts the engine.
// The caller must call close.
func newApp(ctx context.Context, envFiles []string) (*app, error) {
	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg)

	s, err := backend.Open(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = observability.NewPrometheusFactory(a.registry)

	opts := []rentledger.Option{
		rentledger.WithLogger(logger),
		rentledger.WithRates(cfg.Rates()),
		rentledger.WithLandlord(cfg.Landlord),
		rentledger.WithValidateOnLoad(cfg.ValidateOnLoad),
		rentledger.WithPlugin(observability.NewMetricsExtension(a.metrics)),
		rentledger.WithPlugin(audithook.New(audithook.LogRecorder(logger), audithook.WithLogger(logger))),
	}
	if cfg.RedisAddr != "" {
		a.redis = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			_ = a.redis.Close() //nolint:errcheck // already failing
			_ = s.Close()       //nolint:errcheck // already failing
			return nil, fmt.Errorf("redis: %w", err)
		}
		opts = append(opts, rentledger.WithLocker(lock.NewRedis(a.redis)))
	}

	a.engine = rentledger.New(s, opts...)
	if err := a.engine.Start(ctx); err != nil {
		_ = a.close() //nolint:errcheck // already failing
		return nil, err
	}

	logger.Info("store opened", "driver", cfg.Store.Driver, "redis_lock", a.redis != nil)
	return a, nil
}

func (a *app) close() error {
	err := a.engine.Stop()
	if a.redis != nil {
		err = errors.Join(err, a.redis.Close())
	}
	return err
}

// newLogger builds the process logger from LOG_FORMAT and LOG_LEVEL and
// makes it the slog default.
func newLogger(cfg config.Config) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	hopts := &slog.HandlerOptions{Level: level}

	var h slog.Handler = slog.NewTextHandler(os.Stderr, hopts)
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(os.Stderr, hopts)
	}
	logger := slog.New(h).With("service", "rentledger")
	slog.SetDefault(logger)
	return logger
}
