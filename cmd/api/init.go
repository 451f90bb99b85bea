package main

import (
	"context"
	"fmt"

	"go-chi-calculations/internal/auth"
	"go-chi-calculations/internal/calculation"
	"go-chi-calculations/internal/config"
	"go-chi-calculations/internal/events"
	"go-chi-calculations/internal/observability"
	"go-chi-calculations/internal/storage/memory"
	"go-chi-calculations/internal/storage/postgres"
	"go-chi-calculations/internal/storage/sqlite"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// initMetrics initialises the OTLP meter provider. Domain instruments are
// created separately by initDomainMetrics so they exist even when
// telemetry export is disabled.
func initMetrics(ctx context.Context) (func(context.Context) error, error) {
	shutdown, err := observability.InitMetrics(ctx)
	if err != nil {
		return nil, err
	}

	if err := initDomainMetrics(); err != nil {
		return nil, err
	}

	return shutdown, nil
}

func initDomainMetrics() error {
	if err := calculation.InitMetrics(); err != nil {
		return err
	}
	return auth.InitMetrics()
}

// store is what every storage driver provides.
type store interface {
	calculation.Store
	auth.UserStore
	Ping(ctx context.Context) error
}

func openStore(ctx context.Context, cfg config.StorageConfig) (store, func() error, error) {
	switch cfg.Driver {
	case config.DriverSQLite:
		s, err := sqlite.New(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return s, s.Close, nil
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return s, s.Close, nil
	default:
		return memory.New(), func() error { return nil }, nil
	}
}

func openBlacklist(ctx context.Context, cfg config.RedisConfig) (auth.Blacklist, func() error, error) {
	if !cfg.Enabled {
		observability.Logger.Warn("redis disabled, token revocations are kept in memory")
		return auth.NewMemoryBlacklist(), func() error { return nil }, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	observability.Logger.Info("redis connected", zap.String("addr", cfg.Addr()))
	return auth.NewRedisBlacklist(rdb), rdb.Close, nil
}

func openPublisher(cfg config.KafkaConfig) (calculation.Publisher, func() error) {
	if !cfg.Enabled {
		return events.NopPublisher{}, func() error { return nil }
	}

	p := events.NewKafkaPublisher(cfg.Brokers, cfg.Topic)
	observability.Logger.Info("kafka publisher configured",
		zap.String("brokers", cfg.Brokers),
		zap.String("topic", cfg.Topic),
	)
	return p, p.Close
}
