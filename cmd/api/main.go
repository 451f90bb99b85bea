package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-chi-calculations/internal/auth"
	"go-chi-calculations/internal/calculation"
	"go-chi-calculations/internal/config"
	"go-chi-calculations/internal/observability"
	"go-chi-calculations/internal/server"

	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "calculations-api: %v\n", err)
		os.Exit(1)
	}
}

// run returns instead of exiting so deferred shutdowns always execute.
func run() error {

	ctx := context.Background()

	if err := loadDotEnv(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Logger
	err = observability.InitLogger(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return err
	}
	defer observability.SyncLogger()

	observability.SetServiceName(cfg.Telemetry.ServiceName)

	if cfg.Telemetry.Enabled {
		// Tracing
		traceShutdown, err := observability.InitTracing(ctx)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer traceShutdown(ctx)

		// Metrics
		metricShutdown, err := initMetrics(ctx)
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		defer metricShutdown(ctx)

		// Logs
		logShutdown, err := observability.InitLogging(ctx)
		if err != nil {
			return fmt.Errorf("init logging: %w", err)
		}
		defer logShutdown(ctx)
	} else if err := initDomainMetrics(); err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}

	logger := observability.Logger

	// Storage
	store, closeStore, err := openStore(ctx, cfg.Storage)
	if err != nil {
		logger.Error("failed to open store", zap.String("driver", cfg.Storage.Driver), zap.Error(err))
		return err
	}
	defer closeStore()

	blacklist, closeBlacklist, err := openBlacklist(ctx, cfg.Redis)
	if err != nil {
		logger.Error("failed to connect to redis", zap.Error(err))
		return err
	}
	defer closeBlacklist()

	publisher, closePublisher := openPublisher(cfg.Kafka)
	defer closePublisher()

	// Services
	authSvc := auth.NewService(
		store,
		auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		blacklist,
		cfg.Auth.MinPasswordLength,
		logger.Named("auth"),
	)
	calcSvc := calculation.NewService(store, logger.Named("calculation"), calculation.WithPublisher(publisher))

	// Router
	router := server.NewRouter(server.Deps{
		Calculations: calcSvc,
		Auth:         authSvc,
		CORSOrigins:  cfg.HTTP.CORSOrigins,
		Ping:         store.Ping,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("server started",
			zap.String("addr", cfg.HTTP.Addr),
			zap.String("storage", cfg.Storage.Driver),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	return waitForShutdown(srv, serverErr, cfg.HTTP.ShutdownTimeout)
}

func waitForShutdown(srv *http.Server, serverErr <-chan error, timeout time.Duration) error {

	stop := make(chan os.Signal, 1)

	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	var runErr error
	select {
	case sig := <-stop:
		observability.Logger.Info("shutting down", zap.String("signal", sig.String()))
	case runErr = <-serverErr:
		observability.Logger.Error("server failed", zap.Error(runErr))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		observability.Logger.Error("graceful shutdown failed", zap.Error(err))
		return errors.Join(runErr, err)
	}
	return runErr
}
