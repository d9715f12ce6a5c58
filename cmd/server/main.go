package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/JonMunkholm/eventimport/internal/config"
	"github.com/JonMunkholm/eventimport/internal/core"
	"github.com/JonMunkholm/eventimport/internal/decode"
	"github.com/JonMunkholm/eventimport/internal/logging"
	"github.com/JonMunkholm/eventimport/internal/store"
	"github.com/JonMunkholm/eventimport/internal/web"
)

// eventStore is what both store drivers provide.
type eventStore interface {
	core.EventStore
	web.Pinger
}

func main() {
	// Overload lets a local .env win over inherited variables.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("configuration loaded", "config", cfg.String())

	ctx := context.Background()
	events, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		logger.Error("failed to open event store", "driver", cfg.Database.Driver, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	service, err := core.NewService(core.ServiceOptions{
		Decoder: decode.CSVDecoder{
			HeaderScanRows: cfg.Import.HeaderScanRows,
			MaxRows:        cfg.Import.MaxRows,
			MaxBytes:       cfg.Import.MaxFileSize,
		},
		Store:     events,
		Limiter:   core.NewImportLimiter(cfg.Import.MaxConcurrent, cfg.Import.MaxWaitTime),
		Workspace: cfg.Defaults.SessionDefaults(),
		Validator: core.ValidatorOptions{
			PresenterOverlapIsError: cfg.Import.PresenterOverlapIsError,
			MinDuration:             cfg.Import.MinDuration,
			MaxDuration:             cfg.Import.MaxDuration,
		},
		SessionTTL:   cfg.Import.SessionTTL,
		CodeAttempts: cfg.Import.CodeMaxAttempts,
		Logger:       logger,
	})
	if err != nil {
		logger.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	server := web.NewServer(service, events, cfg)

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Uploads still decoding get to finish before the listener closes.
		limiter := service.Limiter()
		if active := limiter.ActiveCount(); active > 0 {
			logger.Info("waiting for imports to finish decoding", "active", active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				logger.Warn("imports did not finish in time", "error", err)
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server stopped", "error", err)
		closeStore()
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// openStore connects the configured event store. The returned func releases
// it.
func openStore(ctx context.Context, cfg *config.Config) (eventStore, func(), error) {
	if cfg.Database.Driver == config.DriverMemory {
		slog.Warn("using in-memory event store; data is lost on restart")
		return store.NewMemory(), func() {}, nil
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("parse database URL: %w", err)
	}
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping: %w", err)
	}

	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	pg := store.NewPostgres(pool)
	if cfg.Database.AutoMigrate {
		if err := pg.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, err
		}
		slog.Info("database schema ensured")
	}
	return pg, pool.Close, nil
}
