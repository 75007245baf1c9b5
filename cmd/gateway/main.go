// Command gateway serves the forecast submission API.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"

	httpadapter "github.com/couchcryptid/forecast-submission-gateway/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/forecast-submission-gateway/internal/adapter/kafka"
	"github.com/couchcryptid/forecast-submission-gateway/internal/allowlist"
	"github.com/couchcryptid/forecast-submission-gateway/internal/archive"
	"github.com/couchcryptid/forecast-submission-gateway/internal/config"
	"github.com/couchcryptid/forecast-submission-gateway/internal/forecast"
	"github.com/couchcryptid/forecast-submission-gateway/internal/observability"
	"github.com/couchcryptid/forecast-submission-gateway/internal/registry"
	"github.com/couchcryptid/forecast-submission-gateway/internal/registry/sqlite"
	"github.com/couchcryptid/forecast-submission-gateway/internal/submission"
)

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, metrics); err != nil {
		logger.Error("gateway failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) error {
	rules, err := forecast.RulesByName(cfg.RuleSet)
	if err != nil {
		return err
	}

	dates, refresher, err := datePolicy(cfg, logger, metrics)
	if err != nil {
		return err
	}
	if refresher != nil {
		if err := refresher.Start(); err != nil {
			return fmt.Errorf("start allow-list refresher: %w", err)
		}
		defer refresher.Stop()
	}

	validator, err := forecast.NewValidator(rules, dates, logger)
	if err != nil {
		return err
	}

	var (
		reg       registry.Registry = registry.Noop{}
		registrar httpadapter.Registrar
	)
	if cfg.RegistryPath != "" {
		store, err := sqlite.Open(ctx, cfg.RegistryPath, nil)
		if err != nil {
			return fmt.Errorf("open registry: %w", err)
		}
		defer store.Close()
		reg, registrar = store, store
		logger.Info("team registry enabled", "path", cfg.RegistryPath)
	} else {
		logger.Info("team registry disabled, accepting all teams")
	}

	var notifier submission.Notifier
	if cfg.KafkaEnabled {
		writer := kafkaadapter.NewWriter(cfg, logger)
		defer func() {
			if err := writer.Close(); err != nil {
				logger.Error("kafka writer close error", "error", err)
			}
		}()
		notifier = writer
		logger.Info("kafka notifications enabled", "topic", cfg.KafkaTopic)
	}

	svc := submission.New(validator, reg, archiveStore(cfg, logger), notifier, logger, metrics, submission.Settings{
		UploadRetries: cfg.UploadRetries,
	})

	srv := httpadapter.NewServer(cfg.HTTPAddr, cfg.MaxUploadBytes, svc, registrar, svc, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	logger.Info("gateway started",
		"ruleset", cfg.RuleSet,
		"date_policy", cfg.DatePolicy,
		"archive", cfg.ArchiveKind,
	)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}

func datePolicy(cfg *config.Config, logger *slog.Logger, metrics *observability.Metrics) (forecast.DatePolicy, *allowlist.Refresher, error) {
	switch cfg.DatePolicy {
	case config.DatePolicyNone:
		return forecast.FormatOnly{}, nil, nil
	case config.DatePolicyAllowlist:
		list, err := allowlist.Load(cfg.AllowlistPath)
		if err != nil {
			return nil, nil, err
		}
		metrics.AllowlistDates.Set(float64(list.Len()))
		refresher := allowlist.NewRefresher(list, cfg.AllowlistRefresh, logger, func(err error) {
			outcome := "success"
			if err != nil {
				outcome = "error"
			}
			metrics.AllowlistReloads.WithLabelValues(outcome).Inc()
			metrics.AllowlistDates.Set(float64(list.Len()))
		})
		logger.Info("start date allow-list loaded", "path", cfg.AllowlistPath, "dates", list.Len())
		return list, refresher, nil
	default:
		w := forecast.NewThursdayWindow(clockwork.NewRealClock())
		w.Days = cfg.WindowDays
		return w, nil, nil
	}
}

func archiveStore(cfg *config.Config, logger *slog.Logger) archive.Store {
	var store archive.Store
	switch cfg.ArchiveKind {
	case config.ArchiveFTP:
		store = archive.FTP{
			Addr:     cfg.FTPAddr,
			User:     cfg.FTPUser,
			Password: cfg.FTPPassword,
			Root:     cfg.ArchiveRoot,
			Timeout:  cfg.FTPTimeout,
		}
	default:
		store = archive.Dir{Root: cfg.ArchiveDir}
	}
	return archive.NewBreaker(store, "archive-"+cfg.ArchiveKind, uint32(cfg.BreakerFailures), cfg.BreakerOpenFor, logger)
}
