// The takt worker relays the PostgreSQL outbox to RabbitMQ. It exists
// for multi-process installs; single-binary SQLite installs drain their
// outbox in-process and never run it.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fieldscale/takt/internal/shared/infrastructure/eventbus"
	"github.com/fieldscale/takt/internal/shared/infrastructure/outbox"
	"github.com/fieldscale/takt/pkg/config"
	"github.com/fieldscale/takt/pkg/observability"
	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "takt-worker:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logCfg := observability.ProductionLogConfig()
	if cfg.IsDevelopment() {
		logCfg = observability.DefaultLogConfig()
		logCfg.Level = observability.LogLevelDebug
	}
	logCfg.ServiceName = "takt-worker"
	logger := observability.NewLogger(logCfg)

	logger.Info("worker starting")

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("open database pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}
	logger.Info("database connected")

	publisher, err := buildPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer publisher.Close()

	repo := outbox.NewPostgresRepository(pool)
	processor := outbox.NewProcessor(repo, publisher, outbox.ProcessorConfig{
		PollInterval: cfg.OutboxPollInterval,
		BatchSize:    cfg.OutboxBatchSize,
		MaxRetries:   cfg.OutboxMaxRetries,
	}, logger)

	if err := processor.Start(ctx); err != nil {
		return fmt.Errorf("start outbox relay: %w", err)
	}

	go pruneLoop(ctx, repo, cfg, logger)
	go statsLoop(ctx, processor, cfg.OutboxStatsInterval, logger)

	if cfg.WorkerHealthAddr != "" {
		serveHealth(ctx, cfg.WorkerHealthAddr, pool, processor, logger)
	}

	<-ctx.Done()
	logger.Info("worker shutting down")
	processor.Stop()
	return nil
}

// buildPublisher connects to RabbitMQ. Development installs fall back
// to a noop publisher when the broker is absent, so the worker can run
// against a bare database.
func buildPublisher(cfg *config.Config, logger *slog.Logger) (eventbus.Publisher, error) {
	pub, err := eventbus.NewRabbitMQPublisher(cfg.RabbitMQURL, logger)
	if err != nil {
		if cfg.IsDevelopment() {
			logger.Warn("rabbitmq unavailable, events will be dropped", "error", err)
			return eventbus.NewNoopPublisher(logger), nil
		}
		return nil, fmt.Errorf("connect rabbitmq: %w", err)
	}
	return pub, nil
}

// pruneLoop deletes published rows older than the retention window.
func pruneLoop(ctx context.Context, repo *outbox.PostgresRepository, cfg *config.Config, logger *slog.Logger) {
	ticker := time.NewTicker(cfg.OutboxCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := repo.DeleteOld(ctx, cfg.OutboxRetentionDays)
			if err != nil {
				logger.Error("outbox prune failed", "error", err)
				continue
			}
			if deleted > 0 {
				logger.Info("outbox pruned",
					"deleted", deleted,
					"retention_days", cfg.OutboxRetentionDays,
				)
			}
		}
	}
}

// statsLoop reports relay lag so a stuck broker shows up in the logs,
// not just on the health endpoint.
func statsLoop(ctx context.Context, processor *outbox.Processor, every time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := processor.GetStats()
			logger.Info("outbox relay stats",
				"running", stats.IsRunning,
				"published", stats.PublishedCount,
				"failed", stats.FailedCount,
				"dead", stats.DeadCount,
				"lag_seconds", stats.LagSeconds,
				"oldest_message_at", stats.OldestMessageAt,
				"last_processed_at", stats.LastProcessedAt,
				"last_error", stats.LastError,
			)
		}
	}
}

// serveHealth exposes liveness (relay counters) and readiness (database
// reachability) on the worker's own port.
func serveHealth(ctx context.Context, addr string, pool *pgxpool.Pool, processor *outbox.Processor, logger *slog.Logger) {
	health := observability.NewHealthRegistry()
	health.Register("database", observability.DatabaseHealthChecker(pool.Ping))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		stats := processor.GetStats()
		writeJSON(w, http.StatusOK, map[string]any{
			"status":            "ok",
			"running":           stats.IsRunning,
			"published":         stats.PublishedCount,
			"failed":            stats.FailedCount,
			"dead":              stats.DeadCount,
			"lag_seconds":       stats.LagSeconds,
			"last_processed_at": stats.LastProcessedAt,
			"last_error_at":     stats.LastErrorAt,
			"last_error":        stats.LastError,
		})
	})

	mux.HandleFunc("GET /readyz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		report := health.GetOverallHealth(checkCtx)
		status := http.StatusOK
		if report.Status == observability.HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, report)
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("worker health server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("worker health server failed", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("worker health server shutdown", "error", err)
		}
	}()
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
