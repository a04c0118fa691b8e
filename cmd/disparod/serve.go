package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/tmc/langchaingo/llms"
	_ "modernc.org/sqlite"

	"github.com/petrijr/disparo"
	"github.com/petrijr/disparo/internal/auth"
	"github.com/petrijr/disparo/internal/functions"
	"github.com/petrijr/disparo/internal/metrics"
	"github.com/petrijr/disparo/internal/server"
	"github.com/petrijr/disparo/internal/taskqueue"
	"github.com/petrijr/disparo/pkg/api"
	"github.com/petrijr/disparo/pkg/config"
	"github.com/petrijr/disparo/pkg/dispatch"
	"github.com/petrijr/disparo/pkg/genai"
)

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and background workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	promObs, err := metrics.NewObserver(registry)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}
	observer := api.NewCompositeObserver(
		disparo.NewLoggingObserver(logger),
		promObs,
	)

	// The auth tables always live in SQLite, even when runs are stored
	// elsewhere.
	sqliteDB, err := sql.Open("sqlite", cfg.Storage.SQLitePath)
	if err != nil {
		return fmt.Errorf("open sqlite database: %w", err)
	}
	defer sqliteDB.Close()

	eng, queue, err := buildBackend(cfg, sqliteDB, observer)
	if err != nil {
		return err
	}

	authStore, err := auth.NewSQLiteStore(sqliteDB)
	if err != nil {
		return err
	}
	authSvc := auth.NewService(authStore)

	if err := registerFunctions(ctx, cfg, eng, logger); err != nil {
		return err
	}

	if n, err := eng.RecoverStuckRuns(ctx); err != nil {
		logger.Warn("recovering stuck runs failed", "error", err)
	} else if n > 0 {
		logger.Info("marked stuck runs as failed", "count", n)
	}

	dispatcher := dispatch.NewDispatcher(queue)
	worker := dispatch.NewWithConfig(eng, queue, dispatch.Config{
		MaxAttempts:  cfg.Worker.MaxAttempts,
		RetryBackoff: cfg.Worker.RetryBackoff,
	})

	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	for i := 0; i < cfg.Worker.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Run(workerCtx, func(err error) {
				logger.Error("worker error", "error", err)
			})
		}()
	}
	logger.Info("workers started", "concurrency", cfg.Worker.Concurrency)

	srv := server.New(server.Config{
		Addr:     cfg.Server.Addr,
		Registry: registry,
	}, eng, dispatcher, authSvc, logger)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		cancelWorkers()
		wg.Wait()
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}

	cancelWorkers()
	wg.Wait()
	return nil
}

// buildBackend returns the engine and task queue for the configured
// storage backend. The postgres backend keeps its task queue in the
// local SQLite database, which is already open for auth.
func buildBackend(cfg *config.Config, sqliteDB *sql.DB, obs api.Observer) (api.Engine, taskqueue.Queue, error) {
	switch cfg.Storage.Backend {
	case "memory":
		return disparo.NewInMemoryEngineWithObserver(obs), taskqueue.NewInMemoryQueue(1024), nil

	case "sqlite":
		eng, err := disparo.NewSQLiteEngineWithObserver(sqliteDB, obs)
		if err != nil {
			return nil, nil, err
		}
		q, err := taskqueue.NewSQLiteQueueWithPollInterval(sqliteDB, cfg.Worker.PollInterval)
		if err != nil {
			return nil, nil, err
		}
		return eng, q, nil

	case "postgres":
		pg, err := sql.Open("pgx", cfg.Storage.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		eng, err := disparo.NewPostgresEngineWithObserver(pg, obs)
		if err != nil {
			return nil, nil, err
		}
		q, err := taskqueue.NewSQLiteQueueWithPollInterval(sqliteDB, cfg.Worker.PollInterval)
		if err != nil {
			return nil, nil, err
		}
		return eng, q, nil

	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Storage.RedisAddr})
		eng := disparo.NewRedisEngineWithObserver(client, obs)
		return eng, taskqueue.NewRedisQueueWithPollInterval(client, cfg.Storage.RedisPrefix, cfg.Worker.PollInterval), nil

	default:
		return nil, nil, fmt.Errorf("unknown storage backend: %s", cfg.Storage.Backend)
	}
}

// registerFunctions registers the built-in functions. The execute-ai
// function is only registered when every provider has an API key, so a
// bare development server still serves hello-world.
func registerFunctions(ctx context.Context, cfg *config.Config, eng api.Engine, logger *slog.Logger) error {
	if err := eng.RegisterFunction(functions.HelloWorld()); err != nil {
		return err
	}

	models := functions.ProviderModels{}
	providers := []struct {
		name  string
		model *llms.Model
	}{
		{genai.ProviderGoogle, &models.Gemini},
		{genai.ProviderOpenAI, &models.OpenAI},
		{genai.ProviderAnthropic, &models.Anthropic},
	}
	for _, p := range providers {
		pc := cfg.Provider(p.name)
		if pc.APIKey == "" {
			logger.Warn("provider not configured, execute-ai disabled", "provider", p.name)
			return nil
		}
		m, err := genai.NewModel(ctx, pc)
		if err != nil {
			return fmt.Errorf("create %s model: %w", p.name, err)
		}
		*p.model = m
	}

	return eng.RegisterFunction(functions.ExecuteAI(models))
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
