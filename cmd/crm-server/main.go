// cmd/crm-server/main.go
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

	"go.uber.org/zap"

	"innovation-crm/internal/api"
	"innovation-crm/internal/common/auth"
	"innovation-crm/internal/common/camunda"
	"innovation-crm/internal/common/config"
	"innovation-crm/internal/common/database"
	"innovation-crm/internal/common/docstore"
	"innovation-crm/internal/common/evolution"
	"innovation-crm/internal/common/logger"
	"innovation-crm/internal/common/observability"
	"innovation-crm/internal/crm/account"
	"innovation-crm/internal/crm/assistant"
	"innovation-crm/internal/crm/board"
	"innovation-crm/internal/crm/challenges"
	"innovation-crm/internal/crm/composer"
	"innovation-crm/internal/crm/contacts"
	"innovation-crm/internal/crm/dispatch"
	"innovation-crm/internal/crm/outbox"
	"innovation-crm/internal/crm/profile"
	"innovation-crm/internal/crm/stages"
	"innovation-crm/internal/crm/startups"
	"innovation-crm/internal/crm/timeline"
	"innovation-crm/pkg/registry"

	stagetransition "innovation-crm/internal/workers/crm/stage-transition"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting CRM server...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	docs := docstore.NewPostgresStore(pg.DB)
	if err := docs.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("document schema setup failed", zap.Error(err))
	}

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()
	zapLog.Info("Redis connected successfully")

	// --- CRM components ---
	repo := startups.NewRepository(docs)

	var stageOpts []stages.Option
	if path := cfg.Pipeline.RegistryPath; path != "" {
		reg, err := registry.LoadRegistry(path)
		if err != nil {
			zapLog.Fatal("stage registry load failed", zap.String("path", path), zap.Error(err))
		}
		stageOpts = append(stageOpts, stages.WithRegistry(reg))
		zapLog.Info("Stage registry loaded", zap.String("version", reg.Version), zap.Int("stages", len(reg.Stages)))
	}
	stageStore := stages.NewStore(docs, repo, log, stageOpts...)

	directory := profile.NewDirectory(docs, rdb.Client, config.GetDuration(cfg.Pipeline.SenderCacheTTL), log)
	emails := outbox.New(docs, cfg.Email)
	messages := timeline.NewLog(docs)

	whatsapp := evolution.NewClient(cfg.Integrations.Evolution)
	if !whatsapp.Enabled() {
		zapLog.Warn("Evolution gateway not configured, WhatsApp sends will fail")
	}

	dispatcher := dispatch.NewDispatcher(emails, whatsapp, messages, log)
	controller := board.NewController(repo, stageStore, directory, dispatcher, obs, log)
	manager := contacts.NewManager(repo, log)

	chat := assistant.NewClient(cfg.Integrations.Assistant, log)
	var chatAssistant api.Assistant
	if chat.Enabled() {
		chatAssistant = chat
	} else {
		zapLog.Warn("Assistant webhook not configured, chat is disabled")
	}

	keycloak := auth.NewKeycloakClient(
		cfg.Auth.Keycloak.URL,
		cfg.Auth.Keycloak.Realm,
		cfg.Auth.Keycloak.ClientID,
		cfg.Auth.Keycloak.ClientSecret,
	)

	// --- Optional Zeebe worker ---
	var worker *stagetransition.Handler
	runWorker := cfg.Camunda.Enabled && config.IsWorkerEnabled(cfg, stagetransition.WorkerName)
	if cfg.Camunda.Enabled && !runWorker {
		zapLog.Info("Stage transition worker disabled in config", zap.String("worker", stagetransition.WorkerName))
	}
	if runWorker {
		var zb *camunda.Client
		err = retryWithBackoff(func() error {
			var err error
			zb, err = camunda.NewClient(cfg.Camunda)
			return err
		}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
		if err != nil {
			zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
		}
		defer zb.Close()

		worker, err = stagetransition.NewHandler(stagetransition.HandlerOptions{
			AppConfig: cfg,
			Camunda:   zb,
			Mover:     controller,
			Logger:    log,
		})
		if err != nil {
			zapLog.Fatal("failed to create stage transition handler", zap.Error(err))
		}
		if err := worker.Register(); err != nil {
			zapLog.Fatal("failed to register stage transition worker", zap.Error(err))
		}
	}

	router := api.NewRouter(api.Dependencies{
		ServiceName: cfg.App.Name,
		Logger:      log,
		Tokens:      keycloak,
		Stages:      stageStore,
		Board:       controller,
		Contacts:    manager,
		Composer:    composer.New(manager, directory, emails, whatsapp, messages, log),
		Timeline:    messages,
		Profiles:    directory,
		Challenges:  challenges.NewService(docs, chat, directory, log),
		Account:     account.NewService(docs, directory, log),
		Assistant:   chatAssistant,
		Checks: []api.HealthCheck{
			{Name: "postgres", Check: pg.Ping},
			{Name: "redis", Check: rdb.Ping},
		},
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("HTTP server failed", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	zapLog.Info("Shutdown signal received, stopping server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error shutting down HTTP server", zap.Error(err))
	}
	if worker != nil {
		worker.Close(shutdownCtx)
	}

	zapLog.Info("CRM server stopped gracefully")
}
