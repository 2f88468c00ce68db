// cmd/mail-relay/main.go
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"innovation-crm/internal/common/aws"
	"innovation-crm/internal/common/config"
	"innovation-crm/internal/common/database"
	"innovation-crm/internal/common/docstore"
	"innovation-crm/internal/common/logger"

	emailrelay "innovation-crm/internal/workers/communication/email-relay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	relayCfg := emailrelay.ConfigFrom(cfg)
	if !relayCfg.Enabled {
		zapLog.Info("Mail relay disabled, exiting")
		return
	}
	if err := relayCfg.Validate(); err != nil {
		zapLog.Fatal("invalid mail relay config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pg, err := database.NewPostgres(cfg.Database.Postgres)
	if err != nil {
		zapLog.Fatal("postgres init failed", zap.Error(err))
	}
	defer pg.Close()
	if err := pg.Ping(ctx); err != nil {
		zapLog.Fatal("postgres ping failed", zap.Error(err))
	}

	docs := docstore.NewPostgresStore(pg.DB)
	if err := docs.EnsureSchema(ctx); err != nil {
		zapLog.Fatal("document schema setup failed", zap.Error(err))
	}

	sesClient, err := aws.NewSESClient(ctx, cfg.Integrations.AWS)
	if err != nil {
		zapLog.Fatal("ses client init failed", zap.Error(err))
	}

	srv := &http.Server{Addr: cfg.Server.Address, Handler: healthMux(pg, sesClient)}
	go func() {
		zapLog.Info("Health/Metrics server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	relay := emailrelay.NewService(relayCfg, docs, sesClient, log)
	if err := relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		zapLog.Error("Mail relay stopped with error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	zapLog.Info("Mail relay stopped gracefully")
}

func healthMux(pg *database.PostgresClient, sesClient *aws.SESClient) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		checks := map[string]string{"postgres": "ok", "ses": "ok"}
		status := http.StatusOK
		if err := pg.Ping(ctx); err != nil {
			checks["postgres"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		if err := sesClient.HealthCheck(ctx); err != nil {
			checks["ses"] = err.Error()
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, checks)
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
