package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"time"

	_ "github.com/lib/pq"

	"transferdesk/internal/audit"
	"transferdesk/internal/auth"
	httpapi "transferdesk/internal/http"
	"transferdesk/internal/learning"
	"transferdesk/internal/platform/config"
	"transferdesk/internal/platform/httpserver"
	"transferdesk/internal/platform/logger"
	"transferdesk/internal/platform/metrics"
	platformredis "transferdesk/internal/platform/redis"
	trackingservice "transferdesk/internal/tracking/service"
	trackingstore "transferdesk/internal/tracking/store"
	"transferdesk/internal/validation"
	"transferdesk/internal/validation/adapters"
	"transferdesk/internal/validation/advisory"
)

// main wires dependencies and keeps the server lifecycle small. Business
// logic lives in the internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New()

	ctx := context.Background()

	// Stores. With POSTGRES_DSN set, records and audit entries share one
	// database and transitions commit in a single SQL transaction. Without
	// it everything runs in memory, which is enough for local development.
	var (
		records  trackingstore.RecordStore
		auditLog audit.Store
		txRunner trackingservice.Tx
	)
	if cfg.PostgresDSN != "" {
		db, err := sql.Open("postgres", cfg.PostgresDSN)
		if err != nil {
			log.Error("open postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Error("ping postgres", "error", err)
			os.Exit(1)
		}
		pgRecords := trackingstore.NewPostgresRecordStore(db)
		pgAudit := audit.NewPostgresStore(db)
		records = pgRecords
		auditLog = pgAudit
		txRunner = newTrackingPostgresTx(db, pgRecords, pgAudit)
		log.Info("using postgres stores")
	} else {
		memRecords := trackingstore.NewInMemoryRecordStore()
		memAudit := audit.NewInMemoryStore()
		records = memRecords
		auditLog = memAudit
		txRunner = trackingservice.NewMemoryTx(memRecords, memAudit)
		log.Info("using in-memory stores")
	}

	cache, err := platformredis.New(ctx, cfg.RedisAddr)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if cache != nil {
		defer cache.Close()
		log.Info("learning cache backed by redis", "addr", cfg.RedisAddr)
	}

	learner := learning.NewService(auditLog, records, cache, cfg.LearningCacheTTL, cfg.MinSubmissions, m, log)

	var advisoryClient advisory.Client
	if cfg.AdvisoryURL != "" {
		advisoryClient = advisory.NewHTTPClient(cfg.AdvisoryURL)
		log.Info("advisory service enabled", "url", cfg.AdvisoryURL)
	}

	scoring := validation.DefaultScoringConfig()
	scoring.BaseRate = cfg.BaseSuccessRate
	scoring.AdvisoryTimeout = cfg.AdvisoryTimeout
	validator := validation.NewService(advisoryClient, adapters.NewLearningHistory(learner), scoring, m, log)

	tracker, err := trackingservice.NewService(records, txRunner, m, log)
	if err != nil {
		log.Error("build tracking service", "error", err)
		os.Exit(1)
	}

	authService := auth.NewService(auth.NewInMemoryUserStore(), auditLog, cfg.JWTSigningKey, log)

	handler := httpapi.NewHandler(validator, tracker, learner, authService)
	router := httpapi.NewRouter(handler, authService)

	srv := httpserver.New(cfg.Addr, router)

	log.Info("starting transferdesk", "addr", cfg.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
}
