package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"registrar/internal/audit"
	"registrar/internal/entity"
	"registrar/internal/platform/config"
	"registrar/internal/platform/httpserver"
	"registrar/internal/platform/logger"
	"registrar/internal/platform/metrics"
	platformredis "registrar/internal/platform/redis"
	"registrar/internal/registry/apply"
	"registrar/internal/registry/clients"
	"registrar/internal/registry/collision"
	"registrar/internal/registry/profile"
	"registrar/internal/registry/service"
	"registrar/internal/registry/snapshot"
	httptransport "registrar/internal/transport/http"
)

const schemaTimeout = 30 * time.Second

// main wires the stores, registry clients and the enrichment service, then
// runs the HTTP server and the audit relay until a shutdown signal arrives.
func main() {
	cfg := config.FromEnv()
	log := logger.New()

	if cfg.DatabaseURL == "" {
		log.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), schemaTimeout)
	if err := ensureSchemas(ctx, db); err != nil {
		cancel()
		log.Error("ensure schemas", "error", err)
		os.Exit(1)
	}
	cancel()

	redisClient, err := platformredis.New(cfg.RedisURL)
	if err != nil {
		log.Error("connect redis", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	m := metrics.New()

	entities := entity.NewPostgresStore(db)
	affiliations := entity.NewPostgresAffiliationStore(db)
	snapshots := snapshot.NewPostgresStore(db)
	profiles := profile.NewPostgresStore(db)
	auditStore := audit.NewPostgresStore(db)
	publisher := audit.NewPublisher(auditStore)

	recorder, err := snapshot.NewRecorder(snapshots, m, log)
	if err != nil {
		log.Error("build snapshot recorder", "error", err)
		os.Exit(1)
	}
	detector, err := collision.NewDetector(entities, log)
	if err != nil {
		log.Error("build collision detector", "error", err)
		os.Exit(1)
	}
	applier, err := apply.New(entities, affiliations, publisher, db, m, log)
	if err != nil {
		log.Error("build applier", "error", err)
		os.Exit(1)
	}

	svc, err := service.New(service.Config{
		Entities:     entities,
		Affiliations: affiliations,
		Recorder:     recorder,
		Snapshots:    snapshots,
		Profiles:     profiles,
		Cache:        profile.NewFetchCache(redisClient, cfg.FetchCacheTTL, m, log),
		Clients: []clients.Client{
			clients.NewKRSClient(cfg.KRS),
			clients.NewCEIDGClient(cfg.CEIDG),
		},
		Detector:    detector,
		Applier:     applier,
		Publisher:   publisher,
		Metrics:     m,
		Logger:      log,
		Concurrency: cfg.EnrichConcurrency,
	})
	if err != nil {
		log.Error("build enrichment service", "error", err)
		os.Exit(1)
	}

	handler, err := httptransport.NewHandler(svc, entities, log)
	if err != nil {
		log.Error("build http handler", "error", err)
		os.Exit(1)
	}
	srv := httpserver.New(cfg.Addr, httptransport.NewRouter(handler, cfg.JWTSigningKey, log))

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if len(cfg.KafkaBrokers) > 0 {
		relay, err := audit.NewRelay(auditStore, cfg.KafkaBrokers, cfg.AuditTopic, log)
		if err != nil {
			log.Error("build audit relay", "error", err)
			os.Exit(1)
		}
		defer relay.Close()
		go func() {
			if err := relay.Run(runCtx); err != nil && runCtx.Err() == nil {
				log.Error("audit relay stopped", "error", err)
			}
		}()
	}

	go func() {
		log.Info("registrar listening", "addr", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-runCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
}

func ensureSchemas(ctx context.Context, db *sql.DB) error {
	if err := entity.EnsureSchema(ctx, db); err != nil {
		return err
	}
	if err := snapshot.NewPostgresStore(db).EnsureSchema(ctx); err != nil {
		return err
	}
	if err := profile.NewPostgresStore(db).EnsureSchema(ctx); err != nil {
		return err
	}
	return audit.NewPostgresStore(db).EnsureSchema(ctx)
}
