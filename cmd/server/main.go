// Command server runs the certnexus certificate service: wiring and lifecycle
// only, business logic lives under internal/.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"certnexus/internal/audit"
	"certnexus/internal/certificate/code"
	"certnexus/internal/certificate/handler"
	"certnexus/internal/certificate/metrics"
	"certnexus/internal/certificate/service"
	certstore "certnexus/internal/certificate/store"
	"certnexus/internal/platform/config"
	"certnexus/internal/platform/httpserver"
	"certnexus/internal/platform/logger"
	"certnexus/internal/platform/postgres"
	platformredis "certnexus/internal/platform/redis"
	"certnexus/internal/platform/token"
	"certnexus/internal/ratelimit"
	"certnexus/internal/storage"
	httptransport "certnexus/internal/transport/http"
)

const shutdownGrace = 15 * time.Second

func main() {
	cfg := config.FromEnv()
	log := logger.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	store := certstore.NewPostgresStore(db)

	var objects storage.ObjectStore
	if cfg.OSS.Endpoint != "" {
		ossStore, err := storage.NewOSSStore(cfg.OSS)
		if err != nil {
			log.Error("object storage unavailable", "error", err)
			os.Exit(1)
		}
		objects = ossStore
	} else {
		log.Warn("no OSS endpoint configured, using in-memory object storage")
		objects = storage.NewMemoryStore("mem://certnexus")
	}

	auditStore := audit.NewPostgresStore(db)
	auditPublisher := audit.NewPublisher(auditStore, log)
	auditWorker, err := audit.NewWorker(cfg.Kafka, auditStore, log)
	if err != nil {
		log.Error("audit worker init failed", "error", err)
		os.Exit(1)
	}
	if auditWorker != nil {
		// Run owns the Kafka client and closes it on ctx cancellation.
		go func() {
			if err := auditWorker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("audit worker stopped", "error", err)
			}
		}()
	}

	checks := map[string]func() error{
		"postgres": func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return db.PingContext(pingCtx)
		},
	}

	var limiterStore ratelimit.Store = ratelimit.NewInMemoryStore()
	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		os.Exit(1)
	}
	if redisClient != nil {
		defer redisClient.Close()
		limiterStore = ratelimit.NewRedisStore(redisClient.Client)
		checks["redis"] = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return redisClient.Health(pingCtx)
		}
	} else {
		log.Warn("no redis configured, rate limiting is per-instance only")
	}
	limiter := ratelimit.NewLimiter(limiterStore, cfg.RateLimit.VerifyLimit, cfg.RateLimit.VerifyWindow)

	svc := service.New(
		store,
		objects,
		store,
		code.NewGenerator(),
		auditPublisher,
		metrics.New(),
		log,
		cfg.Certs,
	)

	tokens := token.NewService(cfg.Server.JWTSigningKey)
	certHandler := handler.New(svc, log, tokens, limiter)
	router := httptransport.NewRouter(certHandler, log, checks)

	srv := httpserver.New(cfg.Server.Addr, router)
	go func() {
		log.Info("certnexus listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown incomplete", "error", err)
	}
}
