package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"vcregistry/internal/credential/audit"
	"vcregistry/internal/credential/handler"
	credmetrics "vcregistry/internal/credential/metrics"
	"vcregistry/internal/credential/service"
	"vcregistry/internal/credential/store"
	"vcregistry/internal/kvstore"
	"vcregistry/internal/platform/config"
	"vcregistry/internal/platform/database"
	"vcregistry/internal/platform/health"
	"vcregistry/internal/platform/httpserver"
	"vcregistry/internal/platform/kafka/producer"
	"vcregistry/internal/platform/logger"
	platformredis "vcregistry/internal/platform/redis"
	"vcregistry/internal/platform/scheduler"
	"vcregistry/internal/platform/tracer"
	"vcregistry/internal/ratelimit"
	httptransport "vcregistry/internal/transport/http"
	request "vcregistry/pkg/platform/middleware/request"
	"vcregistry/pkg/secrets"
)

const statsInterval = "@every 15s"

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal/credential.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "vcregistry:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}

	log, logCloser := logger.New(cfg.Log)
	defer logCloser.Close()
	slog.SetDefault(log)
	log.Info("initializing vcregistry", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracer.Setup(ctx, cfg.Tracing)
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracer shutdown failed", "error", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	redisMetrics := platformredis.NewPoolMetrics(registry)
	dbMetrics := database.NewStatsMetrics(registry)
	httpMetrics := request.NewMetricsWith(registry)
	credentialMetrics := credmetrics.NewWith(registry)

	backend, err := kvstore.Open(ctx, cfg, redisMetrics)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	defer func() {
		if err := backend.Close(); err != nil {
			log.Warn("store close failed", "backend", backend.Name, "error", err)
		}
	}()
	log.Info("credential store ready", "backend", backend.Name)

	healthHandler := health.New(cfg.Environment)
	healthHandler.RegisterCheck("kv", backend.Health)

	writerOpts := []audit.Option{
		audit.WithLogger(log),
		audit.WithMetrics(credentialMetrics),
	}
	var kafka *producer.Producer
	if cfg.Audit.KafkaBrokers != "" {
		kafka, err = producer.New(producer.DefaultConfig(cfg.Audit.KafkaBrokers), log)
		if err != nil {
			return fmt.Errorf("create audit producer: %w", err)
		}
		stream := audit.NewStreamSink(kafka, cfg.Audit.Topic,
			audit.WithStreamLogger(log),
			audit.WithBreakerObserver(credentialMetrics.SetAuditCircuitOpen),
		)
		writerOpts = append(writerOpts, audit.WithMirror(stream),
			audit.WithAsyncBuffer(cfg.Audit.BufferSize),
			audit.WithMirrorTimeout(cfg.Audit.MirrorTimeout),
		)
		healthHandler.RegisterCheck("kafka", kafka.Health)
		log.Info("audit stream enabled", "topic", cfg.Audit.Topic)
	}
	auditWriter := audit.NewWriter(audit.NewKVSink(backend.Store), writerOpts...)

	serviceOpts := []service.Option{
		service.WithAuditor(auditWriter),
		service.WithLogger(log),
		service.WithMetrics(credentialMetrics),
		service.WithTracer(tracer.NewOTel()),
	}
	if cfg.Credential.IssueSecretHash != "" {
		verifier, err := secrets.NewBcrypt(cfg.Credential.IssueSecretHash)
		if err != nil {
			return fmt.Errorf("ISSUE_SECRET_HASH: %w", err)
		}
		serviceOpts = append(serviceOpts, service.WithSecretVerifier(verifier))
	}
	credentialService := service.New(
		store.New(backend.Store),
		service.Config{
			IssueSecret: cfg.Credential.IssueSecret,
			IssuerName:  cfg.Credential.IssuerName,
		},
		serviceOpts...,
	)
	if err := credentialService.CheckConfigured(); err != nil {
		log.Warn("neither ISSUE_SECRET nor ISSUE_SECRET_HASH is set; issue and revoke will answer missing_env")
	}

	jobs := scheduler.New(scheduler.WithLogger(log))

	handlerOpts := []handler.Option{handler.WithPublicOrigin(cfg.PublicOrigin)}
	if cfg.RateLimit.WriteLimit > 0 {
		limiter := ratelimit.NewWindow(cfg.RateLimit.WriteLimit, cfg.RateLimit.WriteWindow)
		handlerOpts = append(handlerOpts, handler.WithWriteGuard(ratelimit.Middleware(limiter, log)))
		if err := jobs.Every("@every 1m", "ratelimit_sweep", func() { limiter.Sweep() }); err != nil {
			return err
		}
	}

	trusted, err := cfg.TrustedProxyPrefixes()
	if err != nil {
		return err
	}
	router := httptransport.NewRouter(httptransport.Config{
		TrustedProxies: trusted,
		MaxBodyBytes:   cfg.MaxBodyBytes,
		RequestTimeout: cfg.RequestTimeout,
		Metrics:        httpMetrics,
		Gatherer:       registry,
	}, log,
		handler.New(credentialService, log, handlerOpts...),
		healthHandler,
	)

	if backend.Redis != nil {
		if err := jobs.Every(statsInterval, "redis_pool_stats", backend.Redis.RecordPoolStats); err != nil {
			return err
		}
	}
	if backend.DB != nil {
		pool := backend.DB
		if err := jobs.Every(statsInterval, "db_pool_stats", func() { pool.RecordStats(dbMetrics) }); err != nil {
			return err
		}
	}

	srv := httpserver.New(cfg.Addr, router)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("vcregistry listening", "addr", cfg.Addr)
		return httpserver.Run(gctx, srv, cfg.ShutdownTimeout)
	})
	if jobs.Len() > 0 {
		g.Go(func() error {
			if err := jobs.Start(gctx); !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}

	err = g.Wait()
	log.Info("shutting down")

	// The server has stopped accepting requests, so no further audit entries
	// arrive. Drain queued mirrors before the producer goes away.
	auditWriter.Close()
	if kafka != nil {
		closeCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if cerr := kafka.Close(closeCtx); cerr != nil {
			log.Warn("audit producer close failed", "error", cerr)
		}
	}

	if err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
