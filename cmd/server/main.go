package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/twmb/franz-go/pkg/kgo"

	"accai/internal/fpchange/dispatch"
	"accai/internal/fpchange/handler"
	fpmetrics "accai/internal/fpchange/metrics"
	"accai/internal/fpchange/models"
	"accai/internal/fpchange/ports"
	"accai/internal/fpchange/service"
	"accai/internal/fpchange/store/contract"
	"accai/internal/fpchange/store/report"
	"accai/internal/platform/config"
	"accai/internal/platform/httpserver"
	"accai/internal/platform/kafka"
	"accai/internal/platform/logger"
	"accai/internal/platform/metrics"
	"accai/internal/platform/redis"
	"accai/pkg/platform/audit"
	kafkapublisher "accai/pkg/platform/audit/publishers/kafka"
	logpublisher "accai/pkg/platform/audit/publishers/logging"
	"accai/pkg/platform/httputil"
	"accai/pkg/platform/middleware/correlation"
	"accai/pkg/platform/middleware/device"
	"accai/pkg/platform/middleware/metadata"
	"accai/pkg/platform/middleware/requesttime"
)

// infra holds the optional backing services so they can be closed on exit.
type infra struct {
	db    *sql.DB
	redis *redis.Client
	kafka *kgo.Client
	audit audit.Publisher
}

func (i *infra) close(log *slog.Logger) {
	if i.audit != nil {
		if err := i.audit.Close(); err != nil {
			log.Warn("failed to close audit publisher", "error", err)
		}
	}
	if i.kafka != nil {
		i.kafka.Close()
	}
	if i.redis != nil {
		if err := i.redis.Close(); err != nil {
			log.Warn("failed to close redis", "error", err)
		}
	}
	if i.db != nil {
		if err := i.db.Close(); err != nil {
			log.Warn("failed to close database", "error", err)
		}
	}
}

// main wires high-level dependencies, exposes the HTTP router, and keeps the
// server lifecycle small. Business logic lives in internal services packages.
func main() {
	cfg := config.FromEnv()
	log := logger.New(cfg.Server.Development())

	if err := run(cfg, log); err != nil {
		log.Error("accai stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := &infra{}
	defer deps.close(log)

	contracts, err := buildContractStore(ctx, cfg.Database, deps, log)
	if err != nil {
		return err
	}
	reports, err := buildReportStore(ctx, cfg, deps, log)
	if err != nil {
		return err
	}
	if err := buildAuditPublisher(ctx, cfg.Kafka, reg, deps, log); err != nil {
		return err
	}
	resolver, err := buildResolver(cfg.Products, log)
	if err != nil {
		return err
	}

	svc, err := service.New(resolver, contracts,
		service.WithLogger(log),
		service.WithMetrics(fpmetrics.New(reg)),
		service.WithReportStore(reports),
		service.WithAuditPublisher(deps.audit),
		service.WithAllowedProducts(cfg.Upload.AllowedProducts...),
		service.WithLimits(cfg.Upload.MaxBytes, cfg.Upload.MaxRows),
	)
	if err != nil {
		return fmt.Errorf("create upload service: %w", err)
	}

	router := newRouter(metrics.NewHTTP(reg), reg, deps)
	handler.New(svc, log, cfg.Upload.MaxBytes).Register(router)

	srv := httpserver.New(cfg.Server.Addr, router)
	errCh := make(chan error, 1)
	go func() {
		log.Info("starting accai", "addr", cfg.Server.Addr, "env", cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	return nil
}

func newRouter(httpMetrics *metrics.HTTP, reg *prometheus.Registry, deps *infra) chi.Router {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Use(device.Middleware)
	r.Use(correlation.Middleware)
	r.Use(httpMetrics.Middleware)

	r.Handle("/metrics", metrics.Handler(reg))
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status := map[string]string{"status": "ok"}
		if deps.db != nil {
			if err := deps.db.PingContext(r.Context()); err != nil {
				status["database"] = "unavailable"
				status["status"] = "degraded"
			}
		}
		if deps.redis != nil {
			if err := deps.redis.Health(r.Context()); err != nil {
				status["redis"] = "unavailable"
				status["status"] = "degraded"
			}
		}
		code := http.StatusOK
		if status["status"] != "ok" {
			code = http.StatusServiceUnavailable
		}
		httputil.WriteJSON(w, code, status)
	})
	return r
}

// buildContractStore opens Postgres when configured and otherwise seeds an
// in-memory store with the development contracts.
func buildContractStore(ctx context.Context, cfg config.Database, deps *infra, log *slog.Logger) (ports.ContractStore, error) {
	if cfg.URL == "" {
		store := contract.NewInMemory()
		if err := contract.Seed(ctx, store, contract.SeedContracts); err != nil {
			return nil, fmt.Errorf("seed contracts: %w", err)
		}
		log.Info("using in-memory contract store", "contracts", len(contract.SeedContracts))
		return store, nil
	}

	db, err := sql.Open("pgx", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}
	deps.db = db
	log.Info("using postgres contract store")
	return contract.NewPostgres(db), nil
}

func buildReportStore(ctx context.Context, cfg config.Config, deps *infra, log *slog.Logger) (ports.ReportStore, error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, err
	}
	if client == nil {
		log.Info("using in-memory report store", "ttl", cfg.ReportTTL)
		return report.NewInMemory(cfg.ReportTTL), nil
	}
	deps.redis = client
	log.Info("using redis report store", "ttl", cfg.ReportTTL)
	return report.NewRedis(client.Client, cfg.ReportTTL), nil
}

// buildAuditPublisher produces audit events to Kafka when brokers are
// configured, and to the log otherwise.
func buildAuditPublisher(ctx context.Context, cfg config.Kafka, reg prometheus.Registerer, deps *infra, log *slog.Logger) error {
	client, err := kafka.New(cfg)
	if err != nil {
		return err
	}
	if client == nil {
		deps.audit = logpublisher.New(log)
		return nil
	}
	deps.kafka = client
	if err := kafka.EnsureTopic(ctx, client, cfg.AuditTopic, 1, 1); err != nil {
		log.Warn("audit topic bootstrap failed", "topic", cfg.AuditTopic, "error", err)
	}
	publisher, err := kafkapublisher.New(client, cfg.AuditTopic,
		kafkapublisher.WithLogger(log),
		kafkapublisher.WithMetrics(kafkapublisher.NewMetrics(reg)),
	)
	if err != nil {
		return fmt.Errorf("create audit publisher: %w", err)
	}
	deps.audit = publisher
	log.Info("publishing audit events to kafka", "topic", cfg.AuditTopic)
	return nil
}

// buildResolver registers one HTTP dispatcher per configured product. A
// product without a base URL stays unregistered and fails resolution.
func buildResolver(products []config.ProductService, log *slog.Logger) (*dispatch.Resolver, error) {
	resolver := dispatch.NewResolver()
	for _, p := range products {
		product, ok := models.ParseProduct(p.Product)
		if !ok {
			return nil, fmt.Errorf("unknown product %q in configuration", p.Product)
		}
		if p.BaseURL == "" {
			log.Warn("product service not configured", "product", product)
			continue
		}
		mode := dispatch.Strict
		if p.Soft {
			mode = dispatch.Soft
		}
		d, err := dispatch.NewHTTPDispatcher(product, p.BaseURL,
			dispatch.WithMode(mode),
			dispatch.WithTimeout(p.Timeout),
			dispatch.WithLogger(log),
		)
		if err != nil {
			return nil, fmt.Errorf("create %s dispatcher: %w", product, err)
		}
		if err := resolver.Register(product, d); err != nil {
			return nil, err
		}
	}
	return resolver, nil
}
