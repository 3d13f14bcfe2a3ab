package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/kirillkom/slidedeck-ingest/internal/config"
	"github.com/kirillkom/slidedeck-ingest/internal/core/ports"
	"github.com/kirillkom/slidedeck-ingest/internal/core/usecase"
	"github.com/kirillkom/slidedeck-ingest/internal/infrastructure/extractor"
	"github.com/kirillkom/slidedeck-ingest/internal/infrastructure/queue/nats"
	"github.com/kirillkom/slidedeck-ingest/internal/infrastructure/renderer/convertapi"
	"github.com/kirillkom/slidedeck-ingest/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/slidedeck-ingest/internal/infrastructure/resilience"
	"github.com/kirillkom/slidedeck-ingest/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/slidedeck-ingest/internal/infrastructure/storage/supabase"
	"github.com/kirillkom/slidedeck-ingest/internal/observability/metrics"
)

const serviceName = "slidedeck-api"

type App struct {
	Config config.Config

	UploadUC    ports.PresentationUploader
	HTTPMetrics *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	executor := resilience.NewExecutor(resilienceConfig(cfg))

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewPresentationRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	store, err := newObjectStore(cfg, executor)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	workspace, err := localfs.NewWorkspace(cfg.WorkdirRoot)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init workdir: %w", err)
	}

	renderer := convertapi.NewWithOptions(cfg.ConvertAPIURL, cfg.ConvertAPIKey, convertapi.Options{
		Format:             cfg.ConvertAPIImageFormat,
		RenderTimeout:      cfg.RenderTimeout,
		ResilienceExecutor: executor,
	})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	httpMetrics := metrics.NewHTTPServerMetricsWithRegistry(serviceName, registry)
	uploadMetrics := metrics.NewUploadMetrics(serviceName, registry)

	opts := []usecase.UploadOption{
		usecase.WithRecorder(uploadMetrics),
		usecase.WithLogger(slog.Default()),
		usecase.WithImageExtension(cfg.ConvertAPIImageFormat),
	}

	var publisher *nats.Publisher
	if strings.TrimSpace(cfg.NATSURL) != "" {
		publisher, err = nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{ResilienceExecutor: executor})
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		opts = append(opts, usecase.WithEventPublisher(publisher))
	}

	uploadUC := usecase.NewUploadPresentationUseCase(
		workspace,
		extractor.NewRegistry(),
		renderer,
		store,
		repo,
		usecase.Buckets{Documents: cfg.BucketDocuments, Images: cfg.BucketImages},
		opts...,
	)

	return &App{
		Config:      cfg,
		UploadUC:    uploadUC,
		HTTPMetrics: httpMetrics,

		closeFn: func() {
			if publisher != nil {
				publisher.Close()
			}
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

func resilienceConfig(cfg config.Config) resilience.Config {
	out := resilience.DefaultConfig()
	out.BreakerEnabled = cfg.BreakerEnabled
	if cfg.BreakerMinRequests > 0 {
		out.BreakerMinRequests = uint32(cfg.BreakerMinRequests)
	}
	if cfg.BreakerFailureRatio > 0 {
		out.BreakerFailureRatio = cfg.BreakerFailureRatio
	}
	if cfg.BreakerOpenTimeout > 0 {
		out.BreakerOpenTimeout = cfg.BreakerOpenTimeout
	}
	return out
}

func newObjectStore(cfg config.Config, executor *resilience.Executor) (ports.ObjectStore, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.StorageBackend)) {
	case "", "supabase":
		return supabase.NewWithOptions(cfg.SupabaseURL, cfg.SupabaseServiceKey, supabase.Options{
			ResilienceExecutor: executor,
		}), nil
	case "localfs":
		store, err := localfs.New(cfg.StoragePath, cfg.SupabaseURL)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
