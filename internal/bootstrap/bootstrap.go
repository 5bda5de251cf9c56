// Package bootstrap assembles the application graph from configuration.
package bootstrap

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pzhurov/papersmith/internal/config"
	"github.com/pzhurov/papersmith/internal/core/ports"
	"github.com/pzhurov/papersmith/internal/core/usecase"
	"github.com/pzhurov/papersmith/internal/infrastructure/llm/heuristic"
	"github.com/pzhurov/papersmith/internal/infrastructure/llm/mistral"
	"github.com/pzhurov/papersmith/internal/infrastructure/pdftext"
	"github.com/pzhurov/papersmith/internal/infrastructure/queue/nats"
	"github.com/pzhurov/papersmith/internal/infrastructure/render"
	"github.com/pzhurov/papersmith/internal/infrastructure/repository/memory"
	"github.com/pzhurov/papersmith/internal/infrastructure/repository/postgres"
	"github.com/pzhurov/papersmith/internal/infrastructure/resilience"
	"github.com/pzhurov/papersmith/internal/infrastructure/schema"
	"github.com/pzhurov/papersmith/internal/infrastructure/storage/localfs"
	"github.com/pzhurov/papersmith/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Metrics *metrics.HTTPServerMetrics

	UploadUC    ports.DocumentUploader
	ProcessUC   ports.DocumentProcessor
	DocumentsUC *usecase.DocumentsUseCase
	GenerateUC  ports.DocumentGenerator
	SettingsUC  ports.SettingsService

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	documentStore, settingsStore, closeStores, err := newStores(ctx, cfg)
	if err != nil {
		return nil, err
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	validator, err := schema.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("compile extraction schema: %w", err)
	}

	serverMetrics := metrics.NewHTTPServerMetrics("api")

	executor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts:    cfg.RetryMaxAttempts,
		RetryInitialBackoff: time.Duration(cfg.RetryInitialBackoffMS) * time.Millisecond,
		RetryMaxBackoff:     time.Duration(cfg.RetryMaxBackoffMS) * time.Millisecond,
		RetryMultiplier:     2.0,
		BreakerEnabled:      true,
		BreakerMinRequests:  uint32(cfg.BreakerFailureThreshold),
		BreakerOpenTimeout:  time.Duration(cfg.BreakerOpenMS) * time.Millisecond,
		OnRetry: func(operation string) {
			serverMetrics.RecordProviderRetry("api", operation)
		},
	})
	mistralClient := mistral.New(cfg.MistralURL, cfg.MistralChatModel, cfg.MistralOCRModel, executor)

	var text ports.TextExtractor
	switch cfg.TextExtractionMode {
	case "ocr":
		text = mistral.NewTextExtractor(mistralClient, storage, cfg.MinTextLength)
	default:
		text = pdftext.NewExtractor(storage, cfg.MinTextLength)
	}

	var fallback ports.FallbackExtractor
	if cfg.ExtractionFallback == "heuristic" {
		fallback = &countingFallback{
			inner:   heuristic.New(),
			metrics: serverMetrics,
		}
	}

	var events ports.EventPublisher = nats.NoopPublisher{}
	var closePublisher func()
	if cfg.NATSURL != "" {
		publisher, err := nats.New(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: executor,
		})
		if err != nil {
			return nil, fmt.Errorf("init event publisher: %w", err)
		}
		events = publisher
		closePublisher = publisher.Close
	}

	renderer := render.NewRenderer(render.Branding{
		CompanyName: cfg.CompanyName,
		Tagline:     cfg.CompanyTagline,
		FooterNote:  cfg.CompanyFooter,
	})

	app := &App{
		Config:  cfg,
		Metrics: serverMetrics,

		UploadUC:    usecase.NewUploadDocumentUseCase(documentStore, storage, events),
		ProcessUC:   usecase.NewProcessDocumentUseCase(documentStore, settingsStore, text, mistralClient, fallback, validator, events),
		DocumentsUC: usecase.NewDocumentsUseCase(documentStore, storage, validator, events),
		GenerateUC:  usecase.NewGenerateDocumentUseCase(documentStore, renderer),
		SettingsUC:  usecase.NewSettingsUseCase(settingsStore, mistralClient),

		closeFn: func() {
			if closePublisher != nil {
				closePublisher()
			}
			if closeStores != nil {
				closeStores()
			}
		},
	}
	return app, nil
}

func newStores(ctx context.Context, cfg config.Config) (ports.DocumentStore, ports.SettingsStore, func(), error) {
	switch cfg.StoreBackend {
	case "postgres":
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		documentStore := postgres.NewDocumentStore(db)
		if err := documentStore.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return documentStore, postgres.NewSettingsStore(db), func() { _ = db.Close() }, nil
	case "", "memory":
		return memory.NewDocumentStore(), memory.NewSettingsStore(), nil, nil
	default:
		slog.Warn("unknown store backend, using memory", "backend", cfg.StoreBackend)
		return memory.NewDocumentStore(), memory.NewSettingsStore(), nil, nil
	}
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}

// countingFallback counts heuristic extractions so dashboards can tell
// provider-served documents from locally synthesized ones.
type countingFallback struct {
	inner   ports.FallbackExtractor
	metrics *metrics.HTTPServerMetrics
}

func (c *countingFallback) ExtractStructured(text string) json.RawMessage {
	c.metrics.RecordFallbackExtraction("api")
	return c.inner.ExtractStructured(text)
}
