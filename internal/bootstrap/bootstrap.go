package bootstrap

import (
	"context"
	"fmt"

	"medvault/internal/config"
	"medvault/internal/core/ports"
	"medvault/internal/core/usecase"
	natsevents "medvault/internal/infrastructure/events/nats"
	"medvault/internal/infrastructure/export/flowdoc"
	"medvault/internal/infrastructure/export/pdfgen"
	"medvault/internal/infrastructure/llm/gemini"
	"medvault/internal/infrastructure/normalizer"
	"medvault/internal/infrastructure/repository/postgres"
	"medvault/internal/infrastructure/resilience"
	"medvault/internal/infrastructure/storage/scratch"
	"medvault/internal/observability/metrics"
)

type App struct {
	Config  config.Config
	Metrics *metrics.PipelineMetrics

	Session  *usecase.Session
	ExportUC *usecase.ExportReportUseCase

	// ProgressEvents is non-nil when NATS publishing is configured.
	ProgressEvents ports.ProgressSink

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewDocumentRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	handles, err := scratch.New(cfg.ScratchDir)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init handle cache: %w", err)
	}

	executor := resilience.NewExecutor(resilience.Config{BreakerEnabled: cfg.BreakerEnabled})
	client := gemini.New(cfg.GeminiBaseURL, cfg.GeminiModel, cfg.GeminiAPIKey, gemini.Options{
		RequestsPerMinute: cfg.GeminiRequestsPerMinute,
		Executor:          executor,
	})

	ingestUC := usecase.NewIngestDocumentsUseCase(normalizer.New(), gemini.NewClassifier(client), cfg.BatchSize)
	synthUC := usecase.NewSynthesizeReportUseCase(gemini.NewSynthesizer(client))
	session := usecase.NewSession(repo, handles, ingestUC, synthUC)
	exportUC := usecase.NewExportReportUseCase(pdfgen.New(cfg.CompressThreshold), flowdoc.New())

	var publisher *natsevents.ProgressPublisher
	var progressEvents ports.ProgressSink
	if cfg.NATSURL != "" {
		publisher, err = natsevents.New(cfg.NATSURL, cfg.NATSSubject)
		if err != nil {
			handles.Close()
			_ = db.Close()
			return nil, fmt.Errorf("init progress publisher: %w", err)
		}
		progressEvents = publisher
	}

	return &App{
		Config:         cfg,
		Metrics:        metrics.NewPipelineMetrics("medvault"),
		Session:        session,
		ExportUC:       exportUC,
		ProgressEvents: progressEvents,

		closeFn: func() {
			if publisher != nil {
				publisher.Close()
			}
			handles.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
