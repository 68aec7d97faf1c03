package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/interview-insights/internal/config"
	"github.com/kirillkom/interview-insights/internal/core/ports"
	"github.com/kirillkom/interview-insights/internal/core/usecase"
	"github.com/kirillkom/interview-insights/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/interview-insights/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/interview-insights/internal/infrastructure/ingestion"
	"github.com/kirillkom/interview-insights/internal/infrastructure/llm/gemini"
	"github.com/kirillkom/interview-insights/internal/infrastructure/queue/nats"
	"github.com/kirillkom/interview-insights/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/interview-insights/internal/infrastructure/resilience"
	"github.com/kirillkom/interview-insights/internal/infrastructure/storage/localfs"
)

// Options carries process-specific hooks.
type Options struct {
	// Observer receives pipeline stage timings. Nil disables them.
	Observer ports.PipelineObserver
	// OnQueueLag receives the queue delay of each consumed upload event.
	OnQueueLag func(time.Duration)
}

type App struct {
	Config config.Config

	Queue    ports.MessageQueue
	Uploader ports.FileUploader
	Files    ports.FileReader
	Projects ports.ProjectManager
	Canvas   ports.CanvasEditor
	Export   ports.InsightsExport
	Analyzer ports.FileAnalyzer

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	repo := postgres.NewFileRepository(db)
	blobs := postgres.NewBlobStore(db)

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	queueExecutor := resilience.NewExecutor(resilience.Config{
		RetryMaxAttempts: cfg.RetryMaxAttempts,
		RetryBaseDelay:   200 * time.Millisecond,
		RetryMaxBackoff:  2 * time.Second,
		BreakerEnabled:   cfg.BreakerEnabled,
	})
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: queueExecutor,
		OnLag:              opts.OnQueueLag,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	prompts, err := gemini.LoadPrompts(cfg.PromptsFile)
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	llm := gemini.New(gemini.Options{
		BaseURL: cfg.GeminiBaseURL,
		APIKey:  cfg.GeminiAPIKey,
		Model:   cfg.GeminiModel,
		Timeout: cfg.GeminiTimeout,
		Executor: resilience.NewExecutor(resilience.Config{
			RetryMaxAttempts: cfg.RetryMaxAttempts,
			RetryBaseDelay:   cfg.RetryBaseDelay,
			BreakerEnabled:   cfg.BreakerEnabled,
		}),
	})
	analyst := gemini.NewAnalyst(llm, prompts)

	ingestor := ingestion.NewAdapter(storage, llm, ingestion.Options{
		InlineThreshold: cfg.InlineThresholdBytes,
		MaxSize:         cfg.MaxUploadBytes,
		PollInterval:    cfg.RemotePollInterval,
		PollTimeout:     cfg.RemotePollTimeout,
		UploadExecutor: resilience.NewExecutor(resilience.Config{
			RetryMaxAttempts: cfg.UploadRetryMaxAttempts,
			RetryBaseDelay:   cfg.RetryBaseDelay,
			BreakerEnabled:   false,
		}),
	}, pdf.NewExtractor(storage))

	projects := usecase.NewProjectService(blobs, cfg.HistoryLimit)
	canvas := usecase.NewCanvasService(projects, xlsx.NewExporter())

	return &App{
		Config: cfg,
		Queue:  queue,

		Uploader: usecase.NewIngestFileUseCase(repo, storage, queue, projects, cfg.MaxUploadBytes),
		Files:    usecase.NewFileCatalog(repo, storage, projects),
		Projects: projects,
		Canvas:   canvas,
		Export:   canvas,
		Analyzer: usecase.NewAnalyzeFileUseCase(repo, ingestor, analyst, projects, opts.Observer),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
