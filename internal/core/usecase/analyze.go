package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kirillkom/interview-insights/internal/core/domain"
	"github.com/kirillkom/interview-insights/internal/core/ports"
	"github.com/kirillkom/interview-insights/internal/core/remap"
)

const failureRecordTimeout = 10 * time.Second

// AnalyzeFileUseCase runs ingestion and the three analysis stages for one
// file. The main stage is mandatory; affinity and insights run concurrently
// after it and fall back to empty results when they fail.
type AnalyzeFileUseCase struct {
	repo     ports.FileRepository
	ingestor ports.ContentIngestor
	analyst  ports.InterviewAnalyst
	sink     ports.AnalysisSink
	observer ports.PipelineObserver
}

func NewAnalyzeFileUseCase(
	repo ports.FileRepository,
	ingestor ports.ContentIngestor,
	analyst ports.InterviewAnalyst,
	sink ports.AnalysisSink,
	observer ports.PipelineObserver,
) *AnalyzeFileUseCase {
	if observer == nil {
		observer = noopObserver{}
	}
	return &AnalyzeFileUseCase{
		repo:     repo,
		ingestor: ingestor,
		analyst:  analyst,
		sink:     sink,
		observer: observer,
	}
}

func (uc *AnalyzeFileUseCase) ProcessByID(ctx context.Context, fileID string) error {
	file, err := uc.repo.GetByID(ctx, fileID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Info("analysis_skipped_removed_file", "file_id", fileID)
			return nil
		}
		return fmt.Errorf("fetch file by id: %w", err)
	}

	progress := uc.progressReporter(ctx, file)

	data, err := uc.analyze(ctx, file, progress)
	if err != nil {
		return uc.fail(ctx, file, err)
	}

	present, err := uc.stillPresent(ctx, file.ID)
	if err != nil {
		return uc.fail(ctx, file, err)
	}
	if !present {
		slog.Info("analysis_discarded_removed_file", "file_id", file.ID)
		return nil
	}

	if err := uc.repo.SaveAnalysis(ctx, file.ID, data); err != nil {
		return uc.fail(ctx, file, fmt.Errorf("save analysis: %w", err))
	}
	if err := uc.sink.MergeFileResult(ctx, file, data); err != nil {
		return uc.fail(ctx, file, fmt.Errorf("merge analysis into project: %w", err))
	}

	doneCtx, cancel := detached(ctx)
	defer cancel()
	if err := uc.repo.UpdateStatus(doneCtx, file.ID, domain.FileUploaded, 100, ""); err != nil && !errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("mark file uploaded: %w", err)
	}
	return nil
}

// fail records processErr on the file and the project banner, then returns
// it. Recording outlives the run's context so a timed-out run is still
// reported.
func (uc *AnalyzeFileUseCase) fail(ctx context.Context, file *domain.ProjectFile, processErr error) error {
	recordCtx, cancel := detached(ctx)
	defer cancel()
	if failErr := uc.markFailed(recordCtx, file, processErr); failErr != nil {
		slog.Error("record_file_failure_failed", "file_id", file.ID, "error", failErr)
		return fmt.Errorf("%w; mark failed status: %v", processErr, failErr)
	}
	return processErr
}

func detached(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), failureRecordTimeout)
}

func (uc *AnalyzeFileUseCase) analyze(ctx context.Context, file *domain.ProjectFile, progress domain.ProgressFunc) (domain.ResearchData, error) {
	content, err := uc.ingestor.Ingest(ctx, file, progress)
	if err != nil {
		return domain.ResearchData{}, fmt.Errorf("ingest file: %w", err)
	}

	var primary domain.MainAnalysis
	err = uc.stage(domain.StageMain, func() error {
		var stageErr error
		primary, stageErr = uc.analyst.AnalyzeInterview(ctx, content)
		return stageErr
	})
	if err != nil {
		return domain.ResearchData{}, fmt.Errorf("main analysis: %w", err)
	}
	progress(domain.FileProcessing, 70)

	var (
		affinity domain.AffinityResult
		insights domain.InsightsResult
	)
	var g errgroup.Group
	g.Go(func() error {
		err := uc.stage(domain.StageAffinity, func() error {
			var stageErr error
			affinity, stageErr = uc.analyst.ClusterHighlights(ctx, content, primary.Highlights)
			return stageErr
		})
		return uc.degrade(ctx, domain.StageAffinity, file, err, func() { affinity = domain.AffinityResult{} })
	})
	g.Go(func() error {
		err := uc.stage(domain.StageInsights, func() error {
			var stageErr error
			insights, stageErr = uc.analyst.DeriveInsights(ctx, content, primary.Highlights)
			return stageErr
		})
		return uc.degrade(ctx, domain.StageInsights, file, err, func() { insights = domain.InsightsResult{} })
	})
	if err := g.Wait(); err != nil {
		return domain.ResearchData{}, err
	}
	progress(domain.FileProcessing, 90)

	return remap.Merge(file.ID, primary, affinity, insights), nil
}

func (uc *AnalyzeFileUseCase) stage(name string, fn func() error) error {
	started := time.Now()
	err := fn()
	uc.observer.ObserveStage(name, time.Since(started), err)
	return err
}

// degrade swallows a best-effort stage failure. Cancellation of the whole
// run is still reported.
func (uc *AnalyzeFileUseCase) degrade(ctx context.Context, stage string, file *domain.ProjectFile, err error, reset func()) error {
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s analysis: %w", stage, ctxErr)
	}
	reset()
	uc.observer.ObserveDegraded(stage)
	slog.Warn("pipeline_stage_degraded",
		"stage", stage,
		"file_id", file.ID,
		"quota_exhausted", errors.Is(err, domain.ErrQuotaExhausted),
		"error", err,
	)
	return nil
}

func (uc *AnalyzeFileUseCase) progressReporter(ctx context.Context, file *domain.ProjectFile) domain.ProgressFunc {
	last := file.Progress
	return func(status domain.FileStatus, percent int) {
		if percent < 0 {
			percent = last
		}
		last = percent
		if err := uc.repo.UpdateStatus(ctx, file.ID, status, percent, ""); err != nil && !errors.Is(err, domain.ErrNotFound) {
			slog.Warn("progress_update_failed", "file_id", file.ID, "status", status, "error", err)
		}
	}
}

func (uc *AnalyzeFileUseCase) stillPresent(ctx context.Context, fileID string) (bool, error) {
	_, err := uc.repo.GetByID(ctx, fileID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("fetch file by id: %w", err)
}

func (uc *AnalyzeFileUseCase) markFailed(ctx context.Context, file *domain.ProjectFile, processErr error) error {
	message := UserMessage(processErr)
	if err := uc.repo.UpdateStatus(ctx, file.ID, domain.FileError, 0, message); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	return uc.sink.RecordFailure(ctx, file, message)
}

type noopObserver struct{}

func (noopObserver) ObserveStage(string, time.Duration, error) {}
func (noopObserver) ObserveDegraded(string)                    {}
