package usecase

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/interview-insights/internal/core/domain"
)

func sampleMainAnalysis() domain.MainAnalysis {
	return domain.MainAnalysis{
		Transcript: "Question: Why?\nAnswer: Because.",
		Tags:       []domain.Tag{{ID: "t1", Label: "Reason", Color: "#fff"}},
		Highlights: []domain.Highlight{{ID: "h1", Text: "Because.", TagID: "t1"}},
		Sentiment:  domain.Sentiment{Label: "neutral"},
	}
}

type pipelineFixture struct {
	repo     *fileRepoFake
	blobs    *blobStoreFake
	projects *ProjectService
	analyst  *analystFake
	ingestor *ingestorFake
	observer *observerFake
	uc       *AnalyzeFileUseCase
	file     *domain.ProjectFile
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	blobs := newBlobStoreFake()
	projects := newTestProjects(blobs, 10)
	session, err := projects.EnsureSession(context.Background(), "interview.txt")
	if err != nil {
		t.Fatalf("EnsureSession() error = %v", err)
	}
	file := &domain.ProjectFile{ID: "file-1", ProjectID: session.ID, Filename: "interview.txt", Type: domain.FileTypeText, Status: domain.FileUploading}
	f := &pipelineFixture{
		repo:     newFileRepoFake(file),
		blobs:    blobs,
		projects: projects,
		analyst: &analystFake{
			main: sampleMainAnalysis(),
			affinity: domain.AffinityResult{Themes: []domain.Theme{
				{ID: "th1", Title: "Motivation", Subclusters: []domain.Subcluster{{ID: "s1", Title: "Reasons", HighlightIDs: []string{"h1"}}}},
			}},
			insights: domain.InsightsResult{Rows: []domain.InsightRow{{QuoteID: "h1", Theme: "Motivation"}}},
		},
		ingestor: &ingestorFake{handle: domain.ContentHandle{Kind: domain.ContentText, Text: "Question: Why?"}},
		observer: newObserverFake(),
		file:     file,
	}
	f.uc = NewAnalyzeFileUseCase(f.repo, f.ingestor, f.analyst, projects, f.observer)
	return f
}

func TestProcessByIDSuccess(t *testing.T) {
	f := newPipelineFixture(t)

	if err := f.uc.ProcessByID(context.Background(), "file-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	statuses := f.repo.statuses()
	if statuses[0] != domain.FileUploading || statuses[len(statuses)-1] != domain.FileUploaded {
		t.Fatalf("unexpected status sequence %v", statuses)
	}
	for _, s := range statuses[:len(statuses)-1] {
		if s == domain.FileUploaded {
			t.Fatalf("uploaded must be reported only after the whole pipeline, got %v", statuses)
		}
	}
	stored, _ := f.repo.GetByID(context.Background(), "file-1")
	if stored.Progress != 100 {
		t.Fatalf("expected progress 100, got %d", stored.Progress)
	}

	data, ok := f.repo.saved["file-1"]
	if !ok {
		t.Fatalf("expected analysis saved on the file")
	}
	if data.Tags[0].ID != "file-1_t1" || data.Highlights[0].TagID != "file-1_t1" {
		t.Fatalf("expected prefixed ids, got %+v %+v", data.Tags, data.Highlights)
	}
	if len(data.Clusters) != 1 || data.Clusters[0].Items[0].HighlightIDs[0] != "file-1_h1" {
		t.Fatalf("unexpected clusters %+v", data.Clusters)
	}
	if data.Insights.Table[0].Text != "Because." {
		t.Fatalf("expected quote resolved, got %+v", data.Insights.Table[0])
	}
	if len(f.analyst.gotHighlights) != 1 || f.analyst.gotHighlights[0].ID != "h1" {
		t.Fatalf("affinity stage must receive main-stage highlights, got %+v", f.analyst.gotHighlights)
	}

	session, _ := f.projects.Session(context.Background())
	if session.Data == nil || session.Data.Transcript != "Question: Why?\nAnswer: Because." {
		t.Fatalf("expected document merged into session, got %+v", session.Data)
	}
	if f.observer.stages[domain.StageMain] != 1 || f.observer.stages[domain.StageAffinity] != 1 || f.observer.stages[domain.StageInsights] != 1 {
		t.Fatalf("expected each stage observed once, got %v", f.observer.stages)
	}
}

func TestProcessByIDDegradesWhenEnrichmentStagesFail(t *testing.T) {
	f := newPipelineFixture(t)
	f.analyst.affinityErr = domain.WrapError(domain.ErrQuotaExhausted, "generate", errors.New("429"))
	f.analyst.insightsErr = domain.WrapError(domain.ErrQuotaExhausted, "generate", errors.New("429"))

	if err := f.uc.ProcessByID(context.Background(), "file-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}

	data := f.repo.saved["file-1"]
	if data.Transcript == "" || len(data.Tags) != 1 || len(data.Highlights) != 1 {
		t.Fatalf("expected main-stage content kept, got %+v", data)
	}
	if data.Clusters == nil || len(data.Clusters) != 0 {
		t.Fatalf("expected empty clusters, got %#v", data.Clusters)
	}
	if len(data.Insights.Table) != 0 || len(data.Insights.WordCloud) != 0 || len(data.Insights.Scatter) != 0 {
		t.Fatalf("expected empty insights, got %+v", data.Insights)
	}
	if len(f.observer.degraded) != 2 || f.observer.degraded[0] != domain.StageAffinity || f.observer.degraded[1] != domain.StageInsights {
		t.Fatalf("expected both stages degraded, got %v", f.observer.degraded)
	}
	stored, _ := f.repo.GetByID(context.Background(), "file-1")
	if stored.Status != domain.FileUploaded {
		t.Fatalf("expected uploaded status, got %s", stored.Status)
	}
}

func TestProcessByIDMainStageFailureIsFatal(t *testing.T) {
	f := newPipelineFixture(t)
	f.analyst.mainErr = domain.WrapError(domain.ErrQuotaExhausted, "generate", errors.New("RESOURCE_EXHAUSTED"))

	err := f.uc.ProcessByID(context.Background(), "file-1")
	if !errors.Is(err, domain.ErrQuotaExhausted) {
		t.Fatalf("expected ErrQuotaExhausted, got %v", err)
	}

	stored, _ := f.repo.GetByID(context.Background(), "file-1")
	if stored.Status != domain.FileError || stored.Error != QuotaExhaustedMessage {
		t.Fatalf("unexpected failed file %+v", stored)
	}
	if _, ok := f.repo.saved["file-1"]; ok {
		t.Fatalf("failed pipeline must not save analysis")
	}
	session, _ := f.projects.Session(context.Background())
	if !strings.HasPrefix(session.Error, "interview.txt: ") || session.Data != nil {
		t.Fatalf("expected project banner and no document, got %+v", session)
	}
}

func TestProcessByIDIngestionFailureSkipsModelCalls(t *testing.T) {
	f := newPipelineFixture(t)
	f.ingestor.err = domain.WrapError(domain.ErrSizeLimit, "ingest", errors.New("too big"))

	err := f.uc.ProcessByID(context.Background(), "file-1")
	if !errors.Is(err, domain.ErrSizeLimit) {
		t.Fatalf("expected ErrSizeLimit, got %v", err)
	}
	if len(f.observer.stages) != 0 {
		t.Fatalf("no stage may run after failed ingestion, got %v", f.observer.stages)
	}
}

func TestProcessByIDDiscardsResultOfRemovedFile(t *testing.T) {
	f := newPipelineFixture(t)
	f.repo.onStatus = func(status domain.FileStatus) {
		if status == domain.FileProcessing {
			_ = f.repo.Delete(context.Background(), "file-1")
		}
	}

	if err := f.uc.ProcessByID(context.Background(), "file-1"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(f.repo.saved) != 0 {
		t.Fatalf("removed file must not receive results")
	}
	session, _ := f.projects.Session(context.Background())
	if session.Data != nil {
		t.Fatalf("removed file must not change the project document")
	}
}

func TestProcessByIDSkipsUnknownFile(t *testing.T) {
	f := newPipelineFixture(t)

	if err := f.uc.ProcessByID(context.Background(), "missing"); err != nil {
		t.Fatalf("ProcessByID() error = %v", err)
	}
	if len(f.repo.statusCalls) != 0 {
		t.Fatalf("unexpected status updates %v", f.repo.statusCalls)
	}
}

func TestProcessByIDCancellationIsNotDegraded(t *testing.T) {
	f := newPipelineFixture(t)
	f.analyst.affinityErr = context.Canceled
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := f.uc.ProcessByID(ctx, "file-1")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(f.observer.degraded) != 0 {
		t.Fatalf("cancellation must not count as degradation, got %v", f.observer.degraded)
	}
}

func TestProcessByIDMergesFilesIntoOneDocument(t *testing.T) {
	f := newPipelineFixture(t)
	second := &domain.ProjectFile{ID: "file-2", ProjectID: f.file.ProjectID, Filename: "second.txt", Type: domain.FileTypeText}
	_ = f.repo.Create(context.Background(), second)

	for _, id := range []string{"file-1", "file-2", "file-2"} {
		if err := f.uc.ProcessByID(context.Background(), id); err != nil {
			t.Fatalf("ProcessByID(%s) error = %v", id, err)
		}
	}

	session, _ := f.projects.Session(context.Background())
	data := session.Data
	if len(session.MergedFileIDs) != 2 || len(data.Tags) != 2 || len(data.Highlights) != 2 {
		t.Fatalf("expected two files merged once each, got %+v", session)
	}
	if data.Tags[0].ID == data.Tags[1].ID || data.Highlights[0].ID == data.Highlights[1].ID {
		t.Fatalf("ids collide across files: %+v %+v", data.Tags, data.Highlights)
	}
	if !strings.Contains(data.Transcript, "--- second.txt ---") {
		t.Fatalf("expected second transcript appended with header, got %q", data.Transcript)
	}
}

func TestProcessByIDRecordsFailureAfterRunTimesOut(t *testing.T) {
	f := newPipelineFixture(t)
	f.repo.honorCtx = true
	f.analyst.mainBlocks = true

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err := f.uc.ProcessByID(ctx, "file-1")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline error, got %v", err)
	}
	if strings.Contains(err.Error(), "mark failed") {
		t.Fatalf("failure was not recorded: %v", err)
	}

	stored, _ := f.repo.GetByID(context.Background(), "file-1")
	if stored.Status != domain.FileError || stored.Error == "" {
		t.Fatalf("expected error status with message, got %s %q", stored.Status, stored.Error)
	}
	session, _ := f.projects.Session(context.Background())
	if !strings.HasPrefix(session.Error, "interview.txt: ") {
		t.Fatalf("expected banner for the file, got %q", session.Error)
	}
}

func TestProcessByIDSaveFailureMarksFileFailed(t *testing.T) {
	f := newPipelineFixture(t)
	f.repo.saveErr = errors.New("db down")

	if err := f.uc.ProcessByID(context.Background(), "file-1"); err == nil {
		t.Fatal("expected save error")
	}
	stored, _ := f.repo.GetByID(context.Background(), "file-1")
	if stored.Status != domain.FileError || stored.Error == "" {
		t.Fatalf("expected error status with message, got %s %q", stored.Status, stored.Error)
	}
	session, _ := f.projects.Session(context.Background())
	if session.Error == "" || session.Data != nil {
		t.Fatalf("expected banner and no merged data, got %+v", session)
	}
}

func TestProcessByIDMergeFailureMarksFileFailed(t *testing.T) {
	f := newPipelineFixture(t)
	f.blobs.mu.Lock()
	f.blobs.setErr = errors.New("db down")
	f.blobs.mu.Unlock()

	err := f.uc.ProcessByID(context.Background(), "file-1")
	if err == nil || !strings.Contains(err.Error(), "merge analysis into project") {
		t.Fatalf("expected merge error, got %v", err)
	}
	stored, _ := f.repo.GetByID(context.Background(), "file-1")
	if stored.Status != domain.FileError || stored.Error == "" {
		t.Fatalf("expected error status with message, got %s %q progress=%d", stored.Status, stored.Error, stored.Progress)
	}
}
