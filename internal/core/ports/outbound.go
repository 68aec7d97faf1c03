package ports

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/kirillkom/interview-insights/internal/core/domain"
)

// FileRepository persists uploaded file state and per-file analysis.
type FileRepository interface {
	Create(ctx context.Context, file *domain.ProjectFile) error
	GetByID(ctx context.Context, id string) (*domain.ProjectFile, error)
	ListByProject(ctx context.Context, projectID string) ([]domain.ProjectFile, error)
	UpdateStatus(ctx context.Context, id string, status domain.FileStatus, progress int, errMessage string) error
	SaveAnalysis(ctx context.Context, id string, data domain.ResearchData) error
	Delete(ctx context.Context, id string) error
}

// BlobReadWriter reads and writes opaque documents by key.
type BlobReadWriter interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// BlobStore is a key-value store of opaque documents. Update runs fn in one
// transaction that excludes every other Update, across processes sharing
// the store.
type BlobStore interface {
	BlobReadWriter
	Remove(ctx context.Context, key string) error
	Update(ctx context.Context, fn func(tx BlobReadWriter) error) error
}

// ObjectStorage stores uploaded source files.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// MessageQueue publishes/consumes upload events.
type MessageQueue interface {
	PublishFileUploaded(ctx context.Context, fileID string) error
	SubscribeFileUploaded(ctx context.Context, handler func(context.Context, string) error) error
}

// TextExtractor extracts plain text from document formats the model does
// not accept directly.
type TextExtractor interface {
	Supports(file *domain.ProjectFile) bool
	Extract(ctx context.Context, file *domain.ProjectFile) (string, error)
}

// RemoteFileStore uploads large sources to the model provider and reports
// their server-side processing state.
type RemoteFileStore interface {
	UploadFile(ctx context.Context, displayName, mimeType string, size int64, body io.Reader) (domain.RemoteFile, error)
	GetFile(ctx context.Context, name string) (domain.RemoteFile, error)
}

// ContentIngestor turns a stored file into a handle the model can consume.
type ContentIngestor interface {
	Ingest(ctx context.Context, file *domain.ProjectFile, progress domain.ProgressFunc) (domain.ContentHandle, error)
}

// StructuredGenerator invokes the model with a declared output schema and
// returns the raw JSON text.
type StructuredGenerator interface {
	GenerateStructured(ctx context.Context, req domain.GenerationRequest) (json.RawMessage, error)
}

// InterviewAnalyst runs the three analysis stages over ingested content.
type InterviewAnalyst interface {
	AnalyzeInterview(ctx context.Context, content domain.ContentHandle) (domain.MainAnalysis, error)
	ClusterHighlights(ctx context.Context, content domain.ContentHandle, highlights []domain.Highlight) (domain.AffinityResult, error)
	DeriveInsights(ctx context.Context, content domain.ContentHandle, highlights []domain.Highlight) (domain.InsightsResult, error)
}

// InsightsExporter renders the research document as a spreadsheet.
type InsightsExporter interface {
	WriteInsights(w io.Writer, data domain.ResearchData) error
}

// AnalysisSink receives the outcome of a file's analysis and folds it into
// the project the file belongs to.
type AnalysisSink interface {
	MergeFileResult(ctx context.Context, file *domain.ProjectFile, data domain.ResearchData) error
	RecordFailure(ctx context.Context, file *domain.ProjectFile, message string) error
}

// PipelineObserver records stage timings and degraded stages.
type PipelineObserver interface {
	ObserveStage(stage string, duration time.Duration, err error)
	ObserveDegraded(stage string)
}
