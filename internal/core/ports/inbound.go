package ports

import (
	"context"
	"io"

	"github.com/kirillkom/interview-insights/internal/core/domain"
)

// FileUploader is the inbound contract for source intake.
type FileUploader interface {
	Upload(ctx context.Context, in domain.UploadInput, body io.Reader) (*domain.ProjectFile, error)
	UploadText(ctx context.Context, name, text string) (*domain.ProjectFile, error)
}

// FileReader is the inbound read model for uploaded files.
type FileReader interface {
	GetFile(ctx context.Context, id string) (*domain.ProjectFile, error)
	ListFiles(ctx context.Context) ([]domain.ProjectFile, error)
	RemoveFile(ctx context.Context, id string) error
}

// FileAnalyzer is the inbound contract for asynchronous analysis.
type FileAnalyzer interface {
	ProcessByID(ctx context.Context, fileID string) error
}

// ProjectManager owns the active session and the project history.
type ProjectManager interface {
	Session(ctx context.Context) (*domain.Session, error)
	SetScreen(ctx context.Context, screen domain.Screen) (*domain.Session, error)
	DismissError(ctx context.Context) (*domain.Session, error)
	Tags(ctx context.Context) ([]domain.TagGroup, error)
	Document(ctx context.Context) (domain.ResearchData, error)
	NewProject(ctx context.Context, name string) (*domain.Session, error)
	History(ctx context.Context) ([]domain.SavedProject, error)
	OpenProject(ctx context.Context, id string) (*domain.Session, error)
	RenameProject(ctx context.Context, id, name string) error
	DeleteProject(ctx context.Context, id string, confirmed bool) error
}

// CanvasEditor applies committed canvas operations to the active document.
type CanvasEditor interface {
	Clusters(ctx context.Context) ([]domain.Cluster, error)
	AddCluster(ctx context.Context, in domain.NewCluster) (domain.Cluster, error)
	UpdateCluster(ctx context.Context, id string, patch domain.ClusterPatch) (domain.Cluster, error)
	DeleteCluster(ctx context.Context, id string, confirmed bool) error
	AutoLayout(ctx context.Context) ([]domain.Cluster, error)
	AddNote(ctx context.Context, clusterID, text string) (domain.AffinityItem, error)
	EditNote(ctx context.Context, clusterID, itemID, text string) error
	DeleteNote(ctx context.Context, clusterID, itemID string) error
	MoveItem(ctx context.Context, move domain.ItemMove) error
}

// InsightsExport renders the active document for download.
type InsightsExport interface {
	ExportInsights(ctx context.Context, w io.Writer) error
}
