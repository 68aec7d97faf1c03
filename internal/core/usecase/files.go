package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kirillkom/interview-insights/internal/core/domain"
	"github.com/kirillkom/interview-insights/internal/core/ports"
)

type FileCatalog struct {
	repo     ports.FileRepository
	storage  ports.ObjectStorage
	projects *ProjectService
}

func NewFileCatalog(repo ports.FileRepository, storage ports.ObjectStorage, projects *ProjectService) *FileCatalog {
	return &FileCatalog{repo: repo, storage: storage, projects: projects}
}

func (c *FileCatalog) GetFile(ctx context.Context, id string) (*domain.ProjectFile, error) {
	file, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch file by id: %w", err)
	}
	return file, nil
}

// ListFiles returns the files of the active project.
func (c *FileCatalog) ListFiles(ctx context.Context) ([]domain.ProjectFile, error) {
	session, err := c.projects.Session(ctx)
	if err != nil {
		return nil, err
	}
	files, err := c.repo.ListByProject(ctx, session.ID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return files, nil
}

// RemoveFile forgets a file. Analysis already running for it is not
// cancelled; the pipeline discards its result.
func (c *FileCatalog) RemoveFile(ctx context.Context, id string) error {
	file, err := c.repo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("fetch file by id: %w", err)
	}
	if err := c.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete file metadata: %w", err)
	}
	if err := c.storage.Delete(ctx, file.StoragePath); err != nil {
		slog.Warn("delete_source_failed", "file_id", id, "storage_key", file.StoragePath, "error", err)
	}
	return nil
}
