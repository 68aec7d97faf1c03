package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/interview-insights/internal/core/domain"
	"github.com/kirillkom/interview-insights/internal/core/ports"
)

const DefaultMaxUploadBytes int64 = 500 << 20

type IngestFileUseCase struct {
	repo     ports.FileRepository
	storage  ports.ObjectStorage
	queue    ports.MessageQueue
	projects *ProjectService
	maxBytes int64
}

func NewIngestFileUseCase(
	repo ports.FileRepository,
	storage ports.ObjectStorage,
	queue ports.MessageQueue,
	projects *ProjectService,
	maxBytes int64,
) *IngestFileUseCase {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &IngestFileUseCase{
		repo:     repo,
		storage:  storage,
		queue:    queue,
		projects: projects,
		maxBytes: maxBytes,
	}
}

// Upload stores the source, records it against the active project and
// queues it for analysis.
func (uc *IngestFileUseCase) Upload(ctx context.Context, in domain.UploadInput, body io.Reader) (*domain.ProjectFile, error) {
	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload file", errors.New("filename is required"))
	}
	fileType := in.Type
	if fileType == "" {
		fileType = domain.DetectFileType(filename, in.MimeType)
	} else if _, ok := domain.ParseFileType(string(fileType)); !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload file", fmt.Errorf("unknown file type %q", fileType))
	}

	session, err := uc.projects.EnsureSession(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("ensure session: %w", err)
	}

	id := uuid.NewString()
	storageKey := fmt.Sprintf("%s_%s", id, sanitizeFilename(filename))
	now := time.Now().UTC()

	counter := &countingReader{r: io.LimitReader(body, uc.maxBytes+1)}
	if err := uc.storage.Save(ctx, storageKey, counter); err != nil {
		return nil, fmt.Errorf("save to object storage: %w", err)
	}
	if counter.n > uc.maxBytes {
		uc.discard(ctx, storageKey)
		return nil, domain.WrapError(domain.ErrSizeLimit, "upload file",
			fmt.Errorf("%s exceeds %d bytes", filename, uc.maxBytes))
	}
	if counter.n == 0 {
		uc.discard(ctx, storageKey)
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload file", fmt.Errorf("%s is empty", filename))
	}

	file := &domain.ProjectFile{
		ID:          id,
		ProjectID:   session.ID,
		Filename:    filename,
		MimeType:    strings.TrimSpace(in.MimeType),
		StoragePath: storageKey,
		Size:        counter.n,
		Type:        fileType,
		Status:      domain.FileUploading,
		Progress:    0,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := uc.repo.Create(ctx, file); err != nil {
		uc.discard(ctx, storageKey)
		return nil, fmt.Errorf("create file metadata: %w", err)
	}

	if err := uc.queue.PublishFileUploaded(ctx, file.ID); err != nil {
		publishErr := fmt.Errorf("publish upload event: %w", err)
		recordCtx, cancel := detached(ctx)
		defer cancel()
		if markErr := uc.repo.UpdateStatus(recordCtx, file.ID, domain.FileError, 0, QueueUnavailableMessage); markErr != nil {
			slog.Error("record_publish_failure_failed", "file_id", file.ID, "error", markErr)
		}
		return nil, publishErr
	}

	return file, nil
}

// UploadText stores a pasted transcript as a text file.
func (uc *IngestFileUseCase) UploadText(ctx context.Context, name, text string) (*domain.ProjectFile, error) {
	if strings.TrimSpace(text) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload text", errors.New("text is required"))
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = "transcript"
	}
	if filepath.Ext(name) == "" {
		name += ".txt"
	}
	return uc.Upload(ctx, domain.UploadInput{
		Filename: name,
		MimeType: "text/plain",
		Type:     domain.FileTypeText,
	}, strings.NewReader(text))
}

func (uc *IngestFileUseCase) discard(ctx context.Context, key string) {
	if err := uc.storage.Delete(ctx, key); err != nil {
		slog.Warn("discard_upload_failed", "storage_key", key, "error", err)
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func sanitizeFilename(name string) string {
	base := filepath.Base(name)
	base = strings.ReplaceAll(base, " ", "_")
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r
		case r >= 'A' && r <= 'Z':
			return r
		case r >= '0' && r <= '9':
			return r
		case r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, base)
	if base == "" || base == "." {
		return "upload.bin"
	}
	return base
}
