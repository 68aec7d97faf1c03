package ingestion

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/kirillkom/interview-insights/internal/core/domain"
	"github.com/kirillkom/interview-insights/internal/core/ports"
	"github.com/kirillkom/interview-insights/internal/infrastructure/resilience"
)

const (
	DefaultInlineThreshold int64 = 20 << 20
	DefaultMaxSize         int64 = 500 << 20
	DefaultPollInterval          = 2 * time.Second
	DefaultPollTimeout           = 5 * time.Minute
)

type Options struct {
	InlineThreshold int64
	MaxSize         int64
	PollInterval    time.Duration
	PollTimeout     time.Duration
	// UploadExecutor retries remote uploads; the body is reopened per attempt.
	UploadExecutor *resilience.Executor
	Sleep          resilience.SleepFunc
}

type Adapter struct {
	storage    ports.ObjectStorage
	remote     ports.RemoteFileStore
	extractors []ports.TextExtractor

	inlineThreshold int64
	maxSize         int64
	pollInterval    time.Duration
	pollAttempts    int
	executor        *resilience.Executor
	sleep           resilience.SleepFunc
}

func NewAdapter(storage ports.ObjectStorage, remote ports.RemoteFileStore, opts Options, extractors ...ports.TextExtractor) *Adapter {
	if opts.InlineThreshold <= 0 {
		opts.InlineThreshold = DefaultInlineThreshold
	}
	if opts.MaxSize <= 0 {
		opts.MaxSize = DefaultMaxSize
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	attempts := int(opts.PollTimeout / opts.PollInterval)
	if attempts < 1 {
		attempts = 1
	}
	if opts.UploadExecutor == nil {
		opts.UploadExecutor = resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 3, RetryBaseDelay: 2 * time.Second})
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = func(ctx context.Context, d time.Duration) error {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-timer.C:
				return nil
			}
		}
	}
	return &Adapter{
		storage:         storage,
		remote:          remote,
		extractors:      extractors,
		inlineThreshold: opts.InlineThreshold,
		maxSize:         opts.MaxSize,
		pollInterval:    opts.PollInterval,
		pollAttempts:    attempts,
		executor:        opts.UploadExecutor,
		sleep:           sleep,
	}
}

// Ingest produces a content handle for file. Progress is reported as
// "uploading" on entry and "processing" once the payload is ready; the
// final "uploaded" belongs to the pipeline, not to ingestion.
func (a *Adapter) Ingest(ctx context.Context, file *domain.ProjectFile, progress domain.ProgressFunc) (domain.ContentHandle, error) {
	if file == nil {
		return domain.ContentHandle{}, domain.WrapError(domain.ErrInvalidInput, "ingest", errors.New("file is nil"))
	}
	if progress == nil {
		progress = func(domain.FileStatus, int) {}
	}
	progress(domain.FileUploading, 0)

	if file.Size > a.maxSize {
		return domain.ContentHandle{}, domain.WrapError(domain.ErrSizeLimit, "ingest",
			fmt.Errorf("%s is %d bytes, limit is %d", file.Filename, file.Size, a.maxSize))
	}

	mimeType := ResolveMimeType(file.Filename, file.MimeType, file.Type)

	for _, extractor := range a.extractors {
		if !extractor.Supports(file) {
			continue
		}
		text, err := extractor.Extract(ctx, file)
		if err != nil {
			return domain.ContentHandle{}, fmt.Errorf("extract text: %w", err)
		}
		progress(domain.FileProcessing, 50)
		return domain.ContentHandle{Kind: domain.ContentText, MimeType: "text/plain", Text: text}, nil
	}

	if file.Size <= a.inlineThreshold {
		handle, err := a.inline(ctx, file, mimeType)
		if err != nil {
			return domain.ContentHandle{}, err
		}
		progress(domain.FileProcessing, 50)
		return handle, nil
	}

	remoteFile, err := a.upload(ctx, file, mimeType)
	if err != nil {
		return domain.ContentHandle{}, err
	}
	progress(domain.FileUploading, 30)

	ready, err := a.waitUntilActive(ctx, remoteFile)
	if err != nil {
		return domain.ContentHandle{}, err
	}
	progress(domain.FileProcessing, 50)

	if ready.MimeType != "" {
		mimeType = ready.MimeType
	}
	return domain.ContentHandle{
		Kind:       domain.ContentRemote,
		MimeType:   mimeType,
		URI:        ready.URI,
		RemoteName: ready.Name,
	}, nil
}

func (a *Adapter) inline(ctx context.Context, file *domain.ProjectFile, mimeType string) (domain.ContentHandle, error) {
	reader, err := a.storage.Open(ctx, file.StoragePath)
	if err != nil {
		return domain.ContentHandle{}, fmt.Errorf("open source file: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(io.LimitReader(reader, a.inlineThreshold+1))
	if err != nil {
		return domain.ContentHandle{}, fmt.Errorf("read source file: %w", err)
	}
	if int64(len(raw)) > a.inlineThreshold {
		return domain.ContentHandle{}, domain.WrapError(domain.ErrInvalidInput, "ingest",
			fmt.Errorf("%s is larger than its recorded size", file.Filename))
	}
	return domain.ContentHandle{
		Kind:     domain.ContentInline,
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(raw),
	}, nil
}

func (a *Adapter) upload(ctx context.Context, file *domain.ProjectFile, mimeType string) (domain.RemoteFile, error) {
	if a.remote == nil {
		return domain.RemoteFile{}, domain.WrapError(domain.ErrInvalidInput, "ingest", errors.New("remote upload is not configured"))
	}
	return resilience.Do(ctx, a.executor, "ingest.upload", func(callCtx context.Context) (domain.RemoteFile, error) {
		reader, err := a.storage.Open(callCtx, file.StoragePath)
		if err != nil {
			return domain.RemoteFile{}, fmt.Errorf("open source file: %w", err)
		}
		defer reader.Close()
		return a.remote.UploadFile(callCtx, file.Filename, mimeType, file.Size, reader)
	}, nil)
}

func (a *Adapter) waitUntilActive(ctx context.Context, file domain.RemoteFile) (domain.RemoteFile, error) {
	current := file
	for attempt := 1; attempt <= a.pollAttempts; attempt++ {
		if settled, err := remoteSettled(current); settled {
			return current, err
		}

		if err := a.sleep(ctx, a.pollInterval); err != nil {
			return domain.RemoteFile{}, err
		}
		next, err := a.remote.GetFile(ctx, current.Name)
		if err != nil {
			// A failed poll is not fatal; the next tick asks again.
			slog.Warn("remote_file_poll_failed", "name", current.Name, "attempt", attempt, "error", err)
			continue
		}
		current = next
	}
	if settled, err := remoteSettled(current); settled {
		return current, err
	}
	return domain.RemoteFile{}, domain.WrapError(domain.ErrIngestionTimeout, "ingest",
		fmt.Errorf("remote file %s not ready after %s", current.Name, time.Duration(a.pollAttempts)*a.pollInterval))
}

// remoteSettled reports whether the remote file left the processing state,
// with ErrProcessingFailed when it failed.
func remoteSettled(file domain.RemoteFile) (bool, error) {
	switch file.State {
	case domain.RemoteActive:
		return true, nil
	case domain.RemoteFailed:
		return true, domain.WrapError(domain.ErrProcessingFailed, "ingest",
			fmt.Errorf("remote file %s failed processing", file.Name))
	default:
		return false, nil
	}
}
