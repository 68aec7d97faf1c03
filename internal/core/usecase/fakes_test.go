package usecase

import (
	"context"
	"errors"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/kirillkom/interview-insights/internal/core/domain"
	"github.com/kirillkom/interview-insights/internal/core/ports"
)

// blobStoreFake holds txMu for the whole of Update, standing in for the
// store's cross-process lock. Writes made inside Update land on commit.
type blobStoreFake struct {
	txMu   sync.Mutex
	mu     sync.Mutex
	blobs  map[string][]byte
	getErr error
	setErr error
}

func newBlobStoreFake() *blobStoreFake {
	return &blobStoreFake{blobs: make(map[string][]byte)}
}

func (f *blobStoreFake) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, false, f.getErr
	}
	raw, ok := f.blobs[key]
	return raw, ok, nil
}

func (f *blobStoreFake) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.blobs[key] = append([]byte(nil), value...)
	return nil
}

func (f *blobStoreFake) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.blobs, key)
	return nil
}

func (f *blobStoreFake) Update(ctx context.Context, fn func(tx ports.BlobReadWriter) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &blobTxFake{store: f, pending: make(map[string][]byte)}
	if err := fn(tx); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for key, value := range tx.pending {
		f.blobs[key] = value
	}
	return nil
}

type blobTxFake struct {
	store   *blobStoreFake
	pending map[string][]byte
}

func (t *blobTxFake) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if raw, ok := t.pending[key]; ok {
		return raw, true, nil
	}
	return t.store.Get(ctx, key)
}

func (t *blobTxFake) Set(_ context.Context, key string, value []byte) error {
	t.store.mu.Lock()
	err := t.store.setErr
	t.store.mu.Unlock()
	if err != nil {
		return err
	}
	t.pending[key] = append([]byte(nil), value...)
	return nil
}

type statusCall struct {
	status   domain.FileStatus
	progress int
	errMsg   string
}

type fileRepoFake struct {
	mu        sync.Mutex
	files     map[string]*domain.ProjectFile
	createErr error
	saveErr   error
	// honorCtx makes status updates fail once ctx is done, like a real
	// database driver.
	honorCtx    bool
	statusCalls []statusCall
	saved       map[string]domain.ResearchData
	// onStatus runs after each status update; tests use it to remove files
	// mid-pipeline.
	onStatus func(status domain.FileStatus)
}

func newFileRepoFake(files ...*domain.ProjectFile) *fileRepoFake {
	f := &fileRepoFake{files: make(map[string]*domain.ProjectFile), saved: make(map[string]domain.ResearchData)}
	for _, file := range files {
		f.files[file.ID] = file
	}
	return f
}

func (f *fileRepoFake) Create(_ context.Context, file *domain.ProjectFile) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	copyFile := *file
	f.files[file.ID] = &copyFile
	return nil
}

func (f *fileRepoFake) GetByID(_ context.Context, id string) (*domain.ProjectFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	file, ok := f.files[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get file", errors.New(id))
	}
	copyFile := *file
	return &copyFile, nil
}

func (f *fileRepoFake) ListByProject(_ context.Context, projectID string) ([]domain.ProjectFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []domain.ProjectFile{}
	for _, file := range f.files {
		if file.ProjectID == projectID {
			out = append(out, *file)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename < out[j].Filename })
	return out, nil
}

func (f *fileRepoFake) UpdateStatus(ctx context.Context, id string, status domain.FileStatus, progress int, errMessage string) error {
	if f.honorCtx && ctx.Err() != nil {
		return ctx.Err()
	}
	f.mu.Lock()
	f.statusCalls = append(f.statusCalls, statusCall{status: status, progress: progress, errMsg: errMessage})
	file, ok := f.files[id]
	if ok {
		file.Status = status
		file.Progress = progress
		file.Error = errMessage
	}
	hook := f.onStatus
	f.mu.Unlock()
	if hook != nil {
		hook(status)
	}
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "update status", errors.New(id))
	}
	return nil
}

func (f *fileRepoFake) SaveAnalysis(_ context.Context, id string, data domain.ResearchData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	if _, ok := f.files[id]; !ok {
		return domain.WrapError(domain.ErrNotFound, "save analysis", errors.New(id))
	}
	f.saved[id] = data
	return nil
}

func (f *fileRepoFake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.files[id]; !ok {
		return domain.WrapError(domain.ErrNotFound, "delete file", errors.New(id))
	}
	delete(f.files, id)
	return nil
}

func (f *fileRepoFake) statuses() []domain.FileStatus {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.FileStatus, 0, len(f.statusCalls))
	for _, c := range f.statusCalls {
		out = append(out, c.status)
	}
	return out
}

type storageFake struct {
	objects map[string]string
	saveErr error
	deleted []string
}

func newStorageFake() *storageFake {
	return &storageFake{objects: make(map[string]string)}
}

func (f *storageFake) Save(_ context.Context, key string, data io.Reader) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.objects[key] = string(raw)
	return nil
}

func (f *storageFake) Open(_ context.Context, key string) (io.ReadCloser, error) {
	raw, ok := f.objects[key]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return io.NopCloser(strings.NewReader(raw)), nil
}

func (f *storageFake) Delete(_ context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	delete(f.objects, key)
	return nil
}

type queueFake struct {
	published []string
	err       error
}

func (f *queueFake) PublishFileUploaded(_ context.Context, fileID string) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, fileID)
	return nil
}

func (f *queueFake) SubscribeFileUploaded(context.Context, func(context.Context, string) error) error {
	return errors.New("not implemented")
}

type ingestorFake struct {
	handle domain.ContentHandle
	err    error
}

func (f *ingestorFake) Ingest(_ context.Context, _ *domain.ProjectFile, progress domain.ProgressFunc) (domain.ContentHandle, error) {
	progress(domain.FileUploading, 0)
	if f.err != nil {
		return domain.ContentHandle{}, f.err
	}
	progress(domain.FileProcessing, 50)
	return f.handle, nil
}

type analystFake struct {
	main    domain.MainAnalysis
	mainErr error
	// mainBlocks makes the main stage wait for ctx to end.
	mainBlocks  bool
	affinity    domain.AffinityResult
	affinityErr error
	insights    domain.InsightsResult
	insightsErr error

	mu            sync.Mutex
	gotHighlights []domain.Highlight
}

func (f *analystFake) AnalyzeInterview(ctx context.Context, _ domain.ContentHandle) (domain.MainAnalysis, error) {
	if f.mainBlocks {
		<-ctx.Done()
		return domain.MainAnalysis{}, ctx.Err()
	}
	if f.mainErr != nil {
		return domain.MainAnalysis{}, f.mainErr
	}
	return f.main, nil
}

func (f *analystFake) ClusterHighlights(_ context.Context, _ domain.ContentHandle, highlights []domain.Highlight) (domain.AffinityResult, error) {
	f.mu.Lock()
	f.gotHighlights = highlights
	f.mu.Unlock()
	if f.affinityErr != nil {
		return domain.AffinityResult{Themes: []domain.Theme{{ID: "partial"}}}, f.affinityErr
	}
	return f.affinity, nil
}

func (f *analystFake) DeriveInsights(context.Context, domain.ContentHandle, []domain.Highlight) (domain.InsightsResult, error) {
	if f.insightsErr != nil {
		return domain.InsightsResult{}, f.insightsErr
	}
	return f.insights, nil
}

type observerFake struct {
	mu       sync.Mutex
	stages   map[string]int
	degraded []string
}

func newObserverFake() *observerFake {
	return &observerFake{stages: make(map[string]int)}
}

func (f *observerFake) ObserveStage(stage string, _ time.Duration, _ error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages[stage]++
}

func (f *observerFake) ObserveDegraded(stage string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.degraded = append(f.degraded, stage)
	sort.Strings(f.degraded)
}

type exporterFake struct {
	got domain.ResearchData
}

func (f *exporterFake) WriteInsights(w io.Writer, data domain.ResearchData) error {
	f.got = data
	_, err := io.WriteString(w, "xlsx")
	return err
}

func fixedClock() func() time.Time {
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		ts = ts.Add(time.Second)
		return ts
	}
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return prefix + strconv.Itoa(n)
	}
}
