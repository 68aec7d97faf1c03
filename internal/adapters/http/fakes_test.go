package httpadapter

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/kirillkom/interview-insights/internal/config"
	"github.com/kirillkom/interview-insights/internal/core/domain"
)

type uploaderFake struct {
	err      error
	gotInput domain.UploadInput
	gotBody  string
}

func (f *uploaderFake) Upload(_ context.Context, in domain.UploadInput, body io.Reader) (*domain.ProjectFile, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f.gotInput = in
	f.gotBody = string(raw)
	if f.err != nil {
		return nil, f.err
	}
	fileType := in.Type
	if fileType == "" {
		fileType = domain.DetectFileType(in.Filename, in.MimeType)
	}
	now := time.Now().UTC()
	return &domain.ProjectFile{
		ID:          "file-1",
		ProjectID:   "project-1",
		Filename:    in.Filename,
		MimeType:    in.MimeType,
		StoragePath: "file-1_" + in.Filename,
		Size:        int64(len(raw)),
		Type:        fileType,
		Status:      domain.FileUploading,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

func (f *uploaderFake) UploadText(ctx context.Context, name, text string) (*domain.ProjectFile, error) {
	if text == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "upload text", errors.New("text is required"))
	}
	return f.Upload(ctx, domain.UploadInput{Filename: name + ".txt", MimeType: "text/plain", Type: domain.FileTypeText}, strings.NewReader(text))
}

type filesFake struct {
	files   map[string]domain.ProjectFile
	removed []string
}

func (f *filesFake) GetFile(_ context.Context, id string) (*domain.ProjectFile, error) {
	file, ok := f.files[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get file", errors.New("id="+id))
	}
	return &file, nil
}

func (f *filesFake) ListFiles(context.Context) ([]domain.ProjectFile, error) {
	out := make([]domain.ProjectFile, 0, len(f.files))
	for _, file := range f.files {
		out = append(out, file)
	}
	return out, nil
}

func (f *filesFake) RemoveFile(_ context.Context, id string) error {
	if _, ok := f.files[id]; !ok {
		return domain.WrapError(domain.ErrNotFound, "remove file", errors.New("id="+id))
	}
	delete(f.files, id)
	f.removed = append(f.removed, id)
	return nil
}

type projectsFake struct {
	session  domain.Session
	history  []domain.SavedProject
	document *domain.ResearchData
	renamed  map[string]string
	deleted  []string
	err      error
}

func (f *projectsFake) Session(context.Context) (*domain.Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	s := f.session
	return &s, nil
}

func (f *projectsFake) SetScreen(_ context.Context, screen domain.Screen) (*domain.Session, error) {
	if _, ok := domain.ParseScreen(string(screen)); !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "set screen", errors.New("unknown screen"))
	}
	f.session.CurrentScreen = screen
	s := f.session
	return &s, nil
}

func (f *projectsFake) DismissError(context.Context) (*domain.Session, error) {
	f.session.Error = ""
	s := f.session
	return &s, nil
}

func (f *projectsFake) Tags(context.Context) ([]domain.TagGroup, error) {
	if f.document == nil {
		return []domain.TagGroup{}, nil
	}
	return f.document.TagGroups(), nil
}

func (f *projectsFake) Document(context.Context) (domain.ResearchData, error) {
	if f.document == nil {
		return domain.ResearchData{}, domain.WrapError(domain.ErrNotFound, "load document", errors.New("no document"))
	}
	return *f.document, nil
}

func (f *projectsFake) NewProject(_ context.Context, name string) (*domain.Session, error) {
	f.session = domain.Session{ID: "project-2", ProjectName: name, CurrentScreen: domain.ScreenUpload}
	s := f.session
	return &s, nil
}

func (f *projectsFake) History(context.Context) ([]domain.SavedProject, error) {
	return f.history, nil
}

func (f *projectsFake) OpenProject(_ context.Context, id string) (*domain.Session, error) {
	for _, p := range f.history {
		if p.ID == id {
			data := p.Data
			f.session = domain.Session{ID: p.ID, ProjectName: p.Name, CurrentScreen: domain.ScreenTranscript, Data: &data}
			s := f.session
			return &s, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "open project", errors.New("id="+id))
}

func (f *projectsFake) RenameProject(_ context.Context, id, name string) error {
	if f.renamed == nil {
		f.renamed = make(map[string]string)
	}
	f.renamed[id] = name
	return nil
}

func (f *projectsFake) DeleteProject(_ context.Context, id string, confirmed bool) error {
	if !confirmed {
		return domain.WrapError(domain.ErrConfirmationRequired, "delete project", errors.New("id="+id))
	}
	f.deleted = append(f.deleted, id)
	return nil
}

type canvasFake struct {
	clusters []domain.Cluster
	added    []domain.NewCluster
	patches  map[string]domain.ClusterPatch
	moves    []domain.ItemMove
	notes    map[string]string
}

func (f *canvasFake) Clusters(context.Context) ([]domain.Cluster, error) {
	return f.clusters, nil
}

func (f *canvasFake) AddCluster(_ context.Context, in domain.NewCluster) (domain.Cluster, error) {
	f.added = append(f.added, in)
	title := in.Title
	if title == "" {
		title = "New cluster"
	}
	return domain.Cluster{ID: "c-new", Title: title, Width: domain.DefaultClusterWidth, Height: domain.DefaultClusterHeight}, nil
}

func (f *canvasFake) UpdateCluster(_ context.Context, id string, patch domain.ClusterPatch) (domain.Cluster, error) {
	if f.patches == nil {
		f.patches = make(map[string]domain.ClusterPatch)
	}
	f.patches[id] = patch
	out := domain.Cluster{ID: id}
	if patch.Title != nil {
		out.Title = *patch.Title
	}
	return out, nil
}

func (f *canvasFake) DeleteCluster(_ context.Context, id string, confirmed bool) error {
	if !confirmed {
		return domain.WrapError(domain.ErrConfirmationRequired, "delete cluster", errors.New("id="+id))
	}
	return nil
}

func (f *canvasFake) AutoLayout(context.Context) ([]domain.Cluster, error) {
	return f.clusters, nil
}

func (f *canvasFake) AddNote(_ context.Context, clusterID, text string) (domain.AffinityItem, error) {
	if clusterID != "c1" {
		return domain.AffinityItem{}, domain.WrapError(domain.ErrNotFound, "add note", errors.New("cluster="+clusterID))
	}
	return domain.AffinityItem{ID: "n1", Text: text, Type: domain.ItemNote}, nil
}

func (f *canvasFake) EditNote(_ context.Context, clusterID, itemID, text string) error {
	if f.notes == nil {
		f.notes = make(map[string]string)
	}
	f.notes[clusterID+"/"+itemID] = text
	return nil
}

func (f *canvasFake) DeleteNote(context.Context, string, string) error { return nil }

func (f *canvasFake) MoveItem(_ context.Context, move domain.ItemMove) error {
	f.moves = append(f.moves, move)
	return nil
}

type exportFake struct {
	body string
	err  error
}

func (f exportFake) ExportInsights(_ context.Context, w io.Writer) error {
	if f.err != nil {
		return f.err
	}
	_, err := io.WriteString(w, f.body)
	return err
}

type testRouter struct {
	handler  http.Handler
	uploader *uploaderFake
	files    *filesFake
	projects *projectsFake
	canvas   *canvasFake
}

func newTestRouter(t *testing.T, cfg config.Config, opts ...RouterOption) testRouter {
	t.Helper()
	tr := testRouter{
		uploader: &uploaderFake{},
		files: &filesFake{files: map[string]domain.ProjectFile{
			"file-1": {ID: "file-1", Filename: "call.mp3", Type: domain.FileTypeAudio, Status: domain.FileProcessing, Progress: 50},
		}},
		projects: &projectsFake{session: domain.Session{ID: "project-1", ProjectName: "call", CurrentScreen: domain.ScreenUpload}},
		canvas:   &canvasFake{clusters: []domain.Cluster{{ID: "c1", Title: "Pricing"}}},
	}
	handler, err := NewRouter(cfg, Services{
		Uploader: tr.uploader,
		Files:    tr.files,
		Projects: tr.projects,
		Canvas:   tr.canvas,
		Export:   exportFake{body: "PK-workbook"},
	}, opts...).Handler()
	if err != nil {
		t.Fatalf("Handler() error = %v", err)
	}
	tr.handler = handler
	return tr
}
