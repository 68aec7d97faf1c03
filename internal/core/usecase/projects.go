package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kirillkom/interview-insights/internal/core/domain"
	"github.com/kirillkom/interview-insights/internal/core/ports"
	"github.com/kirillkom/interview-insights/internal/core/remap"
)

const (
	SessionKey          = "session"
	HistoryKey          = "history"
	DefaultHistoryLimit = 10
	defaultProjectName  = "Untitled project"
)

// ProjectService owns the active session and the project history. Both are
// stored as JSON blobs; unreadable blobs are treated as absent. Every
// read-modify-write runs inside one blob store transaction, which the API
// and the worker processes share.
type ProjectService struct {
	blobs        ports.BlobStore
	historyLimit int
	now          func() time.Time
	newID        func() string

	mu sync.Mutex
}

func NewProjectService(blobs ports.BlobStore, historyLimit int) *ProjectService {
	if historyLimit <= 0 {
		historyLimit = DefaultHistoryLimit
	}
	return &ProjectService{
		blobs:        blobs,
		historyLimit: historyLimit,
		now:          func() time.Time { return time.Now().UTC() },
		newID:        uuid.NewString,
	}
}

func (s *ProjectService) Session(ctx context.Context) (*domain.Session, error) {
	var session *domain.Session
	err := s.update(ctx, func(tx ports.BlobReadWriter) error {
		var err error
		session, err = s.currentSession(ctx, tx)
		return err
	})
	return session, err
}

// EnsureSession returns the active session, creating one named after the
// first upload when none exists.
func (s *ProjectService) EnsureSession(ctx context.Context, name string) (*domain.Session, error) {
	var session *domain.Session
	err := s.update(ctx, func(tx ports.BlobReadWriter) error {
		var err error
		session, err = s.loadSession(ctx, tx)
		if err != nil {
			return err
		}
		if session != nil {
			if session.ProjectName == "" || session.ProjectName == defaultProjectName {
				if name = projectNameFromFile(name); name != "" {
					session.ProjectName = name
					return s.saveSession(ctx, tx, session)
				}
			}
			return nil
		}
		session = s.freshSession(projectNameFromFile(name))
		return s.saveSession(ctx, tx, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ProjectService) SetScreen(ctx context.Context, screen domain.Screen) (*domain.Session, error) {
	if _, ok := domain.ParseScreen(string(screen)); !ok {
		return nil, domain.WrapError(domain.ErrInvalidInput, "set screen", fmt.Errorf("unknown screen %q", screen))
	}
	return s.updateSession(ctx, func(session *domain.Session) bool {
		session.CurrentScreen = screen
		return true
	})
}

func (s *ProjectService) DismissError(ctx context.Context) (*domain.Session, error) {
	return s.updateSession(ctx, func(session *domain.Session) bool {
		if session.Error == "" {
			return false
		}
		session.Error = ""
		return true
	})
}

// NewProject replaces the active session with an empty one. The previous
// session stays in history if it produced any analysis.
func (s *ProjectService) NewProject(ctx context.Context, name string) (*domain.Session, error) {
	var session *domain.Session
	err := s.update(ctx, func(tx ports.BlobReadWriter) error {
		session = s.freshSession(strings.TrimSpace(name))
		return s.saveSession(ctx, tx, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ProjectService) History(ctx context.Context) ([]domain.SavedProject, error) {
	return s.loadHistory(ctx, s.blobs)
}

func (s *ProjectService) OpenProject(ctx context.Context, id string) (*domain.Session, error) {
	var session *domain.Session
	err := s.update(ctx, func(tx ports.BlobReadWriter) error {
		history, err := s.loadHistory(ctx, tx)
		if err != nil {
			return err
		}
		i := historyIndex(history, id)
		if i < 0 {
			return projectNotFound("open project", id)
		}
		saved := history[i]
		data := saved.Data.Clone()
		session = &domain.Session{
			ID:            saved.ID,
			ProjectName:   saved.Name,
			CurrentScreen: domain.ScreenTranscript,
			Data:          &data,
			MergedFileIDs: slices.Clone(saved.FileIDs),
			UpdatedAt:     s.now(),
		}
		return s.saveSession(ctx, tx, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ProjectService) RenameProject(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.WrapError(domain.ErrInvalidInput, "rename project", errors.New("name is required"))
	}
	return s.update(ctx, func(tx ports.BlobReadWriter) error {
		session, err := s.loadSession(ctx, tx)
		if err != nil {
			return err
		}
		history, err := s.loadHistory(ctx, tx)
		if err != nil {
			return err
		}
		i := historyIndex(history, id)
		active := session != nil && session.ID == id
		if i < 0 && !active {
			return projectNotFound("rename project", id)
		}
		if i >= 0 {
			history[i].Name = name
			if err := s.saveHistory(ctx, tx, history); err != nil {
				return err
			}
		}
		if active {
			session.ProjectName = name
			return s.saveSession(ctx, tx, session)
		}
		return nil
	})
}

// DeleteProject removes a project from history. Deleting the active project
// also resets the session.
func (s *ProjectService) DeleteProject(ctx context.Context, id string, confirmed bool) error {
	if !confirmed {
		return domain.WrapError(domain.ErrConfirmationRequired, "delete project", fmt.Errorf("project %q", id))
	}
	return s.update(ctx, func(tx ports.BlobReadWriter) error {
		history, err := s.loadHistory(ctx, tx)
		if err != nil {
			return err
		}
		session, err := s.loadSession(ctx, tx)
		if err != nil {
			return err
		}
		i := historyIndex(history, id)
		active := session != nil && session.ID == id
		if i < 0 && !active {
			return projectNotFound("delete project", id)
		}
		if i >= 0 {
			history = slices.Delete(history, i, i+1)
			if err := s.saveHistory(ctx, tx, history); err != nil {
				return err
			}
		}
		if active {
			return s.saveSession(ctx, tx, s.freshSession(""))
		}
		return nil
	})
}

func (s *ProjectService) Tags(ctx context.Context) ([]domain.TagGroup, error) {
	session, err := s.Session(ctx)
	if err != nil {
		return nil, err
	}
	if session.Data == nil {
		return []domain.TagGroup{}, nil
	}
	return session.Data.TagGroups(), nil
}

// MergeFileResult appends a file's document to the project it was uploaded
// into, once per file. If that project is no longer active its history entry
// is updated instead; a project that no longer exists drops the result.
func (s *ProjectService) MergeFileResult(ctx context.Context, file *domain.ProjectFile, data domain.ResearchData) error {
	return s.update(ctx, func(tx ports.BlobReadWriter) error {
		return s.mergeFileResult(ctx, tx, file, data)
	})
}

func (s *ProjectService) mergeFileResult(ctx context.Context, tx ports.BlobReadWriter, file *domain.ProjectFile, data domain.ResearchData) error {
	session, err := s.loadSession(ctx, tx)
	if err != nil {
		return err
	}
	history, err := s.loadHistory(ctx, tx)
	if err != nil {
		return err
	}

	if session != nil && session.ID == file.ProjectID {
		if slices.Contains(session.MergedFileIDs, file.ID) {
			return nil
		}
		merged := remap.Append(session.Data, len(session.MergedFileIDs), data, file.Filename)
		session.Data = &merged
		session.MergedFileIDs = append(session.MergedFileIDs, file.ID)
		if session.CurrentScreen == "" || session.CurrentScreen == domain.ScreenUpload {
			session.CurrentScreen = domain.ScreenTranscript
		}
		if err := s.saveSession(ctx, tx, session); err != nil {
			return err
		}
		return s.saveHistory(ctx, tx, s.withSnapshot(history, session, file.Type))
	}

	i := historyIndex(history, file.ProjectID)
	if i < 0 {
		slog.Warn("analysis_result_dropped", "file_id", file.ID, "project_id", file.ProjectID)
		return nil
	}
	saved := history[i]
	if slices.Contains(saved.FileIDs, file.ID) {
		return nil
	}
	saved.Data = remap.Append(&saved.Data, len(saved.FileIDs), data, file.Filename)
	saved.FileIDs = append(slices.Clone(saved.FileIDs), file.ID)
	saved.FileCount = len(saved.FileIDs)
	saved.Date = s.now()
	history = slices.Delete(history, i, i+1)
	return s.saveHistory(ctx, tx, s.capHistory(append([]domain.SavedProject{saved}, history...)))
}

// RecordFailure shows a file's failure on the project banner when the
// project is active.
func (s *ProjectService) RecordFailure(ctx context.Context, file *domain.ProjectFile, message string) error {
	return s.update(ctx, func(tx ports.BlobReadWriter) error {
		session, err := s.loadSession(ctx, tx)
		if err != nil {
			return err
		}
		if session == nil || session.ID != file.ProjectID {
			return nil
		}
		session.Error = fmt.Sprintf("%s: %s", file.Filename, message)
		return s.saveSession(ctx, tx, session)
	})
}

// UpdateDocument runs fn over the active document and persists the result
// into the session and its history entry.
func (s *ProjectService) UpdateDocument(ctx context.Context, fn func(*domain.ResearchData) error) (*domain.Session, error) {
	var session *domain.Session
	err := s.update(ctx, func(tx ports.BlobReadWriter) error {
		var err error
		session, err = s.loadSession(ctx, tx)
		if err != nil {
			return err
		}
		if session == nil || session.Data == nil {
			return domain.WrapError(domain.ErrNotFound, "update document", errors.New("no analysed project is open"))
		}
		data := session.Data.Clone()
		if err := fn(&data); err != nil {
			return err
		}
		session.Data = &data
		if err := s.saveSession(ctx, tx, session); err != nil {
			return err
		}
		history, err := s.loadHistory(ctx, tx)
		if err != nil {
			return err
		}
		return s.saveHistory(ctx, tx, s.withSnapshot(history, session, ""))
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ProjectService) update(ctx context.Context, fn func(tx ports.BlobReadWriter) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blobs.Update(ctx, fn)
}

// updateSession applies fn to the active session, creating one when absent,
// and saves it when fn reports a change.
func (s *ProjectService) updateSession(ctx context.Context, fn func(*domain.Session) bool) (*domain.Session, error) {
	var session *domain.Session
	err := s.update(ctx, func(tx ports.BlobReadWriter) error {
		var err error
		session, err = s.currentSession(ctx, tx)
		if err != nil {
			return err
		}
		if !fn(session) {
			return nil
		}
		return s.saveSession(ctx, tx, session)
	})
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Document returns a copy of the active document.
func (s *ProjectService) Document(ctx context.Context) (domain.ResearchData, error) {
	session, err := s.Session(ctx)
	if err != nil {
		return domain.ResearchData{}, err
	}
	if session.Data == nil {
		return domain.ResearchData{}, domain.WrapError(domain.ErrNotFound, "load document", errors.New("no analysed project is open"))
	}
	return session.Data.Clone(), nil
}

func (s *ProjectService) currentSession(ctx context.Context, tx ports.BlobReadWriter) (*domain.Session, error) {
	session, err := s.loadSession(ctx, tx)
	if err != nil {
		return nil, err
	}
	if session != nil {
		return session, nil
	}
	session = s.freshSession("")
	if err := s.saveSession(ctx, tx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *ProjectService) freshSession(name string) *domain.Session {
	if name == "" {
		name = defaultProjectName
	}
	return &domain.Session{
		ID:            s.newID(),
		ProjectName:   name,
		CurrentScreen: domain.ScreenUpload,
		UpdatedAt:     s.now(),
	}
}

// withSnapshot replaces the session's history entry with a fresh copy and
// moves it to the front.
func (s *ProjectService) withSnapshot(history []domain.SavedProject, session *domain.Session, fileType domain.FileType) []domain.SavedProject {
	if session.Data == nil {
		return history
	}
	entry := domain.SavedProject{
		ID:        session.ID,
		Name:      session.ProjectName,
		Date:      s.now(),
		FileType:  fileType,
		FileCount: len(session.MergedFileIDs),
		FileIDs:   slices.Clone(session.MergedFileIDs),
		Data:      session.Data.Clone(),
	}
	if i := historyIndex(history, session.ID); i >= 0 {
		if history[i].FileType != "" {
			entry.FileType = history[i].FileType
		}
		history = slices.Delete(slices.Clone(history), i, i+1)
	}
	if entry.FileType == "" {
		entry.FileType = domain.FileTypeText
	}
	return s.capHistory(append([]domain.SavedProject{entry}, history...))
}

func (s *ProjectService) capHistory(history []domain.SavedProject) []domain.SavedProject {
	if len(history) > s.historyLimit {
		return history[:s.historyLimit]
	}
	return history
}

func (s *ProjectService) loadSession(ctx context.Context, tx ports.BlobReadWriter) (*domain.Session, error) {
	var session domain.Session
	ok, err := s.loadBlob(ctx, tx, SessionKey, &session)
	if err != nil || !ok {
		return nil, err
	}
	if session.ID == "" {
		return nil, nil
	}
	return &session, nil
}

func (s *ProjectService) saveSession(ctx context.Context, tx ports.BlobReadWriter, session *domain.Session) error {
	session.UpdatedAt = s.now()
	return s.saveBlob(ctx, tx, SessionKey, session)
}

func (s *ProjectService) loadHistory(ctx context.Context, tx ports.BlobReadWriter) ([]domain.SavedProject, error) {
	var history []domain.SavedProject
	ok, err := s.loadBlob(ctx, tx, HistoryKey, &history)
	if err != nil {
		return nil, err
	}
	if !ok || history == nil {
		return []domain.SavedProject{}, nil
	}
	return history, nil
}

func (s *ProjectService) saveHistory(ctx context.Context, tx ports.BlobReadWriter, history []domain.SavedProject) error {
	return s.saveBlob(ctx, tx, HistoryKey, history)
}

func (s *ProjectService) loadBlob(ctx context.Context, tx ports.BlobReadWriter, key string, dst any) (bool, error) {
	raw, ok, err := tx.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		slog.Warn("blob_discarded", "key", key, "error", err)
		return false, nil
	}
	return true, nil
}

func (s *ProjectService) saveBlob(ctx context.Context, tx ports.BlobReadWriter, key string, value any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := tx.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

func historyIndex(history []domain.SavedProject, id string) int {
	return slices.IndexFunc(history, func(p domain.SavedProject) bool { return p.ID == id })
}

func projectNotFound(op, id string) error {
	return domain.WrapError(domain.ErrNotFound, op, fmt.Errorf("project %q", id))
}

func projectNameFromFile(filename string) string {
	name := strings.TrimSpace(filename)
	if i := strings.LastIndex(name, "."); i > 0 {
		name = name[:i]
	}
	return name
}
