package domain

import (
	"path/filepath"
	"strings"
	"time"
)

type FileStatus string

const (
	FileUploading  FileStatus = "uploading"
	FileProcessing FileStatus = "processing"
	FileUploaded   FileStatus = "uploaded"
	FileError      FileStatus = "error"
)

type FileType string

const (
	FileTypeVideo FileType = "video"
	FileTypeAudio FileType = "audio"
	FileTypeText  FileType = "text"
)

func ParseFileType(raw string) (FileType, bool) {
	switch FileType(strings.ToLower(strings.TrimSpace(raw))) {
	case FileTypeVideo:
		return FileTypeVideo, true
	case FileTypeAudio:
		return FileTypeAudio, true
	case FileTypeText:
		return FileTypeText, true
	default:
		return "", false
	}
}

// DetectFileType infers the type group from a MIME type, then from the
// file extension. Unknown inputs are treated as text.
func DetectFileType(filename, mimeType string) FileType {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mimeType, "video/"):
		return FileTypeVideo
	case strings.HasPrefix(mimeType, "audio/"):
		return FileTypeAudio
	}
	switch strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".") {
	case "mp4", "mov", "avi", "mkv", "webm", "m4v":
		return FileTypeVideo
	case "mp3", "wav", "aac", "m4a", "flac", "ogg":
		return FileTypeAudio
	default:
		return FileTypeText
	}
}

// ProjectFile tracks one uploaded source through ingestion and analysis.
type ProjectFile struct {
	ID           string        `json:"id"`
	ProjectID    string        `json:"project_id"`
	Filename     string        `json:"filename"`
	MimeType     string        `json:"mime_type"`
	StoragePath  string        `json:"storage_path"`
	Size         int64         `json:"size"`
	Type         FileType      `json:"type"`
	Status       FileStatus    `json:"status"`
	Progress     int           `json:"progress"`
	Error        string        `json:"error,omitempty"`
	AnalysisData *ResearchData `json:"analysis_data,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ProgressFunc receives status transitions of a file. A negative percent
// leaves the stored progress unchanged.
type ProgressFunc func(status FileStatus, percent int)

type UploadInput struct {
	Filename string
	MimeType string
	Type     FileType
}

type Screen string

const (
	ScreenUpload     Screen = "upload"
	ScreenTranscript Screen = "transcript"
	ScreenAffinity   Screen = "affinity"
	ScreenInsights   Screen = "insights"
	ScreenSummary    Screen = "summary"
)

func ParseScreen(raw string) (Screen, bool) {
	switch s := Screen(strings.ToLower(strings.TrimSpace(raw))); s {
	case ScreenUpload, ScreenTranscript, ScreenAffinity, ScreenInsights, ScreenSummary:
		return s, true
	default:
		return "", false
	}
}

// Session is the active project snapshot.
type Session struct {
	ID            string        `json:"id"`
	ProjectName   string        `json:"project_name"`
	CurrentScreen Screen        `json:"current_screen"`
	Data          *ResearchData `json:"data,omitempty"`
	MergedFileIDs []string      `json:"merged_file_ids,omitempty"`
	Error         string        `json:"error,omitempty"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// SavedProject is an immutable history entry.
type SavedProject struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Date      time.Time    `json:"date"`
	FileType  FileType     `json:"file_type"`
	FileCount int          `json:"file_count,omitempty"`
	FileIDs   []string     `json:"file_ids,omitempty"`
	Data      ResearchData `json:"data"`
}
