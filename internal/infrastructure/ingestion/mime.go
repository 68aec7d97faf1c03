package ingestion

import (
	"path/filepath"
	"strings"

	"github.com/kirillkom/interview-insights/internal/core/domain"
)

var mimeByExtension = map[string]string{
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"mkv":  "video/x-matroska",
	"webm": "video/webm",
	"m4v":  "video/x-m4v",
	"mp3":  "audio/mpeg",
	"wav":  "audio/wav",
	"aac":  "audio/aac",
	"m4a":  "audio/mp4",
	"flac": "audio/flac",
	"ogg":  "audio/ogg",
	"txt":  "text/plain",
	"md":   "text/markdown",
	"csv":  "text/csv",
	"pdf":  "application/pdf",
}

var defaultMimeByType = map[domain.FileType]string{
	domain.FileTypeVideo: "video/mp4",
	domain.FileTypeAudio: "audio/mpeg",
	domain.FileTypeText:  "text/plain",
}

// ResolveMimeType prefers the declared MIME type, then the extension table,
// then the default of the file's type group.
func ResolveMimeType(filename, declared string, fileType domain.FileType) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if i := strings.Index(declared, ";"); i >= 0 {
		declared = strings.TrimSpace(declared[:i])
	}
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if mime, ok := mimeByExtension[ext]; ok {
		return mime
	}
	if mime, ok := defaultMimeByType[fileType]; ok {
		return mime
	}
	return "text/plain"
}
