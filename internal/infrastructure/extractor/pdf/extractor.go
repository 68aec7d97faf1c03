package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/kirillkom/interview-insights/internal/core/domain"
	"github.com/kirillkom/interview-insights/internal/core/ports"
)

// Extractor turns PDF transcripts into plain text before they are sent to
// the model.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Supports(file *domain.ProjectFile) bool {
	if file == nil {
		return false
	}
	if strings.EqualFold(strings.TrimSpace(file.MimeType), "application/pdf") {
		return true
	}
	return strings.EqualFold(filepath.Ext(file.Filename), ".pdf")
}

func (e *Extractor) Extract(ctx context.Context, file *domain.ProjectFile) (string, error) {
	reader, err := e.storage.Open(ctx, file.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open source file: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("read source file: %w", err)
	}
	text, err := ExtractText(raw)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf", fmt.Errorf("%s: %w", file.Filename, err))
	}
	if text == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf", fmt.Errorf("%s contains no text", file.Filename))
	}
	return text, nil
}

func ExtractText(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdf reader: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", fmt.Errorf("pdf read: %w", err)
	}
	return normalizeLines(string(b)), nil
}

// normalizeLines collapses runs of spaces within each line and drops blank
// lines, keeping one line per transcript turn.
func normalizeLines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	out := lines[:0]
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
