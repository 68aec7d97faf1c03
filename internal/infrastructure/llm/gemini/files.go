package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/kirillkom/interview-insights/internal/core/domain"
)

type remoteFile struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	State    string `json:"state"`
}

func (f remoteFile) toDomain() domain.RemoteFile {
	state := domain.RemoteFileState(strings.ToUpper(f.State))
	if state == "" || state == "STATE_UNSPECIFIED" {
		state = domain.RemoteProcessing
	}
	return domain.RemoteFile{
		Name:     f.Name,
		URI:      f.URI,
		MimeType: f.MimeType,
		State:    state,
	}
}

// UploadFile sends body through the resumable upload protocol in a single
// chunk. It makes one attempt; callers own the retry since body is consumed.
func (c *Client) UploadFile(ctx context.Context, displayName, mimeType string, size int64, body io.Reader) (domain.RemoteFile, error) {
	uploadURL, err := c.startUpload(ctx, displayName, mimeType, size)
	if err != nil {
		return domain.RemoteFile{}, wrapProviderError("gemini.upload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, body)
	if err != nil {
		return domain.RemoteFile{}, fmt.Errorf("create upload request: %w", err)
	}
	req.ContentLength = size
	req.Header.Set("X-Goog-Upload-Offset", "0")
	req.Header.Set("X-Goog-Upload-Command", "upload, finalize")

	var out struct {
		File remoteFile `json:"file"`
	}
	if err := c.do(req, &out, "upload"); err != nil {
		return domain.RemoteFile{}, wrapProviderError("gemini.upload", err)
	}
	if out.File.Name == "" || out.File.URI == "" {
		return domain.RemoteFile{}, errors.New("gemini upload: response has no file name or uri")
	}
	return out.File.toDomain(), nil
}

func (c *Client) startUpload(ctx context.Context, displayName, mimeType string, size int64) (string, error) {
	payload, err := json.Marshal(map[string]any{
		"file": map[string]string{"display_name": displayName},
	})
	if err != nil {
		return "", fmt.Errorf("marshal upload start: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload/v1beta/files", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create upload start request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Upload-Protocol", "resumable")
	req.Header.Set("X-Goog-Upload-Command", "start")
	req.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.FormatInt(size, 10))
	req.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("gemini upload start request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", newHTTPStatusError("upload start", resp)
	}
	uploadURL := resp.Header.Get("X-Goog-Upload-URL")
	if uploadURL == "" {
		return "", errors.New("gemini upload start: missing upload url")
	}
	return uploadURL, nil
}

// GetFile reports the processing state of an uploaded file.
func (c *Client) GetFile(ctx context.Context, name string) (domain.RemoteFile, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return domain.RemoteFile{}, domain.WrapError(domain.ErrInvalidInput, "gemini.get_file", errors.New("file name is required"))
	}
	var out remoteFile
	if err := c.getJSON(ctx, "/v1beta/"+name, &out, "get file"); err != nil {
		return domain.RemoteFile{}, wrapProviderError("gemini.get_file", err)
	}
	return out.toDomain(), nil
}
