package httpadapter

import (
	"bytes"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kirillkom/interview-insights/internal/config"
	"github.com/kirillkom/interview-insights/internal/core/domain"
)

func multipartBody(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			t.Fatalf("WriteField() error = %v", err)
		}
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return &body, writer.FormDataContentType()
}

func TestHealthzEndpoint(t *testing.T) {
	tr := newTestRouter(t, config.Config{})
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestUploadFileAccepted(t *testing.T) {
	tr := newTestRouter(t, config.Config{})
	body, contentType := multipartBody(t, "interview.mp3", "audio-bytes", map[string]string{"type": "audio"})

	req := httptest.NewRequest(http.MethodPost, "/v1/files", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	var file map[string]any
	if err := json.NewDecoder(res.Body).Decode(&file); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if file["id"] != "file-1" || file["status"] != string(domain.FileUploading) {
		t.Fatalf("unexpected response: %+v", file)
	}
	if tr.uploader.gotInput.Type != domain.FileTypeAudio || tr.uploader.gotBody != "audio-bytes" {
		t.Fatalf("unexpected upload input: %+v body=%q", tr.uploader.gotInput, tr.uploader.gotBody)
	}
}

func TestUploadFileRejectsUnknownType(t *testing.T) {
	tr := newTestRouter(t, config.Config{}, WithoutRequestValidation())
	body, contentType := multipartBody(t, "x.bin", "data", map[string]string{"type": "image"})

	req := httptest.NewRequest(http.MethodPost, "/v1/files", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadFileMissingMultipartField(t *testing.T) {
	tr := newTestRouter(t, config.Config{}, WithoutRequestValidation())

	req := httptest.NewRequest(http.MethodPost, "/v1/files", bytes.NewBufferString("plain-text"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUploadFileTooLargeReturns413(t *testing.T) {
	tr := newTestRouter(t, config.Config{MaxUploadBytes: 16})
	body, contentType := multipartBody(t, "big.mp4", strings.Repeat("x", 2<<20), nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/files", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
}

func TestUploadFileSizeLimitFromUseCase(t *testing.T) {
	tr := newTestRouter(t, config.Config{})
	tr.uploader.err = domain.WrapError(domain.ErrSizeLimit, "upload file", errors.New("too big"))
	body, contentType := multipartBody(t, "big.mp4", "x", nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/files", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "size limit") {
		t.Fatalf("expected user-facing size message, got %s", res.Body.String())
	}
}

func TestUploadTextAccepted(t *testing.T) {
	tr := newTestRouter(t, config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/v1/files/text", strings.NewReader(`{"name":"notes","text":"Interviewer: hi"}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", res.Code, res.Body.String())
	}
	if tr.uploader.gotInput.Filename != "notes.txt" || tr.uploader.gotBody != "Interviewer: hi" {
		t.Fatalf("unexpected upload: %+v %q", tr.uploader.gotInput, tr.uploader.gotBody)
	}
}

func TestUploadTextValidationRejectsEmptyText(t *testing.T) {
	tr := newTestRouter(t, config.Config{})
	req := httptest.NewRequest(http.MethodPost, "/v1/files/text", strings.NewReader(`{"name":"notes","text":""}`))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestGetFileReturns404ForNotFound(t *testing.T) {
	tr := newTestRouter(t, config.Config{})
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/files/missing", nil))

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestRemoveFile(t *testing.T) {
	tr := newTestRouter(t, config.Config{})
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, httptest.NewRequest(http.MethodDelete, "/v1/files/file-1", nil))

	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if len(tr.files.removed) != 1 || tr.files.removed[0] != "file-1" {
		t.Fatalf("unexpected removals: %v", tr.files.removed)
	}
}

func TestUnknownRouteReturns404(t *testing.T) {
	tr := newTestRouter(t, config.Config{})
	res := httptest.NewRecorder()
	tr.handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/v1/nothing", nil))

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestMapErrorToHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.WrapError(domain.ErrInvalidInput, "op", errors.New("x")), http.StatusBadRequest},
		{domain.WrapError(domain.ErrNotFound, "op", errors.New("x")), http.StatusNotFound},
		{domain.WrapError(domain.ErrConfirmationRequired, "op", errors.New("x")), http.StatusConflict},
		{domain.WrapError(domain.ErrSizeLimit, "op", errors.New("x")), http.StatusRequestEntityTooLarge},
		{domain.WrapError(domain.ErrQuotaExhausted, "op", errors.New("x")), http.StatusTooManyRequests},
		{domain.WrapError(domain.ErrTemporary, "op", errors.New("x")), http.StatusServiceUnavailable},
		{domain.WrapError(domain.ErrMalformedResponse, "op", errors.New("x")), http.StatusBadGateway},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := mapErrorToHTTPStatus(tt.err); got != tt.want {
			t.Fatalf("mapErrorToHTTPStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
