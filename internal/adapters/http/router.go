package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/interview-insights/internal/config"
	"github.com/kirillkom/interview-insights/internal/core/domain"
	"github.com/kirillkom/interview-insights/internal/core/ports"
)

const (
	defaultBackpressureWait = 250 * time.Millisecond
	maxJSONBodyBytes        = 2 << 20
	multipartMemory         = 32 << 20
	multipartOverhead       = 1 << 20
)

// RequestMetrics is implemented by the API metrics collector.
type RequestMetrics interface {
	Middleware(next http.Handler) http.Handler
	Handler() http.Handler
	RecordUpload(fileType string, size int64, err error)
	RecordExport(err error)
	RecordRejected(reason string)
}

// Services groups the inbound ports served over HTTP.
type Services struct {
	Uploader ports.FileUploader
	Files    ports.FileReader
	Projects ports.ProjectManager
	Canvas   ports.CanvasEditor
	Export   ports.InsightsExport
}

type Router struct {
	uploader ports.FileUploader
	files    ports.FileReader
	projects ports.ProjectManager
	canvas   ports.CanvasEditor
	export   ports.InsightsExport
	metrics  RequestMetrics

	maxUploadBytes   int64
	rateLimitRPS     float64
	rateLimitBurst   int
	maxInFlight      int
	backpressureWait time.Duration
	validateRequests bool
}

type RouterOption func(*Router)

func WithMetrics(m RequestMetrics) RouterOption {
	return func(rt *Router) { rt.metrics = m }
}

// WithoutRequestValidation skips OpenAPI checks. Handlers still validate
// their own input.
func WithoutRequestValidation() RouterOption {
	return func(rt *Router) { rt.validateRequests = false }
}

func NewRouter(cfg config.Config, svc Services, opts ...RouterOption) *Router {
	rt := &Router{
		uploader:         svc.Uploader,
		files:            svc.Files,
		projects:         svc.Projects,
		canvas:           svc.Canvas,
		export:           svc.Export,
		maxUploadBytes:   cfg.MaxUploadBytes,
		rateLimitRPS:     cfg.APIRateLimitRPS,
		rateLimitBurst:   cfg.APIRateLimitBurst,
		maxInFlight:      cfg.APIMaxInFlight,
		backpressureWait: defaultBackpressureWait,
		validateRequests: true,
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Handler assembles the mux and the middleware chain.
func (rt *Router) Handler() (http.Handler, error) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("GET /openapi.yaml", rt.openAPISpec)
	if rt.metrics != nil {
		mux.Handle("GET /metrics", rt.metrics.Handler())
	}

	mux.HandleFunc("POST /v1/files", rt.uploadFile)
	mux.HandleFunc("POST /v1/files/text", rt.uploadText)
	mux.HandleFunc("GET /v1/files", rt.listFiles)
	mux.HandleFunc("GET /v1/files/{id}", rt.getFile)
	mux.HandleFunc("DELETE /v1/files/{id}", rt.removeFile)

	mux.HandleFunc("GET /v1/session", rt.getSession)
	mux.HandleFunc("PUT /v1/session/screen", rt.setScreen)
	mux.HandleFunc("DELETE /v1/session/error", rt.dismissError)
	mux.HandleFunc("GET /v1/document", rt.getDocument)
	mux.HandleFunc("GET /v1/tags", rt.listTags)

	mux.HandleFunc("GET /v1/projects", rt.listProjects)
	mux.HandleFunc("POST /v1/projects", rt.newProject)
	mux.HandleFunc("POST /v1/projects/{id}/open", rt.openProject)
	mux.HandleFunc("PATCH /v1/projects/{id}", rt.renameProject)
	mux.HandleFunc("DELETE /v1/projects/{id}", rt.deleteProject)

	mux.HandleFunc("GET /v1/canvas", rt.getCanvas)
	mux.HandleFunc("POST /v1/canvas/layout", rt.autoLayout)
	mux.HandleFunc("POST /v1/canvas/clusters", rt.addCluster)
	mux.HandleFunc("PUT /v1/canvas/clusters/{id}", rt.updateCluster)
	mux.HandleFunc("DELETE /v1/canvas/clusters/{id}", rt.deleteCluster)
	mux.HandleFunc("POST /v1/canvas/clusters/{id}/notes", rt.addNote)
	mux.HandleFunc("PUT /v1/canvas/clusters/{id}/notes/{itemId}", rt.editNote)
	mux.HandleFunc("DELETE /v1/canvas/clusters/{id}/notes/{itemId}", rt.deleteNote)
	mux.HandleFunc("POST /v1/canvas/items/move", rt.moveItem)

	mux.HandleFunc("GET /v1/export/insights.xlsx", rt.exportInsights)

	var handler http.Handler = mux
	if rt.validateRequests {
		doc, err := loadOpenAPI(context.Background())
		if err != nil {
			return nil, err
		}
		handler, err = openAPIValidationMiddleware(handler, doc)
		if err != nil {
			return nil, err
		}
	}

	var onReject func(string)
	if rt.metrics != nil {
		onReject = rt.metrics.RecordRejected
	}
	handler = backpressureMiddleware(handler, rt.maxInFlight, rt.backpressureWait, onReject)
	handler = rateLimitMiddleware(handler, rt.rateLimitRPS, rt.rateLimitBurst, onReject)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(handler)
	}
	handler = recoverMiddleware(handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler, nil
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) openAPISpec(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(openAPIDocument)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// decodeJSON reads a bounded JSON body into dst. An empty body leaves dst
// untouched when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	decoder := json.NewDecoder(body)
	if err := decoder.Decode(dst); err != nil {
		if optional && errors.Is(err, io.EOF) {
			return nil
		}
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return err
		}
		return domain.WrapError(domain.ErrInvalidInput, "decode request", fmt.Errorf("invalid json: %w", err))
	}
	return nil
}

func pathID(r *http.Request, name string) (string, error) {
	id := strings.TrimSpace(r.PathValue(name))
	if id == "" {
		return "", domain.WrapError(domain.ErrInvalidInput, "read path", fmt.Errorf("%s is required", name))
	}
	return id, nil
}

func confirmed(r *http.Request) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get("confirm"))) {
	case "true", "1", "yes":
		return true
	default:
		return false
	}
}
