package httpadapter

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/kirillkom/interview-insights/internal/core/domain"
)

func (rt *Router) uploadFile(w http.ResponseWriter, r *http.Request) {
	if rt.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, rt.maxUploadBytes+multipartOverhead)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			rt.recordUpload("", 0, err)
			writeError(w, r, domain.WrapError(domain.ErrSizeLimit, "upload file", err))
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	defer file.Close()

	var fileType domain.FileType
	if raw := strings.TrimSpace(r.FormValue("type")); raw != "" {
		parsed, ok := domain.ParseFileType(raw)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("unknown file type %q", raw)})
			return
		}
		fileType = parsed
	}

	uploaded, err := rt.uploader.Upload(r.Context(), domain.UploadInput{
		Filename: fileHeader.Filename,
		MimeType: fileHeader.Header.Get("Content-Type"),
		Type:     fileType,
	}, file)
	if err != nil {
		rt.recordUpload(string(fileType), 0, err)
		writeError(w, r, err)
		return
	}
	rt.recordUpload(string(uploaded.Type), uploaded.Size, nil)
	writeJSON(w, http.StatusAccepted, uploaded)
}

func (rt *Router) uploadText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Text string `json:"text"`
	}
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	uploaded, err := rt.uploader.UploadText(r.Context(), req.Name, req.Text)
	if err != nil {
		rt.recordUpload(string(domain.FileTypeText), 0, err)
		writeError(w, r, err)
		return
	}
	rt.recordUpload(string(uploaded.Type), uploaded.Size, nil)
	writeJSON(w, http.StatusAccepted, uploaded)
}

func (rt *Router) listFiles(w http.ResponseWriter, r *http.Request) {
	files, err := rt.files.ListFiles(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": files})
}

func (rt *Router) getFile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	file, err := rt.files.GetFile(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, file)
}

func (rt *Router) removeFile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := rt.files.RemoveFile(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) recordUpload(fileType string, size int64, err error) {
	if rt.metrics != nil {
		rt.metrics.RecordUpload(fileType, size, err)
	}
}
