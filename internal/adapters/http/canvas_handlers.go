package httpadapter

import (
	"bytes"
	"net/http"

	"github.com/kirillkom/interview-insights/internal/core/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type noteRequest struct {
	Text string `json:"text"`
}

func (rt *Router) getCanvas(w http.ResponseWriter, r *http.Request) {
	clusters, err := rt.canvas.Clusters(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clusters": clusters})
}

func (rt *Router) autoLayout(w http.ResponseWriter, r *http.Request) {
	clusters, err := rt.canvas.AutoLayout(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"clusters": clusters})
}

func (rt *Router) addCluster(w http.ResponseWriter, r *http.Request) {
	var req domain.NewCluster
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeError(w, r, err)
		return
	}
	cluster, err := rt.canvas.AddCluster(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, cluster)
}

func (rt *Router) updateCluster(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch domain.ClusterPatch
	if err := decodeJSON(w, r, &patch, false); err != nil {
		writeError(w, r, err)
		return
	}
	cluster, err := rt.canvas.UpdateCluster(r.Context(), id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cluster)
}

func (rt *Router) deleteCluster(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := rt.canvas.DeleteCluster(r.Context(), id, confirmed(r)); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) addNote(w http.ResponseWriter, r *http.Request) {
	clusterID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req noteRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	item, err := rt.canvas.AddNote(r.Context(), clusterID, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (rt *Router) editNote(w http.ResponseWriter, r *http.Request) {
	clusterID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req noteRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if err := rt.canvas.EditNote(r.Context(), clusterID, itemID, req.Text); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) deleteNote(w http.ResponseWriter, r *http.Request) {
	clusterID, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	itemID, err := pathID(r, "itemId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := rt.canvas.DeleteNote(r.Context(), clusterID, itemID); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) moveItem(w http.ResponseWriter, r *http.Request) {
	var req domain.ItemMove
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeError(w, r, err)
		return
	}
	if err := rt.canvas.MoveItem(r.Context(), req); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// exportInsights buffers the workbook so a rendering failure still yields a
// JSON error instead of a truncated download.
func (rt *Router) exportInsights(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	err := rt.export.ExportInsights(r.Context(), &buf)
	if rt.metrics != nil {
		rt.metrics.RecordExport(err)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="insights.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
