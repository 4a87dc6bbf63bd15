package handle

import (
	"net/http"
	"strconv"
)

// Recognitions lists the newest entries of the recognition history.
// Only registered when the store is configured.
func (h *Handle) Recognitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET only"})
		return
	}
	if h.History == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "recognition history is not configured"})
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	rows, err := h.History.Recent(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "history query failed: " + err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"recognitions": rows, "count": len(rows)})
}
