package handle

import "net/http"

func (h *Handle) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET only"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":            "healthy",
		"message":           "License Plate Recognition API is running",
		"openai_configured": h.OpenAIConfigured,
	})
}
