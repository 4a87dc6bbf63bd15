package handle

import "net/http"

func (h *Handle) Info(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "GET only"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "Vehicle License Plate Recognition API",
		"version": "1.0.0",
		"endpoints": map[string]string{
			"GET /health":     "Health check",
			"GET /info":       "API information",
			"POST /recognize": "Recognize license plate from image",
		},
		"usage": map[string]any{
			"POST /recognize": map[string]any{
				"description": "Upload a vehicle photo to recognize its license plate",
				"parameters": map[string]string{
					"image (file)": `Image file (form-data, key "image" or "file"), or raw binary body with an image content type`,
				},
				"example": `curl -X POST -F "image=@vehicle.jpg" http://localhost:8000/recognize`,
			},
		},
		"supported_formats": []string{"png", "jpg", "jpeg", "gif", "bmp"},
	})
}
