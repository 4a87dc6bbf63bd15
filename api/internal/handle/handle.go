package handle

import (
	"encoding/json"
	"net/http"

	"plate-api/api/internal/pipeline"
	"plate-api/api/internal/store"
)

type Handle struct {
	Pipeline         *pipeline.Service
	UploadDir        string
	AllowedExts      map[string]bool
	OpenAIConfigured bool
	History          *store.RecognitionRepo
}

func New(p *pipeline.Service, uploadDir string, allowedExts map[string]bool, openaiConfigured bool, history *store.RecognitionRepo) *Handle {
	return &Handle{
		Pipeline:         p,
		UploadDir:        uploadDir,
		AllowedExts:      allowedExts,
		OpenAIConfigured: openaiConfigured,
		History:          history,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type apiError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func failJSON(w http.ResponseWriter, kind pipeline.FailKind, message string) {
	writeJSON(w, kind.HTTPStatus(), apiError{Error: string(kind), Message: message})
}
