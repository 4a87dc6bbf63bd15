package handle

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"plate-api/api/internal/ocr"
	"plate-api/api/internal/pipeline"
	"plate-api/api/internal/util"
)

// Uploads above this size are rejected before any work happens.
const maxUploadBytes = 20 << 20

const missingInputMsg = `No image file provided. Send image as form-data with key "image" or "file", or as raw binary data.`

type recognizeSuccess struct {
	Success     bool      `json:"success"`
	LeftNumber  string    `json:"left_number"`
	MiddleText  string    `json:"middle_text"`
	RightNumber string    `json:"right_number"`
	Model       string    `json:"model"`
	Usage       ocr.Usage `json:"usage"`
}

// Recognize is the main endpoint: validate the submission, hand the
// upload to the pipeline, map the outcome onto the HTTP envelope.
func (h *Handle) Recognize(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "POST only"})
		return
	}

	imagePath, kind, msg := h.saveUpload(r)
	if kind != "" {
		failJSON(w, kind, msg)
		return
	}

	res := h.Pipeline.Recognize(r.Context(), imagePath)
	if !res.OK {
		failJSON(w, res.Fail, res.Message)
		return
	}

	writeJSON(w, http.StatusOK, recognizeSuccess{
		Success:     true,
		LeftNumber:  res.Plate.LeftNumber,
		MiddleText:  res.Plate.MiddleText,
		RightNumber: res.Plate.RightNumber,
		Model:       res.Model,
		Usage:       res.Usage,
	})
}

// saveUpload validates the inbound submission and persists it under the
// upload dir. On success the returned path is owned by the caller, who
// must hand it to the pipeline (which deletes it on every exit path).
func (h *Handle) saveUpload(r *http.Request) (string, pipeline.FailKind, string) {
	ct := r.Header.Get("Content-Type")

	if strings.HasPrefix(ct, "multipart/") {
		return h.saveMultipart(r)
	}
	// raw binary body with an image content type is accepted as-is;
	// the detector decides whether it is usable
	if strings.Contains(ct, "image") {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxUploadBytes+1))
		if err != nil {
			return "", pipeline.FailInternal, "failed to read request body: " + err.Error()
		}
		if len(data) == 0 {
			return "", pipeline.FailMissingInput, missingInputMsg
		}
		if len(data) > maxUploadBytes {
			return "", pipeline.FailUnsupportedFormat, "image exceeds the maximum upload size"
		}
		return h.writeTemp("upload_*.jpg", data)
	}

	return "", pipeline.FailMissingInput, missingInputMsg
}

func (h *Handle) saveMultipart(r *http.Request) (string, pipeline.FailKind, string) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", pipeline.FailMissingInput, missingInputMsg
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		file, header, err = r.FormFile("file")
	}
	if err != nil {
		return "", pipeline.FailMissingInput, missingInputMsg
	}
	defer file.Close()

	name := util.SanitizeFilename(header.Filename)
	if name == "" {
		return "", pipeline.FailMissingInput, "No file selected"
	}
	ext := strings.ToLower(filepath.Ext(name))
	if !h.AllowedExts[ext] {
		return "", pipeline.FailUnsupportedFormat,
			"Invalid file type. Allowed types: png, jpg, jpeg, gif, bmp"
	}

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return "", pipeline.FailInternal, "failed to read upload: " + err.Error()
	}
	if len(data) == 0 {
		return "", pipeline.FailMissingInput, "No file selected"
	}
	if len(data) > maxUploadBytes {
		return "", pipeline.FailUnsupportedFormat, "image exceeds the maximum upload size"
	}
	return h.writeTemp("upload_*"+ext, data)
}

func (h *Handle) writeTemp(pattern string, data []byte) (string, pipeline.FailKind, string) {
	f, err := os.CreateTemp(h.UploadDir, pattern)
	if err != nil {
		return "", pipeline.FailInternal, "failed to store upload: " + err.Error()
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", pipeline.FailInternal, "failed to store upload: " + err.Error()
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", pipeline.FailInternal, "failed to store upload: " + err.Error()
	}
	return f.Name(), "", ""
}
