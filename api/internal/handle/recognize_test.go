package handle

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"plate-api/api/internal/detect"
	"plate-api/api/internal/ocr"
	"plate-api/api/internal/pipeline"
)

type stubEngine struct {
	reply ocr.Reply
	err   error
}

func (s *stubEngine) Name() string     { return "stub" }
func (s *stubEngine) GetModel() string { return "stub-model" }
func (s *stubEngine) ReadPlate(ctx context.Context, img []byte, mime string) (ocr.Reply, error) {
	return s.reply, s.err
}

type trackingDetector struct {
	inner  detect.Detector
	called bool
}

func (d *trackingDetector) Detect(ctx context.Context, imagePath string) (*detect.Detection, error) {
	d.called = true
	return d.inner.Detect(ctx, imagePath)
}

func newTestHandle(t *testing.T, engine ocr.Engine) (*Handle, *trackingDetector) {
	t.Helper()
	det := &trackingDetector{inner: detect.Passthrough{}}
	pipe := pipeline.New(det, engine, nil)
	allowed := map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".bmp": true}
	return New(pipe, t.TempDir(), allowed, true, nil), det
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	return buf.Bytes()
}

func multipartBody(t *testing.T, field, filename string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) apiError {
	t.Helper()
	var e apiError
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &e))
	return e
}

func TestRecognize_MissingInput(t *testing.T) {
	h, det := newTestHandle(t, &stubEngine{})

	req := httptest.NewRequest(http.MethodPost, "/recognize", nil)
	rr := httptest.NewRecorder()
	h.Recognize(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "missing_input", decodeError(t, rr).Error)
	require.False(t, det.called)
}

func TestRecognize_UnsupportedFormatSkipsDetector(t *testing.T) {
	h, det := newTestHandle(t, &stubEngine{})

	body, ct := multipartBody(t, "image", "notes.txt", []byte("hello"))
	req := httptest.NewRequest(http.MethodPost, "/recognize", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.Recognize(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "unsupported_format", decodeError(t, rr).Error)
	require.False(t, det.called)
}

func TestRecognize_MultipartSuccess(t *testing.T) {
	eng := &stubEngine{reply: ocr.Reply{
		Content: `{"left_number":"123","middle_text":"X","right_number":"45"}`,
		Usage:   ocr.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}}
	h, det := newTestHandle(t, eng)

	body, ct := multipartBody(t, "image", "car.png", pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/recognize", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.Recognize(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	require.True(t, det.called)

	var out recognizeSuccess
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	require.True(t, out.Success)
	require.Equal(t, "123", out.LeftNumber)
	require.Equal(t, "X", out.MiddleText)
	require.Equal(t, "45", out.RightNumber)
	require.Equal(t, "stub-model", out.Model)
	require.Equal(t, 15, out.Usage.TotalTokens)

	requireUploadDirEmpty(t, h.UploadDir)
}

func TestRecognize_FileFieldNameAlsoAccepted(t *testing.T) {
	eng := &stubEngine{reply: ocr.Reply{Content: `{"left_number":"1","middle_text":"A","right_number":"2"}`}}
	h, _ := newTestHandle(t, eng)

	body, ct := multipartBody(t, "file", "car.jpg", pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/recognize", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.Recognize(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
}

func TestRecognize_RawBinaryBody(t *testing.T) {
	eng := &stubEngine{reply: ocr.Reply{Content: `{"left_number":"8","middle_text":"B","right_number":"3"}`}}
	h, _ := newTestHandle(t, eng)

	req := httptest.NewRequest(http.MethodPost, "/recognize", bytes.NewReader(pngBytes(t)))
	req.Header.Set("Content-Type", "image/png")
	rr := httptest.NewRecorder()
	h.Recognize(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	requireUploadDirEmpty(t, h.UploadDir)
}

func TestRecognize_EmptyRawBody(t *testing.T) {
	h, _ := newTestHandle(t, &stubEngine{})

	req := httptest.NewRequest(http.MethodPost, "/recognize", bytes.NewReader(nil))
	req.Header.Set("Content-Type", "image/jpeg")
	rr := httptest.NewRecorder()
	h.Recognize(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "missing_input", decodeError(t, rr).Error)
}

func TestRecognize_UndecodableImageIsNoPlate(t *testing.T) {
	h, _ := newTestHandle(t, &stubEngine{})

	req := httptest.NewRequest(http.MethodPost, "/recognize", bytes.NewReader([]byte("not an image")))
	req.Header.Set("Content-Type", "image/jpeg")
	rr := httptest.NewRecorder()
	h.Recognize(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "no_plate_detected", decodeError(t, rr).Error)
	requireUploadDirEmpty(t, h.UploadDir)
}

func TestRecognize_ExtractionFailureCleansUpload(t *testing.T) {
	h, _ := newTestHandle(t, &stubEngine{err: ocr.ErrTimeout})

	body, ct := multipartBody(t, "image", "car.png", pngBytes(t))
	req := httptest.NewRequest(http.MethodPost, "/recognize", body)
	req.Header.Set("Content-Type", ct)
	rr := httptest.NewRecorder()
	h.Recognize(rr, req)

	require.Equal(t, http.StatusBadGateway, rr.Code)
	require.Equal(t, "extraction_timeout", decodeError(t, rr).Error)
	requireUploadDirEmpty(t, h.UploadDir)
}

func TestRecognize_MethodNotAllowed(t *testing.T) {
	h, _ := newTestHandle(t, &stubEngine{})

	req := httptest.NewRequest(http.MethodGet, "/recognize", nil)
	rr := httptest.NewRecorder()
	h.Recognize(rr, req)

	require.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func requireUploadDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Empty(t, entries, "no temporary uploads may remain")
}
