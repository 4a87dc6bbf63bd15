package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/require"

	"plate-api/api/internal/detect"
	"plate-api/api/internal/ocr"
)

type stubDetector struct {
	det *detect.Detection
	err error
}

func (s stubDetector) Detect(ctx context.Context, imagePath string) (*detect.Detection, error) {
	return s.det, s.err
}

type stubEngine struct {
	reply ocr.Reply
	err   error
}

func (s stubEngine) Name() string     { return "stub" }
func (s stubEngine) GetModel() string { return "stub-model" }
func (s stubEngine) ReadPlate(ctx context.Context, img []byte, mime string) (ocr.Reply, error) {
	return s.reply, s.err
}

func writeUpload(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "upload_test.jpg")
	require.NoError(t, os.WriteFile(p, []byte{0xFF, 0xD8, 0xFF, 0x00}, 0o644))
	return p
}

func requireRemoved(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err), "upload %s must be removed", path)
}

func foundDetection() *detect.Detection {
	return &detect.Detection{
		Plate:  []byte{0xFF, 0xD8, 0xFF, 0x01},
		Region: detect.Region{X: 10, Y: 20, Width: 120, Height: 40},
	}
}

func TestRecognize_Success(t *testing.T) {
	p := writeUpload(t)
	svc := New(
		stubDetector{det: foundDetection()},
		stubEngine{reply: ocr.Reply{
			Content: `{"left_number":"123","middle_text":"X","right_number":"45"}`,
			Usage:   ocr.Usage{TotalTokens: 42},
		}},
		nil,
	)

	res := svc.Recognize(context.Background(), p)
	require.True(t, res.OK)
	require.Equal(t, "123", res.Plate.LeftNumber)
	require.Equal(t, "X", res.Plate.MiddleText)
	require.Equal(t, "45", res.Plate.RightNumber)
	require.Equal(t, "stub-model", res.Model)
	require.Equal(t, 42, res.Usage.TotalTokens)
	requireRemoved(t, p)
}

func TestRecognize_NoDetection(t *testing.T) {
	p := writeUpload(t)
	svc := New(stubDetector{det: nil}, stubEngine{}, nil)

	res := svc.Recognize(context.Background(), p)
	require.False(t, res.OK)
	require.Equal(t, FailNoPlateDetected, res.Fail)
	require.Equal(t, 400, res.Fail.HTTPStatus())
	requireRemoved(t, p)
}

func TestRecognize_ZeroAreaDetection(t *testing.T) {
	p := writeUpload(t)
	det := foundDetection()
	det.Region = detect.Region{Width: 0, Height: 40}
	svc := New(stubDetector{det: det}, stubEngine{}, nil)

	res := svc.Recognize(context.Background(), p)
	require.False(t, res.OK)
	require.Equal(t, FailNoPlateDetected, res.Fail)
	requireRemoved(t, p)
}

func TestRecognize_DetectorError(t *testing.T) {
	p := writeUpload(t)
	svc := New(stubDetector{err: os.ErrPermission}, stubEngine{}, nil)

	res := svc.Recognize(context.Background(), p)
	require.False(t, res.OK)
	require.Equal(t, FailInternal, res.Fail)
	requireRemoved(t, p)
}

func TestRecognize_ExtractionClassification(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want FailKind
		code int
	}{
		{"timeout", ocr.ErrTimeout, FailExtractionTimeout, 502},
		{"unreachable", ocr.ErrUnreachable, FailExtractionUnreachable, 502},
		{"service", &ocr.ServiceError{Status: 429, Body: "quota"}, FailExtractionService, 502},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := writeUpload(t)
			svc := New(stubDetector{det: foundDetection()}, stubEngine{err: tc.err}, nil)

			res := svc.Recognize(context.Background(), p)
			require.False(t, res.OK)
			require.Equal(t, tc.want, res.Fail)
			require.Equal(t, tc.code, res.Fail.HTTPStatus())
			requireRemoved(t, p)
		})
	}
}

func TestRecognize_ParseFailureCarriesRawContent(t *testing.T) {
	p := writeUpload(t)
	svc := New(
		stubDetector{det: foundDetection()},
		stubEngine{reply: ocr.Reply{Content: "sorry, no idea"}},
		nil,
	)

	res := svc.Recognize(context.Background(), p)
	require.False(t, res.OK)
	require.Equal(t, FailExtractionParse, res.Fail)
	require.Equal(t, 500, res.Fail.HTTPStatus())
	require.Contains(t, res.Message, "sorry, no idea")
	requireRemoved(t, p)
}

func TestTruncate_RuneBoundary(t *testing.T) {
	// "é" is two bytes; cutting at byte 2 must not split it
	require.Equal(t, "h…", truncate("héllo", 2))
	require.Equal(t, "hé…", truncate("héllo", 3))
	require.Equal(t, "héllo", truncate("héllo", 6))

	long := strings.Repeat("ع", 200)
	out := truncate(long, 301)
	require.True(t, utf8.ValidString(out))
}

func TestRecognize_PartialReplyStillSucceeds(t *testing.T) {
	p := writeUpload(t)
	svc := New(
		stubDetector{det: foundDetection()},
		stubEngine{reply: ocr.Reply{Content: `answer: {"left_number":"7"}`}},
		nil,
	)

	res := svc.Recognize(context.Background(), p)
	require.True(t, res.OK)
	require.Equal(t, "7", res.Plate.LeftNumber)
	require.Equal(t, ocr.Unreadable, res.Plate.MiddleText)
	require.Equal(t, ocr.Unreadable, res.Plate.RightNumber)
	requireRemoved(t, p)
}
