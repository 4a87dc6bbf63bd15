package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"os"
	"unicode/utf8"

	"plate-api/api/internal/detect"
	"plate-api/api/internal/ocr"
	"plate-api/api/internal/store"
	"plate-api/api/internal/util"
)

// FailKind classifies every way a request can terminate short of a
// plate record. Failures are values threaded through the pipeline, not
// panics: "no plate found" is a normal terminal state.
type FailKind string

const (
	FailMissingInput          FailKind = "missing_input"
	FailUnsupportedFormat     FailKind = "unsupported_format"
	FailNoPlateDetected       FailKind = "no_plate_detected"
	FailExtractionTimeout     FailKind = "extraction_timeout"
	FailExtractionUnreachable FailKind = "extraction_unreachable"
	FailExtractionService     FailKind = "extraction_service_error"
	FailExtractionParse       FailKind = "extraction_parse_failure"
	FailInternal              FailKind = "internal_error"
)

// HTTPStatus maps a failure to its response status: client input and
// expected non-detections are 400, upstream faults 502, the rest 500.
func (k FailKind) HTTPStatus() int {
	switch k {
	case FailMissingInput, FailUnsupportedFormat, FailNoPlateDetected:
		return 400
	case FailExtractionTimeout, FailExtractionUnreachable, FailExtractionService:
		return 502
	default:
		return 500
	}
}

// Result is the terminal outcome of one request.
type Result struct {
	OK      bool
	Plate   ocr.PlateRecord
	Model   string
	Usage   ocr.Usage
	Fail    FailKind
	Message string
}

func Failure(kind FailKind, message string) Result {
	return Result{Fail: kind, Message: message}
}

// Service runs validate -> detect -> extract -> parse for one upload.
type Service struct {
	Detector detect.Detector
	Engine   ocr.Engine

	// History is optional; nil disables recording.
	History *store.RecognitionRepo
}

func New(detector detect.Detector, engine ocr.Engine, history *store.RecognitionRepo) *Service {
	return &Service{Detector: detector, Engine: engine, History: history}
}

// Recognize takes ownership of the upload at imagePath: whatever the
// outcome, the file is removed exactly once before Recognize returns.
func (s *Service) Recognize(ctx context.Context, imagePath string) Result {
	var imageHash string
	if s.History != nil {
		if data, err := os.ReadFile(imagePath); err == nil {
			sum := sha256.Sum256(data)
			imageHash = hex.EncodeToString(sum[:])
		}
	}

	res := s.recognize(ctx, imagePath)

	if s.History != nil && imageHash != "" {
		outcome := "ok"
		if !res.OK {
			outcome = string(res.Fail)
		}
		if err := s.History.Record(ctx, imageHash, s.Engine.Name(), s.Engine.GetModel(),
			outcome, res.Plate, res.Usage.TotalTokens); err != nil {
			log.Printf("history record: %v", err)
		}
	}
	return res
}

func (s *Service) recognize(ctx context.Context, imagePath string) Result {
	defer func() {
		if err := os.Remove(imagePath); err != nil && !os.IsNotExist(err) {
			log.Printf("remove upload %s: %v", imagePath, err)
		}
	}()

	det, err := s.Detector.Detect(ctx, imagePath)
	if err != nil {
		return Failure(FailInternal, "detector error: "+err.Error())
	}
	if det == nil || len(det.Plate) == 0 || det.Region.Area() == 0 {
		return Failure(FailNoPlateDetected,
			"The image may not contain a visible license plate. Try a different image with a clearer license plate.")
	}

	mime := util.SniffMimeHTTP(det.Plate)
	if mime == "application/octet-stream" {
		mime = util.MIMEForExt(imagePath)
	}

	reply, err := s.Engine.ReadPlate(ctx, det.Plate, mime)
	if err != nil {
		return classifyExtractionErr(err)
	}

	rec, err := ocr.ParsePlate(reply.Content)
	if err != nil {
		var nj *ocr.NoJSONError
		if errors.As(err, &nj) {
			return Failure(FailExtractionParse,
				fmt.Sprintf("could not recover a structured result from the model reply: %q", truncate(nj.Raw, 300)))
		}
		return Failure(FailInternal, err.Error())
	}

	return Result{
		OK:    true,
		Plate: rec,
		Model: s.Engine.GetModel(),
		Usage: reply.Usage,
	}
}

func classifyExtractionErr(err error) Result {
	switch {
	case errors.Is(err, ocr.ErrTimeout):
		return Failure(FailExtractionTimeout, "The text extraction request timed out.")
	case errors.Is(err, ocr.ErrUnreachable):
		return Failure(FailExtractionUnreachable, "Could not reach the text extraction service: "+err.Error())
	}
	var se *ocr.ServiceError
	if errors.As(err, &se) {
		return Failure(FailExtractionService,
			fmt.Sprintf("extraction service returned %d: %s", se.Status, se.Body))
	}
	return Failure(FailInternal, err.Error())
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
