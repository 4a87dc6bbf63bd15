package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"plate-api/api/internal/ocr"
)

// The genai client carries no timeout of its own; the extraction call
// gets the same 30s bound the OpenAI http.Client enforces.
const requestTimeout = 30 * time.Second

type Engine struct {
	APIKey string
	Model  string
}

func New(apiKey, model string) *Engine {
	return &Engine{
		APIKey: strings.TrimSpace(apiKey),
		Model:  strings.TrimSpace(model),
	}
}

func (e *Engine) Name() string { return "gemini" }

func (e *Engine) GetModel() string { return e.Model }

// ReadPlate sends the plate crop to Gemini with a JSON response MIME so
// the model is biased towards a bare object. The reply content is
// returned uninterpreted.
func (e *Engine) ReadPlate(ctx context.Context, img []byte, mime string) (ocr.Reply, error) {
	if e.APIKey == "" {
		return ocr.Reply{}, fmt.Errorf("GEMINI_API_KEY is empty")
	}
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	cl, err := genai.NewClient(ctx, option.WithAPIKey(e.APIKey))
	if err != nil {
		return ocr.Reply{}, fmt.Errorf("%w: %v", ocr.ErrUnreachable, err)
	}
	defer cl.Close()

	m := cl.GenerativeModel(e.Model)
	m.GenerationConfig = genai.GenerationConfig{
		Temperature:      ptrFloat32(0),
		MaxOutputTokens:  ptrInt32(ocr.MaxTokens),
		ResponseMIMEType: "application/json",
	}

	resp, err := m.GenerateContent(ctx,
		genai.Text(ocr.PlatePrompt),
		genai.Blob{MIMEType: mime, Data: img},
	)
	if err != nil {
		return ocr.Reply{}, classifyErr(err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ocr.Reply{}, &ocr.ServiceError{Status: 200, Body: "gemini: empty candidates"}
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}

	reply := ocr.Reply{Content: sb.String()}
	if u := resp.UsageMetadata; u != nil {
		reply.Usage = ocr.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	return reply, nil
}

func classifyErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ocr.ErrTimeout, err)
	}
	var ge *googleapi.Error
	if errors.As(err, &ge) {
		return &ocr.ServiceError{Status: ge.Code, Body: ge.Message}
	}
	return fmt.Errorf("%w: %v", ocr.ErrUnreachable, err)
}

func ptrFloat32(v float32) *float32 { return &v }
func ptrInt32(v int32) *int32       { return &v }
