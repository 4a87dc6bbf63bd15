package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"plate-api/api/internal/ocr"
	"plate-api/api/internal/util"
)

type Engine struct {
	APIKey  string
	Model   string
	BaseURL string
	httpc   *http.Client
}

func New(key, model, baseURL string) *Engine {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	return &Engine{
		APIKey:  key,
		Model:   model,
		BaseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *Engine) Name() string { return "openai" }

func (e *Engine) GetModel() string { return e.Model }

// ReadPlate sends the plate crop to chat/completions and returns the raw
// model reply. It never interprets the content; that is ocr.ParsePlate's job.
func (e *Engine) ReadPlate(ctx context.Context, img []byte, mime string) (ocr.Reply, error) {
	if e.APIKey == "" {
		return ocr.Reply{}, fmt.Errorf("OPENAI_API_KEY is empty")
	}
	b64 := base64.StdEncoding.EncodeToString(img)
	dataURL := util.MakeDataURL(mime, b64)

	body := map[string]any{
		"model": e.Model,
		"messages": []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "text", "text": ocr.PlatePrompt},
					map[string]any{"type": "image_url", "image_url": map[string]any{"url": dataURL}},
				},
			},
		},
		"max_tokens":      ocr.MaxTokens,
		"temperature":     0,
		"response_format": map[string]any{"type": "json_object"},
	}
	payload, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, "POST", e.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return ocr.Reply{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.APIKey)

	resp, err := e.httpc.Do(req)
	if err != nil {
		return ocr.Reply{}, classifyTransportErr(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		x, _ := io.ReadAll(resp.Body)
		return ocr.Reply{}, &ocr.ServiceError{Status: resp.StatusCode, Body: serviceMessage(x)}
	}

	var raw struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Usage ocr.Usage `json:"usage"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return ocr.Reply{}, fmt.Errorf("openai: bad response body: %w", err)
	}
	if len(raw.Choices) == 0 {
		return ocr.Reply{}, &ocr.ServiceError{Status: resp.StatusCode, Body: "empty choices"}
	}

	return ocr.Reply{
		Content: raw.Choices[0].Message.Content,
		Usage:   raw.Usage,
	}, nil
}

func classifyTransportErr(err error) error {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return fmt.Errorf("%w: %v", ocr.ErrTimeout, err)
	}
	return fmt.Errorf("%w: %v", ocr.ErrUnreachable, err)
}

// serviceMessage pulls the error.message out of an OpenAI error body,
// falling back to the trimmed body itself.
func serviceMessage(body []byte) string {
	var e struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error.Message != "" {
		return e.Error.Message
	}
	return strings.TrimSpace(string(body))
}
