package ocr

import (
	"context"
	"errors"
	"fmt"
)

// Unreadable is the sentinel the vision model is told to use for any
// plate segment it cannot read. The parser also fills missing segments
// with it, so a PlateRecord never carries an empty field.
const Unreadable = "UNREADABLE"

// PlateRecord is the structured result of reading one plate:
// numeric left part, middle part in its original script, numeric right part.
type PlateRecord struct {
	LeftNumber  string `json:"left_number"`
	MiddleText  string `json:"middle_text"`
	RightNumber string `json:"right_number"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Reply is the uninterpreted answer of an extraction engine. Turning
// Content into a PlateRecord is ParsePlate's job, not the engine's.
type Reply struct {
	Content string
	Usage   Usage
}

// Transport-level failures of an extraction call. Engines wrap these
// with %w so callers can classify via errors.Is / errors.As.
var (
	ErrTimeout     = errors.New("extraction request timed out")
	ErrUnreachable = errors.New("extraction service unreachable")
)

// ServiceError is a non-success status from the extraction service.
type ServiceError struct {
	Status int
	Body   string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("extraction service error %d: %s", e.Status, e.Body)
}

// Engine sends a plate crop to a vision model and returns its raw reply.
type Engine interface {
	Name() string
	GetModel() string
	ReadPlate(ctx context.Context, img []byte, mime string) (Reply, error)
}

type Engines struct {
	OpenAI Engine
	Gemini Engine
}

func (e *Engines) GetEngine(name string) (Engine, error) {
	switch name {
	case "", "openai", "gpt":
		if e.OpenAI == nil {
			return nil, errors.New("openai engine is not configured")
		}
		return e.OpenAI, nil
	case "gemini":
		if e.Gemini == nil {
			return nil, errors.New("gemini engine is not configured")
		}
		return e.Gemini, nil
	default:
		return nil, fmt.Errorf("unknown engine %q", name)
	}
}
