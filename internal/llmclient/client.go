package llmclient

import (
	"context"
	"encoding/json"
	"errors"
)

var ErrInvalidJSON = errors.New("invalid json from LLM")

// Image is an inline binary attachment sent alongside the prompt.
type Image struct {
	MIMEType string
	Data     []byte
}

// Client defines the interface for structured-completion providers.
// GenerateJSON sends the prompt plus a JSON-encoded input block and any
// inline images, and returns the model's JSON response verbatim.
type Client interface {
	Name() string
	Close() error
	GenerateJSON(ctx context.Context, prompt string, input any, images ...Image) (json.RawMessage, error)
}
