package llmclient

import (
	"context"
	"encoding/json"
	"log"
)

// Middleware wraps a Client with a cross-cutting concern.
type Middleware func(Client) Client

// Chain applies middlewares right to left, so the first one in the list
// is the outermost layer.
func Chain(c Client, mws ...Middleware) Client {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] == nil {
			continue
		}
		c = mws[i](c)
	}
	return c
}

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next Client) Client {
		return &logging{next: next, log: logger}
	}
}

type logging struct {
	next Client
	log  *log.Logger
}

func (l *logging) Name() string { return l.next.Name() }
func (l *logging) Close() error { return l.next.Close() }

func (l *logging) GenerateJSON(ctx context.Context, prompt string, input any, images ...Image) (json.RawMessage, error) {
	in, _ := json.Marshal(input)
	l.log.Printf("LLM request (%s): %d prompt bytes, %d images", l.next.Name(), len(prompt)+len(in), len(images))
	raw, err := l.next.GenerateJSON(ctx, prompt, input, images...)
	if err != nil {
		l.log.Printf("LLM error (%s): %v", l.next.Name(), err)
	}
	return raw, err
}
