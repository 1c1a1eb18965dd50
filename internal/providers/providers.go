package providers

import (
	"context"
	"fmt"
)

// Generator sends a prompt to a text-generation service and returns the
// model's text untouched.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GenerationError means the upstream service was unreachable, refused the
// request, or answered without usable output. It is terminal for a request.
type GenerationError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *GenerationError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s generation failed (status %d): %s", e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s generation failed: %s", e.Provider, msg)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Details is the message surfaced to API callers.
func (e *GenerationError) Details() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "generation failed"
}
