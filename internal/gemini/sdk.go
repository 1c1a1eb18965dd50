package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/laissez-faire/mealplanner/internal/providers"
	"google.golang.org/api/option"
)

const sdkProviderName = "gemini-sdk"

// SDK is a Generator backed by the generative-ai-go client library.
type SDK struct {
	apiKey      string
	model       string
	temperature float64
}

// NewSDK returns a Gemini provider that talks through the Go SDK. The SDK
// has no search grounding tool, so EnableSearch is ignored.
func NewSDK(opts Options) *SDK {
	if opts.EnableSearch {
		slog.Warn("Search grounding is not available through the Gemini SDK provider; ignoring")
	}
	return &SDK{
		apiKey:      strings.TrimSpace(opts.APIKey),
		model:       opts.Model,
		temperature: opts.Temperature,
	}
}

// Generate returns the first text part of the first candidate.
func (g *SDK) Generate(ctx context.Context, prompt string) (string, error) {
	if g.apiKey == "" {
		return "", &providers.GenerationError{Provider: sdkProviderName, Message: "GOOGLE_API_KEY environment variable not set"}
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return "", &providers.GenerationError{Provider: sdkProviderName, Err: fmt.Errorf("failed to create new gemini client: %w", err)}
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	if g.temperature > 0 {
		model.SetTemperature(float32(g.temperature))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &providers.GenerationError{Provider: sdkProviderName, Err: fmt.Errorf("failed to generate content: %w", err)}
	}

	if len(resp.Candidates) == 0 {
		return "", &providers.GenerationError{Provider: sdkProviderName, Message: noCandidatesMessage}
	}

	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, p := range candidate.Content.Parts {
			if txt, ok := p.(genai.Text); ok && txt != "" {
				return string(txt), nil
			}
		}
	}

	return "", &providers.GenerationError{Provider: sdkProviderName, Message: "no usable candidate output"}
}
