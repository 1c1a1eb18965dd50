package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/laissez-faire/mealplanner/internal/providers"
)

const (
	providerName = "openai"

	// DefaultURL is the chat completions endpoint.
	DefaultURL = "https://api.openai.com/v1/chat/completions"
)

// OpenAI is a provider for OpenAI chat completions
type OpenAI struct {
	APIKey      string
	Model       string
	Temperature float64
	URL         string
	HTTPClient  *http.Client
}

// New returns a new OpenAI provider
func New(apiKey, model string, temperature float64) *OpenAI {
	return &OpenAI{
		APIKey:      strings.TrimSpace(apiKey),
		Model:       model,
		Temperature: temperature,
		URL:         DefaultURL,
		HTTPClient:  &http.Client{},
	}
}

// Generate sends the prompt as a single user message
func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	if o.APIKey == "" {
		return "", fail(0, "OPENAI_API_KEY environment variable not set", nil)
	}

	requestBody, err := json.Marshal(map[string]interface{}{
		"model": o.Model,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": prompt,
			},
		},
		"temperature": o.Temperature,
	})
	if err != nil {
		return "", fail(0, "", fmt.Errorf("failed to marshal request body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.URL, bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fail(0, "", fmt.Errorf("failed to create new request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.APIKey)

	resp, err := o.HTTPClient.Do(req)
	if err != nil {
		return "", fail(0, "", fmt.Errorf("failed to send request: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fail(resp.StatusCode, fmt.Sprintf("received non-200 status code: %d - %s", resp.StatusCode, string(body)), nil)
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fail(resp.StatusCode, "", fmt.Errorf("failed to decode response body: %w", err))
	}

	if len(response.Choices) == 0 || response.Choices[0].Message.Content == "" {
		return "", fail(resp.StatusCode, "no choices returned from OpenAI", nil)
	}

	return response.Choices[0].Message.Content, nil
}

func fail(status int, msg string, err error) error {
	return &providers.GenerationError{Provider: providerName, StatusCode: status, Message: msg, Err: err}
}
