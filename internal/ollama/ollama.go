package ollama

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

const providerName = "ollama"

// Ollama is a provider for a local Ollama server
type Ollama struct {
	BaseURL     string
	Model       string
	Temperature float64
	HTTPClient  *http.Client
}

// New returns a new Ollama provider
func New(baseURL, model string, temperature float64) *Ollama {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &Ollama{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		Model:       model,
		Temperature: temperature,
		HTTPClient:  &http.Client{},
	}
}

// Generate runs a non-streaming completion
func (o *Ollama) Generate(ctx context.Context, prompt string) (string, error) {
	requestBody, err := json.Marshal(map[string]interface{}{
		"model":  o.Model,
		"prompt": prompt,
		"stream": false,
		"options": map[string]interface{}{
			"temperature": o.Temperature,
		},
	})
	if err != nil {
		return "", fail(0, "", fmt.Errorf("failed to marshal request body: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, "POST", o.BaseURL+"/api/generate", bytes.NewBuffer(requestBody))
	if err != nil {
		return "", fail(0, "", fmt.Errorf("failed to create new request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")

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
		Response string `json:"response"`
		Error    string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return "", fail(resp.StatusCode, "", fmt.Errorf("failed to decode response body: %w", err))
	}

	if response.Response == "" {
		msg := response.Error
		if msg == "" {
			msg = "empty response returned from Ollama"
		}
		return "", fail(resp.StatusCode, msg, nil)
	}

	return response.Response, nil
}

func fail(status int, msg string, err error) error {
	return &providers.GenerationError{Provider: providerName, StatusCode: status, Message: msg, Err: err}
}
