package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/laissez-faire/mealplanner/internal/providers"
)

const (
	providerName = "gemini"

	// DefaultEndpoint is the public Generative Language API.
	DefaultEndpoint = "https://generativelanguage.googleapis.com"

	noCandidatesMessage = "No candidates returned."
)

// Options configures a Client.
type Options struct {
	APIKey       string
	Model        string
	Endpoint     string
	EnableSearch bool
	Temperature  float64
	HTTPClient   *http.Client
}

// Client calls the generateContent REST method.
type Client struct {
	apiKey       string
	model        string
	endpoint     string
	enableSearch bool
	temperature  float64
	httpClient   *http.Client
}

// New returns a Gemini REST client.
func New(opts Options) *Client {
	endpoint := strings.TrimRight(opts.Endpoint, "/")
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	return &Client{
		apiKey:       strings.TrimSpace(opts.APIKey),
		model:        opts.Model,
		endpoint:     endpoint,
		enableSearch: opts.EnableSearch,
		temperature:  opts.Temperature,
		httpClient:   httpClient,
	}
}

type part struct {
	Text string `json:"text,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type tool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	Tools            []tool            `json:"tools,omitempty"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content *content `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Generate sends prompt as the only content part and returns the first
// candidate's first text part verbatim. It never retries.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	body := generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	}
	if c.enableSearch {
		body.Tools = []tool{{GoogleSearch: &struct{}{}}}
	}
	if c.temperature > 0 {
		body.GenerationConfig = &generationConfig{Temperature: c.temperature}
	}

	requestBody, err := json.Marshal(body)
	if err != nil {
		return "", c.fail(0, "", fmt.Errorf("failed to marshal request body: %w", err))
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s",
		c.endpoint, url.PathEscape(c.model), url.QueryEscape(c.apiKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(requestBody))
	if err != nil {
		return "", c.fail(0, "", fmt.Errorf("failed to create new request: %w", redact(err)))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", c.fail(0, "", fmt.Errorf("failed to send request: %w", redact(err)))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", c.fail(resp.StatusCode, "", fmt.Errorf("failed to read response body: %w", err))
	}

	var result generateResponse
	decodeErr := json.Unmarshal(data, &result)

	upstreamMessage := ""
	if decodeErr == nil && result.Error != nil {
		upstreamMessage = result.Error.Message
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.Error("Gemini returned non-2xx status", "status", resp.StatusCode, "body", truncate(string(data), 512))
		msg := upstreamMessage
		if msg == "" {
			msg = fmt.Sprintf("received non-2xx status code: %d", resp.StatusCode)
		}
		return "", c.fail(resp.StatusCode, msg, nil)
	}

	if decodeErr != nil {
		return "", c.fail(resp.StatusCode, "", fmt.Errorf("failed to decode response body: %w", decodeErr))
	}

	if len(result.Candidates) == 0 {
		slog.Error("Gemini returned no candidates", "body", truncate(string(data), 512))
		msg := upstreamMessage
		if msg == "" {
			msg = noCandidatesMessage
		}
		return "", c.fail(resp.StatusCode, msg, nil)
	}

	candidate := result.Candidates[0]
	if candidate.Content != nil {
		for _, p := range candidate.Content.Parts {
			if p.Text != "" {
				return p.Text, nil
			}
		}
	}

	return "", c.fail(resp.StatusCode, "no usable candidate output", nil)
}

func (c *Client) fail(status int, msg string, err error) error {
	return &providers.GenerationError{
		Provider:   providerName,
		StatusCode: status,
		Message:    msg,
		Err:        err,
	}
}

// redact drops the request URL, which carries the API key, from transport
// errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
