package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/laissez-faire/mealplanner/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Path  string
	Key   string
	Body  map[string]any
	Count int
}

func newServer(t *testing.T, status int, response string, captured *capturedRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured.Count++
		captured.Path = r.URL.Path
		captured.Key = r.URL.Query().Get("key")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &captured.Body)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGenerateReturnsTextVerbatim(t *testing.T) {
	var captured capturedRequest
	text := "```json\n[{\"id\": 1, \"title\": \"Soup\"}]\n```\n"
	response, err := json.Marshal(map[string]any{
		"candidates": []any{
			map[string]any{"content": map[string]any{"parts": []any{map[string]any{"text": text}}}},
		},
	})
	require.NoError(t, err)
	srv := newServer(t, http.StatusOK, string(response), &captured)

	client := New(Options{APIKey: "secret-key\n", Model: "gemini-2.5-flash", Endpoint: srv.URL})
	got, err := client.Generate(context.Background(), "find recipes")
	require.NoError(t, err)

	assert.Equal(t, text, got, "text must not be cleaned by the client")
	assert.Equal(t, "/v1beta/models/gemini-2.5-flash:generateContent", captured.Path)
	assert.Equal(t, "secret-key", captured.Key)
	assert.Equal(t, 1, captured.Count)

	contents := captured.Body["contents"].([]any)
	require.Len(t, contents, 1)
	parts := contents[0].(map[string]any)["parts"].([]any)
	require.Len(t, parts, 1)
	assert.Equal(t, "find recipes", parts[0].(map[string]any)["text"])
	assert.NotContains(t, captured.Body, "tools")
}

func TestGenerateWithSearchTool(t *testing.T) {
	var captured capturedRequest
	srv := newServer(t, http.StatusOK, `{"candidates":[{"content":{"parts":[{"text":"[]"}]}}]}`, &captured)

	client := New(Options{APIKey: "k", Model: "m", Endpoint: srv.URL, EnableSearch: true, Temperature: 0.4})
	_, err := client.Generate(context.Background(), "p")
	require.NoError(t, err)

	tools, ok := captured.Body["tools"].([]any)
	require.True(t, ok, "expected tools in request body")
	require.Len(t, tools, 1)
	assert.Contains(t, tools[0].(map[string]any), "google_search")
	assert.Equal(t, 0.4, captured.Body["generationConfig"].(map[string]any)["temperature"])
}

func TestGenerateFailures(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		response    string
		wantMessage string
		wantStatus  int
	}{
		{
			name:        "upstream error message",
			status:      http.StatusOK,
			response:    `{"error":{"message":"API key not valid","code":400}}`,
			wantMessage: "API key not valid",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "no candidates generic message",
			status:      http.StatusOK,
			response:    `{"promptFeedback":{"blockReason":"SAFETY"}}`,
			wantMessage: "No candidates returned.",
			wantStatus:  http.StatusOK,
		},
		{
			name:        "non-2xx with error body",
			status:      http.StatusForbidden,
			response:    `{"error":{"message":"permission denied","code":403}}`,
			wantMessage: "permission denied",
			wantStatus:  http.StatusForbidden,
		},
		{
			name:        "non-2xx without body",
			status:      http.StatusBadGateway,
			response:    `upstream exploded`,
			wantMessage: "received non-2xx status code: 502",
			wantStatus:  http.StatusBadGateway,
		},
		{
			name:        "candidate without text",
			status:      http.StatusOK,
			response:    `{"candidates":[{"content":{"parts":[]}}]}`,
			wantMessage: "no usable candidate output",
			wantStatus:  http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured capturedRequest
			srv := newServer(t, tt.status, tt.response, &captured)

			client := New(Options{APIKey: "k", Model: "m", Endpoint: srv.URL})
			_, err := client.Generate(context.Background(), "p")

			var genErr *providers.GenerationError
			require.True(t, errors.As(err, &genErr), "expected GenerationError, got %v", err)
			assert.Equal(t, tt.wantMessage, genErr.Details())
			assert.Equal(t, tt.wantStatus, genErr.StatusCode)
			assert.Equal(t, 1, captured.Count, "the client must not retry")
		})
	}
}

func TestGenerateUnreachableRedactsKey(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL
	srv.Close()

	client := New(Options{APIKey: "super-secret", Model: "m", Endpoint: endpoint})
	_, err := client.Generate(context.Background(), "p")

	var genErr *providers.GenerationError
	require.True(t, errors.As(err, &genErr))
	assert.NotContains(t, err.Error(), "super-secret")
}

func TestGenerateHonorsContext(t *testing.T) {
	var captured capturedRequest
	srv := newServer(t, http.StatusOK, `{}`, &captured)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := New(Options{APIKey: "k", Model: "m", Endpoint: srv.URL})
	_, err := client.Generate(ctx, "p")
	assert.ErrorIs(t, err, context.Canceled)
}
