package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/laissez-faire/mealplanner/internal/providers"
)

func TestGenerate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer key" {
			t.Errorf("Expected bearer key, got %q", got)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"[{\"id\":1}]"}}]}`))
	}))
	defer srv.Close()

	o := New(" key\n", "gpt-4o", 0.2)
	o.URL = srv.URL

	got, err := o.Generate(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got != `[{"id":1}]` {
		t.Errorf("Expected raw content, got %q", got)
	}
}

func TestGenerateErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "non-200", status: http.StatusUnauthorized, body: `{"error":"bad key"}`},
		{name: "no choices", status: http.StatusOK, body: `{"choices":[]}`},
		{name: "bad json", status: http.StatusOK, body: `not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			o := New("key", "gpt-4o", 0)
			o.URL = srv.URL

			_, err := o.Generate(context.Background(), "prompt")
			var genErr *providers.GenerationError
			if !errors.As(err, &genErr) {
				t.Fatalf("Expected GenerationError, got %v", err)
			}
		})
	}
}

func TestGenerateMissingKey(t *testing.T) {
	_, err := New("  ", "gpt-4o", 0).Generate(context.Background(), "prompt")
	var genErr *providers.GenerationError
	if !errors.As(err, &genErr) {
		t.Fatalf("Expected GenerationError, got %v", err)
	}
}
