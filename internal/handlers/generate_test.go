package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/laissez-faire/mealplanner/internal/models"
	"github.com/laissez-faire/mealplanner/internal/parser"
	"github.com/laissez-faire/mealplanner/internal/providers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlanner struct {
	recipes []models.Recipe
	err     error
	got     models.RecipeRequest
	called  bool
}

func (f *fakePlanner) Plan(_ context.Context, req models.RecipeRequest) ([]models.Recipe, error) {
	f.called = true
	f.got = req
	return f.recipes, f.err
}

func post(h http.Handler, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/generate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleGenerate(t *testing.T) {
	var recipes []models.Recipe
	require.NoError(t, json.Unmarshal([]byte(`[{"id":1,"title":"Tacos","rating":"4.8"}]`), &recipes))
	image := "https://cdn.example.com/tacos.jpg"
	recipes[0].SetImageURL(&image)

	planner := &fakePlanner{recipes: recipes}
	h := New(planner)

	rec := post(http.HandlerFunc(h.HandleGenerate),
		`{"count":3,"people":4,"diet":"vegan","kidFriendly":true,"priority":"Fancier Meals"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `[{"id":1,"title":"Tacos","rating":"4.8","imageUrl":"https://cdn.example.com/tacos.jpg"}]`, rec.Body.String())

	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)

	assert.Equal(t, models.RecipeRequest{
		Count:       3,
		People:      4,
		Diet:        "vegan",
		KidFriendly: true,
		Priority:    models.PriorityFancierMeals,
	}, planner.got)
}

func TestHandleGenerateMissingFieldsPassThrough(t *testing.T) {
	planner := &fakePlanner{}
	h := New(planner)

	rec := post(http.HandlerFunc(h.HandleGenerate), `{}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "[]\n", rec.Body.String())
	assert.Equal(t, models.RecipeRequest{}, planner.got)
}

func TestHandleGenerateBadBody(t *testing.T) {
	for _, body := range []string{"", "not json", `{"count":`, `{"count":3,}`} {
		planner := &fakePlanner{}
		rec := post(http.HandlerFunc(New(planner).HandleGenerate), body)

		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
		assert.Equal(t, CodeInvalidRequest, decodeError(t, rec).Code)
		assert.False(t, planner.called)
	}
}

func TestHandleGenerateLenientFields(t *testing.T) {
	tests := []struct {
		name string
		body string
		want models.RecipeRequest
	}{
		{name: "numeric priority", body: `{"count":2,"people":2,"priority":1}`, want: models.RecipeRequest{Count: 2, People: 2}},
		{name: "string kidFriendly", body: `{"kidFriendly":"yes"}`, want: models.RecipeRequest{KidFriendly: true}},
		{name: "float count", body: `{"count":3.0,"people":4}`, want: models.RecipeRequest{Count: 3, People: 4}},
		{name: "string count", body: `{"count":"three"}`, want: models.RecipeRequest{}},
		{name: "array body", body: `[]`, want: models.RecipeRequest{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			planner := &fakePlanner{}
			rec := post(http.HandlerFunc(New(planner).HandleGenerate), tt.body)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.True(t, planner.called)
			assert.Equal(t, tt.want, planner.got)
		})
	}
}

func TestHandleGenerateBodyTooLarge(t *testing.T) {
	planner := &fakePlanner{}
	body := `{"diet":"` + strings.Repeat("a", MaxRequestBytes) + `"}`

	rec := post(http.HandlerFunc(New(planner).HandleGenerate), body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	assert.Equal(t, CodeRequestTooLarge, decodeError(t, rec).Code)
	assert.False(t, planner.called)
}

func TestHandleGenerateMethodNotAllowed(t *testing.T) {
	h := New(&fakePlanner{})
	req := httptest.NewRequest(http.MethodGet, "/api/generate", nil)
	rec := httptest.NewRecorder()

	h.HandleGenerate(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, http.MethodPost, rec.Header().Get("Allow"))
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestHandleGenerateErrors(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		message string
		details string
		code    string
	}{
		{
			name:    "generation",
			err:     &providers.GenerationError{Provider: "gemini", StatusCode: 400, Message: "API key not valid. Please pass a valid API key."},
			message: "API Error",
			details: "API key not valid. Please pass a valid API key.",
			code:    CodeGenerationFailed,
		},
		{
			name:    "wrapped generation",
			err:     fmt.Errorf("plan: %w", &providers.GenerationError{Provider: "ollama", Err: errors.New("connection refused")}),
			message: "API Error",
			details: "connection refused",
			code:    CodeGenerationFailed,
		},
		{
			name:    "parse",
			err:     &parser.ParseError{Raw: "Sorry!"},
			message: "AI returned invalid JSON",
			code:    CodeInvalidModelOutput,
		},
		{
			name:    "other",
			err:     errors.New("boom"),
			message: "Failed to generate recipes",
			code:    CodeInternalError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New(&fakePlanner{err: tt.err})
			rec := post(http.HandlerFunc(h.HandleGenerate), `{"count":1,"people":1}`)

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			body := decodeError(t, rec)
			assert.Equal(t, tt.message, body.Error)
			assert.Equal(t, tt.details, body.Details)
			assert.Equal(t, tt.code, body.Code)
		})
	}
}

func TestErrorBodyOmitsEmptyDetails(t *testing.T) {
	h := New(&fakePlanner{err: &parser.ParseError{Raw: "x"}})
	rec := post(http.HandlerFunc(h.HandleGenerate), `{}`)

	assert.JSONEq(t, `{"error":"AI returned invalid JSON","code":"invalid_model_output"}`, rec.Body.String())
}

func TestRateLimit(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := RateLimit(0.001, 2, next)

	codes := make([]int, 3)
	for i := range codes {
		codes[i] = post(h, `{}`).Code
	}
	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)

	rec := post(h, `{}`)
	assert.Equal(t, CodeRateLimited, decodeError(t, rec).Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRateLimitDisabled(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	h := RateLimit(0, 0, next)

	for range 10 {
		assert.Equal(t, http.StatusNoContent, post(h, `{}`).Code)
	}
}
