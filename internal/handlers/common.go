package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/laissez-faire/mealplanner/internal/models"
)

// Planner is the pipeline behind the HTTP API.
type Planner interface {
	Plan(ctx context.Context, req models.RecipeRequest) ([]models.Recipe, error)
}

type Handler struct {
	planner Planner
}

func New(planner Planner) *Handler {
	return &Handler{planner: planner}
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
	Code    string `json:"code"`
}

// Error codes
const (
	CodeGenerationFailed   = "generation_failed"
	CodeInvalidModelOutput = "invalid_model_output"
	CodeInternalError      = "internal_error"
	CodeInvalidRequest     = "invalid_request"
	CodeRequestTooLarge    = "request_too_large"
	CodeMethodNotAllowed   = "method_not_allowed"
	CodeRateLimited        = "rate_limited"
)

// Response helpers
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("Unable to encode JSON response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, body ErrorResponse) {
	writeJSON(w, status, body)
}
