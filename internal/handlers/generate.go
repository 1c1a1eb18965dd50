package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/laissez-faire/mealplanner/internal/models"
	"github.com/laissez-faire/mealplanner/internal/parser"
	"github.com/laissez-faire/mealplanner/internal/providers"
)

// RequestIDHeader carries the per-request correlation ID.
const RequestIDHeader = "X-Request-ID"

// MaxRequestBytes bounds the size of a generate request body.
const MaxRequestBytes = 64 << 10

// HandleGenerate serves POST /api/generate.
func (h *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()
	w.Header().Set(RequestIDHeader, requestID)
	logger := slog.With("request_id", requestID)

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, ErrorResponse{Error: "Method not allowed", Code: CodeMethodNotAllowed})
		return
	}

	// Fields are read leniently; only a body that is not JSON is rejected.
	var req models.RecipeRequest
	body := http.MaxBytesReader(w, r.Body, MaxRequestBytes)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		logger.Warn("Rejected request body", "err", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Request body too large", Code: CodeRequestTooLarge})
			return
		}
		writeError(w, http.StatusBadRequest, ErrorResponse{Error: "Invalid JSON", Details: err.Error(), Code: CodeInvalidRequest})
		return
	}

	logger.Info("Generating recipes",
		"count", req.Count,
		"people", req.People,
		"diet", req.Diet,
		"kid_friendly", req.KidFriendly,
		"priority", req.Priority,
	)

	recipes, err := h.planner.Plan(r.Context(), req)
	if err != nil {
		status, body := errorResponse(err)
		logger.Error("Recipe generation failed", "code", body.Code, "err", err)
		writeError(w, status, body)
		return
	}
	if recipes == nil {
		recipes = []models.Recipe{}
	}

	writeJSON(w, http.StatusOK, recipes)
}

// errorResponse maps a pipeline error onto the API error body.
func errorResponse(err error) (int, ErrorResponse) {
	var genErr *providers.GenerationError
	var parseErr *parser.ParseError

	switch {
	case errors.As(err, &genErr):
		return http.StatusInternalServerError, ErrorResponse{Error: "API Error", Details: genErr.Details(), Code: CodeGenerationFailed}
	case errors.As(err, &parseErr):
		return http.StatusInternalServerError, ErrorResponse{Error: "AI returned invalid JSON", Code: CodeInvalidModelOutput}
	default:
		return http.StatusInternalServerError, ErrorResponse{Error: "Failed to generate recipes", Code: CodeInternalError}
	}
}
