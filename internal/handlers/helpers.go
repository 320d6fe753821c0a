package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"slidecraft-backend/internal/controller"
	"slidecraft-backend/internal/models"
	"slidecraft-backend/internal/services"
)

// Shared helpers

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get("X-Request-ID"),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validErr *services.ValidationError
		nfErr    *services.NotFoundError
		credErr  *services.CredentialError
		genErr   *services.GenerationError
		imgErr   *services.ImageGenerationError
		anErr    *services.AnalysisError
	)

	switch {
	case errors.Is(err, controller.ErrBusy):
		writeJSON(w, http.StatusConflict, errorResp("BUSY", "A generation is already in progress", r))
	case errors.Is(err, controller.ErrSelectionPending):
		writeJSON(w, http.StatusPreconditionRequired, errorResp("KEY_REQUIRED", "Select an API key to continue", r))
	case errors.Is(err, controller.ErrNoDeck):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No slide is selected", r))
	case errors.As(err, &validErr):
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", validErr.Fields, r))
	case errors.As(err, &nfErr):
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", nfErr.Message, r))
	case errors.As(err, &credErr):
		writeJSON(w, http.StatusPreconditionRequired, errorResp("KEY_REQUIRED", credErr.Message, r))
	case errors.As(err, &imgErr):
		code := "GENERATION_FAILED"
		if imgErr.StaleCredential {
			code = "KEY_REQUIRED"
		}
		writeJSON(w, http.StatusBadGateway, errorResp(code, imgErr.Message, r))
	case errors.As(err, &genErr):
		writeJSON(w, http.StatusBadGateway, errorResp("GENERATION_FAILED", genErr.Message, r))
	case errors.As(err, &anErr):
		writeJSON(w, http.StatusBadGateway, errorResp("GENERATION_FAILED", anErr.Message, r))
	default:
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}
