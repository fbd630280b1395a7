package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// APIError is the body of every non-2xx response.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}

// StatusResponse acknowledges mutations that return no entity.
type StatusResponse struct {
	Status string `json:"status"`
}

func errorType(status int) string {
	switch {
	case status == http.StatusNotFound:
		return "not_found_error"
	case status >= 500:
		return "api_error"
	default:
		return "invalid_request_error"
	}
}

func sendError(logger *zap.Logger, w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(ErrorResponse{
		Error: APIError{Message: message, Type: errorType(status)},
	}); err != nil {
		logger.Error("Failed to encode error response", zap.Error(err))
	}
}

func sendJSON(logger *zap.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", zap.Error(err))
	}
}
