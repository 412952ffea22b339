package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// errorResponse is the uniform failure body: { "message": "..." }.
type errorResponse struct {
	Message string `json:"message"`
}

func respondJSON(w http.ResponseWriter, log *slog.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error("failed to encode response", slog.Any("error", err))
	}
}

func respondError(w http.ResponseWriter, log *slog.Logger, status int, message string) {
	respondJSON(w, log, status, errorResponse{Message: message})
}
