package utils

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/GlebRadaev/smswallet/pkg/validate"
)

// Response is the error body returned by every endpoint.
type Response struct {
	Error   string                `json:"error"`
	Details []validate.FieldError `json:"details,omitempty"`
}

func RespondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil || status == http.StatusNoContent {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("failed to encode response", zap.Error(err))
	}
}

func RespondWithError(w http.ResponseWriter, status int, message string) {
	RespondWithJSON(w, status, Response{Error: message})
}

func RespondWithValidation(w http.ResponseWriter, details []validate.FieldError) {
	RespondWithJSON(w, http.StatusUnprocessableEntity, Response{Error: "validation failed", Details: details})
}
