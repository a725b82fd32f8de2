package handler

import (
	"encoding/json"
	"net/http"

	"github.com/samrititabalt/supportchat/internal/service"
)

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"error": message,
	})
}

// writeServiceError maps a service failure to a stable error kind plus a
// human-readable reason.
func writeServiceError(w http.ResponseWriter, err error) {
	kind := service.Classify(err)

	status := http.StatusInternalServerError
	message := err.Error()
	switch kind {
	case service.KindNotFound:
		status = http.StatusNotFound
	case service.KindUnauthorized:
		status = http.StatusForbidden
	case service.KindInvalidState:
		status = http.StatusConflict
	case service.KindInsufficientBalance:
		status = http.StatusPaymentRequired
	case service.KindValidation:
		status = http.StatusBadRequest
	default:
		message = "internal error"
	}

	writeJSON(w, status, map[string]string{
		"error":   string(kind),
		"message": message,
	})
}
