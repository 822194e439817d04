package utils

import (
	"encoding/json"
	"net/http"

	"github.com/username/divitrack/backend/src/logger"
)

// JSONErrorResponse is the standard error payload for all API endpoints.
type JSONErrorResponse struct {
	Error string `json:"error"`
}

// SendJSONError writes a JSON error response with the given status code.
func SendJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(JSONErrorResponse{Error: message}); err != nil {
		logger.L.Error("Failed to write JSON error response", "error", err)
	}
}
