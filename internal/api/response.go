package api

import (
	"encoding/json"
	"net/http"

	interrors "github.com/streed/synapse/internal/errors"
	"github.com/streed/synapse/internal/logger"
)

// envelope is merged into every JSON body next to the success flag.
type envelope map[string]any

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode JSON response: %v", err)
	}
}

func writeSuccess(w http.ResponseWriter, statusCode int, fields envelope) {
	body := envelope{"success": true}
	for k, v := range fields {
		body[k] = v
	}
	writeJSON(w, statusCode, body)
}

// writeError answers with the status that matches the error kind.
func writeError(w http.ResponseWriter, err error) {
	status := interrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed: %v", err)
	}
	writeJSON(w, status, envelope{
		"success": false,
		"error":   err.Error(),
	})
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return interrors.Validation(err, "body", "invalid JSON")
	}
	return nil
}
