package api

import (
	"encoding/json"
	"net/http"

	"github.com/tcriess/gift-circle/engine"
	"github.com/tcriess/gift-circle/globals"
)

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps the engine error taxonomy to HTTP status codes.
// Internal errors are logged but not leaked to the client.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	message := "internal error"
	switch engine.Classify(err) {
	case engine.KindValidation:
		status = http.StatusBadRequest
		message = err.Error()
	case engine.KindAuthorization:
		status = http.StatusForbidden
		message = err.Error()
	case engine.KindConflict:
		status = http.StatusConflict
		message = err.Error()
	case engine.KindNotFound:
		status = http.StatusNotFound
		message = err.Error()
	default:
		globals.AppLogger.Error("internal error", "error", err)
	}
	writeJSON(w, status, errorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		globals.AppLogger.Error("could not encode response", "error", err)
	}
}

func writeUnauthorized(w http.ResponseWriter) {
	writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "no identity"})
}
