package api

import (
	"encoding/json"
	"net/http"
)

// errorResponse is the standard error body. The Errors map carries the
// field-level validation report when one exists.
type errorResponse struct {
	Message string              `json:"message"`
	Errors  map[string][]string `json:"errors,omitempty"`
}

// okResponse is the standard acknowledgement body for endpoints with no other
// payload.
type okResponse struct {
	OK bool `json:"ok"`
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Errorf("unable to encode the response body: %s", err.Error())
	}
}

// writeError writes a standard error response.
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, errorResponse{Message: message})
}

// writeValidationError writes a rejected-payload response with the field-level
// error report.
func writeValidationError(w http.ResponseWriter, report map[string][]string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Message: "Validation error", Errors: report})
}

// writeInternalError logs the underlying error and writes an opaque 500 response.
func writeInternalError(w http.ResponseWriter, err error) {
	log.Errorf("request failed: %s", err.Error())
	writeError(w, http.StatusInternalServerError, "internal server error")
}
