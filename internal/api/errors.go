package api

import (
	"encoding/json"
	"net/http"
)

// envelope is the response shape used by every endpoint.
//
// Success responses carry the payload under data; failures carry a
// human-readable message. Web clients branch on the success flag.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeSuccess writes a success envelope with the given payload.
func writeSuccess(w http.ResponseWriter, status int, data any) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

// writeFailure writes a failure envelope with the given message.
func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// writeBadRequest writes a 400 failure response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeFailure(w, http.StatusBadRequest, message)
}

// writeInternalError writes a 500 failure response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeFailure(w, http.StatusInternalServerError, message)
}
