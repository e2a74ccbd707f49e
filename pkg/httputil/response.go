package httputil

import (
	"encoding/json"
	"net/http"
)

// Payload carries response fields that sit next to success and message
type Payload map[string]interface{}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteEnvelope writes {"success": ..., "message": ..., ...payload}.
// An empty message is omitted. success and message take precedence over
// payload keys of the same name.
func WriteEnvelope(w http.ResponseWriter, status int, success bool, message string, payload Payload) error {
	body := make(map[string]interface{}, len(payload)+2)
	for k, v := range payload {
		body[k] = v
	}
	body["success"] = success
	if message != "" {
		body["message"] = message
	} else {
		delete(body, "message")
	}
	return WriteJSON(w, status, body)
}

// WriteSuccess writes a success envelope (200 OK)
func WriteSuccess(w http.ResponseWriter, message string, payload Payload) error {
	return WriteEnvelope(w, http.StatusOK, true, message, payload)
}

// WriteCreated writes a success envelope (201 Created)
func WriteCreated(w http.ResponseWriter, message string, payload Payload) error {
	return WriteEnvelope(w, http.StatusCreated, true, message, payload)
}

// WriteFailure writes {"success": false, "message": message} with the given status
func WriteFailure(w http.ResponseWriter, status int, message string) {
	WriteEnvelope(w, status, false, message, nil)
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes an unauthorized error (401)
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusUnauthorized, message)
}

// WriteNotFound writes a not found error (404)
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusNotFound, message)
}

// WriteTooManyRequests writes a rate limit error (429)
func WriteTooManyRequests(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusTooManyRequests, message)
}

// WriteInternalError writes an internal server error (500). message must not carry internals.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusInternalServerError, message)
}

// WriteServiceUnavailable writes a service unavailable error (503)
func WriteServiceUnavailable(w http.ResponseWriter, message string) {
	WriteFailure(w, http.StatusServiceUnavailable, message)
}
