package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ErrorCode turns a status into a stable snake_case code, e.g. 422 becomes
// "unprocessable_entity".
func ErrorCode(status int) string {
	text := http.StatusText(status)
	if text == "" {
		return "error"
	}
	return strings.ReplaceAll(strings.ToLower(text), " ", "_")
}

// WriteError writes a standardised JSON error response.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg, Code: ErrorCode(status)})
}

// internalErrorBody is written when a response value cannot be encoded.
var internalErrorBody = []byte(`{"error":"internal server error","code":"internal_server_error"}` + "\n")

// WriteJSON writes v as the JSON body with the given status. The body is
// encoded before the status line is sent; if encoding fails the client gets
// a 500 instead.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = internalErrorBody
	} else {
		body = append(body, '\n')
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// Ready returns a GET /ready handler that answers 503 while ping fails.
func Ready(ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			if err := ping(r.Context()); err != nil {
				WriteError(w, http.StatusServiceUnavailable, "storage unavailable")
				return
			}
		}
		Health(w, r)
	}
}
