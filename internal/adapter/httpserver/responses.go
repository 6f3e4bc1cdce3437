// Package httpserver contains HTTP handlers and middleware.
//
// It exposes the prompt service JSON API: model-fallback completions, the saved
// prompt history, markdown rendering and the embedded single-page shell.
package httpserver

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/fairyhunter13/futureblink-ai/internal/domain"
)

// errorEnvelope is the body of every failed API call. Internal details never reach it.
type errorEnvelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the domain error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// writeError logs err with the request logger and answers with the user-safe message.
// An empty message falls back to the status text.
func writeError(w http.ResponseWriter, r *http.Request, err error, message string) {
	code := statusFor(err)
	if message == "" {
		message = http.StatusText(code)
	}
	lg := LoggerFrom(r)
	if code >= http.StatusInternalServerError {
		lg.Error("request failed", slog.Int("status", code), slog.Any("error", err))
	} else {
		lg.Warn("request rejected", slog.Int("status", code), slog.Any("error", err))
	}
	writeJSON(w, code, errorEnvelope{Success: false, Error: message})
}
