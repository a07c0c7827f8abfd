package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/labelbook/internal/core"
	"github.com/JonMunkholm/labelbook/internal/failure"
	"github.com/JonMunkholm/labelbook/internal/history"
	"github.com/JonMunkholm/labelbook/internal/logging"
	"github.com/JonMunkholm/labelbook/internal/storage"
)

// ErrorResponse is the JSON body of every API error. Code is stable and
// machine-readable; Message and Action are for people.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status of err. fallback applies to errors with
// no specific mapping.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, core.ErrRunNotFound),
		errors.Is(err, history.ErrNotFound),
		errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrRunInProgress):
		return http.StatusConflict
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case failure.Is(err, failure.ConnectionUnavailable):
		return http.StatusServiceUnavailable
	}
	return fallback
}

// respondError logs the technical error with the request id and writes the
// mapped user message.
func respondError(w http.ResponseWriter, r *http.Request, err error, fallback int) {
	status := statusFor(err, fallback)
	msg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeJSONStatus(w, status, ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// badRequest reports a malformed request that never reached the service.
func badRequest(w http.ResponseWriter, message, code string) {
	writeJSONStatus(w, http.StatusBadRequest, ErrorResponse{Error: message, Message: message, Code: code})
}

// writeJSON encodes v with status 200.
func writeJSON(w http.ResponseWriter, v any) {
	writeJSONStatus(w, http.StatusOK, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Headers are already sent.
		logging.FromContext(context.Background()).Error("json encode", "error", err)
	}
}
