package httputil

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/tendant/simple-onboarding/pkg/domain"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Error  string            `json:"error"`
	Code   domain.Kind       `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// MessageResponse is the body of replies that only carry a message.
type MessageResponse struct {
	Message string `json:"message"`
}

// JSON writes v as a JSON response.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

// Error writes an error message as a JSON response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// Message writes a message-only JSON response.
func Message(w http.ResponseWriter, status int, message string) {
	JSON(w, status, MessageResponse{Message: message})
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind domain.Kind) int {
	switch kind {
	case domain.KindConflict:
		return http.StatusConflict
	case domain.KindValidationFailed, domain.KindInvalidOrExpiredCode, domain.KindInvalidOrExpiredToken:
		return http.StatusBadRequest
	case domain.KindInvalidCredentials, domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindAccountLocked:
		return http.StatusLocked
	case domain.KindVerificationRequired:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// WriteError renders a service error. Internal errors are logged and replaced with a
// generic message.
func WriteError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	kind := domain.KindOf(err)
	status := StatusFor(kind)

	if kind == domain.KindInternal {
		if logger != nil {
			logger.ErrorContext(r.Context(), "request failed",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path,
			)
		}
		JSON(w, status, ErrorResponse{Error: "internal server error", Code: kind})
		return
	}

	resp := ErrorResponse{Error: err.Error(), Code: kind}
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		resp.Error = "validation failed"
		resp.Fields = verr.Fields
	}
	JSON(w, status, resp)
}

// DecodeJSON decodes the request body into v.
func DecodeJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
