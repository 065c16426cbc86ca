package domain

import (
	"errors"
	"sort"
	"strings"
)

// Kind classifies an error for the transport layer.
type Kind string

const (
	KindConflict              Kind = "conflict"
	KindValidationFailed      Kind = "validation_failed"
	KindInvalidCredentials    Kind = "invalid_credentials"
	KindAccountLocked         Kind = "account_locked"
	KindVerificationRequired  Kind = "verification_required"
	KindInvalidOrExpiredCode  Kind = "invalid_or_expired_code"
	KindInvalidOrExpiredToken Kind = "invalid_or_expired_token"
	KindUnauthorized          Kind = "unauthorized"
	KindInternal              Kind = "internal"
)

// Account errors
var (
	ErrAccountNotFound       = errors.New("account not found")
	ErrAccountExists         = errors.New("account with this email already exists")
	ErrAlreadyVerified       = errors.New("account is already verified")
	ErrVerificationCodeTaken = errors.New("verification code already in use")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrAccountLocked         = errors.New("account is temporarily locked due to too many failed login attempts")
	ErrVerificationRequired  = errors.New("email verification required")
	ErrInvalidOrExpiredCode  = errors.New("invalid or expired verification code")
	ErrInvalidOrExpiredToken = errors.New("invalid or expired token")
	ErrUnauthorized          = errors.New("unauthorized")
)

// Token errors
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// ValidationError carries field-level input errors.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError creates a validation error for a single field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// KindOf maps an error to its kind. Unknown errors are internal.
func KindOf(err error) Kind {
	var verr *ValidationError
	switch {
	case err == nil:
		return ""
	case errors.As(err, &verr):
		return KindValidationFailed
	case errors.Is(err, ErrAccountExists), errors.Is(err, ErrAlreadyVerified):
		return KindConflict
	case errors.Is(err, ErrInvalidCredentials):
		return KindInvalidCredentials
	case errors.Is(err, ErrAccountLocked):
		return KindAccountLocked
	case errors.Is(err, ErrVerificationRequired):
		return KindVerificationRequired
	case errors.Is(err, ErrInvalidOrExpiredCode):
		return KindInvalidOrExpiredCode
	case errors.Is(err, ErrInvalidOrExpiredToken), errors.Is(err, ErrTokenExpired), errors.Is(err, ErrTokenInvalid):
		return KindInvalidOrExpiredToken
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrAccountNotFound):
		return KindUnauthorized
	default:
		return KindInternal
	}
}
