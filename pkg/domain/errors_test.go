package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"conflict", ErrAccountExists, KindConflict},
		{"already verified", ErrAlreadyVerified, KindConflict},
		{"validation", NewValidationError("email", "is required"), KindValidationFailed},
		{"wrapped validation", fmt.Errorf("register: %w", NewValidationError("name", "bad")), KindValidationFailed},
		{"invalid credentials", ErrInvalidCredentials, KindInvalidCredentials},
		{"locked", ErrAccountLocked, KindAccountLocked},
		{"verification required", ErrVerificationRequired, KindVerificationRequired},
		{"invalid code", ErrInvalidOrExpiredCode, KindInvalidOrExpiredCode},
		{"invalid token", ErrInvalidOrExpiredToken, KindInvalidOrExpiredToken},
		{"expired jwt", ErrTokenExpired, KindInvalidOrExpiredToken},
		{"unauthorized", ErrUnauthorized, KindUnauthorized},
		{"wrapped unauthorized", fmt.Errorf("change password: %w", ErrUnauthorized), KindUnauthorized},
		{"unknown", errors.New("connection refused"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	err := &ValidationError{Fields: map[string]string{
		"password": "is too short",
		"email":    "must be a valid email address",
	}}

	want := "validation failed: email: must be a valid email address; password: is too short"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}

	empty := &ValidationError{}
	if empty.Error() != "validation failed" {
		t.Errorf("Error() = %q, want %q", empty.Error(), "validation failed")
	}
}
