package password

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestChangePassword_RequiresAccount(t *testing.T) {
	handler := NewHandler(nil, nil, nil)

	req := httptest.NewRequest(http.MethodPut, "/v1/me/password", bytes.NewBufferString(`{}`))
	rec := httptest.NewRecorder()
	handler.ChangePassword(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestDecodeErrors(t *testing.T) {
	handler := NewHandler(nil, nil, nil)

	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"forgot password", handler.ForgotPassword},
		{"reset password", handler.ResetPassword},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(`{invalid}`))
			rec := httptest.NewRecorder()
			tt.handler(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("Status code = %d, want %d", rec.Code, http.StatusBadRequest)
			}
		})
	}
}
