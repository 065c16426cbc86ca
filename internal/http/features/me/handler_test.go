package me

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHandlers_RequireAccount(t *testing.T) {
	handler := NewHandler(nil, nil)

	tests := []struct {
		name    string
		method  string
		handler http.HandlerFunc
	}{
		{"get", http.MethodGet, handler.GetMe},
		{"update", http.MethodPut, handler.UpdateMe},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest(tt.method, "/v1/me", nil))

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("Status code = %d, want %d", rec.Code, http.StatusUnauthorized)
			}
		})
	}
}
