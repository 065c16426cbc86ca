package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tendant/simple-onboarding/pkg/domain"
)

func TestWriteError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
		wantFields bool
	}{
		{"conflict", domain.ErrAccountExists, http.StatusConflict, domain.ErrAccountExists.Error(), false},
		{"already verified", domain.ErrAlreadyVerified, http.StatusConflict, domain.ErrAlreadyVerified.Error(), false},
		{"validation", domain.NewValidationError("email", "email is required"), http.StatusBadRequest, "validation failed", true},
		{"wrapped validation", fmt.Errorf("register: %w", domain.NewValidationError("name", "bad")), http.StatusBadRequest, "validation failed", true},
		{"invalid credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, domain.ErrInvalidCredentials.Error(), false},
		{"locked", domain.ErrAccountLocked, http.StatusLocked, domain.ErrAccountLocked.Error(), false},
		{"unverified", domain.ErrVerificationRequired, http.StatusForbidden, domain.ErrVerificationRequired.Error(), false},
		{"bad code", domain.ErrInvalidOrExpiredCode, http.StatusBadRequest, domain.ErrInvalidOrExpiredCode.Error(), false},
		{"bad token", domain.ErrInvalidOrExpiredToken, http.StatusBadRequest, domain.ErrInvalidOrExpiredToken.Error(), false},
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized, domain.ErrUnauthorized.Error(), false},
		{"internal", errors.New("pq: connection refused"), http.StatusInternalServerError, "internal server error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
			rec := httptest.NewRecorder()

			WriteError(rec, req, nil, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}

			var resp ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Error != tt.wantError {
				t.Errorf("error = %q, want %q", resp.Error, tt.wantError)
			}
			if (len(resp.Fields) > 0) != tt.wantFields {
				t.Errorf("fields = %v, wantFields %v", resp.Fields, tt.wantFields)
			}
		})
	}
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{"Bearer abc.def", "abc.def", true},
		{"bearer abc", "abc", true},
		{"Basic dXNlcg==", "", false},
		{"Bearer ", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		got, ok := BearerToken(req)
		if got != tt.want || ok != tt.ok {
			t.Errorf("BearerToken(%q) = %q, %v; want %q, %v", tt.header, got, ok, tt.want, tt.ok)
		}
	}
}

func TestAuthCookies(t *testing.T) {
	rec := httptest.NewRecorder()
	SetAuthCookies(rec, "access", "refresh", time.Minute, time.Hour, DefaultCookieConfig())

	req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", nil)
	paths := map[string]string{}
	for _, c := range rec.Result().Cookies() {
		if !c.HttpOnly {
			t.Errorf("cookie %s should be HttpOnly", c.Name)
		}
		paths[c.Name] = c.Path
		req.AddCookie(c)
	}
	if paths["access_token"] != "/" || paths["refresh_token"] != RefreshCookiePath {
		t.Errorf("cookie paths = %v", paths)
	}

	if tok, ok := GetAccessTokenFromCookie(req); !ok || tok != "access" {
		t.Errorf("access cookie = %q, %v", tok, ok)
	}
	if tok, ok := GetRefreshTokenFromCookie(req); !ok || tok != "refresh" {
		t.Errorf("refresh cookie = %q, %v", tok, ok)
	}

	rec = httptest.NewRecorder()
	ClearAuthCookies(rec, DefaultCookieConfig())
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge >= 0 {
			t.Errorf("cookie %s should expire, MaxAge = %d", c.Name, c.MaxAge)
		}
		if c.Path != paths[c.Name] {
			t.Errorf("cookie %s cleared on path %q, set on %q", c.Name, c.Path, paths[c.Name])
		}
	}
}

func TestIsMobileClient(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/auth/login", nil)
	if IsMobileClient(req) {
		t.Error("request without X-Client-Type reported as mobile")
	}
	req.Header.Set("X-Client-Type", "Mobile")
	if !IsMobileClient(req) {
		t.Error("X-Client-Type: Mobile not reported as mobile")
	}
}
