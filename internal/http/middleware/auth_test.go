package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/tendant/simple-onboarding/internal/httputil"
	"github.com/tendant/simple-onboarding/pkg/domain"
)

type stubAuthenticator struct {
	tokens map[string]*domain.Account
	err    error
}

func (s stubAuthenticator) Authenticate(_ context.Context, token string) (*domain.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	if a, ok := s.tokens[token]; ok {
		return a, nil
	}
	return nil, domain.ErrUnauthorized
}

func TestAuth(t *testing.T) {
	account := &domain.Account{ID: uuid.New(), Email: "jane@example.com", Verified: true}
	authn := stubAuthenticator{tokens: map[string]*domain.Account{"good": account}}

	tests := []struct {
		name       string
		authn      Authenticator
		header     string
		cookie     string
		wantStatus int
		wantCode   domain.Kind
	}{
		{name: "bearer token", authn: authn, header: "Bearer good", wantStatus: http.StatusOK},
		{name: "cookie token", authn: authn, cookie: "good", wantStatus: http.StatusOK},
		{name: "missing token", authn: authn, wantStatus: http.StatusUnauthorized, wantCode: domain.KindUnauthorized},
		{name: "unknown token", authn: authn, header: "Bearer bad", wantStatus: http.StatusUnauthorized, wantCode: domain.KindUnauthorized},
		{name: "basic auth", authn: authn, header: "Basic good", wantStatus: http.StatusUnauthorized, wantCode: domain.KindUnauthorized},
		{
			name:       "unverified",
			authn:      stubAuthenticator{err: domain.ErrVerificationRequired},
			header:     "Bearer good",
			wantStatus: http.StatusForbidden,
			wantCode:   domain.KindVerificationRequired,
		},
		{
			name:       "locked",
			authn:      stubAuthenticator{err: domain.ErrAccountLocked},
			header:     "Bearer good",
			wantStatus: http.StatusLocked,
			wantCode:   domain.KindAccountLocked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got *domain.Account
			handler := Auth(tt.authn, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got, _ = GetAccount(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "access_token", Value: tt.cookie})
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantStatus == http.StatusOK {
				if got == nil || got.ID != account.ID {
					t.Errorf("account in context = %v, want %v", got, account.ID)
				}
				return
			}

			var resp httputil.ErrorResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", resp.Code, tt.wantCode)
			}
		})
	}
}

func TestGetAccountID_Missing(t *testing.T) {
	if _, ok := GetAccountID(context.Background()); ok {
		t.Error("GetAccountID should report false without an account")
	}
}
