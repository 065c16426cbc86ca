package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/tendant/simple-onboarding/internal/httputil"
	"github.com/tendant/simple-onboarding/pkg/domain"
)

type contextKey string

// AccountKey is the context key for the authenticated account.
const AccountKey contextKey = "account"

// Authenticator resolves an access token to a usable account.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (*domain.Account, error)
}

// Auth creates middleware that requires a valid access token for a verified,
// unlocked account. Checks Authorization header first, then falls back to cookie
// for web clients.
func Auth(authn Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, ok := httputil.BearerToken(r)
			if !ok {
				tokenString, ok = httputil.GetAccessTokenFromCookie(r)
			}
			if !ok {
				httputil.JSON(w, http.StatusUnauthorized, httputil.ErrorResponse{
					Error: "missing authorization",
					Code:  domain.KindUnauthorized,
				})
				return
			}

			account, err := authn.Authenticate(r.Context(), tokenString)
			if err != nil {
				httputil.WriteError(w, r, logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), AccountKey, account)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetAccount extracts the authenticated account from the request context.
func GetAccount(ctx context.Context) (*domain.Account, bool) {
	account, ok := ctx.Value(AccountKey).(*domain.Account)
	return account, ok
}

// GetAccountID extracts the authenticated account ID from the request context.
func GetAccountID(ctx context.Context) (uuid.UUID, bool) {
	account, ok := GetAccount(ctx)
	if !ok {
		return uuid.Nil, false
	}
	return account.ID, true
}
