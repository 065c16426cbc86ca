package account

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tendant/simple-onboarding/internal/http/middleware"
	"github.com/tendant/simple-onboarding/internal/httputil"
	"github.com/tendant/simple-onboarding/internal/throttle"
	"github.com/tendant/simple-onboarding/pkg/auth"
	"github.com/tendant/simple-onboarding/pkg/domain"
)

// Handler handles registration, verification, login and token endpoints.
type Handler struct {
	logger       *slog.Logger
	service      *auth.AccountService
	limiter      throttle.EmailLimiter
	cookieConfig httputil.CookieConfig
}

// NewHandler creates a new account handler. limiter may be nil.
func NewHandler(logger *slog.Logger, service *auth.AccountService, limiter throttle.EmailLimiter, cookieConfig httputil.CookieConfig) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:       logger,
		service:      service,
		limiter:      limiter,
		cookieConfig: cookieConfig,
	}
}

// RegisterRequest represents a JSON registration request.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyRequest represents a verification request with email and code.
type VerifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// EmailRequest carries a lone email address.
type EmailRequest struct {
	Email string `json:"email"`
}

// LoginRequest represents a login request.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RefreshRequest carries a refresh token for clients that do not use cookies.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// AccountResponse wraps an account with an optional message.
type AccountResponse struct {
	Message string               `json:"message,omitempty"`
	User    domain.PublicAccount `json:"user"`
}

// LoginResponse is returned by a successful login.
type LoginResponse struct {
	Message string               `json:"message"`
	User    domain.PublicAccount `json:"user"`
	*domain.TokenPair
}

// Register creates an account. It accepts JSON or a multipart form with an optional
// profileImage file.
// POST /v1/auth/register
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput

	if httputil.IsMultipart(r) {
		img, err := httputil.ReadImage(r, httputil.ProfileImageField, h.service.Validator().MaxImageSize())
		if err != nil {
			h.writeFormError(w, r, err)
			return
		}
		in = auth.RegisterInput{
			Name:         r.FormValue("name"),
			Email:        r.FormValue("email"),
			Password:     r.FormValue("password"),
			ProfileImage: img,
		}
	} else {
		var req RegisterRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.BadRequest(w, err)
			return
		}
		in = auth.RegisterInput{Name: req.Name, Email: req.Email, Password: req.Password}
	}

	account, err := h.service.Register(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, AccountResponse{
		Message: "Registration successful. Please check your email for the verification code.",
		User:    *account,
	})
}

// VerifyCode verifies an account with the code alone.
// GET /v1/auth/verify/{code}
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	h.verify(w, r, auth.VerifyInput{Code: chi.URLParam(r, "code")})
}

// Verify verifies an account with its email and code.
// POST /v1/auth/verify
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err)
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		httputil.WriteError(w, r, h.logger, domain.NewValidationError("email", "email is required"))
		return
	}
	h.verify(w, r, auth.VerifyInput{Email: req.Email, Code: req.Code})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request, in auth.VerifyInput) {
	result, err := h.service.Verify(r.Context(), in)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	if result.AlreadyVerified {
		httputil.Message(w, http.StatusOK, "Email is already verified.")
		return
	}
	httputil.JSON(w, http.StatusOK, AccountResponse{Message: "Email verified successfully.", User: *result.Account})
}

// ResendVerification issues a new verification code.
// POST /v1/auth/resend-verification
func (h *Handler) ResendVerification(w http.ResponseWriter, r *http.Request) {
	var req EmailRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err)
		return
	}

	if !h.allow(r.Context(), throttle.ActionVerificationResend, req.Email) {
		httputil.Error(w, http.StatusTooManyRequests, "too many verification requests for this email, please try again later")
		return
	}

	if err := h.service.ResendVerification(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.Message(w, http.StatusOK, auth.ResendVerificationMessage)
}

// Login authenticates with email and password.
// POST /v1/auth/login
//
// Tokens are always returned in the body. Web clients additionally get HttpOnly
// cookies; mobile clients (X-Client-Type: mobile) do not.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err)
		return
	}

	result, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	if !httputil.IsMobileClient(r) {
		httputil.SetAuthCookies(w,
			result.Tokens.AccessToken,
			result.Tokens.RefreshToken,
			h.service.AccessTokenTTL(),
			h.service.RefreshTokenTTL(),
			h.cookieConfig,
		)
	}

	httputil.JSON(w, http.StatusOK, LoginResponse{
		Message:   "Login successful.",
		User:      result.Account,
		TokenPair: result.Tokens,
	})
}

// Refresh issues a new access token. The refresh token is read from the body, falling
// back to the refresh_token cookie.
// POST /v1/auth/refresh
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := httputil.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httputil.BadRequest(w, err)
		return
	}

	token := strings.TrimSpace(req.RefreshToken)
	if token == "" {
		if cookie, ok := httputil.GetRefreshTokenFromCookie(r); ok {
			token = cookie
		}
	}
	if token == "" {
		httputil.WriteError(w, r, h.logger, domain.NewValidationError("refresh_token", "refresh_token is required"))
		return
	}

	tokens, err := h.service.Refresh(r.Context(), token)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}

	if !httputil.IsMobileClient(r) {
		httputil.SetAccessCookie(w, tokens.AccessToken, h.service.AccessTokenTTL(), h.cookieConfig)
	}
	httputil.JSON(w, http.StatusOK, tokens)
}

// Logout clears the auth cookies. Tokens are stateless and stay valid until they expire.
// POST /v1/auth/logout
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if account, ok := middleware.GetAccount(r.Context()); ok {
		h.service.Logout(r.Context(), account)
	}
	httputil.ClearAuthCookies(w, h.cookieConfig)
	httputil.Message(w, http.StatusOK, "Logged out successfully.")
}

func (h *Handler) allow(ctx context.Context, action, email string) bool {
	if h.limiter == nil {
		return true
	}
	return h.limiter.Allow(ctx, action, auth.NormalizeEmail(email))
}

func (h *Handler) writeFormError(w http.ResponseWriter, r *http.Request, err error) {
	if domain.KindOf(err) == domain.KindValidationFailed {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.BadRequest(w, err)
}
