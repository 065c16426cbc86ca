package password

import (
	"log/slog"
	"net/http"

	"github.com/tendant/simple-onboarding/internal/http/middleware"
	"github.com/tendant/simple-onboarding/internal/httputil"
	"github.com/tendant/simple-onboarding/internal/throttle"
	"github.com/tendant/simple-onboarding/pkg/auth"
	"github.com/tendant/simple-onboarding/pkg/domain"
)

// Handler handles password reset, change and policy endpoints.
type Handler struct {
	logger  *slog.Logger
	service *auth.AccountService
	limiter throttle.EmailLimiter
}

// NewHandler creates a new password handler. limiter may be nil.
func NewHandler(logger *slog.Logger, service *auth.AccountService, limiter throttle.EmailLimiter) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:  logger,
		service: service,
		limiter: limiter,
	}
}

// ForgotPasswordRequest represents a password reset request.
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// ResetPasswordRequest represents a password reset.
type ResetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// ChangePasswordRequest represents a password change by a signed-in account.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// PolicyResponse describes the password policy.
type PolicyResponse struct {
	MinLength        int      `json:"min_length"`
	MaxLength        int      `json:"max_length"`
	MaxBytes         int      `json:"max_bytes,omitempty"`
	RequireUppercase bool     `json:"require_uppercase"`
	RequireLowercase bool     `json:"require_lowercase"`
	RequireNumber    bool     `json:"require_number"`
	RequireSpecial   bool     `json:"require_special"`
	Requirements     []string `json:"requirements"`
	Description      string   `json:"description,omitempty"`
}

// ForgotPassword sends a reset link if the account exists. The reply is identical
// either way.
// POST /v1/auth/forgot-password
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err)
		return
	}

	if h.limiter != nil && !h.limiter.Allow(r.Context(), throttle.ActionPasswordReset, auth.NormalizeEmail(req.Email)) {
		httputil.Error(w, http.StatusTooManyRequests, "too many password reset requests for this email, please try again later")
		return
	}

	if err := h.service.ForgotPassword(r.Context(), req.Email); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.Message(w, http.StatusOK, auth.ForgotPasswordMessage)
}

// ResetPassword sets a new password using a reset token.
// POST /v1/auth/reset-password
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err)
		return
	}

	if err := h.service.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.Message(w, http.StatusOK, "Password reset successfully. You can now log in with your new password.")
}

// ChangePassword replaces the password of the signed-in account.
// PUT /v1/me/password
func (h *Handler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		httputil.WriteError(w, r, h.logger, domain.ErrUnauthorized)
		return
	}

	var req ChangePasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err)
		return
	}

	if err := h.service.ChangePassword(r.Context(), accountID, req.CurrentPassword, req.NewPassword); err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.Message(w, http.StatusOK, "Password changed successfully.")
}

// Policy returns the active password requirements.
// GET /v1/auth/password-policy
func (h *Handler) Policy(w http.ResponseWriter, r *http.Request) {
	policy := h.service.Validator().Policy()
	resp := PolicyResponse{
		MinLength:        policy.MinLength,
		MaxLength:        policy.MaxLength,
		MaxBytes:         policy.MaxBytes,
		RequireUppercase: policy.RequireUppercase,
		RequireLowercase: policy.RequireLowercase,
		RequireNumber:    policy.RequireNumber,
		RequireSpecial:   policy.RequireSpecial,
		Requirements:     policy.Requirements(),
	}
	if policy.HasRequirements() {
		resp.Description = policy.GetRequirements()
	}
	httputil.JSON(w, http.StatusOK, resp)
}
