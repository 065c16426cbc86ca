package me

import (
	"log/slog"
	"net/http"

	"github.com/tendant/simple-onboarding/internal/http/middleware"
	"github.com/tendant/simple-onboarding/internal/httputil"
	"github.com/tendant/simple-onboarding/pkg/auth"
	"github.com/tendant/simple-onboarding/pkg/domain"
)

// Handler handles profile endpoints for the signed-in account.
type Handler struct {
	logger  *slog.Logger
	service *auth.AccountService
}

// NewHandler creates a new me handler.
func NewHandler(logger *slog.Logger, service *auth.AccountService) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// UpdateRequest represents a JSON profile update.
type UpdateRequest struct {
	Name *string `json:"name,omitempty"`
}

// ProfileResponse wraps the account profile.
type ProfileResponse struct {
	Message string               `json:"message,omitempty"`
	User    domain.PublicAccount `json:"user"`
}

// GetMe returns the current account's profile.
// GET /v1/me
func (h *Handler) GetMe(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		httputil.WriteError(w, r, h.logger, domain.ErrUnauthorized)
		return
	}

	account, err := h.service.GetProfile(r.Context(), accountID)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, ProfileResponse{User: *account})
}

// UpdateMe changes the display name and/or profile image. A multipart body may carry
// a name field and a profileImage file.
// PUT /v1/me
func (h *Handler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	accountID, ok := middleware.GetAccountID(r.Context())
	if !ok {
		httputil.WriteError(w, r, h.logger, domain.ErrUnauthorized)
		return
	}

	var in auth.UpdateProfileInput
	if httputil.IsMultipart(r) {
		img, err := httputil.ReadImage(r, httputil.ProfileImageField, h.service.Validator().MaxImageSize())
		if err != nil {
			if domain.KindOf(err) == domain.KindValidationFailed {
				httputil.WriteError(w, r, h.logger, err)
				return
			}
			httputil.BadRequest(w, err)
			return
		}
		in.Image = img
		if values, ok := r.MultipartForm.Value["name"]; ok && len(values) > 0 {
			name := values[0]
			in.Name = &name
		}
	} else {
		var req UpdateRequest
		if err := httputil.DecodeJSON(r, &req); err != nil {
			httputil.BadRequest(w, err)
			return
		}
		in.Name = req.Name
	}

	account, err := h.service.UpdateProfile(r.Context(), accountID, in)
	if err != nil {
		httputil.WriteError(w, r, h.logger, err)
		return
	}
	httputil.JSON(w, http.StatusOK, ProfileResponse{Message: "Profile updated successfully.", User: *account})
}
