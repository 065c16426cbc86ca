package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/tendant/simple-onboarding/internal/config"
	"github.com/tendant/simple-onboarding/internal/http/features/account"
	"github.com/tendant/simple-onboarding/internal/http/features/me"
	"github.com/tendant/simple-onboarding/internal/http/features/password"
	"github.com/tendant/simple-onboarding/internal/http/middleware"
	"github.com/tendant/simple-onboarding/internal/httputil"
	"github.com/tendant/simple-onboarding/internal/throttle"
	"github.com/tendant/simple-onboarding/pkg/auth"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Logger          *slog.Logger
	AccountService  *auth.AccountService
	EmailLimiter    throttle.EmailLimiter       // optional per-email throttle for forgot/resend
	HealthCheck     func(context.Context) error // optional readiness probe, e.g. a DB ping
	RateLimitConfig config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	Validation      config.ValidationConfig
	CookieSecure    bool // Whether to use Secure flag on cookies (should be true for HTTPS)
}

// NewRouter creates a new HTTP router with all routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.ClientInfo)
	r.Use(middleware.Recover(cfg.Logger))
	r.Use(middleware.Logging(cfg.Logger))
	r.Use(middleware.SecurityHeaders(cfg.SecurityHeaders))
	r.Use(middleware.RequestSizeLimit(cfg.Validation.MaxRequestBodySize, cfg.AccountService.Validator().MaxImageSize()))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if cfg.HealthCheck != nil {
			if err := cfg.HealthCheck(r.Context()); err != nil {
				cfg.Logger.Error("health check failed", "error", err)
				httputil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Create rate limiters for different endpoint types
	rateLimiters := middleware.CreateRateLimiters(cfg.RateLimitConfig, cfg.Logger)

	cookieConfig := httputil.DefaultCookieConfig()
	cookieConfig.Secure = cfg.CookieSecure

	authn := middleware.Auth(cfg.AccountService, cfg.Logger)

	accountHandler := account.NewHandler(cfg.Logger, cfg.AccountService, cfg.EmailLimiter, cookieConfig)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters.Auth)
		r.Post("/v1/auth/register", accountHandler.Register)
		r.Post("/v1/auth/login", accountHandler.Login)
	})
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters.Verify)
		r.Get("/v1/auth/verify/{code}", accountHandler.VerifyCode)
		r.Post("/v1/auth/verify", accountHandler.Verify)
		r.Post("/v1/auth/resend-verification", accountHandler.ResendVerification)
	})
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters.Refresh)
		r.Post("/v1/auth/refresh", accountHandler.Refresh)
	})
	r.With(authn).Post("/v1/auth/logout", accountHandler.Logout)

	passwordHandler := password.NewHandler(cfg.Logger, cfg.AccountService, cfg.EmailLimiter)
	r.Group(func(r chi.Router) {
		r.Use(rateLimiters.Reset)
		r.Post("/v1/auth/forgot-password", passwordHandler.ForgotPassword)
		r.Post("/v1/auth/reset-password", passwordHandler.ResetPassword)
	})
	r.Get("/v1/auth/password-policy", passwordHandler.Policy)

	// Register user profile routes
	meHandler := me.NewHandler(cfg.Logger, cfg.AccountService)
	r.Group(func(r chi.Router) {
		r.Use(authn)
		r.Use(rateLimiters.Profile)
		r.Get("/v1/me", meHandler.GetMe)
		r.Put("/v1/me", meHandler.UpdateMe)
		r.Patch("/v1/me", meHandler.UpdateMe)
		r.Put("/v1/me/password", passwordHandler.ChangePassword)
	})

	return r
}
