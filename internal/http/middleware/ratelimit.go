package middleware

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"
	"github.com/tendant/simple-onboarding/internal/config"
	"github.com/tendant/simple-onboarding/internal/httputil"
)

// RateLimitConfig holds rate limiting configuration for a specific endpoint type.
type RateLimitConfig struct {
	Name     string
	Requests int
	Window   time.Duration
	Logger   *slog.Logger
}

// RateLimit creates a per-client-IP limiter. Rejections are logged and answered with
// 429 and a Retry-After of one window.
func RateLimit(cfg RateLimitConfig) func(http.Handler) http.Handler {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		return NoRateLimit()
	}
	retryAfter := strconv.Itoa(int(cfg.Window.Round(time.Second) / time.Second))
	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyByIP(),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if cfg.Logger != nil {
				cfg.Logger.Warn("rate limit exceeded",
					"limiter", cfg.Name,
					"ip", r.RemoteAddr,
					"path", r.URL.Path,
					"method", r.Method,
					"request_id", chimw.GetReqID(r.Context()),
				)
			}
			w.Header().Set("Retry-After", retryAfter)
			httputil.Error(w, http.StatusTooManyRequests, "too many requests, please try again later")
		}),
	)
}

// NoRateLimit returns a no-op middleware when rate limiting is disabled.
func NoRateLimit() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return next
	}
}

// RateLimiters groups the per-IP limiters applied to each route family.
type RateLimiters struct {
	Auth    func(http.Handler) http.Handler // register, login
	Reset   func(http.Handler) http.Handler // forgot and reset password
	Verify  func(http.Handler) http.Handler // verify and resend code
	Refresh func(http.Handler) http.Handler
	Profile func(http.Handler) http.Handler
}

// CreateRateLimiters creates rate limiting middleware functions based on configuration.
func CreateRateLimiters(cfg config.RateLimitConfig, logger *slog.Logger) RateLimiters {
	if !cfg.Enabled {
		noOp := NoRateLimit()
		return RateLimiters{Auth: noOp, Reset: noOp, Verify: noOp, Refresh: noOp, Profile: noOp}
	}

	limiter := func(name string, requests, windowMinutes int) func(http.Handler) http.Handler {
		return RateLimit(RateLimitConfig{
			Name:     name,
			Requests: requests,
			Window:   time.Duration(windowMinutes) * time.Minute,
			Logger:   logger,
		})
	}

	return RateLimiters{
		Auth:    limiter("auth", cfg.AuthRequestsPerMinute, cfg.AuthWindowMinutes),
		Reset:   limiter("reset", cfg.ResetRequestsPerWindow, cfg.ResetWindowMinutes),
		Verify:  limiter("verify", cfg.VerifyRequestsPerWindow, cfg.VerifyWindowMinutes),
		Refresh: limiter("refresh", cfg.RefreshRequestsPerMinute, cfg.RefreshWindowMinutes),
		Profile: limiter("profile", cfg.ProfileRequestsPerMinute, cfg.ProfileWindowMinutes),
	}
}
