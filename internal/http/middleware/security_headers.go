package middleware

import (
	"net/http"
	"strconv"

	"github.com/tendant/simple-onboarding/internal/config"
)

type header struct {
	name  string
	value string
}

// SecurityHeaders sets the configured response hardening headers. Every response is
// marked uncacheable because bodies carry tokens and account data. HSTS is only sent
// over HTTPS, including TLS terminated by a proxy that sets X-Forwarded-Proto.
func SecurityHeaders(cfg config.SecurityHeadersConfig) func(http.Handler) http.Handler {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}

	var always []header
	for _, h := range []header{
		{"Content-Security-Policy", cfg.CSP},
		{"X-Frame-Options", cfg.FrameOptions},
		{"X-Content-Type-Options", cfg.ContentTypeOptions},
		{"X-XSS-Protection", cfg.XSSProtection},
		{"Referrer-Policy", cfg.ReferrerPolicy},
		{"Permissions-Policy", cfg.PermissionsPolicy},
		{"Cache-Control", "no-store"},
		{"Pragma", "no-cache"},
	} {
		if h.value != "" {
			always = append(always, h)
		}
	}

	var hsts string
	if cfg.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge) + "; includeSubDomains"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			for _, kv := range always {
				h.Set(kv.name, kv.value)
			}
			if hsts != "" && isHTTPS(r) {
				h.Set("Strict-Transport-Security", hsts)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https"
}
