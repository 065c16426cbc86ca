package middleware

import (
	"net"
	"net/http"

	"github.com/tendant/simple-onboarding/pkg/auth"
)

// ClientInfo attaches the caller's IP and user agent for auth event logging.
// Run it after chi's RealIP so proxied addresses are resolved.
func ClientInfo(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := r.RemoteAddr
		if host, _, err := net.SplitHostPort(ip); err == nil {
			ip = host
		}
		ctx := auth.WithClientInfo(r.Context(), auth.ClientInfo{IP: ip, UserAgent: r.UserAgent()})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
