package httputil

import (
	"net/http"
	"strings"
	"time"
)

const (
	accessTokenCookie  = "access_token"
	refreshTokenCookie = "refresh_token"

	// RefreshCookiePath limits the refresh cookie to the auth routes (refresh, logout).
	RefreshCookiePath = "/v1/auth"
)

// CookieConfig controls the attributes of the session cookies. Both cookies are
// always HttpOnly.
type CookieConfig struct {
	Domain      string
	Path        string
	RefreshPath string
	Secure      bool
	SameSite    http.SameSite
}

// DefaultCookieConfig returns Lax, non-Secure cookies. Callers serving HTTPS set Secure.
func DefaultCookieConfig() CookieConfig {
	return CookieConfig{
		Path:        "/",
		RefreshPath: RefreshCookiePath,
		SameSite:    http.SameSiteLaxMode,
	}
}

func (cfg CookieConfig) cookie(name, path, value string, ttl time.Duration) *http.Cookie {
	maxAge := int(ttl / time.Second)
	if ttl < 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Domain:   cfg.Domain,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: cfg.SameSite,
	}
}

func (cfg CookieConfig) refreshPath() string {
	if cfg.RefreshPath == "" {
		return cfg.Path
	}
	return cfg.RefreshPath
}

// SetAccessCookie sets the access token cookie for the whole site.
func SetAccessCookie(w http.ResponseWriter, accessToken string, ttl time.Duration, cfg CookieConfig) {
	http.SetCookie(w, cfg.cookie(accessTokenCookie, cfg.Path, accessToken, ttl))
}

// SetAuthCookies sets the access cookie and the path-scoped refresh cookie.
func SetAuthCookies(w http.ResponseWriter, accessToken, refreshToken string, accessTTL, refreshTTL time.Duration, cfg CookieConfig) {
	SetAccessCookie(w, accessToken, accessTTL, cfg)
	http.SetCookie(w, cfg.cookie(refreshTokenCookie, cfg.refreshPath(), refreshToken, refreshTTL))
}

// ClearAuthCookies expires both cookies. Paths must match the ones they were set with.
func ClearAuthCookies(w http.ResponseWriter, cfg CookieConfig) {
	http.SetCookie(w, cfg.cookie(accessTokenCookie, cfg.Path, "", -1))
	http.SetCookie(w, cfg.cookie(refreshTokenCookie, cfg.refreshPath(), "", -1))
}

func cookieValue(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// GetRefreshTokenFromCookie returns the refresh cookie value, if any.
func GetRefreshTokenFromCookie(r *http.Request) (string, bool) {
	return cookieValue(r, refreshTokenCookie)
}

// GetAccessTokenFromCookie returns the access cookie value, if any.
func GetAccessTokenFromCookie(r *http.Request) (string, bool) {
	return cookieValue(r, accessTokenCookie)
}

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, bool) {
	scheme, token, found := strings.Cut(r.Header.Get("Authorization"), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// IsMobileClient reports whether the caller identified itself with X-Client-Type: mobile.
// Mobile clients receive tokens in the body only.
func IsMobileClient(r *http.Request) bool {
	return strings.EqualFold(r.Header.Get("X-Client-Type"), "mobile")
}
