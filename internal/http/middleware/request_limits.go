package middleware

import (
	"net/http"
	"strings"

	"github.com/tendant/simple-onboarding/internal/httputil"
)

// multipartOverhead covers form fields and boundaries around an uploaded image.
const multipartOverhead = 64 << 10

// RequestSizeLimit creates middleware that limits the maximum request body size.
// Multipart bodies may additionally carry one image of up to maxImageBytes.
func RequestSizeLimit(maxBytes, maxImageBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			limit := maxBytes
			if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
				limit = maxImageBytes + multipartOverhead
			}
			if r.ContentLength > limit {
				httputil.Error(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, limit)

			next.ServeHTTP(w, r)
		})
	}
}
