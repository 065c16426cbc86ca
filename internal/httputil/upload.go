package httputil

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tendant/simple-onboarding/pkg/auth"
	"github.com/tendant/simple-onboarding/pkg/domain"
)

// ProfileImageField is the multipart field carrying a profile image.
const ProfileImageField = "profileImage"

// IsMultipart reports whether the request carries a multipart form.
func IsMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

// ReadImage parses a multipart request and returns the uploaded image in field, or nil
// when none was sent. Files larger than maxSize yield a validation error.
func ReadImage(r *http.Request, field string, maxSize int64) (*auth.ImageUpload, error) {
	if err := r.ParseMultipartForm(maxSize); err != nil {
		return nil, fmt.Errorf("parse multipart form: %w", err)
	}

	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	defer file.Close()

	if header.Size > maxSize {
		return nil, domain.NewValidationError(field, fmt.Sprintf("image must be at most %d bytes", maxSize))
	}

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	if int64(len(data)) > maxSize {
		return nil, domain.NewValidationError(field, fmt.Sprintf("image must be at most %d bytes", maxSize))
	}
	return &auth.ImageUpload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

// IsBodyTooLarge reports whether err came from an exceeded body limit.
func IsBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

// BadRequest answers a request whose body could not be read or decoded.
func BadRequest(w http.ResponseWriter, err error) {
	if IsBodyTooLarge(err) {
		Error(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	Error(w, http.StatusBadRequest, "invalid request body")
}
