package auth

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/tendant/simple-onboarding/internal/config"
	"github.com/tendant/simple-onboarding/pkg/domain"
)

var (
	pngHeader  = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	gifHeader  = []byte("GIF89a\x01\x00\x01\x00")
	jpegHeader = []byte("\xff\xd8\xff\xe0\x00\x10JFIF\x00")
)

func newTestValidator() *Validator {
	return NewValidator(ValidatorOptions{
		Policy: NewPasswordPolicy(config.PasswordPolicyConfig{
			MinLength:        6,
			MaxLength:        128,
			RequireUppercase: true,
			RequireLowercase: true,
			RequireNumber:    true,
		}),
		MaxImageSize: 1024,
	})
}

// fieldErrors returns the field map of a validation error, or nil.
func fieldErrors(t *testing.T, err error) map[string]string {
	t.Helper()
	if err == nil {
		return nil
	}
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error %v is not a *domain.ValidationError", err)
	}
	return verr.Fields
}

func TestValidator_ValidateRegistration(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name       string
		input      RegisterInput
		wantFields []string
	}{
		{
			name:  "valid",
			input: RegisterInput{Name: "Jane Doe", Email: "jane@example.com", Password: "Passw0rd"},
		},
		{
			name:  "accented name",
			input: RegisterInput{Name: "José Núñez", Email: "jose@example.com", Password: "Passw0rd"},
		},
		{
			name:       "all fields missing",
			input:      RegisterInput{},
			wantFields: []string{"email", "name", "password"},
		},
		{
			name:       "name too short",
			input:      RegisterInput{Name: "J", Email: "jane@example.com", Password: "Passw0rd"},
			wantFields: []string{"name"},
		},
		{
			name:       "name too long",
			input:      RegisterInput{Name: strings.Repeat("a", 51), Email: "jane@example.com", Password: "Passw0rd"},
			wantFields: []string{"name"},
		},
		{
			name:       "name with digits",
			input:      RegisterInput{Name: "Jane 2", Email: "jane@example.com", Password: "Passw0rd"},
			wantFields: []string{"name"},
		},
		{
			name:       "invalid email",
			input:      RegisterInput{Name: "Jane Doe", Email: "not-an-email", Password: "Passw0rd"},
			wantFields: []string{"email"},
		},
		{
			name:       "password without uppercase",
			input:      RegisterInput{Name: "Jane Doe", Email: "jane@example.com", Password: "passw0rd"},
			wantFields: []string{"password"},
		},
		{
			name:       "password too short",
			input:      RegisterInput{Name: "Jane Doe", Email: "jane@example.com", Password: "Pa0"},
			wantFields: []string{"password"},
		},
		{
			name: "text file as image",
			input: RegisterInput{
				Name: "Jane Doe", Email: "jane@example.com", Password: "Passw0rd",
				ProfileImage: &ImageUpload{Filename: "a.png", ContentType: "image/png", Data: []byte("hello world")},
			},
			wantFields: []string{"profileImage"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fields := fieldErrors(t, v.ValidateRegistration(tt.input))
			if len(fields) != len(tt.wantFields) {
				t.Fatalf("fields = %v, want keys %v", fields, tt.wantFields)
			}
			for _, f := range tt.wantFields {
				if fields[f] == "" {
					t.Errorf("missing error for field %q in %v", f, fields)
				}
			}
		})
	}
}

func TestValidator_CheckImage(t *testing.T) {
	v := newTestValidator()

	tests := []struct {
		name     string
		data     []byte
		wantType string
		wantErr  bool
	}{
		{name: "png", data: pngHeader, wantType: "image/png"},
		{name: "gif", data: gifHeader, wantType: "image/gif"},
		{name: "jpeg", data: jpegHeader, wantType: "image/jpeg"},
		{name: "empty", data: nil, wantErr: true},
		{name: "too large", data: append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0}, 1024)...), wantErr: true},
		{name: "pdf", data: []byte("%PDF-1.4\n"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			img := &ImageUpload{Filename: "upload", ContentType: "application/octet-stream", Data: tt.data}
			err := v.checkImage(img)
			if (err != nil) != tt.wantErr {
				t.Fatalf("checkImage() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && img.ContentType != tt.wantType {
				t.Errorf("ContentType = %q, want %q", img.ContentType, tt.wantType)
			}
		})
	}
}

func TestValidator_ValidateCode(t *testing.T) {
	v := newTestValidator()

	for code, wantErr := range map[string]bool{
		"123456":  false,
		"000000":  false,
		"12345":   true,
		"1234567": true,
		"12a456":  true,
		"":        true,
	} {
		if err := v.ValidateCode(code); (err != nil) != wantErr {
			t.Errorf("ValidateCode(%q) error = %v, wantErr %v", code, err, wantErr)
		}
	}
}

func TestValidator_ValidatePasswordField(t *testing.T) {
	v := newTestValidator()

	fields := fieldErrors(t, v.ValidatePassword("newPassword", "short"))
	if fields["newPassword"] == "" {
		t.Errorf("expected newPassword error, got %v", fields)
	}
	if err := v.ValidatePassword("newPassword", "NewPassw0rd"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidator_ValidateLogin(t *testing.T) {
	v := newTestValidator()

	// Weak passwords are still accepted at login.
	if err := v.ValidateLogin("jane@example.com", "weak"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	fields := fieldErrors(t, v.ValidateLogin("", ""))
	if fields["email"] == "" || fields["password"] == "" {
		t.Errorf("expected email and password errors, got %v", fields)
	}
}

func TestValidator_EmailFormatOnly(t *testing.T) {
	v := newTestValidator()

	// Unresolvable domains are accepted; only the address format is checked.
	for _, email := range []string{"jane@no-such-host.invalid", "jane@mail.unresolvable.test"} {
		if err := v.ValidateEmailField(email); err != nil {
			t.Errorf("ValidateEmailField(%q) = %v", email, err)
		}
	}

	fields := fieldErrors(t, v.ValidateEmailField("jane.example.com"))
	if fields["email"] != "must be a valid email address" {
		t.Errorf("email error = %q", fields["email"])
	}
}

func TestValidator_ValidateProfileUpdate(t *testing.T) {
	v := newTestValidator()
	good := "Jane Doe"
	bad := "<script>"

	if err := v.ValidateProfileUpdate(UpdateProfileInput{}); err != nil {
		t.Errorf("empty update should be valid: %v", err)
	}
	if err := v.ValidateProfileUpdate(UpdateProfileInput{Name: &good}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	fields := fieldErrors(t, v.ValidateProfileUpdate(UpdateProfileInput{Name: &bad, Image: &ImageUpload{}}))
	if fields["name"] == "" || fields["profileImage"] == "" {
		t.Errorf("expected name and profileImage errors, got %v", fields)
	}
}

func TestImageExtension(t *testing.T) {
	tests := map[string]string{
		"image/jpeg": "jpg",
		"image/png":  "png",
		"image/gif":  "gif",
		"text/plain": "bin",
	}
	for contentType, want := range tests {
		if got := ImageExtension(contentType); got != want {
			t.Errorf("ImageExtension(%q) = %q, want %q", contentType, got, want)
		}
	}
}
