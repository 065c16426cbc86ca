package auth

import (
	"errors"
	"net/http"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/tendant/simple-onboarding/pkg/domain"
)

// DefaultMaxImageSize is the largest accepted profile image.
const DefaultMaxImageSize = 5 << 20

var (
	nameRegex = regexp.MustCompile(`^[\p{L} ]+$`)
	codeRegex = regexp.MustCompile(`^[0-9]{6}$`)

	allowedImageTypes = map[string]string{
		"image/jpeg": "jpg",
		"image/png":  "png",
		"image/gif":  "gif",
	}
)

// Validator checks account input and reports field-level errors as *domain.ValidationError.
type Validator struct {
	policy          *PasswordPolicy
	strictEmail     bool
	blockDisposable bool
	maxImageSize    int64
}

// ValidatorOptions configures a Validator.
type ValidatorOptions struct {
	Policy          *PasswordPolicy
	StrictEmail     bool
	BlockDisposable bool
	MaxImageSize    int64
}

// NewValidator creates a Validator. A nil policy accepts any password.
func NewValidator(opts ValidatorOptions) *Validator {
	if opts.Policy == nil {
		opts.Policy = &PasswordPolicy{}
	}
	if opts.MaxImageSize <= 0 {
		opts.MaxImageSize = DefaultMaxImageSize
	}
	return &Validator{
		policy:          opts.Policy,
		strictEmail:     opts.StrictEmail,
		blockDisposable: opts.BlockDisposable,
		maxImageSize:    opts.MaxImageSize,
	}
}

// Policy returns the password policy.
func (v *Validator) Policy() *PasswordPolicy {
	return v.policy
}

// MaxImageSize returns the largest accepted profile image in bytes.
func (v *Validator) MaxImageSize() int64 {
	return v.maxImageSize
}

func (v *Validator) nameRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("name is required"),
		validation.RuneLength(2, 50).Error("name must be between 2 and 50 characters"),
		validation.Match(nameRegex).Error("name can only contain letters and spaces"),
	}
}

func (v *Validator) emailRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("email is required"),
		is.Email.Error("must be a valid email address"),
		validation.By(func(value interface{}) error {
			s, _ := value.(string)
			return ValidateEmail(s, v.strictEmail, v.blockDisposable)
		}),
	}
}

func (v *Validator) passwordRules() []validation.Rule {
	return []validation.Rule{
		validation.Required.Error("password is required"),
		validation.By(func(value interface{}) error {
			s, _ := value.(string)
			return v.policy.ValidatePassword(s)
		}),
	}
}

// ValidateRegistration checks the registration fields. The image, when present, is checked too.
func (v *Validator) ValidateRegistration(in RegisterInput) error {
	errs := validation.Errors{
		"name":     validation.Validate(in.Name, v.nameRules()...),
		"email":    validation.Validate(in.Email, v.emailRules()...),
		"password": validation.Validate(in.Password, v.passwordRules()...),
	}
	if in.ProfileImage != nil {
		errs["profileImage"] = v.checkImage(in.ProfileImage)
	}
	return toValidationError(errs.Filter())
}

// ValidateLogin checks that credentials were supplied. Password strength is not re-checked.
func (v *Validator) ValidateLogin(email, password string) error {
	return toValidationError(validation.Errors{
		"email":    validation.Validate(email, validation.Required.Error("email is required"), is.Email.Error("must be a valid email address")),
		"password": validation.Validate(password, validation.Required.Error("password is required")),
	}.Filter())
}

// ValidateEmailField checks a lone email field.
func (v *Validator) ValidateEmailField(email string) error {
	return toValidationError(validation.Errors{
		"email": validation.Validate(email, validation.Required.Error("email is required"), is.Email.Error("must be a valid email address")),
	}.Filter())
}

// ValidateCode checks that a verification code is exactly six digits.
func (v *Validator) ValidateCode(code string) error {
	return toValidationError(validation.Errors{
		"code": validation.Validate(code,
			validation.Required.Error("verification code is required"),
			validation.Match(codeRegex).Error("verification code must be exactly 6 digits"),
		),
	}.Filter())
}

// ValidatePassword checks a new password against the policy under the given field name.
func (v *Validator) ValidatePassword(field, password string) error {
	return toValidationError(validation.Errors{
		field: validation.Validate(password, v.passwordRules()...),
	}.Filter())
}

// ValidateProfileUpdate checks the optional name and image of a profile update.
func (v *Validator) ValidateProfileUpdate(in UpdateProfileInput) error {
	errs := validation.Errors{}
	if in.Name != nil {
		errs["name"] = validation.Validate(*in.Name, v.nameRules()...)
	}
	if in.Image != nil {
		errs["profileImage"] = v.checkImage(in.Image)
	}
	return toValidationError(errs.Filter())
}

// checkImage enforces the size limit and sniffs the content type.
// The sniffed type replaces whatever the client declared.
func (v *Validator) checkImage(img *ImageUpload) error {
	if len(img.Data) == 0 {
		return errors.New("image is empty")
	}
	if int64(len(img.Data)) > v.maxImageSize {
		return errors.New("image must be 5MB or smaller")
	}
	sniffed := http.DetectContentType(img.Data)
	if _, ok := allowedImageTypes[sniffed]; !ok {
		return errors.New("only JPEG, PNG and GIF images are allowed")
	}
	img.ContentType = sniffed
	return nil
}

// ImageExtension returns the file extension for an accepted image content type.
func ImageExtension(contentType string) string {
	if ext, ok := allowedImageTypes[contentType]; ok {
		return ext
	}
	return "bin"
}

// toValidationError converts ozzo field errors into a *domain.ValidationError.
func toValidationError(err error) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return err
	}
	fields := make(map[string]string, len(errs))
	for field, ferr := range errs {
		fields[field] = ferr.Error()
	}
	return &domain.ValidationError{Fields: fields}
}
