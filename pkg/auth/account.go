package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-onboarding/pkg/domain"
)

// Generic responses that do not reveal whether an account exists.
const (
	ForgotPasswordMessage     = "If an account with that email exists, a password reset link has been sent."
	ResendVerificationMessage = "If an account with that email exists, a new verification code has been sent."
)

// maxCodeAttempts bounds re-issuance when a generated verification code collides.
const maxCodeAttempts = 3

// RegisterInput holds registration fields.
type RegisterInput struct {
	Name         string
	Email        string
	Password     string
	ProfileImage *ImageUpload
}

// VerifyInput holds a verification attempt. Email is optional; without it the code alone
// identifies the account.
type VerifyInput struct {
	Email string
	Code  string
}

// VerifyResult is the outcome of a successful verification. Account is nil when the
// account was already verified, since that path does not check the code.
type VerifyResult struct {
	Account         *domain.PublicAccount
	AlreadyVerified bool
}

// LoginResult is the outcome of a successful login.
type LoginResult struct {
	Account domain.PublicAccount
	Tokens  *domain.TokenPair
}

// UpdateProfileInput holds optional profile changes.
type UpdateProfileInput struct {
	Name  *string
	Image *ImageUpload
}

// AccountServiceDeps wires the account state machine.
type AccountServiceDeps struct {
	Store     AccountStore
	Hasher    Hasher
	Tokens    *TokenIssuer
	Codes     *CodeIssuer
	Lockout   *Lockout
	Resets    *ResetTokenIssuer
	Validator *Validator
	Notifier  Notifier
	Images    ImageStore
	Clock     Clock
	Logger    *slog.Logger
}

// AccountService drives the account lifecycle: registration, verification, login with
// lockout, password reset and change, token refresh and profile updates.
type AccountService struct {
	store     AccountStore
	hasher    Hasher
	tokens    *TokenIssuer
	codes     *CodeIssuer
	lockout   *Lockout
	resets    *ResetTokenIssuer
	validator *Validator
	notifier  Notifier
	images    ImageStore
	clock     Clock
	logger    *slog.Logger
}

// NewAccountService creates an account service. Store, Hasher and Tokens are required;
// the remaining collaborators fall back to defaults. A nil Notifier or ImageStore
// disables email delivery or image uploads.
func NewAccountService(deps AccountServiceDeps) (*AccountService, error) {
	if deps.Store == nil {
		return nil, errors.New("account store is required")
	}
	if deps.Hasher == nil {
		return nil, errors.New("credential hasher is required")
	}
	if deps.Tokens == nil {
		return nil, errors.New("token issuer is required")
	}
	if deps.Codes == nil {
		deps.Codes = NewCodeIssuer(DefaultVerificationCodeTTL)
	}
	if deps.Lockout == nil {
		deps.Lockout = NewLockout(DefaultMaxFailedAttempts, DefaultLockoutDuration)
	}
	if deps.Resets == nil {
		deps.Resets = NewResetTokenIssuer(DefaultPasswordResetTTL)
	}
	if deps.Validator == nil {
		deps.Validator = NewValidator(ValidatorOptions{})
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	return &AccountService{
		store:     deps.Store,
		hasher:    deps.Hasher,
		tokens:    deps.Tokens,
		codes:     deps.Codes,
		lockout:   deps.Lockout,
		resets:    deps.Resets,
		validator: deps.Validator,
		notifier:  deps.Notifier,
		images:    deps.Images,
		clock:     deps.Clock,
		logger:    deps.Logger,
	}, nil
}

// Validator returns the input validator used by the service.
func (s *AccountService) Validator() *Validator {
	return s.validator
}

// AccessTokenTTL returns the lifetime of issued access tokens.
func (s *AccountService) AccessTokenTTL() time.Duration {
	return s.tokens.AccessTokenTTL()
}

// RefreshTokenTTL returns the lifetime of issued refresh tokens.
func (s *AccountService) RefreshTokenTTL() time.Duration {
	return s.tokens.RefreshTokenTTL()
}

// ImageUploadsEnabled reports whether an ImageStore is configured.
func (s *AccountService) ImageUploadsEnabled() bool {
	return s.images != nil
}

// Register creates an unverified account and sends it a verification code.
func (s *AccountService) Register(ctx context.Context, in RegisterInput) (*domain.PublicAccount, error) {
	in.Email = NormalizeEmail(in.Email)
	in.Name = SanitizeName(in.Name)

	if err := s.validator.ValidateRegistration(in); err != nil {
		return nil, err
	}
	if in.ProfileImage != nil && s.images == nil {
		return nil, domain.NewValidationError("profileImage", "image uploads are not enabled")
	}

	_, err := s.store.FindByEmail(ctx, in.Email)
	if err == nil {
		s.logAuth(ctx, "REGISTER_FAILED_EMAIL_EXISTS", uuid.Nil, in.Email)
		return nil, domain.ErrAccountExists
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	account := &domain.Account{
		ID:             uuid.New(),
		Email:          in.Email,
		CredentialHash: hash,
		DisplayName:    in.Name,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	var code string
	for attempt := 1; ; attempt++ {
		issued, expiresAt, err := s.codes.Issue(now)
		if err != nil {
			return nil, err
		}
		code = issued
		account.VerificationCode = &code
		account.VerificationCodeExpiresAt = &expiresAt

		err = s.store.Create(ctx, account)
		if err == nil {
			break
		}
		if errors.Is(err, domain.ErrAccountExists) {
			return nil, domain.ErrAccountExists
		}
		if !errors.Is(err, domain.ErrVerificationCodeTaken) || attempt >= maxCodeAttempts {
			return nil, fmt.Errorf("create account: %w", err)
		}
	}

	s.logAuth(ctx, "REGISTER_SUCCESS", account.ID, account.Email)

	if s.notifier != nil {
		if err := s.notifier.SendVerificationCode(ctx, account.Email, account.DisplayName, code); err != nil {
			s.logger.Error("failed to send verification code", "error", err, "account_id", account.ID)
		}
	}

	if in.ProfileImage != nil {
		if updated, err := s.storeImage(ctx, account.ID, in.ProfileImage, nil); err != nil {
			s.logger.Warn("profile image upload failed during registration", "error", err, "account_id", account.ID)
		} else {
			account = updated
		}
	}

	pub := account.Public()
	return &pub, nil
}

// Login checks credentials and issues tokens. Checks run in order: unknown account,
// active lock, unverified email, wrong password. Only a wrong password counts toward
// the lockout.
func (s *AccountService) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = NormalizeEmail(email)
	if err := s.validator.ValidateLogin(email, password); err != nil {
		return nil, err
	}

	account, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		s.logAuth(ctx, "LOGIN_FAILED_UNKNOWN_ACCOUNT", uuid.Nil, email)
		return nil, domain.ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	now := s.clock.Now()

	if s.lockout.IsLocked(account, now) {
		s.logAuth(ctx, "LOGIN_FAILED_LOCKED", account.ID, email)
		return nil, domain.ErrAccountLocked
	}

	if !account.Verified {
		s.logAuth(ctx, "LOGIN_FAILED_UNVERIFIED", account.ID, email)
		return nil, domain.ErrVerificationRequired
	}

	if !s.hasher.Verify(password, account.CredentialHash) {
		var locked bool
		_, err := s.store.AtomicUpdate(ctx, account.ID, func(a *domain.Account) error {
			// A concurrent failure may have locked the account already.
			if a.IsLocked(now) {
				return nil
			}
			locked = s.lockout.RecordFailure(a, now)
			a.UpdatedAt = now
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("record failed login: %w", err)
		}
		if locked {
			s.logAuth(ctx, "ACCOUNT_LOCKED", account.ID, email)
		} else {
			s.logAuth(ctx, "LOGIN_FAILED_WRONG_PASSWORD", account.ID, email)
		}
		return nil, domain.ErrInvalidCredentials
	}

	updated, err := s.store.AtomicUpdate(ctx, account.ID, func(a *domain.Account) error {
		s.lockout.RecordSuccess(a, now)
		a.UpdatedAt = now
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}

	tokens, err := s.tokens.IssuePair(updated.ID, updated.Email, updated.Verified)
	if err != nil {
		return nil, fmt.Errorf("issue tokens: %w", err)
	}

	s.logAuth(ctx, "LOGIN_SUCCESS", updated.ID, email)

	return &LoginResult{Account: updated.Public(), Tokens: tokens}, nil
}

// Verify confirms an account with its emailed code. With an email, verifying an
// already verified account succeeds without side effects and returns no account data.
func (s *AccountService) Verify(ctx context.Context, in VerifyInput) (*VerifyResult, error) {
	in.Email = NormalizeEmail(in.Email)
	in.Code = trimSpace(in.Code)

	if err := s.validator.ValidateCode(in.Code); err != nil {
		return nil, err
	}

	byEmail := in.Email != ""
	var (
		account *domain.Account
		err     error
	)
	if byEmail {
		if err := s.validator.ValidateEmailField(in.Email); err != nil {
			return nil, err
		}
		account, err = s.store.FindByEmail(ctx, in.Email)
	} else {
		account, err = s.store.FindByVerificationCode(ctx, in.Code)
	}
	if errors.Is(err, domain.ErrAccountNotFound) {
		s.logAuth(ctx, "VERIFY_FAILED_INVALID_CODE", uuid.Nil, in.Email)
		return nil, domain.ErrInvalidOrExpiredCode
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	if byEmail && account.Verified {
		return &VerifyResult{AlreadyVerified: true}, nil
	}

	now := s.clock.Now()
	var already bool
	updated, err := s.store.AtomicUpdate(ctx, account.ID, func(a *domain.Account) error {
		if a.Verified {
			if byEmail {
				already = true
				return nil
			}
			return domain.ErrInvalidOrExpiredCode
		}
		if !s.codes.Validate(in.Code, a.VerificationCode, a.VerificationCodeExpiresAt, now) {
			return domain.ErrInvalidOrExpiredCode
		}
		a.Verified = true
		a.ClearVerificationCode()
		a.UpdatedAt = now
		return nil
	})
	if errors.Is(err, domain.ErrInvalidOrExpiredCode) {
		s.logAuth(ctx, "VERIFY_FAILED_INVALID_CODE", account.ID, account.Email)
		return nil, domain.ErrInvalidOrExpiredCode
	}
	if err != nil {
		return nil, fmt.Errorf("verify account: %w", err)
	}

	if !already {
		s.logAuth(ctx, "EMAIL_VERIFIED", updated.ID, updated.Email)
		if s.notifier != nil {
			if err := s.notifier.SendWelcome(ctx, updated.Email, updated.DisplayName); err != nil {
				s.logger.Error("failed to send welcome email", "error", err, "account_id", updated.ID)
			}
		}
	}

	if already {
		return &VerifyResult{AlreadyVerified: true}, nil
	}
	pub := updated.Public()
	return &VerifyResult{Account: &pub}, nil
}

// ResendVerification issues a fresh code, replacing any outstanding one. An unknown
// email succeeds silently; a verified account yields domain.ErrAlreadyVerified.
func (s *AccountService) ResendVerification(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := s.validator.ValidateEmailField(email); err != nil {
		return err
	}

	account, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		s.logAuth(ctx, "RESEND_VERIFICATION_UNKNOWN_ACCOUNT", uuid.Nil, email)
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}
	if account.Verified {
		return domain.ErrAlreadyVerified
	}

	now := s.clock.Now()
	var code string
	for attempt := 1; ; attempt++ {
		issued, expiresAt, err := s.codes.Issue(now)
		if err != nil {
			return err
		}
		_, err = s.store.AtomicUpdate(ctx, account.ID, func(a *domain.Account) error {
			if a.Verified {
				return domain.ErrAlreadyVerified
			}
			a.VerificationCode = &issued
			a.VerificationCodeExpiresAt = &expiresAt
			a.UpdatedAt = now
			return nil
		})
		if err == nil {
			code = issued
			break
		}
		if errors.Is(err, domain.ErrAlreadyVerified) {
			return domain.ErrAlreadyVerified
		}
		if !errors.Is(err, domain.ErrVerificationCodeTaken) || attempt >= maxCodeAttempts {
			return fmt.Errorf("reissue verification code: %w", err)
		}
	}

	s.logAuth(ctx, "VERIFICATION_CODE_RESENT", account.ID, email)

	if s.notifier != nil {
		if err := s.notifier.SendVerificationCode(ctx, account.Email, account.DisplayName, code); err != nil {
			s.logger.Error("failed to send verification code", "error", err, "account_id", account.ID)
		}
	}
	return nil
}

// ForgotPassword issues a reset token when the account exists. The caller always
// answers with ForgotPasswordMessage; only storage failures surface as errors.
func (s *AccountService) ForgotPassword(ctx context.Context, email string) error {
	email = NormalizeEmail(email)
	if err := s.validator.ValidateEmailField(email); err != nil {
		return err
	}

	account, err := s.store.FindByEmail(ctx, email)
	if errors.Is(err, domain.ErrAccountNotFound) {
		s.logAuth(ctx, "PASSWORD_RESET_UNKNOWN_ACCOUNT", uuid.Nil, email)
		return nil
	}
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}

	now := s.clock.Now()
	token, tokenHash, expiresAt, err := s.resets.Issue(now)
	if err != nil {
		return err
	}

	_, err = s.store.AtomicUpdate(ctx, account.ID, func(a *domain.Account) error {
		a.ResetTokenHash = &tokenHash
		a.ResetTokenExpiresAt = &expiresAt
		a.UpdatedAt = now
		return nil
	})
	if err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	s.logAuth(ctx, "PASSWORD_RESET_REQUESTED", account.ID, email)

	if s.notifier != nil {
		if err := s.notifier.SendPasswordReset(ctx, account.Email, account.DisplayName, token); err != nil {
			s.logger.Error("failed to send password reset", "error", err, "account_id", account.ID)
		}
	}
	return nil
}

// ResetPassword replaces the credential using a reset token. The token is cleared in the
// same update, so a second use fails.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	token = trimSpace(token)
	if token == "" {
		return domain.NewValidationError("token", "reset token is required")
	}
	if err := s.validator.ValidatePassword("password", newPassword); err != nil {
		return err
	}

	account, err := s.store.FindByResetTokenHash(ctx, HashToken(token))
	if errors.Is(err, domain.ErrAccountNotFound) {
		s.logAuth(ctx, "PASSWORD_RESET_FAILED_INVALID_TOKEN", uuid.Nil, "")
		return domain.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return fmt.Errorf("lookup reset token: %w", err)
	}

	now := s.clock.Now()
	if !s.resets.Consume(token, account.ResetTokenHash, account.ResetTokenExpiresAt, now) {
		s.logAuth(ctx, "PASSWORD_RESET_FAILED_INVALID_TOKEN", account.ID, account.Email)
		return domain.ErrInvalidOrExpiredToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	_, err = s.store.AtomicUpdate(ctx, account.ID, func(a *domain.Account) error {
		// Re-checked under the lock: a concurrent reset may have consumed the token.
		if !s.resets.Consume(token, a.ResetTokenHash, a.ResetTokenExpiresAt, now) {
			return domain.ErrInvalidOrExpiredToken
		}
		a.CredentialHash = hash
		a.ClearResetToken()
		a.UpdatedAt = now
		return nil
	})
	if errors.Is(err, domain.ErrInvalidOrExpiredToken) {
		s.logAuth(ctx, "PASSWORD_RESET_FAILED_INVALID_TOKEN", account.ID, account.Email)
		return domain.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	s.logAuth(ctx, "PASSWORD_RESET_SUCCESS", account.ID, account.Email)
	return nil
}

// ChangePassword replaces the credential of an authenticated account.
func (s *AccountService) ChangePassword(ctx context.Context, accountID uuid.UUID, currentPassword, newPassword string) error {
	if currentPassword == "" {
		return domain.NewValidationError("currentPassword", "current password is required")
	}
	if err := s.validator.ValidatePassword("newPassword", newPassword); err != nil {
		return err
	}

	account, err := s.store.FindByID(ctx, accountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return domain.ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("lookup account: %w", err)
	}

	if !s.hasher.Verify(currentPassword, account.CredentialHash) {
		s.logAuth(ctx, "PASSWORD_CHANGE_FAILED_INVALID_CURRENT", account.ID, account.Email)
		return domain.ErrUnauthorized
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	_, err = s.store.AtomicUpdate(ctx, account.ID, func(a *domain.Account) error {
		// The credential must not have changed since it was checked.
		if a.CredentialHash != account.CredentialHash {
			return domain.ErrUnauthorized
		}
		a.CredentialHash = hash
		a.UpdatedAt = now
		return nil
	})
	if errors.Is(err, domain.ErrUnauthorized) {
		return domain.ErrUnauthorized
	}
	if err != nil {
		return fmt.Errorf("change password: %w", err)
	}

	s.logAuth(ctx, "PASSWORD_CHANGED", account.ID, account.Email)
	return nil
}

// Refresh issues a new access token from a refresh token. The refresh token itself is
// not re-minted.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.tokens.VerifyType(trimSpace(refreshToken), TokenTypeRefresh)
	if err != nil {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	accountID, err := claims.AccountID()
	if err != nil {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	account, err := s.store.FindByID(ctx, accountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrInvalidOrExpiredToken
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if !account.Verified {
		return nil, domain.ErrInvalidOrExpiredToken
	}

	access, expiresAt, err := s.tokens.IssueSession(account.ID, account.Email, account.Verified)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}

	s.logAuth(ctx, "TOKEN_REFRESHED", account.ID, account.Email)

	return &domain.TokenPair{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokens.AccessTokenTTL().Seconds()),
		ExpiresAt:   expiresAt,
	}, nil
}

// Logout records the end of a session. Tokens are stateless, so nothing is revoked.
func (s *AccountService) Logout(ctx context.Context, account *domain.Account) {
	s.logAuth(ctx, "LOGOUT", account.ID, account.Email)
}

// Authenticate resolves an access token to its account. The account must still exist,
// be verified and not be locked.
func (s *AccountService) Authenticate(ctx context.Context, accessToken string) (*domain.Account, error) {
	claims, err := s.tokens.VerifyType(accessToken, TokenTypeAccess)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}
	accountID, err := claims.AccountID()
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	account, err := s.store.FindByID(ctx, accountID)
	if errors.Is(err, domain.ErrAccountNotFound) {
		return nil, domain.ErrUnauthorized
	}
	if err != nil {
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if !account.Verified {
		return nil, domain.ErrVerificationRequired
	}
	if account.IsLocked(s.clock.Now()) {
		return nil, domain.ErrAccountLocked
	}
	return account, nil
}

// GetProfile returns the public view of an account.
func (s *AccountService) GetProfile(ctx context.Context, accountID uuid.UUID) (*domain.PublicAccount, error) {
	account, err := s.store.FindByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	pub := account.Public()
	return &pub, nil
}

// UpdateProfile changes the display name and/or profile image. An image is stored
// before the account is updated; a storage failure leaves the account unchanged.
func (s *AccountService) UpdateProfile(ctx context.Context, accountID uuid.UUID, in UpdateProfileInput) (*domain.PublicAccount, error) {
	if in.Name != nil {
		name := SanitizeName(*in.Name)
		in.Name = &name
	}
	if err := s.validator.ValidateProfileUpdate(in); err != nil {
		return nil, err
	}
	if in.Image != nil && s.images == nil {
		return nil, domain.NewValidationError("profileImage", "image uploads are not enabled")
	}

	var (
		updated *domain.Account
		err     error
	)
	if in.Image != nil {
		updated, err = s.storeImage(ctx, accountID, in.Image, in.Name)
	} else {
		now := s.clock.Now()
		updated, err = s.store.AtomicUpdate(ctx, accountID, func(a *domain.Account) error {
			if in.Name != nil {
				a.DisplayName = *in.Name
				a.UpdatedAt = now
			}
			return nil
		})
	}
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, domain.ErrUnauthorized
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.logger.Info("profile updated", "account_id", updated.ID, "image_changed", in.Image != nil)

	pub := updated.Public()
	return &pub, nil
}

// storeImage uploads img and saves its URL, together with name when given.
func (s *AccountService) storeImage(ctx context.Context, accountID uuid.UUID, img *ImageUpload, name *string) (*domain.Account, error) {
	url, err := s.images.Store(ctx, accountID, *img)
	if err != nil {
		return nil, fmt.Errorf("store profile image: %w", err)
	}

	now := s.clock.Now()
	return s.store.AtomicUpdate(ctx, accountID, func(a *domain.Account) error {
		a.ProfileImageURL = &url
		if name != nil {
			a.DisplayName = *name
		}
		a.UpdatedAt = now
		return nil
	})
}
