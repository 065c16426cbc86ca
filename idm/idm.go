// Package idm provides an embeddable user onboarding service: registration with
// emailed verification codes, login with lockout, password reset, JWT sessions and
// profile management.
//
// Setup:
//
//  1. Run migrations (see pkg/repository/migrations) or set RunMigrations
//  2. Create an IDM instance and mount its router
//
// Basic usage:
//
//	db, _ := sql.Open("postgres", "postgres://localhost/myapp?sslmode=disable")
//
//	onboarding, err := idm.New(idm.Config{
//	    DB:        db,
//	    JWTSecret: "your-secret-key-at-least-32-chars",
//	    Notifier:  myMailer,
//	})
//	if err != nil {
//	    log.Fatal(err) // Will fail if migrations haven't been run
//	}
//
//	http.ListenAndServe(":8080", onboarding.Router())
//
// Without a DB the accounts are kept in memory, which suits tests and demos.
package idm

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/tendant/simple-onboarding/internal/config"
	httpserver "github.com/tendant/simple-onboarding/internal/http"
	"github.com/tendant/simple-onboarding/internal/http/middleware"
	"github.com/tendant/simple-onboarding/internal/httputil"
	"github.com/tendant/simple-onboarding/internal/throttle"
	"github.com/tendant/simple-onboarding/pkg/auth"
	"github.com/tendant/simple-onboarding/pkg/domain"
	"github.com/tendant/simple-onboarding/pkg/repository"
)

// Config holds the configuration for the onboarding library.
type Config struct {
	// DB is the Postgres connection. When nil, accounts are kept in memory.
	DB *sql.DB

	// RunMigrations applies the embedded schema before the schema check.
	RunMigrations bool

	// JWTSecret is the secret key for signing JWT tokens (required, min 32 chars).
	JWTSecret string

	// JWTIssuer and JWTAudience default to "user-onboarding-api" and "user-onboarding-client".
	JWTIssuer   string
	JWTAudience string

	// AccessTokenTTL is the lifetime of access tokens (default: 7 days).
	AccessTokenTTL time.Duration

	// RefreshTokenTTL is the lifetime of refresh tokens (default: 30 days).
	RefreshTokenTTL time.Duration

	// Account lifecycle settings; zero values use the defaults (1h, 10m, 5, 2h).
	VerificationCodeTTL time.Duration
	PasswordResetTTL    time.Duration
	MaxFailedAttempts   int
	LockoutDuration     time.Duration

	// Hasher hashes credentials (default: Argon2id that also verifies bcrypt hashes).
	Hasher auth.Hasher

	// PasswordPolicy and Validation tune input checks.
	PasswordPolicy config.PasswordPolicyConfig
	Validation     config.ValidationConfig

	// Notifier delivers codes and reset tokens (optional).
	Notifier auth.Notifier

	// Images stores profile images (optional; uploads are rejected without it).
	Images auth.ImageStore

	// EmailLimiter throttles forgot-password and resend requests per address (optional).
	EmailLimiter throttle.EmailLimiter

	// HTTP surface settings.
	RateLimit       config.RateLimitConfig
	SecurityHeaders config.SecurityHeadersConfig
	CookieSecure    bool

	// Logger is the structured logger (default: slog.Default()).
	Logger *slog.Logger
}

// IDM is the main onboarding instance.
type IDM struct {
	config  Config
	service *auth.AccountService
	router  http.Handler
}

// New creates a new IDM instance with the given configuration.
// Returns an error if the accounts table does not exist and RunMigrations is off.
func New(cfg Config) (*IDM, error) {
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)

	var store auth.AccountStore
	if cfg.DB != nil {
		if cfg.RunMigrations {
			if err := repository.RunMigrations(context.Background(), cfg.DB); err != nil {
				return nil, fmt.Errorf("idm: %w", err)
			}
		}
		if err := validateSchema(cfg.DB); err != nil {
			return nil, err
		}
		store = repository.NewAccountsRepository(cfg.DB)
	} else {
		store = repository.NewMemoryAccountsRepository()
	}

	tokens, err := auth.NewTokenIssuer(auth.TokenConfig{
		Secret:          []byte(cfg.JWTSecret),
		Issuer:          cfg.JWTIssuer,
		Audience:        cfg.JWTAudience,
		AccessTokenTTL:  cfg.AccessTokenTTL,
		RefreshTokenTTL: cfg.RefreshTokenTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("idm: %w", err)
	}

	policy := auth.NewPasswordPolicy(cfg.PasswordPolicy)
	policy.MaxBytes = auth.MaxPasswordBytes(cfg.Hasher)

	service, err := auth.NewAccountService(auth.AccountServiceDeps{
		Store:   store,
		Hasher:  cfg.Hasher,
		Tokens:  tokens,
		Codes:   auth.NewCodeIssuer(cfg.VerificationCodeTTL),
		Lockout: auth.NewLockout(cfg.MaxFailedAttempts, cfg.LockoutDuration),
		Resets:  auth.NewResetTokenIssuer(cfg.PasswordResetTTL),
		Validator: auth.NewValidator(auth.ValidatorOptions{
			Policy:          policy,
			StrictEmail:     cfg.Validation.StrictEmailValidation,
			BlockDisposable: cfg.Validation.BlockDisposableEmail,
			MaxImageSize:    cfg.Validation.MaxImageSize,
		}),
		Notifier: cfg.Notifier,
		Images:   cfg.Images,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("idm: %w", err)
	}

	i := &IDM{config: cfg, service: service}
	i.router = httpserver.NewRouter(httpserver.RouterConfig{
		Logger:          cfg.Logger,
		AccountService:  service,
		EmailLimiter:    cfg.EmailLimiter,
		HealthCheck:     i.ping,
		RateLimitConfig: cfg.RateLimit,
		SecurityHeaders: cfg.SecurityHeaders,
		Validation:      cfg.Validation,
		CookieSecure:    cfg.CookieSecure,
	})
	return i, nil
}

// Router returns the HTTP handler with all routes.
//
// Routes:
//
//	POST /v1/auth/register             - Register (JSON or multipart with profileImage)
//	GET  /v1/auth/verify/{code}        - Verify with code
//	POST /v1/auth/verify               - Verify with email and code
//	POST /v1/auth/resend-verification  - Send a new code
//	POST /v1/auth/login                - Login with email/password
//	POST /v1/auth/refresh              - Refresh access token
//	POST /v1/auth/logout               - Logout (protected)
//	POST /v1/auth/forgot-password      - Request a reset token
//	POST /v1/auth/reset-password       - Reset password with token
//	GET  /v1/auth/password-policy      - Password requirements
//	GET  /v1/me                        - Get profile (protected)
//	PUT  /v1/me                        - Update profile (protected)
//	PUT  /v1/me/password               - Change password (protected)
//	GET  /health                       - Health check
func (i *IDM) Router() http.Handler {
	return i.router
}

// Service returns the account service for advanced usage.
func (i *IDM) Service() *auth.AccountService {
	return i.service
}

// AuthMiddleware returns middleware that validates access tokens.
// Use this to protect your own routes:
//
//	r.Group(func(r chi.Router) {
//	    r.Use(onboarding.AuthMiddleware())
//	    r.Get("/protected", handler)
//	})
func (i *IDM) AuthMiddleware() func(http.Handler) http.Handler {
	return middleware.Auth(i.service, i.config.Logger)
}

// GetAccountID extracts the account ID from a request.
// Use after AuthMiddleware.
func GetAccountID(r *http.Request) (uuid.UUID, bool) {
	return middleware.GetAccountID(r.Context())
}

// GetAccount returns the public profile of the signed-in account.
// Use after AuthMiddleware.
func (i *IDM) GetAccount(r *http.Request) (*domain.PublicAccount, error) {
	id, ok := middleware.GetAccountID(r.Context())
	if !ok {
		return nil, errors.New("account not authenticated")
	}
	return i.service.GetProfile(r.Context(), id)
}

// HealthHandler returns a health check handler that pings the database when present.
func (i *IDM) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := i.ping(r.Context()); err != nil {
			httputil.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (i *IDM) ping(ctx context.Context) error {
	if i.config.DB == nil {
		return nil
	}
	return i.config.DB.PingContext(ctx)
}

func validateConfig(cfg *Config) error {
	if cfg.JWTSecret == "" {
		return errors.New("idm: JWTSecret is required")
	}
	if len(cfg.JWTSecret) < 32 {
		return errors.New("idm: JWTSecret must be at least 32 characters")
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	if cfg.Hasher == nil {
		argon := auth.NewArgon2Hasher(auth.DefaultArgon2Params())
		cfg.Hasher = auth.NewMultiHasher(argon, argon, auth.NewBcryptHasher(0))
	}
	if cfg.VerificationCodeTTL == 0 {
		cfg.VerificationCodeTTL = auth.DefaultVerificationCodeTTL
	}
	if cfg.PasswordResetTTL == 0 {
		cfg.PasswordResetTTL = auth.DefaultPasswordResetTTL
	}
	if cfg.MaxFailedAttempts == 0 {
		cfg.MaxFailedAttempts = auth.DefaultMaxFailedAttempts
	}
	if cfg.LockoutDuration == 0 {
		cfg.LockoutDuration = auth.DefaultLockoutDuration
	}
	if cfg.PasswordPolicy == (config.PasswordPolicyConfig{}) {
		cfg.PasswordPolicy = config.PasswordPolicyConfig{
			MinLength:        6,
			MaxLength:        128,
			RequireUppercase: true,
			RequireLowercase: true,
			RequireNumber:    true,
		}
	}
	if cfg.Validation.MaxRequestBodySize == 0 {
		cfg.Validation.MaxRequestBodySize = 1 << 20
	}
}

// validateSchema checks that the accounts table exists.
func validateSchema(db *sql.DB) error {
	query := `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_name = $1
	`

	var name string
	err := db.QueryRow(query, "accounts").Scan(&name)
	if err == sql.ErrNoRows {
		return errors.New("idm: missing table 'accounts' - run migrations first (see pkg/repository/migrations)")
	}
	if err != nil {
		return fmt.Errorf("idm: failed to check schema: %w", err)
	}
	return nil
}
