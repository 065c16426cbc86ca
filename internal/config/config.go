package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	// Server
	ServerAddr   string
	ServerPort   int
	LogLevel     string
	CookieSecure bool

	// Storage
	StoreDriver    string
	MigrateOnStart bool

	// Database
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// JWT
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	// Account lifecycle
	VerificationCodeTTL time.Duration
	PasswordResetTTL    time.Duration
	MaxFailedAttempts   int
	LockoutDuration     time.Duration

	// Security and validation
	Hash            HashConfig
	PasswordPolicy  PasswordPolicyConfig
	Validation      ValidationConfig
	RateLimit       RateLimitConfig
	SecurityHeaders SecurityHeadersConfig

	// Collaborators
	SMTP  SMTPConfig
	Kafka KafkaConfig
	Redis RedisConfig
	S3    S3Config
}

// HashConfig selects the credential hashing algorithm and its work factor.
type HashConfig struct {
	Algorithm      string `yaml:"algorithm"`
	Argon2Time     int    `yaml:"argon2_time"`
	Argon2MemoryKB int    `yaml:"argon2_memory_kb"`
	Argon2Threads  int    `yaml:"argon2_threads"`
	BcryptCost     int    `yaml:"bcrypt_cost"`
}

// PasswordPolicyConfig holds password complexity requirements.
type PasswordPolicyConfig struct {
	MinLength        int  `yaml:"min_length"`
	MaxLength        int  `yaml:"max_length"`
	RequireUppercase bool `yaml:"require_uppercase"`
	RequireLowercase bool `yaml:"require_lowercase"`
	RequireNumber    bool `yaml:"require_number"`
	RequireSpecial   bool `yaml:"require_special"`
}

// ValidationConfig holds input validation settings.
type ValidationConfig struct {
	StrictEmailValidation bool  `yaml:"strict_email"`
	BlockDisposableEmail  bool  `yaml:"block_disposable_email"`
	MaxRequestBodySize    int64 `yaml:"max_request_body_size"`
	MaxImageSize          int64 `yaml:"max_image_size"`
}

// RateLimitConfig holds per-IP rate limits for each endpoint group.
type RateLimitConfig struct {
	Enabled                  bool `yaml:"enabled"`
	AuthRequestsPerMinute    int  `yaml:"auth_requests"`
	AuthWindowMinutes        int  `yaml:"auth_window_minutes"`
	ResetRequestsPerWindow   int  `yaml:"reset_requests"`
	ResetWindowMinutes       int  `yaml:"reset_window_minutes"`
	VerifyRequestsPerWindow  int  `yaml:"verify_requests"`
	VerifyWindowMinutes      int  `yaml:"verify_window_minutes"`
	RefreshRequestsPerMinute int  `yaml:"refresh_requests"`
	RefreshWindowMinutes     int  `yaml:"refresh_window_minutes"`
	ProfileRequestsPerMinute int  `yaml:"profile_requests"`
	ProfileWindowMinutes     int  `yaml:"profile_window_minutes"`
}

// SecurityHeadersConfig holds HTTP security header values.
type SecurityHeadersConfig struct {
	Enabled            bool   `yaml:"enabled"`
	CSP                string `yaml:"csp"`
	HSTSMaxAge         int    `yaml:"hsts_max_age"`
	FrameOptions       string `yaml:"frame_options"`
	ContentTypeOptions string `yaml:"content_type_options"`
	XSSProtection      string `yaml:"xss_protection"`
	ReferrerPolicy     string `yaml:"referrer_policy"`
	PermissionsPolicy  string `yaml:"permissions_policy"`
}

// SMTPConfig holds outbound mail settings.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	FromName string `yaml:"from_name"`
}

// KafkaConfig holds settings for publishing notification events.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// RedisConfig holds settings for the per-email throttle.
type RedisConfig struct {
	URL             string        `yaml:"url"`
	EmailLimit      int           `yaml:"email_limit"`
	EmailLimitTTL   time.Duration `yaml:"email_limit_window"`
	EmailLimitScope string        `yaml:"email_limit_scope"`
}

// S3Config holds settings for the profile image bucket.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PublicBaseURL   string `yaml:"public_base_url"`
	UsePathStyle    bool   `yaml:"use_path_style"`
}

// fileConfig mirrors the YAML layout of CONFIG_FILE.
type fileConfig struct {
	Server struct {
		Addr         string `yaml:"addr"`
		Port         int    `yaml:"port"`
		LogLevel     string `yaml:"log_level"`
		CookieSecure *bool  `yaml:"cookie_secure"`
	} `yaml:"server"`
	Store struct {
		Driver         string `yaml:"driver"`
		MigrateOnStart *bool  `yaml:"migrate_on_start"`
	} `yaml:"store"`
	Database struct {
		Host    string `yaml:"host"`
		Port    int    `yaml:"port"`
		User    string `yaml:"user"`
		Name    string `yaml:"name"`
		SSLMode string `yaml:"sslmode"`
	} `yaml:"database"`
	JWT struct {
		Issuer     string        `yaml:"issuer"`
		Audience   string        `yaml:"audience"`
		AccessTTL  time.Duration `yaml:"access_ttl"`
		RefreshTTL time.Duration `yaml:"refresh_ttl"`
	} `yaml:"jwt"`
	Hash            *HashConfig            `yaml:"hash"`
	PasswordPolicy  *PasswordPolicyConfig  `yaml:"password_policy"`
	Validation      *ValidationConfig      `yaml:"validation"`
	RateLimit       *RateLimitConfig       `yaml:"rate_limit"`
	SecurityHeaders *SecurityHeadersConfig `yaml:"security_headers"`
	SMTP            *SMTPConfig            `yaml:"smtp"`
	Kafka           *KafkaConfig           `yaml:"kafka"`
	Redis           *RedisConfig           `yaml:"redis"`
	S3              *S3Config              `yaml:"s3"`
}

// Load resolves configuration in priority order: defaults, then CONFIG_FILE, then environment.
// A .env file in the working directory is loaded first if present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(cfg, path); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		ServerAddr: "0.0.0.0",
		ServerPort: 8080,
		LogLevel:   "info",

		StoreDriver:    StoreDriverPostgres,
		MigrateOnStart: true,

		// Database defaults (matches podman setup: make postgres-start)
		DBHost:     "localhost",
		DBPort:     25432,
		DBUser:     "postgres",
		DBPassword: "postgres",
		DBName:     "simple_onboarding",
		DBSSLMode:  "disable",

		JWTIssuer:       "user-onboarding-api",
		JWTAudience:     "user-onboarding-client",
		AccessTokenTTL:  7 * 24 * time.Hour,
		RefreshTokenTTL: 30 * 24 * time.Hour,

		VerificationCodeTTL: time.Hour,
		PasswordResetTTL:    10 * time.Minute,
		MaxFailedAttempts:   5,
		LockoutDuration:     2 * time.Hour,

		Hash: HashConfig{
			Algorithm:      "argon2id",
			Argon2Time:     1,
			Argon2MemoryKB: 64 * 1024,
			Argon2Threads:  4,
			BcryptCost:     12,
		},
		PasswordPolicy: PasswordPolicyConfig{
			MinLength:        6,
			MaxLength:        128,
			RequireUppercase: true,
			RequireLowercase: true,
			RequireNumber:    true,
		},
		Validation: ValidationConfig{
			MaxRequestBodySize: 1 << 20,
			MaxImageSize:       5 << 20,
		},
		RateLimit: RateLimitConfig{
			Enabled:                  true,
			AuthRequestsPerMinute:    10,
			AuthWindowMinutes:        1,
			ResetRequestsPerWindow:   5,
			ResetWindowMinutes:       15,
			VerifyRequestsPerWindow:  10,
			VerifyWindowMinutes:      15,
			RefreshRequestsPerMinute: 30,
			RefreshWindowMinutes:     1,
			ProfileRequestsPerMinute: 30,
			ProfileWindowMinutes:     1,
		},
		SecurityHeaders: SecurityHeadersConfig{
			Enabled:            true,
			CSP:                "default-src 'none'; frame-ancestors 'none'",
			HSTSMaxAge:         31536000,
			FrameOptions:       "DENY",
			ContentTypeOptions: "nosniff",
			XSSProtection:      "1; mode=block",
			ReferrerPolicy:     "strict-origin-when-cross-origin",
			PermissionsPolicy:  "geolocation=(), microphone=(), camera=()",
		},
		SMTP: SMTPConfig{
			Port:     587,
			FromName: "User Onboarding",
		},
		Kafka: KafkaConfig{
			Topic: "account-notifications",
		},
		Redis: RedisConfig{
			EmailLimit:      5,
			EmailLimitTTL:   15 * time.Minute,
			EmailLimitScope: "onboarding",
		},
		S3: S3Config{
			Region: "us-east-1",
		},
	}
}

func applyFile(cfg *Config, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var f fileConfig
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}

	if f.Server.Addr != "" {
		cfg.ServerAddr = f.Server.Addr
	}
	if f.Server.Port > 0 {
		cfg.ServerPort = f.Server.Port
	}
	if f.Server.LogLevel != "" {
		cfg.LogLevel = f.Server.LogLevel
	}
	if f.Server.CookieSecure != nil {
		cfg.CookieSecure = *f.Server.CookieSecure
	}
	if f.Store.Driver != "" {
		cfg.StoreDriver = f.Store.Driver
	}
	if f.Store.MigrateOnStart != nil {
		cfg.MigrateOnStart = *f.Store.MigrateOnStart
	}
	if f.Database.Host != "" {
		cfg.DBHost = f.Database.Host
	}
	if f.Database.Port > 0 {
		cfg.DBPort = f.Database.Port
	}
	if f.Database.User != "" {
		cfg.DBUser = f.Database.User
	}
	if f.Database.Name != "" {
		cfg.DBName = f.Database.Name
	}
	if f.Database.SSLMode != "" {
		cfg.DBSSLMode = f.Database.SSLMode
	}
	if f.JWT.Issuer != "" {
		cfg.JWTIssuer = f.JWT.Issuer
	}
	if f.JWT.Audience != "" {
		cfg.JWTAudience = f.JWT.Audience
	}
	if f.JWT.AccessTTL > 0 {
		cfg.AccessTokenTTL = f.JWT.AccessTTL
	}
	if f.JWT.RefreshTTL > 0 {
		cfg.RefreshTokenTTL = f.JWT.RefreshTTL
	}

	// Sections replace their defaults wholesale when present.
	if f.Hash != nil {
		cfg.Hash = *f.Hash
	}
	if f.PasswordPolicy != nil {
		cfg.PasswordPolicy = *f.PasswordPolicy
	}
	if f.Validation != nil {
		cfg.Validation = *f.Validation
	}
	if f.RateLimit != nil {
		cfg.RateLimit = *f.RateLimit
	}
	if f.SecurityHeaders != nil {
		cfg.SecurityHeaders = *f.SecurityHeaders
	}
	if f.SMTP != nil {
		cfg.SMTP = *f.SMTP
	}
	if f.Kafka != nil {
		cfg.Kafka = *f.Kafka
	}
	if f.Redis != nil {
		cfg.Redis = *f.Redis
	}
	if f.S3 != nil {
		cfg.S3 = *f.S3
	}

	return nil
}

func applyEnv(cfg *Config) {
	cfg.ServerAddr = getEnv("SERVER_ADDR", cfg.ServerAddr)
	cfg.ServerPort = getEnvInt("SERVER_PORT", cfg.ServerPort)
	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
	cfg.CookieSecure = getEnvBool("COOKIE_SECURE", cfg.CookieSecure)

	cfg.StoreDriver = strings.ToLower(getEnv("STORE_DRIVER", cfg.StoreDriver))
	cfg.MigrateOnStart = getEnvBool("MIGRATE_ON_START", cfg.MigrateOnStart)

	cfg.DBHost = getEnv("DB_HOST", cfg.DBHost)
	cfg.DBPort = getEnvInt("DB_PORT", cfg.DBPort)
	cfg.DBUser = getEnv("DB_USER", cfg.DBUser)
	cfg.DBPassword = getEnv("DB_PASSWORD", cfg.DBPassword)
	cfg.DBName = getEnv("DB_NAME", cfg.DBName)
	cfg.DBSSLMode = getEnv("DB_SSLMODE", cfg.DBSSLMode)

	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.JWTIssuer = getEnv("JWT_ISSUER", cfg.JWTIssuer)
	cfg.JWTAudience = getEnv("JWT_AUDIENCE", cfg.JWTAudience)
	cfg.AccessTokenTTL = getEnvDuration("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL)
	cfg.RefreshTokenTTL = getEnvDuration("REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL)

	cfg.VerificationCodeTTL = getEnvDuration("VERIFICATION_CODE_TTL", cfg.VerificationCodeTTL)
	cfg.PasswordResetTTL = getEnvDuration("PASSWORD_RESET_TTL", cfg.PasswordResetTTL)
	cfg.MaxFailedAttempts = getEnvInt("MAX_FAILED_LOGIN_ATTEMPTS", cfg.MaxFailedAttempts)
	cfg.LockoutDuration = getEnvDuration("LOCKOUT_DURATION", cfg.LockoutDuration)

	cfg.Hash.Algorithm = getEnv("PASSWORD_HASH_ALGORITHM", cfg.Hash.Algorithm)
	cfg.Hash.Argon2Time = getEnvInt("ARGON2_TIME", cfg.Hash.Argon2Time)
	cfg.Hash.Argon2MemoryKB = getEnvInt("ARGON2_MEMORY_KB", cfg.Hash.Argon2MemoryKB)
	cfg.Hash.Argon2Threads = getEnvInt("ARGON2_THREADS", cfg.Hash.Argon2Threads)
	cfg.Hash.BcryptCost = getEnvInt("BCRYPT_COST", cfg.Hash.BcryptCost)

	cfg.PasswordPolicy.MinLength = getEnvInt("PASSWORD_MIN_LENGTH", cfg.PasswordPolicy.MinLength)
	cfg.PasswordPolicy.MaxLength = getEnvInt("PASSWORD_MAX_LENGTH", cfg.PasswordPolicy.MaxLength)
	cfg.PasswordPolicy.RequireUppercase = getEnvBool("PASSWORD_REQUIRE_UPPERCASE", cfg.PasswordPolicy.RequireUppercase)
	cfg.PasswordPolicy.RequireLowercase = getEnvBool("PASSWORD_REQUIRE_LOWERCASE", cfg.PasswordPolicy.RequireLowercase)
	cfg.PasswordPolicy.RequireNumber = getEnvBool("PASSWORD_REQUIRE_NUMBER", cfg.PasswordPolicy.RequireNumber)
	cfg.PasswordPolicy.RequireSpecial = getEnvBool("PASSWORD_REQUIRE_SPECIAL", cfg.PasswordPolicy.RequireSpecial)

	cfg.Validation.StrictEmailValidation = getEnvBool("STRICT_EMAIL_VALIDATION", cfg.Validation.StrictEmailValidation)
	cfg.Validation.BlockDisposableEmail = getEnvBool("BLOCK_DISPOSABLE_EMAIL", cfg.Validation.BlockDisposableEmail)
	cfg.Validation.MaxRequestBodySize = getEnvInt64("MAX_REQUEST_BODY_SIZE", cfg.Validation.MaxRequestBodySize)
	cfg.Validation.MaxImageSize = getEnvInt64("MAX_IMAGE_SIZE", cfg.Validation.MaxImageSize)

	cfg.RateLimit.Enabled = getEnvBool("RATE_LIMIT_ENABLED", cfg.RateLimit.Enabled)
	cfg.RateLimit.AuthRequestsPerMinute = getEnvInt("RATE_LIMIT_AUTH_REQUESTS", cfg.RateLimit.AuthRequestsPerMinute)
	cfg.RateLimit.AuthWindowMinutes = getEnvInt("RATE_LIMIT_AUTH_WINDOW_MINUTES", cfg.RateLimit.AuthWindowMinutes)
	cfg.RateLimit.ResetRequestsPerWindow = getEnvInt("RATE_LIMIT_RESET_REQUESTS", cfg.RateLimit.ResetRequestsPerWindow)
	cfg.RateLimit.ResetWindowMinutes = getEnvInt("RATE_LIMIT_RESET_WINDOW_MINUTES", cfg.RateLimit.ResetWindowMinutes)
	cfg.RateLimit.VerifyRequestsPerWindow = getEnvInt("RATE_LIMIT_VERIFY_REQUESTS", cfg.RateLimit.VerifyRequestsPerWindow)
	cfg.RateLimit.VerifyWindowMinutes = getEnvInt("RATE_LIMIT_VERIFY_WINDOW_MINUTES", cfg.RateLimit.VerifyWindowMinutes)
	cfg.RateLimit.RefreshRequestsPerMinute = getEnvInt("RATE_LIMIT_REFRESH_REQUESTS", cfg.RateLimit.RefreshRequestsPerMinute)
	cfg.RateLimit.RefreshWindowMinutes = getEnvInt("RATE_LIMIT_REFRESH_WINDOW_MINUTES", cfg.RateLimit.RefreshWindowMinutes)
	cfg.RateLimit.ProfileRequestsPerMinute = getEnvInt("RATE_LIMIT_PROFILE_REQUESTS", cfg.RateLimit.ProfileRequestsPerMinute)
	cfg.RateLimit.ProfileWindowMinutes = getEnvInt("RATE_LIMIT_PROFILE_WINDOW_MINUTES", cfg.RateLimit.ProfileWindowMinutes)

	cfg.SecurityHeaders.Enabled = getEnvBool("SECURITY_HEADERS_ENABLED", cfg.SecurityHeaders.Enabled)
	cfg.SecurityHeaders.CSP = getEnv("SECURITY_HEADERS_CSP", cfg.SecurityHeaders.CSP)
	cfg.SecurityHeaders.HSTSMaxAge = getEnvInt("SECURITY_HEADERS_HSTS_MAX_AGE", cfg.SecurityHeaders.HSTSMaxAge)

	cfg.SMTP.Host = getEnv("SMTP_HOST", cfg.SMTP.Host)
	cfg.SMTP.Port = getEnvInt("SMTP_PORT", cfg.SMTP.Port)
	cfg.SMTP.User = getEnv("SMTP_USER", cfg.SMTP.User)
	cfg.SMTP.Password = getEnv("SMTP_PASSWORD", cfg.SMTP.Password)
	cfg.SMTP.From = getEnv("SMTP_FROM", cfg.SMTP.From)
	cfg.SMTP.FromName = getEnv("SMTP_FROM_NAME", cfg.SMTP.FromName)

	cfg.Kafka.Brokers = getEnvCSV("KAFKA_BROKERS", cfg.Kafka.Brokers)
	cfg.Kafka.Topic = getEnv("KAFKA_TOPIC", cfg.Kafka.Topic)

	cfg.Redis.URL = getEnv("REDIS_URL", cfg.Redis.URL)
	cfg.Redis.EmailLimit = getEnvInt("REDIS_EMAIL_LIMIT", cfg.Redis.EmailLimit)
	cfg.Redis.EmailLimitTTL = getEnvDuration("REDIS_EMAIL_LIMIT_WINDOW", cfg.Redis.EmailLimitTTL)

	cfg.S3.Bucket = getEnv("S3_BUCKET", cfg.S3.Bucket)
	cfg.S3.Region = getEnv("S3_REGION", cfg.S3.Region)
	cfg.S3.Endpoint = getEnv("S3_ENDPOINT", cfg.S3.Endpoint)
	cfg.S3.AccessKeyID = getEnv("S3_ACCESS_KEY_ID", cfg.S3.AccessKeyID)
	cfg.S3.SecretAccessKey = getEnv("S3_SECRET_ACCESS_KEY", cfg.S3.SecretAccessKey)
	cfg.S3.PublicBaseURL = getEnv("S3_PUBLIC_BASE_URL", cfg.S3.PublicBaseURL)
	cfg.S3.UsePathStyle = getEnvBool("S3_USE_PATH_STYLE", cfg.S3.UsePathStyle)
}

func (c *Config) validate() error {
	// Validate required fields
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.StoreDriver)
	}
	if c.MaxFailedAttempts <= 0 {
		return errors.New("MAX_FAILED_LOGIN_ATTEMPTS must be positive")
	}
	return nil
}

// HasSMTP returns true if outbound email is configured.
func (c *Config) HasSMTP() bool {
	return c.SMTP.Host != "" && c.SMTP.From != ""
}

// HasKafka returns true if notification events should be published to Kafka.
func (c *Config) HasKafka() bool {
	return len(c.Kafka.Brokers) > 0 && c.Kafka.Topic != ""
}

// HasRedis returns true if the per-email throttle is configured.
func (c *Config) HasRedis() bool {
	return c.Redis.URL != ""
}

// HasS3 returns true if profile image uploads are configured.
func (c *Config) HasS3() bool {
	return c.S3.Bucket != ""
}

// SlogLevel maps LogLevel to a slog level. Unknown values are treated as info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvCSV(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
