package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-onboarding/idm"
	"github.com/tendant/simple-onboarding/internal/config"
	"github.com/tendant/simple-onboarding/internal/notification"
	"github.com/tendant/simple-onboarding/internal/storage"
	"github.com/tendant/simple-onboarding/internal/throttle"
	"github.com/tendant/simple-onboarding/pkg/auth"
	"github.com/tendant/simple-onboarding/pkg/repository"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx := context.Background()

	// Connect to database
	var db *sql.DB
	if cfg.StoreDriver == config.StoreDriverPostgres {
		var err error
		db, err = repository.NewDB(repository.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		logger.Info("connected to database")
	} else {
		logger.Warn("using in-memory account store; accounts are lost on restart")
	}

	hasher, err := auth.NewHasher(cfg.Hash.Algorithm, auth.Argon2Params{
		Time:    uint32(cfg.Hash.Argon2Time),
		Memory:  uint32(cfg.Hash.Argon2MemoryKB),
		Threads: uint8(cfg.Hash.Argon2Threads),
	}, cfg.Hash.BcryptCost)
	if err != nil {
		return err
	}

	notifier, closeNotifier, err := buildNotifier(cfg, logger)
	if err != nil {
		return err
	}
	defer closeNotifier()

	// Profile images (optional)
	var images auth.ImageStore
	if cfg.HasS3() {
		store, err := storage.NewS3ImageStore(ctx, storage.S3Config{
			Bucket:          cfg.S3.Bucket,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			PublicBaseURL:   cfg.S3.PublicBaseURL,
			UsePathStyle:    cfg.S3.UsePathStyle,
		})
		if err != nil {
			return fmt.Errorf("configure s3: %w", err)
		}
		images = store
		logger.Info("profile image uploads enabled", "bucket", cfg.S3.Bucket)
	}

	onboarding := idm.Config{
		DB:                  db,
		RunMigrations:       cfg.MigrateOnStart,
		JWTSecret:           cfg.JWTSecret,
		JWTIssuer:           cfg.JWTIssuer,
		JWTAudience:         cfg.JWTAudience,
		AccessTokenTTL:      cfg.AccessTokenTTL,
		RefreshTokenTTL:     cfg.RefreshTokenTTL,
		VerificationCodeTTL: cfg.VerificationCodeTTL,
		PasswordResetTTL:    cfg.PasswordResetTTL,
		MaxFailedAttempts:   cfg.MaxFailedAttempts,
		LockoutDuration:     cfg.LockoutDuration,
		Hasher:              hasher,
		PasswordPolicy:      cfg.PasswordPolicy,
		Validation:          cfg.Validation,
		Notifier:            notifier,
		Images:              images,
		RateLimit:           cfg.RateLimit,
		SecurityHeaders:     cfg.SecurityHeaders,
		CookieSecure:        cfg.CookieSecure,
		Logger:              logger,
	}

	// Per-email throttle (optional)
	if cfg.HasRedis() {
		client, err := throttle.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("connect to redis: %w", err)
		}
		defer client.Close()
		onboarding.EmailLimiter = throttle.NewRedisLimiter(client, cfg.Redis.EmailLimit, cfg.Redis.EmailLimitTTL, cfg.Redis.EmailLimitScope, logger)
		logger.Info("per-email throttle enabled", "limit", cfg.Redis.EmailLimit, "window", cfg.Redis.EmailLimitTTL)
	}

	app, err := idm.New(onboarding)
	if err != nil {
		return err
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      app.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
	return nil
}

// buildNotifier fans out to SMTP and Kafka when configured and falls back to logging.
func buildNotifier(cfg *config.Config, logger *slog.Logger) (auth.Notifier, func(), error) {
	var (
		fanout  notification.Fanout
		closers []func() error
	)

	if cfg.HasSMTP() {
		fanout = append(fanout, notification.NewEmailService(notification.EmailConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			User:     cfg.SMTP.User,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			FromName: cfg.SMTP.FromName,
			CodeTTL:  cfg.VerificationCodeTTL,
			ResetTTL: cfg.PasswordResetTTL,
		}))
		logger.Info("email service enabled")
	}

	if cfg.HasKafka() {
		kafka, err := notification.NewKafkaNotifier(notification.KafkaNotifierConfig{
			Brokers:  cfg.Kafka.Brokers,
			Topic:    cfg.Kafka.Topic,
			CodeTTL:  cfg.VerificationCodeTTL,
			ResetTTL: cfg.PasswordResetTTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("configure kafka: %w", err)
		}
		fanout = append(fanout, kafka)
		closers = append(closers, kafka.Close)
		logger.Info("kafka notifications enabled", "topic", cfg.Kafka.Topic)
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Error("failed to close notifier", "error", err)
			}
		}
	}

	if len(fanout) == 0 {
		logger.Warn("no notifier configured; verification codes and reset tokens will not be delivered")
		return notification.NewLogNotifier(logger), closeAll, nil
	}
	return fanout, closeAll, nil
}
