package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/tendant/simple-onboarding/pkg/domain"
)

const uniqueViolation = "23505"

const accountColumns = `
	id, email, credential_hash, display_name, profile_image_url, verified,
	verification_code, verification_code_expires_at, failed_login_count, locked_until,
	last_login_at, reset_token_hash, reset_token_expires_at, created_at, updated_at`

// AccountsRepository handles account persistence in Postgres.
type AccountsRepository struct {
	db *sql.DB
}

// NewAccountsRepository creates a new accounts repository.
func NewAccountsRepository(db *sql.DB) *AccountsRepository {
	return &AccountsRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	a := &domain.Account{}
	err := row.Scan(
		&a.ID, &a.Email, &a.CredentialHash, &a.DisplayName, &a.ProfileImageURL, &a.Verified,
		&a.VerificationCode, &a.VerificationCodeExpiresAt, &a.FailedLoginCount, &a.LockedUntil,
		&a.LastLoginAt, &a.ResetTokenHash, &a.ResetTokenExpiresAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AccountsRepository) findOne(ctx context.Context, where string, arg any) (*domain.Account, error) {
	query := `SELECT` + accountColumns + ` FROM accounts WHERE ` + where
	return scanAccount(r.db.QueryRowContext(ctx, query, arg))
}

// FindByEmail retrieves an account by its normalized email.
func (r *AccountsRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, "email = $1", email)
}

// FindByID retrieves an account by ID.
func (r *AccountsRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	return r.findOne(ctx, "id = $1", id)
}

// FindByVerificationCode retrieves the account holding an outstanding verification code.
func (r *AccountsRepository) FindByVerificationCode(ctx context.Context, code string) (*domain.Account, error) {
	return r.findOne(ctx, "verification_code = $1", code)
}

// FindByResetTokenHash retrieves the account holding a reset token hash.
func (r *AccountsRepository) FindByResetTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error) {
	return r.findOne(ctx, "reset_token_hash = $1", tokenHash)
}

// Create inserts a new account.
func (r *AccountsRepository) Create(ctx context.Context, a *domain.Account) error {
	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Email, a.CredentialHash, a.DisplayName, a.ProfileImageURL, a.Verified,
		a.VerificationCode, a.VerificationCodeExpiresAt, a.FailedLoginCount, a.LockedUntil,
		a.LastLoginAt, a.ResetTokenHash, a.ResetTokenExpiresAt, a.CreatedAt, a.UpdatedAt,
	)
	return mapConstraintError(err)
}

// AtomicUpdate locks the account row, applies fn and writes the result in one transaction.
func (r *AccountsRepository) AtomicUpdate(ctx context.Context, id uuid.UUID, fn func(*domain.Account) error) (*domain.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	account, err := scanAccount(tx.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if err := fn(account); err != nil {
		return nil, err
	}

	update := `
		UPDATE accounts
		SET display_name = $2, profile_image_url = $3, verified = $4, credential_hash = $5,
		    verification_code = $6, verification_code_expires_at = $7,
		    failed_login_count = $8, locked_until = $9, last_login_at = $10,
		    reset_token_hash = $11, reset_token_expires_at = $12, updated_at = $13
		WHERE id = $1
	`
	_, err = tx.ExecContext(ctx, update,
		account.ID, account.DisplayName, account.ProfileImageURL, account.Verified, account.CredentialHash,
		account.VerificationCode, account.VerificationCodeExpiresAt,
		account.FailedLoginCount, account.LockedUntil, account.LastLoginAt,
		account.ResetTokenHash, account.ResetTokenExpiresAt, account.UpdatedAt,
	)
	if err != nil {
		return nil, mapConstraintError(err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return account, nil
}

// mapConstraintError translates unique violations into domain errors.
func mapConstraintError(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != uniqueViolation {
		return err
	}
	switch pqErr.Constraint {
	case "accounts_email_key":
		return domain.ErrAccountExists
	case "accounts_verification_code_key":
		return domain.ErrVerificationCodeTaken
	default:
		return err
	}
}
