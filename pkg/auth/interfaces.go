package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/tendant/simple-onboarding/pkg/domain"
)

// AccountStore persists accounts. Lookups return domain.ErrAccountNotFound when nothing matches.
type AccountStore interface {
	FindByEmail(ctx context.Context, email string) (*domain.Account, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	FindByVerificationCode(ctx context.Context, code string) (*domain.Account, error)
	FindByResetTokenHash(ctx context.Context, tokenHash string) (*domain.Account, error)

	// Create inserts a new account. It returns domain.ErrAccountExists for a taken email
	// and domain.ErrVerificationCodeTaken for a colliding verification code.
	Create(ctx context.Context, account *domain.Account) error

	// AtomicUpdate loads the account, applies fn and persists the result as one
	// serialized step per account. Nothing is written if fn returns an error.
	AtomicUpdate(ctx context.Context, id uuid.UUID, fn func(*domain.Account) error) (*domain.Account, error)
}

// Notifier delivers account emails.
type Notifier interface {
	SendVerificationCode(ctx context.Context, email, name, code string) error
	SendPasswordReset(ctx context.Context, email, name, token string) error
	SendWelcome(ctx context.Context, email, name string) error
}

// ImageStore stores profile images and returns their public URL.
type ImageStore interface {
	Store(ctx context.Context, accountID uuid.UUID, image ImageUpload) (string, error)
}

// ImageUpload is a profile image submitted by a client.
type ImageUpload struct {
	Filename    string
	ContentType string
	Data        []byte
}
