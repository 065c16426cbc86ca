package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/tendant/simple-onboarding/pkg/domain"
)

// MemoryAccountsRepository keeps accounts in process memory. Updates to one account
// are serialized by a per-account mutex; lookups return copies.
type MemoryAccountsRepository struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
	byEmail  map[string]uuid.UUID
	byCode   map[string]uuid.UUID
	byReset  map[string]uuid.UUID
	locks    map[uuid.UUID]*sync.Mutex
}

// NewMemoryAccountsRepository creates an empty in-memory account store.
func NewMemoryAccountsRepository() *MemoryAccountsRepository {
	return &MemoryAccountsRepository{
		accounts: make(map[uuid.UUID]*domain.Account),
		byEmail:  make(map[string]uuid.UUID),
		byCode:   make(map[string]uuid.UUID),
		byReset:  make(map[string]uuid.UUID),
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

func (r *MemoryAccountsRepository) find(index map[string]uuid.UUID, key string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := index[key]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return r.accounts[id].Clone(), nil
}

// FindByEmail retrieves an account by its normalized email.
func (r *MemoryAccountsRepository) FindByEmail(_ context.Context, email string) (*domain.Account, error) {
	return r.find(r.byEmail, email)
}

// FindByID retrieves an account by ID.
func (r *MemoryAccountsRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	return a.Clone(), nil
}

// FindByVerificationCode retrieves the account holding an outstanding verification code.
func (r *MemoryAccountsRepository) FindByVerificationCode(_ context.Context, code string) (*domain.Account, error) {
	return r.find(r.byCode, code)
}

// FindByResetTokenHash retrieves the account holding a reset token hash.
func (r *MemoryAccountsRepository) FindByResetTokenHash(_ context.Context, tokenHash string) (*domain.Account, error) {
	return r.find(r.byReset, tokenHash)
}

// Create inserts a new account.
func (r *MemoryAccountsRepository) Create(_ context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byEmail[a.Email]; ok {
		return domain.ErrAccountExists
	}
	if a.VerificationCode != nil {
		if _, ok := r.byCode[*a.VerificationCode]; ok {
			return domain.ErrVerificationCodeTaken
		}
	}

	stored := a.Clone()
	r.accounts[a.ID] = stored
	r.locks[a.ID] = &sync.Mutex{}
	r.index(nil, stored)
	return nil
}

// AtomicUpdate applies fn to a copy of the account while holding its mutex and stores
// the result only when fn succeeds.
func (r *MemoryAccountsRepository) AtomicUpdate(_ context.Context, id uuid.UUID, fn func(*domain.Account) error) (*domain.Account, error) {
	r.mu.RLock()
	lock, ok := r.locks[id]
	r.mu.RUnlock()
	if !ok {
		return nil, domain.ErrAccountNotFound
	}

	lock.Lock()
	defer lock.Unlock()

	r.mu.RLock()
	current := r.accounts[id]
	r.mu.RUnlock()

	working := current.Clone()
	if err := fn(working); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if working.VerificationCode != nil {
		if owner, ok := r.byCode[*working.VerificationCode]; ok && owner != id {
			return nil, domain.ErrVerificationCodeTaken
		}
	}

	r.index(current, working)
	r.accounts[id] = working
	return working.Clone(), nil
}

// index moves secondary index entries from prev to next. Callers hold r.mu.
func (r *MemoryAccountsRepository) index(prev, next *domain.Account) {
	if prev != nil {
		delete(r.byEmail, prev.Email)
		if prev.VerificationCode != nil {
			delete(r.byCode, *prev.VerificationCode)
		}
		if prev.ResetTokenHash != nil {
			delete(r.byReset, *prev.ResetTokenHash)
		}
	}
	r.byEmail[next.Email] = next.ID
	if next.VerificationCode != nil {
		r.byCode[*next.VerificationCode] = next.ID
	}
	if next.ResetTokenHash != nil {
		r.byReset[*next.ResetTokenHash] = next.ID
	}
}
