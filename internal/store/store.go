// Package store persists accounts and password reset codes.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/tramdoc/tramdoc/internal/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate is returned when a write violates a unique index.
	ErrDuplicate = errors.New("store: duplicate record")
	// ErrCodeAlreadyUsed is returned when a reset code was consumed by someone else first.
	ErrCodeAlreadyUsed = errors.New("store: reset code already used")
	// ErrStaleWrite is returned when a compare-and-swap update matched no row.
	ErrStaleWrite = errors.New("store: row changed concurrently")
)

// AccountStore reads and writes account rows.
type AccountStore interface {
	FindByID(ctx context.Context, id uint64) (*models.Account, error)
	// LockByID loads the account with a row lock held until the enclosing transaction ends.
	LockByID(ctx context.Context, id uint64) (*models.Account, error)
	FindByEmail(ctx context.Context, email string) (*models.Account, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	FindByProviderIdentity(ctx context.Context, provider models.AuthProvider, subjectID string) (*models.Account, error)
	Save(ctx context.Context, account *models.Account) error
	// UpdatePassword replaces the hash only while the stored hash still equals previousHash.
	UpdatePassword(ctx context.Context, id uint64, previousHash, newHash string) error
	// LinkProvider binds the provider identity only while the account origin is LOCAL or already provider.
	LinkProvider(ctx context.Context, id uint64, provider models.AuthProvider, subjectID string) error
	UpdateAvatar(ctx context.Context, id uint64, avatarURL string) error
}

// ResetCodeStore reads and writes password reset codes.
type ResetCodeStore interface {
	FindUnusedCode(ctx context.Context, accountID uint64, code string) (*models.PasswordResetOTP, error)
	// FindLatestCode returns the newest code matching regardless of its used flag.
	FindLatestCode(ctx context.Context, accountID uint64, code string) (*models.PasswordResetOTP, error)
	FindLatestUnused(ctx context.Context, accountID uint64) (*models.PasswordResetOTP, error)
	InvalidateAll(ctx context.Context, accountID uint64) (int64, error)
	// MarkUsed flips the used flag exclusively; a second caller receives ErrCodeAlreadyUsed.
	MarkUsed(ctx context.Context, id uint64) error
	Save(ctx context.Context, code *models.PasswordResetOTP) error
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// Store groups the repositories and runs units of work atomically.
type Store interface {
	Accounts() AccountStore
	ResetCodes() ResetCodeStore
	// WithinTx runs fn against a transactional Store; a returned error rolls back.
	WithinTx(ctx context.Context, fn func(Store) error) error
}
