package port

import (
	"context"
	"time"

	"github.com/dnt-org/dnt-be/internal/core/domain"
)

// AccountRepository provides access to the account store. Implementations must
// return repository.ErrNotFound for missing rows.
type AccountRepository interface {
	Create(ctx context.Context, account domain.Account) error
	GetByCCCD(ctx context.Context, cccd string) (*domain.Account, error)
	GetByBankNumber(ctx context.Context, bankNumber string) (*domain.Account, error)
	GetByResetToken(ctx context.Context, resetToken string) (*domain.Account, error)

	// GetForUpdateByCCCD and friends acquire a row lock; only meaningful inside Transact.
	GetForUpdateByCCCD(ctx context.Context, cccd string) (*domain.Account, error)
	GetForUpdateByBankNumber(ctx context.Context, bankNumber string) (*domain.Account, error)
	GetForUpdateByResetToken(ctx context.Context, resetToken string) (*domain.Account, error)

	// SaveSecurityState writes every escalation field (failure counters,
	// final-chance flag, block fields, reset token pair) plus password hash and
	// confirmed flag in one statement, guarded by the account version. Returns
	// repository.ErrVersionConflict on a lost update.
	SaveSecurityState(ctx context.Context, account domain.Account) error

	SetRecoveryString(ctx context.Context, accountID, recoveryStringHash string) error
	UpdateLastLogin(ctx context.Context, accountID string, at time.Time) error

	// Transact runs fn against a repository bound to a single transaction,
	// committing on nil and rolling back on error.
	Transact(ctx context.Context, fn func(repo AccountRepository) error) error
}
