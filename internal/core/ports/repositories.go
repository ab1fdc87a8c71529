package ports

import (
	"context"

	"kipu-bank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AccountRepository defines persistence operations for accounts.
type AccountRepository interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error)
	GetByUsername(ctx context.Context, username string) (*domain.Account, error)
}

// VaultRepository defines persistence operations for per-account vaults.
// Methods accepting pgx.Tx run inside transaction blocks for pessimistic
// locking; Get* return nil, nil when no vault row exists (balance zero).
type VaultRepository interface {
	Create(ctx context.Context, tx pgx.Tx, vault *domain.Vault) error
	GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Vault, error)
	GetByAccountIDForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.Vault, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, vaultID uuid.UUID, balance int64) error
}

// LedgerRepository manages the single aggregate-totals row. GetForUpdate
// locks the row, serializing every ledger mutation behind it.
type LedgerRepository interface {
	Get(ctx context.Context) (*domain.LedgerState, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx) (*domain.LedgerState, error)
	// ApplyDeposit adds amount to total_balance and increments deposit_count.
	ApplyDeposit(ctx context.Context, tx pgx.Tx, amount int64) error
	// ApplyWithdrawal subtracts amount from total_balance and increments
	// withdrawal_count.
	ApplyWithdrawal(ctx context.Context, tx pgx.Tx, amount int64) error
}

// MovementRepository defines persistence for immutable ledger entries.
type MovementRepository interface {
	Create(ctx context.Context, tx pgx.Tx, movement *domain.Movement) error
	ListByAccount(ctx context.Context, params MovementListParams) ([]domain.Movement, int64, error)
}

// MovementListParams holds filter + pagination for listing movements.
type MovementListParams struct {
	AccountID uuid.UUID
	Type      *domain.MovementType
	Page      int
	PageSize  int
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
