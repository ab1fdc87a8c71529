package ports

import (
	"context"
	"time"

	"kipu-bank/internal/core/domain"

	"github.com/google/uuid"
)

// HashService handles password hashing (Argon2id).
type HashService interface {
	Hash(password string) (string, error)
	Verify(password string, hash string) (bool, error)
}

// TokenService handles JWT token operations.
type TokenService interface {
	Generate(accountID uuid.UUID, username string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	AccountID uuid.UUID
	Username  string
}

// TransferGateway is the host's value-release primitive used by withdraw.
// Release hands amount back to the account's owner and reports
// success/failure; it performs no ledger-state mutation of its own.
type TransferGateway interface {
	Release(ctx context.Context, accountID uuid.UUID, amount int64) error
}

// EventPublisher emits ledger state-change notifications for external
// consumers. Publishing is best-effort and happens only after commit.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.VaultEvent) error
}

// --- Service Ports (Business Logic) ---

// VaultService is the accounting state machine: it validates, applies, and
// reports deposits and withdrawals under the bank-cap and withdrawal-limit
// invariants.
type VaultService interface {
	Deposit(ctx context.Context, req MovementRequest) (*domain.Movement, error)
	Withdraw(ctx context.Context, req MovementRequest) (*domain.Movement, error)
	BalanceOf(ctx context.Context, accountID uuid.UUID) (int64, error)
	Summary(ctx context.Context) (*domain.LedgerSummary, error)
	ListMovements(ctx context.Context, params MovementListParams) ([]domain.Movement, int64, error)
}

// MovementRequest holds validated input for a deposit or withdrawal.
type MovementRequest struct {
	AccountID uuid.UUID
	Amount    int64
}

// AuthService defines account registration and login.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*domain.Account, error)
	Login(ctx context.Context, username, password string) (string, time.Time, error) // token, expiry, error
}

// RegisterRequest holds input for account registration.
type RegisterRequest struct {
	Username string
	Password string
}
