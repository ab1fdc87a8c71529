package service

import (
	"context"
	"fmt"
	"time"

	"kipu-bank/internal/core/domain"
	"kipu-bank/internal/core/ports"
	"kipu-bank/pkg/apperror"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// LedgerLimits holds the construction-time invariant bounds of the ledger.
// Both are immutable for the lifetime of the service.
type LedgerLimits struct {
	BankCap         int64 // ceiling on the ledger's aggregate custodied value
	WithdrawalLimit int64 // ceiling on any single withdrawal
}

// VaultServiceImpl implements ports.VaultService.
//
// Every mutation runs as one database transaction that locks the
// ledger-totals row first and the vault row second. The lock on the totals
// row serializes operations, so callers only ever observe fully-applied
// state. Order within a transaction is checks -> effects -> interactions:
// all preconditions are validated before any row changes, and the value
// release in Withdraw happens after the decrement but before commit, so a
// release failure rolls the whole operation back as a unit.
type VaultServiceImpl struct {
	limits       LedgerLimits
	vaultRepo    ports.VaultRepository
	ledgerRepo   ports.LedgerRepository
	movementRepo ports.MovementRepository
	transactor   ports.DBTransactor
	gateway      ports.TransferGateway
	events       ports.EventPublisher
	log          zerolog.Logger
}

// NewVaultService creates a new VaultServiceImpl.
func NewVaultService(
	limits LedgerLimits,
	vaultRepo ports.VaultRepository,
	ledgerRepo ports.LedgerRepository,
	movementRepo ports.MovementRepository,
	transactor ports.DBTransactor,
	gateway ports.TransferGateway,
	events ports.EventPublisher,
	log zerolog.Logger,
) *VaultServiceImpl {
	return &VaultServiceImpl{
		limits:       limits,
		vaultRepo:    vaultRepo,
		ledgerRepo:   ledgerRepo,
		movementRepo: movementRepo,
		transactor:   transactor,
		gateway:      gateway,
		events:       events,
		log:          log,
	}
}

// Deposit credits amount to the account's vault.
// Fails with VAULT_001 on a zero amount and VAULT_002 when the deposit
// would push the total custodied value above the bank cap; both checks
// precede any mutation.
func (s *VaultServiceImpl) Deposit(ctx context.Context, req ports.MovementRequest) (*domain.Movement, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrZeroAmount()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Lock the totals row; this serializes all ledger mutations.
	ledger, err := s.ledgerRepo.GetForUpdate(ctx, dbTx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock ledger totals: %w", err))
	}

	// Invariant: total_balance <= bank_cap. Headroom is non-negative, so the
	// comparison cannot overflow.
	if req.Amount > ledger.Headroom(s.limits.BankCap) {
		return nil, apperror.ErrCapExceeded()
	}

	vault, err := s.vaultRepo.GetByAccountIDForUpdate(ctx, dbTx, req.AccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock vault: %w", err))
	}

	now := time.Now().UTC()
	if vault == nil {
		// First activity for this account; the balance map is sparse.
		vault = &domain.Vault{
			ID:        uuid.New(),
			AccountID: req.AccountID,
			Balance:   0,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := s.vaultRepo.Create(ctx, dbTx, vault); err != nil {
			return nil, apperror.InternalError(fmt.Errorf("create vault: %w", err))
		}
	}

	newBalance := vault.Balance + req.Amount
	if err := s.vaultRepo.UpdateBalance(ctx, dbTx, vault.ID, newBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	if err := s.ledgerRepo.ApplyDeposit(ctx, dbTx, req.Amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("apply deposit to totals: %w", err))
	}

	movement := &domain.Movement{
		ID:           uuid.New(),
		VaultID:      vault.ID,
		AccountID:    req.AccountID,
		MovementType: domain.MovementTypeDeposit,
		Amount:       req.Amount,
		BalanceAfter: newBalance,
		CreatedAt:    now,
	}
	if err := s.movementRepo.Create(ctx, dbTx, movement); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create movement: %w", err))
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.publish(ctx, domain.NewDepositedEvent(movement))

	s.log.Info().
		Str("account_id", req.AccountID.String()).
		Int64("amount", req.Amount).
		Int64("new_balance", newBalance).
		Msg("deposit applied")

	return movement, nil
}

// Withdraw debits amount from the account's vault and releases the value
// through the transfer gateway.
// Precondition order: zero amount (VAULT_001), withdrawal limit
// (VAULT_003), balance (VAULT_004), cheapest checks first. The decrement
// is applied before the release; both sit in one transaction, so a failed
// release surfaces VAULT_005 with no state change.
func (s *VaultServiceImpl) Withdraw(ctx context.Context, req ports.MovementRequest) (*domain.Movement, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrZeroAmount()
	}
	if req.Amount > s.limits.WithdrawalLimit {
		return nil, apperror.ErrLimitExceeded()
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	// Same lock order as Deposit: totals row, then vault row.
	if _, err := s.ledgerRepo.GetForUpdate(ctx, dbTx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock ledger totals: %w", err))
	}

	vault, err := s.vaultRepo.GetByAccountIDForUpdate(ctx, dbTx, req.AccountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("lock vault: %w", err))
	}
	if vault == nil || !vault.CanCover(req.Amount) {
		return nil, apperror.ErrInsufficientBalance()
	}

	newBalance := vault.Balance - req.Amount
	if err := s.vaultRepo.UpdateBalance(ctx, dbTx, vault.ID, newBalance); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("update balance: %w", err))
	}

	if err := s.ledgerRepo.ApplyWithdrawal(ctx, dbTx, req.Amount); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("apply withdrawal to totals: %w", err))
	}

	now := time.Now().UTC()
	movement := &domain.Movement{
		ID:           uuid.New(),
		VaultID:      vault.ID,
		AccountID:    req.AccountID,
		MovementType: domain.MovementTypeWithdrawal,
		Amount:       req.Amount,
		BalanceAfter: newBalance,
		CreatedAt:    now,
	}
	if err := s.movementRepo.Create(ctx, dbTx, movement); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("create movement: %w", err))
	}

	// Value release: the decrement above is already recorded in this
	// transaction, so a reentrant caller can never spend the same balance
	// twice; a gateway failure aborts the transaction as a unit.
	if err := s.gateway.Release(ctx, req.AccountID, req.Amount); err != nil {
		return nil, apperror.ErrTransferFailed(err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}

	s.publish(ctx, domain.NewWithdrawnEvent(movement))

	s.log.Info().
		Str("account_id", req.AccountID.String()).
		Int64("amount", req.Amount).
		Int64("remaining_balance", newBalance).
		Msg("withdrawal applied")

	return movement, nil
}

// BalanceOf returns the account's current balance. An account with no vault
// row has balance zero; this never errors on unknown accounts.
func (s *VaultServiceImpl) BalanceOf(ctx context.Context, accountID uuid.UUID) (int64, error) {
	vault, err := s.vaultRepo.GetByAccountID(ctx, accountID)
	if err != nil {
		return 0, apperror.InternalError(fmt.Errorf("get vault: %w", err))
	}
	if vault == nil {
		return 0, nil
	}
	return vault.Balance, nil
}

// Summary returns the ledger configuration and aggregate counters.
func (s *VaultServiceImpl) Summary(ctx context.Context) (*domain.LedgerSummary, error) {
	ledger, err := s.ledgerRepo.Get(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get ledger totals: %w", err))
	}
	return &domain.LedgerSummary{
		BankCap:         s.limits.BankCap,
		WithdrawalLimit: s.limits.WithdrawalLimit,
		TotalBalance:    ledger.TotalBalance,
		DepositCount:    ledger.DepositCount,
		WithdrawalCount: ledger.WithdrawalCount,
	}, nil
}

// ListMovements returns the account's movement history, newest first.
func (s *VaultServiceImpl) ListMovements(ctx context.Context, params ports.MovementListParams) ([]domain.Movement, int64, error) {
	movements, total, err := s.movementRepo.ListByAccount(ctx, params)
	if err != nil {
		return nil, 0, apperror.InternalError(fmt.Errorf("list movements: %w", err))
	}
	return movements, total, nil
}

// publish emits a notification best-effort; delivery failures are logged,
// never surfaced, because the state change is already committed.
func (s *VaultServiceImpl) publish(ctx context.Context, event domain.VaultEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).
			Str("type", string(event.Type)).
			Str("account_id", event.AccountID.String()).
			Msg("failed to publish vault event")
	}
}
