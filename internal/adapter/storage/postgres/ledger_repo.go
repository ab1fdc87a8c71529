package postgres

import (
	"context"
	"fmt"

	"kipu-bank/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// ledgerRowID is the primary key of the single ledger_totals row. The table
// holds exactly one row; locking it serializes every balance mutation.
const ledgerRowID = 1

// LedgerRepo implements ports.LedgerRepository over the single-row
// ledger_totals table.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new LedgerRepo.
func NewLedgerRepo(pool Pool) *LedgerRepo {
	return &LedgerRepo{pool: pool}
}

// Get reads the aggregate totals without locking.
func (r *LedgerRepo) Get(ctx context.Context) (*domain.LedgerState, error) {
	query := `SELECT total_balance, deposit_count, withdrawal_count
		FROM ledger_totals WHERE id = $1`

	l := &domain.LedgerState{}
	err := r.pool.QueryRow(ctx, query, ledgerRowID).Scan(
		&l.TotalBalance, &l.DepositCount, &l.WithdrawalCount,
	)
	if err != nil {
		return nil, fmt.Errorf("get ledger totals: %w", err)
	}
	return l, nil
}

// GetForUpdate reads the totals row with pessimistic locking.
// This MUST be called within a transaction; it is the first lock every
// mutation takes.
func (r *LedgerRepo) GetForUpdate(ctx context.Context, tx pgx.Tx) (*domain.LedgerState, error) {
	query := `SELECT total_balance, deposit_count, withdrawal_count
		FROM ledger_totals WHERE id = $1 FOR UPDATE`

	l := &domain.LedgerState{}
	err := tx.QueryRow(ctx, query, ledgerRowID).Scan(
		&l.TotalBalance, &l.DepositCount, &l.WithdrawalCount,
	)
	if err != nil {
		return nil, fmt.Errorf("get ledger totals for update: %w", err)
	}
	return l, nil
}

// ApplyDeposit adds amount to the total and bumps the deposit counter.
func (r *LedgerRepo) ApplyDeposit(ctx context.Context, tx pgx.Tx, amount int64) error {
	query := `UPDATE ledger_totals
		SET total_balance = total_balance + $1,
		    deposit_count = deposit_count + 1,
		    updated_at = NOW()
		WHERE id = $2`

	tag, err := tx.Exec(ctx, query, amount, ledgerRowID)
	if err != nil {
		return fmt.Errorf("apply deposit to ledger totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ledger totals row missing")
	}
	return nil
}

// ApplyWithdrawal subtracts amount from the total and bumps the withdrawal counter.
func (r *LedgerRepo) ApplyWithdrawal(ctx context.Context, tx pgx.Tx, amount int64) error {
	query := `UPDATE ledger_totals
		SET total_balance = total_balance - $1,
		    withdrawal_count = withdrawal_count + 1,
		    updated_at = NOW()
		WHERE id = $2`

	tag, err := tx.Exec(ctx, query, amount, ledgerRowID)
	if err != nil {
		return fmt.Errorf("apply withdrawal to ledger totals: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ledger totals row missing")
	}
	return nil
}
