package postgres

import (
	"context"
	"errors"
	"fmt"

	"kipu-bank/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// VaultRepo implements ports.VaultRepository.
type VaultRepo struct {
	pool Pool
}

// NewVaultRepo creates a new VaultRepo.
func NewVaultRepo(pool Pool) *VaultRepo {
	return &VaultRepo{pool: pool}
}

// Create inserts a new vault row within a transaction. Vaults are created
// lazily on first deposit, so this always runs under the ledger lock.
func (r *VaultRepo) Create(ctx context.Context, tx pgx.Tx, v *domain.Vault) error {
	query := `INSERT INTO vaults (id, account_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := tx.Exec(ctx, query,
		v.ID, v.AccountID, v.Balance, v.CreatedAt, v.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert vault: %w", err)
	}
	return nil
}

// GetByAccountID fetches a vault by account ID (non-locking read).
func (r *VaultRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Vault, error) {
	query := `SELECT id, account_id, balance, created_at, updated_at
		FROM vaults WHERE account_id = $1`

	v := &domain.Vault{}
	err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&v.ID, &v.AccountID, &v.Balance, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vault by account id: %w", err)
	}
	return v, nil
}

// GetByAccountIDForUpdate fetches a vault by account ID with pessimistic locking.
// This MUST be called within a transaction.
func (r *VaultRepo) GetByAccountIDForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.Vault, error) {
	query := `SELECT id, account_id, balance, created_at, updated_at
		FROM vaults WHERE account_id = $1 FOR UPDATE`

	v := &domain.Vault{}
	err := tx.QueryRow(ctx, query, accountID).Scan(
		&v.ID, &v.AccountID, &v.Balance, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get vault for update: %w", err)
	}
	return v, nil
}

// UpdateBalance sets a vault's balance within a transaction.
func (r *VaultRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, vaultID uuid.UUID, balance int64) error {
	query := `UPDATE vaults SET balance = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, balance, vaultID)
	if err != nil {
		return fmt.Errorf("update vault balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("vault not found: %s", vaultID)
	}
	return nil
}
