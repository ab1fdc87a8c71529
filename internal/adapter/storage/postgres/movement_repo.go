package postgres

import (
	"context"
	"fmt"

	"kipu-bank/internal/core/domain"
	"kipu-bank/internal/core/ports"

	"github.com/jackc/pgx/v5"
)

// MovementRepo implements ports.MovementRepository.
type MovementRepo struct {
	pool Pool
}

// NewMovementRepo creates a new MovementRepo.
func NewMovementRepo(pool Pool) *MovementRepo {
	return &MovementRepo{pool: pool}
}

// Create inserts a movement record within a transaction.
func (r *MovementRepo) Create(ctx context.Context, tx pgx.Tx, m *domain.Movement) error {
	query := `INSERT INTO movements (id, vault_id, account_id, movement_type, amount, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := tx.Exec(ctx, query,
		m.ID, m.VaultID, m.AccountID, m.MovementType,
		m.Amount, m.BalanceAfter, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// ListByAccount returns a page of an account's movements, newest first,
// plus the total row count for the filter.
func (r *MovementRepo) ListByAccount(ctx context.Context, params ports.MovementListParams) ([]domain.Movement, int64, error) {
	where := `WHERE account_id = $1`
	args := []any{params.AccountID}

	if params.Type != nil {
		where += ` AND movement_type = $2`
		args = append(args, *params.Type)
	}

	var total int64
	countQuery := `SELECT COUNT(*) FROM movements ` + where
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movements: %w", err)
	}

	offset := (params.Page - 1) * params.PageSize
	listQuery := fmt.Sprintf(`SELECT id, vault_id, account_id, movement_type, amount, balance_after, created_at
		FROM movements %s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		where, len(args)+1, len(args)+2)
	args = append(args, params.PageSize, offset)

	rows, err := r.pool.Query(ctx, listQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()

	movements := make([]domain.Movement, 0, params.PageSize)
	for rows.Next() {
		var m domain.Movement
		if err := rows.Scan(
			&m.ID, &m.VaultID, &m.AccountID, &m.MovementType,
			&m.Amount, &m.BalanceAfter, &m.CreatedAt,
		); err != nil {
			return nil, 0, fmt.Errorf("scan movement: %w", err)
		}
		movements = append(movements, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate movements: %w", err)
	}

	return movements, total, nil
}
