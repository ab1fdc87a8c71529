package domain

import (
	"time"

	"github.com/google/uuid"
)

// MovementType represents the direction of a vault movement.
type MovementType string

const (
	MovementTypeDeposit    MovementType = "DEPOSIT"
	MovementTypeWithdrawal MovementType = "WITHDRAWAL"
)

// Movement is an immutable ledger entry recording one successful deposit or
// withdrawal. BalanceAfter is the vault balance once the movement applied.
type Movement struct {
	ID           uuid.UUID    `json:"id"`
	VaultID      uuid.UUID    `json:"vault_id"`
	AccountID    uuid.UUID    `json:"account_id"`
	MovementType MovementType `json:"movement_type"`
	Amount       int64        `json:"amount"`
	BalanceAfter int64        `json:"balance_after"`
	CreatedAt    time.Time    `json:"created_at"`
}
