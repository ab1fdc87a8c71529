package domain

import (
	"time"

	"github.com/google/uuid"
)

// VaultEventType identifies a ledger state-change notification.
type VaultEventType string

const (
	EventDeposited VaultEventType = "DEPOSITED"
	EventWithdrawn VaultEventType = "WITHDRAWN"
)

// VaultEvent is the notification emitted after a successful state change,
// for external consumers (indexers, dashboards). Balance is the account's
// balance after the operation applied.
type VaultEvent struct {
	Type       VaultEventType `json:"type"`
	AccountID  uuid.UUID      `json:"account_id"`
	Amount     int64          `json:"amount"`
	Balance    int64          `json:"balance"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// NewDepositedEvent builds the notification for a successful deposit.
func NewDepositedEvent(m *Movement) VaultEvent {
	return VaultEvent{
		Type:       EventDeposited,
		AccountID:  m.AccountID,
		Amount:     m.Amount,
		Balance:    m.BalanceAfter,
		OccurredAt: m.CreatedAt,
	}
}

// NewWithdrawnEvent builds the notification for a successful withdrawal.
func NewWithdrawnEvent(m *Movement) VaultEvent {
	return VaultEvent{
		Type:       EventWithdrawn,
		AccountID:  m.AccountID,
		Amount:     m.Amount,
		Balance:    m.BalanceAfter,
		OccurredAt: m.CreatedAt,
	}
}
