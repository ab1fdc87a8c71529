package domain

import (
	"time"

	"github.com/google/uuid"
)

// Vault holds one account's balance. Balances are non-negative integer
// amounts of a single fungible asset, in its smallest unit.
type Vault struct {
	ID        uuid.UUID `json:"id"`
	AccountID uuid.UUID `json:"account_id"`
	Balance   int64     `json:"balance"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CanCover reports whether the vault balance covers a withdrawal of amount.
func (v *Vault) CanCover(amount int64) bool {
	return v.Balance >= amount
}

// LedgerState holds the aggregate counters of the ledger. TotalBalance must
// always equal the sum of all vault balances; the counters are lifetime
// totals and never reset.
type LedgerState struct {
	TotalBalance    int64 `json:"total_balance"`
	DepositCount    int64 `json:"deposit_count"`
	WithdrawalCount int64 `json:"withdrawal_count"`
}

// Headroom returns how much value the ledger can still custody before
// reaching cap. Callers must guarantee TotalBalance <= cap.
func (s *LedgerState) Headroom(cap int64) int64 {
	return cap - s.TotalBalance
}

// LedgerSummary combines the aggregate counters with the immutable
// construction-time configuration.
type LedgerSummary struct {
	BankCap         int64 `json:"bank_cap"`
	WithdrawalLimit int64 `json:"withdrawal_limit"`
	TotalBalance    int64 `json:"total_balance"`
	DepositCount    int64 `json:"deposit_count"`
	WithdrawalCount int64 `json:"withdrawal_count"`
}
