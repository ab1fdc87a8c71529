package domain

import (
	"time"

	"github.com/google/uuid"
)

// Account is an identity asserted by the host (the HTTP layer) on every
// call. The ledger never validates an account's authenticity itself; it
// only keys balances by account ID.
type Account struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // Argon2id encoded hash, never exposed
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
