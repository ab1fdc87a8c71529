package dto

// RegisterRequest is the request body for account registration.
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50,safe_id"`
	Password string `json:"password" binding:"required,min=8,max=128"`
}

// LoginRequest is the request body for account login.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RegisterResponse is the response body for successful registration.
type RegisterResponse struct {
	AccountID string `json:"account_id"`
	Username  string `json:"username"`
}

// LoginResponse is the response body for successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	Expiry int64  `json:"expiry"` // Unix timestamp
}

// AmountRequest is the request body for deposits and withdrawals.
// The gt=0 tag rejects zero and negative amounts before the service runs.
type AmountRequest struct {
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// MovementResponse is the response body for an applied deposit or withdrawal.
type MovementResponse struct {
	ID           string `json:"id"`
	MovementType string `json:"movement_type"`
	Amount       int64  `json:"amount"`
	BalanceAfter int64  `json:"balance_after"`
	CreatedAt    string `json:"created_at"`
}

// BalanceResponse is the response for balance query.
type BalanceResponse struct {
	AccountID string `json:"account_id"`
	Balance   int64  `json:"balance"`
}

// SummaryResponse is the response for the ledger summary.
type SummaryResponse struct {
	BankCap         int64 `json:"bank_cap"`
	WithdrawalLimit int64 `json:"withdrawal_limit"`
	TotalBalance    int64 `json:"total_balance"`
	DepositCount    int64 `json:"deposit_count"`
	WithdrawalCount int64 `json:"withdrawal_count"`
}

// MovementListResponse wraps a paginated movement list.
type MovementListResponse struct {
	Items      []MovementResponse `json:"items"`
	Total      int64              `json:"total"`
	Page       int                `json:"page"`
	PageSize   int                `json:"page_size"`
	TotalPages int                `json:"total_pages"`
}
