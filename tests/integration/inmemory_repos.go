package integration

import (
	"context"
	"fmt"
	"sync"

	"kipu-bank/internal/core/domain"
	"kipu-bank/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[uuid.UUID]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[uuid.UUID]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Username == a.Username {
			return fmt.Errorf("username already exists")
		}
	}
	r.accounts[a.ID] = a
	return nil
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, nil
	}
	return a, nil
}

func (r *inMemoryAccountRepo) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.accounts {
		if a.Username == username {
			return a, nil
		}
	}
	return nil, nil
}

// --- In-Memory Vault Repo ---

type inMemoryVaultRepo struct {
	mu     sync.RWMutex
	vaults map[uuid.UUID]*domain.Vault
}

func newInMemoryVaultRepo() *inMemoryVaultRepo {
	return &inMemoryVaultRepo{vaults: make(map[uuid.UUID]*domain.Vault)}
}

func (r *inMemoryVaultRepo) Create(ctx context.Context, tx pgx.Tx, v *domain.Vault) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vaults[v.ID] = v
	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.vaults, v.ID)
	})
	return nil
}

func (r *inMemoryVaultRepo) GetByAccountID(ctx context.Context, accountID uuid.UUID) (*domain.Vault, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, v := range r.vaults {
		if v.AccountID == accountID {
			copied := *v
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *inMemoryVaultRepo) GetByAccountIDForUpdate(ctx context.Context, tx pgx.Tx, accountID uuid.UUID) (*domain.Vault, error) {
	return r.GetByAccountID(ctx, accountID)
}

func (r *inMemoryVaultRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, vaultID uuid.UUID, balance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.vaults[vaultID]
	if !ok {
		return fmt.Errorf("vault not found")
	}
	prev := v.Balance
	v.Balance = balance
	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if v, ok := r.vaults[vaultID]; ok {
			v.Balance = prev
		}
	})
	return nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu    sync.RWMutex
	state domain.LedgerState
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{}
}

func (r *inMemoryLedgerRepo) Get(ctx context.Context) (*domain.LedgerState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	state := r.state
	return &state, nil
}

func (r *inMemoryLedgerRepo) GetForUpdate(ctx context.Context, tx pgx.Tx) (*domain.LedgerState, error) {
	return r.Get(ctx)
}

func (r *inMemoryLedgerRepo) ApplyDeposit(ctx context.Context, tx pgx.Tx, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.TotalBalance += amount
	r.state.DepositCount++
	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.state.TotalBalance -= amount
		r.state.DepositCount--
	})
	return nil
}

func (r *inMemoryLedgerRepo) ApplyWithdrawal(ctx context.Context, tx pgx.Tx, amount int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state.TotalBalance -= amount
	r.state.WithdrawalCount++
	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.state.TotalBalance += amount
		r.state.WithdrawalCount--
	})
	return nil
}

// --- In-Memory Movement Repo ---

type inMemoryMovementRepo struct {
	mu        sync.RWMutex
	movements []domain.Movement
}

func newInMemoryMovementRepo() *inMemoryMovementRepo {
	return &inMemoryMovementRepo{}
}

func (r *inMemoryMovementRepo) Create(ctx context.Context, tx pgx.Tx, m *domain.Movement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.movements = append(r.movements, *m)
	registerUndo(tx, func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		for i := range r.movements {
			if r.movements[i].ID == m.ID {
				r.movements = append(r.movements[:i], r.movements[i+1:]...)
				break
			}
		}
	})
	return nil
}

func (r *inMemoryMovementRepo) ListByAccount(ctx context.Context, params ports.MovementListParams) ([]domain.Movement, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []domain.Movement
	// Newest first
	for i := len(r.movements) - 1; i >= 0; i-- {
		m := r.movements[i]
		if m.AccountID != params.AccountID {
			continue
		}
		if params.Type != nil && m.MovementType != *params.Type {
			continue
		}
		result = append(result, m)
	}
	total := int64(len(result))

	start := (params.Page - 1) * params.PageSize
	if start >= len(result) {
		return []domain.Movement{}, total, nil
	}
	end := start + params.PageSize
	if end > len(result) {
		end = len(result)
	}
	return result[start:end], total, nil
}

// --- In-Memory Transactor ---

// memTransactor serializes transactions with a mutex the way the real
// implementation serializes them on the ledger totals row lock.
type memTransactor struct {
	mu sync.Mutex
}

func newMemTransactor() *memTransactor {
	return &memTransactor{}
}

func (t *memTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &memTx{release: t.mu.Unlock}, nil
}

// memTx implements pgx.Tx with an undo journal: repos register an undo
// closure per mutation, and Rollback runs them in reverse, so a failed
// withdrawal observably restores every row it touched.
type memTx struct {
	undo    []func()
	done    bool
	release func()
}

func registerUndo(tx pgx.Tx, fn func()) {
	if m, ok := tx.(*memTx); ok {
		m.undo = append(m.undo, fn)
	}
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.undo = nil
	t.release()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	for i := len(t.undo) - 1; i >= 0; i-- {
		t.undo[i]()
	}
	t.undo = nil
	t.release()
	return nil
}

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }
