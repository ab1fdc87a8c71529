package service

import (
	"context"
	"errors"
	"testing"

	"kipu-bank/internal/core/domain"
	"kipu-bank/internal/core/ports"
	"kipu-bank/internal/core/ports/mocks"
	"kipu-bank/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type vaultTestDeps struct {
	svc          *VaultServiceImpl
	vaultRepo    *mocks.MockVaultRepository
	ledgerRepo   *mocks.MockLedgerRepository
	movementRepo *mocks.MockMovementRepository
	transactor   *mocks.MockDBTransactor
	gateway      *mocks.MockTransferGateway
	events       *mocks.MockEventPublisher
	ctrl         *gomock.Controller
}

func setupVaultService(t *testing.T, limits LedgerLimits) *vaultTestDeps {
	ctrl := gomock.NewController(t)
	d := &vaultTestDeps{
		vaultRepo:    mocks.NewMockVaultRepository(ctrl),
		ledgerRepo:   mocks.NewMockLedgerRepository(ctrl),
		movementRepo: mocks.NewMockMovementRepository(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
		gateway:      mocks.NewMockTransferGateway(ctrl),
		events:       mocks.NewMockEventPublisher(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewVaultService(
		limits,
		d.vaultRepo, d.ledgerRepo, d.movementRepo,
		d.transactor, d.gateway, d.events,
		zerolog.Nop(),
	)
	return d
}

// mockTx implements pgx.Tx for testing. It records whether the transaction
// was committed so atomicity can be asserted.
type mockTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (m *mockTx) Rollback(_ context.Context) error { m.rolledBack = true; return nil }
func (m *mockTx) Commit(_ context.Context) error   { m.committed = true; return nil }

func assertAppError(t *testing.T, err error, expectedCode string) {
	t.Helper()
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, expectedCode, appErr.Code)
}

// ==================== Deposit Tests ====================

func TestVaultService_Deposit_Success(t *testing.T) {
	d := setupVaultService(t, LedgerLimits{BankCap: 100, WithdrawalLimit: 10})
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	vaultID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().GetForUpdate(ctx, tx).Return(&domain.LedgerState{TotalBalance: 40}, nil)
	d.vaultRepo.EXPECT().GetByAccountIDForUpdate(ctx, tx, accountID).Return(&domain.Vault{
		ID:        vaultID,
		AccountID: accountID,
		Balance:   15,
	}, nil)
	d.vaultRepo.EXPECT().UpdateBalance(ctx, tx, vaultID, int64(45)).Return(nil)
	d.ledgerRepo.EXPECT().ApplyDeposit(ctx, tx, int64(30)).Return(nil)
	d.movementRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.events.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	movement, err := d.svc.Deposit(ctx, ports.MovementRequest{AccountID: accountID, Amount: 30})
	require.NoError(t, err)
	require.NotNil(t, movement)
	assert.Equal(t, domain.MovementTypeDeposit, movement.MovementType)
	assert.Equal(t, int64(30), movement.Amount)
	assert.Equal(t, int64(45), movement.BalanceAfter)
	assert.True(t, tx.committed)
}

func TestVaultService_Deposit_CreatesVaultLazily(t *testing.T) {
	d := setupVaultService(t, LedgerLimits{BankCap: 100, WithdrawalLimit: 10})
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().GetForUpdate(ctx, tx).Return(&domain.LedgerState{TotalBalance: 0}, nil)
	// No vault row yet for this account
	d.vaultRepo.EXPECT().GetByAccountIDForUpdate(ctx, tx, accountID).Return(nil, nil)
	d.vaultRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.vaultRepo.EXPECT().UpdateBalance(ctx, tx, gomock.Any(), int64(25)).Return(nil)
	d.ledgerRepo.EXPECT().ApplyDeposit(ctx, tx, int64(25)).Return(nil)
	d.movementRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.events.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	movement, err := d.svc.Deposit(ctx, ports.MovementRequest{AccountID: accountID, Amount: 25})
	require.NoError(t, err)
	assert.Equal(t, int64(25), movement.BalanceAfter)
	assert.True(t, tx.committed)
}

func TestVaultService_Deposit_ZeroAmount(t *testing.T) {
	d := setupVaultService(t, LedgerLimits{BankCap: 100, WithdrawalLimit: 10})
	defer d.ctrl.Finish()

	// No repository call is expected; the check precedes the transaction.
	movement, err := d.svc.Deposit(context.Background(), ports.MovementRequest{
		AccountID: uuid.New(),
		Amount:    0,
	})
	assert.Nil(t, movement)
	assertAppError(t, err, "VAULT_001")
}

func TestVaultService_Deposit_NegativeAmount(t *testing.T) {
	d := setupVaultService(t, LedgerLimits{BankCap: 100, WithdrawalLimit: 10})
	defer d.ctrl.Finish()

	movement, err := d.svc.Deposit(context.Background(), ports.MovementRequest{
		AccountID: uuid.New(),
		Amount:    -5,
	})
	assert.Nil(t, movement)
	assertAppError(t, err, "VAULT_001")
}

func TestVaultService_Deposit_FillsCapExactly(t *testing.T) {
	// Total 99 of cap 100: depositing 1 is allowed.
	d := setupVaultService(t, LedgerLimits{BankCap: 100, WithdrawalLimit: 10})
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	vaultID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().GetForUpdate(ctx, tx).Return(&domain.LedgerState{TotalBalance: 99}, nil)
	d.vaultRepo.EXPECT().GetByAccountIDForUpdate(ctx, tx, accountID).Return(&domain.Vault{
		ID:        vaultID,
		AccountID: accountID,
		Balance:   99,
	}, nil)
	d.vaultRepo.EXPECT().UpdateBalance(ctx, tx, vaultID, int64(100)).Return(nil)
	d.ledgerRepo.EXPECT().ApplyDeposit(ctx, tx, int64(1)).Return(nil)
	d.movementRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.events.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	movement, err := d.svc.Deposit(ctx, ports.MovementRequest{AccountID: accountID, Amount: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(100), movement.BalanceAfter)
	assert.True(t, tx.committed)
}

func TestVaultService_Deposit_CapExceeded(t *testing.T) {
	// Total 99 of cap 100: depositing 2 must fail with no state change.
	d := setupVaultService(t, LedgerLimits{BankCap: 100, WithdrawalLimit: 10})
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().GetForUpdate(ctx, tx).Return(&domain.LedgerState{TotalBalance: 99}, nil)

	movement, err := d.svc.Deposit(ctx, ports.MovementRequest{AccountID: accountID, Amount: 2})
	assert.Nil(t, movement)
	assertAppError(t, err, "VAULT_002")
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

// ==================== Withdraw Tests ====================

func TestVaultService_Withdraw_Success(t *testing.T) {
	d := setupVaultService(t, LedgerLimits{BankCap: 100, WithdrawalLimit: 10})
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	vaultID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().GetForUpdate(ctx, tx).Return(&domain.LedgerState{TotalBalance: 50}, nil)
	d.vaultRepo.EXPECT().GetByAccountIDForUpdate(ctx, tx, accountID).Return(&domain.Vault{
		ID:        vaultID,
		AccountID: accountID,
		Balance:   50,
	}, nil)
	d.vaultRepo.EXPECT().UpdateBalance(ctx, tx, vaultID, int64(42)).Return(nil)
	d.ledgerRepo.EXPECT().ApplyWithdrawal(ctx, tx, int64(8)).Return(nil)
	d.movementRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.gateway.EXPECT().Release(ctx, accountID, int64(8)).Return(nil)
	d.events.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	movement, err := d.svc.Withdraw(ctx, ports.MovementRequest{AccountID: accountID, Amount: 8})
	require.NoError(t, err)
	assert.Equal(t, domain.MovementTypeWithdrawal, movement.MovementType)
	assert.Equal(t, int64(42), movement.BalanceAfter)
	assert.True(t, tx.committed)
}

func TestVaultService_Withdraw_ZeroAmount(t *testing.T) {
	d := setupVaultService(t, LedgerLimits{BankCap: 100, WithdrawalLimit: 10})
	defer d.ctrl.Finish()

	movement, err := d.svc.Withdraw(context.Background(), ports.MovementRequest{
		AccountID: uuid.New(),
		Amount:    0,
	})
	assert.Nil(t, movement)
	assertAppError(t, err, "VAULT_001")
}

func TestVaultService_Withdraw_LimitExceeded(t *testing.T) {
	d := setupVaultService(t, LedgerLimits{BankCap: 100, WithdrawalLimit: 10})
	defer d.ctrl.Finish()

	movement, err := d.svc.Withdraw(context.Background(), ports.MovementRequest{
		AccountID: uuid.New(),
		Amount:    11,
	})
	assert.Nil(t, movement)
	assertAppError(t, err, "VAULT_003")
}

func TestVaultService_Withdraw_LimitCheckedBeforeBalance(t *testing.T) {
	// With limit 1, withdrawing 10 fails on the limit check even though the
	// balance is also insufficient. No lock is taken.
	d := setupVaultService(t, LedgerLimits{BankCap: 100, WithdrawalLimit: 1})
	defer d.ctrl.Finish()

	movement, err := d.svc.Withdraw(context.Background(), ports.MovementRequest{
		AccountID: uuid.New(),
		Amount:    10,
	})
	assert.Nil(t, movement)
	assertAppError(t, err, "VAULT_003")
}

func TestVaultService_Withdraw_InsufficientBalance(t *testing.T) {
	d := setupVaultService(t, LedgerLimits{BankCap: 100, WithdrawalLimit: 10})
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().GetForUpdate(ctx, tx).Return(&domain.LedgerState{TotalBalance: 100}, nil)
	d.vaultRepo.EXPECT().GetByAccountIDForUpdate(ctx, tx, accountID).Return(&domain.Vault{
		ID:        uuid.New(),
		AccountID: accountID,
		Balance:   5,
	}, nil)

	movement, err := d.svc.Withdraw(ctx, ports.MovementRequest{AccountID: accountID, Amount: 8})
	assert.Nil(t, movement)
	assertAppError(t, err, "VAULT_004")
	assert.False(t, tx.committed)
}

func TestVaultService_Withdraw_NoVaultIsInsufficient(t *testing.T) {
	d := setupVaultService(t, LedgerLimits{BankCap: 100, WithdrawalLimit: 10})
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().GetForUpdate(ctx, tx).Return(&domain.LedgerState{}, nil)
	d.vaultRepo.EXPECT().GetByAccountIDForUpdate(ctx, tx, accountID).Return(nil, nil)

	movement, err := d.svc.Withdraw(ctx, ports.MovementRequest{AccountID: accountID, Amount: 1})
	assert.Nil(t, movement)
	assertAppError(t, err, "VAULT_004")
}

func TestVaultService_Withdraw_ReleaseFailureRollsBack(t *testing.T) {
	d := setupVaultService(t, LedgerLimits{BankCap: 100, WithdrawalLimit: 10})
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	vaultID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().GetForUpdate(ctx, tx).Return(&domain.LedgerState{TotalBalance: 50}, nil)
	d.vaultRepo.EXPECT().GetByAccountIDForUpdate(ctx, tx, accountID).Return(&domain.Vault{
		ID:        vaultID,
		AccountID: accountID,
		Balance:   50,
	}, nil)
	d.vaultRepo.EXPECT().UpdateBalance(ctx, tx, vaultID, int64(45)).Return(nil)
	d.ledgerRepo.EXPECT().ApplyWithdrawal(ctx, tx, int64(5)).Return(nil)
	d.movementRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.gateway.EXPECT().Release(ctx, accountID, int64(5)).Return(errors.New("settlement unreachable"))

	movement, err := d.svc.Withdraw(ctx, ports.MovementRequest{AccountID: accountID, Amount: 5})
	assert.Nil(t, movement)
	assertAppError(t, err, "VAULT_005")
	// The commit must never happen; the deferred rollback undoes the decrement.
	assert.False(t, tx.committed)
	assert.True(t, tx.rolledBack)
}

// ==================== Read Tests ====================

func TestVaultService_BalanceOf(t *testing.T) {
	d := setupVaultService(t, LedgerLimits{BankCap: 100, WithdrawalLimit: 10})
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.vaultRepo.EXPECT().GetByAccountID(ctx, accountID).Return(&domain.Vault{
		ID:        uuid.New(),
		AccountID: accountID,
		Balance:   77,
	}, nil)

	balance, err := d.svc.BalanceOf(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(77), balance)
}

func TestVaultService_BalanceOf_UnknownAccountIsZero(t *testing.T) {
	d := setupVaultService(t, LedgerLimits{BankCap: 100, WithdrawalLimit: 10})
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()

	d.vaultRepo.EXPECT().GetByAccountID(ctx, accountID).Return(nil, nil)

	balance, err := d.svc.BalanceOf(ctx, accountID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), balance)
}

func TestVaultService_Summary(t *testing.T) {
	d := setupVaultService(t, LedgerLimits{BankCap: 100, WithdrawalLimit: 10})
	defer d.ctrl.Finish()

	ctx := context.Background()
	d.ledgerRepo.EXPECT().Get(ctx).Return(&domain.LedgerState{
		TotalBalance:    42,
		DepositCount:    7,
		WithdrawalCount: 3,
	}, nil)

	summary, err := d.svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(100), summary.BankCap)
	assert.Equal(t, int64(10), summary.WithdrawalLimit)
	assert.Equal(t, int64(42), summary.TotalBalance)
	assert.Equal(t, int64(7), summary.DepositCount)
	assert.Equal(t, int64(3), summary.WithdrawalCount)
}

func TestVaultService_Deposit_PublishFailureDoesNotFail(t *testing.T) {
	// The state change is committed; a lost notification is only logged.
	d := setupVaultService(t, LedgerLimits{BankCap: 100, WithdrawalLimit: 10})
	defer d.ctrl.Finish()

	ctx := context.Background()
	accountID := uuid.New()
	vaultID := uuid.New()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.ledgerRepo.EXPECT().GetForUpdate(ctx, tx).Return(&domain.LedgerState{TotalBalance: 0}, nil)
	d.vaultRepo.EXPECT().GetByAccountIDForUpdate(ctx, tx, accountID).Return(&domain.Vault{
		ID:        vaultID,
		AccountID: accountID,
		Balance:   0,
	}, nil)
	d.vaultRepo.EXPECT().UpdateBalance(ctx, tx, vaultID, int64(10)).Return(nil)
	d.ledgerRepo.EXPECT().ApplyDeposit(ctx, tx, int64(10)).Return(nil)
	d.movementRepo.EXPECT().Create(ctx, tx, gomock.Any()).Return(nil)
	d.events.EXPECT().Publish(ctx, gomock.Any()).Return(errors.New("stream down"))

	movement, err := d.svc.Deposit(ctx, ports.MovementRequest{AccountID: accountID, Amount: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(10), movement.BalanceAfter)
	assert.True(t, tx.committed)
}
