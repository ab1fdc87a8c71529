package integration

import (
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"kipu-bank/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The transactor serializes mutations on the ledger totals lock, so no
// interleaving of concurrent requests may push the total above the cap or
// a balance below zero. These tests hammer the full HTTP stack to verify
// that.

func TestConcurrency_DepositsNeverExceedCap(t *testing.T) {
	app := newTestApp(t, service.LedgerLimits{BankCap: 100, WithdrawalLimit: 10})
	defer app.close()

	token := registerAndLogin(t, app, "alice")

	// 50 concurrent deposits of 10 against a cap of 100: exactly 10 can
	// succeed, the rest must fail with the cap error.
	const workers = 50
	var ok, capHit int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			resp, body := doAuthed(t, app, token, http.MethodPost, "/api/v1/vault/deposit", map[string]int64{"amount": 10})
			switch resp.StatusCode {
			case http.StatusOK:
				atomic.AddInt64(&ok, 1)
			case http.StatusUnprocessableEntity:
				require.Equal(t, "VAULT_002", body["error_code"])
				atomic.AddInt64(&capHit, 1)
			default:
				t.Errorf("unexpected status %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), ok)
	assert.Equal(t, int64(40), capHit)

	summary := vaultSummary(t, app, token)
	assert.Equal(t, float64(100), summary["total_balance"])
	assert.Equal(t, float64(10), summary["deposit_count"])
	assert.Equal(t, int64(100), vaultBalance(t, app, token))
}

func TestConcurrency_WithdrawalsNeverOverdraw(t *testing.T) {
	app := newTestApp(t, service.LedgerLimits{BankCap: 1000, WithdrawalLimit: 10})
	defer app.close()

	token := registerAndLogin(t, app, "alice")

	resp, _ := doAuthed(t, app, token, http.MethodPost, "/api/v1/vault/deposit", map[string]int64{"amount": 55})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// 20 concurrent withdrawals of 10 against a balance of 55: only 5 can
	// succeed, everything else hits the insufficient-balance error.
	const workers = 20
	var ok, insufficient int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			resp, body := doAuthed(t, app, token, http.MethodPost, "/api/v1/vault/withdraw", map[string]int64{"amount": 10})
			switch resp.StatusCode {
			case http.StatusOK:
				atomic.AddInt64(&ok, 1)
			case http.StatusPaymentRequired:
				require.Equal(t, "VAULT_004", body["error_code"])
				atomic.AddInt64(&insufficient, 1)
			default:
				t.Errorf("unexpected status %d", resp.StatusCode)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5), ok)
	assert.Equal(t, int64(15), insufficient)
	assert.Equal(t, int64(5), vaultBalance(t, app, token))

	app.gateway.mu.Lock()
	released := app.gateway.released
	app.gateway.mu.Unlock()
	assert.Equal(t, int64(50), released)

	summary := vaultSummary(t, app, token)
	assert.Equal(t, float64(5), summary["total_balance"])
	assert.Equal(t, float64(5), summary["withdrawal_count"])
}

func TestConcurrency_MixedTrafficKeepsLedgerConsistent(t *testing.T) {
	app := newTestApp(t, service.LedgerLimits{BankCap: 10_000, WithdrawalLimit: 100})
	defer app.close()

	tokenA := registerAndLogin(t, app, "alice")
	tokenB := registerAndLogin(t, app, "bob")

	seed := func(token string) {
		resp, _ := doAuthed(t, app, token, http.MethodPost, "/api/v1/vault/deposit", map[string]int64{"amount": 500})
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}
	seed(tokenA)
	seed(tokenB)

	var wg sync.WaitGroup
	for _, token := range []string{tokenA, tokenB} {
		for i := 0; i < 10; i++ {
			wg.Add(2)
			go func(tok string) {
				defer wg.Done()
				doAuthed(t, app, tok, http.MethodPost, "/api/v1/vault/deposit", map[string]int64{"amount": 7})
			}(token)
			go func(tok string) {
				defer wg.Done()
				doAuthed(t, app, tok, http.MethodPost, "/api/v1/vault/withdraw", map[string]int64{"amount": 7})
			}(token)
		}
	}
	wg.Wait()

	// Both accounts did the same number of successful deposits and
	// withdrawals (nothing could fail at these bounds), so every balance
	// is back where it started.
	assert.Equal(t, int64(500), vaultBalance(t, app, tokenA))
	assert.Equal(t, int64(500), vaultBalance(t, app, tokenB))

	summary := vaultSummary(t, app, tokenA)
	assert.Equal(t, float64(1000), summary["total_balance"])
	assert.Equal(t, float64(22), summary["deposit_count"])
	assert.Equal(t, float64(20), summary["withdrawal_count"])
}
