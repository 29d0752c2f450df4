package discord

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/NgigiN/wallet/internal/config"
	"github.com/NgigiN/wallet/internal/date"
	"github.com/NgigiN/wallet/internal/ledger"
	"github.com/NgigiN/wallet/internal/lock"
	"github.com/NgigiN/wallet/internal/mpesa"
	"github.com/NgigiN/wallet/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	paid     = `TIH5CRR635 Confirmed. Ksh65.00 paid to Anthony Wambua Muinde2. on 17/9/25 at 6:56 PM.New M-PESA balance is Ksh719.18. Transaction cost, Ksh0.00.`
	received = `TIK1ABC234 Confirmed.You have received Ksh1,500.00 from JOHN DOE 0712345678 on 20/9/25 at 10:15 AM New M-PESA balance is Ksh2,179.18.`
)

type env struct {
	ctx context.Context
	rec *ledger.Recorder
	h   *Handler
}

func newEnv(t *testing.T) env {
	t.Helper()
	ctx := context.Background()
	db, err := storage.NewDatabase(config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "wallet.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.CreateUser(ctx, "njeri")
	require.NoError(t, err)
	for _, name := range []string{"Wallet", "Bank"} {
		_, err = db.CreateAccount(ctx, "njeri", name)
		require.NoError(t, err)
	}
	_, err = db.CreateImmediatePayment(ctx, "njeri", "M-PESA", "Wallet")
	require.NoError(t, err)
	_, err = db.CreateDeferredPayment(ctx, "njeri", "Visa Card", "Bank", storage.CycleRule{ClosingDay: 25, OffsetMonths: 1, PaymentDay: 10})
	require.NoError(t, err)

	rec := ledger.NewRecorder(db, lock.NewLocal(), zerolog.Nop())
	booking := mpesa.Booking{User: "njeri", Payment: "M-PESA", Account: "Wallet"}
	return env{ctx: ctx, rec: rec, h: NewHandler(rec, booking, "USD", 3, zerolog.Nop())}
}

func (e env) balance(t *testing.T, account string) int64 {
	t.Helper()
	v, err := e.rec.Balance(e.ctx, "njeri", account, nil)
	require.NoError(t, err)
	return v
}

func TestAddAndDelete(t *testing.T) {
	e := newEnv(t)

	reply := e.h.Handle(e.ctx, "!add 2024-01-15 Groceries\npay: Visa Card 12.50\nmemo: weekly")
	assert.Equal(t, "Recorded 2024-01-15 #1 Groceries", reply)
	assert.Equal(t, int64(-1250), e.balance(t, "Bank"))

	reply = e.h.Handle(e.ctx, "!balance Bank 2024-01-31")
	assert.Equal(t, "**Bank** on 2024-01-31: $0.00", reply)
	reply = e.h.Handle(e.ctx, "!balance Bank")
	assert.Equal(t, "**Bank**: -$12.50", reply)

	reply = e.h.Handle(e.ctx, "!day 2024-01-15")
	assert.Equal(t, "**2024-01-15**\n#1 Groceries spent $12.50 (weekly)", reply)

	reply = e.h.Handle(e.ctx, "!history Bank")
	assert.Equal(t, "**Bank history**\n2024-02-10 -$12.50 → -$12.50", reply)

	reply = e.h.Handle(e.ctx, "!delete 2024-01-15 1")
	assert.Equal(t, "Deleted 2024-01-15 #1", reply)
	assert.Zero(t, e.balance(t, "Bank"))

	reply = e.h.Handle(e.ctx, "!delete 2024-01-15 1")
	assert.Contains(t, reply, "Failed to delete transaction")
	assert.Contains(t, reply, "not found")
}

func TestAddTransfer(t *testing.T) {
	e := newEnv(t)

	reply := e.h.Handle(e.ctx, "!add 2024-03-01 ATM\np: M-PESA 20\na: Bank 20")
	assert.Equal(t, "Recorded 2024-03-01 #1 ATM", reply)
	assert.Equal(t, int64(-2000), e.balance(t, "Wallet"))
	assert.Equal(t, int64(2000), e.balance(t, "Bank"))
}

func TestAddRejects(t *testing.T) {
	e := newEnv(t)

	for _, msg := range []string{
		"!add",
		"!add yesterday lunch",
		"!add 2024-01-01 lunch\npay: M-PESA lots",
		"!add 2024-01-01 lunch\npay: 12",
		"!add 2024-01-01 lunch\npay: M-PESA -3",
	} {
		assert.Contains(t, e.h.Handle(e.ctx, msg), "Invalid request", msg)
	}
	assert.Contains(t, e.h.Handle(e.ctx, "!add 2024-01-01 lunch\npay: Amex 3"), "not found")

	txs, err := e.rec.Transactions(e.ctx, "njeri", date.New(2024, 1, 1))
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestUsageAndUnknown(t *testing.T) {
	e := newEnv(t)

	assert.Equal(t, usage, e.h.Handle(e.ctx, "!help"))
	assert.Contains(t, e.h.Handle(e.ctx, "!summary"), "Unknown command !summary")
	assert.Equal(t, "Usage: !delete <date> <order>", e.h.Handle(e.ctx, "!delete 2024-01-01"))
	assert.Equal(t, "Usage: !day [date]", e.h.Handle(e.ctx, "!day 2024-01-01 extra"))
	assert.Equal(t, "No transactions on 2024-01-01.", e.h.Handle(e.ctx, "!day 2024-01-01"))
	assert.Equal(t, "No history for Wallet.", e.h.Handle(e.ctx, "!history Wallet"))
	assert.Empty(t, e.h.Handle(e.ctx, "good morning"))
	assert.Empty(t, e.h.Handle(e.ctx, "   "))
}

func TestMpesaConfirmation(t *testing.T) {
	e := newEnv(t)

	reply := e.h.Handle(e.ctx, paid+"\nReason: lunch")
	assert.Contains(t, reply, "Tracked TIH5CRR635")
	assert.Contains(t, reply, "to Anthony Wambua Muinde2")
	assert.Equal(t, int64(-6500), e.balance(t, "Wallet"))

	txs, err := e.rec.Transactions(e.ctx, "njeri", date.New(2025, 9, 17))
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "Anthony Wambua Muinde2", txs[0].Purpose)
	require.NotNil(t, txs[0].Memo)
	assert.Equal(t, "TIH5CRR635: lunch", *txs[0].Memo)
}

func TestMpesaBatch(t *testing.T) {
	e := newEnv(t)

	broken := `TZZZ Confirmed. Ksh1.00 paid to Nobody on 99/99/25 at 1:00 PM.New M-PESA balance is Ksh1.00. Transaction cost, Ksh0.00.`
	reply := e.h.Handle(e.ctx, paid+"\n"+received+"\nr: salary\n"+broken)
	assert.Contains(t, reply, "**Batch processed**: 2 of 3 recorded")
	assert.Contains(t, reply, "Transaction 3")
	assert.Equal(t, int64(150000-6500), e.balance(t, "Wallet"))
}
