package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/NgigiN/wallet/internal/date"
	"github.com/NgigiN/wallet/internal/lock"
	"github.com/NgigiN/wallet/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var errDiskFull = errors.New("disk full")

// isIncome reports whether v is an income checkpoint.
func isIncome(v any) bool {
	h, ok := v.(*storage.AccountHistory)
	return ok && h.Leg == storage.LegIncome
}

// failIncomeCreate makes every insert of an income checkpoint fail.
func (f *fixture) failIncomeCreate() {
	f.t.Helper()
	cb := f.db.Conn(f.ctx).Callback().Create()
	require.NoError(f.t, cb.Before("gorm:create").Register("test:fail_income", func(tx *gorm.DB) {
		if isIncome(tx.Statement.Dest) {
			tx.AddError(errDiskFull)
		}
	}))
	f.t.Cleanup(func() { cb.Remove("test:fail_income") })
}

// failIncomeUpdate makes every update of an income checkpoint row fail.
func (f *fixture) failIncomeUpdate() {
	f.t.Helper()
	cb := f.db.Conn(f.ctx).Callback().Update()
	require.NoError(f.t, cb.Before("gorm:update").Register("test:fail_income", func(tx *gorm.DB) {
		if isIncome(tx.Statement.Model) {
			tx.AddError(errDiskFull)
		}
	}))
	f.t.Cleanup(func() { cb.Remove("test:fail_income") })
}

func transfer(on string) AddRequest {
	return AddRequest{
		User: user, Date: date.MustParse(on), Purpose: "transfer",
		Expense: &Expense{Payment: "Debit", Amount: 250},
		Income:  &Income{Account: "Cash", Amount: 250},
	}
}

func TestAddRollsBackAfterPartialWrite(t *testing.T) {
	f := newFixture(t)
	bank := f.account("Bank")
	cash := f.account("Cash")
	f.immediate("Debit", "Bank")
	f.receive("2024-01-01", "Bank", 1000)
	f.receive("2024-01-09", "Cash", 10)

	before := f.snapshot()
	f.failIncomeCreate()

	// the transaction row and the expense checkpoint are written before the income
	// insert fails
	_, err := f.rec.AddTransaction(f.ctx, transfer("2024-01-05"))
	assert.ErrorIs(t, err, ErrStoreFailure)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, before, f.snapshot())
	assert.Equal(t, []point{{"2024-01-01", 1000, 1000}}, f.history(bank))
	assert.Equal(t, []point{{"2024-01-09", 10, 10}}, f.history(cash))

	txs, err := f.rec.Transactions(f.ctx, user, date.MustParse("2024-01-05"))
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestDeleteRollsBackAfterPartialWrite(t *testing.T) {
	f := newFixture(t)
	f.account("Bank")
	f.account("Cash")
	f.immediate("Debit", "Bank")
	f.receive("2024-01-01", "Bank", 1000)

	r, err := f.rec.AddTransaction(f.ctx, transfer("2024-01-05"))
	require.NoError(t, err)
	f.receive("2024-01-09", "Cash", 10)

	before := f.snapshot()
	f.failIncomeUpdate()

	// the transaction is marked deleted and the expense checkpoint reversed before
	// the income reversal fails
	err = f.rec.DeleteTransaction(f.ctx, user, r.Date, r.DisplayOrder)
	assert.ErrorIs(t, err, ErrStoreFailure)
	assert.ErrorIs(t, err, errDiskFull)
	assert.Equal(t, before, f.snapshot())

	txs, err := f.rec.Transactions(f.ctx, user, r.Date)
	require.NoError(t, err)
	require.Len(t, txs, 1, "transaction is still active")
	assert.Equal(t, r.TransactionID, txs[0].ID)
}

// signalLocker reports every Lock call on called before blocking on the wrapped Locker.
type signalLocker struct {
	lock.Locker
	called chan struct{}
}

func (s signalLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	s.called <- struct{}{}
	return s.Locker.Lock(ctx, keys...)
}

func TestAccountReplacedWhileWaitingForLock(t *testing.T) {
	f := newFixture(t)
	local := lock.NewLocal()
	locks := signalLocker{Locker: local, called: make(chan struct{}, 1)}
	f.rec = NewRecorder(f.db, locks, zerolog.Nop())
	f.account("Cash")

	u, err := storage.FindUser(f.db.Conn(f.ctx), user)
	require.NoError(t, err)
	release, err := local.Lock(f.ctx, lock.UserKey(u.ID))
	require.NoError(t, err)

	errc := make(chan error, 1)
	go func() {
		_, err := f.rec.AddTransaction(f.ctx, AddRequest{
			User: user, Date: date.MustParse("2024-01-01"), Purpose: "salary",
			Income: &Income{Account: "Cash", Amount: 500},
		})
		errc <- err
	}()

	// the name was resolved, now swap the account behind it
	<-locks.called
	_, err = f.db.DeleteAccount(f.ctx, user, "Cash")
	require.NoError(t, err)
	replacement := f.account("Cash")
	before := f.snapshot()
	release()

	err = <-errc
	assert.ErrorIs(t, err, ErrConflictRetry)
	assert.Equal(t, before, f.snapshot())

	// a retry resolves the new account; called has room for its signal
	f.receive("2024-01-01", "Cash", 500)
	assert.Equal(t, []point{{"2024-01-01", 500, 500}}, f.history(replacement))
}
