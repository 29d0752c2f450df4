// Package ledger keeps every account's running-balance history consistent as
// transactions are recorded and deleted.
//
// A Recorder turns one financial event into one atomic store transaction: the
// transaction row, the expense checkpoint on the payment method's settlement account
// (on the date Resolve gives) and the income checkpoint on the receiving account.
// Mutations lock the owning user and every touched account through a lock.Locker,
// always in the same key order, before the store transaction begins.
package ledger

import (
	"context"
	"fmt"

	"github.com/NgigiN/wallet/internal/date"
	"github.com/NgigiN/wallet/internal/lock"
	"github.com/NgigiN/wallet/internal/storage"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Expense spends Amount through the named payment method.
type Expense struct {
	Payment string
	Amount  int64
}

// Income deposits Amount into the named account. Income is never deferred.
type Income struct {
	Account string
	Amount  int64
}

type AddRequest struct {
	User    string
	Date    date.Date
	Purpose string
	Memo    string // empty for none
	Expense *Expense
	Income  *Income
}

// Receipt identifies a recorded transaction. Date and DisplayOrder are what
// DeleteTransaction takes.
type Receipt struct {
	TransactionID uint      `json:"transaction_id"`
	Date          date.Date `json:"date"`
	DisplayOrder  int       `json:"display_order"`
}

type Recorder struct {
	db    *storage.Database
	locks lock.Locker
	seq   Sequencer
	log   zerolog.Logger
}

func NewRecorder(db *storage.Database, locks lock.Locker, log zerolog.Logger) *Recorder {
	return &Recorder{db: db, locks: locks, log: log}
}

func (r *Recorder) lock(ctx context.Context, userID uint, accounts ...uint) (func(), error) {
	keys := []string{lock.UserKey(userID)}
	for _, id := range accounts {
		keys = append(keys, lock.AccountKey(id))
	}
	release, err := r.locks.Lock(ctx, keys...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConflictRetry, err)
	}
	return release, nil
}

func (req AddRequest) validate() error {
	if req.Date.IsZero() {
		return fmt.Errorf("%w: transaction date is missing", ErrInvalid)
	}
	if req.Expense != nil && req.Expense.Amount < 0 {
		return fmt.Errorf("%w: negative amount spent %d", ErrInvalid, req.Expense.Amount)
	}
	if req.Income != nil && req.Income.Amount < 0 {
		return fmt.Errorf("%w: negative amount received %d", ErrInvalid, req.Income.Amount)
	}
	return nil
}

// AddTransaction records the transaction and its checkpoints atomically.
func (r *Recorder) AddTransaction(ctx context.Context, req AddRequest) (Receipt, error) {
	if err := req.validate(); err != nil {
		return Receipt{}, err
	}

	// Resolve names first to learn which accounts to lock, then check again under the
	// locks inside the store transaction.
	conn := r.db.Conn(ctx)
	user, err := storage.FindUser(conn, req.User)
	if err != nil {
		return Receipt{}, fmt.Errorf("add transaction: %w", err)
	}
	var touched []uint
	var payment storage.PaymentMethod
	if req.Expense != nil {
		if payment, err = storage.FindActivePayment(conn, user.ID, req.Expense.Payment); err != nil {
			return Receipt{}, fmt.Errorf("add transaction: %w", err)
		}
		touched = append(touched, payment.SettlementAccountID)
	}
	var account storage.Account
	if req.Income != nil {
		if account, err = storage.FindActiveAccount(conn, user.ID, req.Income.Account); err != nil {
			return Receipt{}, fmt.Errorf("add transaction: %w", err)
		}
		touched = append(touched, account.ID)
	}

	release, err := r.lock(ctx, user.ID, touched...)
	if err != nil {
		return Receipt{}, fmt.Errorf("add transaction: %w", err)
	}
	defer release()

	var receipt Receipt
	err = r.db.Transaction(ctx, func(tx *gorm.DB) error {
		t := storage.Transaction{
			UserID:  user.ID,
			Date:    req.Date,
			Purpose: req.Purpose,
		}
		if req.Memo != "" {
			t.Memo = &req.Memo
		}
		if req.Expense != nil {
			p, err := storage.FindActivePayment(tx, user.ID, req.Expense.Payment)
			if err != nil {
				return err
			}
			if p.SettlementAccountID != payment.SettlementAccountID {
				return fmt.Errorf("%w: payment method %q changed while locking", ErrConflictRetry, p.Name)
			}
			payment = p
			t.PaymentMethodID = &p.ID
			t.AmountSpent = req.Expense.Amount
		}
		if req.Income != nil {
			a, err := storage.FindActiveAccount(tx, user.ID, req.Income.Account)
			if err != nil {
				return err
			}
			if a.ID != account.ID {
				return fmt.Errorf("%w: account %q changed while locking", ErrConflictRetry, a.Name)
			}
			t.AccountID = &a.ID
			t.AmountReceived = req.Income.Amount
		}

		order, err := storage.NextDisplayOrder(tx, user.ID, req.Date)
		if err != nil {
			return err
		}
		t.DisplayOrder = order
		if err := tx.Create(&t).Error; err != nil {
			return err
		}

		if req.Expense != nil {
			settles := Resolve(req.Date, payment.Rule)
			if _, err := r.seq.Insert(tx, payment.SettlementAccountID, settles, -req.Expense.Amount,
				Ref{TransactionID: t.ID, Leg: storage.LegExpense}); err != nil {
				return err
			}
		}
		if req.Income != nil {
			if _, err := r.seq.Insert(tx, account.ID, req.Date, req.Income.Amount,
				Ref{TransactionID: t.ID, Leg: storage.LegIncome}); err != nil {
				return err
			}
		}
		receipt = Receipt{TransactionID: t.ID, Date: t.Date, DisplayOrder: t.DisplayOrder}
		return nil
	})
	if err != nil {
		return Receipt{}, fmt.Errorf("add transaction: %w", err)
	}

	r.log.Debug().
		Str("user", req.User).
		Uint("transaction", receipt.TransactionID).
		Str("date", receipt.Date.String()).
		Int("order", receipt.DisplayOrder).
		Msg("transaction recorded")
	return receipt, nil
}

// legs returns the accounts holding the transaction's checkpoints, expense first.
// The payment method is looked up whatever its deletion state: the checkpoint stays on
// the account it was settled against.
func legs(db *gorm.DB, t storage.Transaction) (expense, income *uint, err error) {
	if t.PaymentMethodID != nil {
		p, err := storage.FindPaymentByID(db, t.UserID, *t.PaymentMethodID)
		if err != nil {
			return nil, nil, err
		}
		expense = &p.SettlementAccountID
	}
	return expense, t.AccountID, nil
}

// DeleteTransaction marks the user's active transaction at (on, order) deleted and
// reverses its checkpoints atomically.
func (r *Recorder) DeleteTransaction(ctx context.Context, userName string, on date.Date, order int) error {
	conn := r.db.Conn(ctx)
	user, err := storage.FindUser(conn, userName)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	planned, err := storage.FindActiveTransaction(conn, user.ID, on, order)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	expense, income, err := legs(conn, planned)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	var touched []uint
	for _, id := range []*uint{expense, income} {
		if id != nil {
			touched = append(touched, *id)
		}
	}

	release, err := r.lock(ctx, user.ID, touched...)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	defer release()

	err = r.db.Transaction(ctx, func(tx *gorm.DB) error {
		t, err := storage.FindActiveTransaction(tx, user.ID, on, order)
		if err != nil {
			return err
		}
		if t.ID != planned.ID {
			return fmt.Errorf("%w: transaction %s #%d changed while locking", ErrConflictRetry, on, order)
		}
		if err := tx.Model(&t).Update("deleted", true).Error; err != nil {
			return err
		}
		if expense != nil {
			if _, err := r.seq.Reverse(tx, *expense, Ref{TransactionID: t.ID, Leg: storage.LegExpense}); err != nil {
				return err
			}
		}
		if income != nil {
			if _, err := r.seq.Reverse(tx, *income, Ref{TransactionID: t.ID, Leg: storage.LegIncome}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	r.log.Debug().
		Str("user", userName).
		Uint("transaction", planned.ID).
		Str("date", on.String()).
		Int("order", order).
		Msg("transaction deleted")
	return nil
}

func (r *Recorder) account(ctx context.Context, userName, accountName string) (storage.Account, error) {
	conn := r.db.Conn(ctx)
	user, err := storage.FindUser(conn, userName)
	if err != nil {
		return storage.Account{}, err
	}
	return storage.FindActiveAccount(conn, user.ID, accountName)
}

// History returns the active account's checkpoints in balance order.
func (r *Recorder) History(ctx context.Context, userName, accountName string) ([]storage.AccountHistory, error) {
	a, err := r.account(ctx, userName, accountName)
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	return storage.Checkpoints(r.db.Conn(ctx), a.ID)
}

// Balance returns the account balance after its last checkpoint, or as of the end of
// the given day when asOf is not nil.
func (r *Recorder) Balance(ctx context.Context, userName, accountName string, asOf *date.Date) (int64, error) {
	a, err := r.account(ctx, userName, accountName)
	if err != nil {
		return 0, fmt.Errorf("balance: %w", err)
	}
	cp, _, err := storage.LastCheckpoint(r.db.Conn(ctx), a.ID, asOf)
	if err != nil {
		return 0, fmt.Errorf("balance: %w", err)
	}
	return cp.Balance, nil
}

// Transactions lists the user's active transactions on a day, by display order.
func (r *Recorder) Transactions(ctx context.Context, userName string, on date.Date) ([]storage.Transaction, error) {
	conn := r.db.Conn(ctx)
	user, err := storage.FindUser(conn, userName)
	if err != nil {
		return nil, fmt.Errorf("transactions: %w", err)
	}
	return storage.ActiveTransactions(conn, user.ID, on)
}
