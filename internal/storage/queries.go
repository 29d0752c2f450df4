package storage

import (
	"errors"

	"github.com/NgigiN/wallet/internal/date"
	"gorm.io/gorm"
)

// The finders below take a *gorm.DB so they work both on a plain session and inside
// a transaction. A missing row is reported as ErrNotFound, anything else is classified.

func first(q *gorm.DB, dest any, missing error) error {
	err := q.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return missing
	}
	return Classify(err)
}

func FindUser(db *gorm.DB, name string) (User, error) {
	var u User
	err := first(db.Where("name = ?", name), &u, notFound("user %q", name))
	return u, err
}

func FindActiveAccount(db *gorm.DB, userID uint, name string) (Account, error) {
	var a Account
	err := first(db.Where("user_id = ? AND name = ? AND deleted = ?", userID, name, false),
		&a, notFound("account %q", name))
	return a, err
}

func FindActivePayment(db *gorm.DB, userID uint, name string) (PaymentMethod, error) {
	var p PaymentMethod
	err := first(db.Where("user_id = ? AND name = ? AND deleted_at IS NULL", userID, name),
		&p, notFound("payment method %q", name))
	return p, err
}

// FindPaymentByID returns the payment method whatever its deletion state.
func FindPaymentByID(db *gorm.DB, userID, id uint) (PaymentMethod, error) {
	var p PaymentMethod
	err := first(db.Where("user_id = ? AND id = ?", userID, id), &p, notFound("payment method #%d", id))
	return p, err
}

func FindActiveTransaction(db *gorm.DB, userID uint, on date.Date, order int) (Transaction, error) {
	var t Transaction
	err := first(db.Where("user_id = ? AND date = ? AND display_order = ? AND deleted = ?", userID, on, order, false),
		&t, notFound("transaction %s #%d", on, order))
	return t, err
}

// NextDisplayOrder returns the display order for a new transaction of the user on that
// date. Deleted rows count, so an order is never reused.
func NextDisplayOrder(db *gorm.DB, userID uint, on date.Date) (int, error) {
	var last int
	err := db.Model(&Transaction{}).
		Where("user_id = ? AND date = ?", userID, on).
		Select("COALESCE(MAX(display_order), 0)").
		Scan(&last).Error
	return last + 1, Classify(err)
}

// ActiveTransactions lists the user's active transactions on a date by display order.
func ActiveTransactions(db *gorm.DB, userID uint, on date.Date) ([]Transaction, error) {
	var txs []Transaction
	err := db.Where("user_id = ? AND date = ? AND deleted = ?", userID, on, false).
		Order("display_order").
		Find(&txs).Error
	return txs, Classify(err)
}

// Checkpoints returns the account's non-deleted history in (date, tiebreaker) order.
func Checkpoints(db *gorm.DB, accountID uint) ([]AccountHistory, error) {
	var hs []AccountHistory
	err := db.Where("account_id = ? AND deleted = ?", accountID, false).
		Order("effective_date, tiebreaker").
		Find(&hs).Error
	return hs, Classify(err)
}

// LastCheckpoint returns the account's latest non-deleted checkpoint in (date,
// tiebreaker) order, limited to effective dates up to and including upTo when given.
// ok is false when there is none.
func LastCheckpoint(db *gorm.DB, accountID uint, upTo *date.Date) (cp AccountHistory, ok bool, err error) {
	q := db.Where("account_id = ? AND deleted = ?", accountID, false)
	if upTo != nil {
		q = q.Where("effective_date <= ?", *upTo)
	}
	res := q.Order("effective_date DESC, tiebreaker DESC").Limit(1).Find(&cp)
	return cp, res.RowsAffected > 0, Classify(res.Error)
}
