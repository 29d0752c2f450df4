package ledger

import (
	"fmt"

	"github.com/NgigiN/wallet/internal/date"
	"github.com/NgigiN/wallet/internal/storage"
	"gorm.io/gorm"
)

// Ref points a checkpoint back to the transaction leg that produced it. One
// transaction can leave an expense and an income checkpoint on the same account.
type Ref struct {
	TransactionID uint
	Leg           storage.Leg
}

// Sequencer maintains each account's ordered sequence of balance checkpoints.
//
// Checkpoints store the running balance, not the movement, so balance reads are a
// single row lookup and every insert or reversal shifts all later checkpoints. The
// movement itself is kept in Delta so a reversal never depends on its neighbours.
//
// Both operations must run inside a store transaction while the caller holds the
// account's lock.
type Sequencer struct{}

// later selects the non-deleted checkpoints of the account strictly after
// (on, tiebreaker).
func later(tx *gorm.DB, accountID uint, on date.Date, tiebreaker int) *gorm.DB {
	return tx.Model(&storage.AccountHistory{}).
		Where("account_id = ? AND deleted = ?", accountID, false).
		Where("(effective_date > ? OR (effective_date = ? AND tiebreaker > ?))", on, on, tiebreaker)
}

// Insert adds a checkpoint of delta on the account at date on and returns its balance.
// It is placed after every existing checkpoint of that date.
func (Sequencer) Insert(tx *gorm.DB, accountID uint, on date.Date, delta int64, ref Ref) (int64, error) {
	prior, _, err := storage.LastCheckpoint(tx, accountID, &on)
	if err != nil {
		return 0, fmt.Errorf("read prior balance: %w", err)
	}

	// deleted rows count so a tiebreaker is never reused
	var last int
	err = tx.Model(&storage.AccountHistory{}).
		Where("account_id = ?", accountID).
		Select("COALESCE(MAX(tiebreaker), 0)").
		Scan(&last).Error
	if err != nil {
		return 0, fmt.Errorf("read tiebreaker: %w", storage.Classify(err))
	}

	cp := storage.AccountHistory{
		AccountID:     accountID,
		EffectiveDate: on,
		Tiebreaker:    last + 1,
		TransactionID: ref.TransactionID,
		Leg:           ref.Leg,
		Delta:         delta,
		Balance:       prior.Balance + delta,
	}
	if err := tx.Create(&cp).Error; err != nil {
		return 0, fmt.Errorf("create checkpoint: %w", storage.Classify(err))
	}

	if delta != 0 {
		err = later(tx, accountID, cp.EffectiveDate, cp.Tiebreaker).
			Update("balance", gorm.Expr("balance + ?", delta)).Error
		if err != nil {
			return 0, fmt.Errorf("shift later checkpoints: %w", storage.Classify(err))
		}
	}
	return cp.Balance, nil
}

// Reverse deletes the account's checkpoint produced by ref and takes its delta back
// out of every later checkpoint. It reports false, and changes nothing, when the
// account has no such checkpoint.
func (Sequencer) Reverse(tx *gorm.DB, accountID uint, ref Ref) (bool, error) {
	var cp storage.AccountHistory
	res := tx.Where("account_id = ? AND transaction_id = ? AND leg = ? AND deleted = ?",
		accountID, ref.TransactionID, ref.Leg, false).Limit(1).Find(&cp)
	if res.Error != nil {
		return false, fmt.Errorf("find checkpoint: %w", storage.Classify(res.Error))
	}
	if res.RowsAffected == 0 {
		return false, nil
	}

	if err := tx.Model(&cp).Update("deleted", true).Error; err != nil {
		return false, fmt.Errorf("delete checkpoint: %w", storage.Classify(err))
	}
	if cp.Delta != 0 {
		err := later(tx, accountID, cp.EffectiveDate, cp.Tiebreaker).
			Update("balance", gorm.Expr("balance - ?", cp.Delta)).Error
		if err != nil {
			return false, fmt.Errorf("shift later checkpoints: %w", storage.Classify(err))
		}
	}
	return true, nil
}
