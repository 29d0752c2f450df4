package storage

import (
	"time"

	"github.com/NgigiN/wallet/internal/date"
)

// User owns every other record. Authentication lives outside this store.
type User struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"size:64;uniqueIndex;not null"`
	CreatedAt time.Time
}

// Account is a place money sits: cash, a bank account, an e-money card.
// Names are unique per user; deleted accounts are renamed to free the name.
type Account struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"uniqueIndex:idx_account_user_name;not null"`
	Name      string `gorm:"size:128;uniqueIndex:idx_account_user_name;not null"`
	Deleted   bool   `gorm:"index;not null;default:false"`
	CreatedAt time.Time
}

// CycleRule describes when an expense paid with a method hits its settlement account.
// ClosingDay 0 means the expense settles on the transaction date.
type CycleRule struct {
	ClosingDay   int `gorm:"not null;default:0"`
	OffsetMonths int `gorm:"not null;default:0"`
	PaymentDay   int `gorm:"not null;default:0"`
}

// Immediate reports whether the rule settles on the transaction date.
func (r CycleRule) Immediate() bool { return r.ClosingDay == 0 }

// PaymentMethod is a way of paying (card, e-money, cash) settled against an account.
type PaymentMethod struct {
	ID                  uint       `gorm:"primaryKey"`
	UserID              uint       `gorm:"uniqueIndex:idx_payment_user_name;not null"`
	Name                string     `gorm:"size:128;uniqueIndex:idx_payment_user_name;not null"`
	SettlementAccountID uint       `gorm:"index;not null"`
	Rule                CycleRule  `gorm:"embedded"`
	DeletedAt           *time.Time `gorm:"index"`
	CreatedAt           time.Time
}

// Transaction is one logical financial event. It may carry an expense leg
// (PaymentMethodID, AmountSpent), an income leg (AccountID, AmountReceived), both or neither.
type Transaction struct {
	ID              uint      `gorm:"primaryKey"`
	UserID          uint      `gorm:"uniqueIndex:idx_tx_user_date_order;not null"`
	Date            date.Date `gorm:"type:varchar(10);uniqueIndex:idx_tx_user_date_order;not null"`
	DisplayOrder    int       `gorm:"uniqueIndex:idx_tx_user_date_order;not null"`
	Purpose         string    `gorm:"size:255;not null"`
	Memo            *string   `gorm:"size:255"`
	PaymentMethodID *uint     `gorm:"index"`
	AmountSpent     int64     `gorm:"not null;default:0"`
	AccountID       *uint     `gorm:"index"`
	AmountReceived  int64     `gorm:"not null;default:0"`
	Deleted         bool      `gorm:"index;not null;default:false"`
	CreatedAt       time.Time
}

// Leg names the side of a transaction a checkpoint was produced by.
type Leg string

const (
	LegExpense Leg = "expense"
	LegIncome  Leg = "income"
)

// AccountHistory is a balance checkpoint: Balance is the account balance as of and
// including this entry, Delta is the entry's own contribution.
type AccountHistory struct {
	ID            uint      `gorm:"primaryKey"`
	AccountID     uint      `gorm:"index:idx_history_order,priority:1;not null"`
	EffectiveDate date.Date `gorm:"type:varchar(10);index:idx_history_order,priority:2;not null"`
	Tiebreaker    int       `gorm:"index:idx_history_order,priority:3;not null"`
	TransactionID uint      `gorm:"index;not null"`
	Leg           Leg       `gorm:"size:8;not null"`
	Delta         int64     `gorm:"not null"`
	Balance       int64     `gorm:"not null"`
	Deleted       bool      `gorm:"index;not null;default:false"`
	CreatedAt     time.Time
}
