package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
)

// Directory operations manage users, accounts and payment methods. They are the
// lookups and renames the ledger engine depends on; none of them touches history.

func cleanName(kind, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: %s name is empty", ErrInvalid, kind)
	}
	return name, nil
}

func (d *Database) CreateUser(ctx context.Context, name string) (User, error) {
	name, err := cleanName("user", name)
	if err != nil {
		return User{}, err
	}
	u := User{Name: name}
	err = d.Transaction(ctx, func(tx *gorm.DB) error {
		_, err := FindUser(tx, name)
		switch {
		case err == nil:
			return fmt.Errorf("%w: user %q", ErrDuplicate, name)
		case !errors.Is(err, ErrNotFound):
			return err
		}
		return tx.Create(&u).Error
	})
	if err != nil {
		return User{}, fmt.Errorf("failed to create user: %w", err)
	}
	return u, nil
}

func (d *Database) CreateAccount(ctx context.Context, user, name string) (Account, error) {
	name, err := cleanName("account", name)
	if err != nil {
		return Account{}, err
	}
	var a Account
	err = d.Transaction(ctx, func(tx *gorm.DB) error {
		u, err := FindUser(tx, user)
		if err != nil {
			return err
		}
		if used, err := nameTaken(tx, &Account{}, u.ID)(name); err != nil {
			return err
		} else if used {
			return fmt.Errorf("%w: account %q", ErrDuplicate, name)
		}
		a = Account{UserID: u.ID, Name: name}
		return tx.Create(&a).Error
	})
	if err != nil {
		return Account{}, fmt.Errorf("failed to create account: %w", err)
	}
	return a, nil
}

// DeleteAccount soft-deletes the active account and renames it to free the name.
// It returns the name the account was renamed to.
func (d *Database) DeleteAccount(ctx context.Context, user, name string) (string, error) {
	var renamed string
	err := d.Transaction(ctx, func(tx *gorm.DB) error {
		u, err := FindUser(tx, user)
		if err != nil {
			return err
		}
		a, err := FindActiveAccount(tx, u.ID, name)
		if err != nil {
			return err
		}
		if renamed, err = NextFreeName(a.Name, nameTaken(tx, &Account{}, u.ID)); err != nil {
			return err
		}
		return tx.Model(&a).Updates(map[string]any{"name": renamed, "deleted": true}).Error
	})
	if err != nil {
		return "", fmt.Errorf("failed to delete account: %w", err)
	}
	return renamed, nil
}

// CreateImmediatePayment creates a payment method settling on the transaction date.
func (d *Database) CreateImmediatePayment(ctx context.Context, user, name, account string) (PaymentMethod, error) {
	return d.createPayment(ctx, user, name, account, CycleRule{})
}

// CreateDeferredPayment creates a payment method settling per rule. The closing day
// and payment day must be within 1..31; the month offset may be any integer.
func (d *Database) CreateDeferredPayment(ctx context.Context, user, name, account string, rule CycleRule) (PaymentMethod, error) {
	if rule.ClosingDay < 1 || rule.ClosingDay > 31 {
		return PaymentMethod{}, fmt.Errorf("%w: closing day %d out of 1..31", ErrInvalid, rule.ClosingDay)
	}
	if rule.PaymentDay < 1 || rule.PaymentDay > 31 {
		return PaymentMethod{}, fmt.Errorf("%w: payment day %d out of 1..31", ErrInvalid, rule.PaymentDay)
	}
	return d.createPayment(ctx, user, name, account, rule)
}

func (d *Database) createPayment(ctx context.Context, user, name, account string, rule CycleRule) (PaymentMethod, error) {
	name, err := cleanName("payment method", name)
	if err != nil {
		return PaymentMethod{}, err
	}
	var p PaymentMethod
	err = d.Transaction(ctx, func(tx *gorm.DB) error {
		u, err := FindUser(tx, user)
		if err != nil {
			return err
		}
		a, err := FindActiveAccount(tx, u.ID, account)
		if err != nil {
			return err
		}
		if used, err := nameTaken(tx, &PaymentMethod{}, u.ID)(name); err != nil {
			return err
		} else if used {
			return fmt.Errorf("%w: payment method %q", ErrDuplicate, name)
		}
		p = PaymentMethod{UserID: u.ID, Name: name, SettlementAccountID: a.ID, Rule: rule}
		return tx.Create(&p).Error
	})
	if err != nil {
		return PaymentMethod{}, fmt.Errorf("failed to create payment method: %w", err)
	}
	return p, nil
}

// DeletePayment soft-deletes the active payment method, stamping deleted_at and
// renaming it to free the name. It returns the new name.
func (d *Database) DeletePayment(ctx context.Context, user, name string) (string, error) {
	var renamed string
	err := d.Transaction(ctx, func(tx *gorm.DB) error {
		u, err := FindUser(tx, user)
		if err != nil {
			return err
		}
		p, err := FindActivePayment(tx, u.ID, name)
		if err != nil {
			return err
		}
		if renamed, err = NextFreeName(p.Name, nameTaken(tx, &PaymentMethod{}, u.ID)); err != nil {
			return err
		}
		return tx.Model(&p).Updates(map[string]any{"name": renamed, "deleted_at": time.Now()}).Error
	})
	if err != nil {
		return "", fmt.Errorf("failed to delete payment method: %w", err)
	}
	return renamed, nil
}

// Accounts lists the user's active accounts by name.
func (d *Database) Accounts(ctx context.Context, user string) ([]Account, error) {
	db := d.Conn(ctx)
	u, err := FindUser(db, user)
	if err != nil {
		return nil, err
	}
	var as []Account
	err = db.Where("user_id = ? AND deleted = ?", u.ID, false).Order("name").Find(&as).Error
	return as, Classify(err)
}

// PaymentMethods lists the user's active payment methods by name.
func (d *Database) PaymentMethods(ctx context.Context, user string) ([]PaymentMethod, error) {
	db := d.Conn(ctx)
	u, err := FindUser(db, user)
	if err != nil {
		return nil, err
	}
	var ps []PaymentMethod
	err = db.Where("user_id = ? AND deleted_at IS NULL", u.ID).Order("name").Find(&ps).Error
	return ps, Classify(err)
}
