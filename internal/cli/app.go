// Package cli implements the ledgerctl subcommands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/NgigiN/wallet/internal/date"
	"github.com/NgigiN/wallet/internal/ledger"
	"github.com/NgigiN/wallet/internal/storage"
	"github.com/google/subcommands"
)

type Directory interface {
	CreateUser(ctx context.Context, name string) (storage.User, error)
	CreateAccount(ctx context.Context, user, name string) (storage.Account, error)
	DeleteAccount(ctx context.Context, user, name string) (string, error)
	CreateImmediatePayment(ctx context.Context, user, name, account string) (storage.PaymentMethod, error)
	CreateDeferredPayment(ctx context.Context, user, name, account string, rule storage.CycleRule) (storage.PaymentMethod, error)
	DeletePayment(ctx context.Context, user, name string) (string, error)
	Accounts(ctx context.Context, user string) ([]storage.Account, error)
	PaymentMethods(ctx context.Context, user string) ([]storage.PaymentMethod, error)
}

type Ledger interface {
	AddTransaction(ctx context.Context, req ledger.AddRequest) (ledger.Receipt, error)
	DeleteTransaction(ctx context.Context, user string, on date.Date, order int) error
	History(ctx context.Context, user, account string) ([]storage.AccountHistory, error)
	Balance(ctx context.Context, user, account string, asOf *date.Date) (int64, error)
	Transactions(ctx context.Context, user string, on date.Date) ([]storage.Transaction, error)
}

// App is what every subcommand works against.
type App struct {
	Dir      Directory
	Ledger   Ledger
	Currency string
	Attempts int
	Out      io.Writer
	Err      io.Writer
}

// Register adds every subcommand to c.
func Register(c *subcommands.Commander, app *App) {
	c.Register(c.HelpCommand(), "")
	c.Register(c.FlagsCommand(), "")

	c.Register(&userAddCmd{app: app}, "directory")
	c.Register(&accountCmd{app: app}, "directory")
	c.Register(&rmAccountCmd{app: app}, "directory")
	c.Register(&accountsCmd{app: app}, "directory")
	c.Register(&paymentCmd{app: app}, "directory")
	c.Register(&rmPaymentCmd{app: app}, "directory")
	c.Register(&paymentsCmd{app: app}, "directory")

	c.Register(&addCmd{app: app}, "ledger")
	c.Register(&deleteCmd{app: app}, "ledger")
	c.Register(&dayCmd{app: app}, "ledger")
	c.Register(&historyCmd{app: app}, "ledger")
	c.Register(&balanceCmd{app: app}, "ledger")
}

func (a *App) retry(ctx context.Context, op func() error) error {
	attempts := a.Attempts
	if attempts < 1 {
		attempts = 1
	}
	return ledger.RetryConflicts(ctx, attempts, op)
}

// fail reports err and picks the exit status: request errors are usage errors.
func (a *App) fail(what string, err error) subcommands.ExitStatus {
	fmt.Fprintf(a.Err, "%s: %v\n", what, err)
	if errors.Is(err, storage.ErrInvalid) {
		return subcommands.ExitUsageError
	}
	return subcommands.ExitFailure
}

func (a *App) usage(msg string) subcommands.ExitStatus {
	fmt.Fprintln(a.Err, msg)
	return subcommands.ExitUsageError
}
