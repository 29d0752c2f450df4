package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/NgigiN/wallet/internal/amount"
	"github.com/NgigiN/wallet/internal/date"
	"github.com/NgigiN/wallet/internal/ledger"
	"github.com/NgigiN/wallet/internal/storage"
	"github.com/google/subcommands"
)

// dateFlag is a flag.Value reading YYYY-MM-DD.
type dateFlag struct {
	date.Date
}

func (d *dateFlag) Set(s string) error {
	on, err := date.Parse(s)
	if err != nil {
		return err
	}
	d.Date = on
	return nil
}

func (d *dateFlag) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Date.String()
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{storage.ErrInvalid}, args...)...)
}

type addCmd struct {
	owned
	app      *App
	on       dateFlag
	purpose  string
	memo     string
	payment  string
	spent    string
	account  string
	received string
}

func (*addCmd) Name() string     { return "add" }
func (*addCmd) Synopsis() string { return "record a transaction" }
func (*addCmd) Usage() string {
	return `add -u <user> -d <date> -purpose <text> [-memo <text>] [-pay <method> -spent <amount>] [-in <account> -received <amount>]

  Records a transaction with an expense leg, an income leg, both or neither.
  Amounts are in major units of the configured currency, e.g. 12.50.
  Prints the date and display order that identify the transaction.
`
}

func (c *addCmd) SetFlags(f *flag.FlagSet) {
	c.setUser(f)
	f.Var(&c.on, "d", "transaction date (YYYY-MM-DD)")
	f.StringVar(&c.purpose, "purpose", "", "what the transaction was for")
	f.StringVar(&c.memo, "memo", "", "optional memo")
	f.StringVar(&c.payment, "pay", "", "payment method of the expense leg")
	f.StringVar(&c.spent, "spent", "", "amount spent")
	f.StringVar(&c.account, "in", "", "account of the income leg")
	f.StringVar(&c.received, "received", "", "amount received")
}

func (c *addCmd) request() (ledger.AddRequest, error) {
	if c.on.IsZero() {
		return ledger.AddRequest{}, invalid("-d is required")
	}
	req := ledger.AddRequest{User: c.user, Date: c.on.Date, Purpose: c.purpose, Memo: c.memo}
	if (c.payment == "") != (c.spent == "") {
		return ledger.AddRequest{}, invalid("-pay and -spent go together")
	}
	if (c.account == "") != (c.received == "") {
		return ledger.AddRequest{}, invalid("-in and -received go together")
	}
	if c.payment != "" {
		v, err := amount.Parse(c.spent, c.app.Currency)
		if err != nil {
			return ledger.AddRequest{}, invalid("-spent: %v", err)
		}
		req.Expense = &ledger.Expense{Payment: c.payment, Amount: v}
	}
	if c.account != "" {
		v, err := amount.Parse(c.received, c.app.Currency)
		if err != nil {
			return ledger.AddRequest{}, invalid("-received: %v", err)
		}
		req.Income = &ledger.Income{Account: c.account, Amount: v}
	}
	return req, nil
}

func (c *addCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	req, err := c.request()
	if err != nil {
		return c.app.fail("add", err)
	}
	var r ledger.Receipt
	err = c.app.retry(ctx, func() (err error) {
		r, err = c.app.Ledger.AddTransaction(ctx, req)
		return err
	})
	if err != nil {
		return c.app.fail("add", err)
	}
	fmt.Fprintf(c.app.Out, "%s #%d\n", r.Date, r.DisplayOrder)
	return subcommands.ExitSuccess
}

type deleteCmd struct {
	owned
	app   *App
	on    dateFlag
	order int
}

func (*deleteCmd) Name() string     { return "delete" }
func (*deleteCmd) Synopsis() string { return "delete a transaction" }
func (*deleteCmd) Usage() string {
	return `delete -u <user> -d <date> -n <display order>
`
}

func (c *deleteCmd) SetFlags(f *flag.FlagSet) {
	c.setUser(f)
	f.Var(&c.on, "d", "transaction date (YYYY-MM-DD)")
	f.IntVar(&c.order, "n", 0, "display order within the day")
}

func (c *deleteCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.on.IsZero() || c.order < 1 {
		return c.app.usage("both -d and -n are required")
	}
	err := c.app.retry(ctx, func() error {
		return c.app.Ledger.DeleteTransaction(ctx, c.user, c.on.Date, c.order)
	})
	if err != nil {
		return c.app.fail("delete", err)
	}
	fmt.Fprintf(c.app.Out, "deleted %s #%d\n", c.on.Date, c.order)
	return subcommands.ExitSuccess
}

type dayCmd struct {
	owned
	app *App
	on  dateFlag
}

func (*dayCmd) Name() string     { return "day" }
func (*dayCmd) Synopsis() string { return "list the transactions of a day" }
func (*dayCmd) Usage() string {
	return `day -u <user> [-d <date>]
  Without -d the current day is listed.
`
}

func (c *dayCmd) SetFlags(f *flag.FlagSet) {
	c.setUser(f)
	f.Var(&c.on, "d", "date (YYYY-MM-DD), today when omitted")
}

func (c *dayCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if c.on.IsZero() {
		c.on.Date = date.Today()
	}
	txs, err := c.app.Ledger.Transactions(ctx, c.user, c.on.Date)
	if err != nil {
		return c.app.fail("day", err)
	}
	fmt.Fprintf(c.app.Out, "#\tPurpose\tSpent\tReceived\n")
	for _, t := range txs {
		spent, received := "-", "-"
		if t.PaymentMethodID != nil {
			spent = amount.Major(t.AmountSpent, c.app.Currency)
		}
		if t.AccountID != nil {
			received = amount.Major(t.AmountReceived, c.app.Currency)
		}
		fmt.Fprintf(c.app.Out, "%d\t%s\t%s\t%s\n", t.DisplayOrder, t.Purpose, spent, received)
	}
	return subcommands.ExitSuccess
}

type historyCmd struct {
	owned
	app     *App
	account string
}

func (*historyCmd) Name() string     { return "history" }
func (*historyCmd) Synopsis() string { return "display an account's balance history" }
func (*historyCmd) Usage() string {
	return `history -u <user> -a <account>

  Lists the account's balance checkpoints in order: the date the movement
  hits the account, the movement and the balance after it.
`
}

func (c *historyCmd) SetFlags(f *flag.FlagSet) {
	c.setUser(f)
	f.StringVar(&c.account, "a", "", "account name")
}

func (c *historyCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	hs, err := c.app.Ledger.History(ctx, c.user, c.account)
	if err != nil {
		return c.app.fail("history", err)
	}
	fmt.Fprintf(c.app.Out, "Date\t\tDelta\tBalance\n")
	for _, h := range hs {
		fmt.Fprintf(c.app.Out, "%s\t%s\t%s\n", h.EffectiveDate,
			amount.Major(h.Delta, c.app.Currency), amount.Major(h.Balance, c.app.Currency))
	}
	return subcommands.ExitSuccess
}

type balanceCmd struct {
	owned
	app     *App
	account string
	asOf    dateFlag
}

func (*balanceCmd) Name() string     { return "balance" }
func (*balanceCmd) Synopsis() string { return "display an account's balance" }
func (*balanceCmd) Usage() string {
	return `balance -u <user> -a <account> [-asof <date>]
`
}

func (c *balanceCmd) SetFlags(f *flag.FlagSet) {
	c.setUser(f)
	f.StringVar(&c.account, "a", "", "account name")
	f.Var(&c.asOf, "asof", "balance at the end of this day (default: latest)")
}

func (c *balanceCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var asOf *date.Date
	if !c.asOf.IsZero() {
		asOf = &c.asOf.Date
	}
	v, err := c.app.Ledger.Balance(ctx, c.user, c.account, asOf)
	if err != nil {
		return c.app.fail("balance", err)
	}
	fmt.Fprintln(c.app.Out, amount.Format(v, c.app.Currency))
	return subcommands.ExitSuccess
}
