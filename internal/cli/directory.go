package cli

import (
	"context"
	"flag"
	"fmt"

	"github.com/NgigiN/wallet/internal/storage"
	"github.com/google/subcommands"
)

type userAddCmd struct {
	app  *App
	name string
}

func (*userAddCmd) Name() string     { return "useradd" }
func (*userAddCmd) Synopsis() string { return "create a ledger user" }
func (*userAddCmd) Usage() string {
	return `useradd -name <user>
`
}

func (c *userAddCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.name, "name", "", "user name")
}

func (c *userAddCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	u, err := c.app.Dir.CreateUser(ctx, c.name)
	if err != nil {
		return c.app.fail("useradd", err)
	}
	fmt.Fprintf(c.app.Out, "created user %s (#%d)\n", u.Name, u.ID)
	return subcommands.ExitSuccess
}

// owned holds the -u flag shared by every per-user command.
type owned struct {
	user string
}

func (o *owned) setUser(f *flag.FlagSet) {
	f.StringVar(&o.user, "u", "", "ledger user")
}

type accountCmd struct {
	owned
	app  *App
	name string
}

func (*accountCmd) Name() string     { return "account" }
func (*accountCmd) Synopsis() string { return "create an account" }
func (*accountCmd) Usage() string {
	return `account -u <user> -name <account>

  Creates an account. Names are unique among the user's active accounts.
`
}

func (c *accountCmd) SetFlags(f *flag.FlagSet) {
	c.setUser(f)
	f.StringVar(&c.name, "name", "", "account name")
}

func (c *accountCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	a, err := c.app.Dir.CreateAccount(ctx, c.user, c.name)
	if err != nil {
		return c.app.fail("account", err)
	}
	fmt.Fprintf(c.app.Out, "created account %s (#%d)\n", a.Name, a.ID)
	return subcommands.ExitSuccess
}

type rmAccountCmd struct {
	owned
	app  *App
	name string
}

func (*rmAccountCmd) Name() string     { return "rmaccount" }
func (*rmAccountCmd) Synopsis() string { return "delete an account" }
func (*rmAccountCmd) Usage() string {
	return `rmaccount -u <user> -name <account>

  Marks the account deleted and renames it so the name can be reused.
  Its history is kept.
`
}

func (c *rmAccountCmd) SetFlags(f *flag.FlagSet) {
	c.setUser(f)
	f.StringVar(&c.name, "name", "", "account name")
}

func (c *rmAccountCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	renamed, err := c.app.Dir.DeleteAccount(ctx, c.user, c.name)
	if err != nil {
		return c.app.fail("rmaccount", err)
	}
	fmt.Fprintf(c.app.Out, "deleted account %s, now %s\n", c.name, renamed)
	return subcommands.ExitSuccess
}

type accountsCmd struct {
	owned
	app *App
}

func (*accountsCmd) Name() string     { return "accounts" }
func (*accountsCmd) Synopsis() string { return "list active accounts" }
func (*accountsCmd) Usage() string {
	return `accounts -u <user>
`
}

func (c *accountsCmd) SetFlags(f *flag.FlagSet) { c.setUser(f) }

func (c *accountsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	as, err := c.app.Dir.Accounts(ctx, c.user)
	if err != nil {
		return c.app.fail("accounts", err)
	}
	for _, a := range as {
		fmt.Fprintf(c.app.Out, "%d\t%s\n", a.ID, a.Name)
	}
	return subcommands.ExitSuccess
}

type paymentCmd struct {
	owned
	app     *App
	name    string
	account string
	rule    storage.CycleRule
}

func (*paymentCmd) Name() string     { return "payment" }
func (*paymentCmd) Synopsis() string { return "create a payment method" }
func (*paymentCmd) Usage() string {
	return `payment -u <user> -name <method> -account <settlement account> [-closing <day> -offset <months> -payday <day>]

  Without -closing the method settles on the transaction date. With it, an
  expense settles on -payday of the month -offset months after the
  transaction's month.
`
}

func (c *paymentCmd) SetFlags(f *flag.FlagSet) {
	c.setUser(f)
	f.StringVar(&c.name, "name", "", "payment method name")
	f.StringVar(&c.account, "account", "", "settlement account")
	f.IntVar(&c.rule.ClosingDay, "closing", 0, "billing cycle closing day, 0 for immediate")
	f.IntVar(&c.rule.OffsetMonths, "offset", 1, "months between the transaction and the payment")
	f.IntVar(&c.rule.PaymentDay, "payday", 0, "day of month the payment is debited")
}

func (c *paymentCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	var (
		p   storage.PaymentMethod
		err error
	)
	if c.rule.Immediate() {
		p, err = c.app.Dir.CreateImmediatePayment(ctx, c.user, c.name, c.account)
	} else {
		p, err = c.app.Dir.CreateDeferredPayment(ctx, c.user, c.name, c.account, c.rule)
	}
	if err != nil {
		return c.app.fail("payment", err)
	}
	fmt.Fprintf(c.app.Out, "created payment method %s (#%d)\n", p.Name, p.ID)
	return subcommands.ExitSuccess
}

type rmPaymentCmd struct {
	owned
	app  *App
	name string
}

func (*rmPaymentCmd) Name() string     { return "rmpayment" }
func (*rmPaymentCmd) Synopsis() string { return "delete a payment method" }
func (*rmPaymentCmd) Usage() string {
	return `rmpayment -u <user> -name <method>
`
}

func (c *rmPaymentCmd) SetFlags(f *flag.FlagSet) {
	c.setUser(f)
	f.StringVar(&c.name, "name", "", "payment method name")
}

func (c *rmPaymentCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	renamed, err := c.app.Dir.DeletePayment(ctx, c.user, c.name)
	if err != nil {
		return c.app.fail("rmpayment", err)
	}
	fmt.Fprintf(c.app.Out, "deleted payment method %s, now %s\n", c.name, renamed)
	return subcommands.ExitSuccess
}

type paymentsCmd struct {
	owned
	app *App
}

func (*paymentsCmd) Name() string     { return "payments" }
func (*paymentsCmd) Synopsis() string { return "list active payment methods" }
func (*paymentsCmd) Usage() string {
	return `payments -u <user>
`
}

func (c *paymentsCmd) SetFlags(f *flag.FlagSet) { c.setUser(f) }

func (c *paymentsCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	ps, err := c.app.Dir.PaymentMethods(ctx, c.user)
	if err != nil {
		return c.app.fail("payments", err)
	}
	for _, p := range ps {
		if p.Rule.Immediate() {
			fmt.Fprintf(c.app.Out, "%d\t%s\timmediate\n", p.ID, p.Name)
			continue
		}
		fmt.Fprintf(c.app.Out, "%d\t%s\tcloses %d, pays day %d after %d month(s)\n",
			p.ID, p.Name, p.Rule.ClosingDay, p.Rule.PaymentDay, p.Rule.OffsetMonths)
	}
	return subcommands.ExitSuccess
}
