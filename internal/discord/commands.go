package discord

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/NgigiN/wallet/internal/amount"
	"github.com/NgigiN/wallet/internal/date"
	"github.com/NgigiN/wallet/internal/ledger"
	"github.com/NgigiN/wallet/internal/mpesa"
	"github.com/NgigiN/wallet/internal/storage"
	"github.com/rs/zerolog"
)

// Ledger is the part of the engine the chat commands drive.
type Ledger interface {
	AddTransaction(ctx context.Context, req ledger.AddRequest) (ledger.Receipt, error)
	DeleteTransaction(ctx context.Context, user string, on date.Date, order int) error
	History(ctx context.Context, user, account string) ([]storage.AccountHistory, error)
	Balance(ctx context.Context, user, account string, asOf *date.Date) (int64, error)
	Transactions(ctx context.Context, user string, on date.Date) ([]storage.Transaction, error)
}

const usage = "Commands:\n" +
	"`!add <date> <purpose>` then lines `pay: <method> <amount>`, `in: <account> <amount>`, `memo: <text>`\n" +
	"`!delete <date> <order>`\n" +
	"`!balance <account> [date]`\n" +
	"`!history <account>`\n" +
	"`!day [date]`\n" +
	"or paste M-PESA confirmations, each optionally followed by a `Reason:` line"

// historyLimit is how many of the latest checkpoints !history shows.
const historyLimit = 10

// Handler turns one chat message into engine calls and returns the reply.
type Handler struct {
	ledger   Ledger
	booking  mpesa.Booking
	currency string
	attempts int
	log      zerolog.Logger
}

func NewHandler(l Ledger, booking mpesa.Booking, currency string, attempts int, log zerolog.Logger) *Handler {
	return &Handler{ledger: l, booking: booking, currency: currency, attempts: attempts, log: log}
}

func (h *Handler) user() string { return h.booking.User }

// Handle returns the reply for content, or "" when the message is not for the bot.
func (h *Handler) Handle(ctx context.Context, content string) string {
	content = strings.TrimSpace(content)
	first, rest, _ := strings.Cut(content, "\n")
	fields := strings.Fields(first)
	if len(fields) == 0 {
		return ""
	}

	switch fields[0] {
	case "!help":
		return usage
	case "!add":
		return h.add(ctx, fields[1:], rest)
	case "!delete":
		return h.delete(ctx, fields[1:])
	case "!balance":
		return h.balance(ctx, fields[1:])
	case "!history":
		return h.history(ctx, fields[1:])
	case "!day":
		return h.day(ctx, fields[1:])
	}
	if strings.HasPrefix(fields[0], "!") {
		return "Unknown command " + fields[0] + "\n" + usage
	}
	if entries := mpesa.Split(content); len(entries) > 0 {
		return h.confirmations(ctx, entries)
	}
	return ""
}

func (h *Handler) retry(ctx context.Context, op func() error) error {
	return ledger.RetryConflicts(ctx, h.attempts, op)
}

// failure renders err for the channel; only store failures are logged.
func (h *Handler) failure(what string, err error) string {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		return fmt.Sprintf("Failed to %s: %v", what, err)
	case errors.Is(err, ledger.ErrInvalid):
		return fmt.Sprintf("Invalid request: %v", err)
	case errors.Is(err, ledger.ErrConflictRetry):
		return fmt.Sprintf("Failed to %s: the ledger is busy, try again", what)
	}
	h.log.Error().Err(err).Str("op", what).Msg("command failed")
	return fmt.Sprintf("Failed to %s: internal error", what)
}

// splitAmount reads "<name words> <amount>".
func (h *Handler) splitAmount(s string) (string, int64, error) {
	i := strings.LastIndexAny(s, " \t")
	if i < 0 {
		return "", 0, fmt.Errorf("%w: expected <name> <amount>, got %q", ledger.ErrInvalid, s)
	}
	name := strings.TrimSpace(s[:i])
	v, err := amount.Parse(s[i+1:], h.currency)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ledger.ErrInvalid, err)
	}
	return name, v, nil
}

func (h *Handler) parseAdd(args []string, body string) (ledger.AddRequest, error) {
	if len(args) == 0 {
		return ledger.AddRequest{}, fmt.Errorf("%w: usage !add <date> <purpose>", ledger.ErrInvalid)
	}
	on, err := date.Parse(args[0])
	if err != nil {
		return ledger.AddRequest{}, fmt.Errorf("%w: %v", ledger.ErrInvalid, err)
	}
	req := ledger.AddRequest{User: h.user(), Date: on, Purpose: strings.Join(args[1:], " ")}

	for _, line := range strings.Split(body, "\n") {
		key, value, ok := strings.Cut(strings.TrimSpace(line), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "pay", "p":
			name, v, err := h.splitAmount(value)
			if err != nil {
				return ledger.AddRequest{}, err
			}
			req.Expense = &ledger.Expense{Payment: name, Amount: v}
		case "in", "a":
			name, v, err := h.splitAmount(value)
			if err != nil {
				return ledger.AddRequest{}, err
			}
			req.Income = &ledger.Income{Account: name, Amount: v}
		case "memo", "m":
			req.Memo = value
		}
	}
	return req, nil
}

func (h *Handler) add(ctx context.Context, args []string, body string) string {
	req, err := h.parseAdd(args, body)
	if err != nil {
		return h.failure("add transaction", err)
	}
	var r ledger.Receipt
	err = h.retry(ctx, func() (err error) {
		r, err = h.ledger.AddTransaction(ctx, req)
		return err
	})
	if err != nil {
		return h.failure("add transaction", err)
	}
	return fmt.Sprintf("Recorded %s #%d %s", r.Date, r.DisplayOrder, req.Purpose)
}

func (h *Handler) delete(ctx context.Context, args []string) string {
	if len(args) != 2 {
		return "Usage: !delete <date> <order>"
	}
	on, err := date.Parse(args[0])
	if err != nil {
		return h.failure("delete transaction", fmt.Errorf("%w: %v", ledger.ErrInvalid, err))
	}
	order, err := strconv.Atoi(strings.TrimPrefix(args[1], "#"))
	if err != nil {
		return h.failure("delete transaction", fmt.Errorf("%w: bad order %q", ledger.ErrInvalid, args[1]))
	}
	err = h.retry(ctx, func() error { return h.ledger.DeleteTransaction(ctx, h.user(), on, order) })
	if err != nil {
		return h.failure("delete transaction", err)
	}
	return fmt.Sprintf("Deleted %s #%d", on, order)
}

func (h *Handler) balance(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "Usage: !balance <account> [date]"
	}
	var asOf *date.Date
	if on, err := date.Parse(args[len(args)-1]); err == nil && len(args) > 1 {
		asOf = &on
		args = args[:len(args)-1]
	}
	account := strings.Join(args, " ")
	v, err := h.ledger.Balance(ctx, h.user(), account, asOf)
	if err != nil {
		return h.failure("get balance", err)
	}
	if asOf != nil {
		return fmt.Sprintf("**%s** on %s: %s", account, asOf, amount.Format(v, h.currency))
	}
	return fmt.Sprintf("**%s**: %s", account, amount.Format(v, h.currency))
}

func (h *Handler) history(ctx context.Context, args []string) string {
	if len(args) == 0 {
		return "Usage: !history <account>"
	}
	account := strings.Join(args, " ")
	hs, err := h.ledger.History(ctx, h.user(), account)
	if err != nil {
		return h.failure("get history", err)
	}
	if len(hs) == 0 {
		return fmt.Sprintf("No history for %s.", account)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s history**\n", account)
	if len(hs) > historyLimit {
		fmt.Fprintf(&b, "... %d earlier entries\n", len(hs)-historyLimit)
		hs = hs[len(hs)-historyLimit:]
	}
	for _, c := range hs {
		fmt.Fprintf(&b, "%s %s → %s\n", c.EffectiveDate,
			signed(c.Delta, h.currency), amount.Format(c.Balance, h.currency))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func signed(v int64, currency string) string {
	if v > 0 {
		return "+" + amount.Format(v, currency)
	}
	return amount.Format(v, currency)
}

func (h *Handler) day(ctx context.Context, args []string) string {
	if len(args) > 1 {
		return "Usage: !day [date]"
	}
	on := date.Today()
	if len(args) == 1 {
		var err error
		if on, err = date.Parse(args[0]); err != nil {
			return h.failure("list transactions", fmt.Errorf("%w: %v", ledger.ErrInvalid, err))
		}
	}
	txs, err := h.ledger.Transactions(ctx, h.user(), on)
	if err != nil {
		return h.failure("list transactions", err)
	}
	if len(txs) == 0 {
		return fmt.Sprintf("No transactions on %s.", on)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", on)
	for _, t := range txs {
		fmt.Fprintf(&b, "#%d %s", t.DisplayOrder, t.Purpose)
		if t.PaymentMethodID != nil {
			fmt.Fprintf(&b, " spent %s", amount.Format(t.AmountSpent, h.currency))
		}
		if t.AccountID != nil {
			fmt.Fprintf(&b, " received %s", amount.Format(t.AmountReceived, h.currency))
		}
		if t.Memo != nil {
			fmt.Fprintf(&b, " (%s)", *t.Memo)
		}
		b.WriteString("\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// confirmations records every pasted M-PESA message and reports per message.
func (h *Handler) confirmations(ctx context.Context, entries []mpesa.Entry) string {
	var (
		ok   int
		last mpesa.Message
		errs []string
	)
	for i, e := range entries {
		m, err := mpesa.Parse(e.Message)
		if err != nil {
			errs = append(errs, fmt.Sprintf("Transaction %d: %v", i+1, err))
			continue
		}
		req := m.Request(h.booking, e.Note())
		err = h.retry(ctx, func() error {
			_, err := h.ledger.AddTransaction(ctx, req)
			return err
		})
		if err != nil {
			errs = append(errs, fmt.Sprintf("Transaction %d (%s): %s", i+1, m.Code, h.failure("record", err)))
			continue
		}
		ok++
		last = m
	}

	if len(entries) == 1 && len(errs) == 0 {
		preposition := "to"
		if last.Direction == mpesa.Incoming {
			preposition = "from"
		}
		return fmt.Sprintf("Tracked %s: %s %s %s", last.Code,
			amount.Format(last.Amount, mpesa.Currency), preposition, last.Counterparty)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**Batch processed**: %d of %d recorded", ok, len(entries))
	for _, e := range errs {
		b.WriteString("\n• " + e)
	}
	return b.String()
}
