package mpesa

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/NgigiN/wallet/internal/amount"
	"github.com/NgigiN/wallet/internal/date"
	"github.com/NgigiN/wallet/internal/ledger"
)

// Currency of every M-PESA confirmation.
const Currency = "KES"

var ErrNotConfirmation = errors.New("not an M-PESA confirmation message")

type Direction int

const (
	Outgoing Direction = iota // sent to / paid to
	Incoming                  // you have received
)

func (d Direction) String() string {
	if d == Incoming {
		return "incoming"
	}
	return "outgoing"
}

// Message is one parsed confirmation. Money fields are in cents.
type Message struct {
	Code         string
	Direction    Direction
	Amount       int64
	Counterparty string
	DateTime     time.Time
	Balance      int64
	Cost         int64
}

// Ksh<number>[,number]* with optional fractional part
const money = `Ksh\s?[\d,]+(?:\.\d+)?`

// The patterns tolerate the variants seen in real messages: missing or doubled spaces,
// "PM.New", "for account ..." inside the recipient and trailing promotional text.
var (
	outgoing = regexp.MustCompile(`(?i)(\w+)\s+Confirmed\.?\s+(` + money + `)\s+(?:sent|paid)\s+to\s+(.*?)\s*\.?\s+on\s+(\d{1,2}/\d{1,2}/\d{2})\s+at\s+(\d{1,2}:\d{2}\s?(?:AM|PM))\.?\s*New\s+(?:M-PESA|business)\s+balance\s+is\s+(` + money + `)\.\s*Transaction\s+cost,?\s*(` + money + `)(?:\.|\b)`)
	incoming = regexp.MustCompile(`(?i)(\w+)\s+Confirmed\.?\s*You\s+have\s+received\s+(` + money + `)\s+from\s+(.*?)\s*\.?\s+on\s+(\d{1,2}/\d{1,2}/\d{2})\s+at\s+(\d{1,2}:\d{2}\s?(?:AM|PM))\.?\s*New\s+(?:M-PESA|business)\s+balance\s+is\s+(` + money + `)(?:\.|\b)`)
	marker   = regexp.MustCompile(`(?i)\bConfirmed\.?\s*(?:.*\s(?:sent|paid)\s+to\s|You\s+have\s+received\s)`)
)

// IsConfirmation reports whether the line starts a confirmation message.
func IsConfirmation(line string) bool {
	return marker.MatchString(line)
}

// Parse reads an outgoing ("sent to", "paid to") or incoming ("You have received")
// confirmation.
func Parse(msg string) (Message, error) {
	if m := outgoing.FindStringSubmatch(msg); m != nil {
		out, err := build(Outgoing, m[1], m[2], m[3], m[4], m[5], m[6])
		if err != nil {
			return Message{}, err
		}
		if out.Cost, err = cents(m[7]); err != nil {
			return Message{}, fmt.Errorf("parse cost: %w", err)
		}
		return out, nil
	}
	if m := incoming.FindStringSubmatch(msg); m != nil {
		return build(Incoming, m[1], m[2], m[3], m[4], m[5], m[6])
	}
	return Message{}, ErrNotConfirmation
}

func build(dir Direction, code, amt, party, day, clock, balance string) (Message, error) {
	var (
		out = Message{Code: strings.ToUpper(code), Direction: dir}
		err error
	)
	if out.Amount, err = cents(amt); err != nil {
		return Message{}, fmt.Errorf("parse amount: %w", err)
	}
	if out.Balance, err = cents(balance); err != nil {
		return Message{}, fmt.Errorf("parse balance: %w", err)
	}
	// collapse double spaces and the "." M-PESA sometimes leaves after a name
	out.Counterparty = strings.Join(strings.Fields(strings.TrimSuffix(strings.TrimSpace(party), ".")), " ")
	if out.DateTime, err = when(day, clock); err != nil {
		return Message{}, err
	}
	return out, nil
}

func cents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSpace(s[len("Ksh"):])
	return amount.Parse(s, Currency)
}

// when reads d/m/yy and h:mm with an optional space before AM/PM.
func when(day, clock string) (time.Time, error) {
	parts := strings.Split(day, "/")
	d, _ := strconv.Atoi(parts[0])
	m, _ := strconv.Atoi(parts[1])
	y, _ := strconv.Atoi(parts[2])

	clock = strings.ToUpper(strings.ReplaceAll(clock, " ", ""))
	clock = clock[:len(clock)-2] + " " + clock[len(clock)-2:]
	t, err := time.Parse("2006-01-02 3:04 PM", fmt.Sprintf("%d-%02d-%02d %s", 2000+y, m, d, clock))
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date/time: %w", err)
	}
	return t, nil
}

// Booking says where confirmations are recorded in the ledger.
type Booking struct {
	User    string
	Payment string // payment method for outgoing money
	Account string // account receiving incoming money
}

// Request turns the message into a ledger transaction: the counterparty becomes the
// purpose and the M-PESA code the memo, followed by note when there is one. An outgoing
// message spends its amount plus the transaction cost.
func (m Message) Request(b Booking, note string) ledger.AddRequest {
	req := ledger.AddRequest{
		User:    b.User,
		Date:    date.FromTime(m.DateTime),
		Purpose: m.Counterparty,
		Memo:    m.Code,
	}
	if note != "" {
		req.Memo += ": " + note
	}
	switch m.Direction {
	case Outgoing:
		req.Expense = &ledger.Expense{Payment: b.Payment, Amount: m.Amount + m.Cost}
	case Incoming:
		req.Income = &ledger.Income{Account: b.Account, Amount: m.Amount}
	}
	return req
}

// Entry is one confirmation out of a pasted batch with the note lines that follow it.
type Entry struct {
	Message string
	Notes   []string
}

// Split cuts pasted text into confirmations. Lines before the first confirmation are
// ignored; every later line that is not a confirmation is a note of the previous one.
func Split(content string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case IsConfirmation(line):
			entries = append(entries, Entry{Message: line})
		case len(entries) > 0:
			last := &entries[len(entries)-1]
			last.Notes = append(last.Notes, line)
		}
	}
	return entries
}

// Note returns the value of the first "Reason:" or "r:" line, the free text of the
// first other line otherwise.
func (e Entry) Note() string {
	for _, n := range e.Notes {
		for _, prefix := range []string{"Reason:", "r:"} {
			if v, ok := strings.CutPrefix(n, prefix); ok {
				return strings.TrimSpace(v)
			}
		}
	}
	if len(e.Notes) > 0 {
		return e.Notes[0]
	}
	return ""
}
