package ledger

import (
	"github.com/NgigiN/wallet/internal/date"
	"github.com/NgigiN/wallet/internal/storage"
)

type CycleRule = storage.CycleRule

// Resolve returns the date an expense made on the given day settles under rule.
//
// An immediate rule settles on the day itself. Otherwise the expense settles on
// PaymentDay of the month OffsetMonths after the transaction month, clamped to the
// last day of that month (a payment day of 31 falls on 30 April, 28 or 29 February).
// ClosingDay only switches deferral on; it plays no part in the arithmetic.
func Resolve(on date.Date, rule CycleRule) date.Date {
	if rule.Immediate() {
		return on
	}
	target := date.New(on.Year(), on.Month(), 1).AddMonths(rule.OffsetMonths)
	day := min(max(rule.PaymentDay, 1), date.DaysIn(target.Year(), target.Month()))
	return date.New(target.Year(), target.Month(), day)
}
