package mpesa

import (
	"testing"
	"time"

	"github.com/NgigiN/wallet/internal/date"
	"github.com/NgigiN/wallet/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	paid     = `TIH5CRR635 Confirmed. Ksh65.00 paid to Anthony Wambua Muinde2. on 17/9/25 at 6:56 PM.New M-PESA balance is Ksh719.18. Transaction cost, Ksh0.00. Amount you can transact within the day is 498,760.00. Save frequent Tills for quick payment on M-PESA app https://bit.ly/mpesalnk`
	sent     = `TIH6CSP6KA Confirmed. Ksh1,040.00 sent to Co-operative Bank Money Transfer for account 1082111 on 17/9/25 at 6:59 PM New M-PESA balance is Ksh679.18. Transaction cost, Ksh13.00.`
	received = `TIK1ABC234 Confirmed.You have received Ksh1,500.00 from JOHN  DOE 0712345678 on 20/9/25 at 10:15 AM  New M-PESA balance is Ksh2,179.18. Earn interest daily on Ziidi MMF`
)

func TestParseOutgoingVariants(t *testing.T) {
	cases := []struct {
		msg string
		id  string
	}{
		{paid, "TIH5CRR635"},
		{sent, "TIH6CSP6KA"},
		{`TII5I5YNFP Confirmed. Ksh35.00 paid to FELIX MWENDWA KIKOLE. on 18/9/25 at 7:18 PM.New M-PESA balance is Ksh644.18. Transaction cost, Ksh0.00. Amount you can transact within the day is 499,965.00. Save frequent Tills for quick payment on M-PESA app https://bit.ly/mpesalnk`, "TII5I5YNFP"},
		{`TII8I79A5O Confirmed. Ksh40.00 sent to Divinah  Nyabuto on 18/9/25 at 7:22 PM. New M-PESA balance is Ksh604.18. Transaction cost, Ksh0.00. Amount you can transact within the day is 499,925.00. Sign up for Lipa Na M-PESA Till online https://m-pesaforbusiness.co.ke`, "TII8I79A5O"},
		{`TIJ9N9U6HT Confirmed. Ksh25.00 sent to Caroline  Mwania on 19/9/25 at 7:05PM. New M-PESA balance is Ksh579.18. Transaction cost, Ksh0.00.`, "TIJ9N9U6HT"},
	}

	for _, c := range cases {
		m, err := Parse(c.msg)
		require.NoError(t, err, c.id)
		assert.Equal(t, c.id, m.Code)
		assert.Equal(t, Outgoing, m.Direction, c.id)
		assert.Positive(t, m.Amount, c.id)
		assert.True(t, IsConfirmation(c.msg), c.id)
	}
}

func TestParseFields(t *testing.T) {
	m, err := Parse(paid)
	require.NoError(t, err)
	assert.Equal(t, Message{
		Code:         "TIH5CRR635",
		Direction:    Outgoing,
		Amount:       6500,
		Counterparty: "Anthony Wambua Muinde2",
		DateTime:     time.Date(2025, 9, 17, 18, 56, 0, 0, time.UTC),
		Balance:      71918,
		Cost:         0,
	}, m)

	m, err = Parse(sent)
	require.NoError(t, err)
	assert.Equal(t, int64(104000), m.Amount)
	assert.Equal(t, int64(1300), m.Cost)
	assert.Equal(t, "Co-operative Bank Money Transfer for account 1082111", m.Counterparty)

	m, err = Parse(received)
	require.NoError(t, err)
	assert.Equal(t, Message{
		Code:         "TIK1ABC234",
		Direction:    Incoming,
		Amount:       150000,
		Counterparty: "JOHN DOE 0712345678",
		DateTime:     time.Date(2025, 9, 20, 10, 15, 0, 0, time.UTC),
		Balance:      217918,
	}, m)
}

func TestParseRejects(t *testing.T) {
	for _, msg := range []string{
		"",
		"hello there",
		"!balance M-PESA",
		`TIH5CRR635 Failed. Ksh65.00 paid to Someone on 17/9/25 at 6:56 PM.`,
	} {
		_, err := Parse(msg)
		assert.ErrorIs(t, err, ErrNotConfirmation, msg)
	}
}

func TestRequest(t *testing.T) {
	booking := Booking{User: "njeri", Payment: "M-PESA", Account: "M-PESA Wallet"}

	m, err := Parse(sent)
	require.NoError(t, err)
	assert.Equal(t, ledger.AddRequest{
		User:    "njeri",
		Date:    date.New(2025, 9, 17),
		Purpose: "Co-operative Bank Money Transfer for account 1082111",
		Memo:    "TIH6CSP6KA: rent",
		Expense: &ledger.Expense{Payment: "M-PESA", Amount: 105300},
	}, m.Request(booking, "rent"))

	m, err = Parse(received)
	require.NoError(t, err)
	assert.Equal(t, ledger.AddRequest{
		User:    "njeri",
		Date:    date.New(2025, 9, 20),
		Purpose: "JOHN DOE 0712345678",
		Memo:    "TIK1ABC234",
		Income:  &ledger.Income{Account: "M-PESA Wallet", Amount: 150000},
	}, m.Request(booking, ""))
}

func TestSplit(t *testing.T) {
	content := "here you go\n" + paid + "\nReason: lunch\n\n" + sent + "\nr: rent\nextra\n" + received + "\nsalary"

	entries := Split(content)
	require.Len(t, entries, 3)
	assert.Equal(t, paid, entries[0].Message)
	assert.Equal(t, "lunch", entries[0].Note())
	assert.Equal(t, "rent", entries[1].Note())
	assert.Equal(t, []string{"r: rent", "extra"}, entries[1].Notes)
	assert.Equal(t, "salary", entries[2].Note())

	assert.Empty(t, Split("nothing to see"))
}
