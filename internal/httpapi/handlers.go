package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/NgigiN/wallet/internal/amount"
	"github.com/NgigiN/wallet/internal/date"
	"github.com/NgigiN/wallet/internal/ledger"
	"github.com/NgigiN/wallet/internal/storage"
	"github.com/gin-gonic/gin"
)

// ---------- requests ----------

type nameReq struct {
	Name string `json:"name" binding:"required,max=128"`
}

type createPaymentReq struct {
	Name    string `json:"name" binding:"required,max=128"`
	Account string `json:"account" binding:"required"`
	// omitted or 0 closing day means immediate settlement
	ClosingDay   int `json:"closing_day" binding:"min=0,max=31"`
	OffsetMonths int `json:"offset_months"`
	PaymentDay   int `json:"payment_day" binding:"min=0,max=31"`
}

type legReq struct {
	Name   string `json:"name" binding:"required"`
	Amount string `json:"amount" binding:"required"` // major units, e.g. "12.50"
}

type addTransactionReq struct {
	Date    date.Date `json:"date"`
	Purpose string    `json:"purpose" binding:"max=255"`
	Memo    string    `json:"memo" binding:"max=255"`
	Expense *legReq   `json:"expense"`
	Income  *legReq   `json:"income"`
}

// ---------- responses ----------

type accountResp struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type paymentResp struct {
	ID                  uint   `json:"id"`
	Name                string `json:"name"`
	SettlementAccountID uint   `json:"settlement_account_id"`
	ClosingDay          int    `json:"closing_day"`
	OffsetMonths        int    `json:"offset_months"`
	PaymentDay          int    `json:"payment_day"`
}

type checkpointResp struct {
	Date          date.Date `json:"date"`
	TransactionID uint      `json:"transaction_id"`
	Delta         int64     `json:"delta"`
	Balance       int64     `json:"balance"`
	Display       string    `json:"display"`
}

type transactionResp struct {
	ID              uint      `json:"id"`
	Date            date.Date `json:"date"`
	DisplayOrder    int       `json:"display_order"`
	Purpose         string    `json:"purpose"`
	Memo            *string   `json:"memo"`
	PaymentMethodID *uint     `json:"payment_method_id"`
	AmountSpent     int64     `json:"amount_spent"`
	AccountID       *uint     `json:"account_id"`
	AmountReceived  int64     `json:"amount_received"`
}

func toPayment(p storage.PaymentMethod) paymentResp {
	return paymentResp{
		ID:                  p.ID,
		Name:                p.Name,
		SettlementAccountID: p.SettlementAccountID,
		ClosingDay:          p.Rule.ClosingDay,
		OffsetMonths:        p.Rule.OffsetMonths,
		PaymentDay:          p.Rule.PaymentDay,
	}
}

// ---------- helpers ----------

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{storage.ErrInvalid}, args...)...)
}

func (s *Server) bind(c *gin.Context, dest any) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		s.fail(c, invalid("%v", err))
		return false
	}
	return true
}

func (s *Server) retry(c *gin.Context, op func() error) error {
	return ledger.RetryConflicts(c.Request.Context(), s.opts.Attempts, op)
}

func parseDate(raw string) (date.Date, error) {
	d, err := date.Parse(raw)
	if err != nil {
		return date.Date{}, invalid("date %q: %v", raw, err)
	}
	return d, nil
}

// ---------- directory ----------

func (s *Server) createUser(c *gin.Context) {
	var req nameReq
	if !s.bind(c, &req) {
		return
	}
	u, err := s.dir.CreateUser(c.Request.Context(), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusCreated, gin.H{"id": u.ID, "name": u.Name})
}

func (s *Server) listAccounts(c *gin.Context) {
	as, err := s.dir.Accounts(c.Request.Context(), c.Param("user"))
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]accountResp, 0, len(as))
	for _, a := range as {
		out = append(out, accountResp{ID: a.ID, Name: a.Name})
	}
	success(c, http.StatusOK, out)
}

func (s *Server) createAccount(c *gin.Context) {
	var req nameReq
	if !s.bind(c, &req) {
		return
	}
	a, err := s.dir.CreateAccount(c.Request.Context(), c.Param("user"), req.Name)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusCreated, accountResp{ID: a.ID, Name: a.Name})
}

func (s *Server) deleteAccount(c *gin.Context) {
	renamed, err := s.dir.DeleteAccount(c.Request.Context(), c.Param("user"), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"renamed": renamed})
}

func (s *Server) listPayments(c *gin.Context) {
	ps, err := s.dir.PaymentMethods(c.Request.Context(), c.Param("user"))
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]paymentResp, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPayment(p))
	}
	success(c, http.StatusOK, out)
}

func (s *Server) createPayment(c *gin.Context) {
	var req createPaymentReq
	if !s.bind(c, &req) {
		return
	}
	ctx, user := c.Request.Context(), c.Param("user")
	var (
		p   storage.PaymentMethod
		err error
	)
	if req.ClosingDay == 0 {
		p, err = s.dir.CreateImmediatePayment(ctx, user, req.Name, req.Account)
	} else {
		p, err = s.dir.CreateDeferredPayment(ctx, user, req.Name, req.Account, storage.CycleRule{
			ClosingDay:   req.ClosingDay,
			OffsetMonths: req.OffsetMonths,
			PaymentDay:   req.PaymentDay,
		})
	}
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusCreated, toPayment(p))
}

func (s *Server) deletePayment(c *gin.Context) {
	renamed, err := s.dir.DeletePayment(c.Request.Context(), c.Param("user"), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{"renamed": renamed})
}

// ---------- ledger ----------

func (s *Server) addTransaction(c *gin.Context) {
	var body addTransactionReq
	if !s.bind(c, &body) {
		return
	}
	if body.Date.IsZero() {
		s.fail(c, invalid("date is required"))
		return
	}
	req := ledger.AddRequest{
		User:    c.Param("user"),
		Date:    body.Date,
		Purpose: body.Purpose,
		Memo:    body.Memo,
	}
	if body.Expense != nil {
		v, err := amount.Parse(body.Expense.Amount, s.opts.Currency)
		if err != nil {
			s.fail(c, invalid("expense: %v", err))
			return
		}
		req.Expense = &ledger.Expense{Payment: body.Expense.Name, Amount: v}
	}
	if body.Income != nil {
		v, err := amount.Parse(body.Income.Amount, s.opts.Currency)
		if err != nil {
			s.fail(c, invalid("income: %v", err))
			return
		}
		req.Income = &ledger.Income{Account: body.Income.Name, Amount: v}
	}

	var receipt ledger.Receipt
	err := s.retry(c, func() (err error) {
		receipt, err = s.ledger.AddTransaction(c.Request.Context(), req)
		return err
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusCreated, receipt)
}

func (s *Server) deleteTransaction(c *gin.Context) {
	on, err := parseDate(c.Param("date"))
	if err != nil {
		s.fail(c, err)
		return
	}
	order, err := strconv.Atoi(c.Param("order"))
	if err != nil || order < 1 {
		s.fail(c, invalid("display order %q", c.Param("order")))
		return
	}
	err = s.retry(c, func() error {
		return s.ledger.DeleteTransaction(c.Request.Context(), c.Param("user"), on, order)
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listTransactions(c *gin.Context) {
	on, err := parseDate(c.Query("date"))
	if err != nil {
		s.fail(c, err)
		return
	}
	txs, err := s.ledger.Transactions(c.Request.Context(), c.Param("user"), on)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]transactionResp, 0, len(txs))
	for _, t := range txs {
		out = append(out, transactionResp{
			ID:              t.ID,
			Date:            t.Date,
			DisplayOrder:    t.DisplayOrder,
			Purpose:         t.Purpose,
			Memo:            t.Memo,
			PaymentMethodID: t.PaymentMethodID,
			AmountSpent:     t.AmountSpent,
			AccountID:       t.AccountID,
			AmountReceived:  t.AmountReceived,
		})
	}
	success(c, http.StatusOK, out)
}

func (s *Server) history(c *gin.Context) {
	hs, err := s.ledger.History(c.Request.Context(), c.Param("user"), c.Param("name"))
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]checkpointResp, 0, len(hs))
	for _, h := range hs {
		out = append(out, checkpointResp{
			Date:          h.EffectiveDate,
			TransactionID: h.TransactionID,
			Delta:         h.Delta,
			Balance:       h.Balance,
			Display:       amount.Format(h.Balance, s.opts.Currency),
		})
	}
	success(c, http.StatusOK, out)
}

func (s *Server) balance(c *gin.Context) {
	var asOf *date.Date
	if raw := c.Query("as_of"); raw != "" {
		on, err := parseDate(raw)
		if err != nil {
			s.fail(c, err)
			return
		}
		asOf = &on
	}
	v, err := s.ledger.Balance(c.Request.Context(), c.Param("user"), c.Param("name"), asOf)
	if err != nil {
		s.fail(c, err)
		return
	}
	success(c, http.StatusOK, gin.H{
		"account": c.Param("name"),
		"as_of":   asOf,
		"balance": v,
		"major":   amount.Major(v, s.opts.Currency),
		"display": amount.Format(v, s.opts.Currency),
	})
}
