// Package httpapi serves the ledger over JSON.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/NgigiN/wallet/internal/date"
	"github.com/NgigiN/wallet/internal/ledger"
	"github.com/NgigiN/wallet/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Directory manages users, accounts and payment methods.
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

// Ledger records and reads transactions.
type Ledger interface {
	AddTransaction(ctx context.Context, req ledger.AddRequest) (ledger.Receipt, error)
	DeleteTransaction(ctx context.Context, user string, on date.Date, order int) error
	History(ctx context.Context, user, account string) ([]storage.AccountHistory, error)
	Balance(ctx context.Context, user, account string, asOf *date.Date) (int64, error)
	Transactions(ctx context.Context, user string, on date.Date) ([]storage.Transaction, error)
}

type Options struct {
	Mode     string // gin mode; empty keeps the current one
	Currency string
	Attempts int // tries per mutation on ConflictRetry
	// Connected reports extra components for /health, e.g. the Discord session.
	Connected map[string]func() bool
}

type Server struct {
	dir     Directory
	ledger  Ledger
	opts    Options
	log     zerolog.Logger
	started time.Time
}

func NewServer(dir Directory, l Ledger, opts Options, log zerolog.Logger) *Server {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	return &Server{dir: dir, ledger: l, opts: opts, log: log, started: time.Now()}
}

// Router builds the gin engine with every route.
func (s *Server) Router() *gin.Engine {
	if s.opts.Mode != "" {
		gin.SetMode(s.opts.Mode)
	}
	r := gin.New()
	r.Use(requestLog(s.log), gin.Recovery())

	r.GET("/health", s.health)

	api := r.Group("/api")
	api.POST("/users", s.createUser)

	u := api.Group("/users/:user")
	u.GET("/accounts", s.listAccounts)
	u.POST("/accounts", s.createAccount)
	u.DELETE("/accounts/:name", s.deleteAccount)
	u.GET("/accounts/:name/history", s.history)
	u.GET("/accounts/:name/balance", s.balance)

	u.GET("/payments", s.listPayments)
	u.POST("/payments", s.createPayment)
	u.DELETE("/payments/:name", s.deletePayment)

	u.GET("/transactions", s.listTransactions)
	u.POST("/transactions", s.addTransaction)
	u.DELETE("/transactions/:date/:order", s.deleteTransaction)

	return r
}

// HTTPServer wraps the router for addr with conservative timeouts.
func (s *Server) HTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
}

func (s *Server) health(c *gin.Context) {
	status, code := "healthy", http.StatusOK
	components := gin.H{}
	for name, up := range s.opts.Connected {
		ok := up()
		components[name] = ok
		if !ok {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	c.JSON(code, gin.H{
		"status":     status,
		"uptime":     time.Since(s.started).Round(time.Second).String(),
		"components": components,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
}

func requestLog(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("took", time.Since(start)).
			Msg("request")
	}
}
