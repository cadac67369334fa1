// Package api exposes the account registry, the transaction ledger and the
// report engine over a JSON HTTP API.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/cleared-dev/ledger/internal/model"
)

// AccountService is the account registry as seen by the API.
type AccountService interface {
	List(ctx context.Context, f model.AccountFilter) ([]model.Account, error)
	Get(ctx context.Context, id int64) (model.Account, error)
	Create(ctx context.Context, in model.AccountInput) (model.Account, error)
	Update(ctx context.Context, id int64, in model.AccountInput) (model.Account, error)
	Delete(ctx context.Context, id int64) error
}

// TransactionService is the transaction ledger as seen by the API.
type TransactionService interface {
	List(ctx context.Context, f model.TransactionFilter, page, pageSize int) (model.Page[model.Transaction], error)
	Get(ctx context.Context, id int64) (model.Transaction, error)
	Create(ctx context.Context, in model.TransactionInput) (int64, error)
	Update(ctx context.Context, id int64, in model.TransactionInput) error
	Delete(ctx context.Context, id int64) error
}

// ReportService produces reports by kind.
type ReportService interface {
	Generate(ctx context.Context, kind model.ReportKind, r model.DateRange) (model.Report, error)
}

// Services bundles the components the router serves.
type Services struct {
	Accounts     AccountService
	Transactions TransactionService
	Reports      ReportService
}

// Options tunes the router.
type Options struct {
	// RequestTimeout bounds each request's context. Zero disables it.
	RequestTimeout time.Duration
}

// NewRouter builds the HTTP handler for the API.
func NewRouter(svc Services, log zerolog.Logger, opts Options) http.Handler {
	accounts := NewAccountsHandler(svc.Accounts)
	transactions := NewTransactionsHandler(svc.Transactions)
	reports := NewReportsHandler(svc.Reports)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(Logger(log))
	r.Use(Recovery(log))
	if opts.RequestTimeout > 0 {
		r.Use(middleware.Timeout(opts.RequestTimeout))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", accounts.List)
			r.Post("/", accounts.Create)
			r.Get("/{id}", accounts.Get)
			r.Put("/{id}", accounts.Update)
			r.Delete("/{id}", accounts.Delete)
		})
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", transactions.List)
			r.Post("/", transactions.Create)
			r.Get("/{id}", transactions.Get)
			r.Put("/{id}", transactions.Update)
			r.Delete("/{id}", transactions.Delete)
		})
		r.Get("/reports", reports.Get)
	})

	return r
}
