// Package reports derives the journal, balance sheet and income statement
// from committed ledger state. Reports are read-only and never re-validate.
package reports

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/cleared-dev/ledger/internal/apperr"
	"github.com/cleared-dev/ledger/internal/db"
	"github.com/cleared-dev/ledger/internal/model"
)

// Engine runs report queries against the store.
type Engine struct {
	conn *db.Conn
	log  zerolog.Logger
	now  func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the clock used to resolve an open end date.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates a report engine.
func NewEngine(conn *db.Conn, log zerolog.Logger, opts ...Option) *Engine {
	e := &Engine{
		conn: conn,
		log:  log.With().Str("component", "reports").Logger(),
		now:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate dispatches to the report named by kind. For a balance sheet the
// range end is the as-of date and the start is ignored.
func (e *Engine) Generate(ctx context.Context, kind model.ReportKind, r model.DateRange) (model.Report, error) {
	switch kind {
	case model.ReportJournal:
		return e.Journal(ctx, r)
	case model.ReportBalanceSheet:
		return e.BalanceSheet(ctx, r.End)
	case model.ReportIncomeStatement:
		return e.IncomeStatement(ctx, r)
	default:
		return nil, apperr.Validation("reports.Generate", "unknown report type %q", kind.String())
	}
}

const journalQuery = `SELECT t.id, t.transaction_date, t.description, l.account_id, a.name, l.debit_cents, l.credit_cents
	FROM transactions t
	JOIN transaction_lines l ON l.transaction_id = t.id
	JOIN accounts a ON a.id = l.account_id
	WHERE t.transaction_date >= ? AND t.transaction_date <= ?
	ORDER BY t.transaction_date DESC, t.id DESC, l.id`

// Journal lists every line of the transactions dated within r, newest
// transaction first. Lines of one transaction are contiguous.
func (e *Engine) Journal(ctx context.Context, r model.DateRange) (model.Journal, error) {
	const op = "reports.Journal"
	start, end := r.Resolve(e.now())
	report := model.Journal{Start: start, End: end, Rows: []model.JournalRow{}}

	rows, err := e.conn.QueryContext(ctx, journalQuery, start.Format(model.DateFormat), end.Format(model.DateFormat))
	if err != nil {
		return model.Journal{}, e.storeErr(op, err)
	}
	defer rows.Close()

	for rows.Next() {
		var row model.JournalRow
		var date string
		var debit, credit int64
		if err := rows.Scan(&row.TransactionID, &date, &row.Description, &row.AccountID, &row.AccountName, &debit, &credit); err != nil {
			return model.Journal{}, e.storeErr(op, err)
		}
		if row.Date, err = time.Parse(model.DateFormat, date); err != nil {
			return model.Journal{}, e.storeErr(op, fmt.Errorf("parsing transaction date %q: %w", date, err))
		}
		row.Debit = model.FromCents(debit)
		row.Credit = model.FromCents(credit)
		report.Rows = append(report.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return model.Journal{}, e.storeErr(op, err)
	}
	return report, nil
}

// accountTotal is the net debit-minus-credit movement of one account.
type accountTotal struct {
	id   int64
	name string
	typ  model.AccountType
	net  decimal.Decimal
}

// totals returns per-account net movements over lines dated within
// [start, end], ordered by the given clause. Accounts without lines are omitted.
func (e *Engine) totals(ctx context.Context, start, end time.Time, orderBy string) ([]accountTotal, error) {
	query := `SELECT a.id, a.name, a.type, COALESCE(SUM(l.debit_cents), 0) - COALESCE(SUM(l.credit_cents), 0)
		FROM accounts a
		JOIN transaction_lines l ON l.account_id = a.id
		JOIN transactions t ON t.id = l.transaction_id
		WHERE t.transaction_date >= ? AND t.transaction_date <= ?
		GROUP BY a.id, a.name, a.type
		ORDER BY ` + orderBy

	rows, err := e.conn.QueryContext(ctx, query, start.Format(model.DateFormat), end.Format(model.DateFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []accountTotal
	for rows.Next() {
		var t accountTotal
		var cents int64
		if err := rows.Scan(&t.id, &t.name, &t.typ, &cents); err != nil {
			return nil, err
		}
		t.net = model.FromCents(cents)
		out = append(out, t)
	}
	return out, rows.Err()
}

// BalanceSheet computes cumulative balances of asset, liability and equity
// accounts as of asOf (today when zero). Zero balances are excluded.
func (e *Engine) BalanceSheet(ctx context.Context, asOf time.Time) (model.BalanceSheet, error) {
	const op = "reports.BalanceSheet"
	_, asOf = model.DateRange{End: asOf}.Resolve(e.now())

	totals, err := e.totals(ctx, model.Epoch, asOf, "a.type, a.name")
	if err != nil {
		return model.BalanceSheet{}, e.storeErr(op, err)
	}

	bs := model.BalanceSheet{
		AsOf:             asOf,
		Rows:             []model.BalanceRow{},
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
		TotalEquity:      decimal.Zero,
		RetainedEarnings: decimal.Zero,
	}
	for _, t := range totals {
		if t.typ.IncomeStatement() {
			bs.RetainedEarnings = bs.RetainedEarnings.Sub(t.net)
			continue
		}
		if !t.typ.BalanceSheet() || model.IsZeroBalance(t.net) {
			continue
		}
		row := model.BalanceRow{AccountID: t.id, AccountName: t.name, AccountType: t.typ, Balance: t.net}
		bs.Rows = append(bs.Rows, row)
		switch t.typ {
		case model.AccountTypeAsset:
			bs.TotalAssets = bs.TotalAssets.Add(row.DisplayBalance())
		case model.AccountTypeLiability:
			bs.TotalLiabilities = bs.TotalLiabilities.Add(row.DisplayBalance())
		case model.AccountTypeEquity:
			bs.TotalEquity = bs.TotalEquity.Add(row.DisplayBalance())
		}
	}

	if !bs.Balanced() {
		e.log.Warn().
			Time("as_of", asOf).
			Str("assets", bs.TotalAssets.StringFixed(2)).
			Str("liabilities", bs.TotalLiabilities.StringFixed(2)).
			Str("equity", bs.TotalEquity.StringFixed(2)).
			Str("retained_earnings", bs.RetainedEarnings.StringFixed(2)).
			Msg("balance sheet does not balance")
	}
	return bs, nil
}

// IncomeStatement computes net revenue and expense activity within r.
// Revenue rows come first, then expenses, each by name. Accounts with no
// net activity are excluded.
func (e *Engine) IncomeStatement(ctx context.Context, r model.DateRange) (model.IncomeStatement, error) {
	const op = "reports.IncomeStatement"
	start, end := r.Resolve(e.now())

	totals, err := e.totals(ctx, start, end, "a.type DESC, a.name")
	if err != nil {
		return model.IncomeStatement{}, e.storeErr(op, err)
	}

	is := model.IncomeStatement{
		Start:        start,
		End:          end,
		Rows:         []model.IncomeRow{},
		TotalRevenue: decimal.Zero,
		TotalExpense: decimal.Zero,
	}
	for _, t := range totals {
		if !t.typ.IncomeStatement() || model.IsZeroBalance(t.net) {
			continue
		}
		row := model.IncomeRow{AccountID: t.id, AccountName: t.name, AccountType: t.typ, Amount: t.net.Neg()}
		is.Rows = append(is.Rows, row)
		if t.typ == model.AccountTypeRevenue {
			is.TotalRevenue = is.TotalRevenue.Add(row.DisplayAmount())
		} else {
			is.TotalExpense = is.TotalExpense.Add(row.DisplayAmount())
		}
	}
	is.NetIncome = is.TotalRevenue.Sub(is.TotalExpense)
	return is, nil
}

func (e *Engine) storeErr(op string, err error) error {
	e.log.Error().Err(err).Str("op", op).Msg("store failure")
	return apperr.Store(op, err)
}
