package model

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ReportKind enumerates the reports the engine can produce.
type ReportKind int

const (
	ReportJournal ReportKind = iota + 1
	ReportBalanceSheet
	ReportIncomeStatement
)

var reportKindNames = map[ReportKind]string{
	ReportJournal:         "journal",
	ReportBalanceSheet:    "balance-sheet",
	ReportIncomeStatement: "income-statement",
}

func (k ReportKind) String() string {
	if s, ok := reportKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("ReportKind(%d)", int(k))
}

// ParseReportKind maps a report name such as "balance-sheet" to its kind.
func ParseReportKind(s string) (ReportKind, error) {
	for k, name := range reportKindNames {
		if name == s {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown report type %q", s)
}

// Report is the result of any report kind. Exactly one of the concrete
// report types below implements it.
type Report interface {
	Kind() ReportKind
}

// JournalRow is one posting in the journal report.
type JournalRow struct {
	TransactionID int64           `json:"transaction_id"`
	Date          time.Time       `json:"date"`
	Description   string          `json:"description"`
	AccountID     int64           `json:"account_id"`
	AccountName   string          `json:"account_name"`
	Debit         decimal.Decimal `json:"debit_amount"`
	Credit        decimal.Decimal `json:"credit_amount"`
}

// Journal is the chronological listing of postings in a date range.
type Journal struct {
	Start time.Time    `json:"start_date"`
	End   time.Time    `json:"end_date"`
	Rows  []JournalRow `json:"rows"`
}

func (Journal) Kind() ReportKind { return ReportJournal }

// JournalEntry groups the journal rows of one transaction.
type JournalEntry struct {
	TransactionID int64
	Date          time.Time
	Description   string
	Rows          []JournalRow
}

// GroupJournal regroups contiguous rows by transaction, preserving order.
func GroupJournal(rows []JournalRow) []JournalEntry {
	var entries []JournalEntry
	for _, r := range rows {
		n := len(entries)
		if n > 0 && entries[n-1].TransactionID == r.TransactionID {
			entries[n-1].Rows = append(entries[n-1].Rows, r)
			continue
		}
		entries = append(entries, JournalEntry{
			TransactionID: r.TransactionID,
			Date:          r.Date,
			Description:   r.Description,
			Rows:          []JournalRow{r},
		})
	}
	return entries
}

// BalanceRow is one account on the balance sheet. Balance is debit minus
// credit, so liability and equity balances are normally negative.
type BalanceRow struct {
	AccountID   int64           `json:"account_id"`
	AccountName string          `json:"account_name"`
	AccountType AccountType     `json:"account_type"`
	Balance     decimal.Decimal `json:"balance"`
}

// DisplayBalance flips the sign of credit-normal accounts.
func (r BalanceRow) DisplayBalance() decimal.Decimal {
	if r.AccountType == AccountTypeAsset {
		return r.Balance
	}
	return r.Balance.Neg()
}

// BalanceSheet is the point-in-time position of asset, liability and equity accounts.
type BalanceSheet struct {
	AsOf             time.Time       `json:"as_of"`
	Rows             []BalanceRow    `json:"rows"`
	TotalAssets      decimal.Decimal `json:"total_assets"`
	TotalLiabilities decimal.Decimal `json:"total_liabilities"`
	TotalEquity      decimal.Decimal `json:"total_equity"`
	// RetainedEarnings is cumulative revenue less expense up to AsOf.
	RetainedEarnings decimal.Decimal `json:"retained_earnings"`
}

func (BalanceSheet) Kind() ReportKind { return ReportBalanceSheet }

// Balanced reports whether assets equal liabilities plus equity plus
// retained earnings within Tolerance.
func (b BalanceSheet) Balanced() bool {
	rhs := b.TotalLiabilities.Add(b.TotalEquity).Add(b.RetainedEarnings)
	return WithinTolerance(b.TotalAssets, rhs)
}

// IncomeRow is one account on the income statement. Amount is credit minus
// debit, so expense amounts are normally negative.
type IncomeRow struct {
	AccountID   int64           `json:"account_id"`
	AccountName string          `json:"account_name"`
	AccountType AccountType     `json:"account_type"`
	Amount      decimal.Decimal `json:"amount"`
}

// DisplayAmount flips the sign of expense accounts.
func (r IncomeRow) DisplayAmount() decimal.Decimal {
	if r.AccountType == AccountTypeExpense {
		return r.Amount.Neg()
	}
	return r.Amount
}

// IncomeStatement is revenue and expense activity over a period.
type IncomeStatement struct {
	Start        time.Time       `json:"start_date"`
	End          time.Time       `json:"end_date"`
	Rows         []IncomeRow     `json:"rows"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	TotalExpense decimal.Decimal `json:"total_expense"`
	NetIncome    decimal.Decimal `json:"net_income"`
}

func (IncomeStatement) Kind() ReportKind { return ReportIncomeStatement }
