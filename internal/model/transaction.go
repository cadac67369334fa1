package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateFormat is the calendar-date layout used in storage and on the wire.
const DateFormat = "2006-01-02"

// Line is one posting within a transaction.
type Line struct {
	ID          int64           `json:"id"`
	AccountID   int64           `json:"account_id"`
	AccountName string          `json:"account_name"`
	Debit       decimal.Decimal `json:"debit_amount"`  // zero if credit side
	Credit      decimal.Decimal `json:"credit_amount"` // zero if debit side
}

// Transaction is a balanced set of lines recorded on one date.
type Transaction struct {
	ID          int64     `json:"id"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Lines       []Line    `json:"lines"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Totals returns the debit and credit sums of the transaction's lines.
func (t Transaction) Totals() (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, l := range t.Lines {
		debit = debit.Add(l.Debit)
		credit = credit.Add(l.Credit)
	}
	return debit, credit
}

// LineInput is a line as submitted by a caller.
type LineInput struct {
	AccountID int64           `json:"account_id"`
	Debit     decimal.Decimal `json:"debit_amount"`
	Credit    decimal.Decimal `json:"credit_amount"`
}

// TransactionInput is the full content of a transaction write.
type TransactionInput struct {
	Date        time.Time   `json:"date"`
	Description string      `json:"description"`
	Lines       []LineInput `json:"lines"`
}

// DateRange is an inclusive calendar-date range. A zero bound is open.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Epoch is the implicit start of an open date range.
var Epoch = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)

// Resolve fills open bounds: Start defaults to Epoch and End to today.
func (r DateRange) Resolve(now time.Time) (start, end time.Time) {
	start, end = r.Start, r.End
	if start.IsZero() {
		start = Epoch
	}
	if end.IsZero() {
		end = Day(now)
	}
	return Day(start), Day(end)
}

// Day truncates t to a UTC calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD string. An empty string yields the zero time.
func ParseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(DateFormat, s)
}

// TransactionFilter narrows a transaction listing. Zero values match everything.
type TransactionFilter struct {
	Search string
	Range  DateRange
}

// Page is one page of a listing.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPage computes the page count for total items split by pageSize.
func NewPage[T any](items []T, page, pageSize, total int) Page[T] {
	pages := 0
	if pageSize > 0 {
		pages = (total + pageSize - 1) / pageSize
	}
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Page: page, PageSize: pageSize, Total: total, TotalPages: pages}
}
