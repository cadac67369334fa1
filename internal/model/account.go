package model

import (
	"strings"
	"time"
)

// AccountType classifies accounts in the chart of accounts.
type AccountType string

const (
	AccountTypeAsset     AccountType = "Asset"
	AccountTypeLiability AccountType = "Liability"
	AccountTypeEquity    AccountType = "Equity"
	AccountTypeRevenue   AccountType = "Revenue"
	AccountTypeExpense   AccountType = "Expense"
)

// AccountTypes lists the closed set of account types.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeRevenue,
	AccountTypeExpense,
}

// Valid reports whether t is one of the known account types.
func (t AccountType) Valid() bool {
	for _, known := range AccountTypes {
		if t == known {
			return true
		}
	}
	return false
}

// BalanceSheet reports whether accounts of this type appear on the balance sheet.
func (t AccountType) BalanceSheet() bool {
	return t == AccountTypeAsset || t == AccountTypeLiability || t == AccountTypeEquity
}

// IncomeStatement reports whether accounts of this type appear on the income statement.
func (t AccountType) IncomeStatement() bool {
	return t == AccountTypeRevenue || t == AccountTypeExpense
}

// ParseAccountType matches s against the known types, ignoring case.
func ParseAccountType(s string) (AccountType, bool) {
	for _, known := range AccountTypes {
		if strings.EqualFold(s, string(known)) {
			return known, true
		}
	}
	return AccountType(s), false
}

// Account represents a row in the chart of accounts.
type Account struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Type        AccountType `json:"type"`
	Description string      `json:"description,omitempty"`
	CreatedAt   time.Time   `json:"created_at"`
}

// AccountInput carries the mutable fields of an account.
type AccountInput struct {
	Name        string      `json:"name"`
	Type        AccountType `json:"type"`
	Description string      `json:"description,omitempty"`
}

// AccountFilter narrows an account listing. Zero values match everything.
type AccountFilter struct {
	Search string
	Type   AccountType
}
