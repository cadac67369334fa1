package accounts

import "github.com/cleared-dev/ledger/internal/model"

// DefaultChart returns the starter chart of accounts for a chart type.
func DefaultChart(chartType string) []model.Account {
	switch chartType {
	case "personal":
		return personalChart()
	default:
		return smallBusinessChart()
	}
}

func smallBusinessChart() []model.Account {
	return []model.Account{
		{Name: "Cash", Type: model.AccountTypeAsset, Description: "Cash on hand and checking"},
		{Name: "Accounts Receivable", Type: model.AccountTypeAsset, Description: "Amounts owed by customers"},
		{Name: "Equipment", Type: model.AccountTypeAsset},
		{Name: "Accounts Payable", Type: model.AccountTypeLiability, Description: "Amounts owed to suppliers"},
		{Name: "Credit Card", Type: model.AccountTypeLiability},
		{Name: "Owner's Capital", Type: model.AccountTypeEquity, Description: "Owner contributions"},
		{Name: "Owner's Drawings", Type: model.AccountTypeEquity},
		{Name: "Service Revenue", Type: model.AccountTypeRevenue},
		{Name: "Sales Revenue", Type: model.AccountTypeRevenue},
		{Name: "Rent Expense", Type: model.AccountTypeExpense},
		{Name: "Salaries Expense", Type: model.AccountTypeExpense},
		{Name: "Utilities Expense", Type: model.AccountTypeExpense},
		{Name: "Office Supplies", Type: model.AccountTypeExpense, Description: "Office supplies and expenses"},
	}
}

func personalChart() []model.Account {
	return []model.Account{
		{Name: "Checking", Type: model.AccountTypeAsset},
		{Name: "Savings", Type: model.AccountTypeAsset},
		{Name: "Credit Card", Type: model.AccountTypeLiability},
		{Name: "Opening Balances", Type: model.AccountTypeEquity},
		{Name: "Salary", Type: model.AccountTypeRevenue},
		{Name: "Groceries", Type: model.AccountTypeExpense},
		{Name: "Housing", Type: model.AccountTypeExpense},
	}
}
