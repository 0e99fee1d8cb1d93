package domain

import "github.com/shopspring/decimal"

// RecentTransactionsLimit is the number of transactions shown on the dashboard.
const RecentTransactionsLimit = 5

// Summary holds the dashboard overview of the owner's ledger.
type Summary struct {
	Accounts           []Account       `json:"accounts"`
	RecentTransactions []Transaction   `json:"recent_transactions"`
	TotalAssets        decimal.Decimal `json:"total_assets"`
	TotalExpenses      decimal.Decimal `json:"total_expenses"`
	TotalIncome        decimal.Decimal `json:"total_income"`
}

// Summarize fills in the totals for the given accounts.
//
// Expense and revenue totals are reported as absolute values.
func Summarize(accounts []Account, recent []Transaction) Summary {
	s := Summary{
		Accounts:           accounts,
		RecentTransactions: recent,
		TotalAssets:        decimal.Zero,
		TotalExpenses:      decimal.Zero,
		TotalIncome:        decimal.Zero,
	}

	for _, a := range accounts {
		switch a.Type {
		case AccountTypeAsset:
			s.TotalAssets = s.TotalAssets.Add(a.Balance)
		case AccountTypeExpense:
			s.TotalExpenses = s.TotalExpenses.Add(a.Balance)
		case AccountTypeRevenue:
			s.TotalIncome = s.TotalIncome.Add(a.Balance)
		}
	}

	s.TotalExpenses = s.TotalExpenses.Abs()
	s.TotalIncome = s.TotalIncome.Abs()

	return s
}
