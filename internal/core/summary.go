package core

// MonthTotal holds income and expense totals for one calendar month.
type MonthTotal struct {
	Month   string `json:"month"` // e.g. "Jan 2025"
	Income  Amount `json:"income"`
	Expense Amount `json:"expense"`
}

// CategoryAmount represents an expense total aggregated by category id.
type CategoryAmount struct {
	Category string `json:"category"`
	Amount   Amount `json:"amount"`
}

// DashboardSummary is the aggregate view served by the finance service.
type DashboardSummary struct {
	TotalIncome       Amount           `json:"totalIncome"`
	TotalExpenses     Amount           `json:"totalExpenses"`
	NetWorth          Amount           `json:"netWorth"`
	MonthlyData       []MonthTotal     `json:"monthlyData"`
	ExpenseCategories []CategoryAmount `json:"expenseCategories"`
}

// IsEmpty reports whether the summary carries no activity at all.
func (s DashboardSummary) IsEmpty() bool {
	return s.TotalIncome.IsZero() && s.TotalExpenses.IsZero() && s.NetWorth.IsZero() &&
		len(s.MonthlyData) == 0 && len(s.ExpenseCategories) == 0
}
