// Package aggregate folds cached collections into totals and summaries.
// Every function here is pure; none of them mutate their input.
package aggregate

import (
	"cmp"
	"slices"
	"time"

	"fintrack/internal/core"
)

// Filter selects transactions by type.
type Filter string

const (
	All      Filter = "all"
	Incomes  Filter = Filter(core.Income)
	Expenses Filter = Filter(core.Expense)
)

// Valid reports whether f is one of the known filters.
func (f Filter) Valid() bool {
	return f == All || f == Incomes || f == Expenses
}

// Breakdown is a per-key total that remembers the order keys first appeared in.
type Breakdown struct {
	Keys   []string
	Totals map[string]core.Amount
}

// Len returns the number of distinct keys.
func (b Breakdown) Len() int { return len(b.Keys) }

// Total returns the sum for key, zero when absent.
func (b Breakdown) Total(key string) core.Amount {
	if v, ok := b.Totals[key]; ok {
		return v
	}
	return core.ZeroAmount
}

// Balance holds the three net worth figures.
type Balance struct {
	Assets      core.Amount
	Liabilities core.Amount
	NetWorth    core.Amount
}

// SumAssets totals asset values.
func SumAssets(assets []core.Asset) core.Amount {
	total := core.ZeroAmount
	for _, a := range assets {
		total = total.Plus(a.Value)
	}
	return total
}

// SumLiabilities totals liability amounts.
func SumLiabilities(liabilities []core.Liability) core.Amount {
	total := core.ZeroAmount
	for _, l := range liabilities {
		total = total.Plus(l.Amount)
	}
	return total
}

// NetWorth is the sum of asset values minus the sum of liability amounts.
func NetWorth(assets []core.Asset, liabilities []core.Liability) core.Amount {
	return SumAssets(assets).Minus(SumLiabilities(liabilities))
}

// Totals computes assets, liabilities and net worth in one pass.
func Totals(assets []core.Asset, liabilities []core.Liability) Balance {
	a, l := SumAssets(assets), SumLiabilities(liabilities)
	return Balance{Assets: a, Liabilities: l, NetWorth: a.Minus(l)}
}

// BreakdownByType groups records by key and sums value per group.
func BreakdownByType[T any](records []T, key func(T) string, value func(T) core.Amount) Breakdown {
	b := Breakdown{Totals: make(map[string]core.Amount)}
	for _, r := range records {
		k := key(r)
		cur, seen := b.Totals[k]
		if !seen {
			b.Keys = append(b.Keys, k)
			cur = core.ZeroAmount
		}
		b.Totals[k] = cur.Plus(value(r))
	}
	return b
}

// AssetsByType breaks asset values down by asset type.
func AssetsByType(assets []core.Asset) Breakdown {
	return BreakdownByType(assets,
		func(a core.Asset) string { return string(a.Type) },
		func(a core.Asset) core.Amount { return a.Value })
}

// LiabilitiesByType breaks liability amounts down by liability type.
func LiabilitiesByType(liabilities []core.Liability) Breakdown {
	return BreakdownByType(liabilities,
		func(l core.Liability) string { return string(l.Type) },
		func(l core.Liability) core.Amount { return l.Amount })
}

// FilterByKind returns the transactions of the given kind in their original
// order. All returns the input slice itself.
func FilterByKind(transactions []core.Transaction, kind Filter) []core.Transaction {
	if kind == All || kind == "" {
		return transactions
	}
	out := make([]core.Transaction, 0, len(transactions))
	for _, t := range transactions {
		if Filter(t.Type) == kind {
			out = append(out, t)
		}
	}
	return out
}

// CategoryName resolves a category id to its label, falling back to the id.
func CategoryName(t core.TransactionType, id string) string {
	return core.CategoryName(t, id)
}

// maxMonths bounds the monthly series of a summary.
const maxMonths = 6

const uncategorized = "uncategorized"

// Summarize computes a dashboard summary from cached collections: income and
// expense totals, net worth, the six most recent months with activity (most
// recent first) and expense totals per category (largest first).
func Summarize(transactions []core.Transaction, assets []core.Asset, liabilities []core.Liability) core.DashboardSummary {
	summary := core.DashboardSummary{
		TotalIncome:       core.ZeroAmount,
		TotalExpenses:     core.ZeroAmount,
		NetWorth:          NetWorth(assets, liabilities),
		MonthlyData:       []core.MonthTotal{},
		ExpenseCategories: []core.CategoryAmount{},
	}

	type monthKey struct {
		year  int
		month time.Month
	}
	months := make(map[monthKey]*core.MonthTotal)

	for _, t := range transactions {
		switch t.Type {
		case core.Income:
			summary.TotalIncome = summary.TotalIncome.Plus(t.Amount)
		case core.Expense:
			summary.TotalExpenses = summary.TotalExpenses.Plus(t.Amount)
		default:
			continue
		}
		if t.Date.IsEmpty() {
			continue
		}
		key := monthKey{t.Date.Year(), t.Date.Month()}
		m, ok := months[key]
		if !ok {
			m = &core.MonthTotal{Month: t.Date.Format("Jan 2006"), Income: core.ZeroAmount, Expense: core.ZeroAmount}
			months[key] = m
		}
		if t.Type == core.Income {
			m.Income = m.Income.Plus(t.Amount)
		} else {
			m.Expense = m.Expense.Plus(t.Amount)
		}
	}

	keys := make([]monthKey, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b monthKey) int {
		if c := cmp.Compare(b.year, a.year); c != 0 {
			return c
		}
		return cmp.Compare(b.month, a.month)
	})
	for _, k := range keys[:min(len(keys), maxMonths)] {
		summary.MonthlyData = append(summary.MonthlyData, *months[k])
	}

	expenses := FilterByKind(transactions, Expenses)
	byCategory := BreakdownByType(expenses,
		func(t core.Transaction) string {
			if t.Category == "" {
				return uncategorized
			}
			return t.Category
		},
		func(t core.Transaction) core.Amount { return t.Amount })
	for _, k := range byCategory.Keys {
		summary.ExpenseCategories = append(summary.ExpenseCategories, core.CategoryAmount{Category: k, Amount: byCategory.Totals[k]})
	}
	slices.SortStableFunc(summary.ExpenseCategories, func(a, b core.CategoryAmount) int {
		return b.Amount.Cmp(a.Amount.Decimal)
	})

	return summary
}
