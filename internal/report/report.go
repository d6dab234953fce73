// Package report renders cached collections and summaries as markdown.
package report

import (
	"fmt"
	"strings"

	"fintrack/internal/aggregate"
	"fintrack/internal/core"
	"fintrack/internal/dashboard"
	"fintrack/internal/store"
)

const (
	noTransactions = "No transactions found."
	noAssets       = "No assets found. Add an asset to get started."
	noLiabilities  = "No liabilities found. Add a liability to get started."
	localNotice    = "Computed from cached data: the finance service is unavailable."
)

// Transactions renders the transactions selected by filter, newest data as given.
func Transactions(txs []core.Transaction, filter aggregate.Filter) string {
	shown := aggregate.FilterByKind(txs, filter)

	var b strings.Builder
	fmt.Fprintf(&b, "# Transactions\n\n")
	fmt.Fprintf(&b, "Filter: **%s**. Showing %d transactions.\n\n", filterLabel(filter), len(shown))
	if len(shown) == 0 {
		fmt.Fprintf(&b, "_%s_\n", noTransactions)
		return b.String()
	}

	fmt.Fprintln(&b, "| ID | Date | Description | Category | Amount | Location |")
	fmt.Fprintln(&b, "|:---|:---|:---|:---|---:|:---|")
	income, expense := core.ZeroAmount, core.ZeroAmount
	for _, t := range shown {
		sign := "-"
		if t.Type == core.Income {
			sign = "+"
			income = income.Plus(t.Amount)
		} else {
			expense = expense.Plus(t.Amount)
		}
		desc := t.Description
		if t.IsRecurring {
			desc += " (recurring)"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s %s | %s |\n",
			t.ID,
			formatDate(t.Date),
			cell(desc),
			cell(aggregate.CategoryName(t.Type, t.Category)),
			sign, aggregate.FormatCurrency(t.Amount),
			cell(t.Location),
		)
	}

	fmt.Fprintf(&b, "\n**Income:** %s · **Expenses:** %s · **Balance:** %s\n",
		aggregate.FormatCurrency(income),
		aggregate.FormatCurrency(expense),
		aggregate.FormatSigned(income.Minus(expense)))
	return b.String()
}

// Assets renders the asset list and its per-type breakdown.
func Assets(assets []core.Asset) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Assets\n\n")
	if len(assets) == 0 {
		fmt.Fprintf(&b, "_%s_\n", noAssets)
		return b.String()
	}

	fmt.Fprintln(&b, "| ID | Name | Type | Value | Acquired |")
	fmt.Fprintln(&b, "|:---|:---|:---|---:|:---|")
	for _, a := range assets {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			a.ID, cell(a.Name), a.Type.Label(), aggregate.FormatCurrency(a.Value), formatDate(a.AcquiredDate))
	}
	fmt.Fprintf(&b, "\n**Total Assets:** %s\n\n", aggregate.FormatCurrency(aggregate.SumAssets(assets)))
	writeBreakdown(&b, "Asset Breakdown", aggregate.AssetsByType(assets), func(k string) string {
		return core.AssetType(k).Label()
	})
	return b.String()
}

// Liabilities renders the liability list and its per-type breakdown.
func Liabilities(liabilities []core.Liability) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Liabilities\n\n")
	if len(liabilities) == 0 {
		fmt.Fprintf(&b, "_%s_\n", noLiabilities)
		return b.String()
	}

	fmt.Fprintln(&b, "| ID | Description | Type | Amount | Due |")
	fmt.Fprintln(&b, "|:---|:---|:---|---:|:---|")
	for _, l := range liabilities {
		fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
			l.ID, cell(l.Description), l.Type.Label(), aggregate.FormatCurrency(l.Amount), formatDate(l.DueDate))
	}
	fmt.Fprintf(&b, "\n**Total Liabilities:** %s\n\n", aggregate.FormatCurrency(aggregate.SumLiabilities(liabilities)))
	writeBreakdown(&b, "Liability Breakdown", aggregate.LiabilitiesByType(liabilities), func(k string) string {
		return core.LiabilityType(k).Label()
	})
	return b.String()
}

// NetWorth renders the net worth overview.
func NetWorth(assets []core.Asset, liabilities []core.Liability) string {
	bal := aggregate.Totals(assets, liabilities)

	var b strings.Builder
	fmt.Fprintf(&b, "# Net Worth Overview\n\n")
	fmt.Fprintln(&b, "| | Amount |")
	fmt.Fprintln(&b, "|:---|---:|")
	fmt.Fprintf(&b, "| Total Assets | %s |\n", aggregate.FormatCurrency(bal.Assets))
	fmt.Fprintf(&b, "| Total Liabilities | %s |\n", aggregate.FormatCurrency(bal.Liabilities))
	fmt.Fprintf(&b, "| **Net Worth** | **%s** |\n\n", aggregate.FormatCurrency(bal.NetWorth))

	writeBreakdown(&b, "Asset Breakdown", aggregate.AssetsByType(assets), func(k string) string {
		return core.AssetType(k).Label()
	})
	writeBreakdown(&b, "Liability Breakdown", aggregate.LiabilitiesByType(liabilities), func(k string) string {
		return core.LiabilityType(k).Label()
	})
	return b.String()
}

// Dashboard renders a dashboard summary.
func Dashboard(res dashboard.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Financial Dashboard\n\n")
	if res.Local {
		fmt.Fprintf(&b, "> %s\n\n", localNotice)
	}

	fmt.Fprintln(&b, "| Total Income | Total Expenses | Net Worth |")
	fmt.Fprintln(&b, "|---:|---:|---:|")
	fmt.Fprintf(&b, "| %s | %s | %s |\n\n",
		aggregate.FormatCurrency(res.TotalIncome),
		aggregate.FormatCurrency(res.TotalExpenses),
		aggregate.FormatCurrency(res.NetWorth))

	if len(res.MonthlyData) > 0 {
		fmt.Fprintf(&b, "## Monthly Income vs Expenses\n\n")
		fmt.Fprintln(&b, "| Month | Income | Expenses | Net |")
		fmt.Fprintln(&b, "|:---|---:|---:|---:|")
		for _, m := range res.MonthlyData {
			fmt.Fprintf(&b, "| %s | %s | %s | %s |\n",
				m.Month,
				aggregate.FormatCurrency(m.Income),
				aggregate.FormatCurrency(m.Expense),
				aggregate.FormatSigned(m.Income.Minus(m.Expense)))
		}
		fmt.Fprintln(&b)
	}

	if len(res.ExpenseCategories) > 0 {
		fmt.Fprintf(&b, "## Expense Categories\n\n")
		fmt.Fprintln(&b, "| Category | Amount |")
		fmt.Fprintln(&b, "|:---|---:|")
		for _, c := range res.ExpenseCategories {
			fmt.Fprintf(&b, "| %s | %s |\n", cell(aggregate.CategoryName(core.Expense, c.Category)), aggregate.FormatCurrency(c.Amount))
		}
		fmt.Fprintln(&b)
	}

	if res.IsEmpty() {
		fmt.Fprintf(&b, "_No activity yet._\n")
	}
	return b.String()
}

// Full renders every section from the workspace's cached collections.
func Full(ws *store.Workspace) string {
	txs, assets, liabilities := ws.Transactions.Items(), ws.Assets.Items(), ws.Liabilities.Items()
	sections := []string{
		"# Financial Reports\n",
		demote(NetWorth(assets, liabilities)),
		demote(Assets(assets)),
		demote(Liabilities(liabilities)),
		demote(Transactions(txs, aggregate.All)),
	}
	return strings.Join(sections, "\n")
}

func writeBreakdown(b *strings.Builder, title string, bd aggregate.Breakdown, label func(string) string) {
	if bd.Len() == 0 {
		return
	}
	fmt.Fprintf(b, "## %s\n\n", title)
	fmt.Fprintln(b, "| Type | Total |")
	fmt.Fprintln(b, "|:---|---:|")
	for _, k := range bd.Keys {
		fmt.Fprintf(b, "| %s | %s |\n", label(k), aggregate.FormatCurrency(bd.Total(k)))
	}
	fmt.Fprintln(b)
}

// demote pushes every heading one level down so sections nest under one title.
func demote(md string) string {
	lines := strings.Split(md, "\n")
	for i, l := range lines {
		if strings.HasPrefix(l, "#") {
			lines[i] = "#" + l
		}
	}
	return strings.Join(lines, "\n")
}

func filterLabel(f aggregate.Filter) string {
	switch f {
	case aggregate.Incomes:
		return "Income"
	case aggregate.Expenses:
		return "Expenses"
	default:
		return "All"
	}
}

func formatDate(d core.Date) string {
	if d.IsZero() {
		return "Unknown date"
	}
	return d.Format("Jan 2, 2006")
}

// cell escapes text for use inside a table cell.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
