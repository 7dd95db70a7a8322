package analytics

import (
	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// BudgetSummary compares spending in a window with the budget scaled to it.
type BudgetSummary struct {
	Period        core.Period     `json:"period"`
	DisplayBudget decimal.Decimal `json:"budget"`
	TotalSpent    decimal.Decimal `json:"total_spent"`
	Remaining     decimal.Decimal `json:"remaining"`
	SavingsPct    decimal.Decimal `json:"savings_pct"`
}

// SummarizeBudget scales the monthly budget to period and reports what is left.
//
// Remaining may be negative when the budget is overspent; SavingsPct never is.
func SummarizeBudget(monthlyBudget decimal.Decimal, period core.Period, totalSpent decimal.Decimal) BudgetSummary {
	period = core.ParsePeriod(string(period))
	display := period.DisplayBudget(monthlyBudget)
	remaining := display.Sub(totalSpent)

	pct := decimal.Zero
	if display.IsPositive() {
		pct = remaining.Div(display).Mul(hundred)
	}
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		pct = hundred
	}

	return BudgetSummary{
		Period:        period,
		DisplayBudget: display,
		TotalSpent:    totalSpent,
		Remaining:     remaining,
		SavingsPct:    pct,
	}
}
