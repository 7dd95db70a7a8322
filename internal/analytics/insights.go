package analytics

import (
	"fmt"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

const foodCategory = "Food"

var foodTipThreshold = decimal.RequireFromString("0.5")

// Insights derives short observations from a user's whole expense history.
//
// The top category is the first one reaching the maximum amount. Students
// spending more than half of everything on Food get an extra tip.
func Insights(records []core.Expense, role string) []string {
	insights := []string{}
	totals := newOrderedTotals()
	total := decimal.Zero
	for _, e := range records {
		totals.add(e.Category, e.Amount)
		total = total.Add(e.Amount)
	}
	if !total.IsPositive() {
		return insights
	}

	top := 0
	for i := range totals.sums {
		if totals.sums[i].GreaterThan(totals.sums[top]) {
			top = i
		}
	}
	insights = append(insights, fmt.Sprintf("Spending Pattern: You spend most (%d%%) on %s.",
		percentOf(totals.sums[top], total), totals.labels[top]))

	if role == core.RoleStudent {
		if i, ok := totals.index[foodCategory]; ok && totals.sums[i].GreaterThan(total.Mul(foodTipThreshold)) {
			insights = append(insights, "Student Tip: Spending >50% on food? Try our meal plan optimizer.")
		}
	}
	return insights
}
