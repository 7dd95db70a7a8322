package analytics

import (
	"sort"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

var hundred = decimal.NewFromInt(100)

// CategoryTotal is the amount spent on one category inside the window.
type CategoryTotal struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

// RankedCategory is a CategoryTotal annotated with its share of the total.
type RankedCategory struct {
	Name       string          `json:"name"`
	Amount     decimal.Decimal `json:"amount"`
	Percentage int             `json:"percentage"`
}

// DailyTotal is the amount spent on one day, labelled "MM-DD".
type DailyTotal struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// Aggregate is the dashboard view of a window of expenses.
//
// Categories and Days keep first-seen order; TopCategories is ranked by
// amount. The Chart* slices are the same data split into parallel label and
// value sequences.
type Aggregate struct {
	WindowStart   core.Date        `json:"window_start"`
	TotalSpent    decimal.Decimal  `json:"total_spent"`
	Categories    []CategoryTotal  `json:"categories"`
	Days          []DailyTotal     `json:"days"`
	TopCategories []RankedCategory `json:"top_categories"`

	ChartCategories      []string          `json:"chart_categories"`
	ChartCategoryAmounts []decimal.Decimal `json:"chart_category_amounts"`
	ChartDates           []string          `json:"chart_dates"`
	ChartDailyAmounts    []decimal.Decimal `json:"chart_daily_amounts"`
}

// AggregateExpenses sums records by category and by day.
//
// The records must already be filtered to one owner and to dates on or after
// windowStart, and sorted by date ascending; no filtering or sorting happens
// here. An empty slice yields a zero Aggregate with empty, non-nil slices.
func AggregateExpenses(records []core.Expense, windowStart core.Date) Aggregate {
	total := decimal.Zero
	byCategory := newOrderedTotals()
	byDay := newOrderedTotals()

	for _, e := range records {
		total = total.Add(e.Amount)
		byCategory.add(e.Category, e.Amount)
		byDay.add(e.Date.ShortLabel(), e.Amount)
	}

	agg := Aggregate{
		WindowStart:          windowStart,
		TotalSpent:           total,
		Categories:           make([]CategoryTotal, 0, byCategory.len()),
		Days:                 make([]DailyTotal, 0, byDay.len()),
		ChartCategories:      append([]string{}, byCategory.labels...),
		ChartCategoryAmounts: append([]decimal.Decimal{}, byCategory.sums...),
		ChartDates:           append([]string{}, byDay.labels...),
		ChartDailyAmounts:    append([]decimal.Decimal{}, byDay.sums...),
	}
	for i, name := range byCategory.labels {
		agg.Categories = append(agg.Categories, CategoryTotal{Name: name, Amount: byCategory.sums[i]})
	}
	for i, label := range byDay.labels {
		agg.Days = append(agg.Days, DailyTotal{Label: label, Amount: byDay.sums[i]})
	}
	agg.TopCategories = rankCategories(agg.Categories, total)
	return agg
}

// rankCategories sorts by amount descending; ties keep first-seen order.
func rankCategories(totals []CategoryTotal, total decimal.Decimal) []RankedCategory {
	ranked := make([]RankedCategory, 0, len(totals))
	for _, c := range totals {
		ranked = append(ranked, RankedCategory{
			Name:       c.Name,
			Amount:     c.Amount,
			Percentage: percentOf(c.Amount, total),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Amount.GreaterThan(ranked[j].Amount)
	})
	return ranked
}

// percentOf returns floor(part/whole*100) clamped to [0, 100], or 0 when
// whole is not positive.
func percentOf(part, whole decimal.Decimal) int {
	if !whole.IsPositive() {
		return 0
	}
	return clampPercent(part.Mul(hundred).Div(whole).IntPart())
}

func clampPercent(p int64) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return int(p)
}
