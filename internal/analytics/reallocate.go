package analytics

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"spendwise/internal/core"
)

// SavingsCategory labels the synthetic row reserving the savings share.
const SavingsCategory = "Savings"

// InvalidInputAdvice is the single message shown when Optimize fails.
const InvalidInputAdvice = "Invalid input numbers."

var (
	// SavingsRatio is the share of the total budget reserved before any
	// category gets an allocation.
	SavingsRatio = decimal.RequireFromString("0.20")

	// ErrInvalidInput reports a total or category amount that is not a
	// non-negative number.
	ErrInvalidInput = errors.New("invalid input numbers")
)

// Formatter renders an amount for display, e.g. "₹1,200.00".
type Formatter interface {
	Format(amount decimal.Decimal) string
}

// ProposalItem is one row of a submitted budget plan, still in raw text form.
type ProposalItem struct {
	Category string `json:"category"`
	Amount   string `json:"amount"`
}

// Allocation pairs the proposed and optimized amounts, truncated to whole
// currency units.
type Allocation struct {
	Category  string `json:"category"`
	User      int64  `json:"user"`
	AI        int64  `json:"ai"`
	Synthetic bool   `json:"synthetic,omitempty"`
}

// Reallocation is the outcome of Optimize.
type Reallocation struct {
	TotalBudget   decimal.Decimal `json:"total_budget"`
	TargetSavings decimal.Decimal `json:"target_savings"`
	Available     decimal.Decimal `json:"available_for_expenses"`
	PlanTotal     decimal.Decimal `json:"plan_total"`
	ScalingFactor decimal.Decimal `json:"scaling_factor"`
	Comparison    []Allocation    `json:"comparison"`
	Advice        []string        `json:"advice"`
}

// Reduced reports whether the proposal had to be scaled down.
func (r Reallocation) Reduced() bool {
	return r.ScalingFactor.LessThan(decimal.NewFromInt(1))
}

// Optimize fits a proposed category split into totalBudget minus the savings
// share.
//
// Rows with an empty category or amount are skipped. Any other amount that
// is not a non-negative number, or a bad total, fails the whole call with
// ErrInvalidInput and no partial result. Repeated category labels are summed
// into the first occurrence. When the proposal exceeds the available amount
// every category is scaled by the same factor.
func Optimize(totalBudget string, proposal []ProposalItem, f Formatter) (Reallocation, error) {
	total, err := core.ParseAmount(totalBudget)
	if err != nil {
		return Reallocation{}, fmt.Errorf("total budget %q: %w", totalBudget, ErrInvalidInput)
	}

	plan := newOrderedTotals()
	planTotal := decimal.Zero
	for _, item := range proposal {
		category := strings.TrimSpace(item.Category)
		raw := strings.TrimSpace(item.Amount)
		if category == "" || raw == "" {
			continue
		}
		amount, err := core.ParseAmount(raw)
		if err != nil {
			return Reallocation{}, fmt.Errorf("amount %q for %s: %w", item.Amount, category, ErrInvalidInput)
		}
		plan.add(category, amount)
		planTotal = planTotal.Add(amount)
	}

	one := decimal.NewFromInt(1)
	targetSavings := total.Mul(SavingsRatio)
	available := total.Mul(one.Sub(SavingsRatio))

	res := Reallocation{
		TotalBudget:   total,
		TargetSavings: targetSavings,
		Available:     available,
		PlanTotal:     planTotal,
		ScalingFactor: one,
		Comparison:    make([]Allocation, 0, plan.len()+1),
		Advice:        []string{},
	}

	if planTotal.GreaterThan(available) {
		res.ScalingFactor = available.Div(planTotal)
		reduction := one.Sub(res.ScalingFactor).Mul(hundred).IntPart()
		res.Advice = append(res.Advice,
			fmt.Sprintf("Plan exceeded limit. Reduced categories by %d%% to ensure savings.", reduction))
	}

	for i, category := range plan.labels {
		proposed := plan.sums[i]
		optimized := proposed.Mul(res.ScalingFactor)
		alloc := Allocation{
			Category: category,
			User:     core.Truncate(proposed),
			AI:       core.Truncate(optimized),
		}
		res.Comparison = append(res.Comparison, alloc)
		if res.Reduced() {
			res.Advice = append(res.Advice,
				fmt.Sprintf("Reduce %s from %d to %d.", category, alloc.User, alloc.AI))
		}
	}

	res.Comparison = append(res.Comparison, Allocation{
		Category:  SavingsCategory,
		User:      0,
		AI:        core.Truncate(targetSavings),
		Synthetic: true,
	})
	res.Advice = append(res.Advice, fmt.Sprintf("Secured %s for your Savings.", format(f, targetSavings)))

	return res, nil
}

func format(f Formatter, amount decimal.Decimal) string {
	if f == nil {
		return amount.StringFixed(2)
	}
	return f.Format(amount)
}
