package services

import (
	"context"
	"errors"
	"log/slog"

	"spendwise/internal/analytics"
)

// PlanView is the optimizer page model. On invalid input Optimized is false,
// Advice holds a single message and Comparison is empty.
type PlanView struct {
	Optimized  bool                    `json:"optimized"`
	Advice     []string                `json:"advice"`
	Comparison []analytics.Allocation  `json:"comparison"`
	Result     *analytics.Reallocation `json:"result,omitempty"`
}

// PlannerService runs the budget reallocation for submitted plans.
type PlannerService struct {
	formatter analytics.Formatter
}

func NewPlannerService(formatter analytics.Formatter) *PlannerService {
	return &PlannerService{formatter: formatter}
}

// Plan rescales proposal to fit totalBudget after savings.
func (s *PlannerService) Plan(ctx context.Context, totalBudget string, proposal []analytics.ProposalItem) PlanView {
	result, err := analytics.Optimize(totalBudget, proposal, s.formatter)
	if errors.Is(err, analytics.ErrInvalidInput) {
		slog.DebugContext(ctx, "Rejected budget plan", "error", err)
		return PlanView{
			Advice:     []string{analytics.InvalidInputAdvice},
			Comparison: []analytics.Allocation{},
		}
	}

	slog.DebugContext(ctx, "Budget plan optimized",
		"categories", len(result.Comparison)-1,
		"reduced", result.Reduced())
	return PlanView{
		Optimized:  true,
		Advice:     result.Advice,
		Comparison: result.Comparison,
		Result:     &result,
	}
}
