package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"spendwise/internal/analytics"
	"spendwise/internal/core"
	"spendwise/internal/ports"
)

// InsightsService derives advisory messages from a user's whole history.
type InsightsService struct {
	users    ports.UserReader
	expenses ports.ExpenseFetcher
}

func NewInsightsService(users ports.UserReader, expenses ports.ExpenseFetcher) *InsightsService {
	return &InsightsService{users: users, expenses: expenses}
}

func (s *InsightsService) Insights(ctx context.Context, userID int64) ([]string, error) {
	user, err := s.users.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	records, err := s.expenses.FetchExpenses(ctx, userID, core.Date{})
	if err != nil {
		return nil, fmt.Errorf("fetch expenses: %w", err)
	}
	// Ties for the top category go to the one recorded first.
	slices.SortStableFunc(records, func(a, b core.Expense) int {
		return cmp.Compare(a.ID, b.ID)
	})
	return analytics.Insights(records, user.Role), nil
}
