package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/analytics"
	"spendwise/internal/cache"
	"spendwise/internal/core"
	"spendwise/internal/log"
	"spendwise/internal/ports"
)

// RecentLimit is how many of the newest expenses a dashboard lists.
const RecentLimit = 5

// DashboardView is everything the dashboard renders for one user and period.
type DashboardView struct {
	UserID    int64                   `json:"user_id"`
	Role      string                  `json:"role"`
	Aggregate analytics.Aggregate     `json:"aggregate"`
	Budget    analytics.BudgetSummary `json:"budget"`
	Recent    []core.Expense          `json:"recent"`
}

// DashboardService builds dashboard views, caching them per user, period and day.
type DashboardService struct {
	users    ports.UserReader
	expenses ports.ExpenseFetcher
	cache    cache.Cache[DashboardView]
	now      func() time.Time
}

// NewDashboardService wires the service. views may be nil to disable caching.
func NewDashboardService(users ports.UserReader, expenses ports.ExpenseFetcher, views cache.Cache[DashboardView]) *DashboardService {
	return &DashboardService{
		users:    users,
		expenses: expenses,
		cache:    views,
		now:      time.Now,
	}
}

// Dashboard aggregates userID's expenses over the window named by periodTag.
// Unknown tags fall back to a month.
func (s *DashboardService) Dashboard(ctx context.Context, userID int64, periodTag string) (DashboardView, error) {
	period := core.ParsePeriod(periodTag)
	now := s.now()
	windowStart := period.WindowStart(now)

	key := cacheKey(period, core.DateOf(now))
	var gen uint64
	if s.cache != nil {
		gen = s.cache.Generation(userID)
		if view, ok := s.cache.Get(userID, key); ok {
			slog.DebugContext(ctx, "Dashboard cache hit", log.FieldUserID, userID, log.FieldPeriod, period)
			return view, nil
		}
	}

	var (
		user    core.User
		records []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		user, err = s.users.GetUser(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = s.expenses.FetchExpenses(gctx, userID, windowStart)
		if err != nil {
			return fmt.Errorf("fetch expenses: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return DashboardView{}, err
	}

	agg := analytics.AggregateExpenses(records, windowStart)
	view := DashboardView{
		UserID:    userID,
		Role:      user.Role,
		Aggregate: agg,
		Budget:    analytics.SummarizeBudget(user.Budget, period, agg.TotalSpent),
		Recent:    mostRecent(records, RecentLimit),
	}

	if s.cache != nil && !s.cache.Set(userID, key, view, gen) {
		slog.DebugContext(ctx, "Expenses changed while building dashboard, not caching", log.FieldUserID, userID)
	}
	return view, nil
}

// Invalidate drops every cached view of userID, including views still being
// built from data read before the write.
func (s *DashboardService) Invalidate(userID int64) {
	if s.cache == nil {
		return
	}
	if n := s.cache.Invalidate(userID); n > 0 {
		slog.Debug("Invalidated dashboard cache", log.FieldUserID, userID, "entries", n)
	}
}

// cacheKey scopes a view to its period and the day it was built, so windows
// roll over at midnight.
func cacheKey(period core.Period, day core.Date) string {
	return fmt.Sprintf("%s|%s", period, day)
}

// mostRecent returns up to n records from a date-ascending slice, newest first.
func mostRecent(records []core.Expense, n int) []core.Expense {
	if n > len(records) {
		n = len(records)
	}
	out := make([]core.Expense, 0, n)
	for i := len(records) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, records[i])
	}
	return out
}
